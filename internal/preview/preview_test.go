package preview

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/webdump/webdump/internal/classify"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func textResult() classify.Result {
	return classify.Result{MIME: "text/plain", Kind: classify.KindText}
}

func TestRenderTextRoundTrip(t *testing.T) {
	path := writeFile(t, t.TempDir(), "greeting.txt", []byte("hello\nworld"))

	p := NewRenderer(nil, 0).Render(path, textResult())
	if p == nil {
		t.Fatal("expected a payload")
	}
	if p.Text != "hello\nworld" {
		t.Errorf("Text = %q, want %q", p.Text, "hello\nworld")
	}
	if p.Truncated {
		t.Error("small file must not be truncated")
	}
	if !p.IsText() || p.IsImage() || p.IsVideo() {
		t.Errorf("kind predicates wrong for %+v", p)
	}
}

func TestRenderTextInvalidUTF8(t *testing.T) {
	path := writeFile(t, t.TempDir(), "legacy.txt", []byte{'h', 'i', 0xFF, 0xFE, 0xFD})

	core, logs := observer.New(zapcore.WarnLevel)
	p := NewRenderer(zap.New(core), 0).Render(path, textResult())
	if p != nil {
		t.Fatalf("expected nil payload, got %+v", p)
	}
	if logs.FilterMessage("failed to decode text file").Len() == 0 {
		t.Error("expected a decode diagnostic")
	}
}

func TestRenderTextUnreadable(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	p := NewRenderer(zap.New(core), 0).Render(filepath.Join(t.TempDir(), "missing.txt"), textResult())
	if p != nil {
		t.Fatalf("expected nil payload, got %+v", p)
	}
	if logs.FilterMessage("skipping text preview").Len() == 0 {
		t.Error("expected a read diagnostic")
	}
}

func TestRenderTextTruncation(t *testing.T) {
	path := writeFile(t, t.TempDir(), "big.txt", []byte(strings.Repeat("ab", 100)))

	p := NewRenderer(nil, 16).Render(path, textResult())
	if p == nil {
		t.Fatal("expected a payload")
	}
	if !p.Truncated {
		t.Error("expected Truncated")
	}
	if p.Text != strings.Repeat("ab", 8) {
		t.Errorf("Text = %q, want first 16 bytes", p.Text)
	}
}

func TestRenderTextTruncationRuneBoundary(t *testing.T) {
	// The cap lands inside the two-byte "é"; the partial rune is dropped.
	path := writeFile(t, t.TempDir(), "accents.txt", []byte("caféé"))

	p := NewRenderer(nil, 4).Render(path, textResult())
	if p == nil {
		t.Fatal("expected a payload")
	}
	if !p.Truncated {
		t.Error("expected Truncated")
	}
	if !utf8.ValidString(p.Text) {
		t.Errorf("Text %q is not valid UTF-8", p.Text)
	}
	if p.Text != "caf" {
		t.Errorf("Text = %q, want %q", p.Text, "caf")
	}
}

func TestRenderMediaDoesNotReadFile(t *testing.T) {
	// Image and video payloads reference the file by path only, so even a
	// missing file renders.
	missing := filepath.Join(t.TempDir(), "missing.png")

	r := NewRenderer(nil, 0)

	img := r.Render(missing, classify.Result{MIME: "image/png", Kind: classify.KindImage})
	if img == nil || !img.IsImage() {
		t.Fatalf("image payload = %+v", img)
	}

	vid := r.Render(missing, classify.Result{MIME: "video/mp4", Kind: classify.KindVideo})
	if vid == nil || !vid.IsVideo() {
		t.Fatalf("video payload = %+v", vid)
	}
	if vid.MIME != "video/mp4" {
		t.Errorf("video MIME = %q, want video/mp4", vid.MIME)
	}
}

func TestRenderOther(t *testing.T) {
	path := writeFile(t, t.TempDir(), "blob.bin", []byte{0x00, 0x01})
	if p := NewRenderer(nil, 0).Render(path, classify.Result{}); p != nil {
		t.Errorf("expected nil payload for unknown type, got %+v", p)
	}
}
