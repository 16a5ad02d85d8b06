package classify

import (
	"os"
	"path/filepath"
	"testing"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

// oggPage builds a minimal single-segment Ogg page with the given payload.
func oggPage(payload []byte) []byte {
	page := make([]byte, 27)
	copy(page, "OggS")
	page[26] = 1
	page = append(page, byte(len(payload)))
	return append(page, payload...)
}

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestClassifyIgnoresExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "photo.dat", pngHeader)

	c := New()
	res, err := c.Classify(path)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.MIME != "image/png" {
		t.Errorf("MIME = %q, want image/png", res.MIME)
	}
	if res.Kind != KindImage {
		t.Errorf("Kind = %v, want KindImage", res.Kind)
	}
}

func TestClassifyText(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "notes.bin", []byte("hello\nworld"))

	res, err := New().Classify(path)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if res.MIME != "text/plain" || res.Kind != KindText {
		t.Errorf("got %q/%v, want text/plain/KindText", res.MIME, res.Kind)
	}
}

func TestClassifyUnreadable(t *testing.T) {
	res, err := New().Classify(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
	if res != (Result{}) {
		t.Errorf("Result = %+v, want zero value", res)
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		mime string
		kind Kind
	}{
		{"empty", nil, MIMEEmpty, KindOther},
		{"png", pngHeader, "image/png", KindImage},
		{"gif", []byte("GIF89a"), "image/gif", KindImage},
		{"text", []byte("plain old text\n"), "text/plain", KindText},
		{"text with bom", append([]byte{0xEF, 0xBB, 0xBF}, "bonjour"...), "text/plain", KindText},
		{"bom only", []byte{0xEF, 0xBB, 0xBF}, "text/plain", KindText},
		{"svg", []byte(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`), "image/svg+xml", KindImage},
		{"svg with prolog", []byte(`<?xml version="1.0"?><svg></svg>`), "image/svg+xml", KindImage},
		{"html", []byte("<!DOCTYPE html><html></html>"), "text/html", KindOther},
		{"xml", []byte(`<?xml version="1.0"?><data/>`), "text/xml", KindOther},
		{"invalid utf8", []byte{0x80, 0x81, 0x82}, "", KindOther},
		{"invalid utf8 single byte", []byte{0x80}, "", KindOther},
		{"invalid utf8 four bytes", []byte{0x81, 0x82, 0x83, 0x84}, "", KindOther},
		{"binary with nul", []byte("abc\x00def"), "", KindOther},
		{"ogg theora", oggPage([]byte("\x80theora")), "video/ogg", KindVideo},
		{"ogg vorbis", oggPage([]byte("\x01vorbis")), "audio/ogg", KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Sniff(tt.head)
			if res.MIME != tt.mime {
				t.Errorf("MIME = %q, want %q", res.MIME, tt.mime)
			}
			if res.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", res.Kind, tt.kind)
			}
		})
	}
}

func TestSniffPartialRune(t *testing.T) {
	// A multibyte rune cut by the sniff window must not mark the whole
	// header as binary.
	head := append([]byte("champs "), 0xC3) // first byte of "é"
	res := Sniff(head)
	if res.MIME != "text/plain" {
		t.Errorf("MIME = %q, want text/plain", res.MIME)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		mime string
		kind Kind
	}{
		{"text/plain", KindText},
		{"image/png", KindImage},
		{"image/x-icon", KindImage},
		{"image/vnd.microsoft.icon", KindImage},
		{"video/mp4", KindVideo},
		{"video/webm", KindVideo},
		{"video/ogg", KindVideo},
		{"application/pdf", KindOther},
		{"", KindOther},
	}
	for _, tt := range tests {
		if got := KindOf(tt.mime); got != tt.kind {
			t.Errorf("KindOf(%q) = %v, want %v", tt.mime, got, tt.kind)
		}
	}
}

func TestKindString(t *testing.T) {
	for kind, want := range map[Kind]string{
		KindOther: "other",
		KindText:  "text",
		KindImage: "image",
		KindVideo: "video",
	} {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}
