// Package preview renders inline previews for classified files.
package preview

import (
	"io"
	"os"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/webdump/webdump/internal/classify"
	"github.com/webdump/webdump/internal/metrics"
)

// DefaultMaxTextBytes caps how much of a text file is read for its preview.
const DefaultMaxTextBytes = 256 * 1024

// Payload is a self-contained inline preview. Text previews carry the
// decoded content; image and video previews carry only the media hint and
// the page references the raw file by path.
type Payload struct {
	Kind      classify.Kind
	MIME      string
	Text      string
	Truncated bool
}

func (p *Payload) IsText() bool  { return p.Kind == classify.KindText }
func (p *Payload) IsImage() bool { return p.Kind == classify.KindImage }
func (p *Payload) IsVideo() bool { return p.Kind == classify.KindVideo }

// Renderer builds preview payloads.
type Renderer struct {
	log          *zap.Logger
	maxTextBytes int64
}

// NewRenderer creates a Renderer. A non-positive maxTextBytes selects
// DefaultMaxTextBytes.
func NewRenderer(log *zap.Logger, maxTextBytes int64) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	if maxTextBytes <= 0 {
		maxTextBytes = DefaultMaxTextBytes
	}
	return &Renderer{log: log, maxTextBytes: maxTextBytes}
}

// Render decides whether the file at absPath gets an inline preview for the
// detected content type. A nil payload means link-only. Unreadable files and
// undecodable text are logged as diagnostics and degrade to nil; they never
// abort the page build.
func (r *Renderer) Render(absPath string, res classify.Result) *Payload {
	switch res.Kind {
	case classify.KindText:
		return r.renderText(absPath, res.MIME)
	case classify.KindImage, classify.KindVideo:
		return &Payload{Kind: res.Kind, MIME: res.MIME}
	default:
		return nil
	}
}

func (r *Renderer) renderText(absPath, mime string) *Payload {
	f, err := os.Open(absPath)
	if err != nil {
		r.log.Warn("skipping text preview", zap.String("path", absPath), zap.Error(err))
		return nil
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, r.maxTextBytes+1))
	if err != nil {
		r.log.Warn("skipping text preview", zap.String("path", absPath), zap.Error(err))
		return nil
	}

	truncated := int64(len(data)) > r.maxTextBytes
	if truncated {
		data = trimPartialRune(data[:r.maxTextBytes])
		metrics.RecordPreviewTruncation()
	}

	if !utf8.Valid(data) {
		r.log.Warn("failed to decode text file", zap.String("path", absPath))
		return nil
	}

	return &Payload{
		Kind:      classify.KindText,
		MIME:      mime,
		Text:      string(data),
		Truncated: truncated,
	}
}

// trimPartialRune drops a trailing multibyte rune split by the read cap.
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		r, size := utf8.DecodeLastRune(b)
		if r != utf8.RuneError || size != 1 {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}
