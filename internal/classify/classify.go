// Package classify detects file content types by inspecting file content
// rather than trusting filename extensions.
package classify

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/h2non/filetype"
)

// Kind buckets a content type by how the page renders it.
type Kind int

const (
	KindOther Kind = iota
	KindText
	KindImage
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "other"
	}
}

// MIMEEmpty is reported for zero-length files.
const MIMEEmpty = "application/x-empty"

// sniffLen bounds how much of a file is read for detection.
const sniffLen = 512

// kindByMIME maps previewable content types to their rendering kind.
// Everything absent renders as a plain link.
var kindByMIME = map[string]Kind{
	"text/plain": KindText,

	"image/jpeg":               KindImage,
	"image/png":                KindImage,
	"image/gif":                KindImage,
	"image/svg+xml":            KindImage,
	"image/webp":               KindImage,
	"image/bmp":                KindImage,
	"image/x-icon":             KindImage,
	"image/vnd.microsoft.icon": KindImage,
	"image/tiff":               KindImage,
	"image/jp2":                KindImage,

	"video/mp4":  KindVideo,
	"video/webm": KindVideo,
	"video/ogg":  KindVideo,
}

// KindOf maps a MIME type to its rendering kind; unknown types are KindOther.
func KindOf(mime string) Kind {
	return kindByMIME[mime]
}

// Result is a detected content type. The zero value means detection failed.
type Result struct {
	MIME string
	Kind Kind
}

// Classifier detects content types from file headers.
type Classifier struct{}

// New creates a new Classifier.
func New() *Classifier {
	return &Classifier{}
}

// Classify sniffs the start of the file at path. The file is opened only for
// the duration of the call. Unknown content yields a zero Result; a read
// failure additionally returns the error for the caller to log.
func (c *Classifier) Classify(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Sniff(head[:n]), nil
}

// Sniff classifies a file header. Magic signatures are checked first; content
// without one falls through to markup and text heuristics.
func Sniff(head []byte) Result {
	if len(head) == 0 {
		return Result{MIME: MIMEEmpty}
	}

	if t, err := filetype.Match(head); err == nil && t != filetype.Unknown {
		mime := t.MIME.Value
		// An Ogg container is audio by default; a video codec in the first
		// logical stream makes it video/ogg, the type browsers expect for .ogv.
		if mime == "audio/ogg" && oggHasVideoStream(head) {
			mime = "video/ogg"
		}
		return Result{MIME: mime, Kind: KindOf(mime)}
	}

	hadBOM := bytes.HasPrefix(head, utf8BOM)
	body := head
	if hadBOM {
		body = head[len(utf8BOM):]
	}

	switch {
	case looksSVG(body):
		return Result{MIME: "image/svg+xml", Kind: KindImage}
	case looksHTML(body):
		return Result{MIME: "text/html"}
	case looksXML(body):
		return Result{MIME: "text/xml"}
	case isText(body) || hadBOM && len(body) == 0:
		return Result{MIME: "text/plain", Kind: KindText}
	}
	return Result{}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// oggHasVideoStream inspects the first Ogg page payload for a video codec
// header (Theora or OGM video).
func oggHasVideoStream(head []byte) bool {
	if !bytes.HasPrefix(head, []byte("OggS")) || len(head) < 28 {
		return false
	}
	// 27-byte page header, then one length byte per segment.
	nsegs := int(head[26])
	off := 27 + nsegs
	if len(head) <= off {
		return false
	}
	payload := head[off:]
	return bytes.HasPrefix(payload, []byte("\x80theora")) ||
		bytes.HasPrefix(payload, []byte("\x01video"))
}

func hasFoldPrefix(b, prefix []byte) bool {
	return len(b) >= len(prefix) && bytes.EqualFold(b[:len(prefix)], prefix)
}

func looksSVG(b []byte) bool {
	s := bytes.TrimLeft(b, " \t\r\n")
	if hasFoldPrefix(s, []byte("<svg")) || hasFoldPrefix(s, []byte("<!doctype svg")) {
		return true
	}
	if !hasFoldPrefix(s, []byte("<?xml")) {
		return false
	}
	return bytes.Contains(bytes.ToLower(s), []byte("<svg"))
}

func looksHTML(b []byte) bool {
	s := bytes.TrimLeft(b, " \t\r\n")
	for _, tag := range [][]byte{
		[]byte("<!doctype html"),
		[]byte("<html"),
		[]byte("<head"),
		[]byte("<body"),
	} {
		if hasFoldPrefix(s, tag) {
			return true
		}
	}
	return false
}

func looksXML(b []byte) bool {
	s := bytes.TrimLeft(b, " \t\r\n")
	return hasFoldPrefix(s, []byte("<?xml"))
}

// isText reports whether the header looks like UTF-8 text: no NUL bytes, no
// bare control characters beyond common whitespace, and valid UTF-8 once a
// trailing rune cut off by the sniff window is trimmed.
func isText(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	if bytes.IndexByte(b, 0) >= 0 {
		return false
	}
	b = trimPartialRune(b)
	// A header that trims away to nothing was all undecodable bytes,
	// not text cut mid-rune.
	if len(b) == 0 {
		return false
	}
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' && r != '\f' && r != '\v' {
			return false
		}
	}
	return true
}

// trimPartialRune drops trailing bytes that do not decode, so a multibyte
// rune split by the sniff window does not mark the whole header invalid.
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
