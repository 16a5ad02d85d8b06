// Package page assembles the browsable directory page.
package page

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/webdump/webdump/internal/classify"
	"github.com/webdump/webdump/internal/metrics"
	"github.com/webdump/webdump/internal/preview"
	"github.com/webdump/webdump/internal/scan"
)

//go:embed page.html.tmpl
var pageHTML string

var pageTmpl = template.Must(template.New("page").Parse(pageHTML))

// Card is one file's unit of output: link target, type label and an
// optional preview.
type Card struct {
	RelPath   string
	Href      string
	TypeLabel string
	Preview   *preview.Payload
}

type pageData struct {
	Title string
	Cards []Card
}

// Builder orchestrates scanner, classifier and renderer into a single page.
// It holds no per-request state; concurrent builds are independent.
type Builder struct {
	log        *zap.Logger
	scanner    *scan.Scanner
	classifier *classify.Classifier
	renderer   *preview.Renderer
}

// NewBuilder wires the pipeline together.
func NewBuilder(log *zap.Logger, scanner *scan.Scanner, classifier *classify.Classifier, renderer *preview.Renderer) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{log: log, scanner: scanner, classifier: classifier, renderer: renderer}
}

// BuildPage scans root, classifies and renders every discovered file in
// sorted order, and returns the complete HTML document. Only a scan root
// failure aborts the build; per-file problems degrade that file's card.
func (b *Builder) BuildPage(ctx context.Context, root string, recursive bool) ([]byte, error) {
	start := time.Now()

	entries, err := b.scanner.Scan(root, recursive)
	if err != nil {
		metrics.RecordPageBuild(0, 0, false)
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].AbsPath < entries[j].AbsPath })

	cards := make([]Card, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			metrics.RecordPageBuild(0, 0, false)
			return nil, fmt.Errorf("build page: %w", err)
		}

		res, err := b.classifier.Classify(e.AbsPath)
		if err != nil {
			b.log.Warn("classification failed", zap.String("path", e.AbsPath), zap.Error(err))
		}
		metrics.RecordClassification(res.Kind.String())

		label := res.MIME
		if label == "" {
			label = "unknown"
		}

		cards = append(cards, Card{
			RelPath:   e.RelPath,
			Href:      rawHref(e.RelPath),
			TypeLabel: label,
			Preview:   b.renderer.Render(e.AbsPath, res),
		})
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, pageData{Title: "Web dump", Cards: cards}); err != nil {
		metrics.RecordPageBuild(0, 0, false)
		return nil, fmt.Errorf("render page: %w", err)
	}

	metrics.RecordPageBuild(buf.Len(), time.Since(start), true)
	return buf.Bytes(), nil
}

// rawHref builds the raw-file URL for a relative path, escaping each path
// segment but keeping the separators.
func rawHref(relPath string) string {
	segs := strings.Split(relPath, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return "/files/" + strings.Join(segs, "/")
}
