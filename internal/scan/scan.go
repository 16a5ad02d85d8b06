// Package scan discovers regular files under a root directory.
package scan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/webdump/webdump/internal/metrics"
)

// ErrNotADirectory reports that the scan root does not exist or is not a
// directory. It is the only scan error that aborts a page build.
var ErrNotADirectory = errors.New("not a directory")

// Entry is a discovered regular file.
type Entry struct {
	AbsPath string // absolute path on disk
	RelPath string // slash-separated path relative to the scan root
}

// Scanner walks directory trees. It holds no cursor state; every Scan call
// is independent and a Scanner is safe for concurrent use.
type Scanner struct {
	log *zap.Logger
}

// New creates a Scanner that reports skipped entries to log.
func New(log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{log: log}
}

// Scan returns the regular files under root, in no particular order. With
// recursive set, subdirectories are walked too, using an explicit worklist
// and a visited set of resolved directory paths so that cyclic symlinks
// terminate. Entries that are neither files nor directories are skipped
// with a diagnostic.
func (s *Scanner) Scan(root string, recursive bool) ([]Entry, error) {
	start := time.Now()

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("scan root %s: %w", root, ErrNotADirectory)
	}
	rootReal, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("scan root %s: %w", root, ErrNotADirectory)
	}

	visited := map[string]struct{}{rootReal: {}}
	work := []string{root}
	var entries []Entry

	for len(work) > 0 {
		dir := work[len(work)-1]
		work = work[:len(work)-1]

		children, err := os.ReadDir(dir)
		if err != nil {
			s.log.Warn("skipping unreadable directory", zap.String("path", dir), zap.Error(err))
			metrics.RecordScanSkip()
			continue
		}

		for _, child := range children {
			p := filepath.Join(dir, child.Name())
			st, err := os.Stat(p) // follows symlinks, like the entries below expect
			if err != nil {
				s.log.Warn("skipping unreadable entry", zap.String("path", p), zap.Error(err))
				metrics.RecordScanSkip()
				continue
			}

			switch {
			case st.Mode().IsRegular():
				rel, err := filepath.Rel(root, p)
				if err != nil {
					s.log.Warn("skipping entry outside root", zap.String("path", p), zap.Error(err))
					metrics.RecordScanSkip()
					continue
				}
				entries = append(entries, Entry{AbsPath: p, RelPath: filepath.ToSlash(rel)})

			case st.IsDir():
				if !recursive {
					s.log.Debug("skipping directory", zap.String("path", p))
					continue
				}
				real, err := filepath.EvalSymlinks(p)
				if err != nil {
					s.log.Warn("skipping unresolvable directory", zap.String("path", p), zap.Error(err))
					metrics.RecordScanSkip()
					continue
				}
				if _, seen := visited[real]; seen {
					s.log.Debug("skipping already-visited directory",
						zap.String("path", p), zap.String("resolved", real))
					continue
				}
				visited[real] = struct{}{}
				work = append(work, p)

			default:
				s.log.Warn("skipping irregular entry",
					zap.String("path", p), zap.String("mode", st.Mode().String()))
				metrics.RecordScanSkip()
			}
		}
	}

	metrics.RecordScan(len(entries), time.Since(start))
	return entries, nil
}
