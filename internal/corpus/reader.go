package corpus

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/embex/pkg/utils"
)

// Stats summarises one corpus walk.
type Stats struct {
	Files   int
	Skipped int
	Words   int
}

// Reader walks a corpus directory and chunks every supported file.
type Reader struct {
	extensions map[string]struct{}
	chunker    *Chunker
	logger     *zap.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the reader's logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reader) { r.logger = l }
}

// NewReader returns a reader for files with the given extensions.
func NewReader(extensions []string, chunker *Chunker, opts ...Option) *Reader {
	r := &Reader{extensions: make(map[string]struct{}, len(extensions)), chunker: chunker}
	for _, e := range extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		r.extensions[e] = struct{}{}
	}
	for _, o := range opts {
		o(r)
	}
	r.logger = utils.OrNop(r.logger)
	return r
}

// Read walks dir in lexical order. Hidden directories are skipped. Files that
// fail to parse are logged and counted in Stats.Skipped.
func (r *Reader) Read(ctx context.Context, dir string) ([]Document, Stats, error) {
	var (
		docs  []Document
		stats Stats
	)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := r.extensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		text, err := ReadText(path)
		if err != nil {
			r.logger.Warn("Skipping corpus file", zap.String("path", path), zap.Error(err))
			stats.Skipped++
			return nil
		}
		rel, _ := filepath.Rel(dir, path)
		chunks := r.chunker.Chunk(rel, text)
		stats.Words += len(strings.Fields(text))
		docs = append(docs, chunks...)
		stats.Files++
		r.logger.Debug("Read corpus file", zap.String("path", rel), zap.Int("chunks", len(chunks)))
		return nil
	})
	if err != nil {
		return nil, stats, err
	}
	return docs, stats, nil
}
