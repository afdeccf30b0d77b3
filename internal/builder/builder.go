package builder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/embex/internal/corpus"
	"github.com/hyperjump/embex/internal/models"
	"github.com/hyperjump/embex/internal/storage"
	"github.com/hyperjump/embex/internal/vector"
	"github.com/hyperjump/embex/pkg/utils"
)

// Builder runs the offline TF-IDF build: corpus in, artifact and frequency
// table out.
type Builder struct {
	reader  *corpus.Reader
	lexicon storage.Lexicon
	opts    Options
	logger  *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder's logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// New returns a builder reading documents with reader and writing frequencies
// and build records to lexicon.
func New(reader *corpus.Reader, lexicon storage.Lexicon, opts Options, options ...Option) *Builder {
	b := &Builder{reader: reader, lexicon: lexicon, opts: opts}
	for _, o := range options {
		o(b)
	}
	b.logger = utils.OrNop(b.logger)
	return b
}

// Build reads corpusDir, fits the LSA model, saves it to artifactPath and
// replaces the frequency table.
func (b *Builder) Build(ctx context.Context, corpusDir, artifactPath string) (*models.Build, error) {
	start := time.Now()
	docs, stats, err := b.reader.Read(ctx, corpusDir)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	b.logger.Info("Corpus read",
		zap.String("dir", corpusDir),
		zap.Int("files", stats.Files),
		zap.Int("skipped", stats.Skipped),
		zap.Int("documents", len(docs)),
		zap.Int("words", stats.Words))

	res, err := Fit(ctx, docs, b.opts)
	if err != nil {
		return nil, err
	}

	idx, err := vector.NewMemoryIndex(res.Dimensions)
	if err != nil {
		return nil, err
	}
	if err := idx.Add(res.Words, res.Vectors); err != nil {
		return nil, err
	}
	if err := idx.Save(artifactPath); err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}
	if err := b.lexicon.ReplaceFrequencies(ctx, res.Frequencies); err != nil {
		return nil, fmt.Errorf("write frequencies: %w", err)
	}

	build := &models.Build{
		Model:      models.ModelTFIDF,
		VocabSize:  len(res.Words),
		Dimensions: res.Dimensions,
		Documents:  res.Documents,
	}
	if err := b.lexicon.RecordBuild(ctx, build); err != nil {
		return nil, fmt.Errorf("record build: %w", err)
	}
	b.logger.Info("TF-IDF model built",
		zap.String("artifact", artifactPath),
		zap.Int("vocab_size", build.VocabSize),
		zap.Int("dimensions", build.Dimensions),
		zap.Duration("took", time.Since(start)))
	return build, nil
}
