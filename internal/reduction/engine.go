package reduction

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/hyperjump/embex/internal/embedding"
	"github.com/hyperjump/embex/internal/models"
	"github.com/hyperjump/embex/pkg/utils"
)

// ErrTooFewPoints is returned when fewer than two vectors are available to project.
var ErrTooFewPoints = errors.New("too few points to reduce")

// Source provides models, frequency ranked vocabularies and word frequencies.
type Source interface {
	Model(t models.ModelType) (embedding.Model, error)
	TopWords(ctx context.Context, t models.ModelType, n int) ([]string, error)
	Frequency(ctx context.Context, word string) int
}

// Projection is the outcome of one reduction.
type Projection struct {
	Coords *mat.Dense
	Method models.Method
	// FallbackUsed is set when t-SNE failed and PCA coordinates were returned instead.
	FallbackUsed bool
	// EffectivePerplexity is the perplexity t-SNE ran with, 0 for PCA.
	EffectivePerplexity int
}

// Engine runs reductions and caches full-vocabulary projections.
type Engine struct {
	source    Source
	projector Projector
	cache     *Cache
	logger    *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithProjector replaces the gonum projector.
func WithProjector(p Projector) Option {
	return func(e *Engine) { e.projector = p }
}

// WithCacheCapacity bounds the projection cache. 0 keeps it unbounded.
func WithCacheCapacity(n int) Option {
	return func(e *Engine) { e.cache = NewCache(n) }
}

// NewEngine creates an engine reading from source.
func NewEngine(source Source, opts ...Option) *Engine {
	e := &Engine{source: source, cache: NewCache(0)}
	for _, o := range opts {
		o(e)
	}
	e.logger = utils.OrNop(e.logger)
	if e.projector == nil {
		e.projector = NewGonumProjector(e.logger)
	}
	return e
}

// EffectivePerplexity clamps t-SNE perplexity for n samples: min(p, max(5, (n-1)/3)).
func EffectivePerplexity(n, p int) int {
	return min(p, max(5, (n-1)/3))
}

// NeighborhoodPerplexity is the tighter clamp used for small neighbourhood sets:
// min(p, max(2, n/3)).
func NeighborhoodPerplexity(n, p int) int {
	return min(p, max(2, n/3))
}

// Reduce projects the rows of x to two dimensions. A failing t-SNE run falls back
// to PCA and sets FallbackUsed.
func (e *Engine) Reduce(ctx context.Context, x *mat.Dense, method models.Method, perplexity int) (*Projection, error) {
	n, _ := x.Dims()
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewPoints, n)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch method {
	case models.MethodPCA:
		coords, err := e.projector.PCA(x)
		if err != nil {
			return nil, fmt.Errorf("pca: %w", err)
		}
		return &Projection{Coords: coords, Method: method}, nil
	case models.MethodTSNE:
		p := EffectivePerplexity(n, perplexity)
		e.logger.Info("t-SNE perplexity", zap.Int("requested", perplexity), zap.Int("effective", p), zap.Int("samples", n))
		coords, err := e.tsne(x, p)
		if err == nil {
			return &Projection{Coords: coords, Method: method, EffectivePerplexity: p}, nil
		}
		e.logger.Warn("t-SNE failed, falling back to PCA", zap.Error(err))
		coords, err = e.projector.PCA(x)
		if err != nil {
			return nil, fmt.Errorf("pca fallback: %w", err)
		}
		return &Projection{Coords: coords, Method: method, FallbackUsed: true, EffectivePerplexity: p}, nil
	}
	return nil, fmt.Errorf("%w: %q", models.ErrUnknownMethod, method)
}

// tsne runs the projector and turns panics and non-finite output into errors.
func (e *Engine) tsne(x *mat.Dense, perplexity int) (coords *mat.Dense, err error) {
	n, _ := x.Dims()
	if perplexity >= n {
		return nil, fmt.Errorf("perplexity %d must be less than the number of samples %d", perplexity, n)
	}
	defer func() {
		if r := recover(); r != nil {
			coords, err = nil, fmt.Errorf("t-SNE panicked: %v", r)
		}
	}()
	coords, err = e.projector.TSNE(x, perplexity)
	if err != nil {
		return nil, err
	}
	if r, c := coords.Dims(); r != n || c != 2 {
		return nil, fmt.Errorf("t-SNE returned a %dx%d matrix, want %dx2", r, c, n)
	}
	if !utils.AllFinite(coords.RawMatrix().Data) {
		return nil, errors.New("t-SNE produced non-finite coordinates")
	}
	return coords, nil
}

// Embeddings projects the q.NumWords most frequent words of q.Model. Results are
// cached by the full parameter tuple until ClearCache.
func (e *Engine) Embeddings(ctx context.Context, q models.ReductionQuery) (*models.EmbeddingsResponse, error) {
	key := q.CacheKey()
	if cached, ok := e.cache.Get(key); ok {
		e.logger.Debug("Reduction cache hit", zap.String("key", key))
		return cached, nil
	}

	m, err := e.source.Model(q.Model)
	if err != nil {
		return nil, err
	}
	words, err := e.source.TopWords(ctx, q.Model, q.NumWords)
	if err != nil {
		return nil, err
	}
	x, words := gather(m, words)
	if len(words) < 2 {
		return nil, fmt.Errorf("%w: %s has %d usable words", ErrTooFewPoints, q.Model, len(words))
	}

	proj, err := e.Reduce(ctx, x, q.Method, q.Perplexity)
	if err != nil {
		return nil, err
	}
	resp := &models.EmbeddingsResponse{
		ModelType:           q.Model,
		ReductionMethod:     q.Method,
		NumWords:            len(words),
		Points:              make([]models.EmbeddingPoint, len(words)),
		FallbackUsed:        proj.FallbackUsed,
		EffectivePerplexity: proj.EffectivePerplexity,
	}
	for i, w := range words {
		resp.Points[i] = models.EmbeddingPoint{
			Word:      w,
			X:         proj.Coords.At(i, 0),
			Y:         proj.Coords.At(i, 1),
			Frequency: e.source.Frequency(ctx, w),
		}
	}
	e.cache.Set(key, resp)
	return resp, nil
}

// Neighborhood projects q.Word together with its nearest neighbours. An unknown
// word, or fewer than two usable vectors, yields a response without points.
// Neighbourhoods are not cached.
func (e *Engine) Neighborhood(ctx context.Context, q models.NeighborhoodQuery) (*models.NeighborhoodResponse, error) {
	word := q.NormalizedWord()
	resp := &models.NeighborhoodResponse{
		QueryWord:       word,
		ModelType:       q.Model,
		ReductionMethod: q.Method,
		Points:          []models.NeighborhoodPoint{},
	}

	m, err := e.source.Model(q.Model)
	if err != nil {
		return nil, err
	}
	matches, ok, err := m.Nearest(word, q.NumNeighbors)
	if err != nil {
		return nil, err
	}
	if !ok {
		return resp, nil
	}

	words := []string{word}
	sims := map[string]float64{word: 1.0}
	for _, mt := range matches {
		words = append(words, mt.Word)
		sims[mt.Word] = mt.Score
	}
	x, words := gather(m, words)
	if len(words) < 2 {
		return resp, nil
	}

	perplexity := q.Perplexity
	if q.Method == models.MethodTSNE {
		perplexity = NeighborhoodPerplexity(len(words), perplexity)
	}
	proj, err := e.Reduce(ctx, x, q.Method, perplexity)
	if err != nil {
		return nil, err
	}
	resp.FallbackUsed = proj.FallbackUsed
	resp.EffectivePerplexity = proj.EffectivePerplexity
	for i, w := range words {
		resp.Points = append(resp.Points, models.NeighborhoodPoint{
			Word:       w,
			X:          proj.Coords.At(i, 0),
			Y:          proj.Coords.At(i, 1),
			Similarity: utils.Round(sims[w], 4),
			IsQuery:    w == word,
		})
	}
	return resp, nil
}

// ClearCache empties the projection cache and returns the number of dropped entries.
func (e *Engine) ClearCache() int {
	n := e.cache.Clear()
	e.logger.Info("Reduction cache cleared", zap.Int("entries", n))
	return n
}

// CacheLen returns the number of cached projections.
func (e *Engine) CacheLen() int {
	return e.cache.Len()
}

// gather builds the matrix of word vectors in order, dropping words without a vector.
func gather(m embedding.Model, words []string) (*mat.Dense, []string) {
	kept := make([]string, 0, len(words))
	data := make([]float64, 0, len(words)*m.Dimensions())
	for _, w := range words {
		v, ok := m.Vector(w)
		if !ok {
			continue
		}
		kept = append(kept, w)
		for _, f := range v {
			data = append(data, float64(f))
		}
	}
	if len(kept) == 0 {
		return nil, kept
	}
	return mat.NewDense(len(kept), m.Dimensions(), data), kept
}
