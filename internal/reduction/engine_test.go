package reduction

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/mat"

	"github.com/hyperjump/embex/internal/embedding"
	"github.com/hyperjump/embex/internal/fixtures"
	"github.com/hyperjump/embex/internal/models"
	"github.com/hyperjump/embex/internal/vector"
)

// countingProjector wraps a real projector and records calls.
type countingProjector struct {
	inner       Projector
	mu          sync.Mutex
	pcaCalls    int
	tsneCalls   int
	perplexity  []int
	tsneFailure func() (*mat.Dense, error)
}

func (p *countingProjector) PCA(x *mat.Dense) (*mat.Dense, error) {
	p.mu.Lock()
	p.pcaCalls++
	p.mu.Unlock()
	return p.inner.PCA(x)
}

func (p *countingProjector) TSNE(x *mat.Dense, perplexity int) (*mat.Dense, error) {
	p.mu.Lock()
	p.tsneCalls++
	p.perplexity = append(p.perplexity, perplexity)
	p.mu.Unlock()
	if p.tsneFailure != nil {
		return p.tsneFailure()
	}
	return p.inner.TSNE(x, perplexity)
}

func newCountingEngine(t *testing.T, opts ...Option) (*Engine, *countingProjector) {
	t.Helper()
	store := embedding.NewStore(fixtures.WriteModels(t, t.TempDir(), fixtures.Options{}))
	inner := NewGonumProjector(zap.NewNop())
	inner.Iterations = 50
	proj := &countingProjector{inner: inner}
	opts = append([]Option{WithProjector(proj), WithLogger(zap.NewNop())}, opts...)
	return NewEngine(store, opts...), proj
}

func TestPerplexityClamps(t *testing.T) {
	tests := []struct {
		n, p, want   int
		neighborhood bool
	}{
		{10, 30, 5, false},
		{100, 30, 30, false},
		{31, 30, 10, false},
		{3, 30, 5, false},
		{21, 30, 7, true},
		{6, 30, 2, true},
		{100, 20, 20, true},
	}
	for _, tt := range tests {
		got := EffectivePerplexity(tt.n, tt.p)
		if tt.neighborhood {
			got = NeighborhoodPerplexity(tt.n, tt.p)
		}
		if got != tt.want {
			t.Errorf("clamp(n=%d, p=%d, neighborhood=%v) = %d, want %d", tt.n, tt.p, tt.neighborhood, got, tt.want)
		}
	}
}

func TestGonumProjector_PCA(t *testing.T) {
	// Points on the line y = 2x: all variance lies on the first component.
	x := mat.NewDense(4, 2, []float64{0, 0, 1, 2, 2, 4, 3, 6})
	p := NewGonumProjector(zap.NewNop())

	first, err := p.PCA(x)
	if err != nil {
		t.Fatal(err)
	}
	if r, c := first.Dims(); r != 4 || c != 2 {
		t.Fatalf("dims = %dx%d", r, c)
	}
	for i := 0; i < 4; i++ {
		if math.Abs(first.At(i, 1)) > 1e-9 {
			t.Errorf("row %d: second component = %v, want 0", i, first.At(i, 1))
		}
	}
	if !(first.At(0, 0) < first.At(1, 0) && first.At(1, 0) < first.At(3, 0)) {
		t.Errorf("first component should increase along the line: %v", mat.Formatted(first))
	}

	second, _ := p.PCA(x)
	if !mat.Equal(first, second) {
		t.Error("PCA must be deterministic")
	}

	if _, err := p.PCA(mat.NewDense(1, 2, []float64{1, 1})); !errors.Is(err, ErrTooFewPoints) {
		t.Errorf("expected ErrTooFewPoints, got %v", err)
	}
}

func TestGonumProjector_PCASingleDimension(t *testing.T) {
	x := mat.NewDense(3, 1, []float64{1, 2, 3})
	out, err := NewGonumProjector(nil).PCA(x)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if out.At(i, 1) != 0 {
			t.Errorf("missing component should be zero, got %v", out.At(i, 1))
		}
	}
}

func TestGonumProjector_PCANonFinite(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := NewGonumProjector(zap.New(core))
	x := mat.NewDense(3, 2, []float64{1, 2, math.NaN(), 4, 5, 6})

	out, err := p.PCA(x)
	if err != nil {
		t.Fatalf("PCA should not fail on non-finite input: %v", err)
	}
	if r, c := out.Dims(); r != 3 || c != 2 {
		t.Fatalf("dims = %dx%d, want 3x2", r, c)
	}
	if !mat.Equal(out, mat.NewDense(3, 2, nil)) {
		t.Errorf("expected zero coordinates, got %v", mat.Formatted(out))
	}
	if logs.Len() != 1 {
		t.Errorf("expected one warning, got %d", logs.Len())
	}
}

func TestEngine_EmbeddingsCached(t *testing.T) {
	e, proj := newCountingEngine(t)
	ctx := context.Background()
	q := models.ReductionQuery{Model: models.ModelTFIDF, Method: models.MethodPCA, NumWords: 50, Perplexity: 30}

	first, err := e.Embeddings(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Embeddings(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if proj.pcaCalls != 1 {
		t.Errorf("pca calls = %d, want 1", proj.pcaCalls)
	}
	if first != second {
		t.Error("second call should return the cached result")
	}
	if first.NumWords != 50 || len(first.Points) != 50 {
		t.Errorf("num words = %d, points = %d", first.NumWords, len(first.Points))
	}
	if first.Points[0].Word != "dog" || first.Points[0].Frequency != 500 {
		t.Errorf("first point = %+v, want the most frequent word", first.Points[0])
	}
	if e.CacheLen() != 1 {
		t.Errorf("cache len = %d", e.CacheLen())
	}

	q.NumWords = 60
	if _, err := e.Embeddings(ctx, q); err != nil {
		t.Fatal(err)
	}
	if proj.pcaCalls != 2 {
		t.Error("a different key must recompute")
	}

	if n := e.ClearCache(); n != 2 {
		t.Errorf("ClearCache = %d, want 2", n)
	}
	if _, err := e.Embeddings(ctx, q); err != nil {
		t.Fatal(err)
	}
	if proj.pcaCalls != 3 {
		t.Error("cleared entries must be recomputed")
	}
}

func TestEngine_TSNEPerplexityClamped(t *testing.T) {
	e, proj := newCountingEngine(t)
	res, err := e.Embeddings(context.Background(), models.ReductionQuery{
		Model: models.ModelCBOW, Method: models.MethodTSNE, NumWords: 10, Perplexity: 30,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(proj.perplexity) != 1 || proj.perplexity[0] != 5 {
		t.Fatalf("t-SNE perplexity = %v, want [5]", proj.perplexity)
	}
	if res.EffectivePerplexity != 5 {
		t.Errorf("effective perplexity = %d", res.EffectivePerplexity)
	}
	if len(res.Points) != 10 {
		t.Errorf("points = %d", len(res.Points))
	}
}

func TestEngine_TSNEFallback(t *testing.T) {
	tests := []struct {
		name    string
		failure func() (*mat.Dense, error)
	}{
		{"error", func() (*mat.Dense, error) { return nil, errors.New("diverged") }},
		{"panic", func() (*mat.Dense, error) { panic("index out of range") }},
		{"nan", func() (*mat.Dense, error) {
			y := mat.NewDense(20, 2, nil)
			y.Set(3, 1, math.NaN())
			return y, nil
		}},
		{"shape", func() (*mat.Dense, error) { return mat.NewDense(3, 2, nil), nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, proj := newCountingEngine(t)
			proj.tsneFailure = tt.failure
			res, err := e.Embeddings(context.Background(), models.ReductionQuery{
				Model: models.ModelTFIDF, Method: models.MethodTSNE, NumWords: 20, Perplexity: 30,
			})
			if err != nil {
				t.Fatal(err)
			}
			if !res.FallbackUsed {
				t.Error("expected FallbackUsed")
			}
			if res.ReductionMethod != models.MethodTSNE {
				t.Errorf("method = %s", res.ReductionMethod)
			}
			if proj.pcaCalls != 1 {
				t.Errorf("pca calls = %d, want 1", proj.pcaCalls)
			}
		})
	}
}

func TestEngine_TSNEReal(t *testing.T) {
	e, _ := newCountingEngine(t)
	res, err := e.Embeddings(context.Background(), models.ReductionQuery{
		Model: models.ModelSkipGram, Method: models.MethodTSNE, NumWords: 20, Perplexity: 5,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range res.Points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			t.Fatalf("non-finite point %+v", p)
		}
	}
}

func TestEngine_Neighborhood(t *testing.T) {
	e, proj := newCountingEngine(t)
	ctx := context.Background()

	res, err := e.Neighborhood(ctx, models.NeighborhoodQuery{
		Word: "Cat", Model: models.ModelTFIDF, Method: models.MethodTSNE, NumNeighbors: 5, Perplexity: 30,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.QueryWord != "cat" || len(res.Points) != 6 {
		t.Fatalf("response = %+v", res)
	}
	if !res.Points[0].IsQuery || res.Points[0].Word != "cat" || res.Points[0].Similarity != 1 {
		t.Errorf("first point = %+v", res.Points[0])
	}
	for _, p := range res.Points[1:] {
		if p.IsQuery {
			t.Errorf("%s should not be the query", p.Word)
		}
	}
	if res.Points[1].Word != "kitten" {
		t.Errorf("nearest neighbour = %s", res.Points[1].Word)
	}
	if len(proj.perplexity) != 1 || proj.perplexity[0] != 2 {
		t.Errorf("neighbourhood perplexity = %v, want [2]", proj.perplexity)
	}
	if e.CacheLen() != 0 {
		t.Error("neighbourhoods must not be cached")
	}

	missing, err := e.Neighborhood(ctx, models.NeighborhoodQuery{
		Word: "zebra", Model: models.ModelTFIDF, Method: models.MethodPCA, NumNeighbors: 5, Perplexity: 30,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(missing.Points) != 0 {
		t.Errorf("unknown word should give no points, got %d", len(missing.Points))
	}
}

func TestEngine_NeighborhoodTooFewVectors(t *testing.T) {
	dir := t.TempDir()
	idx, err := vector.NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Add([]string{"solo"}, [][]float32{{1, 2, 3}}); err != nil {
		t.Fatal(err)
	}
	paths := embedding.Paths{
		TFIDF:   filepath.Join(dir, "tfidf_embeddings.bin"),
		Lexicon: filepath.Join(dir, "lexicon.db"),
	}
	if err := idx.Save(paths.TFIDF); err != nil {
		t.Fatal(err)
	}
	proj := &countingProjector{inner: NewGonumProjector(zap.NewNop())}
	e := NewEngine(embedding.NewStore(paths, embedding.WithLogger(zap.NewNop())), WithProjector(proj), WithLogger(zap.NewNop()))

	for _, method := range []models.Method{models.MethodPCA, models.MethodTSNE} {
		res, err := e.Neighborhood(context.Background(), models.NeighborhoodQuery{
			Word: "solo", Model: models.ModelTFIDF, Method: method, NumNeighbors: 5, Perplexity: 30,
		})
		if err != nil {
			t.Fatalf("%s: %v", method, err)
		}
		if res.QueryWord != "solo" || len(res.Points) != 0 {
			t.Errorf("%s: a single resolvable vector should give no points, got %+v", method, res)
		}
	}
	if proj.pcaCalls != 0 || proj.tsneCalls != 0 {
		t.Errorf("no projection expected, got pca=%d tsne=%d", proj.pcaCalls, proj.tsneCalls)
	}
}

func TestEngine_ReduceTooFewPoints(t *testing.T) {
	e, _ := newCountingEngine(t)
	_, err := e.Reduce(context.Background(), mat.NewDense(1, 3, nil), models.MethodPCA, 30)
	if !errors.Is(err, ErrTooFewPoints) {
		t.Errorf("expected ErrTooFewPoints, got %v", err)
	}
}

func TestEngine_ReduceCanceled(t *testing.T) {
	e, proj := newCountingEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Reduce(ctx, mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 7}), models.MethodPCA, 30)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if proj.pcaCalls != 0 {
		t.Error("canceled reduction must not start")
	}
}

func TestEngine_MissingModel(t *testing.T) {
	store := embedding.NewStore(fixtures.WriteModels(t, t.TempDir(), fixtures.Options{SkipTFIDF: true}))
	e := NewEngine(store)
	_, err := e.Embeddings(context.Background(), models.ReductionQuery{Model: models.ModelTFIDF, Method: models.MethodPCA, NumWords: 50, Perplexity: 30})
	if !errors.Is(err, embedding.ErrModelMissing) {
		t.Errorf("expected ErrModelMissing, got %v", err)
	}
}
