// Package reduction projects embedding vectors to two dimensions with PCA or t-SNE
// and memoizes full-vocabulary projections.
package reduction

import (
	"errors"
	"fmt"
	"math"

	"github.com/danaugrs/go-tsne/tsne"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/hyperjump/embex/pkg/utils"
)

// Projector maps an n×d matrix of row vectors to an n×2 matrix.
type Projector interface {
	PCA(x *mat.Dense) (*mat.Dense, error)
	TSNE(x *mat.Dense, perplexity int) (*mat.Dense, error)
}

// Default t-SNE settings.
const (
	DefaultIterations   = 1000
	DefaultLearningRate = 200.0
	DefaultSeed         = 42
)

// GonumProjector computes PCA with gonum's stat.PC and t-SNE with go-tsne.
type GonumProjector struct {
	Iterations   int
	LearningRate float64
	// Seed is recorded in the logs only: go-tsne draws its initial layout from the
	// global math/rand source.
	Seed   int64
	Logger *zap.Logger
}

// NewGonumProjector returns a projector with the default t-SNE settings.
func NewGonumProjector(logger *zap.Logger) *GonumProjector {
	return &GonumProjector{
		Iterations:   DefaultIterations,
		LearningRate: DefaultLearningRate,
		Seed:         DefaultSeed,
		Logger:       utils.OrNop(logger),
	}
}

// PCA projects x onto its first two principal components. Each component is
// oriented so that its largest loading is positive, which makes repeated runs
// identical. Data with a single component gets a zero second coordinate.
// Non-finite input or a failed decomposition is logged and every point is
// placed at the origin.
func (p *GonumProjector) PCA(x *mat.Dense) (*mat.Dense, error) {
	n, d := x.Dims()
	if n < 2 {
		return nil, fmt.Errorf("%w: pca needs 2 points, got %d", ErrTooFewPoints, n)
	}
	logger := utils.OrNop(p.Logger)

	for i := 0; i < n; i++ {
		if !utils.AllFinite(x.RawRowView(i)[:d]) {
			logger.Warn("PCA input has non-finite values; returning zero coordinates", zap.Int("row", i))
			return mat.NewDense(n, 2, nil), nil
		}
	}
	var pc stat.PC
	if ok := pc.PrincipalComponents(x, nil); !ok {
		logger.Warn("PCA decomposition failed; returning zero coordinates", zap.Int("points", n))
		return mat.NewDense(n, 2, nil), nil
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	_, k := vecs.Dims()
	k = min(k, 2)

	vars := pc.VarsTo(nil)
	if total := floats.Sum(vars); total > 0 {
		ratio := make([]float64, k)
		for i := range ratio {
			ratio[i] = vars[i] / total
		}
		logger.Info("PCA explained variance ratio", zap.Float64s("ratio", ratio))
	}

	centered := center(x)
	out := mat.NewDense(n, 2, nil)
	for c := 0; c < k; c++ {
		comp := mat.Col(nil, c, &vecs)
		orient(comp)
		for i := 0; i < n; i++ {
			out.Set(i, c, floats.Dot(centered.RawRowView(i), comp))
		}
	}
	return out, nil
}

// TSNE runs go-tsne from a random initial layout.
func (p *GonumProjector) TSNE(x *mat.Dense, perplexity int) (*mat.Dense, error) {
	utils.OrNop(p.Logger).Debug("Running t-SNE",
		zap.Int("perplexity", perplexity),
		zap.Int("iterations", p.Iterations),
		zap.Int64("seed", p.Seed),
	)
	t := tsne.NewTSNE(2, float64(perplexity), p.LearningRate, p.Iterations, false)
	y := t.EmbedData(x, nil)
	if y == nil {
		return nil, errors.New("t-SNE produced no embedding")
	}
	return mat.DenseCopyOf(y), nil
}

func center(x *mat.Dense) *mat.Dense {
	n, d := x.Dims()
	out := mat.DenseCopyOf(x)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, x)
		mean := stat.Mean(col, nil)
		for i := 0; i < n; i++ {
			out.Set(i, j, col[i]-mean)
		}
	}
	return out
}

// orient flips v in place so that its entry of largest magnitude is positive.
func orient(v []float64) {
	best := 0
	for i := range v {
		if math.Abs(v[i]) > math.Abs(v[best]) {
			best = i
		}
	}
	if len(v) > 0 && v[best] < 0 {
		floats.Scale(-1, v)
	}
}
