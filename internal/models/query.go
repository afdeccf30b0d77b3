package models

import (
	"errors"
	"fmt"

	"github.com/hyperjump/embex/pkg/utils"
)

var (
	// ErrInvalidParam marks a request parameter outside its allowed range.
	ErrInvalidParam = errors.New("invalid parameter")
	// ErrBatchTooLarge is returned when a batch exceeds MaxBatchWords.
	ErrBatchTooLarge = errors.New("batch too large")
)

// MaxBatchWords is the largest accepted similarity batch.
const MaxBatchWords = 20

// CheckRange returns an ErrInvalidParam error when v is outside [lo, hi].
func CheckRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s must be between %d and %d, got %d", ErrInvalidParam, name, lo, hi, v)
	}
	return nil
}

// SimilarityQuery asks for the nearest neighbours of one word.
type SimilarityQuery struct {
	Word  string
	Model ModelType
	TopN  int
}

// BatchQuery runs a SimilarityQuery per word.
type BatchQuery struct {
	Words []string
	Model ModelType
	TopN  int
}

// Validate enforces the batch size limit.
func (q *BatchQuery) Validate() error {
	if len(q.Words) > MaxBatchWords {
		return fmt.Errorf("%w: maximum %d words per batch, got %d", ErrBatchTooLarge, MaxBatchWords, len(q.Words))
	}
	return nil
}

// ReductionQuery selects a frequency ranked slice of a model's vocabulary for 2D projection.
type ReductionQuery struct {
	Model      ModelType
	Method     Method
	NumWords   int
	Perplexity int
}

// CacheKey is the memoization key of the full visualization path.
func (q ReductionQuery) CacheKey() string {
	return fmt.Sprintf("%s_%s_%d_%d", q.Model, q.Method, q.NumWords, q.Perplexity)
}

// NeighborhoodQuery projects a word and its nearest neighbours.
type NeighborhoodQuery struct {
	Word         string
	Model        ModelType
	Method       Method
	NumNeighbors int
	Perplexity   int
}

// NormalizedWord returns the lookup form of the query word.
func (q NeighborhoodQuery) NormalizedWord() string {
	return utils.NormalizeWord(q.Word)
}
