// Package storage defines persistence of the corpus lexicon: word frequencies and build history.
package storage

import (
	"context"

	"github.com/hyperjump/embex/internal/models"
)

// Lexicon stores the corpus word-frequency table shared by all models
// and the history of offline model builds.
type Lexicon interface {
	// Frequency operations
	Frequencies(ctx context.Context) (map[string]int, error)
	Frequency(ctx context.Context, word string) (int, error)
	ReplaceFrequencies(ctx context.Context, freqs map[string]int) error
	UpsertFrequencies(ctx context.Context, freqs map[string]int) error
	CountWords(ctx context.Context) (int64, error)

	// Build history
	RecordBuild(ctx context.Context, build *models.Build) error
	RecentBuilds(ctx context.Context, limit int) ([]models.Build, error)

	Close() error
}
