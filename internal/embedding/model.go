// Package embedding loads the three embedding models from disk on first use and keeps them
// for the life of the process.
package embedding

import (
	"errors"

	"github.com/hyperjump/embex/internal/models"
	"github.com/hyperjump/embex/internal/vector"
)

// ErrModelMissing is returned when a model's artifact file does not exist.
var ErrModelMissing = errors.New("model artifact not found")

// Model is a loaded embedding table that can rank neighbours of its own words.
type Model interface {
	vector.Table
	Type() models.ModelType
	// Nearest returns up to n neighbours of word ordered by descending cosine
	// similarity, never including word itself. ok is false for an unknown word.
	Nearest(word string, n int) (matches []vector.Match, ok bool, err error)
}

// TFIDFModel is the LSA projection of the TF-IDF matrix: one dense row per term.
type TFIDFModel struct {
	*vector.MemoryIndex
}

// Type implements Model.
func (m *TFIDFModel) Type() models.ModelType { return models.ModelTFIDF }

// Nearest implements Model with a full cosine ranking over the term table.
func (m *TFIDFModel) Nearest(word string, n int) ([]vector.Match, bool, error) {
	matches, ok := m.MemoryIndex.Nearest(word, n)
	return matches, ok, nil
}

func loadTFIDF(path string) (*TFIDFModel, error) {
	idx, err := vector.LoadMemoryIndex(path)
	if err != nil {
		return nil, err
	}
	return &TFIDFModel{MemoryIndex: idx}, nil
}
