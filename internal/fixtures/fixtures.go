// Package fixtures writes small model artifacts and lexicons for tests.
package fixtures

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/hyperjump/embex/internal/embedding"
	"github.com/hyperjump/embex/internal/storage"
	"github.com/hyperjump/embex/internal/vector"
)

// Dimensions is the vector width of every fixture model.
const Dimensions = 10

// Named words carry hand-picked vectors so neighbour order is known. Generated
// fillers only use the last three dimensions.
var Named = map[string][]float32{
	"cat":    {1, 0.9, 0, 0, 0.1, 0, 0, 0, 0, 0},
	"kitten": {0.95, 1, 0, 0, 0.1, 0, 0, 0, 0, 0},
	"dog":    {0.9, 0.6, 0.3, 0, 0.1, 0, 0, 0, 0, 0},
	"puppy":  {0.8, 0.5, 0.4, 0, 0.1, 0, 0, 0, 0, 0},
	"car":    {0, 0, 0, 1, 0.9, 0, 0, 0, 0, 0},
	"truck":  {0, 0, 0, 0.9, 1, 0.1, 0, 0, 0, 0},
	"apple":  {0, 0, 0, 0, 0, 1, 0.8, 0.1, 0, 0},
	"banana": {0, 0, 0, 0, 0, 0.8, 1, 0.2, 0, 0},
}

// NamedOrder is the vocabulary order of the named words.
var NamedOrder = []string{"cat", "kitten", "dog", "puppy", "car", "truck", "apple", "banana"}

// Fillers is the number of generated words appended after the named ones.
const Fillers = 60

// Vocabulary returns the fixture words in row order and their vectors.
func Vocabulary() ([]string, [][]float32) {
	words := append([]string(nil), NamedOrder...)
	vecs := make([][]float32, 0, len(NamedOrder)+Fillers)
	for _, w := range NamedOrder {
		vecs = append(vecs, Named[w])
	}
	for i := 0; i < Fillers; i++ {
		words = append(words, fmt.Sprintf("term%02d", i))
		v := make([]float32, Dimensions)
		for d := 7; d < Dimensions; d++ {
			v[d] = float32(math.Sin(float64((i+1)*(d+3)))*0.5 + 0.6)
		}
		vecs = append(vecs, v)
	}
	return words, vecs
}

// Frequencies ranks dog above cat and fillers below the named words.
func Frequencies() map[string]int {
	freqs := map[string]int{
		"dog": 500, "cat": 400, "car": 300, "apple": 250,
		"truck": 200, "banana": 150, "puppy": 120, "kitten": 110,
	}
	for i := 0; i < Fillers; i++ {
		freqs[fmt.Sprintf("term%02d", i)] = 100 - i
	}
	return freqs
}

// Options selects which artifacts WriteModels creates.
type Options struct {
	SkipTFIDF    bool
	SkipCBOW     bool
	SkipSkipGram bool
	SkipLexicon  bool
}

// WriteModels writes the fixture artifacts under dir and returns their paths.
// Skipped artifacts still get a path that does not exist.
func WriteModels(t testing.TB, dir string, opts Options) embedding.Paths {
	t.Helper()
	paths := embedding.Paths{
		TFIDF:    filepath.Join(dir, "tfidf_embeddings.bin"),
		CBOW:     filepath.Join(dir, "word2vec_cbow.bin"),
		SkipGram: filepath.Join(dir, "word2vec_skipgram.bin"),
		Lexicon:  filepath.Join(dir, "lexicon.db"),
	}
	words, vecs := Vocabulary()

	if !opts.SkipTFIDF {
		idx, err := vector.NewMemoryIndex(Dimensions)
		if err != nil {
			t.Fatal(err)
		}
		if err := idx.Add(words, vecs); err != nil {
			t.Fatal(err)
		}
		if err := idx.Save(paths.TFIDF); err != nil {
			t.Fatal(err)
		}
	}
	if !opts.SkipCBOW {
		if err := embedding.WriteWord2VecFile(paths.CBOW, words, vecs); err != nil {
			t.Fatal(err)
		}
	}
	if !opts.SkipSkipGram {
		if err := embedding.WriteWord2VecFile(paths.SkipGram, words, vecs); err != nil {
			t.Fatal(err)
		}
	}
	if !opts.SkipLexicon {
		lex, err := storage.NewSQLiteStorage(paths.Lexicon)
		if err != nil {
			t.Fatal(err)
		}
		defer lex.Close()
		if err := lex.ReplaceFrequencies(context.Background(), Frequencies()); err != nil {
			t.Fatal(err)
		}
	}
	return paths
}
