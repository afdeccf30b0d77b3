// Package builder produces the TF-IDF (LSA) artifact and the word-frequency
// table from a text corpus.
package builder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/james-bowman/nlp"
	"gonum.org/v1/gonum/mat"

	"github.com/hyperjump/embex/internal/corpus"
)

// ErrEmptyCorpus is returned when no term survives tokenization.
var ErrEmptyCorpus = errors.New("corpus has no usable terms")

// Options controls tokenization and the LSA rank.
type Options struct {
	Dimensions    int
	MinWordLength int
	StopWords     []string
}

// Result holds LSA term vectors, ordered by descending corpus frequency.
type Result struct {
	Words       []string
	Vectors     [][]float32
	Frequencies map[string]int
	Dimensions  int
	Documents   int
}

// Fit runs count vectorisation, TF-IDF weighting and truncated SVD over docs.
// The rank is capped by the number of terms and documents.
func Fit(ctx context.Context, docs []corpus.Document, opts Options) (*Result, error) {
	if opts.Dimensions < 1 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", opts.Dimensions)
	}
	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		if t := normalizeText(d.Text, opts.MinWordLength); t != "" {
			texts = append(texts, t)
		}
	}
	if len(texts) == 0 {
		return nil, ErrEmptyCorpus
	}

	vectoriser := nlp.NewCountVectoriser(opts.StopWords...)
	counts, err := vectoriser.FitTransform(texts...)
	if err != nil {
		return nil, fmt.Errorf("count vectoriser: %w", err)
	}
	terms, ndocs := counts.Dims()
	if terms == 0 || len(vectoriser.Vocabulary) == 0 {
		return nil, ErrEmptyCorpus
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	weighted, err := nlp.NewTfidfTransformer().FitTransform(counts)
	if err != nil {
		return nil, fmt.Errorf("tf-idf: %w", err)
	}
	k := min(opts.Dimensions, terms, ndocs)
	svd := nlp.NewTruncatedSVD(k)
	if _, err := svd.FitTransform(weighted); err != nil {
		return nil, fmt.Errorf("truncated svd: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ones := make([]float64, ndocs)
	for i := range ones {
		ones[i] = 1
	}
	var totals mat.VecDense
	totals.MulVec(counts, mat.NewVecDense(ndocs, ones))

	words := make([]string, len(vectoriser.Vocabulary))
	freqs := make(map[string]int, len(words))
	for w, i := range vectoriser.Vocabulary {
		words[i] = w
		freqs[w] = int(totals.AtVec(i))
	}
	vectors, err := termVectors(svd.Components, terms, k)
	if err != nil {
		return nil, err
	}

	order := make([]int, len(words))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		wa, wb := words[order[a]], words[order[b]]
		if freqs[wa] != freqs[wb] {
			return freqs[wa] > freqs[wb]
		}
		return wa < wb
	})
	res := &Result{
		Words:       make([]string, len(order)),
		Vectors:     make([][]float32, len(order)),
		Frequencies: freqs,
		Dimensions:  k,
		Documents:   ndocs,
	}
	for i, j := range order {
		res.Words[i] = words[j]
		res.Vectors[i] = vectors[j]
	}
	return res, nil
}

// termVectors returns the rows of the SVD term matrix U, which is terms×k.
func termVectors(c mat.Matrix, terms, k int) ([][]float32, error) {
	if r, cols := c.Dims(); r != terms || cols < k {
		return nil, fmt.Errorf("svd components are %dx%d, want %dx%d", r, cols, terms, k)
	}
	out := make([][]float32, terms)
	for i := range out {
		v := make([]float32, k)
		for j := 0; j < k; j++ {
			v[j] = float32(c.At(i, j))
		}
		out[i] = v
	}
	return out, nil
}

// normalizeText lowercases text and keeps the letter runs of at least minLen runes.
func normalizeText(text string, minLen int) string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !unicode.IsLetter(r) })
	kept := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minLen {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}
