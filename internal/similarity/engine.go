// Package similarity answers nearest-neighbour queries against one or all models.
package similarity

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/embex/internal/embedding"
	"github.com/hyperjump/embex/internal/keyword"
	"github.com/hyperjump/embex/internal/models"
	"github.com/hyperjump/embex/pkg/utils"
)

// ScorePlaces is the number of decimals kept in reported similarities.
const ScorePlaces = 4

// ModelSource provides loaded models and the corpus frequency table.
type ModelSource interface {
	Model(t models.ModelType) (embedding.Model, error)
	Frequencies(ctx context.Context) map[string]int
}

// Engine runs similarity queries.
type Engine struct {
	source      ModelSource
	logger      *zap.Logger
	suggestions int
	minFreq     int

	mu       sync.Mutex
	checkers map[models.ModelType]*checker
}

type checker struct {
	model embedding.Model
	spell *keyword.SpellChecker
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithSuggestions sets how many spelling suggestions accompany an unknown word.
// Zero disables suggestions.
func WithSuggestions(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.suggestions = n
		}
	}
}

// WithSuggestionMinFrequency drops suggestions whose corpus frequency is below f.
func WithSuggestionMinFrequency(f int) Option {
	return func(e *Engine) { e.minFreq = f }
}

// NewEngine creates an engine over source.
func NewEngine(source ModelSource, opts ...Option) *Engine {
	e := &Engine{
		source:      source,
		suggestions: 3,
		checkers:    make(map[models.ModelType]*checker),
	}
	for _, o := range opts {
		o(e)
	}
	e.logger = utils.OrNop(e.logger)
	return e
}

// ModelNotLoadedMessage is reported by Compare for a model whose artifact could
// not be loaded.
const ModelNotLoadedMessage = "Model not loaded"

// NotFoundMessage is the message reported for a word outside t's vocabulary.
func NotFoundMessage(word string, t models.ModelType) string {
	if t == models.ModelTFIDF {
		return fmt.Sprintf("Word '%s' not found in TF-IDF vocabulary", word)
	}
	return fmt.Sprintf("Word '%s' not found in %s vocabulary", word, t)
}

// Similar returns the q.TopN nearest neighbours of q.Word. A word outside the
// vocabulary is reported in the result, not as an error. The error is non-nil
// only when the model cannot be loaded.
func (e *Engine) Similar(ctx context.Context, q models.SimilarityQuery) (*models.SimilarityResult, error) {
	word := utils.NormalizeWord(q.Word)
	m, err := e.source.Model(q.Model)
	if err != nil {
		return nil, err
	}

	result := &models.SimilarityResult{
		QueryWord:    word,
		ModelType:    q.Model,
		SimilarWords: []models.SimilarWord{},
	}
	matches, ok, err := m.Nearest(word, q.TopN)
	if err != nil {
		return nil, err
	}
	if !ok {
		result.Message = NotFoundMessage(word, q.Model)
		result.Suggestions = e.suggest(ctx, q.Model, m, word)
		return result, nil
	}

	result.InVocabulary = true
	for _, mt := range matches {
		result.SimilarWords = append(result.SimilarWords, models.SimilarWord{
			Word:       mt.Word,
			Similarity: utils.Round(mt.Score, ScorePlaces),
		})
	}
	return result, nil
}

// Compare runs Similar on every model concurrently. The result always holds all
// three selectors; a model that cannot be loaded is reported as not in vocabulary
// with ModelNotLoadedMessage, and the load error goes to the log.
func (e *Engine) Compare(ctx context.Context, word string, topN int) *models.CompareResult {
	types := models.AllModelTypes()
	results := make([]*models.SimilarityResult, len(types))

	var wg sync.WaitGroup
	for i, t := range types {
		wg.Add(1)
		go func(i int, t models.ModelType) {
			defer wg.Done()
			r, err := e.Similar(ctx, models.SimilarityQuery{Word: word, Model: t, TopN: topN})
			if err != nil {
				e.logger.Warn("Compare: model unavailable", zap.String("model", string(t)), zap.Error(err))
				r = &models.SimilarityResult{
					QueryWord:    utils.NormalizeWord(word),
					ModelType:    t,
					SimilarWords: []models.SimilarWord{},
					Message:      ModelNotLoadedMessage,
				}
			}
			results[i] = r
		}(i, t)
	}
	wg.Wait()

	out := &models.CompareResult{
		QueryWord: utils.NormalizeWord(word),
		Results:   make(map[models.ModelType]*models.SimilarityResult, len(types)),
	}
	for i, t := range types {
		out.Results[t] = results[i]
	}
	return out
}

// Batch runs Similar for each word in order.
func (e *Engine) Batch(ctx context.Context, q models.BatchQuery) (*models.BatchResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	out := &models.BatchResult{ModelType: q.Model, Results: make([]*models.SimilarityResult, 0, len(q.Words))}
	for _, w := range q.Words {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := e.Similar(ctx, models.SimilarityQuery{Word: w, Model: q.Model, TopN: q.TopN})
		if err != nil {
			return nil, err
		}
		out.Results = append(out.Results, r)
	}
	return out, nil
}

// suggest returns close vocabulary spellings of word. The checker is rebuilt
// whenever the store hands out a different model instance.
func (e *Engine) suggest(ctx context.Context, t models.ModelType, m embedding.Model, word string) []string {
	if e.suggestions == 0 || word == "" {
		return nil
	}
	e.mu.Lock()
	c, ok := e.checkers[t]
	if !ok || c.model != m {
		dict := keyword.NewVocabularyDictionary(m.Words(), e.source.Frequencies(ctx))
		c = &checker{model: m, spell: keyword.NewSpellChecker(dict,
			keyword.WithMaxSuggestions(e.suggestions),
			keyword.WithMinFrequency(e.minFreq))}
		e.checkers[t] = c
	}
	e.mu.Unlock()
	return c.spell.SuggestTerms(word)
}
