// Package service composes the model store and the similarity and reduction
// engines into the operations served by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/hyperjump/embex/internal/embedding"
	"github.com/hyperjump/embex/internal/keyword"
	"github.com/hyperjump/embex/internal/models"
	"github.com/hyperjump/embex/internal/reduction"
	"github.com/hyperjump/embex/internal/similarity"
	"github.com/hyperjump/embex/internal/storage"
	"github.com/hyperjump/embex/pkg/utils"
)

// ErrWordNotFound is returned by Neighborhood when nothing could be projected.
var ErrWordNotFound = errors.New("word not found")

// DefaultSampleSize is the vocabulary sample size when none is requested.
const DefaultSampleSize = 50

// recentBuilds is the number of builds reported by Status.
const recentBuilds = 5

// Service is the facade used by the HTTP handlers.
type Service struct {
	store      *embedding.Store
	similarity *similarity.Engine
	reduction  *reduction.Engine
	logger     *zap.Logger
	started    time.Time

	vocabMu sync.Mutex
	vocab   map[models.ModelType]*vocabIndex
}

type vocabIndex struct {
	model embedding.Model
	index *keyword.VocabularyIndex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service.
func New(store *embedding.Store, sim *similarity.Engine, red *reduction.Engine, opts ...Option) *Service {
	s := &Service{
		store:      store,
		similarity: sim,
		reduction:  red,
		started:    time.Now(),
		vocab:      make(map[models.ModelType]*vocabIndex),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = utils.OrNop(s.logger)
	return s
}

// Models returns metadata for every model.
func (s *Service) Models() []models.ModelInfo {
	return s.store.Infos()
}

// Model returns metadata for one model.
func (s *Service) Model(t models.ModelType) models.ModelInfo {
	return s.store.Info(t)
}

// Vocabulary returns up to n of t's words, most frequent first.
func (s *Service) Vocabulary(ctx context.Context, t models.ModelType, n int) (*models.VocabularySample, error) {
	m, err := s.store.Model(t)
	if err != nil {
		return nil, err
	}
	words, err := s.store.TopWords(ctx, t, n)
	if err != nil {
		return nil, err
	}
	return &models.VocabularySample{ModelType: t, VocabSize: m.Size(), SampleWords: words}, nil
}

// CheckWord reports whether word is in t's vocabulary.
func (s *Service) CheckWord(t models.ModelType, word string) (*models.WordCheck, error) {
	w := utils.NormalizeWord(word)
	ok, err := s.store.Contains(t, w)
	if err != nil {
		return nil, err
	}
	return &models.WordCheck{Word: w, ModelType: t, InVocabulary: ok}, nil
}

// SearchVocabulary finds words of t by prefix, or by one-edit fuzzy match when
// no word has the prefix.
func (s *Service) SearchVocabulary(t models.ModelType, q string, limit int) (*models.VocabularySearch, error) {
	q = utils.NormalizeWord(q)
	idx, err := s.vocabularyIndex(t)
	if err != nil {
		return nil, err
	}
	words, err := idx.Search(q, limit)
	if err != nil {
		return nil, err
	}
	return &models.VocabularySearch{ModelType: t, Query: q, Words: words}, nil
}

// vocabularyIndex returns the Bleve index of t, rebuilding it when the store has
// loaded a new model instance.
func (s *Service) vocabularyIndex(t models.ModelType) (*keyword.VocabularyIndex, error) {
	m, err := s.store.Model(t)
	if err != nil {
		return nil, err
	}
	s.vocabMu.Lock()
	defer s.vocabMu.Unlock()
	if v, ok := s.vocab[t]; ok && v.model == m {
		return v.index, nil
	}
	start := time.Now()
	idx, err := keyword.NewVocabularyIndex(m.Words())
	if err != nil {
		return nil, err
	}
	if old, ok := s.vocab[t]; ok {
		_ = old.index.Close()
	}
	s.vocab[t] = &vocabIndex{model: m, index: idx}
	docs, err := idx.DocCount()
	if err != nil {
		s.logger.Warn("Failed to count indexed words", zap.String("model", string(t)), zap.Error(err))
	}
	s.logger.Info("Vocabulary index built",
		zap.String("model", string(t)),
		zap.Uint64("words", docs),
		zap.Duration("took", time.Since(start)),
	)
	return idx, nil
}

// Similar returns the nearest neighbours of one word.
func (s *Service) Similar(ctx context.Context, q models.SimilarityQuery) (*models.SimilarityResult, error) {
	return s.similarity.Similar(ctx, q)
}

// Compare runs Similar against every model.
func (s *Service) Compare(ctx context.Context, word string, topN int) *models.CompareResult {
	return s.similarity.Compare(ctx, word, topN)
}

// Batch runs Similar for up to models.MaxBatchWords words.
func (s *Service) Batch(ctx context.Context, q models.BatchQuery) (*models.BatchResult, error) {
	return s.similarity.Batch(ctx, q)
}

// Embeddings returns the cached or freshly computed full visualization set.
func (s *Service) Embeddings(ctx context.Context, q models.ReductionQuery) (*models.EmbeddingsResponse, error) {
	return s.reduction.Embeddings(ctx, q)
}

// Neighborhood projects a word with its neighbours. ErrWordNotFound is returned
// when the word is unknown or fewer than two points could be projected.
func (s *Service) Neighborhood(ctx context.Context, q models.NeighborhoodQuery) (*models.NeighborhoodResponse, error) {
	resp, err := s.reduction.Neighborhood(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(resp.Points) == 0 {
		return nil, fmt.Errorf("%w: Word '%s' not found in vocabulary", ErrWordNotFound, resp.QueryWord)
	}
	return resp, nil
}

// ClearCache empties the reduction cache.
func (s *Service) ClearCache() int {
	return s.reduction.ClearCache()
}

// ReloadArtifact drops whatever was loaded from path and clears the reduction cache.
// It reports whether path belonged to a model or the lexicon.
func (s *Service) ReloadArtifact(path string) bool {
	if t, ok := s.store.ModelForPath(path); ok {
		s.store.Reset(t)
	} else if path == s.store.Paths().Lexicon {
		s.store.ResetFrequencies()
	} else {
		return false
	}
	s.reduction.ClearCache()
	return true
}

// Status reports models, cache size, process resources and recent builds.
// ResidentModels is sampled before the metadata query, which loads every
// available model.
func (s *Service) Status(ctx context.Context) *models.Status {
	resident := []models.ModelType{}
	for _, t := range models.AllModelTypes() {
		if s.store.Loaded(t) {
			resident = append(resident, t)
		}
	}
	st := &models.Status{
		ResidentModels: resident,
		Models:         s.store.Infos(),
		CacheEntries:   s.reduction.CacheLen(),
		UptimeSeconds:  int64(time.Since(s.started).Seconds()),
	}

	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfoWithContext(ctx); err == nil {
			st.MemoryRSSBytes = mem.RSS
		}
		if cpu, err := proc.CPUPercentWithContext(ctx); err == nil {
			st.CPUPercent = cpu
		}
	} else {
		s.logger.Debug("Process stats unavailable", zap.Error(err))
	}

	paths := s.store.Paths()
	if n, err := storage.DiskUsageBytes(paths.All()...); err == nil {
		st.DiskUsageBytes = n
	} else {
		s.logger.Warn("Failed to measure artifacts", zap.Error(err))
	}

	if _, err := os.Stat(paths.Lexicon); err == nil {
		lex, err := storage.NewSQLiteStorage(paths.Lexicon)
		if err != nil {
			s.logger.Warn("Failed to open lexicon", zap.Error(err))
			return st
		}
		defer lex.Close()
		builds, err := lex.RecentBuilds(ctx, recentBuilds)
		if err != nil {
			s.logger.Warn("Failed to read builds", zap.Error(err))
			return st
		}
		st.LastBuilds = builds
	}
	return st
}

// Close releases the vocabulary indexes.
func (s *Service) Close() error {
	s.vocabMu.Lock()
	defer s.vocabMu.Unlock()
	for t, v := range s.vocab {
		_ = v.index.Close()
		delete(s.vocab, t)
	}
	return nil
}
