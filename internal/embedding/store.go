package embedding

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/embex/internal/models"
	"github.com/hyperjump/embex/internal/storage"
	"github.com/hyperjump/embex/pkg/utils"
)

// Paths locates the model artifacts and the lexicon database.
type Paths struct {
	TFIDF    string
	CBOW     string
	SkipGram string
	Lexicon  string
}

// Path returns the artifact path of t.
func (p Paths) Path(t models.ModelType) string {
	switch t {
	case models.ModelTFIDF:
		return p.TFIDF
	case models.ModelCBOW:
		return p.CBOW
	case models.ModelSkipGram:
		return p.SkipGram
	}
	return ""
}

// All returns every artifact path including the lexicon.
func (p Paths) All() []string {
	return []string{p.TFIDF, p.CBOW, p.SkipGram, p.Lexicon}
}

type slot struct {
	mu    sync.Mutex
	model Model
}

// Store loads each model on first access and keeps it until Reset.
// A failed load is not remembered: the next access tries again.
type Store struct {
	paths  Paths
	logger *zap.Logger
	slots  map[models.ModelType]*slot

	freqMu  sync.Mutex
	freqs   map[string]int
	lexicon storage.Lexicon
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithLexicon reads frequencies from lex instead of opening Paths.Lexicon.
func WithLexicon(lex storage.Lexicon) StoreOption {
	return func(s *Store) { s.lexicon = lex }
}

// NewStore creates a store. Nothing is read from disk until a model is requested.
func NewStore(paths Paths, opts ...StoreOption) *Store {
	s := &Store{
		paths: paths,
		slots: make(map[models.ModelType]*slot, 3),
	}
	for _, t := range models.AllModelTypes() {
		s.slots[t] = &slot{}
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = utils.OrNop(s.logger)
	return s
}

// Paths returns the artifact locations.
func (s *Store) Paths() Paths { return s.paths }

// Model returns the loaded model t, loading it on first call.
func (s *Store) Model(t models.ModelType) (Model, error) {
	sl, ok := s.slots[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownModel, t)
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.model != nil {
		return sl.model, nil
	}

	path := s.paths.Path(t)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("Model artifact missing", zap.String("model", string(t)), zap.String("path", path))
		return nil, fmt.Errorf("%w: %s", ErrModelMissing, path)
	}

	s.logger.Info("Loading model", zap.String("model", string(t)), zap.String("path", path))
	var (
		m   Model
		err error
	)
	if t.IsNeural() {
		m, err = loadWord2Vec(t, path)
	} else {
		m, err = loadTFIDF(path)
	}
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelMissing, path)
		}
		return nil, fmt.Errorf("load %s model: %w", t, err)
	}
	s.logger.Info("Model loaded",
		zap.String("model", string(t)),
		zap.Int("vocab_size", m.Size()),
		zap.Int("dimensions", m.Dimensions()),
	)
	sl.model = m
	return m, nil
}

// Loaded reports whether t is currently in memory, without loading it.
func (s *Store) Loaded(t models.ModelType) bool {
	sl, ok := s.slots[t]
	if !ok {
		return false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.model != nil
}

// Info returns metadata for t. A model that cannot be loaded is reported with zero
// sizes and IsLoaded false.
func (s *Store) Info(t models.ModelType) models.ModelInfo {
	info := models.ModelInfo{ModelType: t, DisplayName: t.DisplayName()}
	m, err := s.Model(t)
	if err != nil {
		if !errors.Is(err, ErrModelMissing) {
			s.logger.Error("Model unavailable", zap.String("model", string(t)), zap.Error(err))
		}
		return info
	}
	info.VocabSize = m.Size()
	info.VectorDimensions = m.Dimensions()
	info.IsLoaded = true
	return info
}

// Infos returns Info for every model in canonical order.
func (s *Store) Infos() []models.ModelInfo {
	out := make([]models.ModelInfo, 0, 3)
	for _, t := range models.AllModelTypes() {
		out = append(out, s.Info(t))
	}
	return out
}

// Contains reports whether word (already normalized) is in t's vocabulary.
func (s *Store) Contains(t models.ModelType, word string) (bool, error) {
	m, err := s.Model(t)
	if err != nil {
		return false, err
	}
	_, ok := m.Lookup(word)
	return ok, nil
}

// TopWords returns up to n words of t. With a non-empty frequency table words are
// ranked by descending corpus frequency (ties keep vocabulary order); otherwise the
// first n words in vocabulary order are returned.
func (s *Store) TopWords(ctx context.Context, t models.ModelType, n int) ([]string, error) {
	m, err := s.Model(t)
	if err != nil {
		return nil, err
	}
	words := m.Words()
	freqs := s.Frequencies(ctx)
	if len(freqs) > 0 {
		sort.SliceStable(words, func(i, j int) bool { return freqs[words[i]] > freqs[words[j]] })
	}
	if n >= 0 && len(words) > n {
		words = words[:n]
	}
	return words, nil
}

// Frequencies returns the corpus frequency table, reading it on first use. A missing
// lexicon yields an empty table.
func (s *Store) Frequencies(ctx context.Context) map[string]int {
	s.freqMu.Lock()
	defer s.freqMu.Unlock()
	if s.freqs != nil {
		return s.freqs
	}

	lex := s.lexicon
	if lex == nil {
		if _, err := os.Stat(s.paths.Lexicon); err != nil {
			s.logger.Warn("Lexicon missing, word frequencies default to 0", zap.String("path", s.paths.Lexicon))
			s.freqs = map[string]int{}
			return s.freqs
		}
		opened, err := storage.NewSQLiteStorage(s.paths.Lexicon)
		if err != nil {
			s.logger.Error("Failed to open lexicon", zap.String("path", s.paths.Lexicon), zap.Error(err))
			return map[string]int{}
		}
		defer opened.Close()
		lex = opened
	}

	freqs, err := lex.Frequencies(ctx)
	if err != nil {
		s.logger.Error("Failed to read word frequencies", zap.Error(err))
		return map[string]int{}
	}
	s.logger.Info("Word frequencies loaded", zap.Int("words", len(freqs)))
	s.freqs = freqs
	return s.freqs
}

// Frequency returns the corpus count of word, 0 when unknown.
func (s *Store) Frequency(ctx context.Context, word string) int {
	return s.Frequencies(ctx)[word]
}

// Reset drops the loaded model t so the next access reads the artifact again.
func (s *Store) Reset(t models.ModelType) {
	if sl, ok := s.slots[t]; ok {
		sl.mu.Lock()
		sl.model = nil
		sl.mu.Unlock()
		s.logger.Info("Model reset", zap.String("model", string(t)))
	}
}

// ResetFrequencies drops the cached frequency table.
func (s *Store) ResetFrequencies() {
	s.freqMu.Lock()
	s.freqs = nil
	s.freqMu.Unlock()
}

// ModelForPath maps an artifact path back to its model. ok is false for the lexicon
// and unrelated files.
func (s *Store) ModelForPath(path string) (models.ModelType, bool) {
	for _, t := range models.AllModelTypes() {
		if s.paths.Path(t) == path {
			return t, true
		}
	}
	return "", false
}
