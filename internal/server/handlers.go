package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/embex/internal/models"
	"github.com/hyperjump/embex/internal/reduction"
	"github.com/hyperjump/embex/pkg/utils"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	prefix := s.config.Server.APIPrefix
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":     "Embedding Explorer API",
		"version":  Version,
		"docs_url": "/docs",
		"endpoints": map[string]string{
			"models":     prefix + "/models",
			"similarity": prefix + "/similarity",
			"embeddings": prefix + "/embeddings",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.svc.Status(r.Context()))
}

// pathModel parses the {model_type} URL parameter. Unknown selectors are reported
// as 404 on the /models routes.
func (s *Server) pathModel(w http.ResponseWriter, r *http.Request, notFoundStatus int) (models.ModelType, bool) {
	t, err := models.ParseModelType(chi.URLParam(r, "model_type"))
	if err != nil {
		s.respondError(w, notFoundStatus, err.Error())
		return "", false
	}
	return t, true
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.svc.Models())
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	t, ok := s.pathModel(w, r, http.StatusNotFound)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, s.svc.Model(t))
}

func (s *Server) handleVocabulary(w http.ResponseWriter, r *http.Request) {
	t, ok := s.pathModel(w, r, http.StatusNotFound)
	if !ok {
		return
	}
	n, err := intParam(r, "sample_size", 50, 1, 1000)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sample, err := s.svc.Vocabulary(r.Context(), t, n)
	if err != nil {
		s.fail(w, "vocabulary sample failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, sample)
}

func (s *Server) handleVocabularySearch(w http.ResponseWriter, r *http.Request) {
	t, ok := s.pathModel(w, r, http.StatusNotFound)
	if !ok {
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, err := intParam(r, "limit", 20, 1, 200)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.svc.SearchVocabulary(t, q, limit)
	if err != nil {
		s.fail(w, "vocabulary search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleCheckWord(w http.ResponseWriter, r *http.Request) {
	t, ok := s.pathModel(w, r, http.StatusNotFound)
	if !ok {
		return
	}
	word := r.URL.Query().Get("word")
	if word == "" {
		s.respondError(w, http.StatusBadRequest, "word is required")
		return
	}
	res, err := s.svc.CheckWord(t, word)
	if err != nil {
		s.fail(w, "check word failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleSimilarWord(w http.ResponseWriter, r *http.Request) {
	t, err := models.ParseModelType(stringParam(r, "model_type", string(models.ModelTFIDF)))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sc := s.config.Similarity
	topN, err := intParam(r, "topn", sc.DefaultTopN, 1, sc.MaxTopN)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	word := chi.URLParam(r, "word")
	s.logger.Debug("similarity request", zap.String("word", word), zap.String("model", string(t)), zap.Int("topn", topN))
	res, err := s.svc.Similar(r.Context(), models.SimilarityQuery{Word: word, Model: t, TopN: topN})
	if err != nil {
		s.fail(w, "similarity failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	sc := s.config.Similarity
	topN, err := intParam(r, "topn", sc.DefaultTopN, 1, sc.MaxTopN)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, s.svc.Compare(r.Context(), chi.URLParam(r, "word"), topN))
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	t, err := models.ParseModelType(stringParam(r, "model_type", string(models.ModelTFIDF)))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sc := s.config.Similarity
	topN, err := intParam(r, "topn", sc.BatchDefaultTopN, 1, sc.BatchMaxTopN)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var words []string
	if err := json.NewDecoder(r.Body).Decode(&words); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body: expected a JSON array of words")
		return
	}
	maxBatch := min(sc.MaxBatch, models.MaxBatchWords)
	if len(words) > maxBatch {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Maximum %d words per batch", maxBatch))
		return
	}
	res, err := s.svc.Batch(r.Context(), models.BatchQuery{Words: words, Model: t, TopN: topN})
	if err != nil {
		s.fail(w, "batch similarity failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

// reductionParams parses method and perplexity shared by both embeddings routes.
func (s *Server) reductionParams(r *http.Request) (models.Method, int, error) {
	rc := s.config.Reduction
	method, err := models.ParseMethod(stringParam(r, "method", rc.DefaultMethod))
	if err != nil {
		return "", 0, err
	}
	perplexity, err := intParam(r, "perplexity", rc.DefaultPerplexity, rc.MinPerplexity, rc.MaxPerplexity)
	if err != nil {
		return "", 0, err
	}
	return method, perplexity, nil
}

func (s *Server) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	t, ok := s.pathModel(w, r, http.StatusBadRequest)
	if !ok {
		return
	}
	method, perplexity, err := s.reductionParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	rc := s.config.Reduction
	numWords, err := intParam(r, "num_words", rc.DefaultNumWords, rc.MinNumWords, rc.MaxNumWords)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.svc.Embeddings(r.Context(), models.ReductionQuery{
		Model: t, Method: method, NumWords: numWords, Perplexity: perplexity,
	})
	if errors.Is(err, reduction.ErrTooFewPoints) {
		s.logger.Error("embeddings failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Failed to load embeddings")
		return
	}
	if err != nil {
		s.fail(w, "embeddings failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleNeighborhood(w http.ResponseWriter, r *http.Request) {
	t, ok := s.pathModel(w, r, http.StatusBadRequest)
	if !ok {
		return
	}
	method, perplexity, err := s.reductionParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	sc := s.config.Similarity
	neighbors, err := intParam(r, "num_neighbors", sc.NeighborsDefault, sc.NeighborsMin, sc.NeighborsMax)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := models.NeighborhoodQuery{
		Word: chi.URLParam(r, "word"), Model: t, Method: method, NumNeighbors: neighbors, Perplexity: perplexity,
	}
	res, err := s.svc.Neighborhood(r.Context(), q)
	if err != nil {
		if status := statusFor(err); status == http.StatusNotFound {
			s.respondError(w, status, fmt.Sprintf("Word '%s' not found in vocabulary", q.NormalizedWord()))
			return
		}
		s.fail(w, "neighborhood failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.svc.ClearCache()
	s.respondJSON(w, http.StatusOK, map[string]string{"message": "Cache cleared successfully"})
}

// fail logs err and responds with the status statusFor assigns to it.
func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, utils.Truncate(err.Error(), 500))
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
