package config

import "time"

// DefaultStopWords is the stop word list of the TF-IDF build when none is configured.
var DefaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "from", "has", "have",
	"he", "in", "is", "it", "its", "of", "on", "or", "she", "that", "the", "their", "they",
	"this", "to", "was", "were", "which", "with", "you",
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.APIPrefix == "" {
		cfg.Server.APIPrefix = "/api"
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{
			"http://localhost:8501",
			"http://127.0.0.1:8501",
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"https://*.streamlit.app",
		}
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 120 * time.Second
	}

	if cfg.Models.Dir == "" {
		cfg.Models.Dir = "./models"
	}
	if cfg.Models.TFIDFFile == "" {
		cfg.Models.TFIDFFile = "tfidf_embeddings.bin"
	}
	if cfg.Models.CBOWFile == "" {
		cfg.Models.CBOWFile = "word2vec_cbow.bin"
	}
	if cfg.Models.SkipGramFile == "" {
		cfg.Models.SkipGramFile = "word2vec_skipgram.bin"
	}
	if cfg.Models.LexiconFile == "" {
		cfg.Models.LexiconFile = "lexicon.db"
	}

	r := &cfg.Reduction
	if r.DefaultMethod == "" {
		r.DefaultMethod = "pca"
	}
	if r.DefaultNumWords == 0 {
		r.DefaultNumWords = 500
	}
	if r.MinNumWords == 0 {
		r.MinNumWords = 50
	}
	if r.MaxNumWords == 0 {
		r.MaxNumWords = 2000
	}
	if r.DefaultPerplexity == 0 {
		r.DefaultPerplexity = 30
	}
	if r.MinPerplexity == 0 {
		r.MinPerplexity = 5
	}
	if r.MaxPerplexity == 0 {
		r.MaxPerplexity = 100
	}
	if r.TSNEIterations == 0 {
		r.TSNEIterations = 1000
	}
	if r.TSNELearningRate == 0 {
		r.TSNELearningRate = 200
	}
	if r.Seed == 0 {
		r.Seed = 42
	}

	s := &cfg.Similarity
	if s.DefaultTopN == 0 {
		s.DefaultTopN = 10
	}
	if s.MaxTopN == 0 {
		s.MaxTopN = 50
	}
	if s.BatchDefaultTopN == 0 {
		s.BatchDefaultTopN = 5
	}
	if s.BatchMaxTopN == 0 {
		s.BatchMaxTopN = 20
	}
	if s.MaxBatch == 0 {
		s.MaxBatch = 20
	}
	if s.NeighborsDefault == 0 {
		s.NeighborsDefault = 20
	}
	if s.NeighborsMin == 0 {
		s.NeighborsMin = 5
	}
	if s.NeighborsMax == 0 {
		s.NeighborsMax = 50
	}
	if s.Suggestions == 0 {
		s.Suggestions = 3
	}

	b := &cfg.Build
	if b.Extensions == nil {
		b.Extensions = []string{".txt", ".md", ".pdf", ".docx", ".xlsx"}
	}
	if b.ChunkSize == 0 {
		b.ChunkSize = 200
	}
	if b.Dimensions == 0 {
		b.Dimensions = 200
	}
	if b.MinWordLength == 0 {
		b.MinWordLength = 2
	}
	if b.StopWords == nil {
		b.StopWords = DefaultStopWords
	}
}
