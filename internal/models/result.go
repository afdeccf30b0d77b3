package models

import "time"

// ModelInfo is the metadata reported for one model.
type ModelInfo struct {
	ModelType        ModelType `json:"model_type"`
	DisplayName      string    `json:"display_name"`
	VocabSize        int       `json:"vocab_size"`
	VectorDimensions int       `json:"vector_dimensions"`
	IsLoaded         bool      `json:"is_loaded"`
}

// SimilarWord is one ranked neighbour.
type SimilarWord struct {
	Word       string  `json:"word"`
	Similarity float64 `json:"similarity"`
}

// SimilarityResult is the outcome of a nearest neighbour lookup. A word missing from
// the vocabulary is not an error: InVocabulary is false and Message explains why.
type SimilarityResult struct {
	QueryWord    string        `json:"query_word"`
	ModelType    ModelType     `json:"model_type,omitempty"`
	SimilarWords []SimilarWord `json:"similar_words"`
	InVocabulary bool          `json:"in_vocabulary"`
	Message      string        `json:"message,omitempty"`
	// Suggestions are close vocabulary spellings, set only when InVocabulary is false.
	Suggestions []string `json:"suggestions,omitempty"`
}

// CompareResult holds one SimilarityResult per model selector.
type CompareResult struct {
	QueryWord string                          `json:"query_word"`
	Results   map[ModelType]*SimilarityResult `json:"results"`
}

// BatchResult is the response of a batch similarity request.
type BatchResult struct {
	ModelType ModelType           `json:"model_type"`
	Results   []*SimilarityResult `json:"results"`
}

// VocabularySample lists the most frequent words of a model.
type VocabularySample struct {
	ModelType   ModelType `json:"model_type"`
	VocabSize   int       `json:"vocab_size"`
	SampleWords []string  `json:"sample_words"`
}

// WordCheck reports vocabulary membership.
type WordCheck struct {
	Word         string    `json:"word"`
	ModelType    ModelType `json:"model_type"`
	InVocabulary bool      `json:"in_vocabulary"`
}

// VocabularySearch is the response of a vocabulary text search.
type VocabularySearch struct {
	ModelType ModelType `json:"model_type"`
	Query     string    `json:"query"`
	Words     []string  `json:"words"`
}

// EmbeddingPoint is one projected word of the full visualization.
type EmbeddingPoint struct {
	Word      string  `json:"word"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Frequency int     `json:"frequency"`
}

// EmbeddingsResponse is the full visualization set for a model.
type EmbeddingsResponse struct {
	ModelType           ModelType        `json:"model_type"`
	ReductionMethod     Method           `json:"reduction_method"`
	NumWords            int              `json:"num_words"`
	Points              []EmbeddingPoint `json:"points"`
	FallbackUsed        bool             `json:"fallback_used,omitempty"`
	EffectivePerplexity int              `json:"effective_perplexity,omitempty"`
}

// NeighborhoodPoint is one projected word of a neighbourhood.
type NeighborhoodPoint struct {
	Word       string  `json:"word"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Similarity float64 `json:"similarity"`
	IsQuery    bool    `json:"is_query"`
}

// NeighborhoodResponse is the projection of a word and its neighbours.
type NeighborhoodResponse struct {
	QueryWord           string              `json:"query_word"`
	ModelType           ModelType           `json:"model_type"`
	ReductionMethod     Method              `json:"reduction_method"`
	Points              []NeighborhoodPoint `json:"points"`
	FallbackUsed        bool                `json:"fallback_used,omitempty"`
	EffectivePerplexity int                 `json:"effective_perplexity,omitempty"`
}

// Build records one offline model build.
type Build struct {
	ID         string    `json:"id"`
	Model      ModelType `json:"model"`
	VocabSize  int       `json:"vocab_size"`
	Dimensions int       `json:"dimensions"`
	Documents  int       `json:"documents"`
	CreatedAt  time.Time `json:"created_at"`
}

// Status is the runtime status of the service.
type Status struct {
	Models         []ModelInfo `json:"models"`
	ResidentModels []ModelType `json:"resident_models"`
	CacheEntries   int         `json:"cache_entries"`
	UptimeSeconds  int64       `json:"uptime_seconds"`
	MemoryRSSBytes uint64      `json:"memory_rss_bytes,omitempty"`
	CPUPercent     float64     `json:"cpu_percent"`
	DiskUsageBytes int64       `json:"disk_usage_bytes"`
	LastBuilds     []Build     `json:"last_builds,omitempty"`
}
