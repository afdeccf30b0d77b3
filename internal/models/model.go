// Package models defines the model selectors and the request/response types of the embex API.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// ModelType selects one of the three embedding models.
type ModelType string

const (
	ModelTFIDF    ModelType = "tfidf"
	ModelCBOW     ModelType = "word2vec_cbow"
	ModelSkipGram ModelType = "word2vec_skipgram"
)

var (
	// ErrUnknownModel is returned for a selector outside the three known models.
	ErrUnknownModel = errors.New("unknown model type")
	// ErrUnknownMethod is returned for a reduction method other than pca or tsne.
	ErrUnknownMethod = errors.New("unknown reduction method")
)

// AllModelTypes returns the selectors in their canonical order.
func AllModelTypes() []ModelType {
	return []ModelType{ModelTFIDF, ModelCBOW, ModelSkipGram}
}

// ParseModelType validates s as a model selector. Matching is exact.
func ParseModelType(s string) (ModelType, error) {
	switch m := ModelType(s); m {
	case ModelTFIDF, ModelCBOW, ModelSkipGram:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q (available: %s)", ErrUnknownModel, s, availableModels())
}

// DisplayName is the human readable model name.
func (m ModelType) DisplayName() string {
	switch m {
	case ModelTFIDF:
		return "TF-IDF (LSA)"
	case ModelCBOW:
		return "Word2Vec (CBOW)"
	case ModelSkipGram:
		return "Word2Vec (Skip-Gram)"
	}
	return "Unknown"
}

// IsNeural reports whether m is one of the Word2Vec variants.
func (m ModelType) IsNeural() bool {
	return m == ModelCBOW || m == ModelSkipGram
}

func availableModels() string {
	names := make([]string, 0, 3)
	for _, m := range AllModelTypes() {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}

// Method is a dimensionality reduction method.
type Method string

const (
	MethodPCA  Method = "pca"
	MethodTSNE Method = "tsne"
)

// ParseMethod validates s as a reduction method.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodPCA, MethodTSNE:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q (method must be 'pca' or 'tsne')", ErrUnknownMethod, s)
}
