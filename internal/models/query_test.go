package models

import (
	"errors"
	"testing"
)

func TestParseModelType(t *testing.T) {
	tests := []struct {
		in      string
		want    ModelType
		wantErr bool
	}{
		{"tfidf", ModelTFIDF, false},
		{"word2vec_cbow", ModelCBOW, false},
		{"word2vec_skipgram", ModelSkipGram, false},
		{"TFIDF", "", true},
		{"glove", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseModelType(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownModel) {
					t.Errorf("expected ErrUnknownModel, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseModelType(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	if ModelTFIDF.DisplayName() != "TF-IDF (LSA)" {
		t.Errorf("tfidf display name: %s", ModelTFIDF.DisplayName())
	}
	if ModelSkipGram.DisplayName() != "Word2Vec (Skip-Gram)" {
		t.Errorf("skipgram display name: %s", ModelSkipGram.DisplayName())
	}
	if ModelType("x").DisplayName() != "Unknown" {
		t.Error("unknown selector should have display name Unknown")
	}
}

func TestParseMethod(t *testing.T) {
	if m, err := ParseMethod("tsne"); err != nil || m != MethodTSNE {
		t.Errorf("ParseMethod(tsne) = %q, %v", m, err)
	}
	if _, err := ParseMethod("umap"); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}
}

func TestBatchQuery_Validate(t *testing.T) {
	words := make([]string, MaxBatchWords)
	q := &BatchQuery{Words: words, Model: ModelTFIDF, TopN: 5}
	if err := q.Validate(); err != nil {
		t.Errorf("20 words should be accepted: %v", err)
	}
	q.Words = append(q.Words, "extra")
	if err := q.Validate(); !errors.Is(err, ErrBatchTooLarge) {
		t.Errorf("21 words: expected ErrBatchTooLarge, got %v", err)
	}
}

func TestCheckRange(t *testing.T) {
	if err := CheckRange("topn", 50, 1, 50); err != nil {
		t.Errorf("upper bound inclusive: %v", err)
	}
	if err := CheckRange("topn", 0, 1, 50); !errors.Is(err, ErrInvalidParam) {
		t.Errorf("expected ErrInvalidParam, got %v", err)
	}
}

func TestReductionQuery_CacheKey(t *testing.T) {
	a := ReductionQuery{Model: ModelTFIDF, Method: MethodPCA, NumWords: 100, Perplexity: 30}
	b := a
	b.Perplexity = 31
	if a.CacheKey() == b.CacheKey() {
		t.Error("perplexity must be part of the cache key")
	}
	if a.CacheKey() != "tfidf_pca_100_30" {
		t.Errorf("CacheKey = %s", a.CacheKey())
	}
}
