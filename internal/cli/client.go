// Package cli provides the HTTP client and output writers used by the embex
// command line and terminal explorer.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/embex/internal/models"
)

// APIError is a non-2xx response of the embex API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client calls the embex HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the API mounted at baseURL (for example
// http://127.0.0.1:8000/api).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Models lists model metadata.
func (c *Client) Models(ctx context.Context) ([]models.ModelInfo, error) {
	var out []models.ModelInfo
	err := c.do(ctx, http.MethodGet, "/models/", nil, nil, &out)
	return out, err
}

// Similar returns the nearest neighbours of word under model.
func (c *Client) Similar(ctx context.Context, word string, model models.ModelType, topN int) (*models.SimilarityResult, error) {
	q := url.Values{}
	q.Set("model_type", string(model))
	q.Set("topn", strconv.Itoa(topN))
	var out models.SimilarityResult
	err := c.do(ctx, http.MethodGet, "/similarity/word/"+url.PathEscape(word), q, nil, &out)
	return &out, err
}

// Compare returns the nearest neighbours of word under every model.
func (c *Client) Compare(ctx context.Context, word string, topN int) (*models.CompareResult, error) {
	q := url.Values{}
	q.Set("topn", strconv.Itoa(topN))
	var out models.CompareResult
	err := c.do(ctx, http.MethodGet, "/similarity/compare/"+url.PathEscape(word), q, nil, &out)
	return &out, err
}

// Batch returns the nearest neighbours of each word under model.
func (c *Client) Batch(ctx context.Context, words []string, model models.ModelType, topN int) (*models.BatchResult, error) {
	q := url.Values{}
	q.Set("model_type", string(model))
	q.Set("topn", strconv.Itoa(topN))
	var out models.BatchResult
	err := c.do(ctx, http.MethodPost, "/similarity/batch", q, words, &out)
	return &out, err
}

// Embeddings returns the 2-D projection of the most frequent words of q.Model.
func (c *Client) Embeddings(ctx context.Context, q models.ReductionQuery) (*models.EmbeddingsResponse, error) {
	v := url.Values{}
	v.Set("method", string(q.Method))
	v.Set("num_words", strconv.Itoa(q.NumWords))
	v.Set("perplexity", strconv.Itoa(q.Perplexity))
	var out models.EmbeddingsResponse
	err := c.do(ctx, http.MethodGet, "/embeddings/"+string(q.Model), v, nil, &out)
	return &out, err
}

// Neighborhood returns the 2-D projection of a word and its neighbours.
func (c *Client) Neighborhood(ctx context.Context, q models.NeighborhoodQuery) (*models.NeighborhoodResponse, error) {
	v := url.Values{}
	v.Set("method", string(q.Method))
	v.Set("num_neighbors", strconv.Itoa(q.NumNeighbors))
	v.Set("perplexity", strconv.Itoa(q.Perplexity))
	var out models.NeighborhoodResponse
	err := c.do(ctx, http.MethodGet, "/embeddings/"+string(q.Model)+"/neighborhood/"+url.PathEscape(q.Word), v, nil, &out)
	return &out, err
}

// ClearCache empties the server's projection cache.
func (c *Client) ClearCache(ctx context.Context) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodDelete, "/embeddings/cache", nil, nil, &out)
	return out.Message, err
}

// Status returns the server's runtime status.
func (c *Client) Status(ctx context.Context) (*models.Status, error) {
	var out models.Status
	err := c.do(ctx, http.MethodGet, "/status", nil, nil, &out)
	return &out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(b))
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
