package reduction

import (
	"testing"

	"github.com/hyperjump/embex/internal/models"
)

func TestCache_Unbounded(t *testing.T) {
	c := NewCache(0)
	for _, k := range []string{"a", "b", "c", "d"} {
		c.Set(k, &models.EmbeddingsResponse{ModelType: models.ModelTFIDF})
	}
	if c.Len() != 4 {
		t.Errorf("len = %d, want 4", c.Len())
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("unbounded cache must not evict")
	}
}

func TestCache_LRU(t *testing.T) {
	c := NewCache(2)
	a := &models.EmbeddingsResponse{NumWords: 1}
	c.Set("a", a)
	c.Set("b", &models.EmbeddingsResponse{NumWords: 2})
	c.Get("a")
	c.Set("c", &models.EmbeddingsResponse{NumWords: 3})

	if _, ok := c.Get("b"); ok {
		t.Error("b was least recently used and should be evicted")
	}
	if got, ok := c.Get("a"); !ok || got != a {
		t.Error("a should survive")
	}

	c.Set("a", &models.EmbeddingsResponse{NumWords: 9})
	if got, _ := c.Get("a"); got.NumWords != 9 {
		t.Error("Set should overwrite")
	}
	if n := c.Clear(); n != 2 || c.Len() != 0 {
		t.Errorf("Clear = %d, len = %d", n, c.Len())
	}
}
