package vector

import (
	"fmt"
	"testing"
)

func BenchmarkMemoryIndexNearest(b *testing.B) {
	const n, dims = 5000, 200
	idx, _ := NewMemoryIndex(dims)
	words := make([]string, n)
	vecs := make([][]float32, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%04d", i)
		vecs[i] = make([]float32, dims)
		vecs[i][i%dims] = 1
		vecs[i][(i*7)%dims] += float32(i) / n
	}
	_ = idx.Add(words, vecs)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Nearest("w0042", 10)
	}
}
