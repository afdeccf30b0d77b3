package vector

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// MemoryIndex is an in-memory embedding table. Row i belongs to the i-th added word;
// indices are dense and never reused.
type MemoryIndex struct {
	dimensions int
	words      []string
	index      map[string]int
	vectors    [][]float32
	norms      []float64
	mu         sync.RWMutex
}

// NewMemoryIndex creates an empty table with the given row width.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		words:      make([]string, 0),
		index:      make(map[string]int),
		vectors:    make([][]float32, 0),
		norms:      make([]float64, 0),
	}, nil
}

// Add appends rows for words. Words must be unique across the table.
func (m *MemoryIndex) Add(words []string, vectors [][]float32) error {
	if len(words) != len(vectors) {
		return fmt.Errorf("words and vectors length mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range words {
		if len(vectors[i]) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch for %q: got %d, expected %d", w, len(vectors[i]), m.dimensions)
		}
		if _, dup := m.index[w]; dup {
			return fmt.Errorf("duplicate word %q", w)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		m.index[w] = len(m.words)
		m.words = append(m.words, w)
		m.vectors = append(m.vectors, vec)
		m.norms = append(m.norms, L2Norm(vec))
	}
	return nil
}

// Lookup returns the row index of word.
func (m *MemoryIndex) Lookup(word string) (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[word]
	return i, ok
}

// Vector returns the row of word. The slice must not be modified.
func (m *MemoryIndex) Vector(word string) ([]float32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[word]
	if !ok {
		return nil, false
	}
	return m.vectors[i], true
}

// Words returns the vocabulary in row order.
func (m *MemoryIndex) Words() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.words...)
}

// Nearest ranks every row by cosine similarity to word's row, drops the row of word
// itself and returns the first k. Equal scores keep ascending row order.
// ok is false when word is not in the table.
func (m *MemoryIndex) Nearest(word string, k int) (matches []Match, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	qi, ok := m.index[word]
	if !ok {
		return nil, false
	}
	if k <= 0 {
		return []Match{}, true
	}
	query, qn := m.vectors[qi], m.norms[qi]
	scores := make([]Match, len(m.words))
	for i, vec := range m.vectors {
		var s float64
		if qn != 0 && m.norms[i] != 0 {
			s = InnerProduct(query, vec) / (qn * m.norms[i])
		}
		scores[i] = Match{Word: m.words[i], Index: i, Score: s}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })

	matches = make([]Match, 0, k)
	for _, s := range scores {
		if len(matches) >= k {
			break
		}
		if s.Index == qi {
			continue
		}
		matches = append(matches, s)
	}
	return matches, true
}

// Save writes the table to path, creating the directory if needed. Format (little endian):
// dimension (4), n (4), then per row: wordLen (4), word bytes, vector (dimension*4 bytes).
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create artifact file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m.words))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, word := range m.words {
		wb := []byte(word)
		if err := binary.Write(w, binary.LittleEndian, uint32(len(wb))); err != nil {
			return fmt.Errorf("write word len: %w", err)
		}
		if _, err := w.Write(wb); err != nil {
			return fmt.Errorf("write word: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(m.vectors[i])); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush artifact: %w", err)
	}
	return f.Sync()
}

// LoadMemoryIndex reads a table written by Save. A missing file yields an error
// satisfying errors.Is(err, os.ErrNotExist).
func LoadMemoryIndex(path string) (*MemoryIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()
	return ReadMemoryIndex(bufio.NewReader(f))
}

// ReadMemoryIndex decodes a table from r.
func ReadMemoryIndex(r io.Reader) (*MemoryIndex, error) {
	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	m, err := NewMemoryIndex(int(dim))
	if err != nil {
		return nil, err
	}
	buf := make([]byte, int(dim)*4)
	for i := uint32(0); i < n; i++ {
		var wordLen uint32
		if err := binary.Read(r, binary.LittleEndian, &wordLen); err != nil {
			return nil, fmt.Errorf("read word len: %w", err)
		}
		wb := make([]byte, wordLen)
		if _, err := io.ReadFull(r, wb); err != nil {
			return nil, fmt.Errorf("read word: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		if err := m.Add([]string{string(wb)}, [][]float32{bytesToFloat32Slice(buf)}); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return m, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// Size returns the number of rows.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.words)
}

// Dimensions returns the row width.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}
