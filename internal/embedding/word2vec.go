package embedding

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"code.sajari.com/word2vec"

	"github.com/hyperjump/embex/internal/models"
	"github.com/hyperjump/embex/internal/vector"
)

// Word2VecModel is a CBOW or Skip-Gram model read from the word2vec binary format.
// Vocabulary order is the order of the words in the file.
type Word2VecModel struct {
	kind    models.ModelType
	model   *word2vec.Model
	words   []string
	index   map[string]int
	vectors [][]float32
}

func loadWord2Vec(kind models.ModelType, path string) (*Word2VecModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	words, vectors, err := scanWord2Vec(data)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary of %s: %w", filepath.Base(path), err)
	}
	model, err := word2vec.FromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	index := make(map[string]int, len(words))
	for i, w := range words {
		index[w] = i
	}
	return &Word2VecModel{kind: kind, model: model, words: words, index: index, vectors: vectors}, nil
}

// scanWord2Vec returns the words of a word2vec binary file in file order together
// with their stored vectors. The word2vec package normalises rows while loading,
// so the trained vectors are kept from this pass.
func scanWord2Vec(data []byte) ([]string, [][]float32, error) {
	br := bufio.NewReader(bytes.NewReader(data))
	var size, dim int
	if _, err := fmt.Fscanln(br, &size, &dim); err != nil {
		return nil, nil, fmt.Errorf("header: %w", err)
	}
	if size < 0 || dim <= 0 {
		return nil, nil, fmt.Errorf("header: invalid size %d or dimension %d", size, dim)
	}
	words := make([]string, 0, size)
	vectors := make([][]float32, 0, size)
	for i := 0; i < size; i++ {
		w, err := br.ReadString(' ')
		if err != nil {
			return nil, nil, fmt.Errorf("word %d: %w", i, err)
		}
		w = strings.TrimLeft(w[:len(w)-1], "\n")
		v := make([]float32, dim)
		if err := binary.Read(br, binary.LittleEndian, v); err != nil {
			return nil, nil, fmt.Errorf("vector of %q: %w", w, err)
		}
		words = append(words, w)
		vectors = append(vectors, v)
	}
	return words, vectors, nil
}

// Type implements Model.
func (m *Word2VecModel) Type() models.ModelType { return m.kind }

// Size is the vocabulary size.
func (m *Word2VecModel) Size() int { return len(m.words) }

// Dimensions is the vector width.
func (m *Word2VecModel) Dimensions() int { return m.model.Dim() }

// Words returns the vocabulary in file order.
func (m *Word2VecModel) Words() []string { return append([]string(nil), m.words...) }

// Lookup returns the file position of word.
func (m *Word2VecModel) Lookup(word string) (int, bool) {
	i, ok := m.index[word]
	return i, ok
}

// Vector returns the vector of word as stored in the file.
func (m *Word2VecModel) Vector(word string) ([]float32, bool) {
	i, ok := m.index[word]
	if !ok {
		return nil, false
	}
	return m.vectors[i], true
}

// Nearest implements Model using the model's own cosine ranking. One extra match is
// requested because the ranking includes the query word. CosN never returns words
// with a non-positive score, so a short result is completed by a full ranking.
// A zero query vector has no direction and is ranked in full with score 0.
func (m *Word2VecModel) Nearest(word string, n int) ([]vector.Match, bool, error) {
	qi, ok := m.index[word]
	if !ok {
		return nil, false, nil
	}
	if n <= 0 {
		return []vector.Match{}, true, nil
	}
	if vector.L2Norm(m.vectors[qi]) == 0 {
		return m.rankAll(word, n), true, nil
	}
	found, err := m.model.CosN(word2vec.Expr{word: 1}, n+1)
	if err != nil {
		return nil, true, fmt.Errorf("rank neighbours of %q: %w", word, err)
	}
	matches := make([]vector.Match, 0, n)
	for _, f := range found {
		if math.IsNaN(float64(f.Score)) {
			// a zero row in the file has no direction after normalising
			return m.rankAll(word, n), true, nil
		}
		if f.Word == "" || f.Word == word {
			continue
		}
		matches = append(matches, vector.Match{Word: f.Word, Index: m.index[f.Word], Score: float64(f.Score)})
		if len(matches) == n {
			break
		}
	}
	if len(matches) < n && len(matches) < len(m.words)-1 {
		return m.rankAll(word, n), true, nil
	}
	return matches, true, nil
}

func (m *Word2VecModel) rankAll(word string, n int) []vector.Match {
	qi := m.index[word]
	query := m.vectors[qi]
	scored := make([]vector.Match, 0, len(m.words)-1)
	for i, v := range m.vectors {
		if i == qi {
			continue
		}
		scored = append(scored, vector.Match{Word: m.words[i], Index: i, Score: vector.Cosine(query, v)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > n {
		scored = scored[:n]
	}
	return scored
}

// WriteWord2Vec writes words and vectors in the word2vec binary format.
func WriteWord2Vec(w io.Writer, words []string, vectors [][]float32) error {
	if len(words) != len(vectors) {
		return fmt.Errorf("words and vectors length mismatch")
	}
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d %d\n", len(words), dim); err != nil {
		return err
	}
	for i, word := range words {
		if len(vectors[i]) != dim {
			return fmt.Errorf("vector dimension mismatch for %q", word)
		}
		if strings.ContainsAny(word, " \n") {
			return fmt.Errorf("word %q contains a separator", word)
		}
		if _, err := bw.WriteString(word + " "); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, vectors[i]); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteWord2VecFile is WriteWord2Vec to a file, creating its directory.
func WriteWord2VecFile(path string, words []string, vectors [][]float32) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWord2Vec(f, words, vectors); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
