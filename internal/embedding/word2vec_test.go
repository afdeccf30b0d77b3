package embedding

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"

	"github.com/hyperjump/embex/internal/models"
)

func writeTestWord2Vec(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "w2v.bin")
	words := []string{"cat", "dog", "fish", "car"}
	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	if err := WriteWord2VecFile(path, words, vecs); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestScanWord2Vec(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteWord2Vec(&buf, []string{"b", "a", "c"}, [][]float32{{1, 2}, {3, 4}, {5, 6}}); err != nil {
		t.Fatal(err)
	}
	words, vecs, err := scanWord2Vec(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 3 || words[0] != "b" || words[1] != "a" || words[2] != "c" {
		t.Errorf("vocabulary = %v, want file order", words)
	}
	if len(vecs) != 3 || vecs[1][0] != 3 || vecs[1][1] != 4 {
		t.Errorf("vectors = %v, want stored rows", vecs)
	}

	if _, _, err := scanWord2Vec([]byte("2 3\nab")); err == nil {
		t.Error("truncated file should fail")
	}
}

func TestWriteWord2Vec_RejectsSeparators(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteWord2Vec(&buf, []string{"new york"}, [][]float32{{1}}); err == nil {
		t.Error("expected error for word containing a space")
	}
}

func TestWord2VecModel(t *testing.T) {
	m, err := loadWord2Vec(models.ModelCBOW, writeTestWord2Vec(t))
	if err != nil {
		t.Fatal(err)
	}
	if m.Size() != 4 || m.Dimensions() != 3 || m.Type() != models.ModelCBOW {
		t.Fatalf("size=%d dims=%d type=%s", m.Size(), m.Dimensions(), m.Type())
	}
	if i, ok := m.Lookup("fish"); !ok || i != 2 {
		t.Errorf("Lookup(fish) = %d, %v", i, ok)
	}

	matches, ok, err := m.Nearest("cat", 2)
	if err != nil || !ok {
		t.Fatalf("Nearest: %v, %v", ok, err)
	}
	if len(matches) != 2 || matches[0].Word != "dog" {
		t.Fatalf("matches = %+v", matches)
	}
	if math.Abs(matches[0].Score-0.9939) > 1e-3 {
		t.Errorf("cat/dog score = %f", matches[0].Score)
	}
	for _, mt := range matches {
		if mt.Word == "cat" {
			t.Error("query word must not be its own neighbour")
		}
	}

	all, _, _ := m.Nearest("cat", 10)
	if len(all) != 3 {
		t.Errorf("n beyond vocabulary should return every other word, got %d", len(all))
	}

	if _, ok, _ := m.Nearest("zebra", 3); ok {
		t.Error("unknown word should report ok=false")
	}
	if v, ok := m.Vector("car"); !ok || len(v) != 3 {
		t.Errorf("Vector(car) = %v, %v", v, ok)
	}
}

func TestWord2VecModel_VectorIsStoredRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.bin")
	words := []string{"cat", "dog", "void"}
	vecs := [][]float32{{3, 4, 0}, {1, 1, 0}, {0, 0, 0}}
	if err := WriteWord2VecFile(path, words, vecs); err != nil {
		t.Fatal(err)
	}
	m, err := loadWord2Vec(models.ModelSkipGram, path)
	if err != nil {
		t.Fatal(err)
	}

	v, ok := m.Vector("cat")
	if !ok {
		t.Fatal("cat should be in vocabulary")
	}
	want := []float32{3, 4, 0}
	for i := range want {
		if v[i] != want[i] {
			t.Fatalf("Vector(cat) = %v, want %v", v, want)
		}
	}

	matches, ok, err := m.Nearest("cat", 2)
	if err != nil || !ok {
		t.Fatalf("Nearest(cat): %v, %v", ok, err)
	}
	for _, mt := range matches {
		if math.IsNaN(mt.Score) {
			t.Errorf("score of %s is NaN", mt.Word)
		}
	}
	if len(matches) == 0 || matches[0].Word != "dog" {
		t.Errorf("matches = %+v, want dog first", matches)
	}

	matches, ok, err = m.Nearest("void", 2)
	if err != nil || !ok {
		t.Fatalf("Nearest(void): %v, %v", ok, err)
	}
	if len(matches) != 2 {
		t.Fatalf("zero vector should still rank the rest, got %+v", matches)
	}
	for _, mt := range matches {
		if mt.Score != 0 {
			t.Errorf("score of %s against a zero vector = %f, want 0", mt.Word, mt.Score)
		}
	}
}
