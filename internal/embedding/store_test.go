package embedding_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/embex/internal/embedding"
	"github.com/hyperjump/embex/internal/fixtures"
	"github.com/hyperjump/embex/internal/models"
)

func TestStore_Info(t *testing.T) {
	paths := fixtures.WriteModels(t, t.TempDir(), fixtures.Options{SkipSkipGram: true})
	store := embedding.NewStore(paths, embedding.WithLogger(zap.NewNop()))

	words, _ := fixtures.Vocabulary()
	for _, mt := range []models.ModelType{models.ModelTFIDF, models.ModelCBOW} {
		info := store.Info(mt)
		if !info.IsLoaded {
			t.Fatalf("%s: expected loaded", mt)
		}
		if info.VocabSize != len(words) || info.VectorDimensions != fixtures.Dimensions {
			t.Errorf("%s: info = %+v", mt, info)
		}
	}

	missing := store.Info(models.ModelSkipGram)
	want := models.ModelInfo{ModelType: models.ModelSkipGram, DisplayName: "Word2Vec (Skip-Gram)"}
	if missing != want {
		t.Errorf("missing model info = %+v, want %+v", missing, want)
	}
	if len(store.Infos()) != 3 {
		t.Error("Infos should report all three models")
	}
}

func TestStore_MissingThenPresent(t *testing.T) {
	dir := t.TempDir()
	paths := fixtures.WriteModels(t, dir, fixtures.Options{SkipTFIDF: true})
	store := embedding.NewStore(paths)

	_, err := store.Model(models.ModelTFIDF)
	if !errors.Is(err, embedding.ErrModelMissing) {
		t.Fatalf("expected ErrModelMissing, got %v", err)
	}

	// A later artifact appearance loads without a restart.
	fixtures.WriteModels(t, dir, fixtures.Options{SkipCBOW: true, SkipSkipGram: true, SkipLexicon: true})
	m, err := store.Model(models.ModelTFIDF)
	if err != nil {
		t.Fatal(err)
	}
	if m.Type() != models.ModelTFIDF {
		t.Errorf("type = %s", m.Type())
	}
}

func TestStore_Memoized(t *testing.T) {
	paths := fixtures.WriteModels(t, t.TempDir(), fixtures.Options{})
	store := embedding.NewStore(paths)

	var wg sync.WaitGroup
	got := make([]embedding.Model, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := store.Model(models.ModelCBOW)
			if err != nil {
				t.Error(err)
				return
			}
			got[i] = m
		}(i)
	}
	wg.Wait()
	for _, m := range got[1:] {
		if m != got[0] {
			t.Fatal("concurrent loads should share one model")
		}
	}

	// Deleting the artifact does not affect a loaded model until Reset.
	if err := os.Remove(paths.CBOW); err != nil {
		t.Fatal(err)
	}
	if !store.Loaded(models.ModelCBOW) {
		t.Error("model should stay loaded")
	}
	store.Reset(models.ModelCBOW)
	if _, err := store.Model(models.ModelCBOW); !errors.Is(err, embedding.ErrModelMissing) {
		t.Errorf("after reset expected ErrModelMissing, got %v", err)
	}
}

func TestStore_TopWords(t *testing.T) {
	ctx := context.Background()
	paths := fixtures.WriteModels(t, t.TempDir(), fixtures.Options{})
	store := embedding.NewStore(paths)

	words, err := store.TopWords(ctx, models.ModelTFIDF, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"dog", "cat", "car"}
	for i := range want {
		if words[i] != want[i] {
			t.Fatalf("TopWords = %v, want %v", words, want)
		}
	}
	if store.Frequency(ctx, "apple") != 250 || store.Frequency(ctx, "zebra") != 0 {
		t.Error("unexpected frequencies")
	}
}

func TestStore_TopWordsWithoutLexicon(t *testing.T) {
	paths := fixtures.WriteModels(t, t.TempDir(), fixtures.Options{SkipLexicon: true})
	store := embedding.NewStore(paths)

	words, err := store.TopWords(context.Background(), models.ModelSkipGram, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 2 || words[0] != "cat" || words[1] != "kitten" {
		t.Errorf("without frequencies expected vocabulary order, got %v", words)
	}

	all, _ := store.TopWords(context.Background(), models.ModelSkipGram, 10000)
	vocab, _ := fixtures.Vocabulary()
	if len(all) != len(vocab) {
		t.Errorf("n larger than vocabulary should return everything, got %d", len(all))
	}
}

func TestStore_Contains(t *testing.T) {
	paths := fixtures.WriteModels(t, t.TempDir(), fixtures.Options{})
	store := embedding.NewStore(paths)

	ok, err := store.Contains(models.ModelTFIDF, "kitten")
	if err != nil || !ok {
		t.Errorf("kitten: %v, %v", ok, err)
	}
	ok, err = store.Contains(models.ModelSkipGram, "zebra")
	if err != nil || ok {
		t.Errorf("zebra: %v, %v", ok, err)
	}
	if _, err := store.Contains(models.ModelType("glove"), "cat"); !errors.Is(err, models.ErrUnknownModel) {
		t.Errorf("expected ErrUnknownModel, got %v", err)
	}
}

func TestStore_ModelForPath(t *testing.T) {
	paths := fixtures.WriteModels(t, t.TempDir(), fixtures.Options{})
	store := embedding.NewStore(paths)
	if mt, ok := store.ModelForPath(paths.SkipGram); !ok || mt != models.ModelSkipGram {
		t.Errorf("ModelForPath(skipgram) = %s, %v", mt, ok)
	}
	if _, ok := store.ModelForPath(paths.Lexicon); ok {
		t.Error("lexicon is not a model")
	}
}
