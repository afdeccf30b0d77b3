package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/embex/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "lexicon.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorage_Frequencies(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.ReplaceFrequencies(ctx, map[string]int{"cat": 10, "dog": 7}); err != nil {
		t.Fatal(err)
	}
	freqs, err := store.Frequencies(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(freqs) != 2 || freqs["cat"] != 10 || freqs["dog"] != 7 {
		t.Errorf("frequencies = %v", freqs)
	}

	if err := store.UpsertFrequencies(ctx, map[string]int{"dog": 9, "fish": 1}); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.Frequency(ctx, "dog"); n != 9 {
		t.Errorf("dog after upsert = %d, want 9", n)
	}
	if n, _ := store.Frequency(ctx, "cat"); n != 10 {
		t.Errorf("cat should survive upsert, got %d", n)
	}
	if n, err := store.Frequency(ctx, "emu"); err != nil || n != 0 {
		t.Errorf("unknown word = %d, %v; want 0, nil", n, err)
	}

	if err := store.ReplaceFrequencies(ctx, map[string]int{"bird": 2}); err != nil {
		t.Fatal(err)
	}
	count, err := store.CountWords(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("replace should drop old rows, count = %d", count)
	}
}

func TestSQLiteStorage_Builds(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := &models.Build{Model: models.ModelTFIDF, VocabSize: 100, Dimensions: 20, Documents: 5,
		CreatedAt: time.Now().Add(-time.Hour).UTC()}
	if err := store.RecordBuild(ctx, older); err != nil {
		t.Fatal(err)
	}
	if older.ID == "" {
		t.Error("RecordBuild should assign an ID")
	}
	newer := &models.Build{Model: models.ModelTFIDF, VocabSize: 120, Dimensions: 20, Documents: 6}
	if err := store.RecordBuild(ctx, newer); err != nil {
		t.Fatal(err)
	}

	builds, err := store.RecentBuilds(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(builds) != 2 {
		t.Fatalf("expected 2 builds, got %d", len(builds))
	}
	if builds[0].ID != newer.ID {
		t.Errorf("newest build should come first, got %s", builds[0].ID)
	}
	if builds[1].Model != models.ModelTFIDF || builds[1].VocabSize != 100 {
		t.Errorf("older build = %+v", builds[1])
	}
}
