package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/IshaanNene/NewsHarvest/internal/config"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestMemoryStoreSaveAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(testLogger)

	if _, err := s.FindByURL(ctx, "https://example.com/a"); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	in := &types.Article{ID: "1", URL: "https://example.com/a", Title: "A", Keywords: []string{"x"}}
	if _, err := s.Save(ctx, in); err != nil {
		t.Fatal(err)
	}

	// Mutating the caller's copy must not reach the store.
	in.Title = "changed"
	in.Keywords[0] = "changed"

	got, err := s.FindByURL(ctx, "https://example.com/a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "A" || got.Keywords[0] != "x" {
		t.Errorf("stored record was mutated: %+v", got)
	}
}

func TestMemoryStoreRejectsDuplicateURL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(testLogger)

	var wg sync.WaitGroup
	var mu sync.Mutex
	dupes := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Save(ctx, &types.Article{URL: "https://example.com/same"})
			if errors.Is(err, types.ErrDuplicateURL) {
				mu.Lock()
				dupes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if s.Count() != 1 {
		t.Errorf("count = %d, want 1", s.Count())
	}
	if dupes != 7 {
		t.Errorf("duplicates = %d, want 7", dupes)
	}
}

func TestMemoryStoreFindByBatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(testLogger)
	s.Save(ctx, &types.Article{URL: "u1", BatchID: "b1"})
	s.Save(ctx, &types.Article{URL: "u2", BatchID: "b2"})
	s.Save(ctx, &types.Article{URL: "u3", BatchID: "b1"})

	got, err := s.FindByBatch(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].URL != "u1" || got[1].URL != "u3" {
		t.Errorf("FindByBatch = %+v", got)
	}
}

func TestMemoryStoreHistory(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(testLogger)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Insert(ctx, &types.HistoryEntry{ID: "h1", InitiatorID: "alice", Timestamp: base})
	s.Insert(ctx, &types.HistoryEntry{ID: "h2", InitiatorID: "alice", Timestamp: base.Add(time.Hour)})
	s.Insert(ctx, &types.HistoryEntry{ID: "h3", InitiatorID: "bob", Timestamp: base})

	list, err := s.ListByInitiator(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "h2" {
		t.Errorf("expected newest-first alice entries, got %+v", list)
	}

	if err := s.Delete(ctx, "h1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "h1"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "h1"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	s, err := New(context.Background(), config.StorageConfig{Type: "memory"}, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != "memory" {
		t.Errorf("name = %q, want memory", s.Name())
	}
	if _, err := New(context.Background(), config.StorageConfig{Type: "csv"}, testLogger); err == nil {
		t.Error("expected error for unsupported backend")
	}
}
