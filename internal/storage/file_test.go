package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/IshaanNene/NewsHarvest/internal/config"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewFileStore(dir, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	published := time.Date(2024, 3, 5, 10, 15, 0, 0, time.UTC)
	if _, err := s.Save(ctx, &types.Article{
		ID: "a1", URL: "https://example.com/a", Title: "标题", Source: "新华社",
		PublishTime: published, PublishTimeSource: types.PublishTimeByline,
		Keywords: []string{"两会"}, BatchID: "b1",
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(ctx, &types.Article{ID: "a2", URL: "https://example.com/a"}); !errors.Is(err, types.ErrDuplicateURL) {
		t.Errorf("duplicate save = %v, want ErrDuplicateURL", err)
	}
	for i, id := range []string{"h1", "h2"} {
		entry := &types.HistoryEntry{
			ID: id, InitiatorID: "alice", Kind: types.KindIndex,
			Timestamp: published.Add(time.Duration(i) * time.Minute), Success: true,
		}
		if err := s.Insert(ctx, entry); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Delete(ctx, "h1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewFileStore(dir, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, err := reopened.FindByURL(ctx, "https://example.com/a")
	if err != nil {
		t.Fatalf("article lost across reopen: %v", err)
	}
	if got.ID != "a1" || got.Title != "标题" || !got.PublishTime.Equal(published) || got.Keywords[0] != "两会" {
		t.Errorf("reloaded article = %+v", got)
	}
	batch, _ := reopened.FindByBatch(ctx, "b1")
	if len(batch) != 1 {
		t.Errorf("batch lookup = %d articles, want 1", len(batch))
	}

	entries, err := reopened.ListByInitiator(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != "h2" {
		t.Errorf("history after reopen = %+v, want only h2", entries)
	}
	if _, err := reopened.Get(ctx, "h1"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("deleted entry came back: %v", err)
	}
}

func TestFileStoreSkipsTornRecord(t *testing.T) {
	dir := t.TempDir()
	content := `{"id":"a1","url":"https://example.com/a","title":"A"}` + "\n" + `{"id":"a2","url":"https://exa`
	if err := os.WriteFile(filepath.Join(dir, articlesFile), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := NewFileStore(dir, testLogger)
	if err != nil {
		t.Fatalf("open with torn record: %v", err)
	}
	defer s.Close()
	if s.Count() != 1 {
		t.Errorf("count = %d, want 1", s.Count())
	}
}

func TestNewSelectsFileBackend(t *testing.T) {
	cfg := config.DefaultConfig().Storage
	cfg.Type = "file"
	cfg.Path = t.TempDir()

	s, err := New(context.Background(), cfg, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if s.Name() != "file" {
		t.Errorf("name = %q, want file", s.Name())
	}
}
