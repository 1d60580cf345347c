package history

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/IshaanNene/NewsHarvest/internal/storage"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestRecordSuccess(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder(storage.NewMemoryStore(testLogger), testLogger)

	entry, err := r.Record(ctx, Draft{
		InitiatorID: "alice",
		Kind:        types.KindIndex,
		TargetURL:   "https://news.sina.com.cn/",
		Title:       "index crawl",
		Params:      map[string]any{"totalCount": 3, "sampleUrls": []string{"a", "b"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if entry.ID == "" {
		t.Error("expected generated id")
	}
	if !entry.Success || entry.Error != "" {
		t.Errorf("expected success entry, got %+v", entry)
	}

	params, err := entry.DecodeParams()
	if err != nil {
		t.Fatal(err)
	}
	if params["totalCount"] != float64(3) {
		t.Errorf("totalCount = %v", params["totalCount"])
	}
}

func TestRecordFailureKeepsErrorText(t *testing.T) {
	r := NewRecorder(storage.NewMemoryStore(testLogger), testLogger)

	entry, err := r.Record(context.Background(), Draft{
		ID:          "fixed-id",
		InitiatorID: "system",
		Kind:        types.KindScheduled,
		Err:         errors.New("entry page unreachable"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if entry.ID != "fixed-id" {
		t.Errorf("id = %q, want preallocated id", entry.ID)
	}
	if entry.Success || entry.Error != "entry page unreachable" {
		t.Errorf("unexpected outcome: %+v", entry)
	}
	params, _ := entry.DecodeParams()
	if params["error"] != "entry page unreachable" {
		t.Errorf("params error = %v", params["error"])
	}
}

func TestRecordRejectsUnknownKind(t *testing.T) {
	r := NewRecorder(storage.NewMemoryStore(testLogger), testLogger)
	if _, err := r.Record(context.Background(), Draft{Kind: "BOGUS"}); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder(storage.NewMemoryStore(testLogger), testLogger)

	entry, err := r.Record(ctx, Draft{InitiatorID: "alice", Kind: types.KindSingle})
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Delete(ctx, "bob", entry.ID); !errors.Is(err, types.ErrForbidden) {
		t.Errorf("delete by non-owner = %v, want ErrForbidden", err)
	}
	if err := r.Delete(ctx, "alice", entry.ID); err != nil {
		t.Errorf("delete by owner: %v", err)
	}
	if err := r.Delete(ctx, "alice", entry.ID); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}

	list, _ := r.List(ctx, "alice")
	if len(list) != 0 {
		t.Errorf("expected no entries left, got %d", len(list))
	}
}
