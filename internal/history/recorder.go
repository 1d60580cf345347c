// Package history records one entry per crawl invocation and serves them
// back to their owners.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/NewsHarvest/internal/storage"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// Draft describes a history entry before it is persisted.
type Draft struct {
	// ID is optional. Batches allocate it up front so that the articles they
	// create can point back at the entry.
	ID          string
	InitiatorID string
	Kind        types.CrawlKind
	TargetURL   string
	Title       string
	Params      map[string]any

	// Err is the outcome. A nil Err records a successful invocation.
	Err error
}

// Recorder builds history entries and writes them to a HistoryStore.
type Recorder struct {
	store  storage.HistoryStore
	now    func() time.Time
	logger *slog.Logger
}

// NewRecorder creates a recorder backed by store.
func NewRecorder(store storage.HistoryStore, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		now:    time.Now,
		logger: logger.With("component", "history"),
	}
}

// Record persists d as a new entry. The params payload is serialized to an
// opaque JSON string; the outcome error text is copied into it.
func (r *Recorder) Record(ctx context.Context, d Draft) (*types.HistoryEntry, error) {
	if !d.Kind.Valid() {
		return nil, fmt.Errorf("unknown crawl kind %q", d.Kind)
	}

	params := make(map[string]any, len(d.Params)+1)
	for k, v := range d.Params {
		params[k] = v
	}
	entry := &types.HistoryEntry{
		ID:          d.ID,
		InitiatorID: d.InitiatorID,
		Kind:        d.Kind,
		TargetURL:   d.TargetURL,
		Title:       d.Title,
		Timestamp:   r.now(),
		Success:     d.Err == nil,
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if d.Err != nil {
		entry.Error = d.Err.Error()
		params["error"] = entry.Error
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode history params: %w", err)
	}
	entry.Params = string(raw)

	if err := r.store.Insert(ctx, entry); err != nil {
		return nil, err
	}

	r.logger.Info("history recorded",
		"id", entry.ID,
		"kind", entry.Kind,
		"initiator", entry.InitiatorID,
		"success", entry.Success,
	)
	return entry, nil
}

// List returns the initiator's entries, newest first.
func (r *Recorder) List(ctx context.Context, initiatorID string) ([]*types.HistoryEntry, error) {
	return r.store.ListByInitiator(ctx, initiatorID)
}

// Get returns an entry owned by initiatorID. Entries owned by someone else
// yield types.ErrForbidden.
func (r *Recorder) Get(ctx context.Context, initiatorID, id string) (*types.HistoryEntry, error) {
	entry, err := r.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.InitiatorID != initiatorID {
		return nil, types.ErrForbidden
	}
	return entry, nil
}

// Delete removes an entry owned by initiatorID.
func (r *Recorder) Delete(ctx context.Context, initiatorID, id string) error {
	if _, err := r.Get(ctx, initiatorID, id); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, id); err != nil && !errors.Is(err, types.ErrNotFound) {
		return err
	}
	r.logger.Info("history deleted", "id", id, "initiator", initiatorID)
	return nil
}
