package types

import (
	"encoding/json"
	"time"
)

// CrawlKind identifies the operation that produced a history entry.
type CrawlKind string

const (
	KindSingle    CrawlKind = "SINGLE"
	KindIndex     CrawlKind = "INDEX"
	KindKeyword   CrawlKind = "KEYWORD"
	KindScheduled CrawlKind = "SCHEDULED"
)

// Valid reports whether k is one of the known kinds.
func (k CrawlKind) Valid() bool {
	switch k {
	case KindSingle, KindIndex, KindKeyword, KindScheduled:
		return true
	}
	return false
}

// HistoryEntry records one crawl invocation.
type HistoryEntry struct {
	ID          string    `json:"id"           bson:"_id"`
	InitiatorID string    `json:"initiator_id" bson:"initiator_id"`
	Kind        CrawlKind `json:"kind"         bson:"kind"`
	TargetURL   string    `json:"target_url"   bson:"target_url"`
	Title       string    `json:"title"        bson:"title"`

	// Params is an opaque JSON document (counts, samples, timing, error text).
	Params string `json:"params" bson:"params"`

	Timestamp time.Time `json:"timestamp"       bson:"timestamp"`
	Success   bool      `json:"success"         bson:"success"`
	Error     string    `json:"error,omitempty" bson:"error,omitempty"`
}

// DecodeParams unmarshals Params into a generic map.
func (h *HistoryEntry) DecodeParams() (map[string]any, error) {
	out := make(map[string]any)
	if h.Params == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(h.Params), &out); err != nil {
		return nil, err
	}
	return out, nil
}
