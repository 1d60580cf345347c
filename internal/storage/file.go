package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/IshaanNene/NewsHarvest/internal/types"
)

const (
	articlesFile = "articles.jsonl"
	historyFile  = "history.jsonl"

	maxLineSize = 16 * 1024 * 1024
)

// FileStore keeps the working set in memory and persists it as
// newline-delimited JSON under a data directory. Articles are append-only;
// the history file is rewritten when an entry is deleted.
type FileStore struct {
	*MemoryStore

	dir      string
	mu       sync.Mutex // serializes file writes
	articles *os.File
	history  *os.File
	logger   *slog.Logger
}

// NewFileStore opens (or creates) the data directory and replays its files.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "file", Err: fmt.Errorf("create data dir: %w", err)}
	}

	s := &FileStore{
		MemoryStore: NewMemoryStore(logger),
		dir:         dir,
		logger:      logger.With("component", "file_storage"),
	}

	articles, err := s.replayArticles()
	if err != nil {
		return nil, err
	}
	entries, err := s.replayHistory()
	if err != nil {
		return nil, err
	}

	s.articles, err = openAppend(filepath.Join(dir, articlesFile))
	if err != nil {
		return nil, err
	}
	s.history, err = openAppend(filepath.Join(dir, historyFile))
	if err != nil {
		s.articles.Close()
		return nil, err
	}

	s.logger.Info("file storage opened", "dir", dir, "articles", articles, "history", entries)
	return s, nil
}

func (s *FileStore) Name() string { return "file" }

// Save stores the article in memory and appends it to the articles file.
func (s *FileStore) Save(ctx context.Context, article *types.Article) (*types.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved, err := s.MemoryStore.Save(ctx, article)
	if err != nil {
		return nil, err
	}
	if err := appendLine(s.articles, saved); err != nil {
		s.MemoryStore.removeArticle(saved.URL)
		return nil, &types.StorageError{Backend: "file", Err: err}
	}
	return saved, nil
}

// Insert records the entry and appends it to the history file.
func (s *FileStore) Insert(ctx context.Context, entry *types.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := appendLine(s.history, entry); err != nil {
		return &types.StorageError{Backend: "file", Err: err}
	}
	return s.MemoryStore.Insert(ctx, entry)
}

// Delete removes the entry and rewrites the history file without it.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.MemoryStore.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.rewriteHistory(); err != nil {
		return &types.StorageError{Backend: "file", Err: err}
	}
	return nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("file storage closing", "dir", s.dir, "total_articles", s.Count())
	return errors.Join(s.articles.Close(), s.history.Close())
}

// rewriteHistory replaces the history file with the current entries.
func (s *FileStore) rewriteHistory() error {
	path := filepath.Join(s.dir, historyFile)
	tmp, err := os.CreateTemp(s.dir, historyFile+".*")
	if err != nil {
		return fmt.Errorf("create temp history: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, e := range s.MemoryStore.historySnapshot() {
		if err := enc.Encode(e); err != nil {
			tmp.Close()
			return fmt.Errorf("encode history: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := s.history.Close(); err != nil {
		s.logger.Warn("closing old history file", "error", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	s.history, err = openAppend(path)
	return err
}

func (s *FileStore) replayArticles() (int, error) {
	n := 0
	err := scanLines(filepath.Join(s.dir, articlesFile), s.logger, func(line []byte) error {
		var a types.Article
		if err := json.Unmarshal(line, &a); err != nil {
			return err
		}
		if _, err := s.MemoryStore.Save(context.Background(), &a); err != nil && !errors.Is(err, types.ErrDuplicateURL) {
			return err
		}
		n++
		return nil
	})
	return n, err
}

func (s *FileStore) replayHistory() (int, error) {
	n := 0
	err := scanLines(filepath.Join(s.dir, historyFile), s.logger, func(line []byte) error {
		var e types.HistoryEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		n++
		return s.MemoryStore.Insert(context.Background(), &e)
	})
	return n, err
}

// scanLines calls fn for every non-empty line of path. Lines fn rejects are
// logged and skipped so a torn final write does not block startup.
func scanLines(path string, logger *slog.Logger, fn func([]byte) error) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &types.StorageError{Backend: "file", Err: err}
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line); err != nil {
			logger.Warn("skipping unreadable record", "file", filepath.Base(path), "line", lineNo, "error", err)
		}
	}
	if err := sc.Err(); err != nil {
		return &types.StorageError{Backend: "file", Err: fmt.Errorf("read %s: %w", filepath.Base(path), err)}
	}
	return nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, &types.StorageError{Backend: "file", Err: err}
	}
	return f, nil
}

func appendLine(f *os.File, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	_, err = f.Write(append(line, '\n'))
	return err
}
