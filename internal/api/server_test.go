package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/IshaanNene/NewsHarvest/internal/engine"
	"github.com/IshaanNene/NewsHarvest/internal/history"
	"github.com/IshaanNene/NewsHarvest/internal/storage"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

type fakeCrawler struct {
	singleErr   error
	batchErr    error
	lastMode    engine.Mode
	lastUser    string
	lastKeyword string
	articles    map[string]*types.Article
	stats       engine.Stats
}

func (f *fakeCrawler) CrawlSingle(_ context.Context, initiator, rawURL string) (*types.Article, error) {
	f.lastUser = initiator
	if f.singleErr != nil {
		return nil, f.singleErr
	}
	return &types.Article{ID: "a1", URL: rawURL, Title: "标题"}, nil
}

func (f *fakeCrawler) outcome(entry, keyword string) *engine.BatchOutcome {
	return &engine.BatchOutcome{
		EntryURL: entry,
		Keyword:  keyword,
		Result: &engine.BatchResult{
			Succeeded: []*types.Article{{URL: "https://example.com/1", Title: "one"}},
			Failed: []engine.Failure{{
				URL: "https://example.com/2",
				Err: &types.CrawlError{URL: "https://example.com/2", Class: types.ClassNetwork, Err: errors.New("timeout")},
			}},
		},
		Summary: engine.Summary{Count: 1, FailedCount: 1, SampleURLs: []string{"https://example.com/1"}, SampleTitles: []string{"one"}},
		History: &types.HistoryEntry{ID: "h1"},
	}
}

func (f *fakeCrawler) CrawlIndex(_ context.Context, initiator, indexURL string) (*engine.BatchOutcome, error) {
	f.lastUser = initiator
	if f.batchErr != nil {
		return &engine.BatchOutcome{History: &types.HistoryEntry{ID: "h-fail"}}, f.batchErr
	}
	return f.outcome(indexURL, ""), nil
}

func (f *fakeCrawler) CrawlKeyword(_ context.Context, initiator, keyword, indexURL string) (*engine.BatchOutcome, error) {
	f.lastUser = initiator
	f.lastKeyword = keyword
	if keyword == "" {
		return nil, types.ErrEmptyKeyword
	}
	return f.outcome(indexURL, keyword), nil
}

func (f *fakeCrawler) Trigger(_ context.Context, initiator string, mode engine.Mode) (*engine.BatchOutcome, error) {
	f.lastUser = initiator
	f.lastMode = mode
	return f.outcome("https://news.sina.com.cn/", ""), nil
}

func (f *fakeCrawler) FindArticle(_ context.Context, rawURL string) (*types.Article, error) {
	if a, ok := f.articles[rawURL]; ok {
		return a, nil
	}
	return nil, types.ErrNotFound
}

func (f *fakeCrawler) BatchArticles(_ context.Context, batchID string) ([]*types.Article, error) {
	var out []*types.Article
	for _, a := range f.articles {
		if a.BatchID == batchID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeCrawler) Stats() *engine.Stats { return &f.stats }

func newTestServer(c *fakeCrawler) (*Server, *history.Recorder) {
	rec := history.NewRecorder(storage.NewMemoryStore(testLogger), testLogger)
	return NewServer(0, c, rec, nil, nil, testLogger), rec
}

func do(t *testing.T, s *Server, method, path, user, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set(DefaultIdentityHeader, user)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec, out
}

func TestHealthNeedsNoIdentity(t *testing.T) {
	s, _ := newTestServer(&fakeCrawler{})
	rec, body := do(t, s, "GET", "/api/health", "", "")
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", rec.Code, body)
	}
}

func TestMissingIdentityIsRejected(t *testing.T) {
	s, _ := newTestServer(&fakeCrawler{})
	rec, _ := do(t, s, "POST", "/api/crawl/single", "", `{"url":"https://example.com/a"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestCrawlSingleStatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, http.StatusOK},
		{"invalid url", &types.CrawlError{Class: types.ClassInvalidURL, Err: types.ErrInvalidURL}, http.StatusBadRequest},
		{"network", &types.CrawlError{Class: types.ClassNetwork, Err: &types.FetchError{Kind: types.FetchTimeout}}, http.StatusBadGateway},
		{"extraction", &types.CrawlError{Class: types.ClassExtraction, Err: types.ErrMissingTitle}, http.StatusUnprocessableEntity},
		{"storage", &types.CrawlError{Class: types.ClassStorage, Err: errors.New("disk full")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeCrawler{singleErr: tt.err}
			s, _ := newTestServer(c)
			rec, body := do(t, s, "POST", "/api/crawl/single", "alice", `{"url":"https://example.com/a"}`)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%v)", rec.Code, tt.want, body)
			}
			if c.lastUser != "alice" {
				t.Errorf("initiator = %q, want alice", c.lastUser)
			}
		})
	}
}

func TestCrawlSingleBadJSON(t *testing.T) {
	s, _ := newTestServer(&fakeCrawler{})
	rec, _ := do(t, s, "POST", "/api/crawl/single", "alice", `{`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestBatchResponseShape(t *testing.T) {
	s, _ := newTestServer(&fakeCrawler{})
	rec, body := do(t, s, "POST", "/api/crawl/from-index", "alice", `{"url":"https://news.sina.com.cn/"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["crawledCount"] != float64(1) || body["failedCount"] != float64(1) || body["historyId"] != "h1" {
		t.Errorf("body = %v", body)
	}
	failures, _ := body["failures"].([]any)
	if len(failures) != 1 || failures[0].(map[string]any)["class"] != "network" {
		t.Errorf("failures = %v", body["failures"])
	}
}

func TestBatchDiscoveryFailureIs502(t *testing.T) {
	c := &fakeCrawler{batchErr: &types.CrawlError{Class: types.ClassNetwork, Err: errors.New("unreachable")}}
	s, _ := newTestServer(c)
	rec, body := do(t, s, "POST", "/api/crawl/from-index", "alice", `{"url":"https://news.sina.com.cn/"}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if body["historyId"] != "h-fail" {
		t.Errorf("failure response should carry the history id: %v", body)
	}
}

func TestCrawlKeyword(t *testing.T) {
	c := &fakeCrawler{}
	s, _ := newTestServer(c)

	rec, body := do(t, s, "POST", "/api/crawl/by-keyword", "alice", `{"keyword":"AI"}`)
	if rec.Code != http.StatusOK || body["keyword"] != "AI" {
		t.Errorf("keyword crawl = %d %v", rec.Code, body)
	}

	rec, _ = do(t, s, "POST", "/api/crawl/by-keyword", "alice", `{"keyword":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty keyword status = %d, want 400", rec.Code)
	}
}

func TestManualTrigger(t *testing.T) {
	c := &fakeCrawler{}
	s, _ := newTestServer(c)
	rec, _ := do(t, s, "POST", "/api/scheduled/trigger", "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if c.lastMode != engine.ModeManual || c.lastUser != "alice" {
		t.Errorf("trigger mode=%s user=%q", c.lastMode, c.lastUser)
	}

	rec, body := do(t, s, "GET", "/api/scheduled/status", "alice", "")
	if rec.Code != http.StatusOK || body["schedule"] == nil || body["stats"] == nil {
		t.Errorf("status = %d %v", rec.Code, body)
	}
}

func TestHistoryOwnership(t *testing.T) {
	c := &fakeCrawler{articles: map[string]*types.Article{
		"https://example.com/1": {URL: "https://example.com/1", BatchID: "b1"},
	}}
	s, rec := newTestServer(c)
	ctx := context.Background()
	if _, err := rec.Record(ctx, history.Draft{ID: "b1", InitiatorID: "alice", Kind: types.KindIndex}); err != nil {
		t.Fatal(err)
	}

	resp, _ := do(t, s, "GET", "/api/history/b1/news", "bob", "")
	if resp.Code != http.StatusForbidden {
		t.Errorf("foreign news lookup = %d, want 403", resp.Code)
	}
	resp, body := do(t, s, "GET", "/api/history/b1/news", "alice", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("news lookup = %d", resp.Code)
	}
	if arts, _ := body["articles"].([]any); len(arts) != 1 {
		t.Errorf("articles = %v", body["articles"])
	}

	resp, _ = do(t, s, "DELETE", "/api/history/b1", "bob", "")
	if resp.Code != http.StatusForbidden {
		t.Errorf("foreign delete = %d, want 403", resp.Code)
	}
	resp, _ = do(t, s, "DELETE", "/api/history/b1", "alice", "")
	if resp.Code != http.StatusOK {
		t.Errorf("owner delete = %d, want 200", resp.Code)
	}
	resp, _ = do(t, s, "DELETE", "/api/history/b1", "alice", "")
	if resp.Code != http.StatusNotFound {
		t.Errorf("repeat delete = %d, want 404", resp.Code)
	}

	list := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/history", nil)
	req.Header.Set(DefaultIdentityHeader, "alice")
	s.Handler().ServeHTTP(list, req)
	if strings.TrimSpace(list.Body.String()) != "[]" {
		t.Errorf("history list = %s, want []", list.Body.String())
	}
}

func TestFindNewsDecodesTwiceEncodedURL(t *testing.T) {
	target := "https://example.com/a?x=1"
	c := &fakeCrawler{articles: map[string]*types.Article{target: {URL: target, Title: "found"}}}
	s, _ := newTestServer(c)

	path := "/api/news?url=" + url.QueryEscape(url.QueryEscape(target))
	rec, body := do(t, s, "GET", path, "alice", "")
	if rec.Code != http.StatusOK || body["title"] != "found" {
		t.Errorf("lookup = %d %v", rec.Code, body)
	}

	rec, _ = do(t, s, "GET", "/api/news?url="+url.QueryEscape("https://example.com/none"), "alice", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing article = %d, want 404", rec.Code)
	}
	rec, _ = do(t, s, "GET", "/api/news", "alice", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing url = %d, want 400", rec.Code)
	}
}
