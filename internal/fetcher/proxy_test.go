package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/IshaanNene/NewsHarvest/internal/config"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

func TestProxyRotatorRoundRobin(t *testing.T) {
	pr := NewProxyRotator([]string{"http://p1:3128", "://bad", "http://p2:3128"}, "round_robin", testLogger)
	if pr.Count() != 2 {
		t.Fatalf("count = %d, want 2 (invalid URL skipped)", pr.Count())
	}

	want := []string{"p1:3128", "p2:3128", "p1:3128", "p2:3128"}
	for i, w := range want {
		if got := pr.Next().Host; got != w {
			t.Errorf("pick %d = %s, want %s", i, got, w)
		}
	}
}

func TestProxyRotatorRandomStaysInSet(t *testing.T) {
	pr := NewProxyRotator([]string{"http://p1:3128", "http://p2:3128"}, "random", testLogger)
	for range 20 {
		h := pr.Next().Host
		if h != "p1:3128" && h != "p2:3128" {
			t.Fatalf("unexpected proxy %s", h)
		}
	}
}

func TestProxyRotatorEmptyConnectsDirectly(t *testing.T) {
	pr := NewProxyRotator(nil, "", testLogger)
	u, err := pr.ProxyFunc()(nil)
	if err != nil || u != nil {
		t.Errorf("ProxyFunc() = %v, %v; want nil, nil", u, err)
	}
}

func TestFetchGoesThroughConfiguredProxy(t *testing.T) {
	var mu sync.Mutex
	var proxied []string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		proxied = append(proxied, r.URL.String())
		mu.Unlock()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body><h1>via proxy</h1></body></html>`))
	}))
	defer proxy.Close()

	cfg := config.DefaultConfig()
	cfg.Fetcher.Timeout = 2 * time.Second
	cfg.Fetcher.Proxies = []string{proxy.URL}
	f := NewHTTPFetcher(cfg, testLogger)
	defer f.Close()

	req, err := types.NewRequest("http://news.example.test/c/doc-1.shtml")
	if err != nil {
		t.Fatal(err)
	}
	resp, err := f.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("fetch via proxy: %v", err)
	}
	doc, err := resp.Document()
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Find("h1").Text(); got != "via proxy" {
		t.Errorf("h1 = %q", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(proxied) != 1 || proxied[0] != "http://news.example.test/c/doc-1.shtml" {
		t.Errorf("proxy saw %v", proxied)
	}
}

func TestFetchReplaysSessionCookies(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		if c, err := r.Cookie("SINAGLOBAL"); err == nil {
			seen = append(seen, c.Value)
		} else {
			seen = append(seen, "")
		}
		mu.Unlock()
		http.SetCookie(w, &http.Cookie{Name: "SINAGLOBAL", Value: "abc", Path: "/"})
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html></html>`))
	}))
	defer srv.Close()

	f := newTestFetcher(2 * time.Second)
	defer f.Close()

	for range 2 {
		req, _ := types.NewRequest(srv.URL + "/")
		if _, err := f.Fetch(context.Background(), req); err != nil {
			t.Fatal(err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != "" || seen[1] != "abc" {
		t.Errorf("cookies seen = %q, want [\"\" \"abc\"]", seen)
	}
}
