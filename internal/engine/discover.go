package engine

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/IshaanNene/NewsHarvest/internal/fetcher"
	"github.com/IshaanNene/NewsHarvest/internal/observability"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// Candidate is an article URL found on an index page.
type Candidate struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// Discoverer finds candidate article links on index pages.
type Discoverer struct {
	fetcher  fetcher.Fetcher
	patterns []*regexp.Regexp
	timeout  time.Duration
	robots   *RobotsPolicy // nil ignores robots.txt
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewDiscoverer creates a discoverer that keeps URLs matching any of patterns.
// timeout bounds the index page fetch.
func NewDiscoverer(f fetcher.Fetcher, patterns []*regexp.Regexp, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Discoverer {
	return &Discoverer{
		fetcher:  f,
		patterns: patterns,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger.With("component", "discoverer"),
	}
}

// anchor is a link and its visible text, from HTML or a feed item.
type anchor struct {
	href string
	text string
}

// Discover fetches indexURL and returns the article links on it in document
// order, canonicalized and de-duplicated. When keyword is non-empty only
// links whose text contains it (case-sensitive) are kept.
func (d *Discoverer) Discover(ctx context.Context, indexURL, keyword string) ([]Candidate, error) {
	req, err := types.NewRequest(indexURL)
	if err != nil {
		return nil, &types.CrawlError{URL: indexURL, Class: types.ClassInvalidURL, Err: err}
	}
	req.Tag = types.TagIndex
	req.Timeout = d.timeout

	start := time.Now()
	resp, err := d.fetcher.Fetch(ctx, req)
	if err != nil {
		d.metrics.ObserveFetch(fetchResult(err), time.Since(start))
		d.logger.Error("index page fetch failed", "url", indexURL, "error", err)
		class := types.ClassNetwork
		if ctx.Err() != nil {
			class = types.ClassCancelled
		}
		return nil, &types.CrawlError{URL: indexURL, Class: class, Err: err}
	}
	d.metrics.ObserveFetch("ok", resp.FetchDuration)

	base, err := url.Parse(resp.FinalURL)
	if err != nil {
		base = req.URL
	}

	anchors, err := d.anchors(resp)
	if err != nil {
		return nil, &types.CrawlError{URL: indexURL, Class: types.ClassExtraction, Err: err}
	}

	seen := newURLSet(len(anchors))
	var candidates []Candidate
	disallowed := 0
	for _, a := range anchors {
		if keyword != "" && !strings.Contains(a.text, keyword) {
			continue
		}
		link, ok := d.resolve(base, a.href)
		if !ok || !seen.Add(link) {
			continue
		}
		if d.robots != nil && !d.robots.Allowed(ctx, link) {
			disallowed++
			continue
		}
		candidates = append(candidates, Candidate{URL: link, Text: a.text})
	}

	d.metrics.CandidatesFound(len(candidates))
	d.logger.Info("candidates discovered",
		"url", indexURL,
		"anchors", len(anchors),
		"count", len(candidates),
		"disallowed", disallowed,
		"keyword", keyword,
	)
	return candidates, nil
}

// anchors extracts links from an HTML page or an RSS/Atom feed.
func (d *Discoverer) anchors(resp *types.Response) ([]anchor, error) {
	if resp.IsFeed() {
		feed, err := gofeed.NewParser().ParseString(string(resp.Body))
		if err == nil {
			out := make([]anchor, 0, len(feed.Items))
			for _, item := range feed.Items {
				out = append(out, anchor{href: item.Link, text: strings.TrimSpace(item.Title)})
			}
			return out, nil
		}
		d.logger.Debug("feed parse failed, scanning as html", "url", resp.FinalURL, "error", err)
	}

	doc, err := resp.Document()
	if err != nil {
		return nil, err
	}
	var out []anchor
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		out = append(out, anchor{href: href, text: strings.TrimSpace(sel.Text())})
	})
	return out, nil
}

// resolve turns href into a canonical absolute URL and checks it against
// the article patterns.
func (d *Discoverer) resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	link, err := CanonicalizeURL(base.ResolveReference(ref).String())
	if err != nil {
		return "", false
	}

	for _, re := range d.patterns {
		if re.MatchString(link) {
			return link, true
		}
	}
	return "", false
}
