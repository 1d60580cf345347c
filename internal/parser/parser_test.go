package parser

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/NewsHarvest/internal/config"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const articleHTML = `<!DOCTYPE html>
<html>
<head>
    <title>新浪新闻</title>
    <meta name="keywords" content="人工智能,芯片，科技, ">
    <meta property="article:published_time" content="2024-03-05T09:30:00+08:00">
</head>
<body>
    <h1 class="main-title">AI 芯片取得突破</h1>
    <div class="top-bar-inner">
        <div class="date-source">
            <span class="date">2024年03月05日 10:15</span>
            <a class="source" href="https://example.com">新华社</a>
        </div>
    </div>
    <div id="article">
        <p>正文第一段。</p>
        <p class="show_author">责任编辑：张三</p>
        <div id="ad_top">广告</div>
        <ins class="sinaads">ad</ins>
        <div class="related"><img black-list="y" src="x.png"><a href="#">相关专题</a></div>
        <p>正文第二段。</p>
    </div>
</body>
</html>`

func mustDoc(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func newTestParser(now time.Time) *ArticleParser {
	p := NewArticleParser(config.DefaultConfig().Site, testLogger)
	p.now = func() time.Time { return now }
	return p
}

func TestParseFullArticle(t *testing.T) {
	p := newTestParser(time.Now())
	art, err := p.Parse(mustDoc(t, articleHTML), "https://news.sina.com.cn/c/2024-03-05/doc-abc.shtml")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if art.Title != "AI 芯片取得突破" {
		t.Errorf("title = %q", art.Title)
	}
	if art.Source != "新华社" {
		t.Errorf("source = %q, want 新华社", art.Source)
	}
	if art.RawPublishTime != "2024年03月05日 10:15" {
		t.Errorf("raw time = %q", art.RawPublishTime)
	}

	want := time.Date(2024, 3, 5, 10, 15, 0, 0, time.FixedZone("CST", 8*3600))
	if !art.PublishTime.Equal(want) {
		t.Errorf("publish time = %s, want %s", art.PublishTime, want)
	}
	if art.PublishTimeSource != types.PublishTimeByline {
		t.Errorf("publish time source = %s, want byline", art.PublishTimeSource)
	}

	wantKeywords := []string{"人工智能", "芯片", "科技"}
	if len(art.Keywords) != len(wantKeywords) {
		t.Fatalf("keywords = %v, want %v", art.Keywords, wantKeywords)
	}
	for i, k := range wantKeywords {
		if art.Keywords[i] != k {
			t.Errorf("keywords[%d] = %q, want %q", i, art.Keywords[i], k)
		}
	}

	if art.ContentMissing {
		t.Error("content should not be marked missing")
	}
	if !strings.Contains(art.Content, "正文第一段") || !strings.Contains(art.Content, "正文第二段") {
		t.Errorf("content lost body paragraphs: %q", art.Content)
	}
	for _, junk := range []string{"责任编辑", "广告", "sinaads", "相关专题"} {
		if strings.Contains(art.Content, junk) {
			t.Errorf("content still contains %q", junk)
		}
	}
}

func TestSanitizeLeavesDocumentUntouched(t *testing.T) {
	doc := mustDoc(t, articleHTML)
	before, _ := doc.Find("div#article").Html()

	p := newTestParser(time.Now())
	if _, err := p.Parse(doc, "https://example.com/a"); err != nil {
		t.Fatal(err)
	}

	after, _ := doc.Find("div#article").Html()
	if before != after {
		t.Error("parse modified the source document")
	}
	if doc.Find("p.show_author").Length() != 1 {
		t.Error("boilerplate paragraph removed from source document")
	}
}

func TestSanitizeKeepsBodyWhenMarkerIsDirectChild(t *testing.T) {
	doc := mustDoc(t, `<div id="article"><img black-list="y"><p>保留</p></div>`)
	html, err := sanitize(doc.Find("#article"), nil, []string{"img[black-list=y]"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "保留") {
		t.Errorf("body removed along with marker: %q", html)
	}
	if strings.Contains(html, "black-list") {
		t.Errorf("marker not removed: %q", html)
	}
}

func TestSanitizeRemovesWholeBlockAroundNestedMarker(t *testing.T) {
	doc := mustDoc(t, `<div id="article"><p>keep</p><div class="related"><p><img black-list="y"></p><a href="#">相关专题</a></div><p>tail</p></div>`)
	html, err := sanitize(doc.Find("#article"), nil, []string{"img[black-list=y]"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "相关专题") || strings.Contains(html, "related") {
		t.Errorf("related-topic block survived: %q", html)
	}
	if !strings.Contains(html, "keep") || !strings.Contains(html, "tail") {
		t.Errorf("article paragraphs removed: %q", html)
	}
}

func TestParseMissingTitle(t *testing.T) {
	p := newTestParser(time.Now())
	_, err := p.Parse(mustDoc(t, `<html><head><title>only a title tag</title></head><body><div id="article">x</div></body></html>`), "https://example.com/a")

	var ee *types.ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if ee.Reason != types.ReasonMissingTitle {
		t.Errorf("reason = %s, want missing_title", ee.Reason)
	}
	if !errors.Is(err, types.ErrMissingTitle) {
		t.Error("expected errors.Is(err, ErrMissingTitle)")
	}
}

func TestParseSoftDegradation(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	p := newTestParser(now)

	art, err := p.Parse(mustDoc(t, `<html><body><h1 class="main-title">标题</h1></body></html>`), "https://example.com/a")
	if err != nil {
		t.Fatalf("soft failures must not abort: %v", err)
	}
	if art.Source != types.UnknownSource {
		t.Errorf("source = %q, want %q", art.Source, types.UnknownSource)
	}
	if art.RawPublishTime != "" {
		t.Errorf("raw time = %q, want empty", art.RawPublishTime)
	}
	if !art.ContentMissing || art.Content != types.ContentExtractionFailed {
		t.Errorf("content = %q missing=%v, want sentinel", art.Content, art.ContentMissing)
	}
	if len(art.Keywords) != 0 {
		t.Errorf("keywords = %v, want none", art.Keywords)
	}
	if !art.PublishTime.Equal(now) || art.PublishTimeSource != types.PublishTimeFetchTime {
		t.Errorf("publish time = %s (%s), want clock fallback", art.PublishTime, art.PublishTimeSource)
	}
}

func TestResolvePublishTimeChain(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p := newTestParser(now)
	cst := time.FixedZone("CST", 8*3600)

	tests := []struct {
		name       string
		raw        string
		meta       string
		want       time.Time
		wantSource types.PublishTimeSource
	}{
		{
			name:       "byline",
			raw:        "2024年03月05日 10:15",
			meta:       "2020-01-01T00:00:00+08:00",
			want:       time.Date(2024, 3, 5, 10, 15, 0, 0, cst),
			wantSource: types.PublishTimeByline,
		},
		{
			name:       "byline with trailing text",
			raw:        "2024年03月05日 10:15 新浪网",
			want:       time.Date(2024, 3, 5, 10, 15, 0, 0, cst),
			wantSource: types.PublishTimeByline,
		},
		{
			name:       "malformed byline falls back to meta",
			raw:        "昨天 10:15",
			meta:       "2024-03-05T09:30:00+08:00",
			want:       time.Date(2024, 3, 5, 9, 30, 0, 0, cst),
			wantSource: types.PublishTimeMeta,
		},
		{
			name:       "nothing parses",
			raw:        "garbage",
			meta:       "also garbage",
			want:       now,
			wantSource: types.PublishTimeFetchTime,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, source := p.ResolvePublishTime(tt.raw, tt.meta, "https://example.com/a")
			if !got.Equal(tt.want) {
				t.Errorf("time = %s, want %s", got, tt.want)
			}
			if source != tt.wantSource {
				t.Errorf("source = %s, want %s", source, tt.wantSource)
			}
		})
	}
}

func TestParseMetaFallbackFromDocument(t *testing.T) {
	page := `<html><head><meta property="article:published_time" content="2024-03-05T09:30:00+08:00"></head>
<body><h1 class="main-title">T</h1><div class="date-source"><span class="date">not a date</span></div></body></html>`

	p := newTestParser(time.Now())
	art, err := p.Parse(mustDoc(t, page), "https://example.com/a")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 3, 5, 1, 30, 0, 0, time.UTC)
	if !art.PublishTime.Equal(want) {
		t.Errorf("publish time = %s, want meta timestamp %s", art.PublishTime, want)
	}
}

func TestSplitKeywords(t *testing.T) {
	got := splitKeywords(" a ,b，，c ")
	if strings.Join(got, "|") != "a|b|c" {
		t.Errorf("splitKeywords = %v", got)
	}
	if got := splitKeywords(""); len(got) != 0 {
		t.Errorf("splitKeywords(\"\") = %v, want empty", got)
	}
}
