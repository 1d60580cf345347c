package parser

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/NewsHarvest/internal/config"
	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// ArticleParser extracts articles using the selectors of a site profile.
type ArticleParser struct {
	site     config.SiteConfig
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewArticleParser creates a parser for the given site profile.
func NewArticleParser(site config.SiteConfig, logger *slog.Logger) *ArticleParser {
	return &ArticleParser{
		site:     site,
		location: site.Location(),
		now:      time.Now,
		logger:   logger.With("component", "article_parser"),
	}
}

// Parse implements Parser.
func (p *ArticleParser) Parse(doc *goquery.Document, sourceURL string) (*ParsedArticle, error) {
	if doc == nil || len(doc.Nodes) == 0 {
		return nil, &types.ExtractionError{
			URL:    sourceURL,
			Reason: types.ReasonBadDocument,
			Err:    fmt.Errorf("empty document"),
		}
	}

	title := firstText(doc.Selection, p.site.TitleSelectors)
	if title == "" {
		return nil, &types.ExtractionError{
			URL:    sourceURL,
			Reason: types.ReasonMissingTitle,
			Err:    types.ErrMissingTitle,
		}
	}

	source := firstText(doc.Selection, p.site.SourceSelectors)
	if source == "" {
		source = types.UnknownSource
	}

	rawTime := firstText(doc.Selection, p.site.TimeSelectors)

	content, missing := p.extractContent(doc)
	if missing {
		p.logger.Warn("article body not found", "url", sourceURL)
		content = types.ContentExtractionFailed
	}

	root := doc.Nodes[0]
	keywords := splitKeywords(metaContent(root, p.site.KeywordsMeta))
	publishedMeta := metaContent(root, p.site.PublishedMeta)

	publishTime, timeSource := p.ResolvePublishTime(rawTime, publishedMeta, sourceURL)

	return &ParsedArticle{
		Title:             title,
		Source:            source,
		RawPublishTime:    rawTime,
		PublishTime:       publishTime,
		PublishTimeSource: timeSource,
		Content:           content,
		ContentMissing:    missing,
		Keywords:          keywords,
	}, nil
}

// extractContent returns the sanitized inner HTML of the first matching
// body selector. The second result is true when no usable body exists.
func (p *ArticleParser) extractContent(doc *goquery.Document) (string, bool) {
	for _, selector := range p.site.ContentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		html, err := sanitize(sel, p.site.RemoveSelectors, p.site.WidgetMarkerSelectors)
		if err != nil || strings.TrimSpace(html) == "" {
			continue
		}
		return strings.TrimSpace(html), false
	}
	return "", true
}

// firstText returns the trimmed text of the first selector that yields a
// non-empty match.
func firstText(sel *goquery.Selection, selectors []string) string {
	for _, s := range selectors {
		if text := strings.TrimSpace(sel.Find(s).First().Text()); text != "" {
			return text
		}
	}
	return ""
}
