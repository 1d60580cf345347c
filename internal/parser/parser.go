package parser

import (
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// Parser extracts one article from a fetched document.
type Parser interface {
	// Parse extracts the article fields from doc. sourceURL is only used
	// for error reporting and logging.
	Parse(doc *goquery.Document, sourceURL string) (*ParsedArticle, error)
}

// ParsedArticle is the parser's view of an article page, before it is
// turned into a stored types.Article.
type ParsedArticle struct {
	Title  string
	Source string

	// RawPublishTime is the byline time string as found on the page.
	RawPublishTime    string
	PublishTime       time.Time
	PublishTimeSource types.PublishTimeSource

	Content        string
	ContentMissing bool
	Keywords       []string
}
