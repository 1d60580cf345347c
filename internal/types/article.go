package types

import (
	"time"
)

// UnknownSource is stored when the byline carries no source label.
const UnknownSource = "unknown"

// ContentExtractionFailed is stored when the article body could not be located.
const ContentExtractionFailed = "extraction failed"

// PublishTimeSource records which step of the fallback chain produced a publish time.
type PublishTimeSource string

const (
	PublishTimeByline    PublishTimeSource = "byline"
	PublishTimeMeta      PublishTimeSource = "meta"
	PublishTimeFetchTime PublishTimeSource = "fetch_time"
)

// Article is one crawled news item. It is created once per canonical URL
// and never modified afterwards.
type Article struct {
	ID                string            `json:"id"                  bson:"_id"`
	URL               string            `json:"url"                 bson:"url"`
	Title             string            `json:"title"               bson:"title"`
	Source            string            `json:"source"              bson:"source"`
	PublishTime       time.Time         `json:"publish_time"        bson:"publish_time"`
	PublishTimeSource PublishTimeSource `json:"publish_time_source" bson:"publish_time_source"`
	Content           string            `json:"content"             bson:"content"`
	ContentMissing    bool              `json:"content_missing"     bson:"content_missing"`
	Keywords          []string          `json:"keywords"            bson:"keywords"`
	FetchTime         time.Time         `json:"fetch_time"          bson:"fetch_time"`

	// BatchID points at the history entry of the batch that created the
	// article. It is empty for articles created outside a batch.
	BatchID string `json:"batch_id,omitempty" bson:"batch_id,omitempty"`
}

// Clone returns a deep copy of the article.
func (a *Article) Clone() *Article {
	clone := *a
	clone.Keywords = append([]string(nil), a.Keywords...)
	return &clone
}
