package parser

import (
	"strings"
	"time"

	"github.com/IshaanNene/NewsHarvest/internal/types"
)

var metaTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05Z07:00",
}

// ResolvePublishTime runs the publish-time fallback chain: the byline string
// in the site layout, then the ISO-8601 meta timestamp, then the current
// time. It never fails; the second result names the step that produced the
// timestamp.
func (p *ArticleParser) ResolvePublishTime(raw, meta, sourceURL string) (time.Time, types.PublishTimeSource) {
	if t, ok := parseByline(raw, p.site.TimeLayout, p.location); ok {
		return t, types.PublishTimeByline
	}

	if t, ok := parseMetaTime(meta); ok {
		return t, types.PublishTimeMeta
	}

	now := p.now()
	p.logger.Warn("publish time unresolved, using current time",
		"url", sourceURL,
		"raw", raw,
		"meta", meta,
	)
	return now, types.PublishTimeFetchTime
}

// parseByline parses raw with layout. Bylines often carry trailing text after
// the timestamp, so a prefix as long as the formatted layout is tried too.
func parseByline(raw, layout string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || layout == "" {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
		return t, true
	}

	width := len(time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC).Format(layout))
	if len(raw) > width {
		if t, err := time.ParseInLocation(layout, raw[:width], loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseMetaTime(meta string) (time.Time, bool) {
	meta = strings.TrimSpace(meta)
	if meta == "" {
		return time.Time{}, false
	}
	for _, layout := range metaTimeLayouts {
		if t, err := time.Parse(layout, meta); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
