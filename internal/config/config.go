package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for NewsHarvest.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"   yaml:"engine"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"  yaml:"fetcher"`
	Site     SiteConfig     `mapstructure:"site"     yaml:"site"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// EngineConfig controls batch crawling.
type EngineConfig struct {
	Concurrency     int           `mapstructure:"concurrency"      yaml:"concurrency"`
	PolitenessDelay time.Duration `mapstructure:"politeness_delay" yaml:"politeness_delay"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"    yaml:"batch_timeout"`
	SampleSize      int           `mapstructure:"sample_size"      yaml:"sample_size"`
	// RespectRobots skips candidates disallowed by the site's robots.txt.
	RespectRobots bool `mapstructure:"respect_robots" yaml:"respect_robots"`
}

// FetcherConfig controls the HTTP fetcher.
type FetcherConfig struct {
	UserAgent       string        `mapstructure:"user_agent"        yaml:"user_agent"`
	AcceptLanguage  string        `mapstructure:"accept_language"   yaml:"accept_language"`
	Timeout         time.Duration `mapstructure:"timeout"           yaml:"timeout"`
	IndexTimeout    time.Duration `mapstructure:"index_timeout"     yaml:"index_timeout"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	Proxies         []string      `mapstructure:"proxies"           yaml:"proxies"`
	ProxyRotation   string        `mapstructure:"proxy_rotation"    yaml:"proxy_rotation"` // round_robin, random
}

// SiteConfig is the extraction profile for the harvested site.
type SiteConfig struct {
	EntryURL        string   `mapstructure:"entry_url"        yaml:"entry_url"`
	ArticlePatterns []string `mapstructure:"article_patterns" yaml:"article_patterns"`

	TitleSelectors   []string `mapstructure:"title_selectors"   yaml:"title_selectors"`
	SourceSelectors  []string `mapstructure:"source_selectors"  yaml:"source_selectors"`
	TimeSelectors    []string `mapstructure:"time_selectors"    yaml:"time_selectors"`
	ContentSelectors []string `mapstructure:"content_selectors" yaml:"content_selectors"`

	// RemoveSelectors are deleted from the cloned article body.
	RemoveSelectors []string `mapstructure:"remove_selectors" yaml:"remove_selectors"`
	// WidgetMarkerSelectors mark elements whose enclosing top-level block is deleted from the body.
	WidgetMarkerSelectors []string `mapstructure:"widget_marker_selectors" yaml:"widget_marker_selectors"`

	KeywordsMeta  string `mapstructure:"keywords_meta"  yaml:"keywords_meta"`
	PublishedMeta string `mapstructure:"published_meta" yaml:"published_meta"`
	TimeLayout    string `mapstructure:"time_layout"    yaml:"time_layout"`
	TimeZone      string `mapstructure:"time_zone"      yaml:"time_zone"`
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Type              string        `mapstructure:"type"               yaml:"type"`
	MongoURI          string        `mapstructure:"mongo_uri"          yaml:"mongo_uri"`
	Database          string        `mapstructure:"database"           yaml:"database"`
	ArticleCollection string        `mapstructure:"article_collection" yaml:"article_collection"`
	HistoryCollection string        `mapstructure:"history_collection" yaml:"history_collection"`
	Timeout           time.Duration `mapstructure:"timeout"            yaml:"timeout"`
	// Path is the data directory of the file backend.
	Path string `mapstructure:"path" yaml:"path"`
}

// ScheduleConfig controls the periodic crawl of the entry page.
type ScheduleConfig struct {
	Enabled         bool   `mapstructure:"enabled"          yaml:"enabled"`
	Cron            string `mapstructure:"cron"             yaml:"cron"`
	SystemInitiator string `mapstructure:"system_initiator" yaml:"system_initiator"`
}

// APIConfig controls the HTTP API.
type APIConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port"    yaml:"port"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config for the Sina News profile.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Concurrency:     4,
			PolitenessDelay: 500 * time.Millisecond,
			SampleSize:      10,
		},
		Fetcher: FetcherConfig{
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			AcceptLanguage:  "zh-CN,zh;q=0.9,en;q=0.8",
			Timeout:         15 * time.Second,
			IndexTimeout:    20 * time.Second,
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    32,
			ProxyRotation:   "round_robin",
		},
		Site: SiteConfig{
			EntryURL: "https://news.sina.com.cn/",
			ArticlePatterns: []string{
				`^https://news\.sina\.com\.cn/\w/\d{4}-\d{2}-\d{2}/doc-[a-z0-9]+\.shtml$`,
				`^https://k\.sina\.com\.cn/article_\w+\.html$`,
			},
			TitleSelectors: []string{"h1.main-title"},
			SourceSelectors: []string{
				".top-bar-inner .date-source .author a",
				".date-source a.source",
				".top-bar-inner .date-source a.ent-source",
			},
			TimeSelectors: []string{
				".date-source .date",
				".top-bar-inner .date-source .date",
			},
			ContentSelectors: []string{"div#article"},
			RemoveSelectors: []string{
				"p.show_author",
				".wap_special",
				".article-notice",
				"div[id^=ad_]",
				"ins.sinaads",
			},
			WidgetMarkerSelectors: []string{"img[black-list=y]"},
			KeywordsMeta:          "keywords",
			PublishedMeta:         "article:published_time",
			TimeLayout:            "2006年01月02日 15:04",
			TimeZone:              "Asia/Shanghai",
		},
		Storage: StorageConfig{
			Type:              "memory",
			MongoURI:          "mongodb://localhost:27017",
			Database:          "newsharvest",
			ArticleCollection: "articles",
			HistoryCollection: "crawl_history",
			Timeout:           10 * time.Second,
			Path:              "./data",
		},
		Schedule: ScheduleConfig{
			Enabled:         true,
			Cron:            "0 8,16 * * *",
			SystemInitiator: "system",
		},
		API: APIConfig{
			Enabled: true,
			Port:    8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
