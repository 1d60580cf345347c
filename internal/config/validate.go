package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/IshaanNene/NewsHarvest/internal/types"
)

// StorageBackends lists the supported storage.type values.
var StorageBackends = []string{"memory", "file", "mongodb"}

// CronParser parses schedule.cron: five fields, no descriptors.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Engine.Concurrency < 1 {
		return fmt.Errorf("engine.concurrency must be >= 1, got %d", cfg.Engine.Concurrency)
	}
	if cfg.Engine.Concurrency > 64 {
		return fmt.Errorf("engine.concurrency must be <= 64, got %d", cfg.Engine.Concurrency)
	}
	if cfg.Engine.PolitenessDelay < 0 {
		return fmt.Errorf("engine.politeness_delay must be >= 0")
	}
	if cfg.Engine.BatchTimeout < 0 {
		return fmt.Errorf("engine.batch_timeout must be >= 0")
	}
	if cfg.Engine.SampleSize < 1 {
		return fmt.Errorf("engine.sample_size must be >= 1, got %d", cfg.Engine.SampleSize)
	}

	if cfg.Fetcher.Timeout <= 0 {
		return fmt.Errorf("fetcher.timeout must be > 0")
	}
	if cfg.Fetcher.IndexTimeout <= 0 {
		return fmt.Errorf("fetcher.index_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	if cfg.Fetcher.UserAgent == "" {
		return fmt.Errorf("fetcher.user_agent must not be empty")
	}
	switch cfg.Fetcher.ProxyRotation {
	case "", "round_robin", "random":
	default:
		return fmt.Errorf("fetcher.proxy_rotation must be round_robin or random, got %q", cfg.Fetcher.ProxyRotation)
	}
	for _, p := range cfg.Fetcher.Proxies {
		if _, err := url.Parse(p); err != nil || !strings.Contains(p, "://") {
			return fmt.Errorf("fetcher.proxies: invalid proxy URL %q", p)
		}
	}

	if err := ValidateURL(cfg.Site.EntryURL); err != nil {
		return fmt.Errorf("site.entry_url: %w", err)
	}
	if _, err := cfg.Site.CompilePatterns(); err != nil {
		return err
	}
	if len(cfg.Site.TitleSelectors) == 0 {
		return fmt.Errorf("site.title_selectors must not be empty")
	}
	if len(cfg.Site.ContentSelectors) == 0 {
		return fmt.Errorf("site.content_selectors must not be empty")
	}
	if cfg.Site.TimeLayout == "" {
		return fmt.Errorf("site.time_layout must not be empty")
	}

	switch cfg.Storage.Type {
	case "memory":
	case "file":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the file backend")
		}
	case "mongodb":
		if cfg.Storage.MongoURI == "" || cfg.Storage.Database == "" {
			return fmt.Errorf("storage.mongo_uri and storage.database are required for mongodb")
		}
	default:
		return fmt.Errorf("storage.type %q is not supported (valid: %s)", cfg.Storage.Type, strings.Join(StorageBackends, ", "))
	}

	if cfg.Schedule.Enabled {
		if _, err := CronParser.Parse(cfg.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule.cron %q: %w", cfg.Schedule.Cron, err)
		}
	}
	if cfg.Schedule.SystemInitiator == "" {
		return fmt.Errorf("schedule.system_initiator must not be empty")
	}

	if cfg.API.Enabled && (cfg.API.Port < 1 || cfg.API.Port > 65535) {
		return fmt.Errorf("api.port must be 1-65535, got %d", cfg.API.Port)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is valid for crawling.
func ValidateURL(rawURL string) error {
	_, err := types.ParseHTTPURL(rawURL)
	return err
}

// CompilePatterns compiles the article URL patterns.
func (s *SiteConfig) CompilePatterns() ([]*regexp.Regexp, error) {
	if len(s.ArticlePatterns) == 0 {
		return nil, fmt.Errorf("site.article_patterns must not be empty")
	}
	out := make([]*regexp.Regexp, 0, len(s.ArticlePatterns))
	for _, p := range s.ArticlePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("site.article_patterns %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// Location returns the time zone used for byline timestamps. Hosts without
// tzdata fall back to a fixed UTC+8 zone.
func (s *SiteConfig) Location() *time.Location {
	if s.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}
