package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("NEWSHARVEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("newsharvest")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".newsharvest"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env overrides are picked up.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("engine.concurrency", cfg.Engine.Concurrency)
	v.SetDefault("engine.politeness_delay", cfg.Engine.PolitenessDelay)
	v.SetDefault("engine.batch_timeout", cfg.Engine.BatchTimeout)
	v.SetDefault("engine.sample_size", cfg.Engine.SampleSize)
	v.SetDefault("engine.respect_robots", cfg.Engine.RespectRobots)

	v.SetDefault("fetcher.user_agent", cfg.Fetcher.UserAgent)
	v.SetDefault("fetcher.accept_language", cfg.Fetcher.AcceptLanguage)
	v.SetDefault("fetcher.timeout", cfg.Fetcher.Timeout)
	v.SetDefault("fetcher.index_timeout", cfg.Fetcher.IndexTimeout)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.tls_insecure", cfg.Fetcher.TLSInsecure)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.proxies", cfg.Fetcher.Proxies)
	v.SetDefault("fetcher.proxy_rotation", cfg.Fetcher.ProxyRotation)

	v.SetDefault("site.entry_url", cfg.Site.EntryURL)
	v.SetDefault("site.article_patterns", cfg.Site.ArticlePatterns)
	v.SetDefault("site.title_selectors", cfg.Site.TitleSelectors)
	v.SetDefault("site.source_selectors", cfg.Site.SourceSelectors)
	v.SetDefault("site.time_selectors", cfg.Site.TimeSelectors)
	v.SetDefault("site.content_selectors", cfg.Site.ContentSelectors)
	v.SetDefault("site.remove_selectors", cfg.Site.RemoveSelectors)
	v.SetDefault("site.widget_marker_selectors", cfg.Site.WidgetMarkerSelectors)
	v.SetDefault("site.keywords_meta", cfg.Site.KeywordsMeta)
	v.SetDefault("site.published_meta", cfg.Site.PublishedMeta)
	v.SetDefault("site.time_layout", cfg.Site.TimeLayout)
	v.SetDefault("site.time_zone", cfg.Site.TimeZone)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.database", cfg.Storage.Database)
	v.SetDefault("storage.article_collection", cfg.Storage.ArticleCollection)
	v.SetDefault("storage.history_collection", cfg.Storage.HistoryCollection)
	v.SetDefault("storage.timeout", cfg.Storage.Timeout)
	v.SetDefault("storage.path", cfg.Storage.Path)

	v.SetDefault("schedule.enabled", cfg.Schedule.Enabled)
	v.SetDefault("schedule.cron", cfg.Schedule.Cron)
	v.SetDefault("schedule.system_initiator", cfg.Schedule.SystemInitiator)

	v.SetDefault("api.enabled", cfg.API.Enabled)
	v.SetDefault("api.port", cfg.API.Port)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
