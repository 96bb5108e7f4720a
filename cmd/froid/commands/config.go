package commands

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/jmylchreest/froid/internal/cache"
	"github.com/jmylchreest/froid/internal/logger"
	"github.com/jmylchreest/froid/internal/search"
	"github.com/jmylchreest/froid/internal/site"
	"github.com/jmylchreest/froid/pkg/fetcher"
	"github.com/jmylchreest/froid/pkg/froid"
)

// fileConfig mirrors the config file layout.
type fileConfig struct {
	Site   siteConfig          `mapstructure:"site"`
	Fetch  fetcher.Config      `mapstructure:"fetch"`
	Engine engineConfig        `mapstructure:"engine"`
	Legacy search.LegacyConfig `mapstructure:"legacy"`
	Cache  cacheConfig         `mapstructure:"cache"`
}

type siteConfig struct {
	site.Config `mapstructure:",squash"`
	UserAgent   string `mapstructure:"user_agent"`
}

type engineConfig struct {
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	Fanout      int           `mapstructure:"fanout"`
}

type cacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Path    string        `mapstructure:"path"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// setDefaults registers every scalar key so environment variables
// (FROID_FETCH_RETRIES, ...) reach Unmarshal.
func setDefaults(v *viper.Viper) {
	d := froid.DefaultConfig()

	v.SetDefault("site.base_url", d.Site.BaseURL)
	v.SetDefault("site.stats_path", d.Site.StatsPath)
	v.SetDefault("site.user_agent", "")

	v.SetDefault("fetch.transport", d.Fetch.Transport)
	v.SetDefault("fetch.user_agent", d.Fetch.UserAgent)
	v.SetDefault("fetch.attempt_timeout", d.Fetch.AttemptTimeout)
	v.SetDefault("fetch.retries", d.Fetch.Retries)
	v.SetDefault("fetch.backoff", d.Fetch.Backoff)
	v.SetDefault("fetch.max_redirects", d.Fetch.MaxRedirects)
	v.SetDefault("fetch.rate", d.Fetch.Rate)
	v.SetDefault("fetch.burst", d.Fetch.Burst)
	v.SetDefault("fetch.cloudflare_bypass", d.Fetch.CloudflareBypass)

	v.SetDefault("engine.call_timeout", d.CallTimeout)
	v.SetDefault("engine.fanout", d.Fanout)

	v.SetDefault("legacy.max_results", d.Legacy.MaxResults)
	v.SetDefault("legacy.page_size", d.Legacy.PageSize)
	v.SetDefault("legacy.max_pages", d.Legacy.MaxPages)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.path", defaultCachePath())
	v.SetDefault("cache.ttl", cache.DefaultTTL)
}

func loadConfig(v *viper.Viper) (fileConfig, error) {
	d := froid.DefaultConfig()
	fc := fileConfig{
		Site:   siteConfig{Config: d.Site},
		Fetch:  d.Fetch,
		Engine: engineConfig{CallTimeout: d.CallTimeout, Fanout: d.Fanout},
		Legacy: d.Legacy,
		Cache:  cacheConfig{Path: defaultCachePath(), TTL: cache.DefaultTTL},
	}
	if err := v.Unmarshal(&fc); err != nil {
		return fileConfig{}, fmt.Errorf("failed to read config: %w", err)
	}
	if fc.Site.UserAgent != "" {
		fc.Fetch.UserAgent = fc.Site.UserAgent
	}
	return fc, nil
}

func (fc fileConfig) options() []froid.Option {
	return []froid.Option{
		func(c *froid.Config) { c.Site = fc.Site.Config },
		froid.WithFetchConfig(fc.Fetch),
		froid.WithCallTimeout(fc.Engine.CallTimeout),
		froid.WithFanout(fc.Engine.Fanout),
		froid.WithLegacyConfig(fc.Legacy),
	}
}

// session is the engine a command talks to plus whatever must be closed
// afterwards.
type session struct {
	backend cache.Backend
	closers []func() error
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Debug("close failed", "error", err)
		}
	}
}

func openSession(v *viper.Viper) (*session, error) {
	fc, err := loadConfig(v)
	if err != nil {
		return nil, err
	}

	engine, err := froid.New(fc.options()...)
	if err != nil {
		return nil, &usageError{err: err}
	}
	s := &session{backend: engine, closers: []func() error{engine.Close}}
	logger.Debug("engine ready",
		"base_url", engine.Config().Site.BaseURL,
		"transport", fc.Fetch.Transport,
		"call_timeout", fc.Engine.CallTimeout,
		"fanout", fc.Engine.Fanout)

	if fc.Cache.Enabled {
		store, err := cache.Open(fc.Cache.Path, fc.Cache.TTL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.backend = cache.Wrap(engine, store)
		s.closers = append(s.closers, store.Close)
		logger.Debug("cache enabled", "path", fc.Cache.Path, "ttl", store.TTL())
	}
	return s, nil
}
