package commands

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/froid/pkg/froid"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, exitOK},
		{&froid.Error{Kind: froid.KindInput}, exitInput},
		{&usageError{err: errors.New("accepts 1 arg(s)")}, exitInput},
		{fmt.Errorf("wrapped: %w", &froid.Error{Kind: froid.KindNotFound}), exitNotFound},
		{&froid.Error{Kind: froid.KindUpstream}, exitUpstream},
		{&froid.Error{Kind: froid.KindSchemaDrift}, exitSchemaDrift},
		{errors.New("disk full"), exitOther},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, exitCode(tc.err), "%v", tc.err)
	}
}

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetEnvPrefix("FROID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	fc, err := loadConfig(newViper(t, ""))
	require.NoError(t, err)

	d := froid.DefaultConfig()
	assert.Equal(t, d.Site.BaseURL, fc.Site.BaseURL)
	assert.Equal(t, d.Fetch, fc.Fetch)
	assert.Equal(t, d.CallTimeout, fc.Engine.CallTimeout)
	assert.Equal(t, d.Legacy, fc.Legacy)
	assert.False(t, fc.Cache.Enabled)
	assert.NotEmpty(t, fc.Site.Selectors.Article)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	t.Setenv("FROID_FETCH_RETRIES", "1")
	t.Setenv("FROID_ENGINE_FANOUT", "8")

	v := newViper(t, `
site:
  base_url: https://mirror.example.com
  user_agent: froid-test
  selectors:
    content: div.entry
fetch:
  attempt_timeout: 3s
  transport: colly
engine:
  call_timeout: 20s
legacy:
  max_results: 50
cache:
  enabled: true
  ttl: 10m
`)
	fc, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "https://mirror.example.com", fc.Site.BaseURL)
	assert.Equal(t, "froid-test", fc.Fetch.UserAgent)
	assert.Equal(t, "div.entry", fc.Site.Selectors.Content)
	assert.Equal(t, 3*time.Second, fc.Fetch.AttemptTimeout)
	assert.Equal(t, "colly", fc.Fetch.Transport)
	assert.Equal(t, 1, fc.Fetch.Retries)
	assert.Equal(t, 8, fc.Engine.Fanout)
	assert.Equal(t, 20*time.Second, fc.Engine.CallTimeout)
	assert.Equal(t, 50, fc.Legacy.MaxResults)
	assert.True(t, fc.Cache.Enabled)
	assert.Equal(t, 10*time.Minute, fc.Cache.TTL)

	var cfg froid.Config
	for _, opt := range fc.options() {
		opt(&cfg)
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8, cfg.Fanout)
}

func TestOpenSession_InvalidConfigIsInputError(t *testing.T) {
	v := newViper(t, `
engine:
  call_timeout: 1s
`)
	_, err := openSession(v)
	require.Error(t, err)
	assert.Equal(t, exitInput, exitCode(err))
}

func TestOpenSession_Cache(t *testing.T) {
	v := newViper(t, "")
	v.Set("cache.enabled", true)
	v.Set("cache.path", ":memory:")

	s, err := openSession(v)
	require.NoError(t, err)
	defer s.Close()
	assert.Len(t, s.closers, 2)
}
