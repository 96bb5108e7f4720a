package fetcher

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.AttemptTimeout = time.Second
	cfg.Backoff = time.Millisecond
	cfg.Rate = 0
	return cfg
}

func newHTTPClient(cfg Config) *Client {
	return NewClient(NewHTTPTransport(cfg), cfg, nil)
}

// --- retry policy ---

func TestClient_RetriesServerErrorsUpToBound(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newHTTPClient(testConfig())
	_, err := c.Fetch(context.Background(), srv.URL, Options{})

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindHTTPStatus, fe.Kind)
	assert.Equal(t, http.StatusBadGateway, fe.StatusCode)
	assert.Equal(t, 3, fe.Attempts)
	assert.EqualValues(t, 3, hits.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"rest_no_route"}`))
	}))
	defer srv.Close()

	c := newHTTPClient(testConfig())
	_, err := c.Fetch(context.Background(), srv.URL, Options{})

	require.True(t, IsStatus(err, http.StatusNotFound))
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, `{"code":"rest_no_route"}`, string(fe.Body))
	assert.EqualValues(t, 1, hits.Load())
}

func TestClient_RecoversAfterTransientFailure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := newHTTPClient(testConfig())
	body, err := c.Fetch(context.Background(), srv.URL, Options{})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body.Data))
	assert.Equal(t, 2, body.Attempts)
}

func TestClient_AttemptTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := testConfig()
	cfg.AttemptTimeout = 20 * time.Millisecond
	cfg.Retries = 1
	c := newHTTPClient(cfg)

	_, err := c.Fetch(context.Background(), srv.URL, Options{})
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindTimeout, fe.Kind)
	assert.Equal(t, 2, fe.Attempts)
}

func TestClient_TooManyRedirects(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxRedirects = 2
	c := newHTTPClient(cfg)

	_, err := c.Fetch(context.Background(), srv.URL+"/", Options{})
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindTooManyRedirects, fe.Kind)
	assert.Equal(t, 1, fe.Attempts)
}

func TestClient_ZeroMaxRedirectsRejectsFirstRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusFound)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("done"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxRedirects = 0
	c := newHTTPClient(cfg)

	_, err := c.Fetch(context.Background(), srv.URL+"/start", Options{})
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindTooManyRedirects, fe.Kind)
}

func TestConfig_WithDefaultsKeepsZeroLimits(t *testing.T) {
	cfg := Config{Retries: 1}.WithDefaults()
	assert.Equal(t, DefaultConfig().AttemptTimeout, cfg.AttemptTimeout)
	assert.Equal(t, "http", cfg.Transport)
	assert.Equal(t, 0, cfg.MaxRedirects)
	assert.Equal(t, 1, cfg.Retries)
}

func TestClient_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := newHTTPClient(testConfig())
	_, err = c.Fetch(context.Background(), "http://"+addr+"/", Options{})

	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindConnectionRefused, fe.Kind)
	assert.Equal(t, 1, fe.Attempts)
}

func TestClient_FollowsRedirectsAndReportsFinalURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/end", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/end", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("done"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newHTTPClient(testConfig())
	body, err := c.Fetch(context.Background(), srv.URL+"/start", Options{})
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/end", body.URL)
}

// --- fake transport ---

type scriptedTransport struct {
	calls   atomic.Int32
	respond func(call int) (Body, error)
}

func (s *scriptedTransport) RoundTrip(ctx context.Context, url string, opts Options) (Body, error) {
	n := int(s.calls.Add(1))
	return s.respond(n)
}

func (s *scriptedTransport) Close() error { return nil }
func (s *scriptedTransport) Name() string { return "scripted" }

func TestClient_LinearBackoff(t *testing.T) {
	tr := &scriptedTransport{respond: func(int) (Body, error) {
		return Body{}, errors.New("connection reset by peer")
	}}
	cfg := testConfig()
	cfg.Backoff = 100 * time.Millisecond
	c := NewClient(tr, cfg, nil)

	var waits []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	_, err := c.Fetch(context.Background(), "http://site.test/", Options{})
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindNetwork, fe.Kind)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, waits)
	assert.EqualValues(t, 3, tr.calls.Load())
}

func TestClient_CanceledContextMakesNoAttempt(t *testing.T) {
	tr := &scriptedTransport{respond: func(int) (Body, error) {
		return Body{StatusCode: 200}, nil
	}}
	c := NewClient(tr, testConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fetch(ctx, "http://site.test/", Options{})
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, KindCanceled, fe.Kind)
	assert.EqualValues(t, 0, tr.calls.Load())
}

func TestClient_CancelDuringBackoffStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tr := &scriptedTransport{respond: func(int) (Body, error) {
		cancel()
		return Body{StatusCode: 500}, nil
	}}
	c := NewClient(tr, testConfig(), nil)

	_, err := c.Fetch(ctx, "http://site.test/", Options{})
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.EqualValues(t, 1, tr.calls.Load())
}

func TestConfig_Budget(t *testing.T) {
	cfg := Config{AttemptTimeout: 2 * time.Second, Retries: 2, Backoff: time.Second}
	// 3 attempts + 1s + 2s backoff
	assert.Equal(t, 9*time.Second, cfg.Budget())
}

func TestError_Transient(t *testing.T) {
	cases := []struct {
		err  Error
		want bool
	}{
		{Error{Kind: KindHTTPStatus, StatusCode: 503}, true},
		{Error{Kind: KindHTTPStatus, StatusCode: 429}, false},
		{Error{Kind: KindHTTPStatus, StatusCode: 404}, false},
		{Error{Kind: KindTimeout}, true},
		{Error{Kind: KindNetwork}, true},
		{Error{Kind: KindConnectionRefused}, false},
		{Error{Kind: KindTooManyRedirects}, false},
		{Error{Kind: KindCanceled}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.Transient(), "kind=%s status=%d", tc.err.Kind, tc.err.StatusCode)
	}
}
