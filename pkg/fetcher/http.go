package fetcher

import (
	"context"
	"fmt"
	"net/http"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

// HTTPTransport performs plain HTTP requests with resty. It is the default
// transport and the only one used for JSON endpoints.
type HTTPTransport struct {
	client *resty.Client
}

// NewHTTPTransport creates a resty-backed transport.
func NewHTTPTransport(cfg Config) *HTTPTransport {
	cfg = cfg.WithDefaults()

	client := resty.New()
	client.SetHeader("User-Agent", cfg.UserAgent)
	client.SetRedirectPolicy(redirectLimit(cfg.MaxRedirects))
	if cfg.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	return &HTTPTransport{client: client}
}

func redirectLimit(max int) resty.RedirectPolicyFunc {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) > max {
			return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, max)
		}
		return nil
	}
}

// RoundTrip performs a single request. Non-2xx responses are not errors.
func (t *HTTPTransport) RoundTrip(ctx context.Context, url string, opts Options) (Body, error) {
	req := t.client.R().SetContext(ctx)
	if len(opts.Headers) > 0 {
		req.SetHeaders(opts.Headers)
	}

	res, err := req.Execute(opts.method(), url)
	if err != nil {
		return Body{}, err
	}

	finalURL := url
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		finalURL = res.RawResponse.Request.URL.String()
	}

	return Body{
		URL:         finalURL,
		StatusCode:  res.StatusCode(),
		ContentType: res.Header().Get("Content-Type"),
		Data:        res.Body(),
		FetchedAt:   res.ReceivedAt(),
	}, nil
}

// Close releases idle connections.
func (t *HTTPTransport) Close() error {
	t.client.GetClient().CloseIdleConnections()
	return nil
}

// Name returns the transport name.
func (t *HTTPTransport) Name() string {
	return "http"
}
