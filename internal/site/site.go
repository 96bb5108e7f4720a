// Package site describes the remote site's content model: endpoint URLs,
// the CSS selectors its markup is parsed with, and the WordPress REST error
// envelope. Selectors are data, not code, so that layout changes can be
// handled from configuration.
package site

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// DefaultBaseURL is the production site.
const DefaultBaseURL = "https://www.farsroid.com"

// Site builds URLs for one deployment of the site.
type Site struct {
	base      *url.URL
	statsPath string
	Selectors Selectors
}

// Config holds site configuration.
type Config struct {
	BaseURL   string    `mapstructure:"base_url" validate:"omitempty,url"`
	StatsPath string    `mapstructure:"stats_path"`
	Selectors Selectors `mapstructure:"selectors"`
}

// DefaultConfig returns the production site with default selectors.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		StatsPath: "/wp-json/farsroid/v1/stats",
		Selectors: DefaultSelectors(),
	}
}

// New parses cfg. Empty selector fields fall back to the defaults.
func New(cfg Config) (*Site, error) {
	d := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = d.BaseURL
	}
	if cfg.StatsPath == "" {
		cfg.StatsPath = d.StatsPath
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host required", cfg.BaseURL)
	}

	return &Site{
		base:      base,
		statsPath: cfg.StatsPath,
		Selectors: cfg.Selectors.withDefaults(),
	}, nil
}

// BaseURL returns the site root without a trailing slash.
func (s *Site) BaseURL() string {
	return s.base.String()
}

func (s *Site) build(path string, q url.Values) string {
	u := *s.base
	u.Path = strings.TrimRight(s.base.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// SearchJSON returns the structured search endpoint URL. Zero page or
// perPage leave the site defaults in place.
func (s *Site) SearchJSON(query string, page, perPage int) string {
	q := url.Values{}
	q.Set("search", query)
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}
	return s.build("/wp-json/wp/v2/search", q)
}

// SearchPage returns the HTML search results page URL.
func (s *Site) SearchPage(query string, page int) string {
	q := url.Values{}
	q.Set("s", query)
	if page <= 1 {
		return s.build("/", q)
	}
	return s.build(fmt.Sprintf("/page/%d/", page), q)
}

// PostURL returns the short link of a post. The site redirects it to the
// post's permalink.
func (s *Site) PostURL(id string) string {
	q := url.Values{}
	q.Set("p", id)
	return s.build("/", q)
}

// Stats returns the statistics endpoint URL for a post.
func (s *Site) Stats(id string) string {
	q := url.Values{}
	q.Set("post_id", id)
	return s.build(s.statsPath, q)
}

// Comments returns the comments endpoint URL for a post. params carries the
// optional paging and ordering parameters.
func (s *Site) Comments(id string, params url.Values) string {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("post", id)
	return s.build("/wp-json/wp/v2/comments", q)
}

// Resolve makes href absolute against the site root. It returns "" for
// empty, fragment-only and javascript: links.
func (s *Site) Resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if !u.IsAbs() {
		u = s.base.ResolveReference(u)
	}
	return u.String()
}

var idPattern = regexp.MustCompile(`^[1-9][0-9]*$`)

// ValidID reports whether id is a positive decimal post id.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

var (
	articleIDPattern = regexp.MustCompile(`^post-(\d+)$`)
	classIDPattern   = regexp.MustCompile(`(?:^|\s)post-(\d+)(?:\s|$)`)
)

// PostIDFromAttrs extracts a post id from an element's id attribute
// ("post-123") or, failing that, its class list ("... post-123 ...").
func PostIDFromAttrs(id, class string) string {
	if m := articleIDPattern.FindStringSubmatch(strings.TrimSpace(id)); m != nil {
		return m[1]
	}
	if m := classIDPattern.FindStringSubmatch(class); m != nil {
		return m[1]
	}
	return ""
}

// APIError is the WordPress REST error envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status int `json:"status"`
	} `json:"data"`
}

// WordPress REST error codes the parsers act on.
const (
	CodeInvalidPostID     = "rest_post_invalid_id"
	CodeInvalidPage       = "rest_post_invalid_page_number"
	CodeInvalidCommentPag = "rest_comment_invalid_page_number"
)

// ParseAPIError decodes body as a WordPress error envelope.
func ParseAPIError(body []byte) (APIError, bool) {
	var e APIError
	if err := json.Unmarshal(body, &e); err != nil || e.Code == "" {
		return APIError{}, false
	}
	return e, true
}

// InvalidPage reports whether e signals a page index past the last page.
func (e APIError) InvalidPage() bool {
	return e.Code == CodeInvalidPage || e.Code == CodeInvalidCommentPag
}
