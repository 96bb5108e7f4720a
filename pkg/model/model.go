// Package model defines the normalized records produced by the acquisition
// engine. Records are plain values; optional scalars are pointers and nil
// means the field was not found upstream.
package model

import "time"

// SearchResult is a single search hit produced by either search strategy.
// Only ID, Title and URL are guaranteed; the fast strategy never sets the
// remaining fields.
type SearchResult struct {
	ID               string  `json:"id" yaml:"id"`
	Title            string  `json:"title" yaml:"title"`
	URL              string  `json:"url" yaml:"url"`
	ThumbnailURL     *string `json:"thumbnail_url,omitempty" yaml:"thumbnail_url,omitempty"`
	ShortDescription *string `json:"short_description,omitempty" yaml:"short_description,omitempty"`
}

// Valid reports whether the record carries the mandatory identity fields.
func (r SearchResult) Valid() bool {
	return r.ID != "" && r.URL != ""
}

// MediaKind classifies a media reference on a post page.
type MediaKind string

const (
	MediaScreenshot MediaKind = "screenshot"
	MediaVideo      MediaKind = "video"
	MediaThumbnail  MediaKind = "thumbnail"
)

// MediaRef points to an image or video attached to a post.
type MediaRef struct {
	URL  string    `json:"url" yaml:"url"`
	Kind MediaKind `json:"kind" yaml:"kind"`
}

// DownloadLink is a downloadable file listed on a post page.
type DownloadLink struct {
	Label     string  `json:"label" yaml:"label"`
	URL       string  `json:"url" yaml:"url"`
	SizeBytes *uint64 `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`
}

// PostStats holds the headline counters shown for a post.
type PostStats struct {
	Downloads *int64   `json:"downloads,omitempty" yaml:"downloads,omitempty"`
	Views     *int64   `json:"views,omitempty" yaml:"views,omitempty"`
	Likes     *int64   `json:"likes,omitempty" yaml:"likes,omitempty"`
	Rating    *float64 `json:"rating,omitempty" yaml:"rating,omitempty"`
}

// Empty reports whether no counter was recovered.
func (s PostStats) Empty() bool {
	return s.Downloads == nil && s.Views == nil && s.Likes == nil && s.Rating == nil
}

// PostMeta holds descriptive fields of a post that are not counters.
type PostMeta struct {
	Description     *string `json:"description,omitempty" yaml:"description,omitempty"`
	Version         *string `json:"version,omitempty" yaml:"version,omitempty"`
	Mode            *string `json:"mode,omitempty" yaml:"mode,omitempty"`
	RequiredAndroid *string `json:"required_android,omitempty" yaml:"required_android,omitempty"`
	GooglePlayURL   *string `json:"google_play_url,omitempty" yaml:"google_play_url,omitempty"`
}

// PostDetail is the full record extracted from a post page.
type PostDetail struct {
	ID            string         `json:"id" yaml:"id"`
	URL           string         `json:"url" yaml:"url"`
	Title         string         `json:"title" yaml:"title"`
	Category      string         `json:"category,omitempty" yaml:"category,omitempty"`
	Stats         PostStats      `json:"stats" yaml:"stats"`
	Media         []MediaRef     `json:"media" yaml:"media"`
	RelatedPosts  []SearchResult `json:"related_posts" yaml:"related_posts"`
	DownloadLinks []DownloadLink `json:"download_links" yaml:"download_links"`
	Meta          PostMeta       `json:"meta" yaml:"meta"`
}

// Comment is a single approved comment on a post.
type Comment struct {
	ID        string     `json:"id" yaml:"id"`
	URL       string     `json:"url" yaml:"url"`
	Author    string     `json:"author" yaml:"author"`
	BodyText  string     `json:"body_text" yaml:"body_text"`
	Timestamp *time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Rating    *float64   `json:"rating,omitempty" yaml:"rating,omitempty"`
	ParentID  *string    `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
}

// PostStatistics is the counter set served by the site's statistics endpoint.
type PostStatistics struct {
	PostID           string `json:"post_id" yaml:"post_id"`
	URL              string `json:"url" yaml:"url"`
	Views            int64  `json:"views" yaml:"views"`
	Likes            int64  `json:"likes" yaml:"likes"`
	Downloads        int64  `json:"downloads" yaml:"downloads"`
	MonthlyDownloads int64  `json:"monthly_downloads" yaml:"monthly_downloads"`
	WeeklyDownloads  int64  `json:"weekly_downloads" yaml:"weekly_downloads"`
	TodayDownloads   int64  `json:"today_downloads" yaml:"today_downloads"`
}

// Diagnostics describes what was lost or degraded while producing a result.
// A zero value means the result is complete.
type Diagnostics struct {
	// Dropped counts entries skipped because they lacked an id or url.
	Dropped int `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	// FailedPages lists page numbers whose fetch or parse failed.
	FailedPages []int `json:"failed_pages,omitempty" yaml:"failed_pages,omitempty"`
	// Recovered lists the optional post blocks that were found.
	Recovered []string `json:"recovered,omitempty" yaml:"recovered,omitempty"`
	// Missing lists the optional post blocks that were not found.
	Missing []string `json:"missing,omitempty" yaml:"missing,omitempty"`
	// Notes carries human-readable detail about each degradation.
	Notes []string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Degraded reports whether anything was dropped or failed. Missing blocks on
// their own do not degrade a post; absence is a valid page state.
func (d Diagnostics) Degraded() bool {
	return d.Dropped > 0 || len(d.FailedPages) > 0
}

// Note appends a formatted note.
func (d *Diagnostics) Note(msg string) {
	d.Notes = append(d.Notes, msg)
}
