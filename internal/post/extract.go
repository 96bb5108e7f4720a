package post

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/froid/internal/cleaner"
	"github.com/jmylchreest/froid/internal/site"
	"github.com/jmylchreest/froid/pkg/model"
)

// Block names reported in Diagnostics.Recovered and Diagnostics.Missing.
const (
	BlockStats       = "stats"
	BlockMedia       = "media"
	BlockRelated     = "related_posts"
	BlockDownloads   = "download_links"
	BlockCategory    = "category"
	BlockDescription = "description"
	BlockVersion     = "version"
	BlockMode        = "mode"
	BlockAndroid     = "required_android"
	BlockGooglePlay  = "google_play_url"
)

// Sidebar labels and markers as printed on the site.
const (
	offlineMarker = "آفلاین"
	categoryLabel = "دسته بندی"
	androidLabel  = "اندروید"
)

var downloadPattern = regexp.MustCompile(`(?i)\.(apk|zip|obb|rar)(\?.*)?$`)

// Parse extracts a post from its page. endpoint, when not nil, supplies the
// counters in preference to the page's stats block. Every optional block is
// extracted independently; a block that is absent is left empty.
func (p *Parser) Parse(doc *goquery.Document, id string, endpoint *model.PostStatistics) (model.PostDetail, model.Diagnostics, error) {
	sel := p.site.Selectors
	var diag model.Diagnostics

	article := doc.Find(sel.Article).First()
	if article.Length() == 0 {
		return model.PostDetail{}, diag, &Error{Kind: KindUnexpectedSchema, ID: id, Detail: fmt.Sprintf("main article %q not found", sel.Article)}
	}
	articleID := site.PostIDFromAttrs(article.AttrOr("id", ""), article.AttrOr("class", ""))
	if articleID == "" {
		return model.PostDetail{}, diag, &Error{Kind: KindUnexpectedSchema, ID: id, Detail: "main article carries no post id"}
	}
	if articleID != id {
		diag.Note(fmt.Sprintf("requested post %s, page is post %s", id, articleID))
	}

	detail := model.PostDetail{
		ID:            articleID,
		URL:           p.canonicalURL(doc, articleID),
		Title:         p.title(doc, article),
		Media:         []model.MediaRef{},
		RelatedPosts:  []model.SearchResult{},
		DownloadLinks: []model.DownloadLink{},
	}

	record := func(block string, found bool) {
		if found {
			diag.Recovered = append(diag.Recovered, block)
		} else {
			diag.Missing = append(diag.Missing, block)
		}
	}

	info := p.sidebarInfo(doc)

	detail.Category = info[categoryLabel]
	record(BlockCategory, detail.Category != "")

	detail.Stats = p.stats(doc, endpoint)
	record(BlockStats, !detail.Stats.Empty())

	detail.Media = p.media(doc)
	record(BlockMedia, len(detail.Media) > 0)

	detail.RelatedPosts = p.related(doc, articleID, &diag)
	record(BlockRelated, len(detail.RelatedPosts) > 0)

	detail.DownloadLinks = p.downloads(doc)
	record(BlockDownloads, len(detail.DownloadLinks) > 0)

	detail.Meta = p.meta(doc, article, info, &diag)
	record(BlockDescription, detail.Meta.Description != nil)
	record(BlockVersion, detail.Meta.Version != nil)
	record(BlockMode, detail.Meta.Mode != nil)
	record(BlockAndroid, detail.Meta.RequiredAndroid != nil)
	record(BlockGooglePlay, detail.Meta.GooglePlayURL != nil)

	if detail.Stats.Empty() && len(detail.Media) == 0 && len(detail.RelatedPosts) == 0 && len(detail.DownloadLinks) == 0 {
		return detail, diag, &Error{
			Kind:      KindPartialExtraction,
			ID:        articleID,
			Detail:    "stats, media, related posts and download links all missing",
			Recovered: append([]string(nil), diag.Recovered...),
		}
	}
	return detail, diag, nil
}

func (p *Parser) canonicalURL(doc *goquery.Document, id string) string {
	if href, ok := doc.Find(p.site.Selectors.Canonical).First().Attr("href"); ok {
		if u := p.site.Resolve(href); u != "" {
			return u
		}
	}
	return p.site.PostURL(id)
}

func (p *Parser) title(doc *goquery.Document, article *goquery.Selection) string {
	if t := cleaner.CollapseSpace(article.Find(p.site.Selectors.Title).First().Text()); t != "" {
		return t
	}
	return cleaner.CollapseSpace(doc.Find("title").First().Text())
}

// sidebarInfo returns the sidebar's label/value pairs. The label is the
// item's first span; the value is the rest of the item's text.
func (p *Parser) sidebarInfo(doc *goquery.Document) map[string]string {
	sel := p.site.Selectors
	info := make(map[string]string)

	doc.Find(sel.Sidebar).Find(sel.InfoItem).Each(func(_ int, s *goquery.Selection) {
		label := cleaner.CollapseSpace(s.Find("span").First().Text())
		if label == "" {
			return
		}
		value := cleaner.CollapseSpace(strings.Replace(s.Text(), s.Find("span").First().Text(), "", 1))
		value = strings.TrimSpace(strings.TrimPrefix(value, ":"))
		if value == "" {
			return
		}
		for _, key := range []string{categoryLabel, androidLabel} {
			if strings.Contains(label, key) {
				if _, seen := info[key]; !seen {
					info[key] = value
				}
			}
		}
	})
	return info
}

func (p *Parser) stats(doc *goquery.Document, endpoint *model.PostStatistics) model.PostStats {
	var out model.PostStats

	doc.Find(p.site.Selectors.Stats).Each(func(_ int, s *goquery.Selection) {
		text := s.Text()
		switch strings.ToLower(s.AttrOr("data-stat", "")) {
		case "downloads":
			if n, ok := cleaner.ParseCount(text); ok && out.Downloads == nil {
				out.Downloads = &n
			}
		case "views":
			if n, ok := cleaner.ParseCount(text); ok && out.Views == nil {
				out.Views = &n
			}
		case "likes":
			if n, ok := cleaner.ParseCount(text); ok && out.Likes == nil {
				out.Likes = &n
			}
		case "rating":
			if f, ok := cleaner.ParseFloat(text); ok && out.Rating == nil {
				out.Rating = &f
			}
		}
	})

	if endpoint != nil {
		downloads, views, likes := endpoint.Downloads, endpoint.Views, endpoint.Likes
		out.Downloads = &downloads
		out.Views = &views
		out.Likes = &likes
	}
	return out
}

func mediaKind(u string) (model.MediaKind, bool) {
	parsed := strings.ToLower(u)
	if i := strings.IndexAny(parsed, "?#"); i >= 0 {
		parsed = parsed[:i]
	}
	switch path.Ext(parsed) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return model.MediaScreenshot, true
	case ".mp4", ".webm":
		return model.MediaVideo, true
	}
	return "", false
}

// media returns screenshots first, then videos, then the thumbnail.
func (p *Parser) media(doc *goquery.Document) []model.MediaRef {
	sel := p.site.Selectors
	seen := make(map[string]bool)
	var screenshots, videos []model.MediaRef

	doc.Find(sel.Gallery).Each(func(_ int, s *goquery.Selection) {
		u := p.site.Resolve(s.AttrOr("href", ""))
		if u == "" || seen[u] {
			return
		}
		kind, ok := mediaKind(u)
		if !ok {
			return
		}
		seen[u] = true
		if kind == model.MediaVideo {
			videos = append(videos, model.MediaRef{URL: u, Kind: kind})
		} else {
			screenshots = append(screenshots, model.MediaRef{URL: u, Kind: kind})
		}
	})

	out := append(make([]model.MediaRef, 0, len(screenshots)+len(videos)+1), screenshots...)
	out = append(out, videos...)

	thumb := doc.Find(sel.Sidebar).Find(sel.Thumbnail).First()
	if thumb.Length() == 0 {
		thumb = doc.Find(sel.Thumbnail).First()
	}
	if u := p.site.Resolve(imageSource(thumb)); u != "" && !seen[u] {
		out = append(out, model.MediaRef{URL: u, Kind: model.MediaThumbnail})
	}
	return out
}

// imageSource prefers the lazy-load attribute over src.
func imageSource(img *goquery.Selection) string {
	if src := strings.TrimSpace(img.AttrOr("data-src", "")); src != "" {
		return src
	}
	src := strings.TrimSpace(img.AttrOr("src", ""))
	if strings.HasPrefix(src, "data:") {
		return ""
	}
	return src
}

func (p *Parser) related(doc *goquery.Document, self string, diag *model.Diagnostics) []model.SearchResult {
	sel := p.site.Selectors
	out := []model.SearchResult{}
	seen := map[string]bool{self: true}

	doc.Find(sel.Related).Find(sel.RelatedEntry).Each(func(_ int, s *goquery.Selection) {
		id := site.PostIDFromAttrs(s.AttrOr("id", ""), s.AttrOr("class", ""))
		if id == "" {
			diag.Note("related post without id skipped")
			return
		}
		if seen[id] {
			return
		}
		seen[id] = true

		link := s.Find("a[href]").First()
		r := model.SearchResult{
			ID:    id,
			URL:   p.site.Resolve(link.AttrOr("href", "")),
			Title: cleaner.CollapseSpace(s.Text()),
		}
		if r.URL == "" {
			r.URL = p.site.PostURL(id)
		} else if !site.IsSameDomain(r.URL, p.site.BaseURL()) {
			diag.Note("off-site related post skipped: " + r.URL)
			return
		}
		if r.Title == "" {
			r.Title = cleaner.CollapseSpace(link.AttrOr("title", ""))
		}
		if u := p.site.Resolve(imageSource(s.Find("img").First())); u != "" {
			r.ThumbnailURL = &u
		}
		out = append(out, r)
	})
	return out
}

// downloads returns the page's file links, deduplicated by normalized URL.
func (p *Parser) downloads(doc *goquery.Document) []model.DownloadLink {
	out := []model.DownloadLink{}
	seen := make(map[string]bool)

	doc.Find(p.site.Selectors.Downloads).Each(func(_ int, s *goquery.Selection) {
		u := p.site.Resolve(s.AttrOr("href", ""))
		key := site.NormalizeURL(u)
		if key == "" || seen[key] || !downloadPattern.MatchString(key) {
			return
		}
		seen[key] = true

		link := model.DownloadLink{
			Label: cleaner.CollapseSpace(s.Text()),
			URL:   u,
		}
		if size, ok := cleaner.ParseSize(link.Label); ok {
			link.SizeBytes = &size
		}
		out = append(out, link)
	})
	return out
}

func (p *Parser) meta(doc *goquery.Document, article *goquery.Selection, info map[string]string, diag *model.Diagnostics) model.PostMeta {
	sel := p.site.Selectors
	var m model.PostMeta

	if content := article.Find(sel.Content).First(); content.Length() > 0 {
		if html, err := content.Html(); err == nil {
			md, err := p.description.Clean(html)
			switch {
			case err != nil:
				diag.Note(fmt.Sprintf("description: %s: %v", p.description.Name(), err))
			case md != "":
				m.Description = &md
			}
		}
	}

	if v := cleaner.Version(article.Find(sel.Title).First().Text()); v != "" {
		m.Version = &v
	}

	if gm := doc.Find(sel.Sidebar).Find(sel.GameMode).First(); gm.Length() > 0 {
		mode := "online"
		if strings.Contains(gm.Text(), offlineMarker) {
			mode = "offline"
		}
		m.Mode = &mode
	}

	if v, ok := info[androidLabel]; ok {
		m.RequiredAndroid = &v
	}

	if link := strings.TrimSpace(doc.Find(sel.GooglePlay).First().AttrOr("data-link", "")); link != "" {
		m.GooglePlayURL = &link
	}
	return m
}
