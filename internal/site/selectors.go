package site

// Selectors is the set of CSS selectors used to parse the site's markup.
// Every field can be overridden from configuration (site.selectors.*).
type Selectors struct {
	// Search result pages
	SearchContainer string `mapstructure:"search_container"`
	SearchEntry     string `mapstructure:"search_entry"`
	SearchTitle     string `mapstructure:"search_title"`
	SearchThumbnail string `mapstructure:"search_thumbnail"`
	SearchExcerpt   string `mapstructure:"search_excerpt"`
	SearchNoResults string `mapstructure:"search_no_results"`

	// Post pages
	Article      string `mapstructure:"article"`
	Title        string `mapstructure:"title"`
	Canonical    string `mapstructure:"canonical"`
	Content      string `mapstructure:"content"`
	Sidebar      string `mapstructure:"sidebar"`
	InfoItem     string `mapstructure:"info_item"`
	GameMode     string `mapstructure:"game_mode"`
	Stats        string `mapstructure:"stats"`
	Gallery      string `mapstructure:"gallery"`
	Thumbnail    string `mapstructure:"thumbnail"`
	Related      string `mapstructure:"related"`
	RelatedEntry string `mapstructure:"related_entry"`
	Downloads    string `mapstructure:"downloads"`
	GooglePlay   string `mapstructure:"google_play"`
}

// DefaultSelectors returns the selectors matching the current site layout.
func DefaultSelectors() Selectors {
	return Selectors{
		SearchContainer: "div.archive-posts",
		SearchEntry:     `article[id^="post-"]`,
		SearchTitle:     ".post-title a",
		SearchThumbnail: ".post-thumbnail img",
		SearchExcerpt:   ".post-excerpt",
		SearchNoResults: ".no-results",

		Article:      `article[id^="post-"]`,
		Title:        "h1",
		Canonical:    `link[rel="canonical"]`,
		Content:      "div.post-content",
		Sidebar:      "aside.sidebar-single",
		InfoItem:     "div.inf-cnt",
		GameMode:     ".game-mode",
		Stats:        ".post-stats [data-stat]",
		Gallery:      "section.screenshots-gallery a[href]",
		Thumbnail:    ".post-thumbnail img",
		Related:      "section.related-posts",
		RelatedEntry: "article",
		Downloads:    ".download-links a[href]",
		GooglePlay:   ".gply-link[data-link]",
	}
}

func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&s.SearchContainer, d.SearchContainer)
	fill(&s.SearchEntry, d.SearchEntry)
	fill(&s.SearchTitle, d.SearchTitle)
	fill(&s.SearchThumbnail, d.SearchThumbnail)
	fill(&s.SearchExcerpt, d.SearchExcerpt)
	fill(&s.SearchNoResults, d.SearchNoResults)
	fill(&s.Article, d.Article)
	fill(&s.Title, d.Title)
	fill(&s.Canonical, d.Canonical)
	fill(&s.Content, d.Content)
	fill(&s.Sidebar, d.Sidebar)
	fill(&s.InfoItem, d.InfoItem)
	fill(&s.GameMode, d.GameMode)
	fill(&s.Stats, d.Stats)
	fill(&s.Gallery, d.Gallery)
	fill(&s.Thumbnail, d.Thumbnail)
	fill(&s.Related, d.Related)
	fill(&s.RelatedEntry, d.RelatedEntry)
	fill(&s.Downloads, d.Downloads)
	fill(&s.GooglePlay, d.GooglePlay)
	return s
}
