package output

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jmylchreest/froid/pkg/model"
)

// TableWriter renders records as terminal tables. Consecutive records of the
// same type share one table; a post detail gets a field table followed by
// its download links.
type TableWriter struct {
	w     io.Writer
	items []any
}

// NewTableWriter creates a table writer.
func NewTableWriter(w io.Writer) *TableWriter {
	return &TableWriter{w: w}
}

func (w *TableWriter) Write(data any) error {
	w.items = append(w.items, data)
	return nil
}

func (w *TableWriter) WriteAll(data []any) error {
	w.items = append(w.items, data...)
	return nil
}

func (w *TableWriter) Flush() error {
	items := w.items
	w.items = nil
	if len(items) == 0 {
		_, err := io.WriteString(w.w, "(no results)\n")
		return err
	}

	for start := 0; start < len(items); {
		end := start + 1
		for end < len(items) && reflect.TypeOf(items[end]) == reflect.TypeOf(items[start]) {
			end++
		}
		if err := w.render(items[start:end]); err != nil {
			return err
		}
		start = end
	}
	return nil
}

func (w *TableWriter) newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w.w)
	return t
}

func (w *TableWriter) render(group []any) error {
	switch group[0].(type) {
	case model.SearchResult:
		t := w.newTable()
		t.AppendHeader(table.Row{"ID", "Title", "URL"})
		for _, it := range group {
			r := it.(model.SearchResult)
			t.AppendRow(table.Row{r.ID, r.Title, r.URL})
		}
		t.Render()
	case model.Comment:
		t := w.newTable()
		t.AppendHeader(table.Row{"ID", "Author", "Date", "Rating", "Reply To", "Text"})
		for _, it := range group {
			c := it.(model.Comment)
			date := ""
			if c.Timestamp != nil {
				date = c.Timestamp.Format(time.DateTime)
			}
			t.AppendRow(table.Row{c.ID, c.Author, date, floatOr(c.Rating), deref(c.ParentID), truncate(c.BodyText, 60)})
		}
		t.Render()
	case model.PostStatistics:
		t := w.newTable()
		t.AppendHeader(table.Row{"Post", "Views", "Likes", "Downloads", "Month", "Week", "Today"})
		for _, it := range group {
			s := it.(model.PostStatistics)
			t.AppendRow(table.Row{s.PostID,
				humanize.Comma(s.Views), humanize.Comma(s.Likes), humanize.Comma(s.Downloads),
				humanize.Comma(s.MonthlyDownloads), humanize.Comma(s.WeeklyDownloads), humanize.Comma(s.TodayDownloads)})
		}
		t.Render()
	case model.PostDetail:
		for _, it := range group {
			w.renderPost(it.(model.PostDetail))
		}
	default:
		t := w.newTable()
		for _, it := range group {
			t.AppendRow(table.Row{fmt.Sprintf("%+v", it)})
		}
		t.Render()
	}
	return nil
}

func (w *TableWriter) renderPost(p model.PostDetail) {
	t := w.newTable()
	t.SetTitle(p.Title)
	t.AppendRows([]table.Row{
		{"ID", p.ID},
		{"URL", p.URL},
		{"Category", p.Category},
		{"Version", deref(p.Meta.Version)},
		{"Mode", deref(p.Meta.Mode)},
		{"Android", deref(p.Meta.RequiredAndroid)},
		{"Google Play", deref(p.Meta.GooglePlayURL)},
		{"Downloads", intOr(p.Stats.Downloads)},
		{"Views", intOr(p.Stats.Views)},
		{"Likes", intOr(p.Stats.Likes)},
		{"Rating", floatOr(p.Stats.Rating)},
		{"Media", len(p.Media)},
		{"Related", len(p.RelatedPosts)},
	})
	t.Render()

	if len(p.DownloadLinks) == 0 {
		return
	}
	dl := w.newTable()
	dl.AppendHeader(table.Row{"Download", "Size", "URL"})
	for _, l := range p.DownloadLinks {
		size := ""
		if l.SizeBytes != nil {
			size = humanize.Bytes(*l.SizeBytes)
		}
		dl.AppendRow(table.Row{l.Label, size, l.URL})
	}
	dl.Render()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intOr(n *int64) string {
	if n == nil {
		return ""
	}
	return humanize.Comma(*n)
}

func floatOr(f *float64) string {
	if f == nil {
		return ""
	}
	return humanize.Ftoa(*f)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
