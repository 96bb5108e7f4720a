package cleaner

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextCleaner strips all markup and decodes entities, producing a single
// line of plain text. Block boundaries become spaces.
type TextCleaner struct {
	policy *bluemonday.Policy
}

// NewText creates a plain-text cleaner.
func NewText() *TextCleaner {
	return &TextCleaner{policy: bluemonday.StrictPolicy()}
}

var blockBreaks = strings.NewReplacer(
	"<br>", " <br>",
	"<br/>", " <br/>",
	"<br />", " <br />",
	"</p>", "</p> ",
	"</div>", "</div> ",
	"</li>", "</li> ",
)

// Clean strips markup from s.
func (c *TextCleaner) Clean(s string) (string, error) {
	return c.Text(s), nil
}

// Text is Clean without the error return.
func (c *TextCleaner) Text(s string) string {
	stripped := c.policy.Sanitize(blockBreaks.Replace(s))
	// bluemonday re-escapes text content
	return CollapseSpace(html.UnescapeString(stripped))
}

// Name returns the cleaner type.
func (c *TextCleaner) Name() string {
	return "text"
}

var defaultText = NewText()

// PlainText strips markup from s with a shared TextCleaner.
func PlainText(s string) string {
	return defaultText.Text(s)
}
