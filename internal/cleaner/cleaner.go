// Package cleaner turns scraped markup into the text forms stored on
// records: plain text for titles and comment bodies, Markdown for post
// descriptions, and numbers parsed out of localized labels.
package cleaner

import "strings"

// Cleaner transforms an HTML fragment into a cleaner format.
type Cleaner interface {
	// Clean transforms the input HTML.
	Clean(html string) (string, error)

	// Name returns the cleaner type for logging/debugging.
	Name() string
}

// cleanWhitespace collapses runs of blank lines to a single blank line and
// trims the result.
func cleanWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var result []string
	blankCount := 0

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			blankCount++
			if blankCount <= 1 {
				result = append(result, "")
			}
		} else {
			blankCount = 0
			result = append(result, strings.TrimRight(line, " \t\r"))
		}
	}

	return strings.TrimSpace(strings.Join(result, "\n"))
}

// CollapseSpace replaces every run of whitespace with a single space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
