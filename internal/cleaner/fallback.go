package cleaner

import (
	"errors"
	"fmt"
	"strings"
)

// FallbackCleaner tries each cleaner in order and returns the first result
// produced without error.
type FallbackCleaner struct {
	cleaners []Cleaner
}

// NewFallback creates a cleaner over the given cleaners, most preferred first.
func NewFallback(cleaners ...Cleaner) *FallbackCleaner {
	return &FallbackCleaner{cleaners: cleaners}
}

// Clean returns the output of the first cleaner that succeeds. When all of
// them fail the errors are joined.
func (c *FallbackCleaner) Clean(html string) (string, error) {
	var errs []error
	for _, cl := range c.cleaners {
		out, err := cl.Clean(html)
		if err == nil {
			return out, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", cl.Name(), err))
	}
	if len(errs) == 0 {
		return "", errors.New("no cleaners configured")
	}
	return "", errors.Join(errs...)
}

// Name returns the names of the cleaners in order of preference.
func (c *FallbackCleaner) Name() string {
	names := make([]string, len(c.cleaners))
	for i, cl := range c.cleaners {
		names[i] = cl.Name()
	}
	return "fallback(" + strings.Join(names, "|") + ")"
}
