package cleaner

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

var digits = strings.NewReplacer(
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	"٫", ".", "٬", ",",
)

// ASCIIDigits converts Persian and Arabic-Indic digits and separators in s
// to their ASCII forms.
func ASCIIDigits(s string) string {
	return digits.Replace(s)
}

var (
	countPattern  = regexp.MustCompile(`\d[\d,]*`)
	floatPattern  = regexp.MustCompile(`\d+(?:\.\d+)?`)
	sizePattern   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(گیگابایت|مگابایت|کیلوبایت|بایت|[KMGT]i?B)`)
	dottedVersion = regexp.MustCompile(`\d+(?:\.\d+)+`)
	plainVersion  = regexp.MustCompile(`\d+`)
)

var sizeUnits = map[string]string{
	"گیگابایت": "GB",
	"مگابایت":  "MB",
	"کیلوبایت": "KB",
	"بایت":     "B",
}

// ParseCount returns the first integer in s, ignoring thousands separators.
func ParseCount(s string) (int64, bool) {
	m := countPattern.FindString(ASCIIDigits(s))
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(m, ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseFloat returns the first decimal number in s.
func ParseFloat(s string) (float64, bool) {
	m := floatPattern.FindString(ASCIIDigits(s))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseSize extracts a file size such as "177 مگابایت" or "1.2 GB" from a
// label and returns it in bytes.
func ParseSize(label string) (uint64, bool) {
	m := sizePattern.FindStringSubmatch(ASCIIDigits(label))
	if m == nil {
		return 0, false
	}
	unit := m[2]
	if u, ok := sizeUnits[unit]; ok {
		unit = u
	}
	n, err := humanize.ParseBytes(m[1] + " " + unit)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Version returns the first dotted version number in s, falling back to the
// first bare number. It returns "" when s holds no digits.
func Version(s string) string {
	s = ASCIIDigits(s)
	if v := dottedVersion.FindString(s); v != "" {
		return v
	}
	return plainVersion.FindString(s)
}
