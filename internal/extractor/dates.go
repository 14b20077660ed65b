package extractor

import (
	"regexp"
	"strings"
	"time"
)

// dateLayouts covers numeric dates and every month-name form with an
// optional full or short weekday. Numeric fields accept one or two digits.
var dateLayouts = func() []string {
	layouts := []string{"2006-1-2", "2006/1/2", "1/2/2006"}
	for _, month := range []string{"January", "Jan"} {
		for _, weekday := range []string{"", "Monday, ", "Mon, "} {
			layouts = append(layouts,
				weekday+month+" 2, 2006",
				weekday+"2 "+month+" 2006",
			)
		}
	}
	return layouts
}()

const monthNames = `jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec`

var (
	ordinalSuffix = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)\b`)

	// monthAbbrev matches "Sept" and abbreviations written with a period.
	monthAbbrev = regexp.MustCompile(`(?i)\b(?:(sep)t\b\.?|(` + monthNames + `)\.)`)

	// dateLike matches text that starts out as a date, optionally after a
	// weekday, whether or not the date itself is valid.
	dateLike = regexp.MustCompile(`(?i)^(?:[a-z]+,?\s+)?(?:` +
		`(?:` + monthNames + `)[a-z]*\.?\s+\d` +
		`|\d{1,2}(?:st|nd|rd|th)?\s+(?:` + monthNames + `)` +
		`|\d{4}[-/]\d{1,2}[-/]\d{1,2}` +
		`|\d{1,2}/\d{1,2}/\d{4})`)

	noteSeparators = []string{" - ", " – ", " — ", ":"}
)

// LooksLikeDate reports whether heading text is shaped like a date.
func LooksLikeDate(s string) bool {
	return dateLike.MatchString(strings.TrimSpace(s))
}

// ParseDate parses a date heading into midnight of that calendar day in loc.
// A date may be followed by a note, as in "January 5, 2026 - travel".
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	for _, candidate := range dateCandidates(s) {
		for _, layout := range dateLayouts {
			t, err := time.ParseInLocation(layout, candidate, loc)
			if err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
			}
		}
	}
	return time.Time{}, false
}

func dateCandidates(s string) []string {
	full := normalizeDate(s)
	out := []string{full}
	for _, sep := range noteSeparators {
		if before, _, ok := strings.Cut(full, sep); ok {
			if c := normalizeDate(before); c != "" && c != full {
				out = append(out, c)
			}
		}
	}
	return out
}

func normalizeDate(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, ":. ")
	s = monthAbbrev.ReplaceAllString(s, "$1$2")
	return ordinalSuffix.ReplaceAllString(s, "$1")
}
