package profile

import (
	"strings"
	"time"
)

// GermanDateLayout is dd.mm.yyyy
const GermanDateLayout = "02.01.2006"

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	GermanDateLayout,
	"2.1.2006",
	"2006/01/02",
	"01/02/2006",
	"January 2, 2006",
	"2 January 2006",
}

// FormatDate renders t as dd.mm.yyyy
func FormatDate(t time.Time) string {
	return t.Format(GermanDateLayout)
}

// FormatGermanDate reformats a date string as dd.mm.yyyy. Input that is not
// a recognized date is returned unchanged.
func FormatGermanDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FormatDate(t)
		}
	}
	return s
}
