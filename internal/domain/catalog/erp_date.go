package catalog

import (
	"strings"
	"time"
)

// erpDateLayouts are tried in order. Day and month accept one or two digits.
var erpDateLayouts = []string{
	"2/1/2006",
	"2/1/06",
	"2006-01-02",
	"20060102",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseERPDate converts an ERP date string to a UTC calendar date.
// Blank values, placeholders such as "  /  /  " and anything unparseable
// yield nil rather than an error.
func ParseERPDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if isDatePlaceholder(s) {
		return nil
	}
	for _, layout := range erpDateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return &d
	}
	return nil
}

func isDatePlaceholder(s string) bool {
	return strings.Trim(s, " /-.0") == ""
}
