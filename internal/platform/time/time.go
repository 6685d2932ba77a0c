// Package time contains time related helpers
package time

import (
	"fmt"
	"time"
)

// OAILayout is the second granularity OAI-PMH datestamp layout, always UTC
const OAILayout = "2006-01-02T15:04:05Z"

// Ptr returns a pointer to t or nil if t is zero
func Ptr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// FormatOAI renders t in UTC with the OAI datestamp layout, empty for the zero time
func FormatOAI(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(OAILayout)
}

// ParseOAI accepts either OAI granularity (day or second)
func ParseOAI(s string) (time.Time, error) {
	for _, layout := range []string{OAILayout, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not an OAI datestamp: %q", s)
}
