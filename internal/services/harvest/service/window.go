package service

import (
	"time"

	ptime "tulflow/internal/platform/time"
	"tulflow/internal/services/harvest/domain"
)

// IncrementalWindow starts interval before the last harvest and ends now
func IncrementalWindow(last time.Time, interval time.Duration, now time.Time) domain.Window {
	return domain.Window{
		From:  ptime.FormatOAI(last.Add(-interval)),
		Until: ptime.FormatOAI(now),
	}
}

// AdvanceMarker reports whether a finished incremental run moves the marker.
// Runs without updates leave it in place so the same window is revisited
func AdvanceMarker(c domain.RunCounts) bool { return c.Updated > 0 }
