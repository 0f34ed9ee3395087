package meeting

import (
	"strings"
	"time"
)

var cancellationMarkers = []string{"cancel", "rescheduled", "postpone"}

// DeriveStatus classifies a meeting at the instant now.
// Cancellation wins over the time rule; a start equal to now is still tentative.
func DeriveStatus(start, now time.Time, cancelled bool) Status {
	if cancelled {
		return Cancelled
	}
	if start.Before(now) {
		return Passed
	}
	return Tentative
}

// CancellationSignal reports whether any of the texts marks a meeting as
// cancelled, rescheduled or postponed
func CancellationSignal(texts ...string) bool {
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, marker := range cancellationMarkers {
			if strings.Contains(lower, marker) {
				return true
			}
		}
	}
	return false
}

func (c *Candidate) cancelled() bool {
	if c.Cancelled {
		return true
	}
	texts := []string{c.Title, c.Description, c.StatusText}
	for _, link := range c.Links {
		texts = append(texts, link.Title)
	}
	return CancellationSignal(texts...)
}
