// Package filter narrows a stream of meetings by date, title, classification
// and status.
//
// Criteria combine with AND; values within one criterion combine with OR.
// Dates compare by the agency's wall clock, so a range of "Mar 1-15" means
// the same civil days whichever zone the caller runs in.
//
// Example usage:
//
//	f := filter.NewFilter()
//	f.Classifications = []meeting.Classification{meeting.Board}
//	f.Titles = []string{"budget"}
//	upcoming := f.Apply(meetings)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/losca-meetings/internal/meeting"
)

// Filter represents meeting filtering criteria
type Filter struct {
	// Date range filtering, inclusive, by wall clock
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	// Title filtering (case-insensitive substring match)
	Titles []string `json:"titles,omitempty"`

	Classifications []meeting.Classification `json:"classifications,omitempty"`
	Statuses        []meeting.Status         `json:"statuses,omitempty"`

	// Weekend-only filtering (Saturday/Sunday)
	WeekendsOnly bool `json:"weekends_only,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
// The filter will match all meetings until criteria are added.
func NewFilter() *Filter {
	return &Filter{
		Titles:          []string{},
		Classifications: []meeting.Classification{},
		Statuses:        []meeting.Status{},
	}
}

// IsEmpty checks if the filter has any active criteria
func (f *Filter) IsEmpty() bool {
	return f.DateFrom == nil &&
		f.DateTo == nil &&
		len(f.Titles) == 0 &&
		len(f.Classifications) == 0 &&
		len(f.Statuses) == 0 &&
		!f.WeekendsOnly
}

// Matches checks if a meeting passes all active criteria.
// An empty filter matches all meetings.
func (f *Filter) Matches(m *meeting.Meeting) bool {
	if f.IsEmpty() {
		return true
	}

	start := civil(m.Start)

	if f.DateFrom != nil && start.Before(civil(*f.DateFrom)) {
		return false
	}
	if f.DateTo != nil && start.After(civil(*f.DateTo)) {
		return false
	}

	if f.WeekendsOnly {
		weekday := start.Weekday()
		if weekday != time.Saturday && weekday != time.Sunday {
			return false
		}
	}

	if len(f.Titles) > 0 {
		matched := false
		titleLower := strings.ToLower(m.Title)
		for _, title := range f.Titles {
			if strings.Contains(titleLower, strings.ToLower(title)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(f.Classifications) > 0 {
		matched := false
		for _, c := range f.Classifications {
			if m.Classification == c {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(f.Statuses) > 0 {
		matched := false
		for _, s := range f.Statuses {
			if m.Status == s {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

// Apply returns the meetings that match, in their original order.
// If the filter is empty, returns the original list unchanged.
func (f *Filter) Apply(meetings []*meeting.Meeting) []*meeting.Meeting {
	if f.IsEmpty() {
		return meetings
	}

	filtered := make([]*meeting.Meeting, 0, len(meetings))
	for _, m := range meetings {
		if f.Matches(m) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// String returns a human-readable description of the active criteria.
// Format: "From: Jan 2, 2026 | To: Jan 15, 2026 | Titles: budget | Weekends only"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("Jan 2, 2006")))
	}

	if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.DateTo.Format("Jan 2, 2006")))
	}

	if len(f.Titles) > 0 {
		parts = append(parts, fmt.Sprintf("Titles: %s", strings.Join(f.Titles, ", ")))
	}

	if len(f.Classifications) > 0 {
		names := make([]string, len(f.Classifications))
		for i, c := range f.Classifications {
			names[i] = string(c)
		}
		parts = append(parts, fmt.Sprintf("Classifications: %s", strings.Join(names, ", ")))
	}

	if len(f.Statuses) > 0 {
		names := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			names[i] = string(s)
		}
		parts = append(parts, fmt.Sprintf("Statuses: %s", strings.Join(names, ", ")))
	}

	if f.WeekendsOnly {
		parts = append(parts, "Weekends only")
	}

	return strings.Join(parts, " | ")
}

// civil drops the zone, keeping the wall clock, so values from different
// locations compare by calendar day and clock reading
func civil(t time.Time) time.Time {
	return meeting.WallClock(t, time.UTC)
}
