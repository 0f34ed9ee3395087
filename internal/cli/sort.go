package cli

import (
	"sort"
	"strings"

	"github.com/pfrederiksen/losca-meetings/internal/meeting"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortNone             SortOrder = ""
	SortByStart          SortOrder = "start"
	SortByTitle          SortOrder = "title"
	SortByClassification SortOrder = "classification"
)

// Valid reports whether s is a known order
func (s SortOrder) Valid() bool {
	switch s {
	case SortNone, SortByStart, SortByTitle, SortByClassification:
		return true
	}
	return false
}

// sortMeetings sorts meetings in place. Ties keep emission order, and
// SortNone leaves the slice untouched.
func sortMeetings(meetings []*meeting.Meeting, sortOrder SortOrder) {
	switch sortOrder {
	case SortByStart:
		sort.SliceStable(meetings, func(i, j int) bool {
			return meetings[i].Start.Before(meetings[j].Start)
		})
	case SortByTitle:
		sort.SliceStable(meetings, func(i, j int) bool {
			ti, tj := strings.ToLower(meetings[i].Title), strings.ToLower(meetings[j].Title)
			if ti != tj {
				return ti < tj
			}
			// If titles are equal, sort by start
			return meetings[i].Start.Before(meetings[j].Start)
		})
	case SortByClassification:
		sort.SliceStable(meetings, func(i, j int) bool {
			if meetings[i].Classification != meetings[j].Classification {
				return meetings[i].Classification < meetings[j].Classification
			}
			// If classifications are equal, sort by start
			return meetings[i].Start.Before(meetings[j].Start)
		})
	}
}
