package meeting

import (
	"fmt"
	"strings"
	"time"
)

// DefaultLayouts are the civil date formats seen across agency sources
var DefaultLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Monday, January 2, 2006 03:04 PM",
	"Monday, January 2, 2006 3:04 PM",
	"Monday, January 2, 2006",
	"January 2, 2006 3:04 PM",
	"January 2, 2006",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 2006",
	"1/2/2006 3:04 PM",
	"1/2/2006 3:04PM",
	"1/2/2006",
}

// ParseCivil reads text as wall-clock time in loc. Layouts are tried in order;
// DefaultLayouts are used when none are given. Zone information in the text is
// discarded, keeping only the wall clock.
func ParseCivil(text string, loc *time.Location, layouts ...string) (time.Time, error) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(layouts) == 0 {
		layouts = DefaultLayouts
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, text); err == nil {
			return WallClock(t, loc), nil
		}
	}

	// Zoned ISO timestamps from JSON APIs
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return WallClock(t, loc), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", text)
}

// ParseTimestamp is ParseCivil wrapped as a candidate Timestamp
func ParseTimestamp(text string, loc *time.Location, layouts ...string) Timestamp {
	if strings.TrimSpace(text) == "" {
		return Timestamp{}
	}
	t, err := ParseCivil(text, loc, layouts...)
	if err != nil {
		return Unparsed(text, err)
	}
	return Timestamp{Time: t, Raw: text}
}

// WallClock keeps the calendar date and clock reading of t and places it in loc.
// A reading that falls in a daylight-saving gap is taken with the offset in
// effect before the gap (RFC 5545), so 02:30 on a spring-forward day becomes
// 03:30. An ambiguous fall-back reading resolves to its first occurrence.
func WallClock(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	w := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
	if w.Hour() == t.Hour() && w.Minute() == t.Minute() && w.Day() == t.Day() {
		return w
	}

	// time.Date lands before the transition here; its offset is the pre-gap one.
	_, offset := w.Zone()
	naive := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
	return naive.Add(-time.Duration(offset) * time.Second).In(loc)
}

// StartOfDay returns midnight of t's calendar day in t's location
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
