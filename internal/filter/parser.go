package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/losca-meetings/internal/meeting"
)

const monthPattern = `(jan|january|feb|february|mar|march|apr|april|may|jun|june|jul|july|aug|august|sep|sept|september|oct|october|nov|november|dec|december)`

var (
	sameMonthRange  = regexp.MustCompile(`(?i)^` + monthPattern + `\s+(\d{1,2})\s*-\s*(\d{1,2})$`)
	crossMonthRange = regexp.MustCompile(`(?i)^` + monthPattern + `\s+(\d{1,2})\s*-\s*` + monthPattern + `\s+(\d{1,2})$`)
	wholeMonth      = regexp.MustCompile(`(?i)^` + monthPattern + `$`)
)

// ParseDateRange parses a date range string into start and end times.
//
// Supported formats:
//   - "Mar 1-15" or "March 1-15" - Same month, different days
//   - "March 1 - April 15" - Different months
//   - "March" - Entire month
//
// The year is inferred from now: a month earlier than now's month is next
// year, and a cross-month range that wraps ends in the following year.
// Start time is at 00:00:00, end time is at 23:59:59, both in now's location.
func ParseDateRange(input string, now time.Time) (*time.Time, *time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil, fmt.Errorf("date range cannot be empty")
	}
	loc := now.Location()

	if matches := sameMonthRange.FindStringSubmatch(input); matches != nil {
		month := parseMonth(matches[1])
		day1, err := parseDay(matches[2])
		if err != nil {
			return nil, nil, err
		}
		day2, err := parseDay(matches[3])
		if err != nil {
			return nil, nil, err
		}

		year := yearForMonth(month, now)
		from := time.Date(year, month, day1, 0, 0, 0, 0, loc)
		to := time.Date(year, month, day2, 23, 59, 59, 0, loc)

		if from.After(to) {
			return nil, nil, fmt.Errorf("start date must be before end date")
		}
		return &from, &to, nil
	}

	if matches := crossMonthRange.FindStringSubmatch(input); matches != nil {
		month1 := parseMonth(matches[1])
		day1, err := parseDay(matches[2])
		if err != nil {
			return nil, nil, err
		}
		month2 := parseMonth(matches[3])
		day2, err := parseDay(matches[4])
		if err != nil {
			return nil, nil, err
		}

		year1 := yearForMonth(month1, now)
		year2 := year1
		if month2 < month1 {
			year2++
		}

		from := time.Date(year1, month1, day1, 0, 0, 0, 0, loc)
		to := time.Date(year2, month2, day2, 23, 59, 59, 0, loc)

		if from.After(to) {
			return nil, nil, fmt.Errorf("start date must be before end date")
		}
		return &from, &to, nil
	}

	if matches := wholeMonth.FindStringSubmatch(input); matches != nil {
		month := parseMonth(matches[1])
		year := yearForMonth(month, now)
		from := time.Date(year, month, 1, 0, 0, 0, 0, loc)
		// Day 0 of the next month is the last day of this one.
		to := time.Date(year, month+1, 0, 23, 59, 59, 0, loc)
		return &from, &to, nil
	}

	return nil, nil, fmt.Errorf("invalid date range format. Use 'Mar 1-15', 'March 1 - March 15', or 'March'")
}

// ParseDay parses a "2006-01-02" day in loc. With endOfDay the result is
// 23:59:59 of that day, for inclusive upper bounds.
func ParseDay(input string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(input), loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", input)
	}
	if endOfDay {
		t = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, loc)
	}
	return &t, nil
}

// ParseClassifications reads comma-separated classification names, ignoring case
func ParseClassifications(input []string) ([]meeting.Classification, error) {
	known := []meeting.Classification{
		meeting.Board,
		meeting.CityCouncil,
		meeting.Commission,
		meeting.Committee,
		meeting.NotClassified,
	}

	var out []meeting.Classification
	for _, name := range splitList(input) {
		var found bool
		for _, c := range known {
			if strings.EqualFold(name, string(c)) || strings.EqualFold(strings.ReplaceAll(name, "_", " "), string(c)) {
				out = append(out, c)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown classification %q", name)
		}
	}
	return out, nil
}

// ParseStatuses reads comma-separated status names, ignoring case
func ParseStatuses(input []string) ([]meeting.Status, error) {
	known := []meeting.Status{meeting.Tentative, meeting.Confirmed, meeting.Cancelled, meeting.Passed}

	var out []meeting.Status
	for _, name := range splitList(input) {
		var found bool
		for _, s := range known {
			if strings.EqualFold(name, string(s)) {
				out = append(out, s)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown status %q", name)
		}
	}
	return out, nil
}

func splitList(input []string) []string {
	var out []string
	for _, item := range input {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseDay(s string) (int, error) {
	day, err := strconv.Atoi(s)
	if err != nil || day < 1 || day > 31 {
		return 0, fmt.Errorf("invalid day: %s", s)
	}
	return day, nil
}

// parseMonth converts a month name to time.Month
func parseMonth(name string) time.Month {
	name = strings.ToLower(strings.TrimSpace(name))

	months := map[string]time.Month{
		"jan": time.January, "january": time.January,
		"feb": time.February, "february": time.February,
		"mar": time.March, "march": time.March,
		"apr": time.April, "april": time.April,
		"may": time.May,
		"jun": time.June, "june": time.June,
		"jul": time.July, "july": time.July,
		"aug": time.August, "august": time.August,
		"sep": time.September, "sept": time.September, "september": time.September,
		"oct": time.October, "october": time.October,
		"nov": time.November, "november": time.November,
		"dec": time.December, "december": time.December,
	}

	return months[name]
}

// yearForMonth returns now's year, or the next one if month has already passed
func yearForMonth(month time.Month, now time.Time) int {
	year := now.Year()
	if month < now.Month() {
		year++
	}
	return year
}
