package filter

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/pfrederiksen/losca-meetings/internal/meeting"
)

var losAngeles = mustLoad("America/Los_Angeles")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// nolint:gocyclo // Test function with many test cases
func TestParseDateRange(t *testing.T) {
	now := time.Date(2024, 10, 21, 9, 0, 0, 0, losAngeles)

	tests := []struct {
		name     string
		input    string
		wantErr  bool
		wantFrom time.Time
		wantTo   time.Time
	}{
		{
			name:     "Mar 1-15 rolls into next year",
			input:    "Mar 1-15",
			wantFrom: time.Date(2025, 3, 1, 0, 0, 0, 0, losAngeles),
			wantTo:   time.Date(2025, 3, 15, 23, 59, 59, 0, losAngeles),
		},
		{
			name:     "October 1-31 is this year",
			input:    "October 1-31",
			wantFrom: time.Date(2024, 10, 1, 0, 0, 0, 0, losAngeles),
			wantTo:   time.Date(2024, 10, 31, 23, 59, 59, 0, losAngeles),
		},
		{
			name:     "Nov 1 - Nov 15",
			input:    "Nov 1 - Nov 15",
			wantFrom: time.Date(2024, 11, 1, 0, 0, 0, 0, losAngeles),
			wantTo:   time.Date(2024, 11, 15, 23, 59, 59, 0, losAngeles),
		},
		{
			name:     "Dec 25 - Jan 5 (cross year)",
			input:    "Dec 25 - Jan 5",
			wantFrom: time.Date(2024, 12, 25, 0, 0, 0, 0, losAngeles),
			wantTo:   time.Date(2025, 1, 5, 23, 59, 59, 0, losAngeles),
		},
		{
			name:     "Feb (entire month)",
			input:    "Feb",
			wantFrom: time.Date(2025, 2, 1, 0, 0, 0, 0, losAngeles),
			wantTo:   time.Date(2025, 2, 28, 23, 59, 59, 0, losAngeles),
		},
		{
			name:     "Sept (entire month)",
			input:    "sept",
			wantFrom: time.Date(2025, 9, 1, 0, 0, 0, 0, losAngeles),
			wantTo:   time.Date(2025, 9, 30, 23, 59, 59, 0, losAngeles),
		},
		{name: "empty string", input: "", wantErr: true},
		{name: "invalid format", input: "not a date", wantErr: true},
		{name: "invalid day", input: "Mar 50-60", wantErr: true},
		{name: "invalid month", input: "Xxx 1-15", wantErr: true},
		{name: "reversed days", input: "Nov 15-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := ParseDateRange(tt.input, now)

			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseDateRange(%q) expected error, got nil", tt.input)
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseDateRange(%q) unexpected error: %v", tt.input, err)
			}

			if !from.Equal(tt.wantFrom) {
				t.Errorf("from = %v, want %v", from, tt.wantFrom)
			}
			if !to.Equal(tt.wantTo) {
				t.Errorf("to = %v, want %v", to, tt.wantTo)
			}
		})
	}
}

func TestParseDay(t *testing.T) {
	from, err := ParseDay("2024-11-03", losAngeles, false)
	if err != nil {
		t.Fatalf("ParseDay() unexpected error: %v", err)
	}
	if want := time.Date(2024, 11, 3, 0, 0, 0, 0, losAngeles); !from.Equal(want) {
		t.Errorf("ParseDay() = %v, want %v", from, want)
	}

	// 2024-11-03 is 25 hours long in Los Angeles.
	to, err := ParseDay("2024-11-03", losAngeles, true)
	if err != nil {
		t.Fatalf("ParseDay() unexpected error: %v", err)
	}
	if want := time.Date(2024, 11, 3, 23, 59, 59, 0, losAngeles); !to.Equal(want) {
		t.Errorf("ParseDay(endOfDay) = %v, want %v", to, want)
	}

	if _, err := ParseDay("11/03/2024", losAngeles, false); err == nil {
		t.Error("ParseDay() expected error for non-ISO date")
	}
}

func TestParseClassifications(t *testing.T) {
	got, err := ParseClassifications([]string{"board,city council", " COMMITTEE ", "not_classified"})
	if err != nil {
		t.Fatalf("ParseClassifications() unexpected error: %v", err)
	}
	want := []meeting.Classification{meeting.Board, meeting.CityCouncil, meeting.Committee, meeting.NotClassified}
	if len(got) != len(want) {
		t.Fatalf("ParseClassifications() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ParseClassifications()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if _, err := ParseClassifications([]string{"tribunal"}); err == nil {
		t.Error("ParseClassifications() expected error for unknown name")
	}
}

func TestParseStatuses(t *testing.T) {
	got, err := ParseStatuses([]string{"Tentative,cancelled"})
	if err != nil {
		t.Fatalf("ParseStatuses() unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != meeting.Tentative || got[1] != meeting.Cancelled {
		t.Errorf("ParseStatuses() = %v", got)
	}

	if _, err := ParseStatuses([]string{"postponed"}); err == nil {
		t.Error("ParseStatuses() expected error for unknown status")
	}
}

func TestParseMonth(t *testing.T) {
	tests := []struct {
		input string
		want  time.Month
	}{
		{"jan", time.January},
		{"January", time.January},
		{"JANUARY", time.January},
		{"feb", time.February},
		{"may", time.May},
		{"sept", time.September},
		{"dec", time.December},
		{"invalid", time.Month(0)},
		{"", time.Month(0)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseMonth(tt.input); got != tt.want {
				t.Errorf("parseMonth(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestYearForMonth(t *testing.T) {
	now := time.Date(2024, 10, 21, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		month time.Month
		want  int
	}{
		{"current month", time.October, 2024},
		{"future month", time.December, 2024},
		{"past month", time.January, 2025},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := yearForMonth(tt.month, now); got != tt.want {
				t.Errorf("yearForMonth(%v) = %v, want %v", tt.month, got, tt.want)
			}
		})
	}
}
