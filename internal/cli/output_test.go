package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/losca-meetings/internal/meeting"
)

func outputMeetings() []*meeting.Meeting {
	return []*meeting.Meeting{
		{
			ID:             "losca_test/202410221000/x/city_council_meeting",
			Title:          "City Council Meeting",
			Classification: meeting.CityCouncil,
			Start:          time.Date(2024, 10, 22, 10, 0, 0, 0, time.UTC),
			Location:       meeting.Location{Name: "City Hall", Address: "200 N Spring St"},
			Links:          []meeting.Link{{Title: "Agenda", Href: "https://example.gov/agenda"}},
			Source:         "https://example.gov/meetings",
			Status:         meeting.Tentative,
		},
		{
			ID:             "losca_test/202410230000/x/budget_hearing",
			Title:          "Budget Hearing",
			Classification: meeting.Committee,
			Start:          time.Date(2024, 10, 23, 0, 0, 0, 0, time.UTC),
			AllDay:         true,
			TimeNotes:      "Time to be announced",
			Links:          []meeting.Link{},
			Status:         meeting.Cancelled,
		},
	}
}

func TestWriteOutput_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOutput(&buf, outputMeetings(), OutputOptions{Format: FormatText}))

	out := buf.String()
	assert.Contains(t, out, "Tue Oct 22, 2024 10:00 AM  [tentative] City Council Meeting (City Council)")
	assert.Contains(t, out, "Location: City Hall, 200 N Spring St")
	assert.Contains(t, out, "Wed Oct 23, 2024 (all day)")
	assert.Contains(t, out, "[cancelled]")
	assert.Contains(t, out, "Total: 2 meetings")
	assert.NotContains(t, out, "ID:")
}

func TestWriteOutput_TextVerbose(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOutput(&buf, outputMeetings(), OutputOptions{Format: FormatText, Verbose: true}))

	out := buf.String()
	assert.Contains(t, out, "ID: losca_test/202410221000/x/city_council_meeting")
	assert.Contains(t, out, "Agenda: https://example.gov/agenda")
	assert.Contains(t, out, "Source: https://example.gov/meetings")
	assert.Contains(t, out, "Time notes: Time to be announced")
}

func TestWriteOutput_Empty(t *testing.T) {
	tests := []struct {
		format OutputFormat
		want   string
	}{
		{FormatText, "No meetings found.\n"},
		{FormatJSON, "[]\n"},
		{FormatJSONL, ""},
		{FormatICS, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WriteOutput(&buf, nil, OutputOptions{Format: tt.format}))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriteOutput_JSONL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOutput(&buf, outputMeetings(), OutputOptions{Format: FormatJSONL}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], `{"id":"losca_test/202410221000/x/city_council_meeting"`))
	assert.Contains(t, lines[1], `"all_day":true`)
	assert.Contains(t, lines[1], `"links":[]`)
}

func TestWriteOutput_ICSUsesDefaultName(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2024, 10, 21, 12, 0, 0, 0, time.UTC)
	require.NoError(t, WriteOutput(&buf, outputMeetings(), OutputOptions{Format: FormatICS, Now: now}))

	out := buf.String()
	assert.Contains(t, out, "X-WR-CALNAME:"+defaultCalendarName)
	assert.Contains(t, out, "DTSTAMP:20241021T120000Z")
	assert.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
}

func TestWriteOutput_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteOutput(&buf, outputMeetings(), OutputOptions{Format: "csv"}))
}

func TestOutputFormat_Valid(t *testing.T) {
	for _, f := range []OutputFormat{FormatText, FormatJSON, FormatJSONL, FormatICS} {
		assert.True(t, f.Valid(), f)
	}
	assert.False(t, OutputFormat("xml").Valid())
	assert.False(t, OutputFormat("").Valid())
}
