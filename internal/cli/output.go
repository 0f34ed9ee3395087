package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pfrederiksen/losca-meetings/internal/calendar"
	"github.com/pfrederiksen/losca-meetings/internal/meeting"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText  OutputFormat = "text"
	FormatJSON  OutputFormat = "json"
	FormatJSONL OutputFormat = "jsonl"
	FormatICS   OutputFormat = "ics"
)

const defaultCalendarName = "LA Government Meetings"

// Valid reports whether f is a known format
func (f OutputFormat) Valid() bool {
	switch f {
	case FormatText, FormatJSON, FormatJSONL, FormatICS:
		return true
	}
	return false
}

// OutputOptions controls how meetings are written
type OutputOptions struct {
	Format       OutputFormat
	Verbose      bool
	CalendarName string
	// Now is written as the iCalendar DTSTAMP.
	Now time.Time
}

// WriteOutput writes the meetings in the specified format
func WriteOutput(w io.Writer, meetings []*meeting.Meeting, opts OutputOptions) error {
	switch opts.Format {
	case FormatJSON:
		return writeJSON(w, meetings)
	case FormatJSONL:
		return writeJSONL(w, meetings)
	case FormatICS:
		return writeICS(w, meetings, opts)
	case FormatText:
		return writeText(w, meetings, opts.Verbose)
	default:
		return fmt.Errorf("unknown format: %s", opts.Format)
	}
}

// writeJSON outputs meetings as one indented JSON array
func writeJSON(w io.Writer, meetings []*meeting.Meeting) error {
	if meetings == nil {
		meetings = []*meeting.Meeting{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(meetings)
}

// writeJSONL outputs one JSON object per line
func writeJSONL(w io.Writer, meetings []*meeting.Meeting) error {
	encoder := json.NewEncoder(w)
	for _, m := range meetings {
		if err := encoder.Encode(m); err != nil {
			return err
		}
	}
	return nil
}

func writeICS(w io.Writer, meetings []*meeting.Meeting, opts OutputOptions) error {
	name := opts.CalendarName
	if name == "" {
		name = defaultCalendarName
	}
	_, err := io.WriteString(w, calendar.GenerateCalendarICS(meetings, name, opts.Now))
	return err
}

// writeText outputs meetings as human-readable text
func writeText(w io.Writer, meetings []*meeting.Meeting, verbose bool) error {
	if len(meetings) == 0 {
		fmt.Fprintln(w, "No meetings found.")
		return nil
	}

	for _, m := range meetings {
		fmt.Fprintf(w, "%s  %-10s %s (%s)\n", formatWhen(m), "["+string(m.Status)+"]", m.Title, m.Classification)
		if where := formatWhere(m.Location); where != "" {
			fmt.Fprintf(w, "     Location: %s\n", where)
		}
		if verbose {
			fmt.Fprintf(w, "     ID: %s\n", m.ID)
			if m.TimeNotes != "" {
				fmt.Fprintf(w, "     Time notes: %s\n", m.TimeNotes)
			}
			if m.Source != "" {
				fmt.Fprintf(w, "     Source: %s\n", m.Source)
			}
			for _, link := range m.Links {
				fmt.Fprintf(w, "     %s: %s\n", linkTitle(link), link.Href)
			}
		}
	}

	label := "meetings"
	if len(meetings) == 1 {
		label = "meeting"
	}
	fmt.Fprintf(w, "\nTotal: %d %s\n", len(meetings), label)
	return nil
}

// formatWhen renders the start in the meeting's own zone
func formatWhen(m *meeting.Meeting) string {
	if m.AllDay {
		return m.Start.Format("Mon Jan 2, 2006") + " (all day)"
	}
	return m.Start.Format("Mon Jan 2, 2006 3:04 PM")
}

func formatWhere(loc meeting.Location) string {
	parts := make([]string, 0, 2)
	for _, s := range []string{loc.Name, loc.Address} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func linkTitle(link meeting.Link) string {
	if link.Title == "" {
		return "Link"
	}
	return link.Title
}
