// Package calendar renders meetings as iCalendar (RFC 5545) documents
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/losca-meetings/internal/meeting"
)

const (
	prodID    = "-//losca-meetings//losca-meetings//EN"
	uidDomain = "losca-meetings"

	// maxLineOctets is the RFC 5545 content line limit, excluding CRLF
	maxLineOctets = 75
)

// GenerateICS generates an iCalendar (.ics) file for a single meeting.
// now is written as DTSTAMP.
func GenerateICS(m *meeting.Meeting, now time.Time) string {
	var ics strings.Builder
	writeHeader(&ics, "")
	writeEvent(&ics, m, now)
	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

// GenerateCalendarICS generates one calendar holding every meeting, in order.
// An empty list produces an empty string.
func GenerateCalendarICS(meetings []*meeting.Meeting, name string, now time.Time) string {
	if len(meetings) == 0 {
		return ""
	}

	var ics strings.Builder
	writeHeader(&ics, name)
	for _, m := range meetings {
		writeEvent(&ics, m, now)
	}
	ics.WriteString("END:VCALENDAR\r\n")
	return ics.String()
}

func writeHeader(ics *strings.Builder, name string) {
	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString("VERSION:2.0\r\n")
	writeLine(ics, "PRODID:"+prodID)
	ics.WriteString("CALSCALE:GREGORIAN\r\n")
	ics.WriteString("METHOD:PUBLISH\r\n")
	if name != "" {
		writeLine(ics, "X-WR-CALNAME:"+escapeICS(name))
	}
}

func writeEvent(ics *strings.Builder, m *meeting.Meeting, now time.Time) {
	ics.WriteString("BEGIN:VEVENT\r\n")

	writeLine(ics, fmt.Sprintf("UID:%s@%s", m.ID, uidDomain))
	writeLine(ics, "DTSTAMP:"+formatICSTime(now))

	if m.AllDay {
		day := m.Start
		writeLine(ics, "DTSTART;VALUE=DATE:"+formatICSDate(day))
		last := day
		if m.End != nil && m.End.After(day) {
			last = *m.End
		}
		// DTEND is exclusive for all-day events.
		writeLine(ics, "DTEND;VALUE=DATE:"+formatICSDate(last.AddDate(0, 0, 1)))
	} else {
		writeLine(ics, "DTSTART:"+formatICSTime(m.Start))
		if m.End != nil && m.End.After(m.Start) {
			writeLine(ics, "DTEND:"+formatICSTime(*m.End))
		}
	}

	writeLine(ics, "SUMMARY:"+escapeICS(m.Title))

	if description := describe(m); description != "" {
		writeLine(ics, "DESCRIPTION:"+escapeICS(description))
	}

	if location := formatLocation(m.Location); location != "" {
		writeLine(ics, "LOCATION:"+escapeICS(location))
	}

	if m.Classification != "" {
		writeLine(ics, "CATEGORIES:"+escapeICS(string(m.Classification)))
	}

	if m.Source != "" {
		writeLine(ics, "URL:"+m.Source)
	}

	writeLine(ics, "STATUS:"+icsStatus(m.Status))
	ics.WriteString("SEQUENCE:0\r\n")
	ics.WriteString("TRANSP:OPAQUE\r\n")
	ics.WriteString("END:VEVENT\r\n")
}

// icsStatus maps a meeting status onto VEVENT STATUS. Passed meetings keep
// CONFIRMED since they took place.
func icsStatus(s meeting.Status) string {
	switch s {
	case meeting.Cancelled:
		return "CANCELLED"
	case meeting.Tentative:
		return "TENTATIVE"
	default:
		return "CONFIRMED"
	}
}

func describe(m *meeting.Meeting) string {
	var parts []string
	if m.Description != "" {
		parts = append(parts, m.Description)
	}
	if m.TimeNotes != "" {
		parts = append(parts, m.TimeNotes)
	}
	for _, link := range m.Links {
		if link.Href == "" {
			continue
		}
		if link.Title != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", link.Title, link.Href))
		} else {
			parts = append(parts, link.Href)
		}
	}
	return strings.Join(parts, "\n")
}

func formatLocation(loc meeting.Location) string {
	switch {
	case loc.Name != "" && loc.Address != "":
		return loc.Name + ", " + loc.Address
	case loc.Name != "":
		return loc.Name
	default:
		return loc.Address
	}
}

// formatICSTime formats a time.Time as an iCalendar UTC datetime string
func formatICSTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

// formatICSDate formats the calendar day of t, in t's own location
func formatICSDate(t time.Time) string {
	return t.Format("20060102")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// writeLine writes one content line, folded at 75 octets without splitting
// a UTF-8 sequence
func writeLine(ics *strings.Builder, line string) {
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !startsRune(line[cut]) {
			cut--
		}
		ics.WriteString(line[:cut])
		ics.WriteString("\r\n ")
		line = line[cut:]
		// Continuation lines lose one octet to the leading space.
		limit = maxLineOctets - 1
	}
	ics.WriteString(line)
	ics.WriteString("\r\n")
}

func startsRune(b byte) bool {
	return b&0xC0 != 0x80
}
