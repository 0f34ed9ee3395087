package spider

import (
	"strings"
	"time"

	"github.com/pfrederiksen/losca-meetings/internal/fetch"
	"github.com/pfrederiksen/losca-meetings/internal/meeting"
)

const metroTransitURL = "https://metro.legistar.com/Calendar.aspx"

// Legistar calendar columns
const (
	legistarName     = "Name"
	legistarDate     = "Meeting Date"
	legistarTime     = "Meeting Time"
	legistarLocation = "Meeting Location"
	legistarDetails  = "Meeting Details"
	legistarAgenda   = "Agenda"
	legistarICal     = "iCalendar"
	legistarAudio    = "Audio"
)

// MetroTransit reads the LA Metro board calendar from Legistar
type MetroTransit struct {
	base
}

// NewMetroTransit creates the spider. Legistar's robots.txt disallows the
// calendar, which is the public schedule.
func NewMetroTransit() *MetroTransit {
	return &MetroTransit{base{
		name:         "losca_Metro_Transit",
		agency:       "Los Angeles Metro Transit",
		loc:          losAngeles,
		startURLs:    []string{metroTransitURL},
		ignoreRobots: true,
	}}
}

// Parse reads every row of the calendar grid
func (s *MetroTransit) Parse(doc *fetch.Document, now time.Time) ([]meeting.Candidate, error) {
	events, err := readLegistar(doc.Reader(), doc.URL)
	if err != nil {
		return nil, err
	}

	allDay := false
	candidates := make([]meeting.Candidate, 0, len(events))
	for _, e := range events {
		address, notes := splitLegistarLocation(e.label(legistarLocation))
		candidates = append(candidates, meeting.Candidate{
			Title:          e.label(legistarName),
			Description:    notes,
			Classification: classify(e.label(legistarName), meeting.Committee, meeting.Board, meeting.CityCouncil),
			Start:          s.legistarStart(e),
			AllDay:         &allDay,
			Location:       location("", address),
			Links:          legistarLinks(e),
			Source:         legistarSource(e, doc.URL),
		})
	}
	return candidates, nil
}

// legistarStart joins date and time; a row whose time does not parse falls
// back to the date alone
func (s *MetroTransit) legistarStart(e legistarEvent) meeting.Timestamp {
	date := e.label(legistarDate)
	if date == "" {
		return meeting.Timestamp{}
	}
	if clock := e.label(legistarTime); clock != "" {
		if ts := meeting.ParseTimestamp(date+" "+clock, s.loc, "1/2/2006 3:04 PM"); ts.Valid() {
			return ts
		}
	}
	return meeting.ParseTimestamp(date, s.loc, "1/2/2006")
}

// splitLegistarLocation separates the room address on the first line of the
// location cell from the remote viewing notes that follow it
func splitLegistarLocation(cell string) (string, string) {
	lines := strings.SplitN(cell, "\n", 2)
	if len(lines) == 1 {
		return lines[0], ""
	}
	return lines[0], strings.Join(strings.Fields(lines[1]), " ")
}

// legistarLinks keeps details, agenda, calendar export and published audio
func legistarLinks(e legistarEvent) []meeting.Link {
	links := make([]meeting.Link, 0)
	add := func(title, href string) {
		if href != "" {
			links = append(links, meeting.Link{Title: title, Href: href})
		}
	}

	add("Meeting Details", e.url(legistarDetails))
	add("Agenda", e.url(legistarAgenda))
	add("iCalendar", e.url(legistarICal))
	if audio := e[legistarAudio]; !strings.EqualFold(audio.Label, "Not available") {
		add(audio.Label, audio.URL)
	}
	return links
}

// legistarSource prefers the meeting detail page, then the body's page
func legistarSource(e legistarEvent, fallback string) string {
	if u := e.url(legistarDetails); u != "" {
		return u
	}
	if u := e.url(legistarName); u != "" {
		return u
	}
	return fallback
}
