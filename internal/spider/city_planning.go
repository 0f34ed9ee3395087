package spider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/losca-meetings/internal/fetch"
	"github.com/pfrederiksen/losca-meetings/internal/logger"
	"github.com/pfrederiksen/losca-meetings/internal/meeting"
)

const (
	cityPlanningAPI      = "https://planning.lacity.gov/dcpapi2/meetings/api/all/%s/%d"
	cityPlanningMeetings = "https://planning.lacity.gov/about/commissions-boards-hearings"
)

var cityPlanningKinds = []string{"commissions", "boards", "hearings"}

// CityPlanning reads commission, board and hearing calendars from the City Planning API
type CityPlanning struct {
	base
}

// NewCityPlanning creates the spider. The API throttles aggressively, so requests
// are spaced two seconds apart and retried up to five times.
func NewCityPlanning() *CityPlanning {
	return &CityPlanning{base{
		name:       "losca_City_Planning",
		agency:     "Los Angeles City Planning",
		loc:        losAngeles,
		header:     map[string]string{"Accept": "application/json"},
		delay:      2 * time.Second,
		maxRetries: 5,
	}}
}

// URLs returns the three calendar endpoints for the year in effect at now
func (s *CityPlanning) URLs(now time.Time) []string {
	year := now.In(s.loc).Year()
	urls := make([]string, len(cityPlanningKinds))
	for i, kind := range cityPlanningKinds {
		urls[i] = fmt.Sprintf(cityPlanningAPI, kind, year)
	}
	return urls
}

// Fetch retrieves the current year of every calendar
func (s *CityPlanning) Fetch(ctx context.Context, f Fetcher, now time.Time) ([]*fetch.Document, error) {
	return s.fetchAll(ctx, f, s.URLs(now))
}

type planningEntries struct {
	Entries []json.RawMessage `json:"Entries"`
}

type planningEntry struct {
	Type      *string `json:"Type"`
	Date      *string `json:"Date"`
	Address   *string `json:"Address"`
	Note      string  `json:"Note"`
	BoardName string  `json:"BoardName"`
}

// Parse reads the "Entries" array. Entries missing Type, Date or Address are
// passed through incomplete so the normalizer reports them.
func (s *CityPlanning) Parse(doc *fetch.Document, now time.Time) ([]meeting.Candidate, error) {
	var page planningEntries
	if err := doc.JSON(&page); err != nil {
		return nil, err
	}
	if page.Entries == nil {
		return nil, fmt.Errorf("missing Entries field in %s", doc.URL)
	}

	candidates := make([]meeting.Candidate, 0, len(page.Entries))
	for i, raw := range page.Entries {
		var entry planningEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			logger.Warn("Skipping malformed planning entry", logger.Fields{
				"spider":   s.name,
				"document": doc.URL,
				"index":    i,
				"error":    err.Error(),
			})
			continue
		}

		c := meeting.Candidate{
			Description: strings.TrimSpace(entry.Note),
			Source:      cityPlanningMeetings,
		}
		if entry.Type != nil {
			c.Title = *entry.Type
			c.Classification = classify(*entry.Type, meeting.Board, meeting.Commission)
		}
		if entry.Date != nil {
			c.Start = meeting.ParseTimestamp(*entry.Date, s.loc)
		}
		if entry.Address != nil {
			c.Location, c.Cancelled = planningLocation(entry.BoardName, *entry.Address)
		}

		links, err := planningLinks(raw)
		if err != nil {
			return nil, fmt.Errorf("reading links: %w", err)
		}
		c.Links = links

		candidates = append(candidates, c)
	}
	return candidates, nil
}

// planningLocation blanks the location when the address field carries a
// cancellation notice instead of an address, and reports the cancellation
func planningLocation(board, address string) (*meeting.Location, bool) {
	address = strings.TrimSpace(strings.NewReplacer("\n", "", "\r", "").Replace(address))
	if address == "" {
		return location("", ""), false
	}
	if strings.Contains(strings.ToLower(address), "cancel") {
		return location("", ""), true
	}
	return location(board, address), false
}

// planningLinks returns every non-empty "...Link" field in document order,
// titled by the key without its "Link" suffix (e.g. "AgendaLink" -> "Agenda")
func planningLinks(raw json.RawMessage) ([]meeting.Link, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	links := make([]meeting.Link, 0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)

		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		if !strings.Contains(key, "Link") {
			continue
		}
		href, ok := value.(string)
		if !ok || strings.TrimSpace(href) == "" {
			continue
		}
		links = append(links, meeting.Link{
			Title: strings.ReplaceAll(key, "Link", ""),
			Href:  href,
		})
	}
	return links, nil
}
