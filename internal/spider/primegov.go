package spider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/pfrederiksen/losca-meetings/internal/fetch"
	"github.com/pfrederiksen/losca-meetings/internal/meeting"
)

// PrimeGov public portal, used by the City Clerk for council and commission calendars
const (
	primeGovBase        = "https://lacity.primegov.com"
	primeGovUpcomingURL = primeGovBase + "/api/v2/PublicPortal/ListUpcomingMeetings"
	primeGovArchivedURL = primeGovBase + "/api/v2/PublicPortal/ListArchivedMeetingsByCommitteeId"
	primeGovTemplateURL = primeGovBase + "/Portal/Meeting?meetingTemplateId=%d"
	primeGovCompiledURL = primeGovBase + "/Public/CompiledDocument?meetingTemplateId=%d&compileOutputType=1"
	primeGovMeetingPage = 3
	primeGovCompiledPDF = 1
)

type primeGovMeeting struct {
	ID           int                 `json:"id"`
	Title        string              `json:"title"`
	DateTime     string              `json:"dateTime"`
	VideoURL     string              `json:"videoUrl"`
	DocumentList []*primeGovDocument `json:"documentList"`
}

type primeGovDocument struct {
	TemplateID        int    `json:"templateId"`
	TemplateName      string `json:"templateName"`
	CompileOutputType int    `json:"compileOutputType"`
}

// CityCouncil reads upcoming Los Angeles City Council meetings from PrimeGov.
// The clerk's calendar page embeds the portal in an iframe backed by this API.
type CityCouncil struct {
	base
}

// NewCityCouncil creates the spider
func NewCityCouncil() *CityCouncil {
	return &CityCouncil{base{
		name:      "losca_City_Council",
		agency:    "Los Angeles City Council",
		loc:       losAngeles,
		startURLs: []string{primeGovUpcomingURL},
		header:    map[string]string{"Accept": "application/json"},
	}}
}

// Parse reads the JSON array of upcoming meetings
func (s *CityCouncil) Parse(doc *fetch.Document, now time.Time) ([]meeting.Candidate, error) {
	var items []primeGovMeeting
	if err := doc.JSON(&items); err != nil {
		return nil, err
	}

	clerk := location(
		"Office of the City Clerk",
		"200 N Spring St, Room 360, Los Angeles, CA 90012",
	)

	candidates := make([]meeting.Candidate, 0, len(items))
	for _, item := range items {
		c := meeting.Candidate{
			Title:          item.Title,
			Classification: meeting.CityCouncil,
			Start:          meeting.ParseTimestamp(item.DateTime, s.loc),
			Location:       clerk,
			Links:          []meeting.Link{},
			Source:         doc.URL,
		}
		if item.VideoURL != "" {
			c.Links = append(c.Links, meeting.Link{Title: "video", Href: item.VideoURL})
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// HealthCommission reads the Health Commission archive for one year from PrimeGov
type HealthCommission struct {
	base
	committeeID int
	year        int
}

// NewHealthCommission creates the spider. A zero year selects the year of the crawl.
func NewHealthCommission(committeeID, year int) *HealthCommission {
	if committeeID <= 0 {
		committeeID = 6
	}
	return &HealthCommission{
		base: base{
			name:   "losca_Health_Commission",
			agency: "Los Angeles Health Commission",
			loc:    losAngeles,
			header: map[string]string{"Accept": "application/json"},
		},
		committeeID: committeeID,
		year:        year,
	}
}

// ArchiveURL returns the archive endpoint for the year in effect at now
func (s *HealthCommission) ArchiveURL(now time.Time) string {
	year := s.year
	if year == 0 {
		year = now.In(s.loc).Year()
	}
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	q.Set("committeeId", strconv.Itoa(s.committeeID))
	return primeGovArchivedURL + "?" + q.Encode()
}

// Fetch retrieves the archive for the configured year
func (s *HealthCommission) Fetch(ctx context.Context, f Fetcher, now time.Time) ([]*fetch.Document, error) {
	return s.fetchAll(ctx, f, []string{s.ArchiveURL(now)})
}

// Parse reads archived meetings with their video and compiled document links
func (s *HealthCommission) Parse(doc *fetch.Document, now time.Time) ([]meeting.Candidate, error) {
	var items []primeGovMeeting
	if err := doc.JSON(&items); err != nil {
		return nil, err
	}

	office := location(
		"Los Angeles City Health Commission",
		"200 N Spring St, Room 340 (CITY HALL) Los Angeles, CA 90012",
	)

	candidates := make([]meeting.Candidate, 0, len(items))
	for _, item := range items {
		candidates = append(candidates, meeting.Candidate{
			Title:          item.Title,
			Classification: meeting.Commission,
			Start:          meeting.ParseTimestamp(item.DateTime, s.loc),
			Location:       office,
			Links:          healthLinks(item),
			Source:         doc.URL,
		})
	}
	return candidates, nil
}

// healthLinks lists the video first, then the meeting page and compiled agenda
// documents in portal order. Other output types have no public URL.
func healthLinks(item primeGovMeeting) []meeting.Link {
	links := make([]meeting.Link, 0, len(item.DocumentList)+1)
	if item.VideoURL != "" {
		links = append(links, meeting.Link{Title: "Video Link", Href: item.VideoURL})
	}

	for _, d := range item.DocumentList {
		if d == nil || d.TemplateID == 0 || d.TemplateName == "" {
			continue
		}
		switch d.CompileOutputType {
		case primeGovMeetingPage:
			links = append(links, meeting.Link{Title: d.TemplateName, Href: fmt.Sprintf(primeGovTemplateURL, d.TemplateID)})
		case primeGovCompiledPDF:
			links = append(links, meeting.Link{Title: d.TemplateName, Href: fmt.Sprintf(primeGovCompiledURL, d.TemplateID)})
		}
	}
	return links
}
