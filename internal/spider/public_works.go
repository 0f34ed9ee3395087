package spider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pfrederiksen/losca-meetings/internal/fetch"
	"github.com/pfrederiksen/losca-meetings/internal/meeting"
)

const (
	publicWorksTokenURL = "https://api.lacity.org/oauth/accesstoken"
	publicWorksMetaURL  = "https://api.lacity.org/city_calendar/meta?_format=json&display_id=rest_export_meta&start=%s&eventtype=ENS%%20-%%20Meeting%%20-%%20Board&department=Board%%20of%%20Public%%20Works&items_per_page=500"
	publicWorksPageURL  = "https://api.lacity.org/city_calendar?_format=json&display_id=rest_export&start=%s&eventtype=ENS%%20-%%20Meeting%%20-%%20Board&department=Board%%20of%%20Public%%20Works&offset=%d&items_per_page=15"

	// publicWorksPageSize is fixed by the API
	publicWorksPageSize = 15
)

// ErrMissingCredentials is returned when the calendar API client credentials are not configured
var ErrMissingCredentials = errors.New("missing API credentials")

// PublicWorks reads Board of Public Works meetings from the city calendar API
type PublicWorks struct {
	base
	basicAuth string
}

// NewPublicWorks creates the spider. basicAuth is the full Authorization header
// value ("Basic ...") for the client-credentials token request.
func NewPublicWorks(basicAuth string) *PublicWorks {
	return &PublicWorks{
		base: base{
			name:         "losca_Public_Works",
			agency:       "Los Angeles Board of Public Works",
			loc:          losAngeles,
			ignoreRobots: true,
		},
		basicAuth: strings.TrimSpace(basicAuth),
	}
}

// WindowStart returns the first day queried: six months before now, clamped
// to the end of a shorter month
func (s *PublicWorks) WindowStart(now time.Time) string {
	local := now.In(s.loc)
	first := time.Date(local.Year(), local.Month()-6, 1, 0, 0, 0, 0, s.loc)
	last := first.AddDate(0, 1, -1).Day()
	day := local.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, s.loc).Format("2006-01-02")
}

// Fetch requests a token, counts the meetings in the window, then pages
// through them 15 at a time
func (s *PublicWorks) Fetch(ctx context.Context, f Fetcher, now time.Time) ([]*fetch.Document, error) {
	token, err := s.accessToken(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}

	start := s.WindowStart(now)
	meta, err := f.Do(ctx, s.authorized(fmt.Sprintf(publicWorksMetaURL, start), token))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}
	var items []interface{}
	if err := meta.JSON(&items); err != nil {
		return nil, fmt.Errorf("%s: %w", s.name, err)
	}

	docs := make([]*fetch.Document, 0, len(items)/publicWorksPageSize+1)
	for offset := 0; offset < len(items); offset += publicWorksPageSize {
		doc, err := f.Do(ctx, s.authorized(fmt.Sprintf(publicWorksPageURL, start, offset), token))
		if err != nil {
			return docs, fmt.Errorf("%s: %w", s.name, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *PublicWorks) accessToken(ctx context.Context, f Fetcher) (string, error) {
	if s.basicAuth == "" {
		return "", ErrMissingCredentials
	}

	req := s.request(publicWorksTokenURL)
	req.Method = http.MethodPost
	req.Header.Set("Authorization", s.basicAuth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Body = []byte(url.Values{"grant_type": {"client_credentials"}}.Encode())

	doc, err := f.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("requesting access token: %w", err)
	}
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := doc.JSON(&body); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("no access_token in token response")
	}
	return body.AccessToken, nil
}

func (s *PublicWorks) authorized(rawURL, token string) *fetch.Request {
	req := s.request(rawURL)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

type publicWorksItem struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Start          string `json:"start"`
	URL            string `json:"url"`
	InformationURL string `json:"informationurl"`
}

// Parse reads one page of calendar items. The API reports zoned times; only
// the wall clock is kept.
func (s *PublicWorks) Parse(doc *fetch.Document, now time.Time) ([]meeting.Candidate, error) {
	var items []publicWorksItem
	if err := doc.JSON(&items); err != nil {
		return nil, err
	}

	allDay := false
	hall := location("City Hall", "200 N Spring St, Los Angeles, CA 90012")

	candidates := make([]meeting.Candidate, 0, len(items))
	for _, item := range items {
		c := meeting.Candidate{
			Title:          strings.TrimSpace(strings.ReplaceAll(item.Title, "*", "")),
			Description:    item.Description,
			Classification: meeting.Board,
			Start:          meeting.ParseTimestamp(item.Start, s.loc),
			AllDay:         &allDay,
			TimeNotes:      "Please check meeting source for time and location details",
			Location:       hall,
			Links:          []meeting.Link{},
			Source:         item.URL,
		}
		if item.InformationURL != "" {
			c.Links = append(c.Links, meeting.Link{Title: "Agenda", Href: item.InformationURL})
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}
