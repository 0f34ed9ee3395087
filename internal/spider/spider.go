package spider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/pfrederiksen/losca-meetings/internal/fetch"
	"github.com/pfrederiksen/losca-meetings/internal/meeting"
)

// Fetcher retrieves one document
type Fetcher interface {
	Do(ctx context.Context, req *fetch.Request) (*fetch.Document, error)
}

// Spider extracts meeting candidates from one agency's public source
type Spider interface {
	// Name is the stable source name used as the first segment of meeting IDs.
	Name() string
	Agency() string
	// Location is the agency's civil time zone.
	Location() *time.Location
	// Fetch retrieves every document the spider needs, in processing order.
	Fetch(ctx context.Context, f Fetcher, now time.Time) ([]*fetch.Document, error)
	// Parse turns one fetched document into candidates. It must not read the clock.
	Parse(doc *fetch.Document, now time.Time) ([]meeting.Candidate, error)
}

// base carries the metadata and the single-request fetch shared by most spiders
type base struct {
	name      string
	agency    string
	loc       *time.Location
	startURLs []string
	header    map[string]string
	// ignoreRobots is set for sources whose robots.txt blocks the public calendar.
	ignoreRobots bool
	delay        time.Duration
	maxRetries   uint64
}

func (b *base) Name() string             { return b.name }
func (b *base) Agency() string           { return b.agency }
func (b *base) Location() *time.Location { return b.loc }

func (b *base) request(rawURL string) *fetch.Request {
	req := fetch.Get(rawURL)
	for k, v := range b.header {
		req.Header.Set(k, v)
	}
	req.IgnoreRobots = b.ignoreRobots
	req.Delay = b.delay
	req.MaxRetries = b.maxRetries
	return req
}

func (b *base) fetchAll(ctx context.Context, f Fetcher, urls []string) ([]*fetch.Document, error) {
	docs := make([]*fetch.Document, 0, len(urls))
	for _, u := range urls {
		doc, err := f.Do(ctx, b.request(u))
		if err != nil {
			return docs, fmt.Errorf("%s: %w", b.name, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Fetch retrieves the start URLs in order
func (b *base) Fetch(ctx context.Context, f Fetcher, now time.Time) ([]*fetch.Document, error) {
	return b.fetchAll(ctx, f, b.startURLs)
}

// classify maps free text onto a classification; the first matching keyword wins
func classify(text string, order ...meeting.Classification) meeting.Classification {
	lower := strings.ToLower(text)
	keywords := map[meeting.Classification]string{
		meeting.Board:       "board",
		meeting.CityCouncil: "council",
		meeting.Commission:  "commission",
		meeting.Committee:   "committee",
	}
	for _, c := range order {
		if strings.Contains(lower, keywords[c]) {
			return c
		}
	}
	return meeting.NotClassified
}

// resolve makes href absolute against base
func resolve(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	b, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

func location(name, address string) *meeting.Location {
	return &meeting.Location{Name: name, Address: address}
}

// losAngeles is the civil zone of every current source
var losAngeles = mustLoadLocation("America/Los_Angeles")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("loading time zone %s: %v", name, err))
	}
	return loc
}
