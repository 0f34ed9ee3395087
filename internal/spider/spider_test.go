package spider

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/losca-meetings/internal/fetch"
	"github.com/pfrederiksen/losca-meetings/internal/logger"
	"github.com/pfrederiksen/losca-meetings/internal/meeting"
)

// fakeFetcher serves canned documents by URL and records every request
type fakeFetcher struct {
	mu       sync.Mutex
	docs     map[string]*fetch.Document
	requests []*fetch.Request
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{docs: make(map[string]*fetch.Document)}
}

func (f *fakeFetcher) serve(url string, body []byte) {
	f.docs[url] = &fetch.Document{URL: url, FinalURL: url, StatusCode: http.StatusOK, Body: body}
}

func (f *fakeFetcher) Do(ctx context.Context, req *fetch.Request) (*fetch.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if doc, ok := f.docs[req.URL]; ok {
		return doc, nil
	}
	return nil, &fetch.StatusError{URL: req.URL, StatusCode: http.StatusNotFound}
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err, "loading fixture %s", name)
	return data
}

func fixtureDoc(t *testing.T, name, url string) *fetch.Document {
	t.Helper()
	return &fetch.Document{URL: url, FinalURL: url, StatusCode: http.StatusOK, Body: readFixture(t, name)}
}

// normalize runs candidates through a normalizer for the spider, as the crawler does
func normalize(t *testing.T, s Spider, doc *fetch.Document, cs []meeting.Candidate, now time.Time) []*meeting.Meeting {
	t.Helper()
	n, err := meeting.NewNormalizer(s.Name(), meeting.WithLogger(logger.Nop()))
	require.NoError(t, err)
	return n.NormalizeAll(doc.URL, cs, now)
}

func la(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, losAngeles)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text  string
		order []meeting.Classification
		want  meeting.Classification
	}{
		{"Board of Directors", []meeting.Classification{meeting.Committee, meeting.Board}, meeting.Board},
		{"LA COC Board HMIS Committee", []meeting.Classification{meeting.Board, meeting.Committee}, meeting.Board},
		{"LA COC Board HMIS Committee", []meeting.Classification{meeting.Committee, meeting.Board}, meeting.Committee},
		{"Service Council", []meeting.Classification{meeting.Board, meeting.CityCouncil}, meeting.CityCouncil},
		{"Public Hearing", []meeting.Classification{meeting.Board, meeting.Commission}, meeting.NotClassified},
		{"PLANNING COMMISSION", []meeting.Classification{meeting.Commission}, meeting.Commission},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.text, tt.order...))
		})
	}
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "https://www.lahsa.org/events?e=1", resolve("https://www.lahsa.org/", "events?e=1"))
	assert.Equal(t, "https://bos.lacounty.gov/a.pdf", resolve("https://bos.lacounty.gov/board-meeting-agendas/", "/a.pdf"))
	assert.Equal(t, "https://example.com/x", resolve("https://bos.lacounty.gov/", "https://example.com/x"))
	assert.Equal(t, "", resolve("https://bos.lacounty.gov/", "  "))
}

func TestBaseFetch_RequestOptions(t *testing.T) {
	f := newFakeFetcher()
	f.serve("https://example.com/a", []byte("a"))
	f.serve("https://example.com/b", []byte("b"))

	b := &base{
		name:         "test",
		startURLs:    []string{"https://example.com/a", "https://example.com/b"},
		header:       map[string]string{"Accept": "application/json"},
		ignoreRobots: true,
		delay:        2 * time.Second,
		maxRetries:   5,
	}

	docs, err := b.Fetch(context.Background(), f, time.Now())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", string(docs[0].Body))
	assert.Equal(t, "b", string(docs[1].Body))

	req := f.requests[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.True(t, req.IgnoreRobots)
	assert.Equal(t, 2*time.Second, req.Delay)
	assert.Equal(t, uint64(5), req.MaxRetries)
}

func TestBaseFetch_PartialFailure(t *testing.T) {
	f := newFakeFetcher()
	f.serve("https://example.com/a", []byte("a"))

	b := &base{name: "test", startURLs: []string{"https://example.com/a", "https://example.com/missing"}}

	docs, err := b.Fetch(context.Background(), f, time.Now())
	require.Error(t, err)
	assert.Len(t, docs, 1)
	assert.Contains(t, err.Error(), "test:")

	var statusErr *fetch.StatusError
	assert.True(t, errors.As(err, &statusErr))
}

func TestSpiders_DoNotReadTheClock(t *testing.T) {
	// Parsing the same document at the same evaluation time gives the same records.
	s := NewHomelessServices()
	doc := fixtureDoc(t, "homeless_services.html", homelessServicesURL)
	now := la(2024, 12, 20, 8, 0)

	first, err := s.Parse(doc, now)
	require.NoError(t, err)
	second, err := s.Parse(doc, now)
	require.NoError(t, err)
	assert.Equal(t, normalize(t, s, doc, first, now), normalize(t, s, doc, second, now))
}
