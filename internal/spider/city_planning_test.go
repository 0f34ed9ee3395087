package spider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/losca-meetings/internal/fetch"
	"github.com/pfrederiksen/losca-meetings/internal/meeting"
)

const cityPlanningFixtureURL = "https://planning.lacity.gov/dcpapi2/meetings/api/all/commissions/2024"

func TestCityPlanning_URLs(t *testing.T) {
	assert.Equal(t, []string{
		"https://planning.lacity.gov/dcpapi2/meetings/api/all/commissions/2024",
		"https://planning.lacity.gov/dcpapi2/meetings/api/all/boards/2024",
		"https://planning.lacity.gov/dcpapi2/meetings/api/all/hearings/2024",
	}, NewCityPlanning().URLs(la(2024, 10, 21, 0, 0)))
}

func TestCityPlanning_FetchIsThrottled(t *testing.T) {
	s := NewCityPlanning()
	now := la(2024, 10, 21, 0, 0)

	f := newFakeFetcher()
	for _, u := range s.URLs(now) {
		f.serve(u, []byte(`{"Entries":[]}`))
	}

	docs, err := s.Fetch(context.Background(), f, now)
	require.NoError(t, err)
	assert.Len(t, docs, 3)
	for _, req := range f.requests {
		assert.Equal(t, 2*time.Second, req.Delay)
		assert.Equal(t, uint64(5), req.MaxRetries)
		assert.Equal(t, "application/json", req.Header.Get("Accept"))
	}
}

func TestCityPlanning_Parse(t *testing.T) {
	s := NewCityPlanning()
	doc := fixtureDoc(t, "city_planning.json", cityPlanningFixtureURL)
	now := la(2024, 10, 21, 0, 0)

	candidates, err := s.Parse(doc, now)
	require.NoError(t, err)
	require.Len(t, candidates, 5)

	first := candidates[0]
	assert.Equal(t, "City Planning Commission", first.Title)
	assert.Equal(t, "CITY PLANNING COMMISSION\r\nREGULAR MEETING AGENDA", first.Description)
	assert.Equal(t, meeting.Commission, first.Classification)
	assert.Equal(t, la(2024, 10, 24, 0, 0), first.Start.Time)
	assert.Equal(t, &meeting.Location{Address: "1101 West Ventura Boulevard, 1515 South Veteran Avenue"}, first.Location)
	assert.Equal(t, cityPlanningMeetings, first.Source)
	assert.Equal(t, []meeting.Link{
		{Title: "Agenda", Href: "https://planning.lacity.gov/odocument/agenda-1024.pdf"},
		{Title: "Summary", Href: "https://planning.lacity.gov/odocument/summary-1024.pdf"},
	}, first.Links, "link keys keep document order and empty values are skipped")
	assert.False(t, first.Cancelled)

	cancelled := candidates[1]
	assert.True(t, cancelled.Cancelled)
	assert.Equal(t, &meeting.Location{}, cancelled.Location)

	board := candidates[2]
	assert.Equal(t, meeting.Board, board.Classification)
	assert.Equal(t, "Zoning Administration", board.Location.Name)
	assert.Equal(t, []meeting.Link{{Title: "Video", Href: "https://planning.lacity.gov/video/1105"}}, board.Links)

	hearing := candidates[3]
	assert.Equal(t, meeting.NotClassified, hearing.Classification)
	assert.Equal(t, &meeting.Location{}, hearing.Location)
	assert.False(t, hearing.Cancelled)

	assert.Nil(t, candidates[4].Location, "entry without an Address field")
}

func TestCityPlanning_Normalized(t *testing.T) {
	s := NewCityPlanning()
	doc := fixtureDoc(t, "city_planning.json", cityPlanningFixtureURL)
	now := la(2024, 10, 21, 0, 0)

	candidates, err := s.Parse(doc, now)
	require.NoError(t, err)

	meetings := normalize(t, s, doc, candidates, now)
	require.Len(t, meetings, 4)

	assert.Equal(t, "losca_City_Planning/202410240000/x/city_planning_commission", meetings[0].ID)
	assert.Equal(t, meeting.Tentative, meetings[0].Status)
	assert.Equal(t, "CITY PLANNING COMMISSION REGULAR MEETING AGENDA", meetings[0].Description)
	assert.Equal(t, meeting.Cancelled, meetings[1].Status)
}

func TestCityPlanning_BadDocuments(t *testing.T) {
	s := NewCityPlanning()
	now := la(2024, 10, 21, 0, 0)

	tests := []struct {
		name string
		body string
	}{
		{"missing entries", `{"Items":[]}`},
		{"not json", `<html>Too Many Requests</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Parse(&fetch.Document{URL: cityPlanningFixtureURL, Body: []byte(tt.body)}, now)
			assert.Error(t, err)
		})
	}
}

func TestPlanningLocation(t *testing.T) {
	loc, cancelled := planningLocation("Board", "Meeting Canceled\r\n")
	assert.True(t, cancelled)
	assert.Equal(t, &meeting.Location{}, loc)

	loc, cancelled = planningLocation("Board", " 200 N Spring St\r\n")
	assert.False(t, cancelled)
	assert.Equal(t, &meeting.Location{Name: "Board", Address: "200 N Spring St"}, loc)
}
