package spider

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/losca-meetings/internal/fetch"
	"github.com/pfrederiksen/losca-meetings/internal/meeting"
)

const boardOfSupervisorsURL = "https://bos.lacounty.gov/board-meeting-agendas/"

// BoardOfSupervisors reads the LA County Board of Supervisors agenda page
type BoardOfSupervisors struct {
	base
}

// NewBoardOfSupervisors creates the spider
func NewBoardOfSupervisors() *BoardOfSupervisors {
	return &BoardOfSupervisors{base{
		name:      "losca_Board_of_Supervisors",
		agency:    "Los Angeles County Board of Supervisors",
		loc:       losAngeles,
		startURLs: []string{boardOfSupervisorsURL},
	}}
}

// Parse reads each ".upcoming-meeting" card. The page nests ".card" elements, so
// cards are selected by the outer class; past meetings carry the same class.
func (s *BoardOfSupervisors) Parse(doc *fetch.Document, now time.Time) ([]meeting.Candidate, error) {
	page, err := goquery.NewDocumentFromReader(doc.Reader())
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	hall := location(
		"Kenneth Hahn Hall of Administration",
		"500 West Temple Street, Room 381B, Los Angeles",
	)

	candidates := make([]meeting.Candidate, 0)
	page.Find(".upcoming-meeting").Each(func(i int, item *goquery.Selection) {
		candidates = append(candidates, meeting.Candidate{
			Title:          strings.TrimSpace(item.Find(".card-title").First().Text()),
			Classification: meeting.Board,
			Start:          s.parseStart(item),
			Location:       hall,
			Links:          s.parseLinks(item, doc.URL),
			Source:         doc.URL,
		})
	})

	return candidates, nil
}

// parseStart joins "Tuesday, September 17, 2024" with "09:30 AM\n PST".
// Most meetings are 9:30 but not all, so the time is always read from the page.
func (s *BoardOfSupervisors) parseStart(item *goquery.Selection) meeting.Timestamp {
	date := strings.TrimSpace(item.Find(".calendar-date time").First().Text())
	clock := strings.TrimSpace(item.Find(".clock-time time").First().Text())
	if line := strings.SplitN(clock, "\n", 2); len(line) > 0 {
		clock = strings.TrimSpace(line[0])
	}
	if date == "" {
		return meeting.Timestamp{}
	}
	return meeting.ParseTimestamp(date+" "+clock, s.loc)
}

// parseLinks keeps agenda, supplemental and their PDF versions in page order
func (s *BoardOfSupervisors) parseLinks(item *goquery.Selection, pageURL string) []meeting.Link {
	links := make([]meeting.Link, 0)
	item.Find("a").Each(func(i int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		title := strings.TrimSpace(a.Find("span").First().Text())
		if title == "" {
			title = strings.TrimSpace(a.Text())
		}
		links = append(links, meeting.Link{Title: title, Href: resolve(pageURL, href)})
	})
	return links
}
