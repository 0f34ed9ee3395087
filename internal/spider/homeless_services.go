package spider

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/losca-meetings/internal/fetch"
	"github.com/pfrederiksen/losca-meetings/internal/meeting"
)

const (
	homelessServicesURL  = "https://www.lahsa.org/events"
	homelessServicesBase = "https://www.lahsa.org/"
)

// Layouts for list dates without a year ("January 08") and with one
var (
	monthDayLayouts     = []string{"January 2", "Jan 2"}
	monthDayYearLayouts = []string{"January 2, 2006", "Jan 2, 2006", "January 2 2006", "1/2/2006"}
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// HomelessServices reads the LAHSA events list. The list shows a date only;
// start times are on each event page.
type HomelessServices struct {
	base
}

// NewHomelessServices creates the spider
func NewHomelessServices() *HomelessServices {
	return &HomelessServices{base{
		name:      "losca_Homeless_Services",
		agency:    "Los Angeles Homeless Services Authority",
		loc:       losAngeles,
		startURLs: []string{homelessServicesURL},
	}}
}

// Parse reads every event anchor in the main column
func (s *HomelessServices) Parse(doc *fetch.Document, now time.Time) ([]meeting.Candidate, error) {
	page, err := goquery.NewDocumentFromReader(doc.Reader())
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	allDay := false
	candidates := make([]meeting.Candidate, 0)
	page.Find(".col-lg-8 .list-group a").Each(func(i int, item *goquery.Selection) {
		title := strings.TrimSpace(item.Find(".h6").First().Text())
		class := classify(title, meeting.Board, meeting.CityCouncil, meeting.Commission, meeting.Committee)

		c := meeting.Candidate{
			Title:          title,
			Classification: class,
			Start:          s.parseDate(item.Find(".text-secondary").First().Text(), now),
			AllDay:         &allDay,
			TimeNotes:      "Start time in Event Link",
			Location:       homelessLocation(class),
			Links:          []meeting.Link{},
			Source:         doc.URL,
		}
		if href, ok := item.Attr("href"); ok {
			c.Links = append(c.Links, meeting.Link{Title: "Event Link", Href: resolve(homelessServicesBase, href)})
		}
		candidates = append(candidates, c)
	})

	return candidates, nil
}

// parseDate reads the list's loose dates relative to now. "NEXT WEDNESDAY" is
// the coming Wednesday, today included. A date without a year that falls before
// today belongs to next year.
func (s *HomelessServices) parseDate(text string, now time.Time) meeting.Timestamp {
	raw := strings.Join(strings.Fields(text), " ")
	if raw == "" {
		return meeting.Timestamp{}
	}
	today := meeting.StartOfDay(now.In(s.loc))

	words := strings.Fields(strings.ToLower(raw))
	for len(words) > 1 && (words[0] == "next" || words[0] == "this" || words[0] == "on") {
		words = words[1:]
	}
	if len(words) == 1 {
		switch words[0] {
		case "today":
			return meeting.Timestamp{Time: today, Raw: raw}
		case "tomorrow":
			return meeting.Timestamp{Time: today.AddDate(0, 0, 1), Raw: raw}
		}
		if wd, ok := weekdays[words[0]]; ok {
			ahead := (int(wd) - int(today.Weekday()) + 7) % 7
			return meeting.Timestamp{Time: today.AddDate(0, 0, ahead), Raw: raw}
		}
	}

	if t, err := meeting.ParseCivil(raw, s.loc, monthDayYearLayouts...); err == nil {
		return meeting.Timestamp{Time: t, Raw: raw}
	}

	t, err := meeting.ParseCivil(raw, s.loc, monthDayLayouts...)
	if err != nil {
		return meeting.Unparsed(raw, err)
	}
	date := time.Date(today.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
	if date.Before(today) {
		date = date.AddDate(1, 0, 0)
	}
	return meeting.Timestamp{Time: date, Raw: raw}
}

// homelessLocation places council meetings at the council chamber and
// everything else at LAHSA's office
func homelessLocation(class meeting.Classification) *meeting.Location {
	if class == meeting.CityCouncil {
		return location(
			"City Council (check Event Link)",
			"637 Wilshire Blvd, 1st Floor Commission Room, Los Angeles, CA 90017",
		)
	}
	return location(
		"LAHSA (check Event Link)",
		"707 Wilshire Blvd, 10th Floor, Los Angeles, CA 90017",
	)
}
