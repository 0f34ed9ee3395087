package spider

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/pfrederiksen/losca-meetings/internal/fetch"
	"github.com/pfrederiksen/losca-meetings/internal/meeting"
)

const boardOfEdURL = "https://www.lausd.org/site/RSS.aspx?DomainID=1057&ModuleInstanceID=73805&PageID=18628&PMIID=0"

var (
	// "9/24/2024 1:00 PM - 4:00 PM Greening Schools & Climate Resilience Committee"
	rssTitlePattern = regexp.MustCompile(`(?i)^(\d{1,2}/\d{1,2}/\d{4})\s+(\d{1,2}:\d{2}\s*[AP]M)(?:\s*-\s*(\d{1,2}:\d{2}\s*[AP]M))?\s*(.*)$`)

	rssItemPattern  = regexp.MustCompile(`(?is)<item>(.*?)</item>`)
	rssTitleTag     = regexp.MustCompile(`(?is)<title>(.*?)</title>`)
	rssLinkTag      = regexp.MustCompile(`(?is)<link>(.*?)<`)
	rssCDATAPattern = regexp.MustCompile(`(?s)^<!\[CDATA\[(.*)\]\]>$`)
)

// BoardOfEd reads the LAUSD Board of Education RSS feed
type BoardOfEd struct {
	base
}

// NewBoardOfEd creates the spider
func NewBoardOfEd() *BoardOfEd {
	return &BoardOfEd{base{
		name:      "losca_Board_of_ed",
		agency:    "Los Angeles Unified School District Board of Education",
		loc:       losAngeles,
		startURLs: []string{boardOfEdURL},
	}}
}

type rssFeed struct {
	XMLName xml.Name
	Items   []rssItem `xml:"channel>item"`
}

type rssItem struct {
	Title string `xml:"title"`
	Link  string `xml:"link"`
}

// Parse reads feed items. The feed has been seen with unclosed <link> tags, so
// a feed that fails strict XML decoding is read item by item with patterns.
func (s *BoardOfEd) Parse(doc *fetch.Document, now time.Time) ([]meeting.Candidate, error) {
	items, err := decodeRSS(doc.Body)
	if err != nil {
		items = scanRSS(string(doc.Body))
		if len(items) == 0 {
			return nil, fmt.Errorf("parsing RSS: %w", err)
		}
	}

	hq := location(
		"LAUSD Headquarters",
		"333 South Beaudry Avenue, Board Room, Los Angeles, CA 90017",
	)

	candidates := make([]meeting.Candidate, 0, len(items))
	for _, item := range items {
		c := meeting.Candidate{
			Classification: meeting.Board,
			Location:       hq,
			Source:         doc.URL,
		}
		c.Title, c.Start, c.End = s.splitTitle(item.Title)
		if link := strings.TrimSpace(item.Link); link != "" {
			c.Links = []meeting.Link{{Title: "Meeting Details", Href: link}}
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// splitTitle separates the leading "date start - end" stamp from the title.
// The item pubDate is GMT, so the stamp in the title is the civil time source.
func (s *BoardOfEd) splitTitle(raw string) (string, meeting.Timestamp, meeting.Timestamp) {
	raw = strings.Join(strings.Fields(raw), " ")
	m := rssTitlePattern.FindStringSubmatch(raw)
	if m == nil {
		return raw, meeting.Unparsed(raw, fmt.Errorf("no date stamp in title")), meeting.Timestamp{}
	}

	date, startClock, endClock, title := m[1], m[2], m[3], strings.TrimSpace(m[4])
	start := meeting.ParseTimestamp(date+" "+startClock, s.loc)

	var end meeting.Timestamp
	if endClock != "" {
		end = meeting.ParseTimestamp(date+" "+endClock, s.loc)
	}
	return title, start, end
}

func decodeRSS(data []byte) ([]rssItem, error) {
	var feed rssFeed
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = true
	if err := dec.Decode(&feed); err != nil {
		return nil, err
	}
	if feed.XMLName.Local != "rss" {
		return nil, fmt.Errorf("unexpected root element <%s>", feed.XMLName.Local)
	}
	return feed.Items, nil
}

// scanRSS extracts items from markup that is not well-formed XML
func scanRSS(body string) []rssItem {
	var items []rssItem
	for _, m := range rssItemPattern.FindAllStringSubmatch(body, -1) {
		raw := m[1]
		item := rssItem{}
		if t := rssTitleTag.FindStringSubmatch(raw); t != nil {
			item.Title = unwrapText(t[1])
		}
		if l := rssLinkTag.FindStringSubmatch(raw); l != nil {
			item.Link = unwrapText(l[1])
		} else if parts := strings.SplitN(raw, "<link>", 2); len(parts) == 2 {
			item.Link = unwrapText(strings.SplitN(parts[1], "<pubDate>", 2)[0])
		}
		items = append(items, item)
	}
	return items
}

func unwrapText(s string) string {
	s = strings.TrimSpace(s)
	if m := rssCDATAPattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(html.UnescapeString(s))
}
