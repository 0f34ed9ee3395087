package spider

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// legistarCell is one cell of a Legistar calendar grid
type legistarCell struct {
	Label string
	URL   string
}

// legistarEvent maps a grid column header to the row's cell
type legistarEvent map[string]legistarCell

func (e legistarEvent) label(column string) string { return e[column].Label }
func (e legistarEvent) url(column string) string   { return e[column].URL }

// readLegistar reads the rows of the first rgMasterTable on a Legistar calendar
// page. Cell links are resolved against pageURL. Line breaks inside a cell are
// kept as "\n".
func readLegistar(r io.Reader, pageURL string) ([]legistarEvent, error) {
	page, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	table := page.Find("table.rgMasterTable").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("no calendar grid in %s", pageURL)
	}

	var headers []string
	table.Find("thead th").Each(func(i int, th *goquery.Selection) {
		headers = append(headers, cellText(th))
	})

	events := make([]legistarEvent, 0)
	table.Find("tbody tr.rgRow, tbody tr.rgAltRow").Each(func(i int, tr *goquery.Selection) {
		event := make(legistarEvent, len(headers))
		tr.ChildrenFiltered("td").Each(func(j int, td *goquery.Selection) {
			if j >= len(headers) {
				return
			}
			cell := legistarCell{Label: cellText(td)}
			if href, ok := td.Find("a[href]").First().Attr("href"); ok && !strings.HasPrefix(href, "javascript:") {
				cell.URL = resolve(pageURL, href)
			}

			column := headers[j]
			// The export column has no header text, only an icon linking to View.ashx?M=IC.
			if column == "" && strings.Contains(cell.URL, "M=IC") {
				column = "iCalendar"
			}
			if column == "" {
				return
			}
			event[column] = cell
		})
		events = append(events, event)
	})

	return events, nil
}

// lineBreak marks <br> positions; source newlines are ordinary whitespace
const lineBreak = "\u2029"

// cellText returns the visible text of s with <br> kept as line breaks and
// whitespace collapsed within each line
func cellText(s *goquery.Selection) string {
	s = s.Clone()
	s.Find("br").Each(func(i int, br *goquery.Selection) {
		br.ReplaceWithNodes(&html.Node{Type: html.TextNode, Data: lineBreak})
	})
	s.Find("script, style").Remove()

	var lines []string
	for _, line := range strings.Split(s.Text(), lineBreak) {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
