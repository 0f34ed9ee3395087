package meeting

import (
	"encoding/json"
	"time"
)

// Classification is the kind of public body holding a meeting
type Classification string

const (
	Board         Classification = "Board"
	CityCouncil   Classification = "City Council"
	Commission    Classification = "Commission"
	Committee     Classification = "Committee"
	NotClassified Classification = "Not classified"
)

// Status is the lifecycle status of a meeting at evaluation time
type Status string

const (
	Tentative Status = "tentative"
	Confirmed Status = "confirmed"
	Cancelled Status = "cancelled"
	Passed    Status = "passed"
)

// civilLayout renders timestamps without a zone; values are agency wall clock.
const civilLayout = "2006-01-02T15:04:05"

// Location is where a meeting is held. Either part may be empty.
type Location struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Link points at a document or page related to a meeting
type Link struct {
	Title string `json:"title"`
	Href  string `json:"href"`
}

// Meeting is a finalized meeting record. It is never modified after emission.
type Meeting struct {
	ID             string
	Title          string
	Description    string
	Classification Classification
	Start          time.Time
	End            *time.Time
	AllDay         bool
	TimeNotes      string
	Location       Location
	Links          []Link
	Source         string
	Status         Status
}

type meetingJSON struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Classification Classification `json:"classification"`
	Start          string         `json:"start"`
	End            *string        `json:"end"`
	AllDay         bool           `json:"all_day"`
	TimeNotes      string         `json:"time_notes"`
	Location       Location       `json:"location"`
	Links          []Link         `json:"links"`
	Source         string         `json:"source"`
	Status         Status         `json:"status"`
}

// MarshalJSON renders start and end as zone-less civil timestamps
func (m *Meeting) MarshalJSON() ([]byte, error) {
	out := meetingJSON{
		ID:             m.ID,
		Title:          m.Title,
		Description:    m.Description,
		Classification: m.Classification,
		Start:          m.Start.Format(civilLayout),
		AllDay:         m.AllDay,
		TimeNotes:      m.TimeNotes,
		Location:       m.Location,
		Links:          m.Links,
		Source:         m.Source,
		Status:         m.Status,
	}
	if out.Links == nil {
		out.Links = []Link{}
	}
	if m.End != nil {
		end := m.End.Format(civilLayout)
		out.End = &end
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a record written by MarshalJSON. Timestamps are read as UTC
// wall clock since the zone is not carried.
func (m *Meeting) UnmarshalJSON(data []byte) error {
	var in meetingJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	start, err := time.Parse(civilLayout, in.Start)
	if err != nil {
		return err
	}

	*m = Meeting{
		ID:             in.ID,
		Title:          in.Title,
		Description:    in.Description,
		Classification: in.Classification,
		Start:          start,
		AllDay:         in.AllDay,
		TimeNotes:      in.TimeNotes,
		Location:       in.Location,
		Links:          in.Links,
		Source:         in.Source,
		Status:         in.Status,
	}
	if m.Links == nil {
		m.Links = []Link{}
	}
	if in.End != nil {
		end, err := time.Parse(civilLayout, *in.End)
		if err != nil {
			return err
		}
		m.End = &end
	}
	return nil
}

// Timestamp is a time value as produced by an extractor.
// The zero value means the source had no value at all.
type Timestamp struct {
	Time time.Time
	Raw  string
	Err  error
}

// At wraps an already parsed time
func At(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// Unparsed records source text that could not be read as a time
func Unparsed(raw string, err error) Timestamp {
	return Timestamp{Raw: raw, Err: err}
}

// Valid reports whether the timestamp holds a usable time
func (ts Timestamp) Valid() bool {
	return ts.Err == nil && !ts.Time.IsZero()
}

// Present reports whether the source supplied anything for this timestamp
func (ts Timestamp) Present() bool {
	return ts.Err != nil || ts.Raw != "" || !ts.Time.IsZero()
}

// Candidate is an unvalidated meeting as extracted from one source document
type Candidate struct {
	Title          string
	Description    string
	Classification Classification
	Start          Timestamp
	End            Timestamp
	AllDay         *bool
	TimeNotes      string
	Location       *Location
	Links          []Link
	Source         string

	// Cancelled is set when the source explicitly flags the meeting as cancelled.
	Cancelled bool
	// StatusText is scanned for cancellation markers along with title and description.
	StatusText string
}
