package meeting

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/pfrederiksen/losca-meetings/internal/logger"
)

var (
	// ErrMissingField means a required candidate field was absent
	ErrMissingField = errors.New("missing required field")
	// ErrUnparseableTimestamp means the extractor could not read a timestamp
	ErrUnparseableTimestamp = errors.New("unparseable timestamp")
)

var sourceNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// RejectError explains why a candidate was dropped
type RejectError struct {
	Field string
	Title string
	Raw   string
	Err   error
}

func (e *RejectError) Error() string {
	if e.Raw != "" {
		return fmt.Sprintf("%s: %v (%q)", e.Field, e.Err, e.Raw)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *RejectError) Unwrap() error {
	return e.Err
}

// Reason returns a short machine-friendly rejection reason for logs and metrics
func (e *RejectError) Reason() string {
	switch {
	case errors.Is(e.Err, ErrUnparseableTimestamp):
		return "unparseable_" + e.Field
	default:
		return "missing_" + e.Field
	}
}

// Normalizer finalizes candidates from one source
type Normalizer struct {
	source string
	log    *logger.Logger
	onDrop func(*RejectError)
}

// Option configures a Normalizer
type Option func(*Normalizer)

// WithLogger sets the logger used for drop warnings
func WithLogger(l *logger.Logger) Option {
	return func(n *Normalizer) {
		n.log = l
	}
}

// WithDropHook registers a callback run for every dropped candidate
func WithDropHook(fn func(*RejectError)) Option {
	return func(n *Normalizer) {
		n.onDrop = fn
	}
}

// NewNormalizer creates a Normalizer for the named source. The name becomes the
// first segment of every ID, so it must be non-empty and path-safe.
func NewNormalizer(sourceName string, opts ...Option) (*Normalizer, error) {
	if !sourceNamePattern.MatchString(sourceName) {
		return nil, fmt.Errorf("invalid source name %q", sourceName)
	}

	n := &Normalizer{
		source: sourceName,
		log:    logger.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Normalize validates a candidate and builds the finalized Meeting evaluated at now.
// Rejections are returned as *RejectError.
func (n *Normalizer) Normalize(c Candidate, now time.Time) (*Meeting, error) {
	return n.normalize(c, now, logger.Fields{"source": n.source})
}

// normalize does the work of Normalize; origin carries the log fields that
// identify where the candidate came from
func (n *Normalizer) normalize(c Candidate, now time.Time, origin logger.Fields) (*Meeting, error) {
	title := cleanText(c.Title)
	if title == "" {
		return nil, &RejectError{Field: "title", Err: ErrMissingField}
	}

	start, err := requireTime("start", c.Start)
	if err != nil {
		err.Title = title
		return nil, err
	}

	if c.Classification == "" {
		return nil, &RejectError{Field: "classification", Title: title, Err: ErrMissingField}
	}

	if c.Location == nil {
		return nil, &RejectError{Field: "location", Title: title, Err: ErrMissingField}
	}

	m := &Meeting{
		Title:          title,
		Description:    cleanText(c.Description),
		Classification: c.Classification,
		Start:          start,
		TimeNotes:      cleanText(c.TimeNotes),
		Location: Location{
			Name:    cleanText(c.Location.Name),
			Address: cleanText(c.Location.Address),
		},
		Links:  cleanLinks(c.Links),
		Source: strings.TrimSpace(c.Source),
	}

	if c.AllDay != nil {
		m.AllDay = *c.AllDay
	}

	if c.End.Valid() {
		end := c.End.Time
		m.End = &end
	} else if c.End.Err != nil {
		fields := logger.Fields{
			"title":  title,
			"field":  "end",
			"reason": "unparseable_end",
			"raw":    c.End.Raw,
		}
		for k, v := range origin {
			fields[k] = v
		}
		n.log.Warn("Dropping unparseable end time", fields)
	}

	m.Status = DeriveStatus(m.Start, now, c.cancelled())
	m.ID = DeriveID(n.source, m.Start, m.Title)

	return m, nil
}

// NormalizeAll normalizes every candidate taken from the document docRef, in order.
// Rejected candidates are logged and skipped.
func (n *Normalizer) NormalizeAll(docRef string, candidates []Candidate, now time.Time) []*Meeting {
	meetings := make([]*Meeting, 0, len(candidates))
	for i, c := range candidates {
		m, err := n.normalize(c, now, logger.Fields{
			"source":   n.source,
			"document": docRef,
			"index":    i,
		})
		if err != nil {
			n.drop(docRef, i, c, err)
			continue
		}
		meetings = append(meetings, m)
	}
	return meetings
}

func (n *Normalizer) drop(docRef string, index int, c Candidate, err error) {
	fields := logger.Fields{
		"source":   n.source,
		"document": docRef,
		"index":    index,
		"title":    c.Title,
	}

	var rejected *RejectError
	if errors.As(err, &rejected) {
		fields["field"] = rejected.Field
		fields["reason"] = rejected.Reason()
		if rejected.Raw != "" {
			fields["raw"] = rejected.Raw
		}
		if n.onDrop != nil {
			n.onDrop(rejected)
		}
	}

	n.log.Warn("Dropping meeting candidate", fields)
}

func requireTime(field string, ts Timestamp) (time.Time, *RejectError) {
	if ts.Err != nil {
		return time.Time{}, &RejectError{Field: field, Raw: ts.Raw, Err: fmt.Errorf("%w: %v", ErrUnparseableTimestamp, ts.Err)}
	}
	if ts.Time.IsZero() {
		return time.Time{}, &RejectError{Field: field, Raw: ts.Raw, Err: ErrMissingField}
	}
	return ts.Time, nil
}

func cleanLinks(links []Link) []Link {
	out := make([]Link, 0, len(links))
	for _, link := range links {
		out = append(out, Link{
			Title: cleanText(link.Title),
			Href:  strings.TrimSpace(link.Href),
		})
	}
	return out
}

// cleanText strips control characters and collapses whitespace runs
func cleanText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
