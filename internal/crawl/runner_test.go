package crawl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pfrederiksen/losca-meetings/internal/fetch"
	"github.com/pfrederiksen/losca-meetings/internal/logger"
	"github.com/pfrederiksen/losca-meetings/internal/meeting"
	"github.com/pfrederiksen/losca-meetings/internal/metrics"
	"github.com/pfrederiksen/losca-meetings/internal/spider"
)

var evalTime = time.Date(2024, 9, 17, 12, 0, 0, 0, time.UTC)

// stubSpider turns each fetched document body into one candidate titled by the body
type stubSpider struct {
	name     string
	urls     []string
	delay    time.Duration
	fetchErr error
	parseErr map[string]error
	running  *int32
	peak     *int32
}

func (s *stubSpider) Name() string             { return s.name }
func (s *stubSpider) Agency() string           { return "Test Agency" }
func (s *stubSpider) Location() *time.Location { return time.UTC }

func (s *stubSpider) Fetch(ctx context.Context, f spider.Fetcher, now time.Time) ([]*fetch.Document, error) {
	if s.running != nil {
		n := atomic.AddInt32(s.running, 1)
		defer atomic.AddInt32(s.running, -1)
		for {
			p := atomic.LoadInt32(s.peak)
			if n <= p || atomic.CompareAndSwapInt32(s.peak, p, n) {
				break
			}
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var docs []*fetch.Document
	for _, u := range s.urls {
		doc, err := f.Do(ctx, fetch.Get(u))
		if err != nil {
			return docs, err
		}
		docs = append(docs, doc)
	}
	return docs, s.fetchErr
}

func (s *stubSpider) Parse(doc *fetch.Document, now time.Time) ([]meeting.Candidate, error) {
	if err := s.parseErr[doc.URL]; err != nil {
		return nil, err
	}
	return []meeting.Candidate{
		{
			Title:          string(doc.Body),
			Classification: meeting.Board,
			Start:          meeting.At(time.Date(2024, 9, 10, 9, 30, 0, 0, time.UTC)),
			Location:       &meeting.Location{Name: "Hall"},
		},
		{Title: "Undated " + string(doc.Body), Classification: meeting.Board, Location: &meeting.Location{}},
	}, nil
}

// echoFetcher returns the last path segment of the URL as the body
type echoFetcher struct{}

func (echoFetcher) Do(ctx context.Context, req *fetch.Request) (*fetch.Document, error) {
	body := req.URL[strings.LastIndex(req.URL, "/")+1:]
	return &fetch.Document{URL: req.URL, Body: []byte(body)}, nil
}

func TestRunner_PreservesOrder(t *testing.T) {
	spiders := []spider.Spider{
		&stubSpider{name: "slow", urls: []string{"https://a.test/first"}, delay: 50 * time.Millisecond},
		&stubSpider{name: "fast", urls: []string{"https://b.test/second"}},
		&stubSpider{name: "multi", urls: []string{"https://c.test/third", "https://c.test/fourth"}},
	}

	r := NewRunner(echoFetcher{}, Options{Concurrency: 3, Logger: logger.Nop()})
	results := r.Run(context.Background(), spiders, evalTime)

	require.Len(t, results, 3)
	assert.Equal(t, "slow", results[0].Spider)
	assert.Equal(t, "fast", results[1].Spider)
	assert.Equal(t, "multi", results[2].Spider)

	var titles []string
	for _, m := range Meetings(results) {
		titles = append(titles, m.Title)
	}
	assert.Equal(t, []string{"first", "second", "third", "fourth"}, titles)

	assert.Equal(t, 2, results[2].Documents)
	assert.Equal(t, 2, results[2].Dropped)
	assert.Equal(t, "multi/202409100930/x/third", results[2].Meetings[0].ID)
	assert.Equal(t, meeting.Passed, results[2].Meetings[0].Status)
	assert.Empty(t, Failed(results))
}

func TestRunner_ToleratesFailingSpider(t *testing.T) {
	m := metrics.New()
	spiders := []spider.Spider{
		&stubSpider{name: "broken", urls: []string{"https://a.test/partial"}, fetchErr: errors.New("connection reset")},
		&stubSpider{name: "healthy", urls: []string{"https://b.test/ok"}},
	}

	r := NewRunner(echoFetcher{}, Options{Concurrency: 2, Logger: logger.Nop(), Metrics: m})
	results := r.Run(context.Background(), spiders, evalTime)

	require.Len(t, results, 2)
	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "connection reset")
	assert.Len(t, results[0].Meetings, 1, "documents fetched before the failure are still used")
	assert.NoError(t, results[1].Err)
	assert.Len(t, results[1].Meetings, 1)

	failed := Failed(results)
	require.Len(t, failed, 1)
	assert.Equal(t, "broken", failed[0].Spider)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SpiderErrorsTotal.WithLabelValues("broken", StageFetch)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DroppedTotal.WithLabelValues("healthy", "missing_start")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MeetingsTotal.WithLabelValues("healthy", "passed")))
}

func TestRunner_ParseErrorSkipsOnlyThatDocument(t *testing.T) {
	var buf bytes.Buffer
	s := &stubSpider{
		name:     "partial",
		urls:     []string{"https://a.test/bad", "https://a.test/good"},
		parseErr: map[string]error{"https://a.test/bad": fmt.Errorf("unexpected markup")},
	}

	r := NewRunner(echoFetcher{}, Options{Logger: logger.New(logger.LevelInfo, &buf), RunID: "run-1"})
	results := r.Run(context.Background(), []spider.Spider{s}, evalTime)

	require.Len(t, results, 1)
	res := results[0]
	assert.Equal(t, 2, res.Documents)
	require.Len(t, res.Meetings, 1)
	assert.Equal(t, "good", res.Meetings[0].Title)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "https://a.test/bad")

	out := buf.String()
	assert.Contains(t, out, `"run_id":"run-1"`)
	assert.Contains(t, out, `"spider":"partial"`)
	assert.Contains(t, out, "Parse failed")
	assert.Contains(t, out, "Dropping meeting candidate")
}

func TestRunner_BoundsConcurrency(t *testing.T) {
	var running, peak int32
	spiders := make([]spider.Spider, 6)
	for i := range spiders {
		spiders[i] = &stubSpider{
			name:    fmt.Sprintf("s%d", i),
			delay:   20 * time.Millisecond,
			running: &running,
			peak:    &peak,
		}
	}

	r := NewRunner(echoFetcher{}, Options{Concurrency: 2, Logger: logger.Nop()})
	results := r.Run(context.Background(), spiders, evalTime)

	assert.Len(t, results, 6)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	spiders := []spider.Spider{&stubSpider{name: "late", urls: []string{"https://a.test/x"}}}
	results := NewRunner(echoFetcher{}, Options{Logger: logger.Nop()}).Run(ctx, spiders, evalTime)

	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
	assert.Empty(t, results[0].Meetings)
}

func TestNewRunner_GeneratesRunID(t *testing.T) {
	a := NewRunner(echoFetcher{}, Options{})
	b := NewRunner(echoFetcher{}, Options{})
	assert.Len(t, a.RunID(), 36)
	assert.NotEqual(t, a.RunID(), b.RunID())
}
