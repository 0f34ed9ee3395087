package crawl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pfrederiksen/losca-meetings/internal/logger"
	"github.com/pfrederiksen/losca-meetings/internal/meeting"
	"github.com/pfrederiksen/losca-meetings/internal/metrics"
	"github.com/pfrederiksen/losca-meetings/internal/spider"
)

// Failure stages recorded in logs and metrics
const (
	StageFetch = "fetch"
	StageParse = "parse"
	StageSetup = "setup"
)

// ErrSpidersFailed is returned by callers when at least one spider reported an error
var ErrSpidersFailed = errors.New("one or more spiders failed")

// Result is the outcome of one spider in a run
type Result struct {
	Spider    string
	Meetings  []*meeting.Meeting
	Documents int
	Dropped   int
	Err       error
	Duration  time.Duration
}

// Options configures a Runner
type Options struct {
	Concurrency int
	Logger      *logger.Logger
	Metrics     *metrics.Metrics
	// RunID tags every log line of a run; a random one is generated when empty.
	RunID string
}

// Runner crawls spiders concurrently and normalizes what they extract
type Runner struct {
	fetcher spider.Fetcher
	opts    Options
	log     *logger.Logger
}

// NewRunner creates a Runner that fetches through f
func NewRunner(f spider.Fetcher, opts Options) *Runner {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}
	return &Runner{
		fetcher: f,
		opts:    opts,
		log:     log.With(logger.Fields{"run_id": opts.RunID}),
	}
}

// RunID identifies this runner's crawl in logs
func (r *Runner) RunID() string {
	return r.opts.RunID
}

// Run crawls the spiders and returns one result per spider, in the order given.
// A failing spider never stops the others. now is the evaluation instant for
// every status.
func (r *Runner) Run(ctx context.Context, spiders []spider.Spider, now time.Time) []*Result {
	r.log.Info("Starting crawl", logger.Fields{
		"spiders":     len(spiders),
		"concurrency": r.opts.Concurrency,
		"now":         now.Format(time.RFC3339),
	})

	p := newPool(r.opts.Concurrency, len(spiders))
	p.start(ctx)
	for i, s := range spiders {
		s := s
		p.submit(job{index: i, run: func(ctx context.Context) *Result {
			return r.runSpider(ctx, s, now)
		}})
	}
	results := p.wait()

	var meetings, failed int
	for _, res := range results {
		meetings += len(res.Meetings)
		if res.Err != nil {
			failed++
		}
	}
	r.log.Info("Crawl finished", logger.Fields{
		"spiders":  len(spiders),
		"failed":   failed,
		"meetings": meetings,
	})

	return results
}

func (r *Runner) runSpider(ctx context.Context, s spider.Spider, now time.Time) *Result {
	name := s.Name()
	log := r.log.With(logger.Fields{"spider": name})
	m := r.opts.Metrics
	res := &Result{Spider: name, Meetings: make([]*meeting.Meeting, 0)}

	started := time.Now()
	defer func() {
		res.Duration = time.Since(started)
		m.SpiderDuration(name, res.Duration)
	}()

	n, err := meeting.NewNormalizer(name,
		meeting.WithLogger(log),
		meeting.WithDropHook(func(rej *meeting.RejectError) {
			res.Dropped++
			m.Dropped(name, rej.Reason())
		}),
	)
	if err != nil {
		m.SpiderError(name, StageSetup)
		log.Error("Spider setup failed", nil, err)
		res.Err = err
		return res
	}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	log.Debug("Fetching", nil)
	docs, fetchErr := s.Fetch(ctx, r.fetcher, now)
	if fetchErr != nil {
		m.SpiderError(name, StageFetch)
		log.Error("Fetch failed", logger.Fields{"documents": len(docs)}, fetchErr)
	}

	errs := []error{fetchErr}
	for _, doc := range docs {
		res.Documents++
		m.Document(name)

		candidates, err := s.Parse(doc, now)
		if err != nil {
			m.SpiderError(name, StageParse)
			log.Error("Parse failed", logger.Fields{"document": doc.URL}, err)
			errs = append(errs, fmt.Errorf("parsing %s: %w", doc.URL, err))
			continue
		}

		for _, mt := range n.NormalizeAll(doc.URL, candidates, now) {
			m.Meeting(name, string(mt.Status))
			res.Meetings = append(res.Meetings, mt)
		}
	}
	res.Err = errors.Join(errs...)

	log.Info("Spider finished", logger.Fields{
		"documents": res.Documents,
		"meetings":  len(res.Meetings),
		"dropped":   res.Dropped,
		"ok":        res.Err == nil,
	})
	return res
}

// Meetings flattens results into one stream, preserving spider then emission order
func Meetings(results []*Result) []*meeting.Meeting {
	var total int
	for _, r := range results {
		total += len(r.Meetings)
	}
	out := make([]*meeting.Meeting, 0, total)
	for _, r := range results {
		out = append(out, r.Meetings...)
	}
	return out
}

// Failed returns the results that carry an error
func Failed(results []*Result) []*Result {
	var out []*Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
