package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/losca-meetings/internal/crawl"
	"github.com/pfrederiksen/losca-meetings/internal/filter"
	"github.com/pfrederiksen/losca-meetings/internal/logger"
	"github.com/pfrederiksen/losca-meetings/internal/metrics"
	"github.com/pfrederiksen/losca-meetings/internal/spider"
)

// civilZone is where date flags are interpreted; every source is in Los Angeles
const civilZone = "America/Los_Angeles"

type crawlFlags struct {
	spiders         []string
	format          string
	classifications []string
	statuses        []string
	titles          []string
	from            string
	to              string
	dateRange       string
	weekends        bool
	sortOrder       string
	calendarName    string
	metricsFile     string
	noCache         bool
	concurrency     int
}

func newCrawlCmd(a *app) *cobra.Command {
	f := &crawlFlags{}

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run spiders and print the normalized meetings",
		Long: `Run the selected spiders (all by default) concurrently and print every
normalized meeting in spider order.

Filters apply after normalization. Candidates without a title or a parseable
start time are dropped and logged. Exit status is 2 when any spider failed;
meetings from the others are still printed.`,
		Example: `  losca-meetings crawl
  losca-meetings crawl --spider losca_City_Council --format json
  losca-meetings crawl --range "Mar 1-15" --status tentative --sort start
  losca-meetings crawl --classification Board,Commission --format ics > meetings.ics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCrawl(cmd, f)
		},
	}

	fs := cmd.Flags()
	fs.StringSliceVar(&f.spiders, "spider", nil, "Spider name(s) to run, comma-separated (default all)")
	fs.StringVar(&f.format, "format", string(FormatText), "Output format: text, json, jsonl or ics")
	fs.StringSliceVar(&f.classifications, "classification", nil, "Keep only these classifications (Board, City Council, Commission, Committee, Not classified)")
	fs.StringSliceVar(&f.statuses, "status", nil, "Keep only these statuses (tentative, cancelled, passed)")
	fs.StringSliceVar(&f.titles, "title", nil, "Keep titles containing any of these words (case-insensitive)")
	fs.StringVar(&f.from, "from", "", "Keep meetings on or after this day (YYYY-MM-DD)")
	fs.StringVar(&f.to, "to", "", "Keep meetings on or before this day (YYYY-MM-DD)")
	fs.StringVar(&f.dateRange, "range", "", `Keep meetings in a date range such as "Mar 1-15" or "March"`)
	fs.BoolVar(&f.weekends, "weekends", false, "Keep only meetings on Saturday or Sunday")
	fs.StringVar(&f.sortOrder, "sort", "", "Sort by start, title or classification (default spider order)")
	fs.StringVar(&f.calendarName, "calendar-name", defaultCalendarName, "Calendar name for ics output")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the crawl")
	fs.BoolVar(&f.noCache, "no-cache", false, "Bypass the response cache")
	fs.IntVar(&f.concurrency, "concurrency", 0, "Number of spiders to run at once (default from config)")

	return cmd
}

func (a *app) runCrawl(cmd *cobra.Command, f *crawlFlags) error {
	format := OutputFormat(strings.ToLower(f.format))
	if !format.Valid() {
		return fmt.Errorf("invalid format: %s (must be 'text', 'json', 'jsonl' or 'ics')", f.format)
	}

	order := SortOrder(strings.ToLower(f.sortOrder))
	if !order.Valid() {
		return fmt.Errorf("invalid sort: %s (must be 'start', 'title' or 'classification')", f.sortOrder)
	}

	loc, err := time.LoadLocation(civilZone)
	if err != nil {
		return fmt.Errorf("loading time zone: %w", err)
	}
	now := a.now()

	flt, err := buildFilter(f, now.In(loc))
	if err != nil {
		return err
	}

	registry := spider.Default(spider.Settings{
		PublicWorksBasicAuth: a.cfg.Spiders.PublicWorks.BasicAuth,
		HealthCommitteeID:    a.cfg.Spiders.HealthCommission.CommitteeID,
		HealthYear:           a.cfg.Spiders.HealthCommission.Year,
	})

	names := f.spiders
	if len(names) == 0 {
		names = a.cfg.Crawl.Spiders
	}
	selected, err := registry.Select(names)
	if err != nil {
		return err
	}

	m := metrics.New()
	fetcher, err := a.newFetcher(a.cfg, f.noCache, a.log, m)
	if err != nil {
		return err
	}

	runner := crawl.NewRunner(fetcher, crawl.Options{
		Concurrency: a.cfg.Crawl.Concurrency,
		Logger:      a.log,
		Metrics:     m,
	})
	results := runner.Run(cmd.Context(), selected, now)

	meetings := flt.Apply(crawl.Meetings(results))
	sortMeetings(meetings, order)

	if !flt.IsEmpty() {
		a.log.Info("Filtered meetings", logger.Fields{
			"run_id":  runner.RunID(),
			"filter":  flt.String(),
			"matched": len(meetings),
		})
	}

	if err := WriteOutput(cmd.OutOrStdout(), meetings, OutputOptions{
		Format:       format,
		Verbose:      a.verbose,
		CalendarName: f.calendarName,
		Now:          now,
	}); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if path := a.cfg.Metrics.File; path != "" {
		if err := m.WriteTextfile(path); err != nil {
			return err
		}
	}

	if failed := crawl.Failed(results); len(failed) > 0 {
		names := make([]string, len(failed))
		for i, r := range failed {
			names[i] = r.Spider
		}
		return fmt.Errorf("%w: %s", crawl.ErrSpidersFailed, strings.Join(names, ", "))
	}
	return nil
}

// buildFilter turns the filter flags into a Filter; now carries the zone
// that dates are read in
func buildFilter(f *crawlFlags, now time.Time) (*filter.Filter, error) {
	flt := filter.NewFilter()
	flt.WeekendsOnly = f.weekends

	for _, t := range f.titles {
		if t = strings.TrimSpace(t); t != "" {
			flt.Titles = append(flt.Titles, t)
		}
	}

	classifications, err := filter.ParseClassifications(f.classifications)
	if err != nil {
		return nil, err
	}
	flt.Classifications = append(flt.Classifications, classifications...)

	statuses, err := filter.ParseStatuses(f.statuses)
	if err != nil {
		return nil, err
	}
	flt.Statuses = append(flt.Statuses, statuses...)

	if f.dateRange != "" {
		if f.from != "" || f.to != "" {
			return nil, fmt.Errorf("--range cannot be combined with --from or --to")
		}
		flt.DateFrom, flt.DateTo, err = filter.ParseDateRange(f.dateRange, now)
		if err != nil {
			return nil, err
		}
		return flt, nil
	}

	if f.from != "" {
		if flt.DateFrom, err = filter.ParseDay(f.from, now.Location(), false); err != nil {
			return nil, err
		}
	}
	if f.to != "" {
		if flt.DateTo, err = filter.ParseDay(f.to, now.Location(), true); err != nil {
			return nil, err
		}
	}
	if flt.DateFrom != nil && flt.DateTo != nil && flt.DateFrom.After(*flt.DateTo) {
		return nil, fmt.Errorf("--from must not be after --to")
	}

	return flt, nil
}
