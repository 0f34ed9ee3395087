package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pfrederiksen/losca-meetings/internal/config"
	"github.com/pfrederiksen/losca-meetings/internal/crawl"
	"github.com/pfrederiksen/losca-meetings/internal/fetch"
	"github.com/pfrederiksen/losca-meetings/internal/logger"
	"github.com/pfrederiksen/losca-meetings/internal/metrics"
	"github.com/pfrederiksen/losca-meetings/internal/spider"
)

const (
	ExitSuccess       = 0
	ExitError         = 1
	ExitSpidersFailed = 2
)

// Version is set at build time via -ldflags "-X ...cli.Version=v1.2.3"
var Version = "dev"

// app holds state shared by every command of one invocation
type app struct {
	configFile string
	logLevel   string
	logFormat  string
	verbose    bool

	v   *viper.Viper
	cfg *config.Config
	log *logger.Logger

	// now and newFetcher are replaced in tests
	now        func() time.Time
	newFetcher func(cfg *config.Config, noCache bool, log *logger.Logger, m *metrics.Metrics) (spider.Fetcher, error)
}

func newApp() *app {
	return &app{
		now:        time.Now,
		newFetcher: newFetchClient,
	}
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp())
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "losca-meetings",
		Short: "Scrape public meeting calendars of Los Angeles area agencies",
		Long: `A CLI tool to scrape public meeting calendars of Los Angeles area
government agencies into normalized meeting records.

Each spider fetches one agency's source and every record gets a stable ID
and a status (tentative, cancelled or passed) relative to the run time.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Config file (default ~/"+config.DirName+"/config.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format: console or json")
	flags.BoolVar(&a.verbose, "verbose", false, "Enable verbose logging and output")

	cmd.AddCommand(
		newCrawlCmd(a),
		newSpidersCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)

	return cmd
}

// setup loads configuration and installs the logger before any command runs
func (a *app) setup(cmd *cobra.Command, args []string) error {
	a.v = config.NewViper(a.configFile)
	if err := config.Read(a.v); err != nil {
		return err
	}

	if err := bindFlags(a.v, cmd.Flags(), map[string]string{
		"log.level":         "log-level",
		"log.format":        "log-format",
		"crawl.concurrency": "concurrency",
		"metrics.file":      "metrics-file",
	}); err != nil {
		return err
	}
	if a.verbose {
		a.v.Set("log.level", "debug")
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	a.log = logger.NewWithFormat(level, logger.Format(strings.ToLower(cfg.Log.Format)), cmd.ErrOrStderr())
	logger.SetDefault(a.log)

	a.log.Debug("Configuration loaded", logger.Fields{
		"config_file": a.v.ConfigFileUsed(),
		"concurrency": cfg.Crawl.Concurrency,
		"cache":       cfg.Cache.Enabled,
	})
	return nil
}

// bindFlags binds the flags present on this command; flags only set on other
// commands are skipped
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

// newFetchClient builds the HTTP fetcher from config, with the memory cache
// layered over the disk cache when caching is enabled
func newFetchClient(cfg *config.Config, noCache bool, log *logger.Logger, m *metrics.Metrics) (spider.Fetcher, error) {
	opts := fetch.Options{
		UserAgent:      cfg.Fetch.UserAgent,
		Timeout:        cfg.Fetch.Timeout,
		MaxBodyBytes:   cfg.Fetch.MaxBodyBytes,
		RatePerSecond:  cfg.Fetch.RatePerSecond,
		Burst:          cfg.Fetch.Burst,
		MaxRetries:     cfg.Fetch.MaxRetries,
		InitialBackoff: cfg.Fetch.InitialBackoff,
		MaxBackoff:     cfg.Fetch.MaxBackoff,
		ObeyRobots:     cfg.Fetch.ObeyRobots,
		TTL:            cfg.Cache.TTL,
		Logger:         log,
		Metrics:        m,
	}

	if cfg.Cache.Enabled && !noCache {
		dir, err := config.ExpandHome(cfg.Cache.Dir)
		if err != nil {
			return nil, err
		}
		disk, err := fetch.NewDiskCache(dir, cfg.Cache.TTL)
		if err != nil {
			return nil, fmt.Errorf("initializing cache: %w", err)
		}
		opts.Cache = fetch.NewLayeredCache(fetch.NewMemoryCache(cfg.Cache.TTL), disk)
	}

	return fetch.New(opts), nil
}

// ExitCode maps a command error onto the process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, crawl.ErrSpidersFailed):
		return ExitSpidersFailed
	default:
		return ExitError
	}
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(ExitCode(err))
}
