package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/venue-events/internal/config"
	"github.com/pfrederiksen/venue-events/internal/fetch"
	"github.com/pfrederiksen/venue-events/internal/logger"
	"github.com/pfrederiksen/venue-events/internal/monitor"
	"github.com/pfrederiksen/venue-events/internal/pipeline"
	"github.com/pfrederiksen/venue-events/internal/storage"
	"github.com/pfrederiksen/venue-events/internal/venue"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

var (
	flagConfig    string
	flagVenues    string
	flagLogLevel  string
	flagLogFormat string
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "venue-events",
		Short: "Scrape event listings from venue websites",
		Long: `Scrapes event listings from a configured set of venue websites,
normalizes titles, dates and categories, and stores each event once.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ./config.yaml when present)")
	cmd.PersistentFlags().StringVar(&flagVenues, "venues", "", "Venue definitions file or directory (overrides config)")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	cmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format: json or console (overrides config)")

	cmd.AddCommand(
		newScrapeCmd(),
		newVenuesCmd(),
		newSeedCmd(),
		newEventsCmd(),
		newServeCmd(),
	)

	return cmd
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}

// env is the resolved runtime shared by every subcommand.
type env struct {
	cfg *config.Config
	log *logger.Logger
	loc *time.Location
}

// setup loads configuration, applies flag overrides and installs the
// default logger. requireStore selects full validation.
func setup(cmd *cobra.Command, requireStore bool) (*env, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagVenues != "" {
		cfg.Venues = flagVenues
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}

	if requireStore {
		err = cfg.Validate()
	} else {
		err = cfg.ValidateSettings()
	}
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)

	loc := time.Local
	if cfg.Timezone != "" {
		// Validated above
		loc, _ = time.LoadLocation(cfg.Timezone)
	}

	return &env{cfg: cfg, log: log, loc: loc}, nil
}

func newLogger(cfg *config.Config, w io.Writer) (*logger.Logger, error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(cfg.LogFormat, "console") {
		return logger.NewConsole(level, w), nil
	}
	return logger.New(level, w), nil
}

func (e *env) catalog() (*venue.Catalog, error) {
	catalog, err := venue.Load(e.cfg.Venues)
	if err != nil {
		return nil, fmt.Errorf("loading venues: %w", err)
	}
	return catalog, nil
}

func (e *env) openStore(ctx context.Context) (storage.Store, error) {
	store, err := storage.Open(ctx, e.cfg.StoreURI, e.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return store, nil
}

func (e *env) closeStore(store storage.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Close(ctx); err != nil {
		e.log.Warn("closing store failed", logger.Fields{"error": err.Error()})
	}
}

func (e *env) monitor(store storage.Store) *monitor.Monitor {
	return monitor.New(store, e.cfg.Monitor, e.log)
}

func (e *env) runner(store storage.Store, dryRun bool) *pipeline.Runner {
	base := e.cfg.Fetch
	r := &pipeline.Runner{
		Store: store,
		NewFetcher: func(def *venue.Definition) (fetch.Fetcher, error) {
			return fetch.New(def.FetchMode(), def.FetchOptions(base))
		},
		Location: e.loc,
		DryRun:   dryRun,
		Log:      e.log,
	}
	if store != nil && !dryRun {
		r.Monitor = e.monitor(store)
	}
	return r
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
