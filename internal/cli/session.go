package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/orderdedup/internal/config"
	"github.com/roach88/orderdedup/internal/dedup"
	"github.com/roach88/orderdedup/internal/metrics"
	"github.com/roach88/orderdedup/internal/mongostore"
	"github.com/roach88/orderdedup/internal/store"
)

// session is the per-invocation state of a command that talks to a store.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    config.Config
	store  dedup.Store
	logger *slog.Logger
	out    *OutputFormatter
	opts   *RootOptions
}

// loadConfig layers the config file, root flags and command overrides, then
// validates the result once.
func loadConfig(opts *RootOptions, override func(*config.Config)) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	if opts.Store != "" {
		cfg.Store.Driver = opts.Store
	}
	if opts.DSN != "" {
		cfg.Store.DSN = opts.DSN
	}
	if opts.Database != "" {
		cfg.Store.Database = opts.Database
	}
	if opts.Collection != "" {
		cfg.Store.Collection = opts.Collection
	}
	if opts.MetricsFile != "" {
		cfg.MetricsFile = opts.MetricsFile
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}
	if override != nil {
		override(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

// newLogger writes text logs to the command's stderr.
func newLogger(cmd *cobra.Command, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))
}

// openStore connects to the configured backend.
func openStore(ctx context.Context, sc config.Store) (dedup.Store, error) {
	switch sc.Driver {
	case config.DriverSQLite:
		return store.Open(sc.DSN)
	case config.DriverMongo:
		return mongostore.Open(ctx, sc.DSN, sc.Database, sc.Collection)
	default:
		return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
	}
}

// openSession loads the config and opens the store. The session context is
// cancelled on SIGINT or SIGTERM, which stops executors between units.
func openSession(cmd *cobra.Command, opts *RootOptions, override func(*config.Config)) (*session, error) {
	cfg, err := loadConfig(opts, override)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd, cfg.LogLevel)

	// Use command's context if available (for testing), otherwise create one
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)

	logger.Debug("opening store", "driver", cfg.Store.Driver, "dsn", cfg.Store.DSN)
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		cancel()
		return nil, WrapExitError(ExitCommandError, "store unavailable", err)
	}

	return &session{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		store:  st,
		logger: logger,
		out:    &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose},
		opts:   opts,
	}, nil
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing store", "error", err)
	}
	s.cancel()
}

func (s *session) executorOptions() dedup.Options {
	return dedup.Options{Logger: s.logger, RunID: s.opts.RunID}
}

// recordMetrics writes the textfile when a metrics file is configured.
// Failures are logged and do not change the command outcome.
func (s *session) recordMetrics(observe func(*metrics.Recorder)) {
	if s.cfg.MetricsFile == "" {
		return
	}
	rec := metrics.NewRecorder(s.opts.Now)
	observe(rec)
	if err := rec.WriteTextfile(s.cfg.MetricsFile); err != nil {
		s.logger.Error("failed to write metrics", "path", s.cfg.MetricsFile, "error", err)
		return
	}
	s.logger.Debug("metrics written", "path", s.cfg.MetricsFile)
}

// finish prints an executor outcome and maps it to an exit error.
func (s *session) finish(view any, runErr error, failures int, aborted bool) error {
	switch {
	case aborted:
		if err := s.out.Partial(view, "run cancelled before completion"); err != nil {
			return err
		}
		return WrapExitError(ExitFailure, "run cancelled", runErr)
	case runErr != nil:
		_ = s.out.Error(errorCode(runErr), runErr.Error(), nil)
		return runError("run failed", runErr)
	case failures > 0:
		if err := s.out.Partial(view, fmt.Sprintf("%d write(s) rejected", failures)); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("run completed with %d failure(s)", failures))
	default:
		return s.out.Success(view)
	}
}

// isCancelled reports whether err came from context cancellation.
func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
