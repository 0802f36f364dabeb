package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/HelmetPulse/internal/config"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

var (
	cfgFile string
	verbose bool
	dryRun  bool
)

// errSchema marks a failed schema pre-check; it has already been reported.
var errSchema = errors.New("schema pre-check failed")

func main() {
	rootCmd := &cobra.Command{
		Use:   "helmetpulse",
		Short: "HelmetPulse: autographed helmet price tracking",
		Long: `HelmetPulse collects autographed football helmet listings, reconciles them
against one catalog and records per-source prices.

Features:
  • Marketplace collectors: Radtke, Shop RSA, Fanatics, eBay sold listings
  • Vendor spreadsheet imports with a watched imports/ directory
  • Catalog cleanup jobs: orphans, names, junk, duplicates
  • Weekly price alert emails and a price lookup API
  • Postgres or SQLite storage, file or MongoDB listing cache`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(collectCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(cleanupCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(notifyCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errSchema) || errors.Is(err, types.ErrSchemaMismatch) {
			fmt.Fprintln(os.Stderr, "\n💡 Run `helmetpulse schema migrate`, or apply the SQL from `helmetpulse schema sql` by hand.")
		}
		os.Exit(1)
	}
}

// loadConfig reads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogger creates a structured logger from the logging config.
// --verbose forces debug level.
func setupLogger(cfg config.LoggingConfig) (*slog.Logger, func() error) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var out io.Writer = os.Stderr
	closeFn := func() error { return nil }
	switch cfg.Output {
	case "", "stderr":
	case "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log output %s: %v (using stderr)\n", cfg.Output, err)
		} else {
			out = f
			closeFn = f.Close
		}
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler), closeFn
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down...", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
