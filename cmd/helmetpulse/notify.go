package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/HelmetPulse/internal/api"
	"github.com/IshaanNene/HelmetPulse/internal/notifier"
	"github.com/IshaanNene/HelmetPulse/internal/observability"
)

var (
	schedule  string
	servePort int
)

// notifyCmd creates the "notify" subcommand.
func notifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Email watchlist price reports to subscribers",
		Long: `Send each subscriber an HTML report with the current price of every helmet on
their watchlist. Prices come from the price API at notifier.api_base_url.

Without --schedule the report is sent once. With a cron spec such as
"0 9 * * 1" the command keeps running and sends on that schedule.`,
		Args: cobra.NoArgs,
		RunE: runNotify,
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", `cron spec, e.g. "0 9 * * 1"; "config" uses notifier.schedule`)

	return cmd
}

func runNotify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog := setupLogger(cfg.Logging)
	defer closeLog()

	ctx, cancel := signalContext(logger)
	defer cancel()

	mailer, err := notifier.NewSMTPMailer(cfg.Notifier.SMTP.Host, cfg.Notifier.SMTP.Port,
		cfg.Notifier.SMTP.User, cfg.Notifier.SMTP.Pass, cfg.Notifier.From)
	if err != nil {
		return err
	}
	prices := notifier.NewPriceClient(cfg.Notifier.APIBaseURL, cfg.Fetcher.RequestTimeout, logger)

	metrics := observability.NewMetrics(logger)
	n := notifier.New(cfg.Notifier, prices, mailer, logger, notifier.WithMetrics(metrics))

	runOnce := func(ctx context.Context) error {
		start := time.Now()
		sum, err := n.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("\n✅ Notifications sent in %s\n", time.Since(start).Round(time.Millisecond))
		fmt.Printf("   Subscribers: %d (%d sent, %d failed)\n", sum.Subscribers, sum.Sent, sum.Failed)
		fmt.Printf("   Lookups:     %d (%d errors)\n", sum.Lookups, sum.LookupErrors)
		return nil
	}

	spec := schedule
	if spec == "config" {
		spec = cfg.Notifier.Schedule
	}
	if spec == "" {
		return runOnce(ctx)
	}

	if cfg.Metrics.Enabled {
		metrics.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path)
	}
	return notifier.Schedule(ctx, spec, func(ctx context.Context) {
		if err := runOnce(ctx); err != nil {
			logger.Error("scheduled notification failed", "error", err)
		}
	}, logger)
}

// serveCmd creates the "serve" subcommand for the price lookup API.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the helmet price lookup API",
		Long: `Serve the JSON API the notifier queries:

  GET /api/health
  GET /api/helmets/price?player=&team=&type=
  GET /api/helmets/{id}
  GET /api/stats`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(true)
			if err != nil {
				return err
			}
			defer a.close()

			a.startMetrics()
			srv := api.NewServer(servePort, a.store, a.parser, a.logger)
			srv.SetMetrics(a.metrics)

			fmt.Printf("🌐 Price API listening on :%d (Ctrl+C to stop)\n", servePort)
			return srv.Run(a.ctx)
		},
	}

	cmd.Flags().IntVarP(&servePort, "port", "p", 3000, "listen port")

	return cmd
}
