package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/HelmetPulse/internal/config"
)

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("HelmetPulse %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
// Secrets are reported as set or unset, never printed.
func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Database:\n")
			fmt.Printf("  Driver:            %s\n", cfg.Database.Driver)
			fmt.Printf("  URL:               %s\n", setOrUnset(cfg.Database.URL))
			fmt.Printf("  Page Size:         %d\n", cfg.Database.PageSize)
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Request Timeout:   %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Printf("  Follow Redirects:  %v\n", cfg.Fetcher.FollowRedirects)
			fmt.Printf("  Max Body Size:     %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("  Headless:          %v\n", cfg.Fetcher.Headless)
			fmt.Printf("\nCollectors:\n")
			for _, name := range []string{"radtke", "rsa", "fanatics", "ebay"} {
				sc, _ := cfg.Collectors.Source(name)
				fmt.Printf("  %-9s %s (%d paths, %d pages max, delay %s, default %s)\n",
					name+":", sc.BaseURL, len(sc.Paths), sc.MaxPages, sc.Delay, sc.DefaultHelmetType)
			}
			fmt.Printf("  Scraping Service:  %s\n", setOrUnset(cfg.ScrapingService.APIKey))
			fmt.Printf("\nCache:\n")
			fmt.Printf("  Type:              %s\n", cfg.Cache.Type)
			fmt.Printf("  Max Age:           %s\n", cfg.Cache.MaxAge)
			fmt.Printf("\nImporter:\n")
			fmt.Printf("  Directory:         %s\n", cfg.Importer.Dir)
			fmt.Printf("  Processed:         %s\n", cfg.Importer.ProcessedDir)
			fmt.Printf("\nNotifier:\n")
			fmt.Printf("  Subscribers:       %s\n", cfg.Notifier.SubscribersFile)
			fmt.Printf("  API Base URL:      %s\n", cfg.Notifier.APIBaseURL)
			fmt.Printf("  SMTP:              %s:%d (password %s)\n", cfg.Notifier.SMTP.Host, cfg.Notifier.SMTP.Port, setOrUnset(cfg.Notifier.SMTP.Pass))
			fmt.Printf("  Schedule:          %s\n", cfg.Notifier.Schedule)
			fmt.Printf("\nReconcile:\n")
			fmt.Printf("  Strict:            %v\n", cfg.Reconcile.Strict)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
	return cmd
}

func setOrUnset(s string) string {
	if s == "" {
		return "unset"
	}
	return "set"
}
