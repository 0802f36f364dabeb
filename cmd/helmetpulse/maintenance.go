package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/HelmetPulse/internal/cleanup"
	"github.com/IshaanNene/HelmetPulse/internal/export"
	"github.com/IshaanNene/HelmetPulse/internal/store"
)

var (
	mergeKeep  int64
	mergeDrop  string
	exportPath string
)

// cleanupCmd creates the "cleanup" subcommand and its merge helper.
func cleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup <" + strings.Join(cleanup.Jobs, "|") + "|all>",
		Short: "Repair the catalog",
		Long: `Run catalog repair jobs:

  orphans            delete prices whose helmet no longer exists
  names              fix known player misspellings, merging into existing rows
  junk               delete helmets whose player is empty, a team or boilerplate
  duplicates         merge helmets sharing a natural key into the oldest row
  price-duplicates   keep the newest price per helmet and source
  all                every job above, in that order`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: append(append([]string{}, cleanup.Jobs...), "all"),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs := []string{args[0]}
			if args[0] == "all" {
				jobs = cleanup.Jobs
			}

			// Legacy databases fail the unique-index check; the jobs are what repairs them.
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			c := cleanup.New(a.store, a.parser, dryRun, a.logger)
			for _, job := range jobs {
				r, err := c.Run(a.ctx, job)
				if err != nil {
					return err
				}
				r.Print(os.Stdout)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "report without changing anything")

	cmd.AddCommand(mergeCmd())
	return cmd
}

// mergeCmd creates "cleanup merge" for hand-picked duplicates.
func mergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge --keep <id> --drop <id,id,...>",
		Short: "Merge helmets into one row, moving their prices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var drop []int64
			for _, s := range strings.Split(mergeDrop, ",") {
				if s = strings.TrimSpace(s); s == "" {
					continue
				}
				id, err := strconv.ParseInt(s, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid helmet id %q: %w", s, err)
				}
				drop = append(drop, id)
			}
			if mergeKeep <= 0 || len(drop) == 0 {
				return fmt.Errorf("--keep and --drop are required")
			}

			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			r, err := cleanup.New(a.store, a.parser, dryRun, a.logger).Merge(a.ctx, mergeKeep, drop)
			if err != nil {
				return err
			}
			r.Print(os.Stdout)
			return nil
		},
	}

	cmd.Flags().Int64Var(&mergeKeep, "keep", 0, "helmet id that survives")
	cmd.Flags().StringVar(&mergeDrop, "drop", "", "comma-separated helmet ids merged into --keep")

	return cmd
}

// reportCmd creates the "report" subcommand.
func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Catalog reports",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "missing-prices",
		Short: "List helmets without any price",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(true)
			if err != nil {
				return err
			}
			defer a.close()

			r, err := cleanup.New(a.store, a.parser, true, a.logger).MissingPrices(a.ctx)
			if err != nil {
				return err
			}
			r.Print(os.Stdout)
			return nil
		},
	})

	exp := &cobra.Command{
		Use:   "export",
		Short: "Write every helmet and its prices to .csv or .xlsx",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(true)
			if err != nil {
				return err
			}
			defer a.close()

			rows, err := export.Rows(a.ctx, a.store)
			if err != nil {
				return err
			}
			w, err := export.New(exportPath, a.logger)
			if err != nil {
				return err
			}
			if err := w.Write(rows); err != nil {
				w.Close()
				return err
			}
			if err := w.Close(); err != nil {
				return err
			}
			fmt.Printf("✅ Exported %d rows to %s (%s)\n", len(rows), exportPath, w.Name())
			return nil
		},
	}
	exp.Flags().StringVarP(&exportPath, "output", "o", "helmet_prices.xlsx", "output file (.csv or .xlsx)")
	cmd.AddCommand(exp)

	return cmd
}

// schemaCmd creates the "schema" subcommand.
func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Check, print or apply the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Verify tables, columns and unique indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.store.CheckSchema(a.ctx)
			if err != nil {
				for _, col := range report.MissingColumns {
					fmt.Printf("   missing column: %s\n", col)
				}
				for _, idx := range report.MissingIndexes {
					fmt.Printf("   missing index:  %s\n", idx)
				}
				return err
			}
			fmt.Println("✅ Schema OK")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "sql [postgres|sqlite]",
		Short: "Print the schema DDL to run by hand",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			driver := ""
			if len(args) == 1 {
				driver = args[0]
			} else {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				driver = cfg.Database.Driver
			}
			if driver != "postgres" && driver != "sqlite" {
				return fmt.Errorf("unsupported database driver %q", driver)
			}
			fmt.Print(store.SchemaSQL(driver))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.store.Migrate(a.ctx); err != nil {
				return err
			}
			fmt.Println("✅ Schema migrated")
			return nil
		},
	})

	return cmd
}
