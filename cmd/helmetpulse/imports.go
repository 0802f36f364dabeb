package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/HelmetPulse/internal/importer"
	"github.com/IshaanNene/HelmetPulse/internal/ingest"
)

// importCmd creates the "import" subcommand for vendor spreadsheets.
func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import vendor spreadsheets",
		Long: `Import vendor price sheets (.xlsx, .xlsm, .csv). The vendor is chosen by a
keyword in the file name: pristine, signature, great, radtke, rsa or fanatics.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and match without writing to the database")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	im := importer.New(a.ingestor(dryRun), a.cfg.Collectors, a.logger)

	start := time.Now()
	var total ingest.Stats
	var failed int
	for _, path := range args {
		if err := a.ctx.Err(); err != nil {
			return err
		}
		stats, err := im.ImportFile(a.ctx, path)
		total.Add(stats)
		a.metrics.RecordIngest(stats)
		if err != nil {
			a.metrics.FilesFailed.Add(1)
			a.logger.Error("import failed", "file", path, "error", err)
			failed++
			continue
		}
		a.metrics.FilesImported.Add(1)
		fmt.Printf("   %s: %s\n", filepath.Base(path), stats)
	}

	fmt.Printf("\n✅ Import complete in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("   Files:     %d imported, %d failed\n", len(args)-failed, failed)
	fmt.Printf("   Rows:      %d seen, %d skipped\n", total.Seen, total.Skipped)
	fmt.Printf("   Catalog:   %d created, %d matched\n", total.Created, total.Matched)
	fmt.Printf("   Prices:    %d written, %d errors\n", total.PricesWritten, total.Errors)

	// An unreadable input file is fatal for the run.
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to import", failed, len(args))
	}
	return nil
}

// watchCmd creates the "watch" subcommand for the imports directory.
func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Import vendor files dropped into the imports directory",
		Long: `Watch the imports directory and import each supported file once it stops
changing. Imported files move to the processed directory with a timestamp
prefix; files that fail move to processed/failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(true)
			if err != nil {
				return err
			}
			defer a.close()

			a.startMetrics()
			im := importer.New(a.ingestor(false), a.cfg.Collectors, a.logger)
			w := importer.NewWatcher(im, a.cfg.Importer, a.logger, importer.WithMetrics(a.metrics))

			fmt.Printf("👀 Watching %s (Ctrl+C to stop)\n", a.cfg.Importer.Dir)
			if err := w.Run(a.ctx); err != nil {
				return err
			}

			snap := a.metrics.Snapshot()
			fmt.Printf("\n✅ Watcher stopped\n")
			fmt.Printf("   Files:     %d imported, %d failed\n", snap["files_imported"], snap["files_failed"])
			fmt.Printf("   Prices:    %d written\n", snap["prices_written"])
			return nil
		},
	}
}
