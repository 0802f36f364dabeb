package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/HelmetPulse/internal/config"
	"github.com/IshaanNene/HelmetPulse/internal/fetcher"
	"github.com/IshaanNene/HelmetPulse/internal/parser"
)

var (
	inspectAttr    string
	inspectBrowser bool
	inspectLimit   int
)

// inspectCmd creates the "inspect" subcommand for selector debugging.
func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <url> <xpath>",
		Short: "Print the nodes an XPath expression matches on a page",
		Long: `Fetch a page and print what an XPath expression selects, to check collector
selectors after a marketplace changes its layout.

  helmetpulse inspect https://www.radtke.com/collections/helmets '//div[@class="product-card"]//h3'
  helmetpulse inspect <url> '//a[contains(@class,"product")]' --attr href
  helmetpulse inspect <url> '//div[@data-trk-id]' --attr outerHTML --browser`,
		Args: cobra.ExactArgs(2),
		RunE: runInspect,
	}

	cmd.Flags().StringVar(&inspectAttr, "attr", "text", "what to print: text, html, outerHTML or an attribute name")
	cmd.Flags().BoolVar(&inspectBrowser, "browser", false, "render the page in the headless browser first")
	cmd.Flags().IntVarP(&inspectLimit, "limit", "n", 20, "maximum nodes to print (0 = all)")

	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	rawURL, expr := args[0], args[1]
	if err := config.ValidateURL(rawURL); err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, closeLog := setupLogger(cfg.Logging)
	defer closeLog()

	ctx, cancel := signalContext(logger)
	defer cancel()

	var f fetcher.Fetcher
	if inspectBrowser {
		f, err = fetcher.NewBrowserFetcher(&cfg.Fetcher, logger)
	} else {
		f, err = fetcher.NewHTTPFetcher(&cfg.Fetcher, logger)
	}
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer f.Close()

	resp, err := fetcher.Get(ctx, f, rawURL)
	if err != nil {
		return err
	}

	values, err := parser.NewXPathExtractor(logger).Query(resp, expr, inspectAttr)
	if err != nil {
		return err
	}

	fmt.Printf("%s → %d (%d bytes, %s, %s)\n", resp.FinalURL, resp.StatusCode, len(resp.Body), f.Type(),
		resp.FetchDuration.Round(time.Millisecond))
	fmt.Printf("%s matched %d nodes\n\n", expr, len(values))
	for i, v := range values {
		if inspectLimit > 0 && i >= inspectLimit {
			fmt.Printf("... %d more\n", len(values)-inspectLimit)
			break
		}
		fmt.Printf("[%d] %s\n", i, v)
	}
	return nil
}
