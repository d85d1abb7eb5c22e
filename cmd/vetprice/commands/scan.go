package commands

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/vetprice/internal/logger"
	"github.com/jmylchreest/vetprice/internal/sink"
	"github.com/jmylchreest/vetprice/internal/version"
	"github.com/jmylchreest/vetprice/pkg/fetcher"
	"github.com/jmylchreest/vetprice/pkg/scan"
	"github.com/jmylchreest/vetprice/pkg/sites"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Collect prices from every store, or one with --site",
	Long: `Search every catalog term on the supported stores and save one file
per store plus a consolidated statistics report.

Results go to dados_coletados/ under the output directory, or to
dados_testes/ with --test-mode. Test mode only keeps the first search
result per term and uses shorter delays.

Examples:
  vetprice scan
  vetprice scan --site cobasi
  vetprice scan --test-mode --format json`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	flags := scanCmd.Flags()
	flags.String("site", "", "scan only this store")
	flags.Bool("test-mode", false, "first result per term, short delays, test output directory")
	flags.StringP("output-dir", "o", "", "base output directory")
	flags.String("format", "", "output format: csv, json, jsonl, yaml, xlsx")
	flags.String("engine", "", "browser engine: chromedp, rod")
	flags.String("browser-path", "", "browser executable (default: auto-detect)")
	flags.String("catalog", "", "YAML term list replacing the built-in catalog")

	_ = viper.BindPFlag("output.dir", flags.Lookup("output-dir"))
	_ = viper.BindPFlag("output.format", flags.Lookup("format"))
	_ = viper.BindPFlag("browser.engine", flags.Lookup("engine"))
	_ = viper.BindPFlag("browser.path", flags.Lookup("browser-path"))
	_ = viper.BindPFlag("catalog", flags.Lookup("catalog"))
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	site, _ := cmd.Flags().GetString("site")
	testMode, _ := cmd.Flags().GetBool("test-mode")
	logger.Debug("scan command starting", "site", site, "test_mode", testMode, "engine", cfg.Browser.Engine)

	cat, err := loadCatalog()
	if err != nil {
		logError("%v", err)
		return err
	}

	engine, err := fetcher.NewEngine(cfg.Browser.Engine, browserPath(), cfg.Browser.Headless)
	if err != nil {
		logError("%v", err)
		return err
	}
	coord := fetcher.New(cfg.FetcherConfig(), engine)
	defer func() { _ = coord.Close() }()

	out, err := sink.NewFileSink(cfg.Output.Dir, testMode, cfg.OutputFormat())
	if err != nil {
		logError("%v", err)
		return err
	}

	pacer := cfg.TermPacer(testMode)
	adapters := sites.Registry(sites.Deps{
		Catalog:  cat,
		Fetcher:  coord,
		Pacer:    pacer,
		TestMode: testMode,
	})
	orch := scan.New(coord, adapters, cat, out, pacer,
		scan.WithSiteDelay(cfg.Pacing.SiteDelay),
		scan.WithTestMode(testMode))

	logInfo("%s: %d terms, writing to %s", version.Label(), cat.Len(), out.Dir())

	var report scan.Report
	if site != "" {
		report, err = orch.ScanOne(ctx, site)
	} else {
		report, err = orch.ScanAll(ctx)
	}
	if report.RunID == "" && err != nil {
		logError("%v", err)
		return err
	}

	printSummary(cmd.OutOrStdout(), report, out)
	if err != nil {
		logError("%v", err)
		return err
	}
	return nil
}

// browserPath prefers the configured executable, then a system Chrome for
// the chromedp engine. Rod downloads its own browser when none is given.
func browserPath() string {
	if cfg.Browser.Path != "" {
		return cfg.Browser.Path
	}
	if cfg.Browser.Engine == fetcher.EngineChromedp {
		return fetcher.FindChromePath()
	}
	return ""
}

func printSummary(w io.Writer, report scan.Report, out *sink.FileSink) {
	status := "completed"
	if report.Interrupted {
		status = "interrupted"
	}
	fmt.Fprintf(w, "\nRun %s %s in %s\n", report.RunID, status, report.Duration().Round(time.Second))
	if report.TestMode {
		fmt.Fprintln(w, "Test mode: first result per term only")
	}

	for _, s := range report.Sites {
		file := s.File
		if file == "" {
			file = "(not saved)"
		}
		fmt.Fprintf(w, "  %-8s %6s records  %d/%d terms with results  %s\n",
			s.Name, humanize.Comma(int64(s.Records)), s.Terms-s.EmptyTerms, s.Terms, file)
	}
	fmt.Fprintf(w, "Total: %s records\n", humanize.Comma(int64(report.Records())))
	fmt.Fprintf(w, "Fetches: %s\n", report.Stats)
	if report.Consolidated != "" {
		fmt.Fprintf(w, "Report: %s\n", report.Consolidated)
	}

	if info, err := out.Info(); err == nil {
		fmt.Fprintf(w, "Output: %s\n", info)
	}
}
