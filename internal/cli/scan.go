package cli

import (
	"context"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/BenjaminSRussell/vidgrab/internal/crawler"
	"github.com/BenjaminSRussell/vidgrab/internal/download"
	"github.com/BenjaminSRussell/vidgrab/internal/export"
	"github.com/BenjaminSRussell/vidgrab/internal/fetcher"
	customhttp "github.com/BenjaminSRussell/vidgrab/internal/http"
	"github.com/BenjaminSRussell/vidgrab/internal/logx"
	"github.com/BenjaminSRussell/vidgrab/internal/parser"
	"github.com/BenjaminSRussell/vidgrab/internal/storage"
	"github.com/BenjaminSRussell/vidgrab/internal/types"
	"github.com/spf13/cobra"
)

var (
	render           bool
	autoRender       bool
	maxDepth         int
	embedConcurrency int
	timeout          int
	filterConfig     string
	outputFormat     string
	outputFile       string
	selectIndex      int
	assumeYes        bool
	downloadDir      string
	reportFile       string
	reportDB         string

	// Transport features
	maxRetries     int
	respectRobots  bool
	ratePerSecond  float64
	tlsFingerprint bool
	proxyURL       string
)

var scanCmd = &cobra.Command{
	Use:   "scan <url>",
	Short: "List the video links found on a page",
	Long: `Fetch a page, extract media links from raw text, anchors and embedded
players, filter them and print the result. With --select the chosen link is
downloaded right away.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawURL := args[0]
		if _, err := types.ParseTarget(rawURL); err != nil {
			return err
		}

		strategy, err := scanStrategy(render, autoRender)
		if err != nil {
			return err
		}

		format, err := export.ParseFormat(outputFormat)
		if err != nil {
			return err
		}

		filters, err := loadFilters(filterConfig)
		if err != nil {
			return err
		}

		config := buildConfig()

		scanner, err := crawler.NewFromConfig(config, filters)
		if err != nil {
			return fmt.Errorf("failed to create scanner: %w", err)
		}

		reporter, err := storage.Open(reportFile, reportDB)
		if err != nil {
			return fmt.Errorf("failed to open report: %w", err)
		}
		defer reporter.Close()

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
		defer stop()
		defer logReportTotals(ctx, reporter)

		result, err := scanner.Scan(ctx, rawURL, strategy)
		if rerr := reporter.SaveScan(*result); rerr != nil {
			logx.FromContext(ctx).Warn("failed to save scan report", "error", rerr)
		}
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		if err := export.Write(cmd.OutOrStdout(), format, *result); err != nil {
			return err
		}

		if outputFile != "" {
			if err := export.WriteFile(outputFile, format, *result); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d links to %s\n", len(result.Links), outputFile)
		}

		if selectIndex == 0 {
			return nil
		}

		link, err := selectLink(result.Links, selectIndex)
		if err != nil {
			return err
		}

		if !parser.IsRecognizedMediaLink(link) && !assumeYes {
			fmt.Fprintf(cmd.OutOrStdout(), "%s does not look like a video file; re-run with --yes to download it anyway\n", link)
			return nil
		}

		client, err := customhttp.NewClient(config)
		if err != nil {
			return fmt.Errorf("failed to create http client: %w", err)
		}

		printer := newProgressPrinter(cmd.OutOrStdout())
		downloader := download.New(client, config, nil)

		job, err := downloader.Download(ctx, link, config.DownloadDir, printer.update)
		printer.done(job, err)
		if rerr := reporter.SaveJob(*job); rerr != nil {
			logx.FromContext(ctx).Warn("failed to save job report", "error", rerr)
		}

		return err
	},
}

func init() {
	scanCmd.Flags().BoolVar(&render, "render", false, "Render the page in headless Chrome before extracting")
	scanCmd.Flags().BoolVar(&autoRender, "auto-render", false, "Render only when the static page looks like a script shell")
	scanCmd.Flags().IntVar(&maxDepth, "max-depth", 3, "Maximum embed recursion depth")
	scanCmd.Flags().IntVar(&embedConcurrency, "embed-concurrency", 4, "Embed pages fetched concurrently")
	scanCmd.Flags().IntVar(&timeout, "timeout", 10, "Request timeout in seconds")
	scanCmd.Flags().StringVar(&filterConfig, "filter-config", "", "JSON file overriding the default filter lists")
	scanCmd.Flags().StringVar(&outputFormat, "format", "text", "Output format: text/json/csv")
	scanCmd.Flags().StringVar(&outputFile, "output", "", "Also write the link list to this file")
	scanCmd.Flags().IntVar(&selectIndex, "select", 0, "Download the Nth link (1-based)")
	scanCmd.Flags().BoolVar(&assumeYes, "yes", false, "Download the selected link even if it has no video extension")
	scanCmd.Flags().StringVar(&downloadDir, "download-dir", "downloads", "Download directory")
	scanCmd.Flags().StringVar(&reportFile, "report", "", "Append scan and download records to this JSONL file")
	scanCmd.Flags().StringVar(&reportDB, "report-db", "", "Record scans and downloads in this SQLite database")

	// Transport features
	scanCmd.Flags().IntVar(&maxRetries, "max-retries", 0, "Maximum retry attempts per page fetch")
	scanCmd.Flags().BoolVar(&respectRobots, "respect-robots", false, "Honor robots.txt")
	scanCmd.Flags().Float64Var(&ratePerSecond, "rate", 0, "Maximum page requests per second (0 = unlimited)")
	scanCmd.Flags().BoolVar(&tlsFingerprint, "tls-fingerprint", false, "Mimic a browser TLS handshake")
	scanCmd.Flags().StringVar(&proxyURL, "proxy", "", "Proxy URL for all requests")
}

func buildConfig() types.Config {
	config := types.DefaultConfig()
	config.Timeout = time.Duration(timeout) * time.Second
	config.MaxEmbedDepth = maxDepth
	config.EmbedConcurrency = embedConcurrency
	config.MaxRetries = maxRetries
	config.RespectRobots = respectRobots
	config.RatePerSecond = ratePerSecond
	config.EnableTLSFingerprint = tlsFingerprint
	config.ProxyURL = proxyURL
	config.DownloadDir = downloadDir
	return config
}

func scanStrategy(render, autoRender bool) (fetcher.Strategy, error) {
	switch {
	case render && autoRender:
		return "", fmt.Errorf("--render and --auto-render are mutually exclusive")
	case render:
		return fetcher.StrategyRendered, nil
	case autoRender:
		return fetcher.StrategyAuto, nil
	default:
		return fetcher.StrategyStatic, nil
	}
}

func loadFilters(path string) (types.FilterConfig, error) {
	if path == "" {
		return types.DefaultFilterConfig(), nil
	}
	return types.LoadFilterConfig(path)
}

// selectLink returns the 1-based index-th link
func selectLink(links []string, index int) (string, error) {
	if index < 1 || index > len(links) {
		return "", fmt.Errorf("selection %d out of range (1-%d)", index, len(links))
	}
	return links[index-1], nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// logReportTotals logs the running totals of a queryable report
func logReportTotals(ctx context.Context, reporter storage.Multi) {
	stats, err := reporter.GetStats()
	if err != nil {
		logx.FromContext(ctx).Warn("failed to read report totals", "error", err)
		return
	}
	if len(stats) == 0 {
		return
	}

	args := make([]any, 0, 2*len(stats))
	for _, key := range slices.Sorted(maps.Keys(stats)) {
		args = append(args, key, stats[key])
	}
	logx.FromContext(ctx).Info("report totals", args...)
}
