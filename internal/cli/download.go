package cli

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/BenjaminSRussell/vidgrab/internal/download"
	customhttp "github.com/BenjaminSRussell/vidgrab/internal/http"
	"github.com/BenjaminSRussell/vidgrab/internal/logx"
	"github.com/BenjaminSRussell/vidgrab/internal/storage"
	"github.com/BenjaminSRussell/vidgrab/internal/types"
	"github.com/spf13/cobra"
)

var (
	dlDir            string
	dlParallel       int
	dlRename         string
	dlReportFile     string
	dlReportDB       string
	dlTLSFingerprint bool
	dlProxyURL       string
)

var downloadCmd = &cobra.Command{
	Use:   "download <url>...",
	Short: "Download one or more video links",
	Long:  `Stream each link to the download directory with a live progress line`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, rawURL := range args {
			if _, err := types.ParseTarget(rawURL); err != nil {
				return err
			}
		}

		if dlRename != "" && len(args) > 1 {
			return fmt.Errorf("--rename can only be used with a single URL")
		}

		if dlParallel <= 0 {
			return fmt.Errorf("parallel must be positive, got %d", dlParallel)
		}

		config := types.DefaultConfig()
		config.DownloadDir = dlDir
		config.EnableTLSFingerprint = dlTLSFingerprint
		config.ProxyURL = dlProxyURL

		client, err := customhttp.NewClient(config)
		if err != nil {
			return fmt.Errorf("failed to create http client: %w", err)
		}

		reporter, err := storage.Open(dlReportFile, dlReportDB)
		if err != nil {
			return fmt.Errorf("failed to open report: %w", err)
		}
		defer reporter.Close()

		var renamer download.Renamer
		if dlRename != "" {
			renamer = download.RenameTo(dlRename)
		}

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
		defer stop()
		defer logReportTotals(ctx, reporter)

		printer := newProgressPrinter(cmd.OutOrStdout())
		downloader := download.New(client, config, renamer)
		results := downloader.Batch(ctx, args, config.DownloadDir, dlParallel, printer.update)

		failed := 0
		for _, r := range results {
			printer.done(r.Job, r.Err)
			if r.Err != nil {
				failed++
			}
			if err := reporter.SaveJob(*r.Job); err != nil {
				logx.FromContext(ctx).Warn("failed to save job report", "error", err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Completed: %d, Failed: %d\n", len(results)-failed, failed)
		if failed > 0 {
			return fmt.Errorf("%d of %d downloads failed", failed, len(results))
		}

		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVar(&dlDir, "download-dir", "downloads", "Download directory")
	downloadCmd.Flags().IntVar(&dlParallel, "parallel", 2, "Number of concurrent downloads")
	downloadCmd.Flags().StringVar(&dlRename, "rename", "", "Rename the finished file (extension is kept)")
	downloadCmd.Flags().StringVar(&dlReportFile, "report", "", "Append download records to this JSONL file")
	downloadCmd.Flags().StringVar(&dlReportDB, "report-db", "", "Record downloads in this SQLite database")
	downloadCmd.Flags().BoolVar(&dlTLSFingerprint, "tls-fingerprint", false, "Mimic a browser TLS handshake")
	downloadCmd.Flags().StringVar(&dlProxyURL, "proxy", "", "Proxy URL for all requests")
}
