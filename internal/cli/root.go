package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vidgrab",
	Short: "Find and download video links on a web page",
	Long: `vidgrab - scans a page (optionally rendered in headless Chrome), follows
embedded players, filters out thumbnails, ads and previews, and streams the
chosen video to disk.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(downloadCmd)
}
