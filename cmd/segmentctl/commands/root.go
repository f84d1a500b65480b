package commands

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "segmentctl",
	Short: "Segment Engine - post-extraction text segmentation and enrichment",
	Long: `segmentctl segments extracted document text into overlapping chunks,
tracks page boundaries, detects chunk languages and enriches chunk metadata.
It consumes extraction result JSON files produced by an upstream extractor.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
