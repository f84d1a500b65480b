package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/segmenta-ai/segment-engine/internal/extraction"
	"github.com/segmenta-ai/segment-engine/internal/segment"
)

var reportCmd = &cobra.Command{
	Use:   "report <extraction-result.json>",
	Short: "Print a plain-text document report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	res, err := extraction.LoadResult(args[0])
	if err != nil {
		return err
	}

	pipe, cacheClient, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer cacheClient.Close()

	result, err := pipe.Process(ctx, args[0], res)
	if err != nil {
		return err
	}

	fmt.Print(segment.GenerateReport(res.Metadata, result.Chunks))
	return nil
}
