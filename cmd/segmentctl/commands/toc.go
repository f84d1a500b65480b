package commands

import (
	"context"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/segmenta-ai/segment-engine/cmd/segmentctl/ui"
	"github.com/segmenta-ai/segment-engine/internal/extraction"
)

var tocCmd = &cobra.Command{
	Use:   "toc <extraction-result.json>",
	Short: "Derive a table of contents from page-leading chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runTOC,
}

func init() {
	rootCmd.AddCommand(tocCmd)
}

func runTOC(cmd *cobra.Command, args []string) error {
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

	if len(result.TOC) == 0 {
		ui.Info("no table of contents entries found")
		return nil
	}

	ui.Section("Table of Contents")
	rows := make([][]string, 0, len(result.TOC))
	for _, entry := range result.TOC {
		rows = append(rows, []string{
			formatPage(entry.Page),
			entry.ContentType,
			strconv.Itoa(entry.ChunkIndex),
			entry.Title,
		})
	}
	ui.Table([]string{"Page", "Type", "Chunk", "Title"}, rows)
	return nil
}
