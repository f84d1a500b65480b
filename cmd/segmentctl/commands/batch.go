package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/segmenta-ai/segment-engine/cmd/segmentctl/ui"
	"github.com/segmenta-ai/segment-engine/internal/batch"
	"github.com/segmenta-ai/segment-engine/internal/cache"
	"github.com/segmenta-ai/segment-engine/internal/storage"
)

var (
	batchSave    bool
	batchPublish bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <file-or-glob>...",
	Short: "Segment many extraction results concurrently",
	Long: `Runs the segmentation pipeline over every matching extraction result
with a bounded worker pool. Shell-style globs are expanded per argument.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().BoolVar(&batchSave, "save", false, "persist runs to the run store")
	batchCmd.Flags().BoolVar(&batchPublish, "publish", false, "publish completion events (requires redis cache)")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	paths, err := expandGlobs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files match %v", args)
	}

	pipe, cacheClient, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer cacheClient.Close()

	progress := ui.NewBatchProgress("segmenting", int64(len(paths)))
	opts := []batch.Option{
		batch.WithProgress(func(batch.Outcome) { progress.Increment() }),
	}

	if batchSave {
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return fmt.Errorf("database connection: %w", err)
		}
		defer db.Close()
		opts = append(opts, batch.WithRepositories(storage.NewRepositories(db)))
	}

	if batchPublish {
		publisher, ok := cacheClient.(cache.Publisher)
		if !ok {
			return fmt.Errorf("--publish requires the redis cache driver")
		}
		opts = append(opts, batch.WithPublisher(publisher))
	}

	runner := batch.NewRunner(pipe, logger, cfg.Batch.MaxConcurrentJobs, opts...)
	outcomes, err := runner.Run(ctx, paths)
	if err != nil {
		return err
	}
	progress.Wait()

	displayOutcomes(outcomes)
	return nil
}

func expandGlobs(patterns []string) ([]string, error) {
	var paths []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if matches == nil {
			// Not a glob; keep as a literal path so missing files are
			// reported per job.
			matches = []string{pattern}
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

func displayOutcomes(outcomes []batch.Outcome) {
	ui.Section("Batch Result")

	var failed int
	rows := make([][]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failed++
			rows = append(rows, []string{outcome.Path, "failed", outcome.Err.Error()})
			continue
		}
		rows = append(rows, []string{
			outcome.Path,
			"ok",
			fmt.Sprintf("%d chunks, %s", len(outcome.Result.Chunks), outcome.Result.DominantLanguage()),
		})
	}
	ui.Table([]string{"File", "Status", "Detail"}, rows)

	if failed > 0 {
		ui.Warning("%d of %d files failed", failed, len(outcomes))
		return
	}
	ui.Success("%d files segmented", len(outcomes))
}
