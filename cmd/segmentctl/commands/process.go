package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/segmenta-ai/segment-engine/cmd/segmentctl/ui"
	"github.com/segmenta-ai/segment-engine/internal/batch"
	"github.com/segmenta-ai/segment-engine/internal/pipeline"
	"github.com/segmenta-ai/segment-engine/internal/storage"
)

var (
	processSave bool
	processJSON bool
)

var processCmd = &cobra.Command{
	Use:   "process <extraction-result.json>",
	Short: "Segment and enrich one extraction result",
	Args:  cobra.ExactArgs(1),
	RunE:  runProcess,
}

func init() {
	processCmd.Flags().BoolVar(&processSave, "save", false, "persist the run to the run store")
	processCmd.Flags().BoolVar(&processJSON, "json", false, "print the full result as JSON")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	pipe, cacheClient, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}
	defer cacheClient.Close()

	opts := []batch.Option{}
	if processSave {
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return fmt.Errorf("database connection: %w", err)
		}
		defer db.Close()
		opts = append(opts, batch.WithRepositories(storage.NewRepositories(db)))
	}

	spin := ui.NewSpinner("segmenting " + args[0])
	spin.Start()
	runner := batch.NewRunner(pipe, logger, 1, opts...)
	outcomes, err := runner.Run(ctx, args)
	spin.Stop()
	if err != nil {
		return err
	}
	outcome := outcomes[0]
	if outcome.Err != nil {
		return outcome.Err
	}

	if processJSON {
		data, err := json.MarshalIndent(outcome.Result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	displayResult(outcome.Result)
	if processSave {
		ui.Success("run %s saved", outcome.RunID)
	}
	return nil
}

func displayResult(result *pipeline.Result) {
	ui.Section("Segmentation Result")
	ui.Table(
		[]string{"Chunks", "Segments", "Pages", "Gaps", "Language", "Enrichment", "Cache", "Duration"},
		[][]string{{
			strconv.Itoa(len(result.Chunks)),
			strconv.Itoa(len(result.Segments)),
			strconv.Itoa(len(result.Transitions.Pages)),
			strconv.Itoa(len(result.Transitions.Gaps)),
			result.DominantLanguage(),
			result.Summary.EnrichmentLevel,
			cacheLabel(result.CacheHit),
			fmt.Sprintf("%dms", result.DurationMS),
		}},
	)

	if len(result.Languages) > 0 {
		ui.Section("Languages")
		rows := make([][]string, 0, len(result.Languages))
		for _, stat := range result.Languages {
			rows = append(rows, []string{
				stat.Language,
				strconv.Itoa(stat.ChunkCount),
				formatConfidence(stat.MeanConfidence),
			})
		}
		ui.Table([]string{"Language", "Chunks", "Mean Confidence"}, rows)
	}

	if len(result.Transitions.Gaps) > 0 {
		for _, gap := range result.Transitions.Gaps {
			ui.Warning("page gap between %d and %d", gap.From, gap.To)
		}
	}

	if ui.Verbose() {
		fmt.Fprintf(os.Stdout, "job: %s\n", result.JobID)
	}
}

func cacheLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
