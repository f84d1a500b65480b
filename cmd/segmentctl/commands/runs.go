package commands

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/segmenta-ai/segment-engine/cmd/segmentctl/ui"
	"github.com/segmenta-ai/segment-engine/internal/storage"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List persisted pipeline runs",
	RunE:  runRuns,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one persisted run and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to list")
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := storage.NewRunRepository(db).List(ctx, runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		ui.Info("no runs recorded")
		return nil
	}

	ui.Section("Runs")
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		lang := "-"
		if run.DominantLanguage != nil {
			lang = *run.DominantLanguage
		}
		rows = append(rows, []string{
			run.ID.String(),
			run.SourceFile,
			string(run.Status),
			strconv.Itoa(run.ChunkCount),
			lang,
			run.StartedAt.Format(time.RFC3339),
		})
	}
	ui.Table([]string{"ID", "Source", "Status", "Chunks", "Language", "Started"}, rows)
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runID, err := uuid.Parse(args[0])
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	repos := storage.NewRepositories(db)

	run, err := repos.Runs.GetByID(ctx, runID)
	if err != nil {
		return err
	}

	ui.Section("Run " + run.ID.String())
	ui.Message("source:   %s", run.SourceFile)
	ui.Message("status:   %s", run.Status)
	ui.Message("sha256:   %s", run.ContentSHA256)
	if run.EnrichmentLevel != nil {
		ui.Message("enrich:   %s", *run.EnrichmentLevel)
	}
	ui.Message("duration: %dms", run.DurationMS)
	if run.ErrorMessage != nil {
		ui.Error("error: %s", *run.ErrorMessage)
	}

	chunks, err := repos.Chunks.ListByRun(ctx, runID)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	ui.Section("Chunks")
	rows := make([][]string, 0, len(chunks))
	for _, chunk := range chunks {
		lang := "-"
		if chunk.Language != nil {
			lang = *chunk.Language
		}
		text := chunk.Text
		if runes := []rune(text); len(runes) > 60 {
			text = string(runes[:60]) + "..."
		}
		rows = append(rows, []string{
			strconv.Itoa(chunk.ChunkIndex),
			formatPage(chunk.Page),
			lang,
			text,
		})
	}
	ui.Table([]string{"#", "Page", "Language", "Text"}, rows)
	return nil
}
