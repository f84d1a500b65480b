package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/segmenta-ai/segment-engine/cmd/segmentctl/ui"
	"github.com/segmenta-ai/segment-engine/internal/extraction"
	"github.com/segmenta-ai/segment-engine/internal/segment"
)

var (
	langFilter        string
	langMinConfidence float64
)

var languagesCmd = &cobra.Command{
	Use:   "languages <extraction-result.json>",
	Short: "Detect and summarize chunk languages",
	Args:  cobra.ExactArgs(1),
	RunE:  runLanguages,
}

func init() {
	languagesCmd.Flags().StringVar(&langFilter, "filter", "", "show only chunks detected as this language")
	languagesCmd.Flags().Float64Var(&langMinConfidence, "min-confidence", -1, "confidence floor for --filter on a 0-1 scale (negative uses the configured default)")
	rootCmd.AddCommand(languagesCmd)
}

func runLanguages(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	res, err := extraction.LoadResult(args[0])
	if err != nil {
		return err
	}
	if err := res.Validate(); err != nil {
		return err
	}

	indicators, err := cfg.DetectorIndicators()
	if err != nil {
		return err
	}
	detector := segment.NewDetector(segment.DetectorConfig{
		Indicators:         indicators,
		AcceptThreshold:    cfg.Detector.AcceptThreshold,
		DominanceThreshold: cfg.Detector.DominanceThreshold,
	})

	chunker, err := segment.NewChunker(cfg.Chunking.MaxCharacters, cfg.Chunking.Overlap)
	if err != nil {
		return err
	}
	chunks := chunker.Split(res.Content)
	chunks = detector.DetectChunkLanguages(chunks)

	ui.Section("Language Summary")
	stats := detector.LanguageSummary(chunks)
	rows := make([][]string, 0, len(stats))
	for _, stat := range stats {
		rows = append(rows, []string{
			stat.Language,
			strconv.Itoa(stat.ChunkCount),
			formatConfidence(stat.MeanConfidence),
		})
	}
	ui.Table([]string{"Language", "Chunks", "Mean Confidence"}, rows)

	if detector.IsSingleLanguage(chunks, 0) {
		ui.Info("document is single-language")
	}

	if langFilter != "" {
		minConfidence := langMinConfidence
		if minConfidence < 0 {
			minConfidence = cfg.Detector.MinConfidence
		}
		matched := detector.FilterByLanguage(chunks, langFilter, minConfidence)
		ui.Section(fmt.Sprintf("Chunks Detected as %q", langFilter))
		ui.Message("%d of %d chunks match", len(matched), len(chunks))
		if ui.Verbose() {
			for _, ch := range matched {
				confidence, _ := ch.Confidence()
				ui.Message("  [%s] %.80s", formatConfidence(confidence), ch.Text)
			}
		}
	}
	return nil
}
