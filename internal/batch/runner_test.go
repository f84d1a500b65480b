package batch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segmenta-ai/segment-engine/internal/config"
	"github.com/segmenta-ai/segment-engine/internal/extraction"
	"github.com/segmenta-ai/segment-engine/internal/observability"
	"github.com/segmenta-ai/segment-engine/internal/pipeline"
	"github.com/segmenta-ai/segment-engine/internal/storage"
)

func newTestPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()

	p, err := pipeline.New(config.DefaultConfig(), observability.NopLogger(), nil)
	require.NoError(t, err)
	return p
}

func writeResult(t *testing.T, dir, name, content string) string {
	t.Helper()

	res := extraction.Result{Content: content, Success: true}
	data, err := json.Marshal(res)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRunner_Run_OutcomesInInputOrder(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeResult(t, dir, "a.json", "the cat and the dog in the garden"),
		writeResult(t, dir, "b.json", "the report covers the results of the survey"),
		writeResult(t, dir, "c.json", "the house on the hill with the red roof"),
	}

	runner := NewRunner(newTestPipeline(t), observability.NopLogger(), 2)
	outcomes, err := runner.Run(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	for i, outcome := range outcomes {
		assert.Equal(t, paths[i], outcome.Path)
		require.NoError(t, outcome.Err)
		require.NotNil(t, outcome.Result)
		assert.NotEmpty(t, outcome.Result.Chunks)
	}
}

func TestRunner_Run_BadFileReportedPerJob(t *testing.T) {
	dir := t.TempDir()
	good := writeResult(t, dir, "good.json", "the cat and the dog in the garden")
	missing := filepath.Join(dir, "missing.json")

	runner := NewRunner(newTestPipeline(t), observability.NopLogger(), 2)
	outcomes, err := runner.Run(context.Background(), []string{good, missing})
	require.NoError(t, err)

	assert.NoError(t, outcomes[0].Err)
	assert.Error(t, outcomes[1].Err)
	assert.Nil(t, outcomes[1].Result)
}

func TestRunner_Run_FailedExtractionOutcome(t *testing.T) {
	dir := t.TempDir()
	res := extraction.Result{Success: false, Error: "ocr timeout"}
	data, err := json.Marshal(res)
	require.NoError(t, err)
	path := filepath.Join(dir, "failed.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	runner := NewRunner(newTestPipeline(t), observability.NopLogger(), 1)
	outcomes, err := runner.Run(context.Background(), []string{path})
	require.NoError(t, err)
	assert.ErrorIs(t, outcomes[0].Err, extraction.ErrFailedExtraction)
}

func TestRunner_Run_ProgressCallback(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeResult(t, dir, "a.json", "the cat and the dog"),
		writeResult(t, dir, "b.json", "the house and the hill"),
	}

	var mu sync.Mutex
	var seen []string
	runner := NewRunner(newTestPipeline(t), observability.NopLogger(), 2,
		WithProgress(func(o Outcome) {
			mu.Lock()
			seen = append(seen, o.Path)
			mu.Unlock()
		}))

	_, err := runner.Run(context.Background(), paths)
	require.NoError(t, err)
	assert.ElementsMatch(t, paths, seen)
}

func TestRunner_Run_Persistence(t *testing.T) {
	dir := t.TempDir()
	path := writeResult(t, dir, "doc.json", "the cat and the dog sat in the garden")

	ctx := context.Background()
	db, err := storage.Open(ctx, "sqlite3", filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer db.Close()
	repos := storage.NewRepositories(db)

	runner := NewRunner(newTestPipeline(t), observability.NopLogger(), 1, WithRepositories(repos))
	outcomes, err := runner.Run(ctx, []string{path})
	require.NoError(t, err)
	require.NoError(t, outcomes[0].Err)
	require.NotEqual(t, uuid.Nil, outcomes[0].RunID)

	run, err := repos.Runs.GetByID(ctx, outcomes[0].RunID)
	require.NoError(t, err)
	assert.Equal(t, storage.RunStatusSucceeded, run.Status)
	assert.Equal(t, len(outcomes[0].Result.Chunks), run.ChunkCount)
	require.NotNil(t, run.DominantLanguage)
	assert.Equal(t, "en", *run.DominantLanguage)
	assert.NotNil(t, run.CompletedAt)

	chunks, err := repos.Chunks.ListByRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, chunks, run.ChunkCount)
}

func TestRunner_Run_PersistsFailureStatus(t *testing.T) {
	dir := t.TempDir()
	res := extraction.Result{Success: false, Error: "corrupt source"}
	data, err := json.Marshal(res)
	require.NoError(t, err)
	path := filepath.Join(dir, "failed.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	ctx := context.Background()
	db, err := storage.Open(ctx, "sqlite3", filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer db.Close()
	repos := storage.NewRepositories(db)

	runner := NewRunner(newTestPipeline(t), observability.NopLogger(), 1, WithRepositories(repos))
	outcomes, err := runner.Run(ctx, []string{path})
	require.NoError(t, err)
	require.Error(t, outcomes[0].Err)

	run, err := repos.Runs.GetByID(ctx, outcomes[0].RunID)
	require.NoError(t, err)
	assert.Equal(t, storage.RunStatusFailed, run.Status)
	require.NotNil(t, run.ErrorMessage)
	assert.Contains(t, *run.ErrorMessage, "corrupt source")
}
