package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segmenta-ai/segment-engine/internal/storage"
)

func TestRunStore_Postgres(t *testing.T) {
	skipUnlessDocker(t)

	ctx := context.Background()
	connStr := startPostgres(t)

	db, err := storage.Open(ctx, "postgres", connStr)
	require.NoError(t, err)
	defer db.Close()

	repos := storage.NewRepositories(db)

	lang := "en"
	level := "high"
	run := &storage.RunRecord{
		SourceFile:    "brochure.json",
		ContentSHA256: "deadbeef",
		Status:        storage.RunStatusRunning,
	}
	require.NoError(t, repos.Runs.Create(ctx, run))

	run.Status = storage.RunStatusSucceeded
	run.ChunkCount = 2
	run.SegmentCount = 1
	run.DominantLanguage = &lang
	run.EnrichmentLevel = &level
	run.Summary = []byte(`{"total_chunks":2}`)
	run.DurationMS = 17
	require.NoError(t, repos.Runs.Finish(ctx, run))

	page := 1
	confidence := 92.5
	require.NoError(t, repos.Chunks.CreateBatch(ctx, []*storage.ChunkRecord{
		{RunID: run.ID, ChunkIndex: 0, Text: "first chunk", Page: &page, Language: &lang, Confidence: &confidence, Metadata: []byte(`{"page_number":1}`)},
		{RunID: run.ID, ChunkIndex: 1, Text: "second chunk"},
	}))

	t.Run("run round trip", func(t *testing.T) {
		got, err := repos.Runs.GetByID(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, storage.RunStatusSucceeded, got.Status)
		assert.Equal(t, 2, got.ChunkCount)
		require.NotNil(t, got.DominantLanguage)
		assert.Equal(t, "en", *got.DominantLanguage)
		assert.JSONEq(t, `{"total_chunks":2}`, string(got.Summary))
		assert.NotNil(t, got.CompletedAt)
	})

	t.Run("lookup by content hash", func(t *testing.T) {
		got, err := repos.Runs.GetBySHA(ctx, "deadbeef")
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
	})

	t.Run("missing run", func(t *testing.T) {
		_, err := repos.Runs.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("chunks in order", func(t *testing.T) {
		chunks, err := repos.Chunks.ListByRun(ctx, run.ID)
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, "first chunk", chunks[0].Text)
		require.NotNil(t, chunks[0].Confidence)
		assert.InDelta(t, 92.5, *chunks[0].Confidence, 1e-6)
		assert.Nil(t, chunks[1].Page)
	})

	t.Run("list newest first", func(t *testing.T) {
		runs, err := repos.Runs.List(ctx, 10)
		require.NoError(t, err)
		require.NotEmpty(t, runs)
		assert.Equal(t, run.ID, runs[0].ID)
	})
}
