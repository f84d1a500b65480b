package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segmenta-ai/segment-engine/internal/cache"
	"github.com/segmenta-ai/segment-engine/internal/config"
	"github.com/segmenta-ai/segment-engine/internal/extraction"
	"github.com/segmenta-ai/segment-engine/internal/observability"
	"github.com/segmenta-ai/segment-engine/internal/segment"
)

const pagedContent = `<!-- PAGE 1 -->
# Introduction
The cat and the dog sat in the garden near the house.
## Page 2
The report covers the results of the survey in the city.`

func newTestPipeline(t *testing.T, cacheClient cache.Client) *Pipeline {
	t.Helper()

	cfg := config.DefaultConfig()
	p, err := New(cfg, observability.NopLogger(), cacheClient)
	require.NoError(t, err)
	return p
}

func successResult(content string) *extraction.Result {
	return &extraction.Result{
		Content:  content,
		MimeType: "text/markdown",
		Success:  true,
	}
}

func TestPipeline_Process_FailedUpstream(t *testing.T) {
	p := newTestPipeline(t, nil)

	res := &extraction.Result{Success: false, Error: "ocr timeout"}
	_, err := p.Process(context.Background(), "doc.json", res)
	assert.ErrorIs(t, err, extraction.ErrFailedExtraction)
	assert.Contains(t, err.Error(), "ocr timeout")
}

func TestPipeline_Process_PageMarkers(t *testing.T) {
	p := newTestPipeline(t, nil)

	result, err := p.Process(context.Background(), "doc.json", successResult(pagedContent))
	require.NoError(t, err)

	require.Len(t, result.Chunks, 2)
	page, ok := result.Chunks[0].PageNumber()
	require.True(t, ok)
	assert.Equal(t, 1, page)
	page, ok = result.Chunks[1].PageNumber()
	require.True(t, ok)
	assert.Equal(t, 2, page)

	assert.Equal(t, []int{1, 2}, result.Transitions.Pages)
	assert.Empty(t, result.Transitions.Gaps)
	assert.Len(t, result.Segments, 2)
	require.Len(t, result.TOC, 2)
	assert.Equal(t, "# Introduction", result.TOC[0].Title)
	assert.Equal(t, segment.ContentTypeHeading, result.TOC[0].ContentType)

	assert.Equal(t, "en", result.DominantLanguage())
	assert.True(t, result.SingleLanguage)
	assert.Equal(t, 2, result.Summary.TotalChunks)
	assert.False(t, result.CacheHit)
}

func TestPipeline_Process_NoMarkers(t *testing.T) {
	p := newTestPipeline(t, nil)

	result, err := p.Process(context.Background(), "doc.json",
		successResult("The cat and the dog sat in the garden."))
	require.NoError(t, err)

	require.Len(t, result.Chunks, 1)
	_, ok := result.Chunks[0].PageNumber()
	assert.False(t, ok)
}

func TestPipeline_Process_PreSegmentedChunks(t *testing.T) {
	p := newTestPipeline(t, nil)

	res := successResult("ignored content")
	res.Chunks = []string{"the first chunk of the report", "the second chunk of the report"}

	result, err := p.Process(context.Background(), "doc.json", res)
	require.NoError(t, err)

	require.Len(t, result.Chunks, 2)
	assert.Equal(t, "the first chunk of the report", result.Chunks[0].Text)
	assert.Equal(t, "the second chunk of the report", result.Chunks[1].Text)
}

func TestPipeline_Process_CacheRoundTrip(t *testing.T) {
	p := newTestPipeline(t, cache.NewMemoryClient(10))
	ctx := context.Background()

	first, err := p.Process(ctx, "doc.json", successResult(pagedContent))
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := p.Process(ctx, "doc.json", successResult(pagedContent))
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.JobID, second.JobID)

	require.Len(t, second.Chunks, 2)
	lang, ok := second.Chunks[0].Language()
	require.True(t, ok)
	assert.Equal(t, "en", lang)
	page, ok := second.Chunks[1].PageNumber()
	require.True(t, ok)
	assert.Equal(t, 2, page)
}

func TestPipeline_Process_CacheKeyChangesWithContent(t *testing.T) {
	p := newTestPipeline(t, cache.NewMemoryClient(10))
	ctx := context.Background()

	_, err := p.Process(ctx, "a.json", successResult("the cat and the dog in the garden"))
	require.NoError(t, err)

	other, err := p.Process(ctx, "b.json", successResult("the cat and the dog in the house"))
	require.NoError(t, err)
	assert.False(t, other.CacheHit)
}

func TestSplitByPages(t *testing.T) {
	t.Run("no markers", func(t *testing.T) {
		assert.Nil(t, splitByPages("plain text with no markers"))
	})

	t.Run("preamble before first marker", func(t *testing.T) {
		sections := splitByPages("cover text\n<!-- PAGE 3 -->\nbody text")
		require.Len(t, sections, 2)
		assert.Equal(t, 0, sections[0].page)
		assert.Equal(t, "cover text", sections[0].text)
		assert.Equal(t, 3, sections[1].page)
		assert.Equal(t, "body text", sections[1].text)
	})

	t.Run("heading form case insensitive", func(t *testing.T) {
		sections := splitByPages("## page 7\nsection body")
		require.Len(t, sections, 1)
		assert.Equal(t, 7, sections[0].page)
		assert.Equal(t, "section body", sections[0].text)
	})

	t.Run("empty sections dropped", func(t *testing.T) {
		sections := splitByPages("<!-- PAGE 1 -->\n\n<!-- PAGE 2 -->\ntext")
		require.Len(t, sections, 1)
		assert.Equal(t, 2, sections[0].page)
	})
}
