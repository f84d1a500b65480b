package segment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segmenta-ai/segment-engine/internal/extraction"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

// chunkWithFields builds a chunk carrying exactly n metadata fields.
func chunkWithFields(text string, n int) Chunk {
	ch := NewChunk(text)
	for i := 0; i < n; i++ {
		ch.Metadata[string(rune('a'+i))] = i
	}
	return ch
}

func TestExtractStandardMetadata_Defaults(t *testing.T) {
	out := ExtractStandardMetadata(extraction.DocumentMetadata{})

	assert.Equal(t, "Unknown", out["title"])
	assert.Equal(t, "Unknown", out["author"])
	assert.Equal(t, 0, out["page_count"])
	assert.Equal(t, "unknown", out["format"])

	// Absent language and dates are omitted, not defaulted.
	assert.NotContains(t, out, "language")
	assert.NotContains(t, out, "created_at")
	assert.NotContains(t, out, "modified_at")
}

func TestExtractStandardMetadata_PresentFields(t *testing.T) {
	meta := extraction.DocumentMetadata{
		Title:     strPtr("Annual Report"),
		Author:    strPtr("J. Circuit"),
		Language:  strPtr("en"),
		PageCount: intPtr(12),
		Format:    strPtr("pdf"),
		CreatedAt: strPtr("2024-03-01"),
	}

	out := ExtractStandardMetadata(meta)
	assert.Equal(t, "Annual Report", out["title"])
	assert.Equal(t, "J. Circuit", out["author"])
	assert.Equal(t, "en", out["language"])
	assert.Equal(t, 12, out["page_count"])
	assert.Equal(t, "pdf", out["format"])
	assert.Equal(t, "2024-03-01", out["created_at"])
}

func TestMergeMetadata_CollisionsAccumulate(t *testing.T) {
	merged := MergeMetadata([]map[string]any{
		{"title": "Doc A", "author": "Alice"},
		{"title": "Doc B", "pages": 4},
		{"title": "Doc C"},
	})

	assert.Equal(t, []any{"Doc A", "Doc B", "Doc C"}, merged["title"])
	assert.Equal(t, "Alice", merged["author"])
	assert.Equal(t, 4, merged["pages"])
}

func TestEnrichChunksMetadata_ChunkOverridesWin(t *testing.T) {
	ch := NewChunk("text")
	ch.Metadata["title"] = "chunk title"

	EnrichChunksMetadata([]Chunk{ch}, map[string]any{
		"title":  "doc title",
		"author": "doc author",
		"empty":  nil,
	})

	assert.Equal(t, "chunk title", ch.Metadata["title"])
	assert.Equal(t, "doc author", ch.Metadata["author"])
	assert.NotContains(t, ch.Metadata, "empty", "nil source fields are skipped")
}

func TestExtractChunkContext(t *testing.T) {
	chunks := []Chunk{
		NewChunk("# Heading\nsome words here"),
		NewChunk("- item one\n- item two"),
		NewChunk("plain closing text"),
	}

	ExtractChunkContext(chunks)

	assert.Equal(t, 0, chunks[0].Metadata[MetaChunkIndex])
	assert.Equal(t, 1, chunks[0].Metadata[MetaChunkNumber])
	assert.Equal(t, 3, chunks[0].Metadata[MetaTotalChunks])
	assert.Equal(t, 33.33, chunks[0].Metadata[MetaPositionPercent])
	assert.Equal(t, 100.0, chunks[2].Metadata[MetaPositionPercent])

	assert.Equal(t, true, chunks[0].Metadata[MetaHasHeadings])
	assert.Equal(t, false, chunks[0].Metadata[MetaHasLists])
	assert.Equal(t, true, chunks[1].Metadata[MetaHasLists])
	assert.Equal(t, false, chunks[2].Metadata[MetaHasHeadings])

	assert.Equal(t, 4, chunks[1].Metadata[MetaWordCount])
	assert.Equal(t, len("plain closing text"), chunks[2].Metadata[MetaTextLength])
}

func TestMetadataSummary_AverageIsFloored(t *testing.T) {
	chunks := []Chunk{
		NewChunk(strings.Repeat("a", 400)),
		NewChunk(strings.Repeat("b", 450)),
		NewChunk(strings.Repeat("c", 100)),
	}

	summary := MetadataSummary(chunks)
	assert.Equal(t, 3, summary.TotalChunks)
	assert.Equal(t, 950, summary.TotalTextLength)
	assert.Equal(t, 316, summary.AvgChunkSize)
}

func TestMetadataSummary_EnrichmentBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		fields []int
		level  string
	}{
		{"exactly five average", []int{5, 5}, EnrichmentHigh},
		{"exactly two average", []int{2, 2}, EnrichmentMedium},
		{"one average", []int{1, 1}, EnrichmentLow},
		{"mixed above five", []int{7, 3}, EnrichmentHigh},
		{"mixed below two", []int{1, 2}, EnrichmentLow},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			chunks := make([]Chunk, len(tc.fields))
			for i, n := range tc.fields {
				chunks[i] = chunkWithFields("text", n)
			}
			assert.Equal(t, tc.level, MetadataSummary(chunks).EnrichmentLevel)
		})
	}
}

func TestMetadataSummary_Empty(t *testing.T) {
	summary := MetadataSummary(nil)
	assert.Equal(t, 0, summary.TotalChunks)
	assert.Equal(t, 0, summary.AvgChunkSize)
	assert.Equal(t, EnrichmentLow, summary.EnrichmentLevel)
	assert.Empty(t, summary.MetadataFields)
}

func TestMetadataSummary_FieldNameUnion(t *testing.T) {
	a := NewChunk("a")
	a.Metadata["alpha"] = 1
	b := NewChunk("b")
	b.Metadata["beta"] = 2
	b.Metadata["alpha"] = 3

	summary := MetadataSummary([]Chunk{a, b})
	assert.Equal(t, []string{"alpha", "beta"}, summary.MetadataFields)
}

func TestGenerateReport(t *testing.T) {
	meta := extraction.DocumentMetadata{
		Title:     strPtr("Field Manual"),
		PageCount: intPtr(3),
	}
	chunks := pagedChunks(1, 2, 4)
	ExtractChunkContext(chunks)

	report := GenerateReport(meta, chunks)
	assert.Contains(t, report, "Document Report")
	assert.Contains(t, report, "Field Manual")
	assert.Contains(t, report, "Unknown", "missing author gets a default")
	assert.Contains(t, report, "2->4", "page gap rendered")
	assert.Contains(t, report, "Enrichment")
}

func TestEndToEnd_ChunkStatsThroughSummary(t *testing.T) {
	chunker, err := NewChunker(500, 0)
	require.NoError(t, err)

	text := strings.Repeat("q", 400) + strings.Repeat("r", 450) + strings.Repeat("s", 100)
	// Single split would produce 500-char chunks; build the exact shape the
	// upstream pre-segmentation would hand over instead.
	chunks := []Chunk{
		NewChunk(strings.Repeat("q", 400)),
		NewChunk(strings.Repeat("r", 450)),
		NewChunk(strings.Repeat("s", 100)),
	}
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Text), chunker.MaxChars())
	}
	require.Equal(t, len(text), 950)

	summary := MetadataSummary(chunks)
	assert.Equal(t, 950, summary.TotalTextLength)
	assert.Equal(t, 316, summary.AvgChunkSize)
}
