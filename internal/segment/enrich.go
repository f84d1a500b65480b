package segment

import (
	"fmt"
	"sort"
	"strings"

	"github.com/segmenta-ai/segment-engine/internal/extraction"
)

// Enrichment level classifications based on the mean metadata field count
// per chunk.
const (
	EnrichmentLow    = "low"
	EnrichmentMedium = "medium"
	EnrichmentHigh   = "high"
)

// DocumentMetadataSummary aggregates a chunk sequence: counts, sizes, the
// set of metadata field names observed and a coarse enrichment level.
type DocumentMetadataSummary struct {
	TotalChunks     int      `json:"total_chunks"`
	TotalTextLength int      `json:"total_text_length"`
	AvgChunkSize    int      `json:"avg_chunk_size"`
	MetadataFields  []string `json:"metadata_fields"`
	EnrichmentLevel string   `json:"enrichment_level"`
}

// ExtractStandardMetadata projects the fixed field set out of document
// metadata. Missing title, author, format and page count get explicit
// defaults; absent language and dates are omitted rather than defaulted.
func ExtractStandardMetadata(meta extraction.DocumentMetadata) map[string]any {
	out := map[string]any{
		"title":      "Unknown",
		"author":     "Unknown",
		"page_count": 0,
		"format":     "unknown",
	}
	if meta.Title != nil {
		out["title"] = *meta.Title
	}
	if meta.Author != nil {
		out["author"] = *meta.Author
	}
	if meta.PageCount != nil {
		out["page_count"] = *meta.PageCount
	}
	if meta.Format != nil {
		out["format"] = *meta.Format
	}
	if meta.Language != nil {
		out["language"] = *meta.Language
	}
	if meta.CreatedAt != nil {
		out["created_at"] = *meta.CreatedAt
	}
	if meta.ModifiedAt != nil {
		out["modified_at"] = *meta.ModifiedAt
	}
	return out
}

// MergeMetadata folds metadata maps from multiple extraction results into
// one. A key seen in more than one map accumulates its values into a list in
// document order; keys seen once keep their scalar value.
func MergeMetadata(docs []map[string]any) map[string]any {
	merged := make(map[string]any)
	collided := make(map[string]bool)

	for _, doc := range docs {
		keys := make([]string, 0, len(doc))
		for k := range doc {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			v := doc[k]
			existing, seen := merged[k]
			switch {
			case !seen:
				merged[k] = v
			case collided[k]:
				merged[k] = append(existing.([]any), v)
			default:
				merged[k] = []any{existing, v}
				collided[k] = true
			}
		}
	}
	return merged
}

// EnrichChunksMetadata copies every non-nil source field into each chunk's
// metadata. Source fields are the base; values already present on a chunk
// win on key collision.
func EnrichChunksMetadata(chunks []Chunk, source map[string]any) []Chunk {
	for _, ch := range chunks {
		for k, v := range source {
			if v == nil {
				continue
			}
			if _, exists := ch.Metadata[k]; exists {
				continue
			}
			ch.Metadata[k] = v
		}
	}
	return chunks
}

// ExtractChunkContext writes positional context into each chunk: index,
// 1-based number, total count, position percentage (2 decimal places), text
// length, word count and two structural hints.
func ExtractChunkContext(chunks []Chunk) []Chunk {
	total := len(chunks)
	for i, ch := range chunks {
		ch.Metadata[MetaChunkIndex] = i
		ch.Metadata[MetaChunkNumber] = i + 1
		ch.Metadata[MetaTotalChunks] = total
		ch.Metadata[MetaPositionPercent] = round2(float64(i+1) / float64(total) * 100)
		ch.Metadata[MetaTextLength] = len([]rune(ch.Text))
		ch.Metadata[MetaWordCount] = len(strings.Fields(ch.Text))
		ch.Metadata[MetaHasHeadings] = hasHeadings(ch.Text)
		ch.Metadata[MetaHasLists] = hasLists(ch.Text)
	}
	return chunks
}

// MetadataSummary aggregates the chunk sequence per the document summary
// contract: floor-average chunk size, the union of metadata field names and
// an enrichment level derived from the mean field count per chunk
// (>=5 high, >=2 medium, else low).
func MetadataSummary(chunks []Chunk) DocumentMetadataSummary {
	summary := DocumentMetadataSummary{
		TotalChunks:     len(chunks),
		EnrichmentLevel: EnrichmentLow,
		MetadataFields:  []string{},
	}

	fieldSet := make(map[string]struct{})
	totalFields := 0
	for _, ch := range chunks {
		summary.TotalTextLength += len([]rune(ch.Text))
		totalFields += len(ch.Metadata)
		for k := range ch.Metadata {
			fieldSet[k] = struct{}{}
		}
	}

	for k := range fieldSet {
		summary.MetadataFields = append(summary.MetadataFields, k)
	}
	sort.Strings(summary.MetadataFields)

	if len(chunks) == 0 {
		return summary
	}

	summary.AvgChunkSize = summary.TotalTextLength / len(chunks)

	meanFields := float64(totalFields) / float64(len(chunks))
	switch {
	case meanFields >= 5:
		summary.EnrichmentLevel = EnrichmentHigh
	case meanFields >= 2:
		summary.EnrichmentLevel = EnrichmentMedium
	}
	return summary
}

// GenerateReport renders a human-readable multi-section report combining
// standard metadata, chunk statistics and the metadata summary.
func GenerateReport(meta extraction.DocumentMetadata, chunks []Chunk) string {
	standard := ExtractStandardMetadata(meta)
	summary := MetadataSummary(chunks)
	transitions := AnalyzeTransitions(chunks)

	var b strings.Builder
	b.WriteString("Document Report\n")
	b.WriteString("===============\n\n")

	b.WriteString("Metadata\n--------\n")
	for _, key := range []string{"title", "author", "format", "page_count", "language", "created_at", "modified_at"} {
		if v, ok := standard[key]; ok {
			fmt.Fprintf(&b, "%-14s %v\n", key+":", v)
		}
	}

	b.WriteString("\nChunks\n------\n")
	fmt.Fprintf(&b, "%-14s %d\n", "count:", summary.TotalChunks)
	fmt.Fprintf(&b, "%-14s %d\n", "total length:", summary.TotalTextLength)
	fmt.Fprintf(&b, "%-14s %d\n", "avg size:", summary.AvgChunkSize)
	if len(transitions.Pages) > 0 {
		fmt.Fprintf(&b, "%-14s %d\n", "pages:", len(transitions.Pages))
		if len(transitions.Gaps) > 0 {
			parts := make([]string, len(transitions.Gaps))
			for i, gap := range transitions.Gaps {
				parts[i] = fmt.Sprintf("%d->%d", gap.From, gap.To)
			}
			fmt.Fprintf(&b, "%-14s %s\n", "page gaps:", strings.Join(parts, ", "))
		}
	}

	b.WriteString("\nEnrichment\n----------\n")
	fmt.Fprintf(&b, "%-14s %s\n", "level:", summary.EnrichmentLevel)
	fmt.Fprintf(&b, "%-14s %s\n", "fields:", strings.Join(summary.MetadataFields, ", "))

	return b.String()
}

func hasHeadings(text string) bool {
	return strings.Contains(text, "#") || strings.Contains(text, "===")
}

func hasLists(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "*") {
			return true
		}
	}
	return false
}
