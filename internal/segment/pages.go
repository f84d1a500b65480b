package segment

import (
	"sort"
	"strings"
)

// PageSegment is a maximal run of consecutive chunks sharing one page
// number. Page is nil for runs of chunks that carry no page metadata.
type PageSegment struct {
	Page    *int    `json:"page"`
	Content string  `json:"content"`
	Chunks  []Chunk `json:"chunks"`
}

// PageGap marks two consecutive distinct page numbers differing by more
// than one.
type PageGap struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// PageTransitions summarizes the pages present in a chunk sequence.
type PageTransitions struct {
	Pages []int     `json:"pages"`
	Gaps  []PageGap `json:"gaps"`
}

// PageStats holds per-page chunk statistics.
type PageStats struct {
	ChunkCount      int `json:"chunk_count"`
	TotalTextLength int `json:"total_text_length"`
	AvgChunkSize    int `json:"avg_chunk_size"`
}

// TOCEntry is a table-of-contents line derived from the first chunk on a
// page.
type TOCEntry struct {
	Page        *int   `json:"page"`
	Title       string `json:"title"`
	ContentType string `json:"content_type"`
	ChunkIndex  int    `json:"chunk_index"`
}

// Content-type classifications for table-of-contents entries, evaluated in
// this priority order.
const (
	ContentTypeHeading = "heading"
	ContentTypeList    = "list"
	ContentTypeSnippet = "snippet"
	ContentTypeBody    = "body"
)

const tocTitleMaxLen = 100

// TrackPageBoundaries maps each page number to the ordered chunk indices on
// that page. Chunks without a page number are omitted.
func TrackPageBoundaries(chunks []Chunk) map[int][]int {
	boundaries := make(map[int][]int)
	for i, ch := range chunks {
		page, ok := ch.PageNumber()
		if !ok {
			continue
		}
		boundaries[page] = append(boundaries[page], i)
	}
	return boundaries
}

// IdentifySegments groups consecutive chunks sharing one page number in a
// single left-to-right scan. A page change always starts a new segment;
// a page number recurring after a gap never merges with its earlier segment.
func IdentifySegments(chunks []Chunk) []PageSegment {
	var segments []PageSegment

	for _, ch := range chunks {
		page := pagePtr(ch)
		if len(segments) == 0 || !samePage(segments[len(segments)-1].Page, page) {
			segments = append(segments, PageSegment{Page: page})
		}
		seg := &segments[len(segments)-1]
		seg.Chunks = append(seg.Chunks, ch)
	}

	for i := range segments {
		texts := make([]string, len(segments[i].Chunks))
		for j, ch := range segments[i].Chunks {
			texts[j] = ch.Text
		}
		segments[i].Content = strings.Join(texts, " ")
	}
	return segments
}

// AnalyzeTransitions returns the sorted set of distinct page numbers plus
// the gaps between consecutive distinct pages differing by more than 1.
func AnalyzeTransitions(chunks []Chunk) PageTransitions {
	seen := make(map[int]struct{})
	for _, ch := range chunks {
		if page, ok := ch.PageNumber(); ok {
			seen[page] = struct{}{}
		}
	}

	pages := make([]int, 0, len(seen))
	for page := range seen {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	var gaps []PageGap
	for i := 1; i < len(pages); i++ {
		if pages[i]-pages[i-1] > 1 {
			gaps = append(gaps, PageGap{From: pages[i-1], To: pages[i]})
		}
	}
	return PageTransitions{Pages: pages, Gaps: gaps}
}

// PageStatistics computes per-page chunk count, total text length and
// floor-average chunk size.
func PageStatistics(chunks []Chunk) map[int]PageStats {
	stats := make(map[int]PageStats)
	for _, ch := range chunks {
		page, ok := ch.PageNumber()
		if !ok {
			continue
		}
		s := stats[page]
		s.ChunkCount++
		s.TotalTextLength += len([]rune(ch.Text))
		stats[page] = s
	}
	for page, s := range stats {
		if s.ChunkCount > 0 {
			s.AvgChunkSize = s.TotalTextLength / s.ChunkCount
		}
		stats[page] = s
	}
	return stats
}

// ExtractPageRange returns the chunks whose page number falls within
// [start, end] inclusive. Chunks with no page number are excluded.
func ExtractPageRange(chunks []Chunk, start, end int) []Chunk {
	var out []Chunk
	for _, ch := range chunks {
		page, ok := ch.PageNumber()
		if !ok {
			continue
		}
		if page >= start && page <= end {
			out = append(out, ch)
		}
	}
	return out
}

// AddPageMarkers re-derives segments and writes positional page metadata
// into each member chunk: page_number, is_first_on_page, is_last_on_page and
// the 1-based position_on_page rank.
func AddPageMarkers(chunks []Chunk) []Chunk {
	segments := IdentifySegments(chunks)
	for _, seg := range segments {
		for i, ch := range seg.Chunks {
			if seg.Page != nil {
				ch.Metadata[MetaPageNumber] = *seg.Page
			}
			ch.Metadata[MetaIsFirstOnPage] = i == 0
			ch.Metadata[MetaIsLastOnPage] = i == len(seg.Chunks)-1
			ch.Metadata[MetaPositionOnPage] = i + 1
		}
	}
	return chunks
}

// CreateTableOfContents marks page positions and derives one entry per
// segment-leading chunk: the first non-blank line of its text, truncated to
// 100 characters, with a coarse content-type classification.
func CreateTableOfContents(chunks []Chunk) []TOCEntry {
	chunks = AddPageMarkers(chunks)

	var toc []TOCEntry
	for i, ch := range chunks {
		if !metaBool(ch.Metadata, MetaIsFirstOnPage) {
			continue
		}
		line := firstNonBlankLine(ch.Text)
		toc = append(toc, TOCEntry{
			Page:        pagePtr(ch),
			Title:       truncateTitle(line),
			ContentType: classifyContent(line),
			ChunkIndex:  i,
		})
	}
	return toc
}

func firstNonBlankLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func truncateTitle(line string) string {
	runes := []rune(line)
	if len(runes) <= tocTitleMaxLen {
		return line
	}
	return string(runes[:tocTitleMaxLen]) + "..."
}

// classifyContent checks heading, then list, then length, in that order.
func classifyContent(line string) string {
	switch {
	case strings.Contains(line, "#") || strings.Contains(line, "==="):
		return ContentTypeHeading
	case strings.ContainsAny(line, "-*•"):
		return ContentTypeList
	case len([]rune(line)) < tocTitleMaxLen:
		return ContentTypeSnippet
	default:
		return ContentTypeBody
	}
}

func pagePtr(ch Chunk) *int {
	if page, ok := ch.PageNumber(); ok {
		return &page
	}
	return nil
}

func samePage(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
