// Package segment implements the post-extraction text segmentation and
// enrichment pipeline: chunking, page boundary tracking, language detection
// and metadata enrichment over in-memory chunk sequences.
package segment

// Metadata keys written by the pipeline stages. Stages accumulate
// annotations under these keys without knowing about each other.
const (
	MetaPageNumber         = "page_number"
	MetaIsFirstOnPage      = "is_first_on_page"
	MetaIsLastOnPage       = "is_last_on_page"
	MetaPositionOnPage     = "position_on_page"
	MetaDetectedLanguage   = "detected_language"
	MetaLanguageConfidence = "language_confidence"
	MetaChunkIndex         = "chunk_index"
	MetaChunkNumber        = "chunk_number"
	MetaTotalChunks        = "total_chunks"
	MetaPositionPercent    = "position_percent"
	MetaTextLength         = "text_length"
	MetaWordCount          = "word_count"
	MetaHasHeadings        = "has_headings"
	MetaHasLists           = "has_lists"
)

// Chunk is a bounded text segment with accumulating metadata. Text is set
// once at creation; later stages only extend Metadata.
type Chunk struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// NewChunk creates a chunk with an empty metadata map.
func NewChunk(text string) Chunk {
	return Chunk{
		Text:     text,
		Metadata: make(map[string]any),
	}
}

// PageNumber returns the chunk's page number, if one has been assigned.
func (c Chunk) PageNumber() (int, bool) {
	return metaInt(c.Metadata, MetaPageNumber)
}

// Language returns the detected language code, if detection has run.
func (c Chunk) Language() (string, bool) {
	v, ok := c.Metadata[MetaDetectedLanguage]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Confidence returns the detection confidence on the stored 0-100 scale.
func (c Chunk) Confidence() (float64, bool) {
	return metaFloat(c.Metadata, MetaLanguageConfidence)
}

// metaInt reads an integer metadata value. Values that round-tripped
// through JSON arrive as float64, so both representations are accepted.
func metaInt(m map[string]any, key string) (int, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func metaFloat(m map[string]any, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func metaBool(m map[string]any, key string) bool {
	v, ok := m[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
