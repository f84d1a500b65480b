package segment

import "fmt"

// ConfigError reports invalid chunking parameters. It is the only error the
// segmentation core produces; every other operation is total over its input.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid chunker config: %s: %s", e.Field, e.Reason)
}

// Chunker splits document text into bounded-size chunks with a fixed
// character overlap between consecutive chunks. Sizes are measured in runes
// so multi-byte text never splits mid-character.
type Chunker struct {
	maxChars int
	overlap  int
}

// NewChunker validates the chunking parameters. Overlap must be strictly
// smaller than the maximum chunk size.
func NewChunker(maxChars, overlap int) (*Chunker, error) {
	if maxChars <= 0 {
		return nil, &ConfigError{Field: "max_characters", Reason: fmt.Sprintf("must be positive, got %d", maxChars)}
	}
	if overlap < 0 {
		return nil, &ConfigError{Field: "overlap", Reason: fmt.Sprintf("must be non-negative, got %d", overlap)}
	}
	if overlap >= maxChars {
		return nil, &ConfigError{Field: "overlap", Reason: fmt.Sprintf("must be smaller than max_characters (%d >= %d)", overlap, maxChars)}
	}
	return &Chunker{maxChars: maxChars, overlap: overlap}, nil
}

// MaxChars returns the configured maximum chunk size.
func (c *Chunker) MaxChars() int { return c.maxChars }

// Overlap returns the configured overlap size.
func (c *Chunker) Overlap() int { return c.overlap }

// Split cuts text into chunks of at most maxChars runes where every chunk
// after the first starts with the last overlap runes of its predecessor.
// Stripping that prefix from each chunk after the first and concatenating
// reproduces the input exactly. Empty input yields an empty sequence.
func (c *Chunker) Split(text string) []Chunk {
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= c.maxChars {
		return []Chunk{NewChunk(text)}
	}

	step := c.maxChars - c.overlap
	chunks := make([]Chunk, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + c.maxChars
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, NewChunk(string(runes[start:end])))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// Reassemble is the inverse of Split: it trims the overlap prefix from every
// chunk after the first and concatenates the remainders.
func (c *Chunker) Reassemble(chunks []Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	out := make([]rune, 0)
	out = append(out, []rune(chunks[0].Text)...)
	for _, ch := range chunks[1:] {
		runes := []rune(ch.Text)
		if len(runes) <= c.overlap {
			continue
		}
		out = append(out, runes[c.overlap:]...)
	}
	return string(out)
}
