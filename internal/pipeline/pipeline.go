// Package pipeline orchestrates the segmentation stages over one extraction
// result: chunking, page boundary tracking, language detection and metadata
// enrichment.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/segmenta-ai/segment-engine/internal/cache"
	"github.com/segmenta-ai/segment-engine/internal/config"
	"github.com/segmenta-ai/segment-engine/internal/extraction"
	"github.com/segmenta-ai/segment-engine/internal/observability"
	"github.com/segmenta-ai/segment-engine/internal/segment"
)

// pageMarkerRe matches the page markers emitted by upstream extractors:
// either an HTML comment form or a markdown heading form.
var pageMarkerRe = regexp.MustCompile(`(?i)(?:<!--\s*PAGE\s*(\d+)\s*-->|##\s*Page\s*(\d+)\b)`)

// Result is the full output of one pipeline run.
type Result struct {
	JobID          uuid.UUID                       `json:"job_id"`
	SourceFile     string                          `json:"source_file"`
	MimeType       string                          `json:"mime_type,omitempty"`
	Chunks         []segment.Chunk                 `json:"chunks"`
	Segments       []segment.PageSegment           `json:"segments"`
	Transitions    segment.PageTransitions         `json:"transitions"`
	TOC            []segment.TOCEntry              `json:"toc"`
	Languages      []segment.LanguageStat          `json:"languages"`
	Summary        segment.DocumentMetadataSummary `json:"summary"`
	SingleLanguage bool                            `json:"single_language"`
	DurationMS     int64                           `json:"duration_ms"`
	CacheHit       bool                            `json:"-"`
}

// DominantLanguage returns the most frequent detected language, or unknown
// when nothing was detected.
func (r *Result) DominantLanguage() string {
	if len(r.Languages) == 0 {
		return segment.LanguageUnknown
	}
	return r.Languages[0].Language
}

// Pipeline chains the segmentation stages. It is safe for concurrent use;
// every run works on its own chunk slice.
type Pipeline struct {
	chunker     *segment.Chunker
	detector    *segment.Detector
	cache       cache.Client
	cacheTTL    time.Duration
	logger      *observability.Logger
	fingerprint string
}

// New builds a pipeline from configuration. The cache client may be nil, in
// which case every run recomputes.
func New(cfg *config.Config, logger *observability.Logger, cacheClient cache.Client) (*Pipeline, error) {
	chunker, err := segment.NewChunker(cfg.Chunking.MaxCharacters, cfg.Chunking.Overlap)
	if err != nil {
		return nil, fmt.Errorf("configure chunker: %w", err)
	}

	indicators, err := cfg.DetectorIndicators()
	if err != nil {
		return nil, fmt.Errorf("load language indicators: %w", err)
	}
	detector := segment.NewDetector(segment.DetectorConfig{
		Indicators:         indicators,
		AcceptThreshold:    cfg.Detector.AcceptThreshold,
		DominanceThreshold: cfg.Detector.DominanceThreshold,
	})

	return &Pipeline{
		chunker:     chunker,
		detector:    detector,
		cache:       cacheClient,
		cacheTTL:    cfg.Cache.TTL,
		logger:      logger,
		fingerprint: configFingerprint(cfg, indicators),
	}, nil
}

// Process runs all stages over one extraction result. Results are cached
// keyed by content hash and pipeline configuration, so a re-run of an
// unchanged document under unchanged settings is a cache lookup.
func (p *Pipeline) Process(ctx context.Context, sourceFile string, res *extraction.Result) (*Result, error) {
	if err := res.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	log := p.logger.WithDocument(sourceFile)

	key := p.cacheKey(res)
	if cached := p.lookupCache(ctx, key, log); cached != nil {
		cached.SourceFile = sourceFile
		return cached, nil
	}

	chunks := p.buildChunks(res)
	chunks = segment.AddPageMarkers(chunks)
	chunks = p.detector.DetectChunkLanguages(chunks)
	chunks = segment.EnrichChunksMetadata(chunks, segment.ExtractStandardMetadata(res.Metadata))
	chunks = segment.ExtractChunkContext(chunks)

	languages := p.detector.LanguageSummary(chunks)
	result := &Result{
		JobID:          uuid.New(),
		SourceFile:     sourceFile,
		MimeType:       res.MimeType,
		Chunks:         chunks,
		Segments:       segment.IdentifySegments(chunks),
		Transitions:    segment.AnalyzeTransitions(chunks),
		TOC:            segment.CreateTableOfContents(chunks),
		Languages:      languages,
		Summary:        segment.MetadataSummary(chunks),
		SingleLanguage: p.detector.IsSingleLanguage(chunks, 0),
		DurationMS:     time.Since(started).Milliseconds(),
	}

	p.storeCache(ctx, key, result, log)

	log.Info().
		Str("job_id", result.JobID.String()).
		Int("chunks", len(result.Chunks)).
		Int("segments", len(result.Segments)).
		Str("dominant_language", result.DominantLanguage()).
		Str("enrichment", result.Summary.EnrichmentLevel).
		Int64("duration_ms", result.DurationMS).
		Msg("pipeline run completed")

	return result, nil
}

// buildChunks prefers pre-segmented upstream chunks; otherwise the content
// is split page by page so page numbers survive chunking, falling back to a
// plain split when no page markers are present.
func (p *Pipeline) buildChunks(res *extraction.Result) []segment.Chunk {
	if len(res.Chunks) > 0 {
		chunks := make([]segment.Chunk, 0, len(res.Chunks))
		for _, text := range res.Chunks {
			chunks = append(chunks, segment.NewChunk(text))
		}
		return chunks
	}

	sections := splitByPages(res.Content)
	if sections == nil {
		return p.chunker.Split(res.Content)
	}

	var chunks []segment.Chunk
	for _, sec := range sections {
		for _, ch := range p.chunker.Split(sec.text) {
			if sec.page > 0 {
				ch.Metadata[segment.MetaPageNumber] = sec.page
			}
			chunks = append(chunks, ch)
		}
	}
	return chunks
}

type pageSection struct {
	page int // 0 means no page number
	text string
}

// splitByPages cuts content at page markers. Returns nil when the content
// carries no markers. Text before the first marker becomes an unnumbered
// preamble section.
func splitByPages(content string) []pageSection {
	matches := pageMarkerRe.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return nil
	}

	var sections []pageSection
	appendSection := func(page int, text string) {
		if text = strings.TrimSpace(text); text != "" {
			sections = append(sections, pageSection{page: page, text: text})
		}
	}

	appendSection(0, content[:matches[0][0]])
	for i, m := range matches {
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		appendSection(markerPage(content, m), content[m[1]:end])
	}
	return sections
}

// markerPage pulls the page number out of whichever alternative matched.
func markerPage(content string, m []int) int {
	for _, group := range []int{2, 4} {
		if m[group] >= 0 {
			n, err := strconv.Atoi(content[m[group]:m[group+1]])
			if err == nil {
				return n
			}
		}
	}
	return 0
}

// cacheKey hashes the result content, any pre-segmented chunks and the
// pipeline configuration fingerprint.
func (p *Pipeline) cacheKey(res *extraction.Result) string {
	h := sha256.New()
	h.Write([]byte(res.Content))
	for _, ch := range res.Chunks {
		h.Write([]byte{0})
		h.Write([]byte(ch))
	}
	h.Write([]byte{0})
	h.Write([]byte(p.fingerprint))
	return "run:" + hex.EncodeToString(h.Sum(nil))
}

func (p *Pipeline) lookupCache(ctx context.Context, key string, log *observability.Logger) *Result {
	if p.cache == nil {
		return nil
	}
	data, err := p.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Msg("cache lookup failed")
		}
		return nil
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		log.Warn().Err(err).Msg("cached result corrupt, recomputing")
		return nil
	}
	result.CacheHit = true
	log.Debug().Str("key", key).Msg("cache hit")
	return &result
}

func (p *Pipeline) storeCache(ctx context.Context, key string, result *Result, log *observability.Logger) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		log.Warn().Err(err).Msg("result not cacheable")
		return
	}
	if err := p.cache.Set(ctx, key, data, p.cacheTTL); err != nil {
		log.Warn().Err(err).Msg("cache store failed")
	}
}

func configFingerprint(cfg *config.Config, indicators map[string]segment.Indicator) string {
	langs := make([]string, 0, len(indicators))
	for lang := range indicators {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	return fmt.Sprintf("v1:%d:%d:%g:%g:%s",
		cfg.Chunking.MaxCharacters, cfg.Chunking.Overlap,
		cfg.Detector.AcceptThreshold, cfg.Detector.DominanceThreshold,
		strings.Join(langs, ","),
	)
}
