package segment

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// LanguageUnknown is the floor classification when no language clears the
// acceptance threshold.
const LanguageUnknown = "unknown"

// Detection thresholds. Both are heuristic defaults carried over from the
// reference behavior and overridable through DetectorConfig.
const (
	DefaultAcceptThreshold    = 0.3
	DefaultMinConfidence      = 0.7
	DefaultDominanceThreshold = 0.8
)

// Indicator is a per-language lexical indicator set: the marker tokens to
// count and the number of occurrences required for full confidence.
type Indicator struct {
	Patterns []string `yaml:"patterns" json:"patterns"`
	MinMatch int      `yaml:"min_match" json:"min_match"`
}

// LanguageScore is a (language code, confidence) pair with confidence on a
// 0-100 scale.
type LanguageScore struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// LanguageGroup is a partition of chunks sharing one detected language.
type LanguageGroup struct {
	Language string  `json:"language"`
	Chunks   []Chunk `json:"chunks"`
}

// LanguageStat reports chunk count and mean confidence for one language.
type LanguageStat struct {
	Language       string  `json:"language"`
	ChunkCount     int     `json:"chunk_count"`
	MeanConfidence float64 `json:"mean_confidence"`
}

// DetectorConfig configures a Detector. Zero-valued fields fall back to the
// shipped defaults.
type DetectorConfig struct {
	Indicators         map[string]Indicator
	AcceptThreshold    float64
	DominanceThreshold float64
}

// Detector estimates the dominant natural language of a text span by
// counting marker-token occurrences against per-language indicator sets.
// It is a coarse, deterministic heuristic; the single Detect entry point and
// injectable indicator table let a statistical model replace it without
// touching callers.
type Detector struct {
	patterns           map[string]map[string]struct{}
	minMatch           map[string]int
	acceptThreshold    float64
	dominanceThreshold float64
}

// Tokens are split on anything that is not a letter, digit or underscore.
var tokenSplitRe = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// NewDetector builds a detector from the given configuration.
func NewDetector(cfg DetectorConfig) *Detector {
	indicators := cfg.Indicators
	if len(indicators) == 0 {
		indicators = DefaultIndicators()
	}

	d := &Detector{
		patterns:           make(map[string]map[string]struct{}, len(indicators)),
		minMatch:           make(map[string]int, len(indicators)),
		acceptThreshold:    cfg.AcceptThreshold,
		dominanceThreshold: cfg.DominanceThreshold,
	}
	if d.acceptThreshold <= 0 {
		d.acceptThreshold = DefaultAcceptThreshold
	}
	if d.dominanceThreshold <= 0 {
		d.dominanceThreshold = DefaultDominanceThreshold
	}

	for lang, ind := range indicators {
		set := make(map[string]struct{}, len(ind.Patterns))
		for _, p := range ind.Patterns {
			set[strings.ToLower(p)] = struct{}{}
		}
		d.patterns[lang] = set
		minMatch := ind.MinMatch
		if minMatch < 1 {
			minMatch = 1
		}
		d.minMatch[lang] = minMatch
	}
	return d
}

// DefaultIndicators returns the shipped indicator table covering English,
// Spanish, French and German.
func DefaultIndicators() map[string]Indicator {
	return map[string]Indicator{
		"en": {
			Patterns: []string{"the", "and", "of", "to", "in", "is", "was", "for", "with", "that", "this", "are"},
			MinMatch: 5,
		},
		"es": {
			Patterns: []string{"el", "la", "los", "las", "de", "que", "y", "en", "un", "una", "es", "por", "con", "para"},
			MinMatch: 5,
		},
		"fr": {
			Patterns: []string{"le", "la", "les", "de", "et", "un", "une", "est", "dans", "que", "pour", "sur", "avec"},
			MinMatch: 5,
		},
		"de": {
			Patterns: []string{"der", "die", "das", "und", "ist", "nicht", "mit", "ein", "eine", "zu", "den", "von", "auf"},
			MinMatch: 5,
		},
	}
}

// Detect scores the text against every indicator set and returns the top
// language when its confidence strictly exceeds the acceptance threshold,
// otherwise ("unknown", 0.0). Empty text is always unknown. Confidence is
// reported on a 0-100 scale.
func (d *Detector) Detect(text string) LanguageScore {
	unknown := LanguageScore{Language: LanguageUnknown, Confidence: 0.0}
	if strings.TrimSpace(text) == "" {
		return unknown
	}

	tokens := tokenSplitRe.Split(strings.ToLower(text), -1)

	type ranked struct {
		lang       string
		confidence float64
	}
	scores := make([]ranked, 0, len(d.patterns))
	for lang, set := range d.patterns {
		matched := 0
		for _, tok := range tokens {
			if tok == "" {
				continue
			}
			if _, ok := set[tok]; ok {
				matched++
			}
		}
		confidence := math.Min(float64(matched)/float64(d.minMatch[lang]), 1.0)
		scores = append(scores, ranked{lang: lang, confidence: confidence})
	}
	if len(scores) == 0 {
		return unknown
	}

	// Rank by confidence descending; ties break on language code so the
	// result is deterministic regardless of map iteration order.
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].confidence != scores[j].confidence {
			return scores[i].confidence > scores[j].confidence
		}
		return scores[i].lang < scores[j].lang
	})

	top := scores[0]
	if top.confidence <= d.acceptThreshold {
		return unknown
	}
	return LanguageScore{Language: top.lang, Confidence: top.confidence * 100}
}

// DetectChunkLanguages annotates each chunk with its detected language and
// confidence (0-100 scale). Detection is deterministic, so repeated runs
// write identical values.
func (d *Detector) DetectChunkLanguages(chunks []Chunk) []Chunk {
	for _, ch := range chunks {
		score := d.Detect(ch.Text)
		ch.Metadata[MetaDetectedLanguage] = score.Language
		ch.Metadata[MetaLanguageConfidence] = score.Confidence
	}
	return chunks
}

// GroupByLanguage partitions chunks by detected language. Chunks without a
// language annotation are detected first. Partition order follows the first
// occurrence of each language; chunks keep their original order within a
// partition.
func (d *Detector) GroupByLanguage(chunks []Chunk) []LanguageGroup {
	d.ensureDetected(chunks)

	index := make(map[string]int)
	var groups []LanguageGroup
	for _, ch := range chunks {
		lang, _ := ch.Language()
		if lang == "" {
			lang = LanguageUnknown
		}
		i, ok := index[lang]
		if !ok {
			i = len(groups)
			index[lang] = i
			groups = append(groups, LanguageGroup{Language: lang})
		}
		groups[i].Chunks = append(groups[i].Chunks, ch)
	}
	return groups
}

// FilterByLanguage keeps chunks whose detected language equals target and
// whose confidence, normalized to 0-1, is at least minConfidence. A negative
// minConfidence selects the default of 0.7.
func (d *Detector) FilterByLanguage(chunks []Chunk, target string, minConfidence float64) []Chunk {
	if minConfidence < 0 {
		minConfidence = DefaultMinConfidence
	}
	d.ensureDetected(chunks)

	var out []Chunk
	for _, ch := range chunks {
		lang, _ := ch.Language()
		if lang != target {
			continue
		}
		confidence, _ := ch.Confidence()
		if confidence/100 >= minConfidence {
			out = append(out, ch)
		}
	}
	return out
}

// LanguageSummary reports chunk count and mean confidence (0-100 scale,
// rounded to 2 decimal places) per language, ordered by chunk count
// descending. Ties keep first-occurrence order.
func (d *Detector) LanguageSummary(chunks []Chunk) []LanguageStat {
	groups := d.GroupByLanguage(chunks)

	stats := make([]LanguageStat, 0, len(groups))
	for _, g := range groups {
		total := 0.0
		for _, ch := range g.Chunks {
			confidence, _ := ch.Confidence()
			total += confidence
		}
		mean := 0.0
		if len(g.Chunks) > 0 {
			mean = round2(total / float64(len(g.Chunks)))
		}
		stats = append(stats, LanguageStat{
			Language:       g.Language,
			ChunkCount:     len(g.Chunks),
			MeanConfidence: mean,
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].ChunkCount > stats[j].ChunkCount
	})
	return stats
}

// IsSingleLanguage reports whether the top language dominates the chunk set:
// its chunk count divided by the total must be at least threshold. A
// non-positive threshold selects the configured dominance default. Empty
// input is never single-language.
func (d *Detector) IsSingleLanguage(chunks []Chunk, threshold float64) bool {
	if threshold <= 0 {
		threshold = d.dominanceThreshold
	}

	stats := d.LanguageSummary(chunks)
	if len(stats) == 0 {
		return false
	}

	total := 0
	for _, s := range stats {
		total += s.ChunkCount
	}
	if total == 0 {
		return false
	}
	return float64(stats[0].ChunkCount)/float64(total) >= threshold
}

func (d *Detector) ensureDetected(chunks []Chunk) {
	for _, ch := range chunks {
		if _, ok := ch.Language(); !ok {
			score := d.Detect(ch.Text)
			ch.Metadata[MetaDetectedLanguage] = score.Language
			ch.Metadata[MetaLanguageConfidence] = score.Confidence
		}
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
