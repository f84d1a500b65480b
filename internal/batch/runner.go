// Package batch runs the segmentation pipeline over many extraction results
// with a bounded worker pool, optionally persisting runs and publishing
// completion events.
package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/segmenta-ai/segment-engine/internal/cache"
	"github.com/segmenta-ai/segment-engine/internal/extraction"
	"github.com/segmenta-ai/segment-engine/internal/observability"
	"github.com/segmenta-ai/segment-engine/internal/pipeline"
	"github.com/segmenta-ai/segment-engine/internal/storage"
)

// CompletionChannel is the event channel batch completions are published to
// when a publisher is configured.
const CompletionChannel = "runs.completed"

// Outcome is the per-file result of a batch run. Err is set when the file
// could not be loaded or processed; Result is set otherwise.
type Outcome struct {
	Path   string
	Result *pipeline.Result
	RunID  uuid.UUID
	Err    error
}

// CompletionEvent is the payload published for every persisted run.
type CompletionEvent struct {
	RunID            uuid.UUID `json:"run_id"`
	SourceFile       string    `json:"source_file"`
	ChunkCount       int       `json:"chunk_count"`
	DominantLanguage string    `json:"dominant_language"`
	Status           string    `json:"status"`
}

// Option configures a Runner.
type Option func(*Runner)

// WithRepositories enables run persistence.
func WithRepositories(repos *storage.Repositories) Option {
	return func(r *Runner) { r.repos = repos }
}

// WithPublisher enables completion events.
func WithPublisher(pub cache.Publisher) Option {
	return func(r *Runner) { r.publisher = pub }
}

// WithProgress registers a callback invoked after every finished job, in
// completion order.
func WithProgress(fn func(Outcome)) Option {
	return func(r *Runner) { r.onOutcome = fn }
}

// Runner fans extraction result files out over a fixed pool of workers.
type Runner struct {
	pipe      *pipeline.Pipeline
	logger    *observability.Logger
	workers   int
	repos     *storage.Repositories
	publisher cache.Publisher
	onOutcome func(Outcome)
}

// NewRunner creates a batch runner. Workers below one are clamped to one.
func NewRunner(pipe *pipeline.Pipeline, logger *observability.Logger, workers int, opts ...Option) *Runner {
	if workers < 1 {
		workers = 1
	}
	r := &Runner{
		pipe:    pipe,
		logger:  logger,
		workers: workers,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes every path and returns outcomes in input order. Individual
// job failures are reported in their outcome; Run itself only fails when the
// context is cancelled.
func (r *Runner) Run(ctx context.Context, paths []string) ([]Outcome, error) {
	outcomes := make([]Outcome, len(paths))
	jobs := make(chan int)

	var wg sync.WaitGroup
	var mu sync.Mutex
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outcome := r.runOne(ctx, paths[idx])
				outcomes[idx] = outcome
				if r.onOutcome != nil {
					mu.Lock()
					r.onOutcome(outcome)
					mu.Unlock()
				}
			}
		}()
	}

	var cancelled error
dispatch:
	for idx := range paths {
		select {
		case jobs <- idx:
		case <-ctx.Done():
			cancelled = ctx.Err()
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	return outcomes, cancelled
}

func (r *Runner) runOne(ctx context.Context, path string) Outcome {
	log := r.logger.WithDocument(path)

	res, err := extraction.LoadResult(path)
	if err != nil {
		log.Error().Err(err).Msg("load failed")
		return Outcome{Path: path, Err: err}
	}

	record := r.startRecord(ctx, path, res, log)

	result, err := r.pipe.Process(ctx, path, res)
	outcome := Outcome{Path: path, Result: result, Err: err}
	if record != nil {
		outcome.RunID = record.ID
		r.finishRecord(ctx, record, result, err, log)
	}
	if err != nil {
		log.Error().Err(err).Msg("processing failed")
		return outcome
	}

	r.publish(ctx, record, result, log)
	return outcome
}

// startRecord inserts a running record when persistence is enabled.
func (r *Runner) startRecord(ctx context.Context, path string, res *extraction.Result, log *observability.Logger) *storage.RunRecord {
	if r.repos == nil {
		return nil
	}

	sum := sha256.Sum256([]byte(res.Content))
	record := &storage.RunRecord{
		SourceFile:    path,
		ContentSHA256: hex.EncodeToString(sum[:]),
		Status:        storage.RunStatusRunning,
		StartedAt:     time.Now(),
	}
	if res.MimeType != "" {
		record.MimeType = &res.MimeType
	}
	if err := r.repos.Runs.Create(ctx, record); err != nil {
		log.Error().Err(err).Msg("run record insert failed")
		return nil
	}
	return record
}

func (r *Runner) finishRecord(ctx context.Context, record *storage.RunRecord, result *pipeline.Result, runErr error, log *observability.Logger) {
	if runErr != nil {
		record.Status = storage.RunStatusFailed
		msg := runErr.Error()
		record.ErrorMessage = &msg
	} else {
		record.Status = storage.RunStatusSucceeded
		record.ChunkCount = len(result.Chunks)
		record.SegmentCount = len(result.Segments)
		dominant := result.DominantLanguage()
		record.DominantLanguage = &dominant
		record.EnrichmentLevel = &result.Summary.EnrichmentLevel
		record.DurationMS = result.DurationMS
		if summary, err := json.Marshal(result.Summary); err == nil {
			record.Summary = summary
		}
	}

	if err := r.repos.Runs.Finish(ctx, record); err != nil {
		log.Error().Err(err).Msg("run record update failed")
		return
	}
	if runErr == nil {
		r.persistChunks(ctx, record, result, log)
	}
}

func (r *Runner) persistChunks(ctx context.Context, record *storage.RunRecord, result *pipeline.Result, log *observability.Logger) {
	records := make([]*storage.ChunkRecord, 0, len(result.Chunks))
	for i, ch := range result.Chunks {
		rec := &storage.ChunkRecord{
			RunID:      record.ID,
			ChunkIndex: i,
			Text:       ch.Text,
		}
		if page, ok := ch.PageNumber(); ok {
			rec.Page = &page
		}
		if lang, ok := ch.Language(); ok {
			rec.Language = &lang
		}
		if conf, ok := ch.Confidence(); ok {
			rec.Confidence = &conf
		}
		if metadata, err := json.Marshal(ch.Metadata); err == nil {
			rec.Metadata = metadata
		}
		records = append(records, rec)
	}
	if err := r.repos.Chunks.CreateBatch(ctx, records); err != nil {
		log.Error().Err(err).Msg("chunk records insert failed")
	}
}

func (r *Runner) publish(ctx context.Context, record *storage.RunRecord, result *pipeline.Result, log *observability.Logger) {
	if r.publisher == nil {
		return
	}

	event := CompletionEvent{
		SourceFile:       result.SourceFile,
		ChunkCount:       len(result.Chunks),
		DominantLanguage: result.DominantLanguage(),
		Status:           string(storage.RunStatusSucceeded),
	}
	if record != nil {
		event.RunID = record.ID
	}
	if err := r.publisher.Publish(ctx, CompletionChannel, event); err != nil {
		log.Warn().Err(err).Msg("completion event publish failed")
	}
}
