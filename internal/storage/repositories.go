package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// RunRepository handles pipeline run persistence.
type RunRepository struct {
	db DB
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run record.
func (r *RunRepository) Create(ctx context.Context, run *RunRecord) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	query := `
		INSERT INTO runs (id, source_file, content_sha256, mime_type, status,
			chunk_count, segment_count, dominant_language, enrichment_level,
			error_message, summary, duration_ms, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID.String(), run.SourceFile, run.ContentSHA256, run.MimeType, run.Status,
		run.ChunkCount, run.SegmentCount, run.DominantLanguage, run.EnrichmentLevel,
		run.ErrorMessage, nullableJSON(run.Summary), run.DurationMS,
		run.StartedAt, run.CompletedAt,
	)
	return err
}

// Finish marks a run as completed with its final counts and status.
func (r *RunRepository) Finish(ctx context.Context, run *RunRecord) error {
	now := time.Now()
	run.CompletedAt = &now

	query := `
		UPDATE runs SET status = $1, chunk_count = $2, segment_count = $3,
			dominant_language = $4, enrichment_level = $5, error_message = $6,
			summary = $7, duration_ms = $8, completed_at = $9
		WHERE id = $10
	`
	result, err := r.db.ExecContext(ctx, query,
		run.Status, run.ChunkCount, run.SegmentCount,
		run.DominantLanguage, run.EnrichmentLevel, run.ErrorMessage,
		nullableJSON(run.Summary), run.DurationMS, run.CompletedAt,
		run.ID.String(),
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a run by ID.
func (r *RunRepository) GetByID(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	query := `
		SELECT id, source_file, content_sha256, mime_type, status,
			chunk_count, segment_count, dominant_language, enrichment_level,
			error_message, summary, duration_ms, started_at, completed_at
		FROM runs WHERE id = $1
	`
	return scanRun(r.db.QueryRowContext(ctx, query, id.String()))
}

// GetBySHA retrieves the most recent run for a content hash.
func (r *RunRepository) GetBySHA(ctx context.Context, sha256 string) (*RunRecord, error) {
	query := `
		SELECT id, source_file, content_sha256, mime_type, status,
			chunk_count, segment_count, dominant_language, enrichment_level,
			error_message, summary, duration_ms, started_at, completed_at
		FROM runs
		WHERE content_sha256 = $1
		ORDER BY started_at DESC
		LIMIT 1
	`
	return scanRun(r.db.QueryRowContext(ctx, query, sha256))
}

// List retrieves the most recent runs, newest first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, source_file, content_sha256, mime_type, status,
			chunk_count, segment_count, dominant_language, enrichment_level,
			error_message, summary, duration_ms, started_at, completed_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		run, err := scanRunRows(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ChunkRepository handles persisted chunk records.
type ChunkRepository struct {
	db DB
}

// NewChunkRepository creates a new chunk repository.
func NewChunkRepository(db DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// CreateBatch inserts all chunks belonging to a run.
func (r *ChunkRepository) CreateBatch(ctx context.Context, chunks []*ChunkRecord) error {
	query := `
		INSERT INTO run_chunks (id, run_id, chunk_index, text, page,
			language, confidence, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, chunk := range chunks {
		if chunk.ID == uuid.Nil {
			chunk.ID = uuid.New()
		}
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = time.Now()
		}
		_, err := r.db.ExecContext(ctx, query,
			chunk.ID.String(), chunk.RunID.String(), chunk.ChunkIndex, chunk.Text,
			chunk.Page, chunk.Language, chunk.Confidence,
			nullableJSON(chunk.Metadata), chunk.CreatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListByRun retrieves all chunks for a run in chunk order.
func (r *ChunkRepository) ListByRun(ctx context.Context, runID uuid.UUID) ([]*ChunkRecord, error) {
	query := `
		SELECT id, run_id, chunk_index, text, page, language, confidence, metadata, created_at
		FROM run_chunks
		WHERE run_id = $1
		ORDER BY chunk_index
	`
	rows, err := r.db.QueryContext(ctx, query, runID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*ChunkRecord
	for rows.Next() {
		chunk := &ChunkRecord{}
		var id, rid string
		var metadata sql.NullString
		if err := rows.Scan(
			&id, &rid, &chunk.ChunkIndex, &chunk.Text, &chunk.Page,
			&chunk.Language, &chunk.Confidence, &metadata, &chunk.CreatedAt,
		); err != nil {
			return nil, err
		}
		if chunk.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if chunk.RunID, err = uuid.Parse(rid); err != nil {
			return nil, err
		}
		if metadata.Valid {
			chunk.Metadata = []byte(metadata.String)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// DeleteByRun removes all chunks for a run.
func (r *ChunkRepository) DeleteByRun(ctx context.Context, runID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM run_chunks WHERE run_id = $1`, runID.String())
	return err
}

// Repositories bundles all repositories together.
type Repositories struct {
	Runs   *RunRepository
	Chunks *ChunkRepository
}

// NewRepositories creates all repositories with the given database connection.
func NewRepositories(db DB) *Repositories {
	return &Repositories{
		Runs:   NewRunRepository(db),
		Chunks: NewChunkRepository(db),
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row *sql.Row) (*RunRecord, error) {
	run, err := scanRunFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

func scanRunRows(rows *sql.Rows) (*RunRecord, error) {
	return scanRunFrom(rows)
}

func scanRunFrom(s rowScanner) (*RunRecord, error) {
	run := &RunRecord{}
	var id string
	var summary sql.NullString
	err := s.Scan(
		&id, &run.SourceFile, &run.ContentSHA256, &run.MimeType, &run.Status,
		&run.ChunkCount, &run.SegmentCount, &run.DominantLanguage, &run.EnrichmentLevel,
		&run.ErrorMessage, &summary, &run.DurationMS, &run.StartedAt, &run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if summary.Valid {
		run.Summary = []byte(summary.String)
	}
	return run, nil
}

func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
