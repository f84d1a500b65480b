// Package storage provides database models and repositories for pipeline runs.
package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusFailed    RunStatus = "failed"
	RunStatusSucceeded RunStatus = "succeeded"
)

// RunRecord represents a single execution of the segmentation pipeline
// over one extraction result.
type RunRecord struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	SourceFile       string          `json:"source_file" db:"source_file"`
	ContentSHA256    string          `json:"content_sha256" db:"content_sha256"`
	MimeType         *string         `json:"mime_type,omitempty" db:"mime_type"`
	Status           RunStatus       `json:"status" db:"status"`
	ChunkCount       int             `json:"chunk_count" db:"chunk_count"`
	SegmentCount     int             `json:"segment_count" db:"segment_count"`
	DominantLanguage *string         `json:"dominant_language,omitempty" db:"dominant_language"`
	EnrichmentLevel  *string         `json:"enrichment_level,omitempty" db:"enrichment_level"`
	ErrorMessage     *string         `json:"error_message,omitempty" db:"error_message"`
	Summary          json.RawMessage `json:"summary,omitempty" db:"summary"`
	DurationMS       int64           `json:"duration_ms" db:"duration_ms"`
	StartedAt        time.Time       `json:"started_at" db:"started_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}

// ChunkRecord represents one enriched chunk produced by a run.
type ChunkRecord struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	RunID      uuid.UUID       `json:"run_id" db:"run_id"`
	ChunkIndex int             `json:"chunk_index" db:"chunk_index"`
	Text       string          `json:"text" db:"text"`
	Page       *int            `json:"page,omitempty" db:"page"`
	Language   *string         `json:"language,omitempty" db:"language"`
	Confidence *float64        `json:"confidence,omitempty" db:"confidence"`
	Metadata   json.RawMessage `json:"metadata" db:"metadata"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}
