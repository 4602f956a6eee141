// Package run tracks editing runs: one run takes an annotation document
// through the editorial stages to a final exported timeline.
package run

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Stage names, in pipeline order. The stored stage is the next stage a
// resumed run would execute.
const (
	StageMemory    = "memory"
	StageStructure = "structure"
	StageDirect    = "direct"
	StageStitch    = "stitch"
	StageExport    = "export"
	StageDone      = "done"
)

// Run is one end-to-end editing job over a single annotation document.
type Run struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	Stage          string    `json:"stage"`
	AnnotationPath string    `json:"annotation_path"`
	Error          string    `json:"error,omitempty"`
	// DegradedChapters lists chapter ids where fallback logic was used, so
	// editorial review can prioritise re-checking those segments.
	DegradedChapters []string  `json:"degraded_chapters,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// New creates a pending run for an annotation document.
func New(annotationPath string) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:             NewID(),
		Status:         StatusPending,
		Stage:          StageMemory,
		AnnotationPath: annotationPath,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewID returns a fresh run identifier.
func NewID() string {
	return uuid.NewString()
}
