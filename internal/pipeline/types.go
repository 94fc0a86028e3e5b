package pipeline

import (
	"context"
	"time"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/tabular"
)

// Pipeline defines the interface that all upload pipelines must implement
type Pipeline interface {
	// Name returns the unique identifier for this pipeline
	Name() string

	// Validate checks that the uploaded table carries the columns the pipeline needs
	Validate(table *tabular.Table) error

	// Run processes one uploaded table and reports what it produced
	Run(ctx context.Context, id domain.UploadID, filename string, table *tabular.Table) (*RunSummary, error)
}

// PipelineConfig holds configuration for a pipeline instance
type PipelineConfig struct {
	Name                  string
	WindowDays            int            // Forecast days aggregated per machine
	CriticalDaysThreshold float64        // Days remaining at or below which a machine is critical
	Location              *time.Location // Zone used to decide what "today" is
	WorkerCount           int            // Files processed concurrently by a Worker
}

// DefaultPipelineConfig returns sensible defaults
func DefaultPipelineConfig(name string) PipelineConfig {
	return PipelineConfig{
		Name:                  name,
		WindowDays:            7,
		CriticalDaysThreshold: 3,
		Location:              time.UTC,
		WorkerCount:           4,
	}
}

// PipelineStatus represents the current state of a pipeline run
type PipelineStatus string

const (
	StatusPending    PipelineStatus = "pending"
	StatusProcessing PipelineStatus = "processing"
	StatusCompleted  PipelineStatus = "completed"
	StatusFailed     PipelineStatus = "failed"
)

// RunSummary tracks a single execution of a pipeline for one upload
type RunSummary struct {
	UploadID     domain.UploadID   `json:"upload_id"`
	PipelineName string            `json:"pipeline"`
	Filename     string            `json:"filename"`
	Status       PipelineStatus    `json:"status"`
	Provenance   domain.Provenance `json:"provenance"`
	TotalRows    int               `json:"total_rows"`
	CriticalRows int               `json:"critical_rows"`
	JoinedRows   int               `json:"joined_rows"`
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

// Finish marks the run as completed or failed depending on err.
func (s *RunSummary) Finish(now time.Time, err error) {
	s.CompletedAt = &now
	if err != nil {
		s.Status = StatusFailed
		s.ErrorMessage = err.Error()
		return
	}
	s.Status = StatusCompleted
}

// Duration returns how long the run took, or zero while it is still going.
func (s *RunSummary) Duration() time.Duration {
	if s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(s.StartedAt)
}
