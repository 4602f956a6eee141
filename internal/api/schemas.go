package api

import (
	"time"

	"github.com/roughcut/roughcut-agent/internal/run"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State       string       `json:"state"`
	LastError   string       `json:"last_error,omitempty"`
	RunsPending int          `json:"runs_pending"`
	RunsRunning int          `json:"runs_running"`
	ActiveRun   *RunResponse `json:"active_run,omitempty"`
	Cameras     []string     `json:"cameras"`
}

type CreateRunRequest struct {
	AnnotationPath string `json:"annotation_path"`
}

type CreateRunResponse struct {
	RunID string `json:"run_id"`
}

type RunResponse struct {
	ID               string   `json:"id"`
	Status           string   `json:"status"`
	Stage            string   `json:"stage"`
	AnnotationPath   string   `json:"annotation_path"`
	Error            string   `json:"error,omitempty"`
	DegradedChapters []string `json:"degraded_chapters,omitempty"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

type RunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

type ExportRequest struct {
	Format    string `json:"format"`
	OutputDir string `json:"output_dir"`
}

type ExportResponse struct {
	Status     string `json:"status"`
	Format     string `json:"format"`
	OutputPath string `json:"output_path"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func RunToResponse(r *run.Run) RunResponse {
	return RunResponse{
		ID:               r.ID,
		Status:           r.Status,
		Stage:            r.Stage,
		AnnotationPath:   r.AnnotationPath,
		Error:            r.Error,
		DegradedChapters: r.DegradedChapters,
		CreatedAt:        r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        r.UpdatedAt.Format(time.RFC3339),
	}
}
