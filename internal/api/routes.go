package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/roughcut/roughcut-agent/internal/config"
	"github.com/roughcut/roughcut-agent/internal/export"
	"github.com/roughcut/roughcut-agent/internal/pipeline"
	"github.com/roughcut/roughcut-agent/internal/run"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/runs", listRunsHandler(cfg))
		r.Post("/runs", createRunHandler(cfg))
		r.Get("/runs/{id}", getRunHandler(cfg))
		r.Get("/runs/{id}/chapters", artifactHandler(cfg, pipeline.StructuralMapFile))
		r.Get("/runs/{id}/edits", artifactHandler(cfg, pipeline.DirectorEditsFile))
		r.Get("/runs/{id}/timeline", artifactHandler(cfg, pipeline.TimelineFile))
		r.Post("/runs/{id}/export", exportRunHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: config.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := cfg.Repository.ListRuns(r.Context(), 20)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list runs", "INTERNAL_ERROR")
			return
		}

		state := "idle"
		if cfg.Runner != nil && cfg.Runner.IsPaused() {
			state = "paused"
		}

		var activeRun *RunResponse
		pending := 0
		running := 0
		lastError := ""
		for _, rn := range runs {
			switch rn.Status {
			case run.StatusPending:
				pending++
			case run.StatusRunning:
				state = "editing"
				resp := RunToResponse(rn)
				activeRun = &resp
				running++
			case run.StatusFailed:
				if lastError == "" {
					lastError = rn.Error
				}
			}
		}
		if lastError != "" && state == "idle" {
			state = "error"
		}

		WriteJSON(w, http.StatusOK, StatusResponse{
			State:       state,
			LastError:   lastError,
			RunsPending: pending,
			RunsRunning: running,
			ActiveRun:   activeRun,
			Cameras:     cfg.Profile.CameraIDs(),
		})
	}
}

func listRunsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := cfg.Repository.ListRuns(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list runs", "INTERNAL_ERROR")
			return
		}

		resp := RunsResponse{Runs: make([]RunResponse, len(runs))}
		for i, rn := range runs {
			resp.Runs[i] = RunToResponse(rn)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createRunHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if req.AnnotationPath == "" {
			WriteError(w, http.StatusBadRequest, "annotation_path is required", "BAD_REQUEST")
			return
		}
		if info, err := os.Stat(req.AnnotationPath); err != nil || info.IsDir() {
			WriteError(w, http.StatusBadRequest, "annotation_path does not point to a readable file", "BAD_REQUEST")
			return
		}

		newRun := run.New(req.AnnotationPath)
		if err := cfg.Repository.CreateRun(r.Context(), newRun); err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to create run", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusAccepted, CreateRunResponse{RunID: newRun.ID})
	}
}

func getRunHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rn, ok := lookupRun(w, r, cfg)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, RunToResponse(rn))
	}
}

// artifactHandler serves one of a run's JSON artifacts. Until the producing
// stage has completed the artifact does not exist and the handler reports
// the run's progress instead.
func artifactHandler(cfg ServerConfig, filename string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rn, ok := lookupRun(w, r, cfg)
		if !ok {
			return
		}

		data, err := os.ReadFile(filepath.Join(cfg.Pipeline.RunDir(rn.ID), filename))
		if err != nil {
			if os.IsNotExist(err) {
				WriteError(w, http.StatusConflict, "artifact not ready, run is at stage "+rn.Stage, "ARTIFACT_NOT_READY")
				return
			}
			WriteError(w, http.StatusInternalServerError, "failed to read artifact", "INTERNAL_ERROR")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func exportRunHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rn, ok := lookupRun(w, r, cfg)
		if !ok {
			return
		}

		var req ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		var artifact, ext string
		switch strings.ToLower(req.Format) {
		case "fcpxml":
			artifact, ext = pipeline.FCPXMLFile, ".fcpxml"
		case "edl":
			artifact, ext = pipeline.EDLFile, ".edl"
		default:
			WriteError(w, http.StatusBadRequest, "format must be fcpxml or edl", "BAD_REQUEST")
			return
		}

		if err := export.ValidateOutputDir(req.OutputDir); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}

		data, err := os.ReadFile(filepath.Join(cfg.Pipeline.RunDir(rn.ID), artifact))
		if err != nil {
			if os.IsNotExist(err) {
				WriteError(w, http.StatusConflict, "export not ready, run is at stage "+rn.Stage, "ARTIFACT_NOT_READY")
				return
			}
			WriteError(w, http.StatusInternalServerError, "failed to read export", "INTERNAL_ERROR")
			return
		}

		name := export.SanitizeName(cfg.Profile.Export.ProjectName, 120)
		if name == "" {
			name = "roughcut_export"
		}
		outputPath := filepath.Join(req.OutputDir, name+ext)
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to write export file", "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusOK, ExportResponse{
			Status:     "ok",
			Format:     strings.ToLower(req.Format),
			OutputPath: outputPath,
		})
	}
}

func lookupRun(w http.ResponseWriter, r *http.Request, cfg ServerConfig) (*run.Run, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "run id required", "BAD_REQUEST")
		return nil, false
	}

	rn, err := cfg.Repository.GetRun(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
		return nil, false
	}
	if rn == nil {
		WriteError(w, http.StatusNotFound, "run not found", "NOT_FOUND")
		return nil, false
	}
	return rn, true
}
