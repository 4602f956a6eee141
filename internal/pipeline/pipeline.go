// Package pipeline drives an editing run through its stages: memory
// indexing, structural segmentation, per-chapter direction, stitching, and
// EDL export. The stage stored on a run is the next one to execute, so an
// interrupted run resumes where it left off.
package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roughcut/roughcut-agent/internal/annotate"
	"github.com/roughcut/roughcut-agent/internal/config"
	"github.com/roughcut/roughcut-agent/internal/director"
	"github.com/roughcut/roughcut-agent/internal/edit"
	"github.com/roughcut/roughcut-agent/internal/export"
	"github.com/roughcut/roughcut-agent/internal/llm"
	"github.com/roughcut/roughcut-agent/internal/logging"
	"github.com/roughcut/roughcut-agent/internal/memory"
	"github.com/roughcut/roughcut-agent/internal/producer"
	"github.com/roughcut/roughcut-agent/internal/run"
	"github.com/roughcut/roughcut-agent/internal/stitch"
)

// Artifact file names within a run's artifact directory.
const (
	StructuralMapFile = "structural_map.json"
	DirectorEditsFile = "director_edits.json"
	TimelineFile      = "timeline.json"
	FCPXMLFile        = "final_cut.fcpxml"
	EDLFile           = "final_cut.edl"
)

// Config holds the pipeline's collaborators and storage.
type Config struct {
	Repo         run.Repository
	DB           *sql.DB
	Profile      *config.Profile
	Producer     llm.Client
	Director     llm.Client
	Embedder     llm.Embedder
	ArtifactsDir string
	Logger       *slog.Logger
}

// Pipeline executes editing runs end to end.
type Pipeline struct {
	cfg Config
}

// New validates the configuration and creates a Pipeline. The embedder is
// optional; without one the director works from local context only.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Repo == nil {
		return nil, fmt.Errorf("run repository is required")
	}
	if cfg.Profile == nil {
		return nil, fmt.Errorf("profile is required")
	}
	if cfg.Producer == nil || cfg.Director == nil {
		return nil, fmt.Errorf("producer and director collaborators are required")
	}
	if cfg.ArtifactsDir == "" {
		return nil, fmt.Errorf("artifacts dir is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.ArtifactsDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create artifacts dir: %w", err)
	}
	return &Pipeline{cfg: cfg}, nil
}

// RunDir returns the artifact directory for a run.
func (p *Pipeline) RunDir(runID string) string {
	return filepath.Join(p.cfg.ArtifactsDir, runID)
}

// Execute advances a run from its stored stage to completion. A missing or
// invalid annotation document is a configuration problem and fails the run
// immediately; stage errors mark the run failed with the stage error.
func (p *Pipeline) Execute(ctx context.Context, r *run.Run) error {
	logger := logging.WithRunID(p.cfg.Logger, r.ID)

	doc, err := annotate.LoadDocument(r.AnnotationPath)
	if err != nil {
		err = fmt.Errorf("annotation document %s: %w", logging.SanitizePath(r.AnnotationPath), err)
		p.fail(ctx, r.ID, logger, err)
		return err
	}
	store := doc.Store()

	runDir := p.RunDir(r.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		err = fmt.Errorf("cannot create run dir: %w", err)
		p.fail(ctx, r.ID, logger, err)
		return err
	}

	if err := p.cfg.Repo.UpdateRunStatus(ctx, r.ID, run.StatusRunning, ""); err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}
	logger.Info("run started",
		"recording_id", doc.RecordingID,
		"duration_seconds", store.Duration(),
		"words", store.WordCount(),
		"visual_moments", store.MomentCount(),
		"stage", r.Stage,
	)

	stage := r.Stage
	if stage == "" {
		stage = run.StageMemory
	}

	for stage != run.StageDone {
		if err := ctx.Err(); err != nil {
			p.fail(ctx, r.ID, logger, err)
			return err
		}

		stageLogger := logging.WithStage(logger, stage)
		stageLogger.Info("stage started")

		var next string
		var stageErr error
		switch stage {
		case run.StageMemory:
			stageErr = p.runMemory(ctx, r.ID, store, stageLogger)
			next = run.StageStructure
		case run.StageStructure:
			stageErr = p.runStructure(ctx, store, runDir, stageLogger)
			next = run.StageDirect
		case run.StageDirect:
			stageErr = p.runDirect(ctx, r.ID, store, runDir, stageLogger)
			next = run.StageStitch
		case run.StageStitch:
			stageErr = p.runStitch(ctx, store, runDir, stageLogger)
			next = run.StageExport
		case run.StageExport:
			stageErr = p.runExport(runDir, stageLogger)
			next = run.StageDone
		default:
			stageErr = fmt.Errorf("unknown stage %q", stage)
		}

		if stageErr != nil {
			err := fmt.Errorf("stage %s: %w", stage, stageErr)
			p.fail(ctx, r.ID, logger, err)
			return err
		}
		stageLogger.Info("stage complete")

		stage = next
		if err := p.cfg.Repo.UpdateRunStage(ctx, r.ID, stage); err != nil {
			return fmt.Errorf("update run stage: %w", err)
		}
	}

	if err := p.cfg.Repo.UpdateRunStatus(ctx, r.ID, run.StatusCompleted, ""); err != nil {
		return fmt.Errorf("mark run completed: %w", err)
	}
	logger.Info("run completed")
	return nil
}

func (p *Pipeline) fail(ctx context.Context, runID string, logger *slog.Logger, cause error) {
	logger.Error("run failed", "error", cause)
	// The run row must record the failure even when the cause is ctx
	// cancellation.
	if err := p.cfg.Repo.UpdateRunStatus(context.WithoutCancel(ctx), runID, run.StatusFailed, cause.Error()); err != nil {
		logger.Error("cannot mark run failed", "error", err)
	}
}

// runMemory chunks the recording and embeds the chunks into the vector
// index. The stage is best effort: with no embedder, or an embedding
// failure, the run continues and the director falls back to local context.
func (p *Pipeline) runMemory(ctx context.Context, runID string, store *annotate.Store, logger *slog.Logger) error {
	if p.cfg.Embedder == nil {
		logger.Warn("no embedder configured, global retrieval disabled")
		return nil
	}

	chunks := memory.BuildChunks(store, p.cfg.Profile.Memory.ChunkSecs)
	idx := memory.NewIndex(p.cfg.DB, p.cfg.Embedder, logger)
	if err := idx.Populate(ctx, runID, chunks); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("memory indexing failed, continuing without retrieval", "error", err)
		return nil
	}
	logger.Info("memory index populated", "chunks", len(chunks))
	return nil
}

func (p *Pipeline) runStructure(ctx context.Context, store *annotate.Store, runDir string, logger *slog.Logger) error {
	seg := producer.NewSegmenter(p.cfg.Producer, p.cfg.Profile.Producer.MaxAttempts, logger)
	structuralMap, err := seg.Segment(ctx, store)
	if err != nil {
		return err
	}
	logger.Info("structural map built", "chapters", len(structuralMap.Chapters))
	return edit.SaveArtifact(filepath.Join(runDir, StructuralMapFile), structuralMap)
}

func (p *Pipeline) runDirect(ctx context.Context, runID string, store *annotate.Store, runDir string, logger *slog.Logger) error {
	structuralMap, err := edit.LoadStructuralMap(filepath.Join(runDir, StructuralMapFile))
	if err != nil {
		return err
	}

	var retriever director.Retriever
	if p.cfg.Embedder != nil {
		retriever = memory.NewIndex(p.cfg.DB, p.cfg.Embedder, logger)
	}
	assembler := director.NewAssembler(store, retriever, runID, p.cfg.Profile.Memory.TopK, logger)

	d, err := director.New(director.Config{
		Client:        p.cfg.Director,
		Assembler:     assembler,
		Cameras:       p.cfg.Profile.CameraIDs(),
		DefaultCamera: p.cfg.Profile.DefaultCamera(),
		MaxAttempts:   p.cfg.Profile.Director.MaxAttempts,
		MinShotSecs:   p.cfg.Profile.Director.MinShotSecs,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	edits, err := d.EditAll(ctx, structuralMap.Chapters, p.cfg.Profile.Director.MaxConcurrent)
	if err != nil {
		return err
	}

	degraded := edits.DegradedChapters()
	if len(degraded) > 0 {
		logger.Warn("chapters edited with fallback logic", "chapter_ids", degraded)
	}
	if err := p.cfg.Repo.SetDegradedChapters(ctx, runID, degraded); err != nil {
		return fmt.Errorf("record degraded chapters: %w", err)
	}
	return edit.SaveArtifact(filepath.Join(runDir, DirectorEditsFile), edits)
}

func (p *Pipeline) runStitch(ctx context.Context, store *annotate.Store, runDir string, logger *slog.Logger) error {
	structuralMap, err := edit.LoadStructuralMap(filepath.Join(runDir, StructuralMapFile))
	if err != nil {
		return err
	}
	edits, err := edit.LoadDirectorEdits(filepath.Join(runDir, DirectorEditsFile))
	if err != nil {
		return err
	}

	timeline, err := stitch.Stitch(structuralMap.Chapters, edits)
	if err != nil {
		return err
	}

	if p.cfg.Profile.Stitch.Smoothing {
		smoother := stitch.NewSmoother(p.cfg.Director, store, p.cfg.Profile.Stitch.WindowSecs, logger)
		timeline = smoother.Smooth(ctx, timeline, structuralMap.Chapters)
	}

	doc := edit.TimelineDocument{
		SchemaVersion: edit.SchemaVersion,
		ProjectName:   p.cfg.Profile.Export.ProjectName,
		Timeline:      timeline,
	}
	logger.Info("timeline stitched", "cuts", len(timeline.Cuts), "end_seconds", timeline.End())
	return edit.SaveArtifact(filepath.Join(runDir, TimelineFile), doc)
}

func (p *Pipeline) runExport(runDir string, logger *slog.Logger) error {
	doc, err := edit.LoadTimelineDocument(filepath.Join(runDir, TimelineFile))
	if err != nil {
		return err
	}

	cameras := ExportCameras(p.cfg.Profile)
	fcpxml, err := export.GenerateFCPXML(doc.Timeline, cameras, doc.ProjectName, p.cfg.Profile.Export.FrameRate)
	if err != nil {
		return fmt.Errorf("fcpxml: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, FCPXMLFile), []byte(fcpxml), 0644); err != nil {
		return fmt.Errorf("write fcpxml: %w", err)
	}

	edl, err := export.GenerateEDL(doc.Timeline, cameras, doc.ProjectName, p.cfg.Profile.Export.FrameRate)
	if err != nil {
		return fmt.Errorf("edl: %w", err)
	}
	if err := os.WriteFile(filepath.Join(runDir, EDLFile), []byte(edl), 0644); err != nil {
		return fmt.Errorf("write edl: %w", err)
	}

	logger.Info("exports written", "cuts", len(doc.Timeline.Cuts))
	return nil
}

// ExportCameras converts the profile's camera roster for the serializers.
func ExportCameras(p *config.Profile) []export.Camera {
	cams := make([]export.Camera, len(p.Cameras))
	for i, cam := range p.Cameras {
		cams[i] = export.Camera{ID: cam.ID, Label: cam.Label, Media: cam.Media}
	}
	return cams
}
