package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roughcut/roughcut-agent/internal/annotate"
	"github.com/roughcut/roughcut-agent/internal/config"
	"github.com/roughcut/roughcut-agent/internal/db"
	"github.com/roughcut/roughcut-agent/internal/edit"
	"github.com/roughcut/roughcut-agent/internal/llm"
	"github.com/roughcut/roughcut-agent/internal/run"
)

// producerClient always proposes two chapters covering the fixture recording.
type producerClient struct{}

func (producerClient) Complete(context.Context, llm.Request) (string, error) {
	return `{"chapters": [
		{"title": "Intro", "summary": "Opening banter.", "start_time": 0, "end_time": 30},
		{"title": "Main topic", "summary": "The interview.", "start_time": 30, "end_time": 60}
	]}`, nil
}

func (producerClient) Name() string { return "scripted-producer" }

// directorClient reads the chapter bounds back out of the prompt and answers
// with a single full-chapter shot.
type directorClient struct{}

func (directorClient) Complete(_ context.Context, req llm.Request) (string, error) {
	var title string
	var start, end float64
	if _, err := fmt.Sscanf(req.User, "**CHAPTER TO EDIT:** %q (from %fs to %fs)", &title, &start, &end); err != nil {
		return "", fmt.Errorf("%w: unexpected prompt", llm.ErrSchemaViolation)
	}
	return fmt.Sprintf(`{"cuts": [{"start_time": %v, "end_time": %v, "camera_id": "cam_host"}]}`, start, end), nil
}

func (directorClient) Name() string { return "scripted-director" }

func writeAnnotation(t *testing.T) string {
	t.Helper()
	words := make([]annotate.TranscriptWord, 0, 60)
	for i := 0; i < 60; i++ {
		words = append(words, annotate.TranscriptWord{
			Text:  fmt.Sprintf("word%d", i),
			Start: float64(i),
			End:   float64(i) + 1,
		})
	}
	doc := &annotate.Document{
		SchemaVersion: annotate.SchemaVersion,
		RecordingID:   "rec-test",
		Words:         words,
		Moments: []annotate.VisualMoment{
			{Timestamp: 0.5, Camera: "cam_wide", Description: "Both hosts at the table."},
		},
	}
	path := filepath.Join(t.TempDir(), "episode.json")
	if err := doc.Save(path); err != nil {
		t.Fatalf("save annotation: %v", err)
	}
	return path
}

func testPipeline(t *testing.T, producer, director llm.Client, profile *config.Profile) (*Pipeline, *run.SQLiteRepository) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	d, err := db.New(filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	repo := run.NewRepository(d.Conn())

	p, err := New(Config{
		Repo:         repo,
		DB:           d.Conn(),
		Profile:      profile,
		Producer:     producer,
		Director:     director,
		ArtifactsDir: filepath.Join(t.TempDir(), "artifacts"),
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p, repo
}

func TestExecute_EndToEnd(t *testing.T) {
	p, repo := testPipeline(t, producerClient{}, directorClient{}, config.DefaultProfile())
	ctx := context.Background()

	r := run.New(writeAnnotation(t))
	if err := repo.CreateRun(ctx, r); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	if err := p.Execute(ctx, r); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	got, err := repo.GetRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status != run.StatusCompleted || got.Stage != run.StageDone {
		t.Fatalf("run = status %q stage %q", got.Status, got.Stage)
	}
	if len(got.DegradedChapters) != 0 {
		t.Errorf("DegradedChapters = %v, want none", got.DegradedChapters)
	}

	runDir := p.RunDir(r.ID)
	for _, f := range []string{StructuralMapFile, DirectorEditsFile, TimelineFile, FCPXMLFile, EDLFile} {
		if _, err := os.Stat(filepath.Join(runDir, f)); err != nil {
			t.Errorf("artifact %s missing: %v", f, err)
		}
	}

	structuralMap, err := edit.LoadStructuralMap(filepath.Join(runDir, StructuralMapFile))
	if err != nil {
		t.Fatalf("load structural map: %v", err)
	}
	if len(structuralMap.Chapters) != 2 || structuralMap.Chapters[0].ID != "ch_001" {
		t.Errorf("unexpected structural map: %+v", structuralMap.Chapters)
	}

	doc, err := edit.LoadTimelineDocument(filepath.Join(runDir, TimelineFile))
	if err != nil {
		t.Fatalf("load timeline: %v", err)
	}
	// Both chapters use cam_host, so stitching merges the boundary.
	if len(doc.Timeline.Cuts) != 1 {
		t.Fatalf("got %d cuts, want 1 merged cut: %+v", len(doc.Timeline.Cuts), doc.Timeline.Cuts)
	}
	if err := edit.ValidateTimeline(doc.Timeline, 0, structuralMap.RecordingEnd); err != nil {
		t.Errorf("stitched timeline invalid: %v", err)
	}

	fcpxml, err := os.ReadFile(filepath.Join(runDir, FCPXMLFile))
	if err != nil {
		t.Fatalf("read fcpxml: %v", err)
	}
	if !strings.Contains(string(fcpxml), `<fcpxml version="1.9">`) {
		t.Errorf("fcpxml missing document root")
	}
	edl, err := os.ReadFile(filepath.Join(runDir, EDLFile))
	if err != nil {
		t.Fatalf("read edl: %v", err)
	}
	if !strings.Contains(string(edl), "TITLE: Roughcut Edit") {
		t.Errorf("edl missing title: %s", edl)
	}
}

func TestExecute_MissingAnnotationFailsRun(t *testing.T) {
	p, repo := testPipeline(t, producerClient{}, directorClient{}, config.DefaultProfile())
	ctx := context.Background()

	r := run.New(filepath.Join(t.TempDir(), "missing.json"))
	if err := repo.CreateRun(ctx, r); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	if err := p.Execute(ctx, r); err == nil {
		t.Fatalf("Execute() expected error for missing annotation document")
	}

	got, _ := repo.GetRun(ctx, r.ID)
	if got.Status != run.StatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.Error == "" {
		t.Errorf("failure reason not recorded")
	}
}

func TestExecute_DirectorFallbackMarksDegraded(t *testing.T) {
	// A director that never answers usably: every chapter falls back to the
	// default-camera filler and is flagged for review.
	failing := staticClient{response: "not json at all"}
	profile := config.DefaultProfile()
	profile.Director.MaxAttempts = 1
	p, repo := testPipeline(t, producerClient{}, failing, profile)
	ctx := context.Background()

	r := run.New(writeAnnotation(t))
	if err := repo.CreateRun(ctx, r); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	if err := p.Execute(ctx, r); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	got, _ := repo.GetRun(ctx, r.ID)
	if got.Status != run.StatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if len(got.DegradedChapters) != 2 {
		t.Errorf("DegradedChapters = %v, want both chapters", got.DegradedChapters)
	}

	doc, err := edit.LoadTimelineDocument(filepath.Join(p.RunDir(r.ID), TimelineFile))
	if err != nil {
		t.Fatalf("load timeline: %v", err)
	}
	for _, cut := range doc.Timeline.Cuts {
		if cut.Camera != "cam_wide" {
			t.Errorf("filler cut uses %q, want default cam_wide", cut.Camera)
		}
	}
}

func TestExecute_ResumesFromStoredStage(t *testing.T) {
	p, repo := testPipeline(t, producerClient{}, directorClient{}, config.DefaultProfile())
	ctx := context.Background()

	r := run.New(writeAnnotation(t))
	if err := repo.CreateRun(ctx, r); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	// Pre-stage the structural map as if a previous process died after the
	// structure stage.
	runDir := p.RunDir(r.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		t.Fatalf("mkdir run dir: %v", err)
	}
	sm := &edit.StructuralMap{
		SchemaVersion: edit.SchemaVersion,
		RecordingEnd:  60,
		Chapters: []edit.Chapter{
			{ID: "ch_001", Title: "All of it", Start: 0, End: 60},
		},
	}
	if err := edit.SaveArtifact(filepath.Join(runDir, StructuralMapFile), sm); err != nil {
		t.Fatalf("save structural map: %v", err)
	}
	r.Stage = run.StageDirect
	if err := repo.UpdateRunStage(ctx, r.ID, run.StageDirect); err != nil {
		t.Fatalf("UpdateRunStage() error = %v", err)
	}

	if err := p.Execute(ctx, r); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	got, _ := repo.GetRun(ctx, r.ID)
	if got.Status != run.StatusCompleted || got.Stage != run.StageDone {
		t.Fatalf("run = status %q stage %q", got.Status, got.Stage)
	}
	// The pre-staged single chapter, not the producer's two, drives the edit.
	doc, err := edit.LoadTimelineDocument(filepath.Join(runDir, TimelineFile))
	if err != nil {
		t.Fatalf("load timeline: %v", err)
	}
	if len(doc.Timeline.Cuts) != 1 || doc.Timeline.Cuts[0].End != 60 {
		t.Errorf("unexpected timeline: %+v", doc.Timeline.Cuts)
	}
}

type staticClient struct {
	response string
}

func (c staticClient) Complete(context.Context, llm.Request) (string, error) {
	return c.response, nil
}

func (c staticClient) Name() string { return "static" }
