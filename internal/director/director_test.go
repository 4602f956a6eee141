package director

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/roughcut/roughcut-agent/internal/annotate"
	"github.com/roughcut/roughcut-agent/internal/edit"
	"github.com/roughcut/roughcut-agent/internal/llm"
	"github.com/roughcut/roughcut-agent/internal/memory"
)

var testCameras = []string{"cam_host", "cam_guest", "cam_wide"}

type scriptedClient struct {
	respond func(llm.Request) (string, error)
	calls   atomic.Int64
}

func (c *scriptedClient) Complete(_ context.Context, req llm.Request) (string, error) {
	c.calls.Add(1)
	return c.respond(req)
}

func (c *scriptedClient) Name() string { return "scripted" }

type stubRetriever struct {
	snippets []memory.Snippet
	err      error
}

func (r *stubRetriever) Search(context.Context, string, string, int) ([]memory.Snippet, error) {
	return r.snippets, r.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func directorStore() *annotate.Store {
	words := []annotate.TranscriptWord{
		{Text: "hello", Start: 41, End: 41.5},
		{Text: "world", Start: 68, End: 68.5},
	}
	moments := []annotate.VisualMoment{
		{Timestamp: 45, Camera: "cam_host", Description: "Host gesturing."},
	}
	return annotate.NewStore(words, moments)
}

func newTestDirector(t *testing.T, client llm.Client, retriever Retriever, maxAttempts int) *Director {
	t.Helper()
	asm := NewAssembler(directorStore(), retriever, "run_1", 2, testLogger())
	d, err := New(Config{
		Client:        client,
		Assembler:     asm,
		Cameras:       testCameras,
		DefaultCamera: "cam_wide",
		MaxAttempts:   maxAttempts,
		MinShotSecs:   2,
		Logger:        testLogger(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return d
}

var chapter = edit.Chapter{ID: "ch_002", Title: "Middle", Summary: "The middle part.", Start: 40, End: 70}

func TestEditChapter_ValidProposal(t *testing.T) {
	client := &scriptedClient{respond: func(llm.Request) (string, error) {
		return `{"cuts": [
			{"start_time": 40, "end_time": 55, "camera_id": "cam_host"},
			{"start_time": 55, "end_time": 70, "camera_id": "cam_guest"}
		]}`, nil
	}}

	d := newTestDirector(t, client, &stubRetriever{snippets: []memory.Snippet{{Text: "ctx", Score: 0.9}}}, 3)
	got, err := d.EditChapter(context.Background(), chapter)
	if err != nil {
		t.Fatalf("EditChapter() error = %v", err)
	}

	if got.ChapterID != "ch_002" {
		t.Fatalf("ChapterID = %q", got.ChapterID)
	}
	if got.Degraded {
		t.Fatalf("Degraded = true with working retrieval")
	}
	if len(got.Cuts) != 2 {
		t.Fatalf("cuts = %+v", got.Cuts)
	}
	if err := edit.ValidateCuts(got.Cuts, chapter); err != nil {
		t.Fatalf("accepted cuts invalid: %v", err)
	}
}

func TestEditChapter_RepairsOutOfRangeCuts(t *testing.T) {
	client := &scriptedClient{respond: func(llm.Request) (string, error) {
		return `{"cuts": [
			{"start_time": 30, "end_time": 50, "camera_id": "cam_host"},
			{"start_time": 57, "end_time": 80, "camera_id": "cam_guest"}
		]}`, nil
	}}

	d := newTestDirector(t, client, nil, 3)
	got, err := d.EditChapter(context.Background(), chapter)
	if err != nil {
		t.Fatalf("EditChapter() error = %v", err)
	}

	if err := edit.ValidateCuts(got.Cuts, chapter); err != nil {
		t.Fatalf("repaired cuts invalid: %v", err)
	}
	if client.calls.Load() != 1 {
		t.Fatalf("calls = %d; repairable output must not be retried", client.calls.Load())
	}
}

func TestEditChapter_UnknownCameraRetried(t *testing.T) {
	var n atomic.Int64
	client := &scriptedClient{respond: func(llm.Request) (string, error) {
		if n.Add(1) == 1 {
			return `{"cuts": [{"start_time": 40, "end_time": 70, "camera_id": "cam_drone"}]}`, nil
		}
		return `{"cuts": [{"start_time": 40, "end_time": 70, "camera_id": "cam_host"}]}`, nil
	}}

	d := newTestDirector(t, client, nil, 3)
	got, err := d.EditChapter(context.Background(), chapter)
	if err != nil {
		t.Fatalf("EditChapter() error = %v", err)
	}
	if client.calls.Load() != 2 {
		t.Fatalf("calls = %d, want retry after unknown camera", client.calls.Load())
	}
	if got.Cuts[0].Camera != "cam_host" {
		t.Fatalf("cuts = %+v", got.Cuts)
	}
}

func TestEditChapter_ExhaustedRetriesFallsBack(t *testing.T) {
	client := &scriptedClient{respond: func(llm.Request) (string, error) {
		return "complete nonsense, no JSON here", nil
	}}

	d := newTestDirector(t, client, nil, 2)
	got, err := d.EditChapter(context.Background(), chapter)
	if err != nil {
		t.Fatalf("EditChapter() error = %v, fallback must not fail the run", err)
	}

	if !got.Degraded {
		t.Fatalf("fallback EDL not marked degraded")
	}
	if len(got.Cuts) != 1 {
		t.Fatalf("cuts = %+v, want single filler", got.Cuts)
	}
	filler := got.Cuts[0]
	if filler.Start != 40 || filler.End != 70 || filler.Camera != "cam_wide" {
		t.Fatalf("filler = %+v, want [40, 70) on cam_wide", filler)
	}
}

func TestEditChapter_DegradedWithoutRetriever(t *testing.T) {
	client := &scriptedClient{respond: func(llm.Request) (string, error) {
		return `{"cuts": [{"start_time": 40, "end_time": 70, "camera_id": "cam_host"}]}`, nil
	}}

	d := newTestDirector(t, client, nil, 3)
	got, err := d.EditChapter(context.Background(), chapter)
	if err != nil {
		t.Fatalf("EditChapter() error = %v", err)
	}
	if !got.Degraded {
		t.Fatalf("Degraded = false without retrieval")
	}
}

func TestEditAll_ResultsInChapterOrder(t *testing.T) {
	client := &scriptedClient{respond: func(req llm.Request) (string, error) {
		// Echo back a full-chapter cut parsed from the prompt header.
		var title string
		var start, end float64
		if _, err := fmt.Sscanf(req.User, "**CHAPTER TO EDIT:** %q (from %fs to %fs)", &title, &start, &end); err != nil {
			return "", fmt.Errorf("unexpected prompt shape: %v", err)
		}
		return fmt.Sprintf(`{"cuts": [{"start_time": %f, "end_time": %f, "camera_id": "cam_host"}]}`, start, end), nil
	}}

	chapters := []edit.Chapter{
		{ID: "ch_001", Title: "A", Start: 0, End: 20},
		{ID: "ch_002", Title: "B", Start: 20, End: 45},
		{ID: "ch_003", Title: "C", Start: 45, End: 70},
	}

	d := newTestDirector(t, client, nil, 1)
	got, err := d.EditAll(context.Background(), chapters, 2)
	if err != nil {
		t.Fatalf("EditAll() error = %v", err)
	}

	if len(got.EDLs) != 3 {
		t.Fatalf("EDLs = %d, want 3", len(got.EDLs))
	}
	for i, ch := range chapters {
		if got.EDLs[i].ChapterID != ch.ID {
			t.Fatalf("EDLs[%d].ChapterID = %q, want %q", i, got.EDLs[i].ChapterID, ch.ID)
		}
		if err := edit.ValidateCuts(got.EDLs[i].Cuts, ch); err != nil {
			t.Fatalf("EDLs[%d] invalid: %v", i, err)
		}
	}
}

func TestEditAll_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &scriptedClient{respond: func(llm.Request) (string, error) {
		return `{"cuts": []}`, nil
	}}
	d := newTestDirector(t, client, nil, 1)

	if _, err := d.EditAll(ctx, []edit.Chapter{chapter}, 1); err == nil {
		t.Fatalf("EditAll() = nil on cancelled context, want error")
	}
}

func TestAssembler_DegradedOnRetrievalFailure(t *testing.T) {
	asm := NewAssembler(directorStore(), &stubRetriever{err: fmt.Errorf("index offline")}, "run_1", 2, testLogger())

	got := asm.Assemble(context.Background(), 40, 70, "topic")
	if !got.Degraded {
		t.Fatalf("Degraded = false after retrieval failure")
	}
	if len(got.Words) != 2 {
		t.Fatalf("local words = %d, want 2", len(got.Words))
	}
}

func TestAssembler_DegradedOnEmptyIndex(t *testing.T) {
	asm := NewAssembler(directorStore(), &stubRetriever{}, "run_1", 2, testLogger())

	got := asm.Assemble(context.Background(), 40, 70, "topic")
	if !got.Degraded {
		t.Fatalf("Degraded = false with empty index")
	}
}

func TestContext_Blocks(t *testing.T) {
	asm := NewAssembler(directorStore(), &stubRetriever{snippets: []memory.Snippet{
		{Text: "earlier coffee talk", Score: 0.8, Timestamp: 12},
	}}, "run_1", 2, testLogger())

	got := asm.Assemble(context.Background(), 40, 70, "topic")

	local := got.LocalBlock()
	if !strings.Contains(local, "hello world") {
		t.Fatalf("LocalBlock() missing transcript: %q", local)
	}
	if !strings.Contains(local, "cam_host") || !strings.Contains(local, "Host gesturing.") {
		t.Fatalf("LocalBlock() missing visual cue: %q", local)
	}

	global := got.GlobalBlock()
	if !strings.Contains(global, "earlier coffee talk") {
		t.Fatalf("GlobalBlock() missing snippet: %q", global)
	}

	empty := Context{}
	if got := empty.GlobalBlock(); got != "No global context available." {
		t.Fatalf("empty GlobalBlock() = %q", got)
	}
}
