package producer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/roughcut/roughcut-agent/internal/annotate"
	"github.com/roughcut/roughcut-agent/internal/edit"
	"github.com/roughcut/roughcut-agent/internal/llm"
)

// scriptedClient returns canned responses in order, then repeats the last.
type scriptedClient struct {
	responses []string
	errs      []error
	calls     int
}

func (c *scriptedClient) Complete(context.Context, llm.Request) (string, error) {
	i := c.calls
	c.calls++
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	return c.responses[i], err
}

func (c *scriptedClient) Name() string { return "scripted" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func segmentStore() *annotate.Store {
	words := []annotate.TranscriptWord{
		{Text: "welcome", Start: 0.5, End: 1},
		{Text: "goodbye", Start: 59, End: 60},
	}
	return annotate.NewStore(words, nil)
}

func TestSegment_AcceptsValidProposal(t *testing.T) {
	client := &scriptedClient{responses: []string{
		`{"chapters": [
			{"title": "Intro", "summary": "Opening.", "start_time": 0, "end_time": 30},
			{"title": "Outro", "summary": "Closing.", "start_time": 30, "end_time": 60}
		]}`,
	}}

	seg := NewSegmenter(client, 3, testLogger())
	got, err := seg.Segment(context.Background(), segmentStore())
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}

	if len(got.Chapters) != 2 {
		t.Fatalf("chapters = %d, want 2", len(got.Chapters))
	}
	if got.Chapters[0].ID != "ch_001" || got.Chapters[1].ID != "ch_002" {
		t.Fatalf("chapter ids = %q, %q", got.Chapters[0].ID, got.Chapters[1].ID)
	}
	if got.RecordingEnd != 60 {
		t.Fatalf("RecordingEnd = %v, want 60", got.RecordingEnd)
	}
	if client.calls != 1 {
		t.Fatalf("calls = %d, want 1", client.calls)
	}
	if err := edit.ValidateChapters(got.Chapters, 60); err != nil {
		t.Fatalf("accepted chapters invalid: %v", err)
	}
}

func TestSegment_RepairsGappyProposalAfterRetries(t *testing.T) {
	// Same gappy answer every attempt: [0,30) then [35,60).
	client := &scriptedClient{responses: []string{
		`{"chapters": [
			{"title": "A", "start_time": 0, "end_time": 30},
			{"title": "B", "start_time": 35, "end_time": 60}
		]}`,
	}}

	seg := NewSegmenter(client, 2, testLogger())
	got, err := seg.Segment(context.Background(), segmentStore())
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}

	if client.calls != 2 {
		t.Fatalf("calls = %d, want the full attempt budget", client.calls)
	}
	if err := edit.ValidateChapters(got.Chapters, 60); err != nil {
		t.Fatalf("repaired chapters invalid: %v", err)
	}
	if len(got.Chapters) != 2 || got.Chapters[0].End != 35 {
		t.Fatalf("gap not closed by extension: %+v", got.Chapters)
	}
}

func TestSegment_MalformedOutputFallsBack(t *testing.T) {
	client := &scriptedClient{responses: []string{"I refuse to answer in JSON."}}

	seg := NewSegmenter(client, 2, testLogger())
	got, err := seg.Segment(context.Background(), segmentStore())
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}

	if len(got.Chapters) != 1 {
		t.Fatalf("chapters = %+v, want single fallback chapter", got.Chapters)
	}
	if got.Chapters[0].Start != 0 || got.Chapters[0].End != 60 {
		t.Fatalf("fallback chapter = %+v", got.Chapters[0])
	}
}

func TestSegment_RetriesUnavailableThenSucceeds(t *testing.T) {
	valid := `{"chapters": [{"title": "All", "start_time": 0, "end_time": 60}]}`
	client := &scriptedClient{
		responses: []string{"", valid},
		errs:      []error{fmt.Errorf("dial: %w", llm.ErrUnavailable), nil},
	}

	seg := NewSegmenter(client, 3, testLogger())
	got, err := seg.Segment(context.Background(), segmentStore())
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("calls = %d, want 2", client.calls)
	}
	if len(got.Chapters) != 1 {
		t.Fatalf("chapters = %+v", got.Chapters)
	}
}

func TestSegment_EmptyStoreIsError(t *testing.T) {
	seg := NewSegmenter(&scriptedClient{responses: []string{"{}"}}, 1, testLogger())
	if _, err := seg.Segment(context.Background(), annotate.NewStore(nil, nil)); err == nil {
		t.Fatalf("Segment() = nil on empty store, want error")
	}
}
