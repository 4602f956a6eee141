// Package producer implements the structural pass: one global reasoning call
// that partitions the recording into ordered, non-overlapping chapters.
// This is the pipeline's only one-shot structural decision; later passes are
// scoped per chapter and cannot revise the boundaries chosen here.
package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roughcut/roughcut-agent/internal/annotate"
	"github.com/roughcut/roughcut-agent/internal/edit"
	"github.com/roughcut/roughcut-agent/internal/llm"
)

const systemPrompt = `You are an expert podcast producer. Your task is to analyze the provided podcast transcript and divide it into logical chapters or segments based on topic changes, narrative shifts, or distinct parts of the conversation.

For each chapter, you must provide:
1. A concise "title".
2. A brief one-sentence "summary".
3. A "start_time" in seconds.
4. An "end_time" in seconds.

Chapters must be in chronological order, must not overlap, and together must cover the entire recording from 0 to the final second.

You MUST output your response as a single, valid JSON object. The object should have a single key named "chapters", which contains a list of the chapter objects. Do not include any other text, explanations, or markdown formatting in your response.`

// Segmenter drives the structural pass against a reasoning collaborator.
type Segmenter struct {
	client      llm.Client
	maxAttempts int
	logger      *slog.Logger
}

// NewSegmenter creates a Segmenter with a bounded attempt budget.
func NewSegmenter(client llm.Client, maxAttempts int, logger *slog.Logger) *Segmenter {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Segmenter{client: client, maxAttempts: maxAttempts, logger: logger}
}

type chapterProposal struct {
	Chapters []edit.Chapter `json:"chapters"`
}

// Segment partitions the recording into chapters. Collaborator failures and
// schema violations are retried up to the attempt budget; afterwards the
// last proposal (or an empty one) is deterministically repaired so the
// coverage invariant holds regardless of collaborator behaviour.
func (s *Segmenter) Segment(ctx context.Context, store *annotate.Store) (*edit.StructuralMap, error) {
	recordingEnd := store.Duration()
	if recordingEnd <= 0 {
		return nil, fmt.Errorf("annotation store covers no time")
	}

	userPrompt := fmt.Sprintf("The recording runs from 0 to %.1f seconds.\n\nFULL TRANSCRIPT:\n%s", recordingEnd, store.Transcript())

	var lastProposal []edit.Chapter
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := llm.Wait(ctx, llm.Backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		raw, err := s.client.Complete(ctx, llm.Request{
			System:   systemPrompt,
			User:     userPrompt,
			JSONMode: true,
		})
		if err != nil {
			if errors.Is(err, llm.ErrUnavailable) {
				s.logger.Warn("structural pass call failed", "attempt", attempt+1, "error", err)
				continue
			}
			return nil, fmt.Errorf("structural pass: %w", err)
		}

		var proposal chapterProposal
		if err := llm.DecodeJSON(raw, &proposal); err != nil {
			s.logger.Warn("structural pass returned malformed output", "attempt", attempt+1, "error", err)
			continue
		}
		lastProposal = proposal.Chapters

		if err := edit.ValidateChapters(proposal.Chapters, recordingEnd); err != nil {
			s.logger.Warn("structural pass proposal violates coverage invariant",
				"attempt", attempt+1, "chapters", len(proposal.Chapters), "error", err)
			continue
		}

		s.logger.Info("structural map accepted", "chapters", len(proposal.Chapters), "attempt", attempt+1)
		return s.finish(proposal.Chapters, recordingEnd), nil
	}

	// Retries exhausted: repair whatever the collaborator last proposed.
	repaired, repairs := edit.RepairChapters(lastProposal, recordingEnd)
	for _, r := range repairs {
		s.logger.Warn("structural map repaired", "code", r.Code, "detail", r.Detail)
	}
	s.logger.Info("structural map recovered after exhausted retries",
		"chapters", len(repaired), "repairs", len(repairs))

	return s.finish(repaired, recordingEnd), nil
}

// finish assigns stable chapter ids and wraps the result as an artifact.
func (s *Segmenter) finish(chapters []edit.Chapter, recordingEnd float64) *edit.StructuralMap {
	for i := range chapters {
		chapters[i].ID = fmt.Sprintf("ch_%03d", i+1)
	}
	return &edit.StructuralMap{
		SchemaVersion: edit.SchemaVersion,
		RecordingEnd:  recordingEnd,
		Chapters:      chapters,
	}
}
