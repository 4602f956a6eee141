package director

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roughcut/roughcut-agent/internal/edit"
	"github.com/roughcut/roughcut-agent/internal/llm"
	"github.com/roughcut/roughcut-agent/internal/logging"
)

const systemPromptTemplate = `You are an expert multi-camera video director for a podcast. Your task is to create a precise Edit Decision List (EDL) for a segment of the podcast.
You will be given global context from the entire conversation, and detailed local data (transcript and visual cues) for the specific segment you are editing.

RULES:
1. Prioritize the camera on the person who is currently speaking.
2. Cut to the other person for important non-verbal reactions (nodding, laughing, looking surprised).
3. Use the wide shot to establish the scene or during rapid back-and-forth dialogue.
4. Do not make cuts too frequently. A shot should last at least %.0f-%.0f seconds.

You MUST output a valid JSON object with a single key "cuts". The value should be a list of objects, where each object has:
- "start_time": The start time of the shot in seconds.
- "end_time": The end time of the shot in seconds.
- "camera_id": A string, one of: %s.`

// Director produces one ChapterEDL per chapter via a reasoning collaborator,
// then deterministically repairs the answer into a valid cut list.
type Director struct {
	client        llm.Client
	assembler     *Assembler
	cameras       []string
	defaultCamera string
	maxAttempts   int
	minShotSecs   float64
	logger        *slog.Logger
}

// Config holds the Director's construction parameters.
type Config struct {
	Client        llm.Client
	Assembler     *Assembler
	Cameras       []string
	DefaultCamera string
	MaxAttempts   int
	MinShotSecs   float64
	Logger        *slog.Logger
}

// New creates a Director.
func New(cfg Config) (*Director, error) {
	if len(cfg.Cameras) == 0 {
		return nil, fmt.Errorf("at least one camera is required")
	}
	if cfg.DefaultCamera == "" {
		cfg.DefaultCamera = cfg.Cameras[0]
	}
	if err := edit.KnownCameras([]edit.CutInstruction{{Camera: cfg.DefaultCamera}}, cfg.Cameras); err != nil {
		return nil, fmt.Errorf("default camera: %w", err)
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.MinShotSecs <= 0 {
		cfg.MinShotSecs = 2.0
	}
	return &Director{
		client:        cfg.Client,
		assembler:     cfg.Assembler,
		cameras:       cfg.Cameras,
		defaultCamera: cfg.DefaultCamera,
		maxAttempts:   cfg.MaxAttempts,
		minShotSecs:   cfg.MinShotSecs,
		logger:        cfg.Logger,
	}, nil
}

type cutsProposal struct {
	Cuts []edit.CutInstruction `json:"cuts"`
}

// EditChapter produces the cut list for one chapter. Unparseable responses
// and unknown camera references are retried up to the attempt budget;
// everything else (out-of-range cuts, gaps, overlaps) is repaired in place.
// After exhausted retries the chapter falls back to a single default-camera
// filler and is marked degraded. Only context cancellation is an error.
func (d *Director) EditChapter(ctx context.Context, ch edit.Chapter) (edit.ChapterEDL, error) {
	logger := logging.WithChapter(d.logger, ch.ID)

	ec := d.assembler.Assemble(ctx, ch.Start, ch.End, ch.Summary)

	system := fmt.Sprintf(systemPromptTemplate, d.minShotSecs, d.minShotSecs+1, strings.Join(d.cameras, ", "))
	user := fmt.Sprintf(`**CHAPTER TO EDIT:** %q (from %.1fs to %.1fs)

**GLOBAL CONTEXT FROM MEMORY:**
%s

**DETAILED LOCAL DATA FOR THIS CHAPTER:**
%s

Based on all this information, generate the JSON for the Edit Decision List.`,
		ch.Title, ch.Start, ch.End, ec.GlobalBlock(), ec.LocalBlock())

	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return edit.ChapterEDL{}, ctx.Err()
		}
		if attempt > 0 {
			if err := llm.Wait(ctx, llm.Backoff(attempt-1)); err != nil {
				return edit.ChapterEDL{}, err
			}
		}

		raw, err := d.client.Complete(ctx, llm.Request{System: system, User: user, JSONMode: true})
		if err != nil {
			if errors.Is(err, llm.ErrUnavailable) || errors.Is(err, llm.ErrSchemaViolation) {
				logger.Warn("director call failed", "attempt", attempt+1, "error", err)
				continue
			}
			return edit.ChapterEDL{}, fmt.Errorf("edit chapter %s: %w", ch.ID, err)
		}

		var proposal cutsProposal
		if err := llm.DecodeJSON(raw, &proposal); err != nil {
			logger.Warn("director returned malformed output", "attempt", attempt+1, "error", err)
			continue
		}

		if err := edit.KnownCameras(proposal.Cuts, d.cameras); err != nil {
			logger.Warn("director referenced unknown camera", "attempt", attempt+1, "error", err)
			continue
		}

		cuts, repairs := edit.RepairCuts(proposal.Cuts, ch, d.defaultCamera)
		for _, r := range repairs {
			logger.Warn("cut list repaired", "code", r.Code, "detail", r.Detail)
		}
		if err := edit.ValidateCuts(cuts, ch); err != nil {
			// Repair guarantees coverage; reaching this is an internal bug.
			return edit.ChapterEDL{}, fmt.Errorf("repaired cuts for chapter %s still invalid: %w", ch.ID, err)
		}

		logger.Info("chapter edited", "cuts", len(cuts), "repairs", len(repairs), "attempt", attempt+1)
		return edit.ChapterEDL{
			ChapterID: ch.ID,
			Degraded:  ec.Degraded,
			Cuts:      cuts,
		}, nil
	}

	logger.Warn("director retries exhausted, falling back to filler shot", "camera", d.defaultCamera)
	return edit.ChapterEDL{
		ChapterID: ch.ID,
		Degraded:  true,
		Cuts: []edit.CutInstruction{{
			Start:  ch.Start,
			End:    ch.End,
			Camera: d.defaultCamera,
		}},
	}, nil
}
