package director

import (
	"context"
	"sync"

	"github.com/roughcut/roughcut-agent/internal/edit"
)

// EditAll edits every chapter on a bounded worker pool. Chapters share no
// mutable state, so completion order is irrelevant; results are joined back
// into chapter order before returning. The first context cancellation
// aborts the whole pass.
func (d *Director) EditAll(ctx context.Context, chapters []edit.Chapter, maxConcurrent int) (*edit.DirectorEdits, error) {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, maxConcurrent)
	results := make([]edit.ChapterEDL, len(chapters))
	errs := make([]error, len(chapters))

	var wg sync.WaitGroup
	for i, ch := range chapters {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		}

		wg.Add(1)
		go func(i int, ch edit.Chapter) {
			defer wg.Done()
			defer func() { <-sem }()

			edl, err := d.EditChapter(ctx, ch)
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			results[i] = edl
		}(i, ch)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return &edit.DirectorEdits{
		SchemaVersion: edit.SchemaVersion,
		EDLs:          results,
	}, nil
}
