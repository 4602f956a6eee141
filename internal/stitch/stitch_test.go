package stitch

import (
	"testing"

	"github.com/roughcut/roughcut-agent/internal/edit"
)

func twoChapterFixture() ([]edit.Chapter, *edit.DirectorEdits) {
	chapters := []edit.Chapter{
		{ID: "ch_001", Start: 0, End: 100},
		{ID: "ch_002", Start: 100, End: 180},
	}
	edits := &edit.DirectorEdits{
		SchemaVersion: edit.SchemaVersion,
		EDLs: []edit.ChapterEDL{
			{ChapterID: "ch_001", Cuts: []edit.CutInstruction{
				{Start: 0, End: 60, Camera: "cam_host"},
				{Start: 60, End: 100, Camera: "cam_wide"},
			}},
			{ChapterID: "ch_002", Cuts: []edit.CutInstruction{
				{Start: 100, End: 140, Camera: "cam_wide"},
				{Start: 140, End: 180, Camera: "cam_guest"},
			}},
		},
	}
	return chapters, edits
}

func TestStitch_MergesBoundaryCut(t *testing.T) {
	chapters, edits := twoChapterFixture()

	got, err := Stitch(chapters, edits)
	if err != nil {
		t.Fatalf("Stitch() error = %v", err)
	}

	// cam_wide ends ch_001 and opens ch_002; the boundary cut disappears.
	if len(got.Cuts) != 3 {
		t.Fatalf("cuts = %+v, want 3 after boundary merge", got.Cuts)
	}
	merged := got.Cuts[1]
	if merged.Camera != "cam_wide" || merged.Start != 60 || merged.End != 140 {
		t.Fatalf("merged cut = %+v, want cam_wide [60, 140)", merged)
	}
	if err := edit.ValidateTimeline(got, 0, 180); err != nil {
		t.Fatalf("stitched timeline invalid: %v", err)
	}
}

func TestStitch_KeepsBoundaryWhenCamerasDiffer(t *testing.T) {
	chapters, edits := twoChapterFixture()
	edits.EDLs[1].Cuts[0].Camera = "cam_host"

	got, err := Stitch(chapters, edits)
	if err != nil {
		t.Fatalf("Stitch() error = %v", err)
	}
	if len(got.Cuts) != 4 {
		t.Fatalf("cuts = %+v, want all 4 kept", got.Cuts)
	}
}

func TestStitch_MissingChapterEDL(t *testing.T) {
	chapters, edits := twoChapterFixture()
	edits.EDLs = edits.EDLs[:1]

	if _, err := Stitch(chapters, edits); err == nil {
		t.Fatalf("Stitch() = nil with missing EDL, want error")
	}
}

func TestStitch_InvalidChapterEDL(t *testing.T) {
	chapters, edits := twoChapterFixture()
	edits.EDLs[0].Cuts = edits.EDLs[0].Cuts[:1] // ch_001 no longer covered

	if _, err := Stitch(chapters, edits); err == nil {
		t.Fatalf("Stitch() = nil with gappy EDL, want error")
	}
}

func TestStitch_AssociativeInChapterOrder(t *testing.T) {
	chapters := []edit.Chapter{
		{ID: "a", Start: 0, End: 50},
		{ID: "b", Start: 50, End: 90},
		{ID: "c", Start: 90, End: 130},
	}
	edits := &edit.DirectorEdits{EDLs: []edit.ChapterEDL{
		{ChapterID: "a", Cuts: []edit.CutInstruction{{Start: 0, End: 50, Camera: "x"}}},
		{ChapterID: "b", Cuts: []edit.CutInstruction{{Start: 50, End: 90, Camera: "x"}}},
		{ChapterID: "c", Cuts: []edit.CutInstruction{{Start: 90, End: 130, Camera: "y"}}},
	}}

	all, err := Stitch(chapters, edits)
	if err != nil {
		t.Fatalf("Stitch(all) error = %v", err)
	}

	// ((a+b)+c) via explicit folds.
	ab := Append(edit.Timeline{}, edits.EDLs[0].Cuts)
	ab = Append(ab, edits.EDLs[1].Cuts)
	abc := Append(ab, edits.EDLs[2].Cuts)

	// (a+(b+c)): stitch b and c first, then fold onto a.
	bc := Append(edit.Timeline{}, edits.EDLs[1].Cuts)
	bc = Append(bc, edits.EDLs[2].Cuts)
	acb := Append(Append(edit.Timeline{}, edits.EDLs[0].Cuts), bc.Cuts)

	for _, variant := range []edit.Timeline{abc, acb} {
		if len(variant.Cuts) != len(all.Cuts) {
			t.Fatalf("grouping changed result: %+v vs %+v", variant.Cuts, all.Cuts)
		}
		for i := range all.Cuts {
			if variant.Cuts[i] != all.Cuts[i] {
				t.Fatalf("grouping changed cut %d: %+v vs %+v", i, variant.Cuts[i], all.Cuts[i])
			}
		}
	}
}

func TestStitch_IdempotentOnStitchedTimeline(t *testing.T) {
	chapters, edits := twoChapterFixture()

	once, err := Stitch(chapters, edits)
	if err != nil {
		t.Fatalf("Stitch() error = %v", err)
	}

	// Re-stitch the result as a single giant chapter.
	whole := []edit.Chapter{{ID: "all", Start: 0, End: 180}}
	again, err := Stitch(whole, &edit.DirectorEdits{EDLs: []edit.ChapterEDL{
		{ChapterID: "all", Cuts: once.Cuts},
	}})
	if err != nil {
		t.Fatalf("re-Stitch() error = %v", err)
	}

	if len(again.Cuts) != len(once.Cuts) {
		t.Fatalf("re-stitching changed the timeline: %+v vs %+v", again.Cuts, once.Cuts)
	}
	for i := range once.Cuts {
		if again.Cuts[i] != once.Cuts[i] {
			t.Fatalf("cut %d changed: %+v vs %+v", i, again.Cuts[i], once.Cuts[i])
		}
	}
}

func TestAppend_DoesNotMutateInput(t *testing.T) {
	base := Append(edit.Timeline{}, []edit.CutInstruction{{Start: 0, End: 10, Camera: "x"}})
	_ = Append(base, []edit.CutInstruction{{Start: 10, End: 20, Camera: "x"}})

	if base.Cuts[0].End != 10 {
		t.Fatalf("Append mutated its input: %+v", base.Cuts)
	}
}
