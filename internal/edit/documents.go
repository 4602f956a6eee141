package edit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SchemaVersion identifies the intermediate artifact layout.
const SchemaVersion = "1.0"

// StructuralMap is the persisted output of the structural pass.
type StructuralMap struct {
	SchemaVersion string    `json:"schema_version"`
	RecordingEnd  float64   `json:"recording_end"`
	Chapters      []Chapter `json:"chapters"`
}

// DirectorEdits is the persisted output of the chapter-editing pass, keyed by
// chapter id through each ChapterEDL.
type DirectorEdits struct {
	SchemaVersion string       `json:"schema_version"`
	EDLs          []ChapterEDL `json:"edits"`
}

// TimelineDocument is the persisted stitched timeline.
type TimelineDocument struct {
	SchemaVersion string   `json:"schema_version"`
	ProjectName   string   `json:"project_name,omitempty"`
	Timeline      Timeline `json:"timeline"`
}

// EDLByChapter returns the EDL for a chapter id, or false when the pass has
// not produced one.
func (d *DirectorEdits) EDLByChapter(id string) (ChapterEDL, bool) {
	for _, e := range d.EDLs {
		if e.ChapterID == id {
			return e, true
		}
	}
	return ChapterEDL{}, false
}

// DegradedChapters lists the chapter ids where fallback logic was used.
func (d *DirectorEdits) DegradedChapters() []string {
	var ids []string
	for _, e := range d.EDLs {
		if e.Degraded {
			ids = append(ids, e.ChapterID)
		}
	}
	return ids
}

// SaveArtifact writes any stage artifact as indented JSON, creating parent
// directories.
func SaveArtifact(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// LoadStructuralMap reads and validates a persisted structural map.
func LoadStructuralMap(path string) (*StructuralMap, error) {
	var m StructuralMap
	if err := loadArtifact(path, &m); err != nil {
		return nil, err
	}
	if err := ValidateChapters(m.Chapters, m.RecordingEnd); err != nil {
		return nil, fmt.Errorf("structural map %s: %w", path, err)
	}
	return &m, nil
}

// LoadDirectorEdits reads a persisted director-edits artifact.
func LoadDirectorEdits(path string) (*DirectorEdits, error) {
	var d DirectorEdits
	if err := loadArtifact(path, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadTimelineDocument reads a persisted timeline artifact.
func LoadTimelineDocument(path string) (*TimelineDocument, error) {
	var t TimelineDocument
	if err := loadArtifact(path, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func loadArtifact(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse artifact %s: %w", path, err)
	}

	var header struct {
		SchemaVersion string `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &header); err == nil && header.SchemaVersion == "" {
		return fmt.Errorf("artifact %s missing schema_version", path)
	}
	return nil
}
