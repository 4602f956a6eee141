package annotate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SchemaVersion identifies the annotation document layout this agent writes
// and accepts.
const SchemaVersion = "1.0"

// Document is the persisted serialization of an annotation store. It is the
// first artifact of a run and the restart boundary between ingestion and the
// editorial passes.
type Document struct {
	SchemaVersion string           `json:"schema_version"`
	RecordingID   string           `json:"recording_id,omitempty"`
	Words         []TranscriptWord `json:"master_audio_log"`
	Moments       []VisualMoment   `json:"video_log"`
}

// LoadDocument reads and validates an annotation document from disk.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read annotation document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse annotation document: %w", err)
	}

	if doc.SchemaVersion == "" {
		return nil, fmt.Errorf("annotation document missing schema_version")
	}

	for i, w := range doc.Words {
		if w.Start < 0 || w.End < w.Start {
			return nil, fmt.Errorf("annotation document word %d has invalid interval [%v, %v]", i, w.Start, w.End)
		}
	}
	for i, m := range doc.Moments {
		if m.Timestamp < 0 {
			return nil, fmt.Errorf("annotation document moment %d has negative timestamp %v", i, m.Timestamp)
		}
	}

	return &doc, nil
}

// Save writes the document as indented JSON, creating parent directories.
func (d *Document) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode annotation document: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write annotation document: %w", err)
	}
	return nil
}

// Store builds the immutable time-indexed store from the document.
func (d *Document) Store() *Store {
	return NewStore(d.Words, d.Moments)
}

// LoadStore is a convenience for the common load-then-index path.
func LoadStore(path string) (*Store, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}
	return doc.Store(), nil
}
