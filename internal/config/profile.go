package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile holds the editorial settings for one podcast project: the camera
// roster, collaborator model choices, retry budgets, and export options.
type Profile struct {
	Cameras  []CameraProfile `yaml:"cameras"`
	Producer PassProfile     `yaml:"producer"`
	Director DirectorProfile `yaml:"director"`
	Memory   MemoryProfile   `yaml:"memory"`
	Stitch   StitchProfile   `yaml:"stitch"`
	Export   ExportProfile   `yaml:"export"`
}

type CameraProfile struct {
	ID      string `yaml:"id"`
	Label   string `yaml:"label"`
	Media   string `yaml:"media"`
	Default bool   `yaml:"default"`
}

type PassProfile struct {
	Backend     string `yaml:"backend"`
	Model       string `yaml:"model"`
	MaxAttempts int    `yaml:"max_attempts"`
}

type DirectorProfile struct {
	PassProfile   `yaml:",inline"`
	MaxConcurrent int     `yaml:"max_concurrent"`
	MinShotSecs   float64 `yaml:"min_shot_seconds"`
}

type MemoryProfile struct {
	EmbedModel string  `yaml:"embed_model"`
	ChunkSecs  float64 `yaml:"chunk_seconds"`
	TopK       int     `yaml:"top_k"`
}

type StitchProfile struct {
	Smoothing   bool    `yaml:"smoothing"`
	WindowSecs  float64 `yaml:"window_seconds"`
	MaxAttempts int     `yaml:"max_attempts"`
}

type ExportProfile struct {
	ProjectName string  `yaml:"project_name"`
	FrameRate   float64 `yaml:"frame_rate"`
}

// LoadProfile reads and validates a YAML project profile. An empty path
// returns the built-in default profile.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		p := DefaultProfile()
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return &p, nil
}

// DefaultProfile is the three-camera podcast setup the agent assumes when no
// profile is supplied.
func DefaultProfile() *Profile {
	p := &Profile{
		Cameras: []CameraProfile{
			{ID: "cam_host", Label: "Host close-up"},
			{ID: "cam_guest", Label: "Guest close-up"},
			{ID: "cam_wide", Label: "Wide shot", Default: true},
		},
	}
	// Validate fills the remaining defaults and cannot fail here.
	_ = p.Validate()
	return p
}

// Validate checks required fields and fills defaults for optional ones.
func (p *Profile) Validate() error {
	if len(p.Cameras) == 0 {
		return fmt.Errorf("cameras list is required")
	}

	seen := make(map[string]bool, len(p.Cameras))
	defaults := 0
	for i, cam := range p.Cameras {
		if cam.ID == "" {
			return fmt.Errorf("cameras[%d].id is required", i)
		}
		if seen[cam.ID] {
			return fmt.Errorf("duplicate camera id %q", cam.ID)
		}
		seen[cam.ID] = true
		if cam.Media == "" {
			p.Cameras[i].Media = fmt.Sprintf("input/%s.mp4", cam.ID)
		}
		if cam.Default {
			defaults++
		}
	}
	if defaults > 1 {
		return fmt.Errorf("only one camera may be marked default")
	}
	if defaults == 0 {
		p.Cameras[0].Default = true
	}

	if p.Producer.Backend == "" {
		p.Producer.Backend = "ollama"
	}
	if p.Producer.Model == "" {
		p.Producer.Model = "gemma3:4b"
	}
	if p.Producer.MaxAttempts == 0 {
		p.Producer.MaxAttempts = 3
	}

	if p.Director.Backend == "" {
		p.Director.Backend = "gemini"
	}
	if p.Director.Model == "" {
		p.Director.Model = "gemini-2.5-pro"
	}
	if p.Director.MaxAttempts == 0 {
		p.Director.MaxAttempts = 3
	}
	if p.Director.MaxConcurrent == 0 {
		p.Director.MaxConcurrent = 2
	}
	if p.Director.MinShotSecs == 0 {
		p.Director.MinShotSecs = 2.0
	}

	if p.Memory.EmbedModel == "" {
		p.Memory.EmbedModel = "nomic-embed-text"
	}
	if p.Memory.ChunkSecs == 0 {
		p.Memory.ChunkSecs = 5.0
	}
	if p.Memory.TopK == 0 {
		p.Memory.TopK = 2
	}

	if p.Stitch.WindowSecs == 0 {
		p.Stitch.WindowSecs = 3.0
	}
	if p.Stitch.MaxAttempts == 0 {
		p.Stitch.MaxAttempts = 1
	}

	if p.Export.ProjectName == "" {
		p.Export.ProjectName = "Roughcut Edit"
	}
	if p.Export.FrameRate == 0 {
		p.Export.FrameRate = 30
	}

	return nil
}

// CameraIDs returns the ordered camera ids.
func (p *Profile) CameraIDs() []string {
	ids := make([]string, len(p.Cameras))
	for i, cam := range p.Cameras {
		ids[i] = cam.ID
	}
	return ids
}

// DefaultCamera returns the id of the designated fallback camera.
func (p *Profile) DefaultCamera() string {
	for _, cam := range p.Cameras {
		if cam.Default {
			return cam.ID
		}
	}
	return p.Cameras[0].ID
}
