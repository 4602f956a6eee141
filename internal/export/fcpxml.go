package export

import (
	"encoding/xml"
	"fmt"
	"math"
	"path/filepath"

	"github.com/roughcut/roughcut-agent/internal/edit"
)

const fcpxmlVersion = "1.9"

type fcpxmlDocument struct {
	XMLName   xml.Name     `xml:"fcpxml"`
	Version   string       `xml:"version,attr"`
	Resources fcpResources `xml:"resources"`
	Library   fcpLibrary   `xml:"library"`
}

type fcpResources struct {
	Format fcpFormat  `xml:"format"`
	Assets []fcpAsset `xml:"asset"`
}

type fcpFormat struct {
	ID            string `xml:"id,attr"`
	Name          string `xml:"name,attr"`
	FrameDuration string `xml:"frameDuration,attr"`
	Width         string `xml:"width,attr"`
	Height        string `xml:"height,attr"`
}

type fcpAsset struct {
	ID       string `xml:"id,attr"`
	Name     string `xml:"name,attr"`
	Src      string `xml:"src,attr"`
	HasVideo string `xml:"hasVideo,attr"`
	Format   string `xml:"format,attr"`
}

type fcpLibrary struct {
	Event fcpEvent `xml:"event"`
}

type fcpEvent struct {
	Name    string     `xml:"name,attr"`
	Project fcpProject `xml:"project"`
}

type fcpProject struct {
	Name     string      `xml:"name,attr"`
	Sequence fcpSequence `xml:"sequence"`
}

type fcpSequence struct {
	Format   string   `xml:"format,attr"`
	Duration string   `xml:"duration,attr"`
	TCFormat string   `xml:"tcFormat,attr"`
	Spine    fcpSpine `xml:"spine"`
}

type fcpSpine struct {
	Clips []fcpAssetClip `xml:"asset-clip"`
}

type fcpAssetClip struct {
	Name     string `xml:"name,attr"`
	Ref      string `xml:"ref,attr"`
	Offset   string `xml:"offset,attr"`
	Duration string `xml:"duration,attr"`
	Start    string `xml:"start,attr"`
	Format   string `xml:"format,attr"`
}

// GenerateFCPXML serializes a stitched timeline as an FCPXML 1.9 document
// importable by Final Cut Pro and Premiere Pro. Each camera gets its own
// asset resource; each cut becomes an asset-clip in the spine referencing
// that camera's asset, with source and record times kept identical so the
// exported sequence plays the recording straight through while switching
// angles.
func GenerateFCPXML(timeline edit.Timeline, cameras []Camera, projectName string, frameRate float64) (string, error) {
	byID, err := indexCameras(cameras)
	if err != nil {
		return "", err
	}
	if len(timeline.Cuts) == 0 {
		return "", fmt.Errorf("timeline has no cuts")
	}

	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = 30
	}

	const formatID = "r1"
	doc := fcpxmlDocument{
		Version: fcpxmlVersion,
		Resources: fcpResources{
			Format: fcpFormat{
				ID:            formatID,
				Name:          fmt.Sprintf("FFVideoFormat1080p%d", fps),
				FrameDuration: fmt.Sprintf("100/%ds", fps*100),
				Width:         "1920",
				Height:        "1080",
			},
		},
	}

	// Asset resource ids follow the format resource, in camera roster order.
	assetRef := make(map[string]string, len(cameras))
	for i, cam := range cameras {
		src := cam.Media
		if abs, absErr := filepath.Abs(src); absErr == nil {
			src = abs
		}
		id := fmt.Sprintf("r%d", i+2)
		assetRef[cam.ID] = id
		doc.Resources.Assets = append(doc.Resources.Assets, fcpAsset{
			ID:       id,
			Name:     assetName(cam),
			Src:      "file://" + src,
			HasVideo: "1",
			Format:   formatID,
		})
	}

	spine := fcpSpine{Clips: make([]fcpAssetClip, 0, len(timeline.Cuts))}
	for _, cut := range timeline.Cuts {
		cam, ok := byID[cut.Camera]
		if !ok {
			return "", fmt.Errorf("cut at %.3fs references unknown camera %q", cut.Start, cut.Camera)
		}
		spine.Clips = append(spine.Clips, fcpAssetClip{
			Name:     assetName(cam),
			Ref:      assetRef[cam.ID],
			Offset:   rationalTime(cut.Start, fps),
			Duration: rationalTime(cut.End-cut.Start, fps),
			Start:    rationalTime(cut.Start, fps),
			Format:   formatID,
		})
	}

	name := SanitizeName(projectName, 120)
	if name == "" {
		name = "Edited Podcast"
	}
	doc.Library = fcpLibrary{
		Event: fcpEvent{
			Name: name,
			Project: fcpProject{
				Name: name,
				Sequence: fcpSequence{
					Format:   formatID,
					Duration: rationalTime(timeline.End(), fps),
					TCFormat: "NDF",
					Spine:    spine,
				},
			},
		},
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal fcpxml: %w", err)
	}
	return xml.Header + string(out) + "\n", nil
}

func assetName(cam Camera) string {
	if cam.Label != "" {
		return cam.Label
	}
	return cam.ID
}

// rationalTime renders seconds as the frame-aligned rational FCPXML expects,
// e.g. 12.5s at 30fps becomes "375/30s".
func rationalTime(seconds float64, fps int) string {
	frames := int(math.Round(seconds * float64(fps)))
	if frames < 0 {
		frames = 0
	}
	return fmt.Sprintf("%d/%ds", frames, fps)
}
