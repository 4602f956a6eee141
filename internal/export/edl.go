package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/roughcut/roughcut-agent/internal/edit"
)

// GenerateEDL serializes a stitched timeline in CMX3600 format. The camera id
// doubles as the reel name, and because a camera-cut timeline removes no
// material the record timecodes equal the source timecodes.
func GenerateEDL(timeline edit.Timeline, cameras []Camera, title string, frameRate float64) (string, error) {
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

	isDropFrame := math.Abs(frameRate-29.97) < 0.01 || math.Abs(frameRate-59.94) < 0.01

	lines := []string{fmt.Sprintf("TITLE: %s", SanitizeName(title, 70))}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	for i, cut := range timeline.Cuts {
		cam, ok := byID[cut.Camera]
		if !ok {
			return "", fmt.Errorf("cut at %.3fs references unknown camera %q", cut.Start, cut.Camera)
		}

		in := secondsToTimecode(cut.Start, fps)
		out := secondsToTimecode(cut.End, fps)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, reelName(cut.Camera), "V", in, out, in, out),
			fmt.Sprintf("* FROM CLIP NAME:  %s", assetName(cam)),
		)
		if cam.Media != "" {
			lines = append(lines, fmt.Sprintf("* MEDIA PATH:  %s", cam.Media))
		}
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n"), nil
}

// reelName compresses a camera id into the 8-character alphanumeric reel
// field CMX3600 allows.
func reelName(camera string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(camera) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() >= 8 {
			break
		}
	}
	if b.Len() == 0 {
		return "AX"
	}
	return b.String()
}

func secondsToTimecode(seconds float64, fps int) string {
	totalFrames := int(math.Round(seconds * float64(fps)))
	if totalFrames < 0 {
		totalFrames = 0
	}
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	secs := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, secs, frames)
}
