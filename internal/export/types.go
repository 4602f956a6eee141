package export

import "fmt"

// Camera describes one source angle available to the serializers: the id used
// by cut instructions, a human label, and the media file the angle was
// recorded to.
type Camera struct {
	ID    string
	Label string
	Media string
}

func indexCameras(cameras []Camera) (map[string]Camera, error) {
	if len(cameras) == 0 {
		return nil, fmt.Errorf("at least one camera is required")
	}
	byID := make(map[string]Camera, len(cameras))
	for _, cam := range cameras {
		if cam.ID == "" {
			return nil, fmt.Errorf("camera id is required")
		}
		if _, ok := byID[cam.ID]; ok {
			return nil, fmt.Errorf("duplicate camera id %q", cam.ID)
		}
		byID[cam.ID] = cam
	}
	return byID, nil
}
