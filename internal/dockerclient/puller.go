package dockerclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/image"

	"github.com/freesurfer/babyseg/internal/logs"
)

type DockerImagePuller interface {
	PullImage(ctx context.Context, imageRef string) error
}

// pullEvent is the subset of the daemon's pull progress stream we surface.
type pullEvent struct {
	Status   string `json:"status"`
	ID       string `json:"id"`
	Progress string `json:"progress"`
	Error    string `json:"error"`
}

// PullImage pulls imageRef from its registry, streaming layer progress into
// a live tail box.
func (dc *dockerClient) PullImage(ctx context.Context, imageRef string) error {
	rc, err := dc.client.ImagePull(ctx, imageRef, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("image pull %s: %w", imageRef, err)
	}
	defer rc.Close()

	tail := logs.NewTailBox("pull " + imageRef)
	defer tail.Close()

	dec := json.NewDecoder(rc)
	for {
		var ev pullEvent
		if err := dec.Decode(&ev); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("image pull %s: %w", imageRef, err)
		}
		if ev.Error != "" {
			return fmt.Errorf("image pull %s: %s", imageRef, ev.Error)
		}
		switch {
		case ev.ID != "" && ev.Progress != "":
			tail.Printf("%s: %s %s", ev.ID, ev.Status, ev.Progress)
		case ev.ID != "":
			tail.Printf("%s: %s", ev.ID, ev.Status)
		case ev.Status != "":
			tail.Println(ev.Status)
		}
	}
}
