package dockerclient

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
)

// ImageInfo summarizes one local image for listing.
type ImageInfo struct {
	ID      string
	Tags    []string
	Size    int64
	Created time.Time
}

type DockerImageLister interface {
	ListImages(ctx context.Context, repository string) ([]ImageInfo, error)
	RemoveImage(ctx context.Context, ref string) error
}

// ListImages returns the local images belonging to repository.
func (dc *dockerClient) ListImages(ctx context.Context, repository string) ([]ImageInfo, error) {
	args := filters.NewArgs()
	args.Add("reference", repository)

	summaries, err := dc.client.ImageList(ctx, image.ListOptions{Filters: args})
	if err != nil {
		return nil, fmt.Errorf("image list: %w", err)
	}

	out := make([]ImageInfo, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, ImageInfo{
			ID:      s.ID,
			Tags:    s.RepoTags,
			Size:    s.Size,
			Created: time.Unix(s.Created, 0),
		})
	}
	return out, nil
}

// RemoveImage removes ref and prunes its now-unused parent layers.
func (dc *dockerClient) RemoveImage(ctx context.Context, ref string) error {
	_, err := dc.client.ImageRemove(ctx, ref, image.RemoveOptions{
		Force:         true,
		PruneChildren: true,
	})
	if err != nil {
		return fmt.Errorf("image remove %s: %w", ref, err)
	}
	return nil
}
