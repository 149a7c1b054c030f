package dockerclient

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
)

type DockerContainerCleaner interface {
	RemoveContainers(ctx context.Context, namePrefix string) ([]string, error)
}

// RemoveContainers force-removes every container (running or not) whose
// name starts with namePrefix, and returns the removed names.
func (dc *dockerClient) RemoveContainers(ctx context.Context, namePrefix string) ([]string, error) {
	args := filters.NewArgs()
	args.Add("name", namePrefix)

	list, err := dc.client.ContainerList(ctx, container.ListOptions{All: true, Filters: args})
	if err != nil {
		return nil, fmt.Errorf("container list: %w", err)
	}

	var removed []string
	for _, c := range list {
		if err := dc.client.ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil {
			return removed, fmt.Errorf("container remove %s: %w", c.ID, err)
		}
		name := c.ID[:12]
		if len(c.Names) > 0 {
			name = c.Names[0]
		}
		removed = append(removed, name)
	}
	return removed, nil
}
