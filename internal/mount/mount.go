// Package mount maps a host working directory to the fixed in-container
// mount point, so relative file arguments resolve inside the container.
package mount

import (
	"errors"
	"fmt"

	"github.com/freesurfer/babyseg/internal/fsops"
)

// ContainerPoint is where the host directory appears inside the container.
// The image makes it the working directory at build time.
const ContainerPoint = "/mnt"

var (
	ErrNotADirectory = errors.New("mount source is not a directory")
)

// Bind is one host-to-container path mapping.
type Bind struct {
	Host string
}

// Spec renders the bind the way docker -v and apptainer -B consume it.
// Docker and Podman require the host side to be absolute.
func (b Bind) Spec() string {
	return b.Host + ":" + ContainerPoint
}

// Mapper resolves the mount source directory.
type Mapper struct {
	ops fsops.Ops
}

func NewMapper(ops fsops.Ops) *Mapper {
	return &Mapper{ops: ops}
}

// Resolve returns the bind for the given host directory override. An empty
// override selects the current working directory. The source must exist as a
// directory; no file contents are transformed.
func (m *Mapper) Resolve(override string) (Bind, error) {
	host := override
	if host == "" {
		wd, err := m.ops.OS.Getwd()
		if err != nil {
			return Bind{}, fmt.Errorf("mount: resolve working directory: %w", err)
		}
		host = wd
	}

	abs, err := m.ops.Path.Abs(host)
	if err != nil {
		return Bind{}, fmt.Errorf("mount: resolve %q: %w", host, err)
	}
	abs = m.ops.Path.Clean(abs)

	info, err := m.ops.OS.Stat(abs)
	if err != nil {
		return Bind{}, fmt.Errorf("mount: source %q: %w", abs, err)
	}
	if !info.IsDir() {
		return Bind{}, fmt.Errorf("mount: source %q: %w", abs, ErrNotADirectory)
	}

	return Bind{Host: abs}, nil
}
