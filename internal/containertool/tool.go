// Package containertool selects the container runtime used to run BabySeg.
package containertool

import "errors"

// Kind is the family a runtime binary belongs to. It decides both the
// artifact format (registry image vs. SIF file) and the run argv shape.
type Kind string

const (
	KindDocker      Kind = "docker"
	KindPodman      Kind = "podman"
	KindApptainer   Kind = "apptainer"
	KindSingularity Kind = "singularity"
)

// Priority is the default search order when no tool is configured,
// checked left to right.
var Priority = []Kind{KindDocker, KindApptainer, KindSingularity, KindPodman}

var (
	ErrNoToolFound   = errors.New("no container runtime found")
	ErrToolNotFound  = errors.New("container tool not found")
	ErrUnknownTool   = errors.New("unknown container tool")
	ErrNotExecutable = errors.New("container tool is not executable")
)

// Tool is a resolved container runtime binary.
type Tool struct {
	Kind Kind
	Path string // absolute path to the binary
}

// KindOf maps a binary basename to its runtime family.
func KindOf(name string) (Kind, bool) {
	switch Kind(name) {
	case KindDocker, KindPodman, KindApptainer, KindSingularity:
		return Kind(name), true
	}
	return "", false
}

// UsesSIF reports whether the runtime consumes single-file SIF images.
func (k Kind) UsesSIF() bool {
	return k == KindApptainer || k == KindSingularity
}

// Daemon reports whether the runtime runs registry images through an image
// store (Docker daemon or Podman's local storage).
func (k Kind) Daemon() bool {
	return k == KindDocker || k == KindPodman
}

func (k Kind) String() string {
	return string(k)
}
