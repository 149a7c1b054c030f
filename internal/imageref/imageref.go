// Package imageref models BabySeg container image references: a repository
// plus a tag that encodes the model version and an optional accelerator
// platform suffix ("0.0", "0.0-cu126").
package imageref

import (
	"fmt"
	"path"
	"strings"
	"unicode"
)

// DefaultRepository is the Docker Hub repository BabySeg releases live in.
const DefaultRepository = "freesurfer/babyseg"

// PlatformCPU is the platform value that composes into a bare version tag.
const PlatformCPU = "cpu"

// Ref identifies one container image.
type Ref struct {
	Repository string // e.g. "freesurfer/babyseg"
	Tag        string // e.g. "0.0-cu126"
}

func New(repository, tag string) (Ref, error) {
	if repository == "" {
		return Ref{}, fmt.Errorf("imageref: empty repository")
	}
	if tag == "" {
		return Ref{}, fmt.Errorf("imageref: empty tag")
	}
	if sanitizeTag(tag) != tag {
		return Ref{}, fmt.Errorf("imageref: tag %q contains invalid characters", tag)
	}
	return Ref{Repository: repository, Tag: tag}, nil
}

// ComposeTag builds a tag from a version string and a platform suffix.
// The CPU platform (or an empty one) yields a bare version tag:
//
//	ComposeTag("0.0", "cpu")   → "0.0"
//	ComposeTag("0.0", "cu126") → "0.0-cu126"
func ComposeTag(version, platform string) string {
	if platform == "" || platform == PlatformCPU {
		return version
	}
	return version + "-" + platform
}

// Version returns the version core of the tag, before any platform suffix.
func (r Ref) Version() string {
	v, _, _ := strings.Cut(r.Tag, "-")
	return v
}

// Platform returns the platform suffix of the tag, or "cpu" when absent.
func (r Ref) Platform() string {
	_, p, found := strings.Cut(r.Tag, "-")
	if !found || p == "" {
		return PlatformCPU
	}
	return p
}

// String renders the reference the way daemon tools consume it.
func (r Ref) String() string {
	return r.Repository + ":" + r.Tag
}

// DockerURL renders the reference the way Apptainer and Singularity consume
// registry images.
func (r Ref) DockerURL() string {
	return "docker://" + r.String()
}

// DaemonURL renders the reference the way Apptainer and Singularity consume
// images from a local Docker daemon.
func (r Ref) DaemonURL() string {
	return "docker-daemon://" + r.String()
}

// SIFFileName derives the deterministic on-disk name of the converted image:
// the repository basename and the tag, with the ":" separator replaced by "_".
//
//	freesurfer/babyseg:0.0-cu126 → babyseg_0.0-cu126.sif
func (r Ref) SIFFileName() string {
	return path.Base(r.Repository) + "_" + r.Tag + ".sif"
}

// GPU reports whether the tag names an accelerator build. Tags carry a
// "-cu<version>" suffix for CUDA releases; "-gpu" is accepted as a generic
// marker.
func (r Ref) GPU() bool {
	return NameNeedsGPU(r.Tag)
}

// NameNeedsGPU applies the accelerator suffix check to any artifact name,
// including SIF filenames of user-provided images.
func NameNeedsGPU(name string) bool {
	return strings.Contains(name, "-cu") || strings.Contains(name, "-gpu")
}

// sanitizeTag keeps only [A-Za-z0-9_.-], lowercases, and trims leading
// '.'/'-', which matches what the Docker daemon accepts in a tag.
func sanitizeTag(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			// else drop
		}
	}
	out := b.String()
	out = strings.TrimLeft(out, ".-")
	return out
}
