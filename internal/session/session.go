// Package session assembles the pieces of one babyseg invocation: the
// effective image reference, the resolved container tool, the SIF store,
// and a launcher wired to all three. Flags override environment settings,
// which override built-in defaults.
package session

import (
	"github.com/freesurfer/babyseg/internal/containertool"
	"github.com/freesurfer/babyseg/internal/fsops"
	"github.com/freesurfer/babyseg/internal/imageref"
	"github.com/freesurfer/babyseg/internal/launcher"
	"github.com/freesurfer/babyseg/internal/mount"
	"github.com/freesurfer/babyseg/internal/runtime"
	"github.com/freesurfer/babyseg/internal/sifstore"
	"github.com/freesurfer/babyseg/internal/version"
)

// Overrides are the flag-level knobs commands pass in. Empty values defer
// to the environment, then to defaults.
type Overrides struct {
	Tag      string // full image tag
	Platform string // platform suffix composed into the default tag
	Tool     string // container tool name or absolute path
	SIF      string // SIF store directory or explicit file
	Mount    string // host directory to bind
}

// Session is a fully resolved invocation.
type Session struct {
	Settings *runtime.Settings
	Ref      imageref.Ref
	Store    *sifstore.Store
	Launcher *launcher.Launcher

	ops    fsops.Ops
	mountD string
}

// New resolves the session. Tool and store resolution happen eagerly so
// configuration mistakes surface before any work starts.
func New(rt *runtime.Runtime, ov Overrides) (*Session, error) {
	ops := fsops.DefaultOps()
	settings := rt.Settings()

	ref, err := resolveRef(settings, ov)
	if err != nil {
		return nil, err
	}

	toolOverride := ov.Tool
	if toolOverride == "" {
		toolOverride = settings.Tool
	}
	tool, err := containertool.NewResolver(ops).Resolve(toolOverride)
	if err != nil {
		return nil, err
	}

	sifLocation := ov.SIF
	if sifLocation == "" {
		sifLocation = settings.SIFPath
	}
	store, err := sifstore.New(ops, sifLocation)
	if err != nil {
		return nil, err
	}

	mountDir := ov.Mount
	if mountDir == "" {
		mountDir = settings.MountDir
	}

	return &Session{
		Settings: settings,
		Ref:      ref,
		Store:    store,
		Launcher: launcher.New(tool, store),
		ops:      ops,
		mountD:   mountDir,
	}, nil
}

// ResolveBind maps the effective host directory (flag, then environment,
// then the working directory) to the container mount point.
func (s *Session) ResolveBind() (mount.Bind, error) {
	return mount.NewMapper(s.ops).Resolve(s.mountD)
}

// Tool returns the resolved container tool.
func (s *Session) Tool() containertool.Tool {
	return s.Launcher.Tool()
}

// resolveRef picks the image reference: the BABYSEG_DOCKER_NAME repository
// (or the released one), with an explicit tag flag, then the environment
// tag, then the released model version composed with the requested platform.
func resolveRef(settings *runtime.Settings, ov Overrides) (imageref.Ref, error) {
	repo := settings.Repository()
	tag := ov.Tag
	if tag == "" {
		tag = settings.Tag
	}
	if tag == "" {
		tag = imageref.ComposeTag(version.ModelVersion, ov.Platform)
	}
	return imageref.New(repo, tag)
}
