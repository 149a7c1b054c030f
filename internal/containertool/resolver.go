package containertool

import (
	"fmt"

	"github.com/freesurfer/babyseg/internal/fsops"
	"github.com/freesurfer/babyseg/internal/logs"
)

// Resolver locates the container runtime binary to use for a run.
//
// Resolution is strict and short-circuiting:
//
//  1. If override is an absolute path, it must exist, be executable, and
//     its basename must be a known tool. No fallback happens past this.
//  2. If override is a bare name, it must be a known tool and must be
//     found on PATH. No fallback happens past this either.
//  3. With no override, the first tool from Priority found on PATH wins.
type Resolver struct {
	ops fsops.Ops
}

func NewResolver(ops fsops.Ops) *Resolver {
	return &Resolver{ops: ops}
}

// Resolve returns the tool selected by the rules above.
func (r *Resolver) Resolve(override string) (Tool, error) {
	if override == "" {
		return r.searchPriority()
	}
	if r.ops.Path.IsAbs(override) {
		return r.resolveAbsolute(override)
	}
	return r.resolveNamed(override)
}

func (r *Resolver) resolveAbsolute(path string) (Tool, error) {
	info, err := r.ops.OS.Stat(path)
	if err != nil {
		return Tool{}, fmt.Errorf("%w: %s: %v", ErrToolNotFound, path, err)
	}
	if info.IsDir() || info.Mode()&0o111 == 0 {
		return Tool{}, fmt.Errorf("%w: %s", ErrNotExecutable, path)
	}
	kind, ok := KindOf(r.ops.Path.Base(path))
	if !ok {
		return Tool{}, fmt.Errorf("%w: %s", ErrUnknownTool, path)
	}
	logs.Debugf("using configured container tool %s", path)
	return Tool{Kind: kind, Path: path}, nil
}

func (r *Resolver) resolveNamed(name string) (Tool, error) {
	kind, ok := KindOf(name)
	if !ok {
		return Tool{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	path, err := r.ops.Exec.LookPath(name)
	if err != nil {
		return Tool{}, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	logs.Debugf("using configured container tool %s (%s)", name, path)
	return Tool{Kind: kind, Path: path}, nil
}

func (r *Resolver) searchPriority() (Tool, error) {
	for _, kind := range Priority {
		path, err := r.ops.Exec.LookPath(string(kind))
		if err != nil {
			continue
		}
		logs.Debugf("found container tool %s", path)
		return Tool{Kind: kind, Path: path}, nil
	}
	return Tool{}, ErrNoToolFound
}
