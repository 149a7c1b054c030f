package containertool

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/freesurfer/babyseg/internal/fsops"
	"github.com/freesurfer/babyseg/internal/fsops/mocks"
)

type fakeFileInfo struct {
	name string
	mode fs.FileMode
}

func (f fakeFileInfo) Name() string       { return f.name }
func (f fakeFileInfo) Size() int64        { return 0 }
func (f fakeFileInfo) Mode() fs.FileMode  { return f.mode }
func (f fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (f fakeFileInfo) IsDir() bool        { return f.mode.IsDir() }
func (f fakeFileInfo) Sys() any           { return nil }

func newTestOps(ctrl *gomock.Controller) (fsops.Ops, *mocks.MockOSOps, *mocks.MockExecOps) {
	osOps := mocks.NewMockOSOps(ctrl)
	execOps := mocks.NewMockExecOps(ctrl)
	ops := fsops.Ops{
		Path: fsops.DefaultOps().Path,
		OS:   osOps,
		Exec: execOps,
	}
	return ops, osOps, execOps
}

func TestResolvePriorityPicksFirstAvailable(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	ops, _, execOps := newTestOps(ctrl)

	execOps.EXPECT().LookPath("docker").Return("/usr/bin/docker", nil)

	tool, err := NewResolver(ops).Resolve("")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if tool.Kind != KindDocker || tool.Path != "/usr/bin/docker" {
		t.Fatalf("Resolve() = %+v, want docker at /usr/bin/docker", tool)
	}
}

func TestResolvePriorityFallsThrough(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	ops, _, execOps := newTestOps(ctrl)

	notFound := errors.New("executable file not found in $PATH")
	execOps.EXPECT().LookPath("docker").Return("", notFound)
	execOps.EXPECT().LookPath("apptainer").Return("", notFound)
	execOps.EXPECT().LookPath("singularity").Return("/opt/bin/singularity", nil)

	tool, err := NewResolver(ops).Resolve("")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if tool.Kind != KindSingularity {
		t.Fatalf("Resolve() kind = %s, want singularity", tool.Kind)
	}
}

func TestResolveNoToolFound(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	ops, _, execOps := newTestOps(ctrl)

	notFound := errors.New("executable file not found in $PATH")
	for _, kind := range Priority {
		execOps.EXPECT().LookPath(string(kind)).Return("", notFound)
	}

	_, err := NewResolver(ops).Resolve("")
	if !errors.Is(err, ErrNoToolFound) {
		t.Fatalf("Resolve() error = %v, want ErrNoToolFound", err)
	}
}

func TestResolveNamedOverride(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	ops, _, execOps := newTestOps(ctrl)

	execOps.EXPECT().LookPath("podman").Return("/usr/bin/podman", nil)

	tool, err := NewResolver(ops).Resolve("podman")
	if err != nil {
		t.Fatalf("Resolve(podman) error = %v", err)
	}
	if tool.Kind != KindPodman || tool.Path != "/usr/bin/podman" {
		t.Fatalf("Resolve(podman) = %+v", tool)
	}
}

func TestResolveNamedOverrideUnknown(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	ops, _, _ := newTestOps(ctrl)

	// Even a name that exists on PATH is rejected when it is not one of
	// the supported runtimes; no LookPath call should happen.
	_, err := NewResolver(ops).Resolve("ls")
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("Resolve(ls) error = %v, want ErrUnknownTool", err)
	}
}

func TestResolveNamedOverrideMissing(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	ops, _, execOps := newTestOps(ctrl)

	execOps.EXPECT().LookPath("apptainer").Return("", errors.New("not found"))

	_, err := NewResolver(ops).Resolve("apptainer")
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("Resolve(apptainer) error = %v, want ErrToolNotFound", err)
	}
}

func TestResolveAbsolutePath(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	ops, osOps, _ := newTestOps(ctrl)

	path := filepath.Join("/opt", "tools", "singularity")
	osOps.EXPECT().Stat(path).Return(fakeFileInfo{name: "singularity", mode: 0o755}, nil)

	tool, err := NewResolver(ops).Resolve(path)
	if err != nil {
		t.Fatalf("Resolve(%s) error = %v", path, err)
	}
	if tool.Kind != KindSingularity || tool.Path != path {
		t.Fatalf("Resolve(%s) = %+v", path, tool)
	}
}

func TestResolveAbsolutePathMissing(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	ops, osOps, _ := newTestOps(ctrl)

	osOps.EXPECT().Stat("/no/such/docker").Return(nil, fs.ErrNotExist)

	_, err := NewResolver(ops).Resolve("/no/such/docker")
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("Resolve() error = %v, want ErrToolNotFound", err)
	}
}

func TestResolveAbsolutePathUnknownBasename(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	ops, osOps, _ := newTestOps(ctrl)

	osOps.EXPECT().Stat("/usr/bin/crun").Return(fakeFileInfo{name: "crun", mode: 0o755}, nil)

	_, err := NewResolver(ops).Resolve("/usr/bin/crun")
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("Resolve() error = %v, want ErrUnknownTool", err)
	}
}

func TestResolveAbsolutePathNotExecutable(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	ops, osOps, _ := newTestOps(ctrl)

	osOps.EXPECT().Stat("/usr/bin/docker").Return(fakeFileInfo{name: "docker", mode: 0o644}, nil)

	_, err := NewResolver(ops).Resolve("/usr/bin/docker")
	if !errors.Is(err, ErrNotExecutable) {
		t.Fatalf("Resolve() error = %v, want ErrNotExecutable", err)
	}
}

func TestKindProperties(t *testing.T) {
	t.Parallel()

	if !KindApptainer.UsesSIF() || !KindSingularity.UsesSIF() {
		t.Fatal("apptainer and singularity should use SIF images")
	}
	if KindDocker.UsesSIF() || KindPodman.UsesSIF() {
		t.Fatal("docker and podman should not use SIF images")
	}
	if !KindDocker.Daemon() || !KindPodman.Daemon() {
		t.Fatal("docker and podman should be daemon-style runtimes")
	}
}
