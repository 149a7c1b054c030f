package launcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/freesurfer/babyseg/internal/containertool"
	"github.com/freesurfer/babyseg/internal/fsops"
	"github.com/freesurfer/babyseg/internal/imageref"
	"github.com/freesurfer/babyseg/internal/mount"
	"github.com/freesurfer/babyseg/internal/sifstore"
)

// stubLauncher wires a Launcher to a shell script standing in for
// apptainer, recording each subcommand to callLog.
func stubLauncher(t *testing.T, script string) (*Launcher, string) {
	t.Helper()

	dir := t.TempDir()
	callLog := filepath.Join(dir, "calls.log")
	toolPath := filepath.Join(dir, "apptainer")
	body := "#!/bin/sh\necho \"$1\" >> \"" + callLog + "\"\n" + script + "\n"
	if err := os.WriteFile(toolPath, []byte(body), 0o755); err != nil {
		t.Fatalf("writing stub tool: %v", err)
	}

	storeDir := filepath.Join(dir, "images")
	if err := os.MkdirAll(storeDir, 0o755); err != nil {
		t.Fatalf("creating store dir: %v", err)
	}
	store, err := sifstore.New(fsops.DefaultOps(), storeDir)
	if err != nil {
		t.Fatalf("sifstore.New() error = %v", err)
	}
	l := New(containertool.Tool{Kind: containertool.KindApptainer, Path: toolPath}, store)
	return l, callLog
}

func calls(t *testing.T, callLog string) []string {
	t.Helper()
	data, err := os.ReadFile(callLog)
	if err != nil {
		t.Fatalf("reading call log: %v", err)
	}
	return strings.Fields(string(data))
}

func TestRunPullsMissingSIFFirst(t *testing.T) {
	t.Parallel()

	l, callLog := stubLauncher(t, "exit 0")
	ref, _ := imageref.New("freesurfer/babyseg", "0.0")

	err := l.Run(context.Background(), RunSpec{Ref: ref, Bind: mount.Bind{Host: "/data"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	got := calls(t, callLog)
	want := []string{"pull", "run"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tool calls = %v, want pull before run", got)
	}
}

func TestRunSkipsPullWhenSIFExists(t *testing.T) {
	t.Parallel()

	l, callLog := stubLauncher(t, "exit 0")
	ref, _ := imageref.New("freesurfer/babyseg", "0.0")
	if err := os.WriteFile(l.store.PathFor(ref), []byte("sif"), 0o644); err != nil {
		t.Fatalf("seeding SIF: %v", err)
	}

	if err := l.Run(context.Background(), RunSpec{Ref: ref, Bind: mount.Bind{Host: "/data"}}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got := calls(t, callLog); !reflect.DeepEqual(got, []string{"run"}) {
		t.Fatalf("tool calls = %v, want run only", got)
	}
}

func TestRunPropagatesPullFailure(t *testing.T) {
	t.Parallel()

	l, callLog := stubLauncher(t, `if [ "$1" = "pull" ]; then exit 3; fi
exit 0`)
	ref, _ := imageref.New("freesurfer/babyseg", "0.0")

	err := l.Run(context.Background(), RunSpec{Ref: ref, Bind: mount.Bind{Host: "/data"}})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 3 {
		t.Fatalf("Run() error = %v, want exit code 3 from the failed pull", err)
	}
	if got := calls(t, callLog); !reflect.DeepEqual(got, []string{"pull"}) {
		t.Fatalf("tool calls = %v, want no run after a failed pull", got)
	}
}

func TestRunPropagatesContainerExitCode(t *testing.T) {
	t.Parallel()

	l, _ := stubLauncher(t, `if [ "$1" = "run" ]; then exit 9; fi
exit 0`)
	ref, _ := imageref.New("freesurfer/babyseg", "0.0")

	err := l.Run(context.Background(), RunSpec{Ref: ref, Bind: mount.Bind{Host: "/data"}})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 9 {
		t.Fatalf("Run() error = %v, want the container's exit code 9", err)
	}
}

func TestPodmanRunArgs(t *testing.T) {
	t.Parallel()

	ref, _ := imageref.New("freesurfer/babyseg", "0.0")
	bind := mount.Bind{Host: "/data/subjects"}

	got := podmanRunArgs(ref, bind, false, []string{"--threads", "4"})
	want := []string{"run", "--rm", "-v", "/data/subjects:/mnt", "docker://freesurfer/babyseg:0.0", "--threads", "4"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("podmanRunArgs() = %v, want %v", got, want)
	}

	// A terminal adds -t; podman never gets a -u flag, it remaps the
	// invoking user by itself.
	got = podmanRunArgs(ref, bind, true, nil)
	for _, arg := range got {
		if arg == "-u" {
			t.Fatal("podman args must not carry -u")
		}
	}
	if got[len(got)-2] != "-t" {
		t.Fatalf("podmanRunArgs(tty) = %v, want -t before the image", got)
	}
}

func TestSIFRunArgs(t *testing.T) {
	t.Parallel()

	bind := mount.Bind{Host: "/data/subjects"}

	got := sifRunArgs("/images/babyseg_0.0.sif", bind, false, []string{"--threads", "4"})
	want := []string{"run", "--pwd", "/mnt", "-e", "-B", "/data/subjects:/mnt", "/images/babyseg_0.0.sif", "--threads", "4"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sifRunArgs() = %v, want %v", got, want)
	}

	got = sifRunArgs("/images/babyseg_0.0-cu126.sif", bind, true, nil)
	want = []string{"run", "--pwd", "/mnt", "-e", "-B", "/data/subjects:/mnt", "--nv", "/images/babyseg_0.0-cu126.sif"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sifRunArgs(gpu) = %v, want %v", got, want)
	}
}

func TestSIFPullArgs(t *testing.T) {
	t.Parallel()

	ref, _ := imageref.New("freesurfer/babyseg", "0.0-cu126")

	got := sifPullArgs("/images/babyseg_0.0-cu126.sif", ref, false)
	want := []string{"pull", "/images/babyseg_0.0-cu126.sif", "docker://freesurfer/babyseg:0.0-cu126"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sifPullArgs() = %v, want %v", got, want)
	}

	got = sifPullArgs("/images/babyseg_0.0-cu126.sif", ref, true)
	if got[1] != "--force" {
		t.Fatalf("sifPullArgs(force) = %v, want --force after pull", got)
	}
}

func TestSIFBuildArgs(t *testing.T) {
	t.Parallel()

	ref, _ := imageref.New("freesurfer/babyseg", "0.0")

	// Conversion reads the local daemon, not the registry.
	got := sifBuildArgs("/images/babyseg_0.0.sif", ref, false)
	want := []string{"build", "/images/babyseg_0.0.sif", "docker-daemon://freesurfer/babyseg:0.0"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sifBuildArgs() = %v, want %v", got, want)
	}

	got = sifBuildArgs("/images/babyseg_0.0.sif", ref, true)
	if got[1] != "--force" {
		t.Fatalf("sifBuildArgs(force) = %v, want --force after build", got)
	}
}

func TestExitErrorMessage(t *testing.T) {
	t.Parallel()

	err := &ExitError{Code: 42}
	if err.Error() != "container exited with code 42" {
		t.Fatalf("Error() = %s", err.Error())
	}
}
