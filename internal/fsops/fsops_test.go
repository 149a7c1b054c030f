// Tests in this file cover the default filesystem operations wiring.
package fsops

import (
	"path/filepath"
	"testing"
)

func TestDefaultOpsPathMethods(t *testing.T) {
	t.Parallel()

	ops := DefaultOps()

	abs, err := ops.Path.Abs(".")
	if err != nil {
		t.Fatalf("Abs failed: %v", err)
	}
	if !ops.Path.IsAbs(abs) {
		t.Fatalf("Abs returned non-absolute path: %q", abs)
	}

	joined := ops.Path.Join("a", "b.sif")
	if joined != filepath.Join("a", "b.sif") {
		t.Fatalf("Join returned %q", joined)
	}

	clean := ops.Path.Clean(filepath.Join("a", "..", "fsops.go"))
	if clean != "fsops.go" {
		t.Fatalf("Clean returned %q, want %q", clean, "fsops.go")
	}

	if got := ops.Path.Base("/usr/bin/docker"); got != "docker" {
		t.Fatalf("Base returned %q, want %q", got, "docker")
	}

	if got := ops.Path.Ext("image_0.0.sif"); got != ".sif" {
		t.Fatalf("Ext returned %q, want %q", got, ".sif")
	}
}

func TestStdOSOps(t *testing.T) {
	t.Parallel()

	ops := DefaultOps()

	fi, err := ops.OS.Stat("fsops.go")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if fi.Name() != "fsops.go" {
		t.Fatalf("Stat returned file %q, want %q", fi.Name(), "fsops.go")
	}

	wd, err := ops.OS.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if !ops.Path.IsAbs(wd) {
		t.Fatalf("Getwd returned non-absolute path: %q", wd)
	}
}

func TestStdExecOpsLookPath(t *testing.T) {
	t.Parallel()

	ops := DefaultOps()

	// "go" may not be installed everywhere; "sh" is, on any platform we
	// support running containers on.
	p, err := ops.Exec.LookPath("sh")
	if err != nil {
		t.Fatalf("LookPath failed: %v", err)
	}
	if !filepath.IsAbs(p) {
		t.Fatalf("LookPath returned non-absolute path: %q", p)
	}
}
