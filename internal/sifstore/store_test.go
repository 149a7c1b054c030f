package sifstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/freesurfer/babyseg/internal/fsops"
	"github.com/freesurfer/babyseg/internal/imageref"
)

func mustRef(t *testing.T, repo, tag string) imageref.Ref {
	t.Helper()
	ref, err := imageref.New(repo, tag)
	if err != nil {
		t.Fatalf("New(%s, %s) error = %v", repo, tag, err)
	}
	return ref
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("sif"), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
}

func TestStoreDirectoryLocation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(fsops.DefaultOps(), dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ref := mustRef(t, "freesurfer/babyseg", "0.0-cu126")
	want := filepath.Join(dir, "babyseg_0.0-cu126.sif")
	if got := store.PathFor(ref); got != want {
		t.Fatalf("PathFor() = %s, want %s", got, want)
	}

	exists, err := store.Exists(ref)
	if err != nil || exists {
		t.Fatalf("Exists() = %v, %v, want false, nil", exists, err)
	}
	touch(t, want)
	exists, err = store.Exists(ref)
	if err != nil || !exists {
		t.Fatalf("Exists() after touch = %v, %v, want true, nil", exists, err)
	}
}

func TestStoreFileLocation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "custom.sif")
	touch(t, file)

	store, err := New(fsops.DefaultOps(), file)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Every reference resolves to the configured file.
	for _, tag := range []string{"0.0", "0.0-cu126"} {
		ref := mustRef(t, "freesurfer/babyseg", tag)
		if got := store.PathFor(ref); got != file {
			t.Fatalf("PathFor(%s) = %s, want %s", tag, got, file)
		}
	}
}

func TestStoreListSortsNewestFirst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	touch(t, filepath.Join(dir, "babyseg_0.0.sif"))
	touch(t, filepath.Join(dir, "babyseg_1.2-cu126.sif"))
	touch(t, filepath.Join(dir, "babyseg_0.9.sif"))
	touch(t, filepath.Join(dir, "notes.txt"))

	store, err := New(fsops.DefaultOps(), dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	entries, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List() returned %d entries, want 3", len(entries))
	}
	wantTags := []string{"1.2-cu126", "0.9", "0.0"}
	for i, want := range wantTags {
		if entries[i].Tag != want {
			t.Fatalf("List()[%d].Tag = %s, want %s", i, entries[i].Tag, want)
		}
	}
}

func TestStorePruneOlderThan(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	old := filepath.Join(dir, "babyseg_0.9.sif")
	current := filepath.Join(dir, "babyseg_1.0-cu126.sif")
	foreign := filepath.Join(dir, "myimage.sif")
	touch(t, old)
	touch(t, current)
	touch(t, foreign)

	store, err := New(fsops.DefaultOps(), dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	removed, err := store.PruneOlderThan("1.0")
	if err != nil {
		t.Fatalf("PruneOlderThan() error = %v", err)
	}
	if len(removed) != 1 || removed[0].Tag != "0.9" {
		t.Fatalf("PruneOlderThan() removed = %+v, want just 0.9", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("stale image still present: %v", err)
	}
	for _, keep := range []string{current, foreign} {
		if _, err := os.Stat(keep); err != nil {
			t.Fatalf("kept image missing: %v", err)
		}
	}
}

func TestFSMutexLockUnlock(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "image.sif.lock")
	mu := NewFSMutex(lockPath)
	if err := mu.Lock(1); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}

	// A second holder gives up within its try limit.
	other := NewFSMutex(lockPath)
	if err := other.Lock(2); err == nil {
		t.Fatal("second Lock() succeeded while held")
	}

	mu.Unlock()
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Fatalf("lock file still present after Unlock: %v", err)
	}
	if err := other.Lock(1); err != nil {
		t.Fatalf("Lock() after Unlock error = %v", err)
	}
	other.Unlock()
}
