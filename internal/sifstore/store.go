// Package sifstore manages the on-disk collection of SIF images converted
// from registry releases, used by the Apptainer and Singularity runtimes.
package sifstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	hostappconfig "github.com/freesurfer/babyseg/internal/apps/babyseg/config"
	"github.com/freesurfer/babyseg/internal/fsops"
	"github.com/freesurfer/babyseg/internal/imageref"
	"github.com/freesurfer/babyseg/internal/versions"
)

// Store resolves where SIF images live. A configured location may be either
// a directory (images are named by their reference inside it) or a single
// file (used verbatim for every reference).
type Store struct {
	ops  fsops.Ops
	dir  string
	file string // non-empty when the configured location is one file
}

// New builds a Store from the configured location. An empty location falls
// back to the per-user images directory. An existing directory becomes the
// store directory; anything else is treated as an explicit SIF file path.
func New(ops fsops.Ops, location string) (*Store, error) {
	if location == "" {
		return &Store{ops: ops, dir: hostappconfig.ImagesPath()}, nil
	}
	abs, err := ops.Path.Abs(location)
	if err != nil {
		return nil, fmt.Errorf("resolving SIF location %q: %w", location, err)
	}
	info, err := ops.OS.Stat(abs)
	if err == nil && info.IsDir() {
		return &Store{ops: ops, dir: abs}, nil
	}
	return &Store{ops: ops, dir: ops.Path.Clean(filepath.Dir(abs)), file: abs}, nil
}

// Dir returns the directory images are kept in.
func (s *Store) Dir() string {
	return s.dir
}

// PathFor returns the path the SIF for ref lives at (or should be created
// at), honoring a single-file override.
func (s *Store) PathFor(ref imageref.Ref) string {
	if s.file != "" {
		return s.file
	}
	return s.ops.Path.Join(s.dir, ref.SIFFileName())
}

// Exists reports whether the SIF for ref is already on disk.
func (s *Store) Exists(ref imageref.Ref) (bool, error) {
	info, err := s.ops.OS.Stat(s.PathFor(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, fmt.Errorf("%s is a directory, expected a SIF file", s.PathFor(ref))
	}
	return true, nil
}

// Remove deletes the SIF for ref if present.
func (s *Store) Remove(ref imageref.Ref) error {
	err := os.Remove(s.PathFor(ref))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Entry describes one SIF image found in the store directory.
type Entry struct {
	Path    string
	Name    string
	Tag     string // parsed from the filename, may be empty for foreign files
	Size    int64
	ModTime time.Time
}

// List returns the SIF images present in the store directory, newest tag
// first. Files that do not follow the <name>_<tag>.sif convention are still
// listed, with an empty Tag.
func (s *Store) List() ([]Entry, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading SIF store %s: %w", s.dir, err)
	}
	var out []Entry
	for _, de := range dirents {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".sif") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		out = append(out, Entry{
			Path:    s.ops.Path.Join(s.dir, de.Name()),
			Name:    de.Name(),
			Tag:     tagFromFileName(de.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		vi, vj := versionOf(out[i].Tag), versionOf(out[j].Tag)
		if vi != vj && versions.IsValidVersion(vi) && versions.IsValidVersion(vj) {
			return versions.Compare(vi, vj) > 0
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// PruneOlderThan removes images whose version core is strictly older than
// version, and returns the removed entries. Files without a parseable
// version are left alone.
func (s *Store) PruneOlderThan(version string) ([]Entry, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	var removed []Entry
	for _, e := range entries {
		v := versionOf(e.Tag)
		if !versions.IsValidVersion(v) {
			continue
		}
		if versions.Compare(v, version) >= 0 {
			continue
		}
		if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed = append(removed, e)
	}
	return removed, nil
}

// tagFromFileName recovers the tag from a conventional SIF name,
// "babyseg_0.0-cu126.sif" → "0.0-cu126".
func tagFromFileName(name string) string {
	base := strings.TrimSuffix(name, ".sif")
	_, tag, found := strings.Cut(base, "_")
	if !found {
		return ""
	}
	return tag
}

func versionOf(tag string) string {
	v, _, _ := strings.Cut(tag, "-")
	return v
}
