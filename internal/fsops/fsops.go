// Package fsops exposes thin interfaces over os, filepath, and exec helpers
// so tool and path resolution can be tested without touching the real
// filesystem or PATH.
package fsops

import (
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
)

//go:generate mockgen -source=fsops.go -destination=mocks/fsops_mocks.go -package=mocks

// PathOps abstracts common filepath operations to allow mocking in tests.
type PathOps interface {
	Abs(path string) (string, error)
	Join(elem ...string) string
	Clean(path string) string
	IsAbs(path string) bool
	Base(path string) string
	Ext(name string) string
}

// OSOps abstracts filesystem metadata queries and the working directory.
type OSOps interface {
	Stat(name string) (fs.FileInfo, error)
	Getwd() (string, error)
}

// ExecOps abstracts binary discovery on the search path.
type ExecOps interface {
	LookPath(file string) (string, error)
}

// Ops groups the dependencies required by the resolvers.
type Ops struct {
	Path PathOps
	OS   OSOps
	Exec ExecOps
}

// DefaultOps returns an Ops configured with the standard library
// implementations.
func DefaultOps() Ops {
	return Ops{
		Path: stdPathOps{},
		OS:   stdOSOps{},
		Exec: stdExecOps{},
	}
}

type stdPathOps struct{}

func (stdPathOps) Abs(path string) (string, error) { return filepath.Abs(path) }
func (stdPathOps) Join(elem ...string) string      { return filepath.Join(elem...) }
func (stdPathOps) Clean(path string) string        { return filepath.Clean(path) }
func (stdPathOps) IsAbs(path string) bool          { return filepath.IsAbs(path) }
func (stdPathOps) Base(path string) string         { return filepath.Base(path) }
func (stdPathOps) Ext(name string) string          { return filepath.Ext(name) }

type stdOSOps struct{}

func (stdOSOps) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }
func (stdOSOps) Getwd() (string, error)                { return os.Getwd() }

type stdExecOps struct{}

func (stdExecOps) LookPath(file string) (string, error) { return exec.LookPath(file) }
