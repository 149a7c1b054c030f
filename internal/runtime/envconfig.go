package runtime

import (
	"os"

	"github.com/freesurfer/babyseg/internal/imageref"
	"github.com/freesurfer/babyseg/internal/logs"
)

// Environment variables recognized at startup. Flags always win over these.
const (
	EnvMount      = "BABYSEG_MNT"
	EnvSubjects   = "SUBJECTS_DIR"
	EnvTag        = "BABYSEG_TAG"
	EnvSIF        = "BABYSEG_SIF"
	EnvTool       = "BABYSEG_TOOL"
	EnvGPU        = "BABYSEG_GPU"
	EnvDockerName = "BABYSEG_DOCKER_NAME"
)

// Settings is the environment-derived configuration of a run. Zero values
// mean "not configured" and leave the decision to defaults downstream.
type Settings struct {
	MountDir   string // host directory bound into the container
	Tag        string // image tag override
	SIFPath    string // SIF store directory or explicit SIF file
	Tool       string // container tool name or absolute path
	ForceGPU   bool   // request GPU support regardless of tag
	DockerName string // image repository override
}

// Repository is the effective image repository: the BABYSEG_DOCKER_NAME
// override, or the released one.
func (s *Settings) Repository() string {
	if s.DockerName != "" {
		return s.DockerName
	}
	return imageref.DefaultRepository
}

// LoadSettings reads the recognized environment variables once, logging
// every value that takes effect. BABYSEG_MNT wins over SUBJECTS_DIR.
func LoadSettings() *Settings {
	s := &Settings{}
	s.MountDir = fromEnv(EnvMount)
	if s.MountDir == "" {
		s.MountDir = fromEnv(EnvSubjects)
	}
	s.Tag = fromEnv(EnvTag)
	s.SIFPath = fromEnv(EnvSIF)
	s.Tool = fromEnv(EnvTool)
	s.DockerName = fromEnv(EnvDockerName)
	if v := fromEnv(EnvGPU); v != "" {
		s.ForceGPU = true
	}
	return s
}

func fromEnv(key string) string {
	v := os.Getenv(key)
	if v != "" {
		logs.Debugf("applying environment variable %s=%s", key, v)
	}
	return v
}
