package runtime

import "testing"

func clearAll(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvMount, EnvSubjects, EnvTag, EnvSIF, EnvTool, EnvGPU, EnvDockerName} {
		t.Setenv(key, "")
	}
}

func TestLoadSettingsEmpty(t *testing.T) {
	clearAll(t)

	s := LoadSettings()
	if *s != (Settings{}) {
		t.Fatalf("LoadSettings() = %+v, want zero settings", *s)
	}
}

func TestLoadSettingsMountPrecedence(t *testing.T) {
	clearAll(t)
	t.Setenv(EnvSubjects, "/data/subjects")

	if s := LoadSettings(); s.MountDir != "/data/subjects" {
		t.Fatalf("MountDir = %s, want /data/subjects", s.MountDir)
	}

	t.Setenv(EnvMount, "/data/mnt")
	if s := LoadSettings(); s.MountDir != "/data/mnt" {
		t.Fatalf("MountDir = %s, want BABYSEG_MNT to win", s.MountDir)
	}
}

func TestLoadSettingsValues(t *testing.T) {
	clearAll(t)
	t.Setenv(EnvTag, "0.0-cu126")
	t.Setenv(EnvSIF, "/images")
	t.Setenv(EnvTool, "/usr/bin/podman")
	t.Setenv(EnvGPU, "1")
	t.Setenv(EnvDockerName, "babyseg-local")

	s := LoadSettings()
	if s.Tag != "0.0-cu126" || s.SIFPath != "/images" || s.Tool != "/usr/bin/podman" || s.DockerName != "babyseg-local" {
		t.Fatalf("LoadSettings() = %+v", *s)
	}
	if !s.ForceGPU {
		t.Fatal("ForceGPU should be set when BABYSEG_GPU is non-empty")
	}
}
