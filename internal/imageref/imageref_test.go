package imageref

import "testing"

func TestComposeTag(t *testing.T) {
	t.Parallel()

	cases := []struct {
		version  string
		platform string
		want     string
	}{
		{"0.0", "cpu", "0.0"},
		{"0.0", "", "0.0"},
		{"0.0", "cu126", "0.0-cu126"},
		{"1.2.3", "cu130", "1.2.3-cu130"},
	}
	for _, tc := range cases {
		if got := ComposeTag(tc.version, tc.platform); got != tc.want {
			t.Fatalf("ComposeTag(%q, %q) = %q, want %q", tc.version, tc.platform, got, tc.want)
		}
	}
}

func TestSIFFileName(t *testing.T) {
	t.Parallel()

	ref, err := New("freesurfer/babyseg", "0.0-cu126")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if got := ref.SIFFileName(); got != "babyseg_0.0-cu126.sif" {
		t.Fatalf("SIFFileName = %q, want %q", got, "babyseg_0.0-cu126.sif")
	}
}

func TestStringAndDockerURL(t *testing.T) {
	t.Parallel()

	ref, err := New("freesurfer/babyseg", "0.0")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if got := ref.String(); got != "freesurfer/babyseg:0.0" {
		t.Fatalf("String = %q", got)
	}
	if got := ref.DockerURL(); got != "docker://freesurfer/babyseg:0.0" {
		t.Fatalf("DockerURL = %q", got)
	}
}

func TestVersionAndPlatform(t *testing.T) {
	t.Parallel()

	ref, err := New("freesurfer/babyseg", "0.0-cu126")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if got := ref.Version(); got != "0.0" {
		t.Fatalf("Version = %q, want %q", got, "0.0")
	}
	if got := ref.Platform(); got != "cu126" {
		t.Fatalf("Platform = %q, want %q", got, "cu126")
	}

	cpu, err := New("freesurfer/babyseg", "0.0")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if got := cpu.Platform(); got != PlatformCPU {
		t.Fatalf("Platform = %q, want %q", got, PlatformCPU)
	}
}

func TestGPUDetection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		tag  string
		want bool
	}{
		{"0.0", false},
		{"0.0-cu126", true},
		{"1.2.3-cu130", true},
		{"0.0-gpu", true},
	}
	for _, tc := range cases {
		ref, err := New("freesurfer/babyseg", tc.tag)
		if err != nil {
			t.Fatalf("New(%q) returned error: %v", tc.tag, err)
		}
		if got := ref.GPU(); got != tc.want {
			t.Fatalf("GPU(%q) = %v, want %v", tc.tag, got, tc.want)
		}
	}

	if !NameNeedsGPU("image_1.2.3-cu130.sif") {
		t.Fatal("NameNeedsGPU should detect -cu in SIF filenames")
	}
	if NameNeedsGPU("image_0.0.sif") {
		t.Fatal("NameNeedsGPU misdetected a CPU SIF filename")
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	t.Parallel()

	if _, err := New("", "0.0"); err == nil {
		t.Fatal("expected error for empty repository")
	}
	if _, err := New("freesurfer/babyseg", ""); err == nil {
		t.Fatal("expected error for empty tag")
	}
	if _, err := New("freesurfer/babyseg", "0.0 cu126"); err == nil {
		t.Fatal("expected error for tag with invalid characters")
	}
}
