package babyseg

import (
	"testing"

	"github.com/freesurfer/babyseg/internal/imageref"
	"github.com/freesurfer/babyseg/internal/version"
)

func TestBuildRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		tag      string
		platform string
		want     string
	}{
		{name: "freesurfer/babyseg", want: "freesurfer/babyseg:" + version.ModelVersion},
		{name: "freesurfer/babyseg", platform: "cu126", want: "freesurfer/babyseg:" + version.ModelVersion + "-cu126"},
		{name: "freesurfer/babyseg", tag: "dev", want: "freesurfer/babyseg:dev"},
		// A tag embedded in the name wins over everything.
		{name: "freesurfer/babyseg:custom", tag: "dev", platform: "cu126", want: "freesurfer/babyseg:custom"},
		// A registry port is not a tag separator.
		{name: "localhost:5000/babyseg", want: "localhost:5000/babyseg:" + version.ModelVersion},
	}

	for _, tc := range tests {
		ref, err := buildRef(tc.name, tc.tag, tc.platform)
		if err != nil {
			t.Fatalf("buildRef(%q, %q, %q) error = %v", tc.name, tc.tag, tc.platform, err)
		}
		if ref.String() != tc.want {
			t.Fatalf("buildRef(%q, %q, %q) = %s, want %s", tc.name, tc.tag, tc.platform, ref, tc.want)
		}
	}
}

func TestBuildRefComposesDefaultTag(t *testing.T) {
	t.Parallel()

	ref, err := buildRef("freesurfer/babyseg", "", "cpu")
	if err != nil {
		t.Fatalf("buildRef() error = %v", err)
	}
	if ref.Tag != imageref.ComposeTag(version.ModelVersion, "cpu") {
		t.Fatalf("Tag = %s, want the bare model version", ref.Tag)
	}
}
