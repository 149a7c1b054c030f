package babyseg

import (
	"testing"

	"github.com/freesurfer/babyseg/internal/sifstore"
)

func TestSIFChoiceOptions(t *testing.T) {
	t.Parallel()

	all := &sifChoice{}
	if all.OptionID() != "all" || all.OptionLabel() != "all SIF files" {
		t.Fatalf("zero choice = %s/%s, want the remove-everything option", all.OptionID(), all.OptionLabel())
	}

	one := &sifChoice{entry: &sifstore.Entry{Name: "babyseg_0.0.sif", Size: 2048}}
	if one.OptionID() != "babyseg_0.0.sif" {
		t.Fatalf("OptionID() = %s, want the file name", one.OptionID())
	}
	if one.OptionLabel() != "babyseg_0.0.sif (2.0 KB)" {
		t.Fatalf("OptionLabel() = %s", one.OptionLabel())
	}
}
