// Package version holds the babyseg CLI version, stamped at build time.
package version

// version is overridden by the linker in release builds:
//
//	-ldflags "-X github.com/freesurfer/babyseg/internal/version.version=v0.1.0"
var version = "local"

// ModelVersion is the default BabySeg model release used to compose image
// tags when BABYSEG_TAG is not set.
const ModelVersion = "0.0"

func Get() string {
	return version
}
