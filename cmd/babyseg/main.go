package main

import (
	"errors"
	"os"
	"strings"

	babyseg "github.com/freesurfer/babyseg/internal/apps/babyseg/cmds"
	"github.com/freesurfer/babyseg/internal/launcher"
	"github.com/freesurfer/babyseg/internal/logs"
	"github.com/freesurfer/babyseg/internal/runtime"
)

func main() {
	os.Exit(run())
}

// run wraps the whole invocation so deferred cleanup happens before the
// process exits with the container's own status.
func run() int {
	logs.SetComponent(detectComponent("babyseg"))

	var execErr error

	rt := runtime.NewHostRuntime()
	defer rt.Finalize("babyseg", "Type 'babyseg help' to get help.", &execErr)

	execErr = babyseg.Execute(rt)

	// The container's exit status passes through verbatim; its output is
	// already on screen, so there is nothing to log.
	var exitErr *launcher.ExitError
	if errors.As(execErr, &exitErr) {
		execErr = nil
		return exitErr.Code
	}
	if execErr != nil {
		return 1
	}
	return 0
}

func detectComponent(base string) string {
	if len(os.Args) > 1 && len(os.Args[1]) > 0 && os.Args[1][0] != '-' {
		return base + ":" + strings.Join(os.Args[1:], " ")
	}
	return base
}
