package launcher

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/freesurfer/babyseg/internal/logs"
)

// execTool runs the resolved tool binary with args, stdio inherited, and
// maps a non-zero exit status to *ExitError.
func (l *Launcher) execTool(ctx context.Context, args []string) error {
	// Full argv goes to the run log only; stdout stays the tool's.
	logs.InfofSilent("exec: %s %s", l.tool.Path, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, l.tool.Path, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		return &ExitError{Code: exitErr.ExitCode()}
	}
	return err
}
