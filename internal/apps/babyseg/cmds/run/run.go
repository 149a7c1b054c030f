package runcmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/freesurfer/babyseg/internal/launcher"
	"github.com/freesurfer/babyseg/internal/logs"
	"github.com/freesurfer/babyseg/internal/runtime"
	"github.com/freesurfer/babyseg/internal/session"
	"github.com/freesurfer/babyseg/internal/versioncheck"
)

type runOptions struct {
	Tag      string
	Platform string
	Mount    string
	Tool     string
	SIF      string
	GPU      bool
}

// AttachRunCmdFlags attaches the "run" cmd flags to the given command and
// injects a runOptions instance into the command's context via PreRun.
func AttachRunCmdFlags(cmd *cobra.Command) {
	opts := &runOptions{}

	flags := cmd.Flags()
	flags.StringVar(&opts.Tag, "tag", "", "Image tag to run (e.g. '0.0-cu126')")
	flags.StringVar(&opts.Platform, "platform", "", "Accelerator platform composed into the default tag (e.g. 'cu126')")
	flags.StringVarP(&opts.Mount, "mount", "m", "", "Host directory mounted at /mnt (default: $BABYSEG_MNT, $SUBJECTS_DIR, or the working directory)")
	flags.StringVar(&opts.Tool, "tool", "", "Container tool name or absolute path")
	flags.StringVar(&opts.SIF, "sif", "", "SIF store directory or explicit SIF file")
	flags.BoolVar(&opts.GPU, "gpu", false, "Request GPU support regardless of the tag")

	// Store opts in command context before running
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		cmd.SetContext(withRunOptions(cmd.Context(), opts))
	}
}

func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the segmentation pipeline on the mounted directory",
		Long: `Run the BabySeg container against the mounted directory.

The image is pulled (docker/podman) or converted to a SIF (apptainer/
singularity) on first use. Arguments after -- are forwarded to the
container. The container's exit status becomes babyseg's exit status.`,
		Args: cobra.ArbitraryArgs,
		RunE: RunCmdRunE,
	}

	AttachRunCmdFlags(cmd)

	return cmd
}

// RunCmdRunE is a separate function so root can reuse it (default command)
func RunCmdRunE(cmd *cobra.Command, args []string) error {
	logs.Debugf("running segmentation...")

	rt := runtime.FromContext(cmd.Context())
	opts := getRunOptions(cmd.Context())
	if opts == nil {
		// Should not normally happen because AttachRunCmdFlags sets it,
		// but keep a safe fallback for tests.
		opts = &runOptions{}
	}

	signalsCtx, stopSignalsCtx := signal.NotifyContext(rt.Ctx(), os.Interrupt, syscall.SIGTERM)
	defer stopSignalsCtx()

	sess, err := session.New(rt, session.Overrides{
		Tag:      opts.Tag,
		Platform: opts.Platform,
		Tool:     opts.Tool,
		SIF:      opts.SIF,
		Mount:    opts.Mount,
	})
	if err != nil {
		return err
	}

	bind, err := sess.ResolveBind()
	if err != nil {
		return err
	}

	rt.OpenRunLog()
	logs.Infof("Running %s with %s, %s mounted at /mnt", sess.Ref, sess.Tool().Kind, bind.Host)

	// Look for a newer release in the background and report after the run.
	resCh := make(chan *versioncheck.Result, 1)
	rt.GoNamed("update-check", func() {
		resCh <- versioncheck.Check(rt.Ctx())
	})
	rt.OnShutdown(func(ctx context.Context) {
		select {
		case res := <-resCh:
			versioncheck.PrintUpdateBanner(res)
		case <-ctx.Done():
		}
	})

	interactive := rt.Term().IsTerminal()
	if interactive {
		// The container owns the terminal for the duration of the run.
		restore := logs.Mute()
		defer restore()
	}

	return sess.Launcher.Run(signalsCtx, launcher.RunSpec{
		Ref:         sess.Ref,
		Bind:        bind,
		Args:        args,
		ForceGPU:    opts.GPU || sess.Settings.ForceGPU,
		Interactive: interactive,
		Term:        rt.Term(),
	})
}

type ctxKeyRunOptions struct{}

func withRunOptions(ctx context.Context, opts *runOptions) context.Context {
	return context.WithValue(ctx, ctxKeyRunOptions{}, opts)
}

func getRunOptions(ctx context.Context) *runOptions {
	v := ctx.Value(ctxKeyRunOptions{})
	if v == nil {
		return nil
	}
	return v.(*runOptions)
}
