package babyseg

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/freesurfer/babyseg/internal/logs"
	"github.com/freesurfer/babyseg/internal/runtime"
	"github.com/freesurfer/babyseg/internal/session"
)

func newPullCmd() *cobra.Command {
	var (
		tag      string
		platform string
		tool     string
		sif      string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Fetch the BabySeg image without running it",
		Long: `Fetch the image artifact for the resolved tool: a daemon image for
docker and podman, a converted SIF for apptainer and singularity.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime.FromContext(cmd.Context())

			signalsCtx, stopSignalsCtx := signal.NotifyContext(rt.Ctx(), os.Interrupt, syscall.SIGTERM)
			defer stopSignalsCtx()

			sess, err := session.New(rt, session.Overrides{
				Tag:      tag,
				Platform: platform,
				Tool:     tool,
				SIF:      sif,
			})
			if err != nil {
				return err
			}

			if err := sess.Launcher.Pull(signalsCtx, sess.Ref, force); err != nil {
				return err
			}
			logs.Infof("Pulled %s for %s", sess.Ref, sess.Tool().Kind)
			return nil
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "Image tag to pull (e.g. '0.0-cu126')")
	cmd.Flags().StringVar(&platform, "platform", "", "Accelerator platform composed into the default tag")
	cmd.Flags().StringVar(&tool, "tool", "", "Container tool name or absolute path")
	cmd.Flags().StringVar(&sif, "sif", "", "SIF store directory or explicit SIF file")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Refresh the artifact even if it is already present")

	return cmd
}
