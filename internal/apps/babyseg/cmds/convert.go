package babyseg

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/freesurfer/babyseg/internal/logs"
	"github.com/freesurfer/babyseg/internal/runtime"
	"github.com/freesurfer/babyseg/internal/session"
)

func newConvertCmd() *cobra.Command {
	var (
		tag      string
		platform string
		tool     string
		sif      string
		force    bool
		keep     bool
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert the local docker image into a SIF file",
		Long: `Convert the BabySeg image in the local docker daemon into a SIF file
in the image store. Requires apptainer or singularity. To fetch the
released SIF from the registry instead, use 'babyseg pull'.`,
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

			if !sess.Tool().Kind.UsesSIF() {
				return fmt.Errorf("convert requires apptainer or singularity, resolved tool is %s", sess.Tool().Kind)
			}

			path, err := sess.Launcher.ConvertImage(signalsCtx, sess.Ref, force)
			if err != nil {
				return err
			}
			logs.Infof("SIF image ready at %s", path)

			if !keep {
				ver, _, _ := strings.Cut(sess.Ref.Tag, "-")
				removed, err := sess.Store.PruneOlderThan(ver)
				if err != nil {
					return fmt.Errorf("pruning old SIF files: %w", err)
				}
				for _, e := range removed {
					logs.Infof("Removed outdated %s", e.Name)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "Image tag to convert (e.g. '0.0-cu126')")
	cmd.Flags().StringVar(&platform, "platform", "", "Accelerator platform composed into the default tag")
	cmd.Flags().StringVar(&tool, "tool", "", "Container tool name or absolute path")
	cmd.Flags().StringVar(&sif, "sif", "", "SIF store directory or explicit SIF file")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Rebuild the SIF even if it already exists")
	cmd.Flags().BoolVar(&keep, "keep", false, "Keep SIF files of older releases instead of pruning them")

	return cmd
}
