package babyseg

import (
	"github.com/spf13/cobra"

	runcmd "github.com/freesurfer/babyseg/internal/apps/babyseg/cmds/run"
	"github.com/freesurfer/babyseg/internal/logs"
	"github.com/freesurfer/babyseg/internal/runtime"
)

var verbosity int

func Execute(rt *runtime.Runtime) error {
	rootCmd := &cobra.Command{
		Use:   "babyseg",
		Short: "Infant brain MRI segmentation, containerized",
		Long: `babyseg runs the BabySeg segmentation model inside a container,
using whichever runtime is available: docker, apptainer, singularity, or podman.

By default, 'babyseg' is equivalent to 'babyseg run'. The target directory
(BABYSEG_MNT or SUBJECTS_DIR, defaulting to the working directory) is mounted
at /mnt inside the container.`,
		Args: cobra.ArbitraryArgs,
		// Default behavior is the same as 'run'
		RunE: runcmd.RunCmdRunE,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logs.SetDebugVerbosity(verbosity)
			return nil
		},
		// we will handle that
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity level")

	// Root should accept the same flags as `run`
	runcmd.AttachRunCmdFlags(rootCmd)

	rootCmd.AddCommand(runcmd.NewRunCmd())
	rootCmd.AddCommand(newPullCmd())
	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newConvertCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newCleanCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd.ExecuteContext(rt.Ctx())
}
