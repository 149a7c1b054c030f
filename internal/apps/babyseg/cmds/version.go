package babyseg

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freesurfer/babyseg/internal/runtime"
	"github.com/freesurfer/babyseg/internal/version"
	"github.com/freesurfer/babyseg/internal/versioncheck"
)

func newVersionCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of babyseg",
		Long:  `Display the babyseg version and the model release it targets.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("babyseg %s (model %s)\n", version.Get(), version.ModelVersion)

			if check {
				rt := runtime.FromContext(cmd.Context())
				versioncheck.PrintUpdateBanner(versioncheck.Check(rt.Ctx()))
			}
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")

	return cmd
}
