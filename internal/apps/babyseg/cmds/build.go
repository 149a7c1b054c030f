package babyseg

import (
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/freesurfer/babyseg/internal/dockerclient"
	"github.com/freesurfer/babyseg/internal/fsops"
	"github.com/freesurfer/babyseg/internal/imageref"
	"github.com/freesurfer/babyseg/internal/logs"
	"github.com/freesurfer/babyseg/internal/runtime"
	"github.com/freesurfer/babyseg/internal/version"
)

func newBuildCmd() *cobra.Command {
	var (
		name     string
		tag      string
		platform string
	)

	cmd := &cobra.Command{
		Use:   "build [CONTEXT_DIR]",
		Short: "Build a local BabySeg image with docker",
		Long: `Build a local image from CONTEXT_DIR (default: the working directory),
which must contain a Dockerfile. The image name comes from --name or
BABYSEG_DOCKER_NAME; unless the name carries its own tag, the tag is the
model version plus the optional platform suffix.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime.FromContext(cmd.Context())

			imageName := name
			if imageName == "" {
				imageName = rt.Settings().DockerName
			}
			if imageName == "" {
				return errors.New("image name is required: pass --name or set BABYSEG_DOCKER_NAME")
			}
			ref, err := buildRef(imageName, tag, platform)
			if err != nil {
				return err
			}

			contextDir := "."
			if len(args) == 1 {
				contextDir = args[0]
			}
			ops := fsops.DefaultOps()
			contextDir, err = ops.Path.Abs(contextDir)
			if err != nil {
				return err
			}
			if info, err := ops.OS.Stat(contextDir); err != nil || !info.IsDir() {
				return errors.New("build context must be an existing directory: " + contextDir)
			}

			signalsCtx, stopSignalsCtx := signal.NotifyContext(rt.Ctx(), os.Interrupt, syscall.SIGTERM)
			defer stopSignalsCtx()

			dc, err := dockerclient.NewDockerClient()
			if err != nil {
				return err
			}

			logs.Infof("Building %s from %s ...", ref, contextDir)
			built, err := dc.BuildImage(signalsCtx, contextDir, ref.String())
			if err != nil {
				return err
			}
			logs.Infof("Built %s", built)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name (and optional tag) for the built image")
	cmd.Flags().StringVar(&tag, "tag", "", "Tag for the built image (default: the model version)")
	cmd.Flags().StringVar(&platform, "platform", "", "Accelerator platform composed into the default tag (e.g. 'cu126')")

	return cmd
}

// buildRef resolves the full reference of an image to build. A tag embedded
// in name wins; otherwise the tag flag, otherwise the model version with
// the platform suffix.
func buildRef(name, tag, platform string) (imageref.Ref, error) {
	if repo, t, found := strings.Cut(name, ":"); found && !strings.Contains(t, "/") {
		return imageref.New(repo, t)
	}
	if tag == "" {
		tag = imageref.ComposeTag(version.ModelVersion, platform)
	}
	return imageref.New(name, tag)
}
