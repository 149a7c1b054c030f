package babyseg

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/freesurfer/babyseg/internal/dockerclient"
	"github.com/freesurfer/babyseg/internal/fsops"
	"github.com/freesurfer/babyseg/internal/logs"
	"github.com/freesurfer/babyseg/internal/runtime"
	"github.com/freesurfer/babyseg/internal/sifstore"
	"github.com/freesurfer/babyseg/internal/ui"
	"github.com/freesurfer/babyseg/internal/versions"
)

func newListCmd() *cobra.Command {
	var sif string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List local BabySeg images",
		Long:    "List SIF images in the store and BabySeg images known to the docker daemon.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logs.Debugf("running list...")

			rt := runtime.FromContext(cmd.Context())

			signalsCtx, stopSignalsCtx := signal.NotifyContext(rt.Ctx(), os.Interrupt, syscall.SIGTERM)
			defer stopSignalsCtx()

			sifLocation := sif
			if sifLocation == "" {
				sifLocation = rt.Settings().SIFPath
			}
			store, err := sifstore.New(fsops.DefaultOps(), sifLocation)
			if err != nil {
				return err
			}

			entries, err := store.List()
			if err != nil {
				return err
			}
			logs.Banner("Local BabySeg images")
			if len(entries) > 0 {
				table := ui.NewTable(
					ui.Column{Header: "SIF"},
					ui.Column{Header: "Tag"},
					ui.Column{Header: "Size"},
					ui.Column{Header: "Modified"},
				)
				for _, e := range entries {
					table.AddRow(e.Name, e.Tag, fmtSize(e.Size), e.ModTime.Format("2006-01-02 15:04"))
				}
				fmt.Println("")
				fmt.Printf("SIF images in %s:\n", store.Dir())
				_ = table.Render(os.Stdout)
				if newest := newestRelease(entries); newest != "" {
					fmt.Printf("Newest local release: %s\n", newest)
				}
			} else {
				fmt.Printf("No SIF images in %s\n", store.Dir())
			}

			// The daemon listing is best effort: no docker, no section.
			dc, err := dockerclient.NewDockerClient()
			if err != nil {
				logs.Debugf("docker daemon not reachable: %v", err)
				return nil
			}
			images, err := dc.ListImages(signalsCtx, rt.Settings().Repository())
			if err != nil {
				logs.Debugf("docker image list failed: %v", err)
				return nil
			}
			if len(images) == 0 {
				return nil
			}

			table := ui.NewTable(
				ui.Column{Header: "Image"},
				ui.Column{Header: "Size"},
				ui.Column{Header: "Created"},
			)
			for _, img := range images {
				table.AddRow(strings.Join(img.Tags, ", "), fmtSize(img.Size), img.Created.Format("2006-01-02 15:04"))
			}
			logs.Spacer()
			fmt.Println("Docker images:")
			return table.Render(os.Stdout)
		},
	}

	cmd.Flags().StringVar(&sif, "sif", "", "SIF store directory to list")

	return cmd
}

// newestRelease reports the highest version core among the conventionally
// named SIF files, or "" when none parse.
func newestRelease(entries []sifstore.Entry) string {
	var vs []string
	for _, e := range entries {
		v, _, _ := strings.Cut(e.Tag, "-")
		if versions.IsValidVersion(v) {
			vs = append(vs, v)
		}
	}
	if len(vs) == 0 {
		return ""
	}
	newest, err := versions.MaxVersion(vs)
	if err != nil {
		return ""
	}
	return newest
}

func fmtSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
