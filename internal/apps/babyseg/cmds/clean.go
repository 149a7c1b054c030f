package babyseg

import (
	"context"
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
	"github.com/freesurfer/babyseg/internal/state"
	"github.com/freesurfer/babyseg/internal/ui"
	"github.com/freesurfer/babyseg/internal/version"
)

type cleanOptions struct {
	Containers bool
	Images     bool
	SIFs       bool
	Cache      bool
	All        bool
	Stale      bool
	Yes        bool
}

func newCleanCmd() *cobra.Command {
	opts := &cleanOptions{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove local BabySeg images and cached state",
		Long: `Remove BabySeg artifacts from this machine.

By default '--all' is implied, which removes docker images, SIF files, and
the cached state. Use flags to be more granular.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// If no specific flags set, treat as All
			if !opts.Containers && !opts.Images && !opts.SIFs && !opts.Cache && !opts.All && !opts.Stale {
				opts.All = true
			}
			if opts.Stale {
				// stale pruning targets SIFs only
				opts.SIFs = true
			}
			if opts.All {
				opts.Containers = true
				opts.Images = true
				opts.SIFs = true
				opts.Cache = true
			}

			rt := runtime.FromContext(cmd.Context())

			signalsCtx, stopSignalsCtx := signal.NotifyContext(rt.Ctx(), os.Interrupt, syscall.SIGTERM)
			defer stopSignalsCtx()

			// SIF-only cleans pick the artifacts interactively.
			sifOnly := opts.SIFs && !opts.Containers && !opts.Images && !opts.Cache && !opts.Stale
			if sifOnly && !opts.Yes {
				return cleanSIFsInteractive(rt)
			}

			var targets []string
			if opts.Containers {
				targets = append(targets, "leftover containers")
			}
			if opts.Images {
				targets = append(targets, "docker images")
			}
			if opts.SIFs && opts.Stale {
				targets = append(targets, "outdated SIF files")
			} else if opts.SIFs {
				targets = append(targets, "SIF files")
			}
			if opts.Cache {
				targets = append(targets, "cached state")
			}

			if !opts.Yes {
				ok, err := logs.PromptConfirm(fmt.Sprintf("Remove %s?", strings.Join(targets, ", ")))
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}

			if opts.Containers {
				if err := cleanContainers(signalsCtx); err != nil {
					return err
				}
			}
			if opts.Images {
				if err := cleanImages(signalsCtx, rt.Settings().Repository()); err != nil {
					return err
				}
			}
			if opts.SIFs {
				if err := cleanSIFs(rt, opts.Stale); err != nil {
					return err
				}
			}
			if opts.Cache {
				if err := cleanCache(signalsCtx); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "Clean everything (default behavior)")
	cmd.Flags().BoolVar(&opts.Containers, "containers", false, "Remove leftover containers only")
	cmd.Flags().BoolVar(&opts.Images, "images", false, "Clean docker images only")
	cmd.Flags().BoolVar(&opts.SIFs, "sif", false, "Clean SIF files only")
	cmd.Flags().BoolVar(&opts.Cache, "cache", false, "Clean cached state only")
	cmd.Flags().BoolVar(&opts.Stale, "stale", false, "Only remove SIF files older than the current model release")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

// cleanContainers force-removes containers this tool created and left
// behind, typically after a crash mid-run.
func cleanContainers(ctx context.Context) error {
	dc, err := dockerclient.NewDockerClient()
	if err != nil {
		logs.Debugf("docker daemon not reachable: %v", err)
		return nil
	}
	removed, err := dc.RemoveContainers(ctx, dockerclient.ContainerNamePrefix)
	for _, name := range removed {
		logs.Infof("Removed container %s", name)
	}
	return err
}

// cleanImages removes every local docker image under the configured
// repository. An unreachable daemon is not an error, just nothing to do.
func cleanImages(ctx context.Context, repository string) error {
	dc, err := dockerclient.NewDockerClient()
	if err != nil {
		logs.Debugf("docker daemon not reachable: %v", err)
		return nil
	}
	images, err := dc.ListImages(ctx, repository)
	if err != nil {
		return err
	}
	for _, img := range images {
		ref := img.ID
		if len(img.Tags) > 0 {
			ref = img.Tags[0]
		}
		if err := dc.RemoveImage(ctx, ref); err != nil {
			return err
		}
		logs.Infof("Removed image %s", ref)
	}
	return nil
}

func cleanCache(ctx context.Context) error {
	kv, err := state.DefaultKVStore(ctx)
	if err != nil {
		return err
	}
	downloads, err := kv.List(ctx, "download:")
	if err == nil {
		for _, e := range downloads {
			logs.Debugf("forgetting %s", e.Key)
		}
	}
	n, err := kv.DeleteAll(ctx)
	if err != nil {
		return err
	}
	logs.Infof("Cleared %d cached entries", n)
	return nil
}

// sifChoice adapts one SIF store entry (or "everything") for the picker.
type sifChoice struct {
	entry *sifstore.Entry // nil means every file
}

func (c *sifChoice) OptionLabel() string {
	if c.entry == nil {
		return "all SIF files"
	}
	return fmt.Sprintf("%s (%s)", c.entry.Name, fmtSize(c.entry.Size))
}

func (c *sifChoice) OptionID() string {
	if c.entry == nil {
		return "all"
	}
	return c.entry.Name
}

// cleanSIFsInteractive lets the user pick which SIF file to remove when
// several are present.
func cleanSIFsInteractive(rt *runtime.Runtime) error {
	store, err := sifstore.New(fsops.DefaultOps(), rt.Settings().SIFPath)
	if err != nil {
		return err
	}
	entries, err := store.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		logs.Infof("No SIF files in %s", store.Dir())
		return nil
	}

	options := []ui.SelectOption{&sifChoice{}}
	for i := range entries {
		options = append(options, &sifChoice{entry: &entries[i]})
	}
	answer, err := logs.PromptSelect("Remove which SIF files?", options)
	if err != nil {
		return err
	}

	choice := answer.(*sifChoice)
	remove := entries
	if choice.entry != nil {
		remove = []sifstore.Entry{*choice.entry}
	}
	for _, e := range remove {
		if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
			return err
		}
		logs.Infof("Removed %s", e.Path)
	}
	return nil
}

func cleanSIFs(rt *runtime.Runtime, staleOnly bool) error {
	store, err := sifstore.New(fsops.DefaultOps(), rt.Settings().SIFPath)
	if err != nil {
		return err
	}
	if staleOnly {
		removed, err := store.PruneOlderThan(version.ModelVersion)
		for _, e := range removed {
			logs.Infof("Removed %s", e.Path)
		}
		return err
	}
	entries, err := store.List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
			return err
		}
		logs.Infof("Removed %s", e.Path)
	}
	return nil
}
