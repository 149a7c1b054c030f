package babyseg

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	hostappconfig "github.com/freesurfer/babyseg/internal/apps/babyseg/config"
	"github.com/freesurfer/babyseg/internal/download"
	"github.com/freesurfer/babyseg/internal/logs"
	"github.com/freesurfer/babyseg/internal/runtime"
	"github.com/freesurfer/babyseg/internal/state"
)

type downloadRecord struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

func newDownloadCmd() *cobra.Command {
	var (
		outDir  string
		baseURL string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the model checkpoints and atlas files",
		Long: `Download the released model checkpoints (.pt) and atlas volumes
(.nii.gz) from the release file server into a local directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtime.FromContext(cmd.Context())

			signalsCtx, stopSignalsCtx := signal.NotifyContext(rt.Ctx(), os.Interrupt, syscall.SIGTERM)
			defer stopSignalsCtx()

			// -o flattens everything into one directory; otherwise
			// checkpoints and test volumes land in their own homes.
			dest := download.FixedDir(outDir)
			if outDir == "" {
				dest = func(name string) string {
					if strings.HasSuffix(strings.ToLower(name), ".pt") {
						return hostappconfig.CheckpointsPath()
					}
					return hostappconfig.DataPath()
				}
			}

			client, err := download.New(baseURL)
			if err != nil {
				return err
			}

			paths, err := client.FetchAll(signalsCtx, dest, force)
			if err != nil {
				return err
			}

			recordDownloads(signalsCtx, baseURL, paths)

			logs.Infof("%d model files downloaded", len(paths))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "output", "o", "", "Directory to place the files in (default: the per-user checkpoints directory)")
	cmd.Flags().StringVar(&baseURL, "url", "", "Release index URL to download from")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Re-download files that already exist")

	return cmd
}

// recordDownloads remembers what was fetched, so clean knows what this
// tool put on disk. Failures only cost the bookkeeping.
func recordDownloads(ctx context.Context, baseURL string, paths []string) {
	kv, err := state.DefaultKVStore(ctx)
	if err != nil {
		logs.Debugf("can't record downloads: %v", err)
		return
	}
	for _, p := range paths {
		rec, err := json.Marshal(downloadRecord{URL: baseURL, Path: p})
		if err != nil {
			continue
		}
		key := state.KVStoreKey("download:" + filepath.Base(p))
		if err := kv.Upsert(ctx, key, string(rec)); err != nil {
			logs.Debugf("can't record download %s: %v", p, err)
		}
	}
}
