// Package launcher turns a resolved container tool, an image reference,
// and a mount binding into an actual segmentation run, with the artifact
// handling each runtime family needs.
package launcher

import (
	"context"
	"fmt"
	"os"

	"github.com/freesurfer/babyseg/internal/containertool"
	"github.com/freesurfer/babyseg/internal/dockerclient"
	"github.com/freesurfer/babyseg/internal/imageref"
	"github.com/freesurfer/babyseg/internal/logs"
	"github.com/freesurfer/babyseg/internal/mount"
	"github.com/freesurfer/babyseg/internal/sifstore"
)

// ExitError carries the container's exit status so callers can propagate
// it verbatim as the process exit code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("container exited with code %d", e.Code)
}

// RunSpec describes one segmentation run.
type RunSpec struct {
	Ref         imageref.Ref
	Bind        mount.Bind
	Args        []string                 // forwarded verbatim to the container entrypoint
	ForceGPU    bool                     // request GPU support regardless of the tag
	Interactive bool                     // stdout is a terminal; daemon tools get a pty
	Term        dockerclient.RawTerminal // terminal guard for interactive docker attach
}

// Launcher executes runs with a specific resolved tool.
type Launcher struct {
	tool  containertool.Tool
	store *sifstore.Store

	// docker is created lazily, only the docker kind talks to the daemon.
	docker dockerclient.DockerClient
}

func New(tool containertool.Tool, store *sifstore.Store) *Launcher {
	return &Launcher{tool: tool, store: store}
}

func (l *Launcher) Tool() containertool.Tool {
	return l.tool
}

// Run dispatches to the runtime family and returns nil only for a zero
// container exit status. Non-zero statuses come back as *ExitError.
func (l *Launcher) Run(ctx context.Context, spec RunSpec) error {
	logs.Debugf("running %s with %s", spec.Ref, l.tool.Path)
	switch l.tool.Kind {
	case containertool.KindDocker:
		return l.runDocker(ctx, spec)
	case containertool.KindPodman:
		return l.execTool(ctx, podmanRunArgs(spec.Ref, spec.Bind, spec.Interactive, spec.Args))
	case containertool.KindApptainer, containertool.KindSingularity:
		sif, err := l.EnsureSIF(ctx, spec.Ref, false)
		if err != nil {
			return err
		}
		gpu := spec.ForceGPU || imageref.NameNeedsGPU(sif)
		return l.execTool(ctx, sifRunArgs(sif, spec.Bind, gpu, spec.Args))
	default:
		return fmt.Errorf("%w: %s", containertool.ErrUnknownTool, l.tool.Kind)
	}
}

func (l *Launcher) runDocker(ctx context.Context, spec RunSpec) error {
	dc, err := l.dockerClient()
	if err != nil {
		return err
	}
	if !dc.ImageExists(ctx, spec.Ref.String()) {
		logs.Infof("Image %s not found locally, pulling...", spec.Ref)
		if err := dc.PullImage(ctx, spec.Ref.String()); err != nil {
			return err
		}
	}
	code, err := dc.RunContainer(ctx, dockerclient.RunOptions{
		Image: spec.Ref.String(),
		Cmd:   spec.Args,
		Binds: []string{spec.Bind.Spec()},
		User:  fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
		Tty:   spec.Interactive,
		Term:  spec.Term,
	})
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{Code: int(code)}
	}
	return nil
}

// Pull fetches the image artifact for ref without running it: a daemon
// image for docker/podman, a SIF conversion otherwise.
func (l *Launcher) Pull(ctx context.Context, ref imageref.Ref, force bool) error {
	switch l.tool.Kind {
	case containertool.KindDocker:
		dc, err := l.dockerClient()
		if err != nil {
			return err
		}
		if !force && dc.ImageExists(ctx, ref.String()) {
			logs.Infof("Image %s already present", ref)
			return nil
		}
		return dc.PullImage(ctx, ref.String())
	case containertool.KindPodman:
		return l.execTool(ctx, []string{"pull", ref.DockerURL()})
	case containertool.KindApptainer, containertool.KindSingularity:
		_, err := l.EnsureSIF(ctx, ref, force)
		return err
	default:
		return fmt.Errorf("%w: %s", containertool.ErrUnknownTool, l.tool.Kind)
	}
}

// EnsureSIF returns the path of the SIF for ref, converting it from the
// registry if missing (or unconditionally with force). Conversions are
// serialized across processes with a lock file next to the target.
func (l *Launcher) EnsureSIF(ctx context.Context, ref imageref.Ref, force bool) (string, error) {
	if !l.tool.Kind.UsesSIF() {
		return "", fmt.Errorf("%s does not use SIF images", l.tool.Kind)
	}
	path := l.store.PathFor(ref)
	if !force {
		if ok, err := l.store.Exists(ref); err != nil {
			return "", err
		} else if ok {
			return path, nil
		}
	}

	// The lock file lives next to the target, so the store directory must
	// exist before the lock can.
	if err := os.MkdirAll(l.store.Dir(), 0o755); err != nil {
		return "", err
	}

	mu := l.store.LockFor(path)
	if err := mu.Lock(0); err != nil {
		return "", fmt.Errorf("locking %s: %w", path, err)
	}
	defer mu.Unlock()

	// Another process may have finished the conversion while we waited.
	if !force {
		if ok, err := l.store.Exists(ref); err != nil {
			return "", err
		} else if ok {
			return path, nil
		}
	}

	logs.Infof("Converting %s to %s ...", ref.DockerURL(), path)
	if err := l.execTool(ctx, sifPullArgs(path, ref, force)); err != nil {
		return "", err
	}
	return path, nil
}

// ConvertImage builds the SIF for ref from the image in the local Docker
// daemon, so locally built (unpublished) images can be converted. Registry
// images are handled by EnsureSIF instead.
func (l *Launcher) ConvertImage(ctx context.Context, ref imageref.Ref, force bool) (string, error) {
	if !l.tool.Kind.UsesSIF() {
		return "", fmt.Errorf("%s does not use SIF images", l.tool.Kind)
	}
	path := l.store.PathFor(ref)
	if !force {
		if ok, err := l.store.Exists(ref); err != nil {
			return "", err
		} else if ok {
			return "", fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
	}

	if err := os.MkdirAll(l.store.Dir(), 0o755); err != nil {
		return "", err
	}

	mu := l.store.LockFor(path)
	if err := mu.Lock(0); err != nil {
		return "", fmt.Errorf("locking %s: %w", path, err)
	}
	defer mu.Unlock()

	logs.Infof("Converting %s to %s ...", ref.DaemonURL(), path)
	if err := l.execTool(ctx, sifBuildArgs(path, ref, force)); err != nil {
		return "", err
	}
	return path, nil
}

func (l *Launcher) dockerClient() (dockerclient.DockerClient, error) {
	if l.docker == nil {
		dc, err := dockerclient.NewDockerClient()
		if err != nil {
			return nil, fmt.Errorf("connecting to docker daemon: %w", err)
		}
		l.docker = dc
	}
	return l.docker, nil
}

// SetDockerClient overrides the daemon client, used by tests.
func (l *Launcher) SetDockerClient(dc dockerclient.DockerClient) {
	l.docker = dc
}

// podmanRunArgs builds the rootless daemon run. Podman maps the invoking
// user into the container itself, so no -u flag is passed, and like the
// SIF tools it takes the docker:// transport prefix.
func podmanRunArgs(ref imageref.Ref, bind mount.Bind, tty bool, extra []string) []string {
	args := []string{"run", "--rm", "-v", bind.Spec()}
	if tty {
		args = append(args, "-t")
	}
	args = append(args, ref.DockerURL())
	return append(args, extra...)
}

// sifRunArgs builds the SIF run: clean environment, working directory at
// the mount point, and GPU passthrough via --nv when requested.
func sifRunArgs(sifPath string, bind mount.Bind, gpu bool, extra []string) []string {
	args := []string{"run", "--pwd", mount.ContainerPoint, "-e", "-B", bind.Spec()}
	if gpu {
		args = append(args, "--nv")
	}
	args = append(args, sifPath)
	return append(args, extra...)
}

// sifPullArgs builds the registry-to-SIF conversion command.
func sifPullArgs(sifPath string, ref imageref.Ref, force bool) []string {
	args := []string{"pull"}
	if force {
		args = append(args, "--force")
	}
	return append(args, sifPath, ref.DockerURL())
}

// sifBuildArgs builds the local-daemon-to-SIF conversion command.
func sifBuildArgs(sifPath string, ref imageref.Ref, force bool) []string {
	args := []string{"build"}
	if force {
		args = append(args, "--force")
	}
	return append(args, sifPath, ref.DaemonURL())
}
