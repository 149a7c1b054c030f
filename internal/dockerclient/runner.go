package dockerclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

const (
	dockerMaxNameLen = 255
	shortLen         = 6 // length of the hash-like suffix
	// ContainerNamePrefix marks every container this tool creates.
	ContainerNamePrefix = "babyseg"
)

// RawTerminal guards the calling terminal during an interactive attach:
// raw mode on entry, resize callbacks on SIGWINCH, restoration on exit.
type RawTerminal interface {
	EnterRawAndWatch(onResize func(width, height uint)) error
	Restore()
}

// RunOptions shape one inference run, equivalent to:
//
//	docker run --rm [-t -i] -u UID:GID -v HOST:/mnt IMAGE [CMD...]
type RunOptions struct {
	Image string      // image reference to run
	Cmd   []string    // overrides the image CMD, nil keeps the default
	Binds []string    // host:container bind specs
	User  string      // "uid:gid", empty to keep the image default
	Tty   bool        // allocate a pseudo-terminal
	Term  RawTerminal // non-nil with Tty: forward stdin and drive pty sizing
}

type DockerContainerRunner interface {
	RunContainer(ctx context.Context, opts RunOptions) (int64, error)
}

// RunContainer creates, attaches, starts, and waits for one container,
// returning the container's exit status verbatim. The container is always
// removed afterwards.
func (dc *dockerClient) RunContainer(ctx context.Context, opts RunOptions) (int64, error) {
	interactive := opts.Tty && opts.Term != nil

	cfg := &container.Config{
		Image:        opts.Image,
		Cmd:          opts.Cmd, // nil keeps the image's CMD (the segmentation pipeline)
		User:         opts.User,
		Tty:          opts.Tty,
		AttachStdin:  interactive,
		OpenStdin:    interactive,
		StdinOnce:    interactive,
		AttachStdout: true,
		AttachStderr: true,
	}

	hostCfg := &container.HostConfig{
		Binds: opts.Binds,
	}

	created, err := dc.client.ContainerCreate(ctx, cfg, hostCfg, nil, nil, containerName())
	if err != nil {
		return 0, fmt.Errorf("container create: %w", err)
	}
	id := created.ID

	defer func() {
		_ = dc.client.ContainerRemove(context.Background(), id, container.RemoveOptions{
			Force: true,
		})
	}()

	// Attach BEFORE start (like docker run)
	attach, err := dc.client.ContainerAttach(ctx, id, container.AttachOptions{
		Stream: true,
		Stdin:  interactive,
		Stdout: true,
		Stderr: true,
		Logs:   false,
	})
	if err != nil {
		return 0, fmt.Errorf("container attach: %w", err)
	}
	defer attach.Close()

	if err := dc.client.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return 0, fmt.Errorf("container start: %w", err)
	}

	// Hand the terminal to the container: raw mode, stdin forwarding, and
	// pty sizing on SIGWINCH (sized AFTER start so it takes effect).
	if interactive {
		if err := opts.Term.EnterRawAndWatch(func(width, height uint) {
			_ = dc.client.ContainerResize(context.Background(), id, container.ResizeOptions{
				Height: height,
				Width:  width,
			})
		}); err != nil {
			return 0, fmt.Errorf("terminal raw mode: %w", err)
		}
		defer opts.Term.Restore()

		go func() {
			_, _ = io.Copy(attach.Conn, os.Stdin)
			_ = attach.CloseWrite()
		}()
	}

	// Forward termination to the container so cleanup still runs here.
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(stopCh)
	go func() {
		<-stopCh
		_ = dc.client.ContainerKill(context.Background(), id, "SIGTERM")
	}()

	// container → stdout/stderr. With a TTY the stream arrives merged;
	// without one it is multiplexed and needs demuxing.
	copyDone := make(chan struct{})
	go func() {
		defer close(copyDone)
		if opts.Tty {
			_, _ = io.Copy(os.Stdout, attach.Reader)
		} else {
			_, _ = stdcopy.StdCopy(os.Stdout, os.Stderr, attach.Reader)
		}
	}()

	statusCh, errCh := dc.client.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return 0, fmt.Errorf("container wait: %w", err)
		}
		return 0, nil
	case st := <-statusCh:
		<-copyDone
		return st.StatusCode, nil
	}
}

// containerName: "babyseg-<short>", unique per process and instant.
func containerName() string {
	short := shortHash(ContainerNamePrefix+
		"|"+time.Now().UTC().Format(time.RFC3339Nano)+
		"|"+procTag(),
		shortLen)
	name := ContainerNamePrefix + "-" + short
	if len(name) > dockerMaxNameLen {
		name = name[:dockerMaxNameLen]
	}
	return name
}

// tiny process tag without extra deps
func procTag() string {
	pid := os.Getpid()
	return hex.EncodeToString([]byte{
		byte(pid >> 24), byte(pid >> 16), byte(pid >> 8), byte(pid),
	})
}

func shortHash(s string, n int) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])[:n]
}
