// Package runtime owns the process lifecycle: one Runtime per invocation,
// carried through the command tree via context, with panic-safe goroutines
// and terminal restoration on exit.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	hostappconfig "github.com/freesurfer/babyseg/internal/apps/babyseg/config"
	"github.com/freesurfer/babyseg/internal/logs"
	"github.com/freesurfer/babyseg/internal/ui"
)

type Runtime struct {
	runID string

	ctx        context.Context
	cancelFunc context.CancelFunc

	mu sync.Mutex

	settings *Settings

	wg              sync.WaitGroup
	shutdownTimeout time.Duration

	term *TerminalGuard

	firstFailErr error

	// logWriter is the full-fidelity destination for log entries, backed
	// by the per-run log file once OpenRunLog succeeds.
	logWriter io.Writer
}

type runtimeKey struct{}

func NewHostRuntime() *Runtime {
	baseCtx, cancel := context.WithCancel(context.Background())
	rt := &Runtime{
		runID:           strconv.FormatInt(time.Now().Unix(), 10),
		cancelFunc:      cancel,
		settings:        LoadSettings(),
		term:            NewTerminalGuard(),
		shutdownTimeout: 5 * time.Second,
	}
	// The Runtime pointer rides the context as DI. Commands load it once
	// at their root handler via FromContextOrPanic and pass it down
	// explicitly from there.
	rt.ctx = context.WithValue(baseCtx, runtimeKey{}, rt)
	return rt
}

func FromContext(ctx context.Context) *Runtime {
	v := ctx.Value(runtimeKey{})
	if v == nil {
		return nil
	}
	rt, _ := v.(*Runtime)
	return rt
}

func FromContextOrPanic(ctx context.Context) *Runtime {
	rt := FromContext(ctx)
	if rt == nil {
		panic(errors.New("runtime not found in this context"))
	}
	return rt
}

func (rt *Runtime) Ctx() context.Context {
	return rt.ctx
}

func (rt *Runtime) CancelCtx() {
	rt.cancelFunc()
}

func (rt *Runtime) RunID() string {
	return rt.runID
}

func (rt *Runtime) Settings() *Settings {
	return rt.settings
}

func (rt *Runtime) Term() *TerminalGuard {
	return rt.term
}

func (rt *Runtime) LogWriter() io.Writer {
	return rt.logWriter
}

// OpenRunLog opens the per-run log file and routes full-fidelity log output
// to it. Failures only cost the log file, never the run.
func (rt *Runtime) OpenRunLog() {
	logPath := hostappconfig.RunLogPath(rt.runID)
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		logs.Warnf("can't create log directory: %v", err)
		return
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		logs.Warnf("can't open log file: %v", err)
		return
	}
	// SyncWriter keeps the file fresh for tail -f; TimestampWriter stamps
	// entries at the final destination.
	w := ui.NewTimestampWriter(ui.NewSyncWriter(f, 200*time.Millisecond))
	rt.logWriter = w
	logs.SetFullLogWriter(w)
}

// GoNamed runs fn in a new goroutine with panic recovery.
//
// Contract:
//   - If fn panics, the panic is recovered, wrapped into an error, recorded,
//     and the runtime context is cancelled.
//   - Wait() returns after all such goroutines finish, with the first
//     recorded failure.
func (rt *Runtime) GoNamed(name string, fn func()) {
	if name == "" {
		name = "anonymous"
	}
	rt.wg.Go(func() {
		logs.Debugf("%s goroutine start", name)
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("panic: %v\n%s", r, debug.Stack())
				rt.mu.Lock()
				if rt.firstFailErr == nil {
					rt.firstFailErr = err
					// cancel everyone on first failure
					rt.cancelFunc()
				}
				rt.mu.Unlock()
			}
		}()

		fn()
		logs.Debugf("%s goroutine finish", name)
	})
}

func (rt *Runtime) Wait() error {
	rt.wg.Wait()

	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.firstFailErr
}

// OnShutdown registers fn to run once the runtime context is cancelled.
// fn gets a fresh context bounded by the shutdown timeout.
func (rt *Runtime) OnShutdown(fn func(ctx context.Context)) {
	rt.GoNamed("OnShutdown", func() {
		<-rt.ctx.Done()

		cleanupCtx, cancel := context.WithTimeout(context.Background(), rt.shutdownTimeout)
		defer cancel()

		fn(cleanupCtx)
	})
}

// Finalize handles both panic and normal exit.
// Call it in a defer at the top of main.
func (rt *Runtime) Finalize(appName, helpHint string, execErr *error) {
	if r := recover(); r != nil {
		// panic path
		if rt.term != nil {
			rt.term.Restore()
		}

		fmt.Fprintf(os.Stderr, "%s panic: %v\n", appName, r)
		fmt.Fprintf(os.Stderr, "%s\n", debug.Stack())
		fmt.Fprintln(os.Stderr, "")
		if helpHint != "" {
			fmt.Fprintln(os.Stderr, helpHint)
		}

		// cancel & wait so OnShutdown hooks run
		rt.CancelCtx()
		_ = rt.Wait()

		logs.Close()
		os.Exit(1)
	}

	// normal path, use execErr to decide what to report
	if rt.term != nil {
		rt.term.Restore()
	}

	rt.CancelCtx()
	waitErr := rt.Wait()

	if execErr != nil && *execErr != nil {
		logs.Errorf("%s error: %v", appName, *execErr)
		if helpHint != "" {
			fmt.Fprintln(os.Stderr, helpHint)
		}
	} else if waitErr != nil {
		logs.Errorf("%s fail reason: %v", appName, waitErr)
	}

	logs.Close()
}
