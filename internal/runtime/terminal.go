package runtime

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/moby/term"
)

// TerminalGuard puts stdin into raw mode for interactive container attach
// and guarantees restoration on any exit path, including panics.
type TerminalGuard struct {
	mu         sync.Mutex
	inFd       uintptr
	oldState   *term.State
	resizeCh   chan os.Signal
	resizeDone chan struct{}
	resizeWg   sync.WaitGroup
}

func NewTerminalGuard() *TerminalGuard {
	return &TerminalGuard{}
}

// IsTerminal reports whether stdout is attached to a TTY, which decides
// whether the container gets a pty.
func (g *TerminalGuard) IsTerminal() bool {
	_, isTerm := term.GetFdInfo(os.Stdout)
	return isTerm
}

// EnterRawAndWatch puts the terminal into raw mode (if stdin is a TTY) and
// watches SIGWINCH, calling onResize(width, height) on each change and once
// immediately with the current size.
func (g *TerminalGuard) EnterRawAndWatch(onResize func(width, height uint)) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.oldState != nil {
		return nil
	}

	inFd, isTerm := term.GetFdInfo(os.Stdin)
	if !isTerm {
		return nil
	}

	st, err := term.MakeRaw(inFd)
	if err != nil {
		return err
	}

	g.inFd = inFd
	g.oldState = st

	if onResize != nil {
		g.resizeCh = make(chan os.Signal, 1)
		g.resizeDone = make(chan struct{})

		signal.Notify(g.resizeCh, syscall.SIGWINCH)

		g.resizeWg.Add(1)
		go func(fd uintptr) {
			defer g.resizeWg.Done()
			for {
				select {
				case <-g.resizeDone:
					return
				case <-g.resizeCh:
					if ws, err := term.GetWinsize(fd); err == nil {
						onResize(uint(ws.Width), uint(ws.Height))
					}
				}
			}
		}(inFd)

		if ws, err := term.GetWinsize(inFd); err == nil {
			onResize(uint(ws.Width), uint(ws.Height))
		}
	}

	return nil
}

// Restore resets the terminal to its previous state and stops resize
// watching. Safe to call multiple times.
func (g *TerminalGuard) Restore() {
	g.mu.Lock()
	if g.oldState != nil {
		_ = term.RestoreTerminal(g.inFd, g.oldState)
		g.oldState = nil
	}
	stopResize := g.resizeCh != nil
	if stopResize {
		signal.Stop(g.resizeCh)
		close(g.resizeDone)
		g.resizeCh = nil
	}
	g.inFd = 0
	g.mu.Unlock()

	// Wait outside the lock so a concurrent resize callback can't deadlock.
	if stopResize {
		g.resizeWg.Wait()
	}
}
