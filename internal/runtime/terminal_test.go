package runtime

import "testing"

func TestTerminalGuardWithoutTTY(t *testing.T) {
	t.Parallel()

	g := NewTerminalGuard()

	// Test processes have no terminal attached, so raw mode is a no-op
	// and restoration must be safe to call any number of times.
	if err := g.EnterRawAndWatch(func(width, height uint) {}); err != nil {
		t.Fatalf("EnterRawAndWatch() error = %v", err)
	}
	g.Restore()
	g.Restore()
}
