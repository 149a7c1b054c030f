package sifstore

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// A pull that takes longer than this is assumed to have died with its
// lock file behind.
const lockStaleAfter = 30 * time.Minute

// FSMutex serializes SIF conversions across processes via an exclusive
// lock file next to the target image.
type FSMutex interface {
	Lock(tryLimit int) error
	Unlock()
}

type fsMutex struct {
	lockPath string
	locked   bool
}

// NewFSMutex returns a mutex backed by lockPath.
func NewFSMutex(lockPath string) FSMutex {
	return &fsMutex{lockPath: lockPath}
}

// LockFor returns the mutex guarding the SIF for ref's target path.
func (s *Store) LockFor(path string) FSMutex {
	return NewFSMutex(path + ".lock")
}

func (mu *fsMutex) Lock(tryLimit int) error {
	tries := 0
	for {
		tries++
		if tryLimit > 0 && tries > tryLimit {
			return errors.New("can't acquire lock")
		}

		f, err := os.OpenFile(mu.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			_, _ = f.WriteString(fmt.Sprintf("%d\n%d\n", os.Getpid(), time.Now().Unix()))
			_ = f.Close()
			mu.locked = true
			return nil
		}

		if !errors.Is(err, os.ErrExist) {
			return err
		}

		// Lock exists: check if it's stale.
		info, statErr := os.Stat(mu.lockPath)
		if statErr != nil {
			if errors.Is(statErr, os.ErrNotExist) {
				continue
			}
			return statErr
		}

		if age := time.Since(info.ModTime()); age > lockStaleAfter {
			// Consider stale. Best-effort remove, retry on the next loop.
			_ = os.Remove(mu.lockPath)
			continue
		}

		time.Sleep(50 * time.Millisecond)
	}
}

func (mu *fsMutex) Unlock() {
	if !mu.locked {
		return
	}
	_ = os.Remove(mu.lockPath)
	mu.locked = false
}
