package orchestrate

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// lockStaleAfter is how old a leftover lock file may be before a new run
// claims it. A live run touches the control plane at least once per
// operation timeout, so anything older belongs to a dead process.
const lockStaleAfter = 10 * time.Minute

// runLock serializes provisioning runs against one project.
type runLock struct {
	path string
}

func newRunLock(dir, project string) *runLock {
	if dir == "" {
		dir = os.TempDir()
	}
	return &runLock{path: filepath.Join(dir, "gwinfra-"+project+".lock")}
}

// Acquire takes the lock or reports who holds it. Stale locks are removed.
func (l *runLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	if info, err := os.Stat(l.path); err == nil {
		if time.Since(info.ModTime()) > lockStaleAfter {
			os.Remove(l.path)
		} else {
			return fmt.Errorf("another run holds the lock for this project (lock file: %s). "+
				"If this is an error, remove the lock file manually", l.path)
		}
	}

	content := fmt.Sprintf("pid=%d\ntime=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(l.path, []byte(content), 0644); err != nil {
		return fmt.Errorf("create lock file: %w", err)
	}
	return nil
}

// Release removes the lock file. A missing file is not an error.
func (l *runLock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file: %w", err)
	}
	return nil
}
