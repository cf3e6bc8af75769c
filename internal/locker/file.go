package locker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/gisquick/tilecache/internal/ctxerr"
)

// File is the O_EXCL-based locker backend of spec §4.8: a lock is a file
// under Dir whose existence is the acquisition fact. Reading a result back
// via plain O_EXCL semantics isn't possible, so at completion the owner
// writes "ok" or "failed" to a sibling status file and then removes the
// lock file; waiters poll until the lock file is gone and then read the
// status file.
type File struct {
	Dir          string
	PollInterval time.Duration
	StaleAfter   time.Duration
	log          *zap.SugaredLogger
}

func NewFile(log *zap.SugaredLogger, dir string, pollInterval, staleAfter time.Duration) *File {
	if pollInterval <= 0 {
		pollInterval = 50 * time.Millisecond
	}
	return &File{Dir: dir, PollInterval: pollInterval, StaleAfter: staleAfter, log: log}
}

func (f *File) lockPath(name string) string {
	return filepath.Join(f.Dir, name+".lock")
}

func (f *File) statusPath(name string) string {
	return filepath.Join(f.Dir, name+".status")
}

// ReapStale removes lock artifacts older than StaleAfter (spec §4.8's
// "stale-lock cleanup on startup"). Call once before serving requests.
func (f *File) ReapStale() error {
	if f.StaleAfter <= 0 {
		return nil
	}
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	cutoff := time.Now().Add(-f.StaleAfter)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(f.Dir, e.Name()))
		}
	}
	return nil
}

func (f *File) Do(ctx context.Context, name string, fn func(ctx context.Context) error) (bool, error) {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return false, fmt.Errorf("creating lock directory: %w", err)
	}
	os.Remove(f.statusPath(name))
	lp := f.lockPath(name)
	fh, err := os.OpenFile(lp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if !os.IsExist(err) {
			return false, fmt.Errorf("creating lock file: %w", err)
		}
		return false, f.wait(ctx, name)
	}
	fmt.Fprintf(fh, "%d", os.Getpid())
	fh.Close()

	renderErr := fn(ctx)
	status := "ok"
	if renderErr != nil {
		status = "failed"
	}
	os.WriteFile(f.statusPath(name), []byte(status), 0o644)
	if err := os.Remove(lp); err != nil && renderErr == nil {
		return true, err
	}
	return true, renderErr
}

func (f *File) wait(ctx context.Context, name string) error {
	lp := f.lockPath(name)
	ticker := time.NewTicker(f.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := os.Stat(lp); os.IsNotExist(err) {
				if data, err := os.ReadFile(f.statusPath(name)); err == nil {
					if string(data) == "failed" {
						return ctxerr.UpstreamFailure("render of %q failed", name)
					}
				}
				return nil
			}
		}
	}
}

