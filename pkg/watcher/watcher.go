// Package watcher implements the polling config-file watcher. Instead of
// inotify it stats the watched paths on a fixed interval and compares the
// (mtime, canonical path) tuple, which also catches symlink flips done by
// configuration managers that swap a link target atomically.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// PollingInterval is the delay between consecutive checks.
const PollingInterval = 500 * time.Millisecond

// CheckType describes what happened to one watched path since the last
// check.
type CheckType int

const (
	// Unchanged: the path resolves to the same canonical file with the
	// same mtime as before.
	Unchanged CheckType = iota
	// Changed: the (mtime, canonical path) tuple differs from the stored
	// one.
	Changed
	// Disappeared: the path was present on a previous check and can no
	// longer be resolved.
	Disappeared
	// Missing: the path has never been resolvable.
	Missing
)

func (c CheckType) String() string {
	switch c {
	case Unchanged:
		return "unchanged"
	case Changed:
		return "changed"
	case Disappeared:
		return "disappeared"
	case Missing:
		return "missing"
	}
	return "unknown"
}

// Paths names the two watched files.
type Paths struct {
	Config string
	Colors string
}

// CheckResult consolidates one polling pass over both paths.
type CheckResult struct {
	Config CheckType
	Colors CheckType
}

// Interesting reports whether at least one path differs from Unchanged.
// Only interesting results are delivered.
func (r CheckResult) Interesting() bool {
	return r.Config != Unchanged || r.Colors != Unchanged
}

// seen is the stored identity of a watched file.
type seen struct {
	mtime time.Time
	canon string
}

// seePath canonicalizes the path and reads its modification time.
func seePath(path string) (seen, error) {
	canon, err := filepath.EvalSymlinks(path)
	if err != nil {
		return seen{}, err
	}
	info, err := os.Stat(canon)
	if err != nil {
		return seen{}, err
	}
	return seen{mtime: info.ModTime(), canon: canon}, nil
}

// Watcher tracks the last-seen identity of both paths between checks.
type Watcher struct {
	paths  Paths
	config *seen
	colors *seen
}

// New creates a watcher and records the initial state of both paths, so
// that the first check does not report a spurious Changed.
func New(paths Paths) *Watcher {
	w := &Watcher{paths: paths}
	if s, err := seePath(paths.Config); err == nil {
		w.config = &s
	}
	if s, err := seePath(paths.Colors); err == nil {
		w.colors = &s
	}
	return w
}

// Check performs one polling pass and returns the consolidated result.
func (w *Watcher) Check() CheckResult {
	return CheckResult{
		Config: checkOne(w.paths.Config, &w.config),
		Colors: checkOne(w.paths.Colors, &w.colors),
	}
}

func checkOne(path string, prev **seen) CheckType {
	now, err := seePath(path)
	if err != nil {
		if *prev != nil {
			*prev = nil
			return Disappeared
		}
		return Missing
	}
	if *prev != nil && now == **prev {
		return Unchanged
	}
	// Covers both a modified file and one that showed up after being
	// absent; either way the config should be (re)loaded.
	*prev = &now
	return Changed
}

// Run polls until ctx is done, delivering interesting results on the
// returned channel. The channel is closed when the watcher stops.
func Run(ctx context.Context, paths Paths) <-chan CheckResult {
	out := make(chan CheckResult, 1)
	w := New(paths)
	go func() {
		defer close(out)
		ticker := time.NewTicker(PollingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			result := w.Check()
			if !result.Interesting() {
				continue
			}
			select {
			case out <- result:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
