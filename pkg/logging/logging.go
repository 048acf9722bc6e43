// Package logging sets up FrostBar's slog output: a text handler writing
// to both stderr and a per-run log file under the state directory, with
// old run files pruned on startup.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Namespace is used for the state directory and log file names.
const Namespace = "frostbar"

// Retention limits for old run files: whichever bound is hit first wins.
const (
	MaxLogFiles = 15
	MaxLogAge   = 7 * 24 * time.Hour
)

// StateDir resolves the log directory: $XDG_STATE_HOME/frostbar, falling
// back to ~/.local/state/frostbar.
func StateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, Namespace)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", Namespace)
}

// logFileName builds the per-run file name: frostbar.<pid>.<stamp>.log.
func logFileName(now time.Time) string {
	return fmt.Sprintf("%s.%d.%s.log", Namespace, os.Getpid(), now.Format("20060102-150405"))
}

// Setup opens a fresh run log, prunes old ones, and returns a logger
// writing to both stderr and the file. The returned closer releases the
// file handle. If the state directory cannot be used, logging degrades
// to stderr only.
func Setup(verbose bool) (*slog.Logger, func() error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	dir := StateDir()
	var w io.Writer = os.Stderr
	closer := func() error { return nil }

	if err := os.MkdirAll(dir, 0o755); err == nil {
		Prune(dir, time.Now())
		path := filepath.Join(dir, logFileName(time.Now()))
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			w = io.MultiWriter(os.Stderr, f)
			closer = f.Close
		}
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, closer
}

// Prune removes run logs beyond the retention limits: files older than
// MaxLogAge, and the oldest files past the MaxLogFiles newest.
func Prune(dir string, now time.Time) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	type logFile struct {
		path  string
		mtime time.Time
	}
	var files []logFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), Namespace+".") || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, logFile{path: filepath.Join(dir, e.Name()), mtime: info.ModTime()})
	}

	// Newest first; everything past the file cap or the age cap goes.
	sort.Slice(files, func(i, j int) bool { return files[i].mtime.After(files[j].mtime) })
	for i, f := range files {
		if i >= MaxLogFiles || now.Sub(f.mtime) > MaxLogAge {
			os.Remove(f.path)
		}
	}
}
