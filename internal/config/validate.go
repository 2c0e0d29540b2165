package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	ErrMissing    = errors.New("required setting is not set")
	ErrNotExist   = errors.New("path does not exist")
	ErrPermission = errors.New("access denied")
	ErrNotDir     = errors.New("not a directory")
)

// PathError reports which startup condition a configured directory violates.
type PathError struct {
	Key  string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Key, e.Err, e.Path)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// Validate checks the settings the watcher cannot run without. It must pass
// before any watch is established.
func (c *Config) Validate() error {
	if c.TargetDir == "" {
		return fmt.Errorf("TARGET_DIR is not set: %w", ErrMissing)
	}
	if c.SourceDir == "" {
		return fmt.Errorf("SOURCE_DIR is not set: %w", ErrMissing)
	}

	switch c.WatchMode {
	case WatchModePolling, WatchModeNative:
	default:
		return fmt.Errorf("unknown watch_mode %q", c.WatchMode)
	}

	switch c.SyncBackend {
	case BackendCommand:
		if len(c.SyncCommand) == 0 {
			return fmt.Errorf("sync_command is empty: %w", ErrMissing)
		}
	case BackendBuiltin:
	default:
		return fmt.Errorf("unknown sync_backend %q", c.SyncBackend)
	}

	if c.Cooldown <= 0 || c.PollInterval <= 0 || c.SettlePoll <= 0 || c.SettleThreshold < 0 {
		return errors.New("cooldown, poll_interval and settle_poll must be positive")
	}

	if err := checkDir("SOURCE_DIR", c.SourceDir, false); err != nil {
		return err
	}
	return checkDir("TARGET_DIR", c.TargetDir, true)
}

func checkDir(key, path string, needWrite bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return &PathError{Key: key, Path: path, Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return &PathError{Key: key, Path: abs, Err: classify(err)}
	}

	if !info.IsDir() {
		return &PathError{Key: key, Path: abs, Err: ErrNotDir}
	}

	if needWrite {
		if err := writable(abs); err != nil {
			return &PathError{Key: key, Path: abs, Err: classify(err)}
		}
	}

	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotExist
	case errors.Is(err, fs.ErrPermission):
		return ErrPermission
	default:
		return err
	}
}
