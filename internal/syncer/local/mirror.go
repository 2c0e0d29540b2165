package local

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mirrorwatch/internal/logger"
	"mirrorwatch/internal/model"
	"mirrorwatch/internal/pipeline"
	"mirrorwatch/internal/util"

	"go.uber.org/zap"
)

// Mirror is the in-process sync backend. Files whose size or modification
// time differ are copied; in full-copy mode entries that exist only in the
// target are removed. Ignored paths are neither copied nor removed.
type Mirror struct {
	matcher *pipeline.Matcher
}

func NewMirror(matcher *pipeline.Matcher) *Mirror {
	return &Mirror{matcher: matcher}
}

type mirrorStats struct {
	copied    int
	unchanged int
	removed   int
	failures  []string
}

func (s *mirrorStats) fail(format string, args ...any) {
	s.failures = append(s.failures, fmt.Sprintf(format, args...))
}

func (m *Mirror) Sync(ctx context.Context, req model.SyncRequest) model.SyncResult {
	result := model.SyncResult{Request: req, StartedAt: time.Now()}
	defer func() {
		result.Duration = time.Since(result.StartedAt)
	}()

	src, err := filepath.Abs(req.Source)
	if err != nil {
		result.ExitCode = 1
		result.Err = fmt.Errorf("invalid src path: %w", err)
		return result
	}
	dst, err := filepath.Abs(req.Target)
	if err != nil {
		result.ExitCode = 1
		result.Err = fmt.Errorf("invalid dst path: %w", err)
		return result
	}

	var stats mirrorStats
	if err := m.copyTree(ctx, src, dst, &stats); err != nil {
		result.ExitCode = 1
		result.Err = err
		return result
	}

	if req.FullCopy {
		if err := m.prune(ctx, src, dst, &stats); err != nil {
			result.ExitCode = 1
			result.Err = err
			return result
		}
	}

	result.Stdout = fmt.Sprintf("copied %d, unchanged %d, removed %d, failed %d\n",
		stats.copied, stats.unchanged, stats.removed, len(stats.failures))

	if len(stats.failures) > 0 {
		result.ExitCode = 1
		result.Stderr = strings.Join(stats.failures, "\n")
		result.Err = fmt.Errorf("%d entries failed to sync", len(stats.failures))
	}

	return result
}

func (m *Mirror) copyTree(ctx context.Context, src, dst string, stats *mirrorStats) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == src {
				return fmt.Errorf("failed to read source: %w", err)
			}
			stats.fail("%s: %v", path, err)
			return nil
		}

		if path != src && m.ignored(path, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		dstPath := toDst(src, dst, path)

		if d.IsDir() {
			if err := os.MkdirAll(dstPath, 0755); err != nil {
				stats.fail("%s: %v", dstPath, err)
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			stats.fail("%s: %v", path, err)
			return nil
		}

		if upToDate(info, dstPath) {
			stats.unchanged++
			return nil
		}

		if err := copyFile(path, dstPath, info); err != nil {
			stats.fail("%s: %v", path, err)
			return nil
		}

		stats.copied++
		logger.Log.Debug("copied",
			zap.String("src", path),
			zap.String("dst", dstPath))
		return nil
	})
}

func (m *Mirror) prune(ctx context.Context, src, dst string, stats *mirrorStats) error {
	return filepath.WalkDir(dst, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == dst {
				return fmt.Errorf("failed to read target: %w", err)
			}
			stats.fail("%s: %v", path, err)
			return nil
		}

		if path == dst {
			return nil
		}

		srcPath := toDst(dst, src, path)
		if m.ignored(srcPath, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if _, err := os.Lstat(srcPath); err == nil {
			return nil
		}

		if err := util.RemoveIfExists(path); err != nil {
			stats.fail("%v", err)
			return nil
		}

		stats.removed++
		logger.Log.Debug("removed extraneous entry",
			zap.String("path", path))

		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
}

func (m *Mirror) ignored(path string, isDir bool) bool {
	if isDir {
		return m.matcher.IgnoredDir(path)
	}
	return m.matcher.Ignored(path)
}

func upToDate(src fs.FileInfo, dstPath string) bool {
	dst, err := os.Stat(dstPath)
	if err != nil || !dst.Mode().IsRegular() {
		return false
	}
	return dst.Size() == src.Size() && dst.ModTime().Equal(src.ModTime())
}

func copyFile(src, dst string, info fs.FileInfo) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open src: %w", err)
	}

	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	return util.AtomicWrite(dst, f, info.Mode().Perm(), info.ModTime())
}

func toDst(src, dst, srcPath string) string {
	rel, err := filepath.Rel(src, srcPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Join(dst, filepath.Base(srcPath))
	}

	return filepath.Join(dst, rel)
}
