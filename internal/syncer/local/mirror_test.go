package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirrorwatch/internal/config"
	"mirrorwatch/internal/model"
	"mirrorwatch/internal/pipeline"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func newTestMirror(t *testing.T, src string) *Mirror {
	t.Helper()
	matcher, err := pipeline.NewMatcher(src, config.Default.IgnoreList)
	require.NoError(t, err)
	return NewMirror(matcher)
}

func TestMirrorCopiesTree(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "a")
	writeFile(t, filepath.Join(src, "sub", "b.txt"), "b")
	writeFile(t, filepath.Join(src, "node_modules", "dep.js"), "dep")
	writeFile(t, filepath.Join(src, ".env"), "SECRET=1")

	m := newTestMirror(t, src)
	res := m.Sync(context.Background(), model.SyncRequest{Source: src, Target: dst})
	require.NoError(t, res.Err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Stdout, "copied 2")

	assert.Equal(t, "a", readFile(t, filepath.Join(dst, "a.txt")))
	assert.Equal(t, "b", readFile(t, filepath.Join(dst, "sub", "b.txt")))
	assert.NoFileExists(t, filepath.Join(dst, "node_modules", "dep.js"))
	assert.NoFileExists(t, filepath.Join(dst, ".env"))

	// second run has nothing to do
	res = m.Sync(context.Background(), model.SyncRequest{Source: src, Target: dst})
	require.NoError(t, res.Err)
	assert.Contains(t, res.Stdout, "copied 0, unchanged 2")
}

func TestMirrorAdditiveKeepsExtraneous(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "a")
	writeFile(t, filepath.Join(dst, "extra.txt"), "extra")

	res := newTestMirror(t, src).Sync(context.Background(), model.SyncRequest{Source: src, Target: dst})
	require.NoError(t, res.Err)

	assert.FileExists(t, filepath.Join(dst, "extra.txt"))
}

func TestMirrorFullCopyRemovesExtraneous(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "a")
	writeFile(t, filepath.Join(dst, "extra.txt"), "extra")
	writeFile(t, filepath.Join(dst, "olddir", "x.txt"), "x")
	writeFile(t, filepath.Join(dst, ".git", "HEAD"), "ref")

	res := newTestMirror(t, src).Sync(context.Background(), model.SyncRequest{Source: src, Target: dst, FullCopy: true})
	require.NoError(t, res.Err)
	assert.Contains(t, res.Stdout, "removed 2")

	assert.FileExists(t, filepath.Join(dst, "a.txt"))
	assert.NoFileExists(t, filepath.Join(dst, "extra.txt"))
	assert.NoDirExists(t, filepath.Join(dst, "olddir"))
	// ignored paths in the target are left alone
	assert.FileExists(t, filepath.Join(dst, ".git", "HEAD"))
}

func TestMirrorMissingSource(t *testing.T) {
	src := filepath.Join(t.TempDir(), "missing")
	res := newTestMirror(t, t.TempDir()).Sync(context.Background(), model.SyncRequest{Source: src, Target: t.TempDir()})
	require.Error(t, res.Err)
	assert.Equal(t, 1, res.ExitCode)
}

func TestMirrorCancelled(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newTestMirror(t, src).Sync(ctx, model.SyncRequest{Source: src, Target: dst})
	require.ErrorIs(t, res.Err, context.Canceled)
}
