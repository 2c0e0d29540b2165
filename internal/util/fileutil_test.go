package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWrite(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "a", "b", "file.txt")
	mod := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, AtomicWrite(dst, strings.NewReader("payload"), 0644, mod))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mod))

	_, err = os.Stat(dst + ".mirrorwatch.tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "x")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	require.NoError(t, RemoveIfExists(file))
	require.NoError(t, RemoveIfExists(file))

	_, err := os.Stat(file)
	assert.True(t, os.IsNotExist(err))
}
