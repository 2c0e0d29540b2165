package command

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirrorwatch/internal/model"
)

func TestNewRunnerRejectsEmpty(t *testing.T) {
	_, err := NewRunner(nil, nil, 0)
	require.Error(t, err)

	_, err = NewRunner([]string{" "}, nil, 0)
	require.Error(t, err)
}

func TestCommandPlaceholders(t *testing.T) {
	r, err := NewRunner([]string{"rsync", "-a", "{full_copy}", "{source}/", "{target}/"}, []string{"--delete"}, 0)
	require.NoError(t, err)

	req := model.SyncRequest{Source: "/src dir", Target: "/dst"}
	assert.Equal(t, []string{"rsync", "-a", "/src dir/", "/dst/"}, r.Command(req))

	req.FullCopy = true
	assert.Equal(t, []string{"rsync", "-a", "--delete", "/src dir/", "/dst/"}, r.Command(req))
}

func TestCommandAppendsFullCopyArgs(t *testing.T) {
	r, err := NewRunner([]string{"sync.sh", "-sourceDir", "{source}", "-baseDestination", "{target}"}, []string{"-FullCopy"}, 3)
	require.NoError(t, err)

	req := model.SyncRequest{Source: `C:\src`, Target: `D:\dst`, FullCopy: true}
	assert.Equal(t,
		[]string{"sync.sh", "-sourceDir", `C:\src`, "-baseDestination", `D:\dst`, "-FullCopy"},
		r.Command(req))
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
}

func TestSyncCapturesOutput(t *testing.T) {
	skipOnWindows(t)

	r, err := NewRunner([]string{"sh", "-c", `echo "copy {source} -> {target}"; echo warn >&2`}, nil, 0)
	require.NoError(t, err)

	res := r.Sync(context.Background(), model.SyncRequest{Source: "/a", Target: "/b", Reason: model.ReasonChange})
	require.NoError(t, res.Err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "copy /a -> /b\n", res.Stdout)
	assert.Equal(t, "warn\n", res.Stderr)
	assert.Equal(t, model.ReasonChange, res.Request.Reason)
}

func TestSyncExitCodeThreshold(t *testing.T) {
	skipOnWindows(t)

	r, err := NewRunner([]string{"sh", "-c", "exit 3"}, nil, 3)
	require.NoError(t, err)
	res := r.Sync(context.Background(), model.SyncRequest{})
	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.ExitCode)

	r, err = NewRunner([]string{"sh", "-c", "echo boom >&2; exit 8"}, nil, 3)
	require.NoError(t, err)
	res = r.Sync(context.Background(), model.SyncRequest{})

	var exitErr *ExitError
	require.ErrorAs(t, res.Err, &exitErr)
	assert.Equal(t, 8, exitErr.Code)
	assert.Equal(t, 8, res.ExitCode)
	assert.Equal(t, "boom\n", res.Stderr)
}

func TestSyncMissingExecutable(t *testing.T) {
	r, err := NewRunner([]string{"mirrorwatch-definitely-not-installed"}, nil, 0)
	require.NoError(t, err)

	res := r.Sync(context.Background(), model.SyncRequest{})
	require.Error(t, res.Err)
	assert.Equal(t, -1, res.ExitCode)
}

func TestSyncCancelled(t *testing.T) {
	skipOnWindows(t)

	r, err := NewRunner([]string{"sleep", "10"}, nil, 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := r.Sync(ctx, model.SyncRequest{})
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
