package repository

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirrorwatch/internal/db"
	"mirrorwatch/internal/model"
)

func setupDB(t *testing.T) {
	t.Helper()
	require.NoError(t, db.Init(filepath.Join(t.TempDir(), "history.db")))
	t.Cleanup(func() { _ = db.Close() })
}

func result(reason model.SyncReason, started time.Time, err error) model.SyncResult {
	res := model.SyncResult{
		Request:   model.SyncRequest{Source: "/src", Target: "/dst", Reason: reason},
		StartedAt: started,
		Duration:  1500 * time.Millisecond,
		Err:       err,
	}
	if err != nil {
		res.ExitCode = 8
		res.Stderr = "robocopy: access denied"
	}
	return res
}

func TestHistorySaveAndRecent(t *testing.T) {
	setupDB(t)
	repo := NewHistoryRepository()

	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(result(model.ReasonInitial, t0, nil)))
	require.NoError(t, repo.Save(result(model.ReasonChange, t0.Add(time.Minute), errors.New("exit 8"))))
	require.NoError(t, repo.Save(result(model.ReasonChange, t0.Add(2*time.Minute), nil)))

	recent, err := repo.GetRecent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.True(t, recent[0].StartedAt.After(recent[1].StartedAt))
	assert.Equal(t, model.StatusFailed, recent[1].Status)
	assert.Equal(t, "exit 8", recent[1].ErrMsg)
	assert.Equal(t, 8, recent[1].ExitCode)
	assert.Equal(t, int64(1500), recent[1].DurationMs)

	failed, err := repo.GetFailed()
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "robocopy: access denied", failed[0].Stderr)

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, Success: 2, Failed: 1}, stats)
}

func TestHistoryTruncatesStderr(t *testing.T) {
	setupDB(t)
	repo := NewHistoryRepository()

	res := result(model.ReasonChange, time.Now(), errors.New("boom"))
	res.Stderr = strings.Repeat("x", maxStoredStderr) + "tail"
	require.NoError(t, repo.Save(res))

	recent, err := repo.GetRecent(1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Len(t, recent[0].Stderr, maxStoredStderr)
	assert.True(t, strings.HasSuffix(recent[0].Stderr, "tail"))
}
