package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newTestLogger(level zapcore.Level) (*zap.Logger, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	cores := consoleCores(zap.NewAtomicLevelAt(level), zapcore.AddSync(&out), zapcore.AddSync(&errOut))
	return zap.New(zapcore.NewTee(cores...)), &out, &errOut
}

func TestErrorsGoToStderr(t *testing.T) {
	log, out, errOut := newTestLogger(zapcore.InfoLevel)

	log.Info("file synchronization completed")
	log.Warn("failed to save history")
	log.Error("sync failed", zap.Int("exit_code", 8))

	assert.Contains(t, out.String(), "file synchronization completed")
	assert.Contains(t, out.String(), "failed to save history")
	assert.NotContains(t, out.String(), "sync failed")

	assert.Contains(t, errOut.String(), "sync failed")
	assert.Contains(t, errOut.String(), "exit_code")
	assert.NotContains(t, errOut.String(), "completed")
}

func TestDebugLevelFiltering(t *testing.T) {
	log, out, _ := newTestLogger(zapcore.InfoLevel)
	log.Debug("hidden")
	assert.Empty(t, out.String())

	log, out, _ = newTestLogger(zapcore.DebugLevel)
	log.Debug("shown")
	assert.Contains(t, out.String(), "shown")
}

func TestInitWritesErrorsToProcessStderr(t *testing.T) {
	dir := t.TempDir()
	stdout, err := os.Create(filepath.Join(dir, "stdout"))
	require.NoError(t, err)
	stderr, err := os.Create(filepath.Join(dir, "stderr"))
	require.NoError(t, err)

	origOut, origErr, origLog := os.Stdout, os.Stderr, Log
	os.Stdout, os.Stderr = stdout, stderr
	t.Cleanup(func() {
		os.Stdout, os.Stderr, Log = origOut, origErr, origLog
		_ = stdout.Close()
		_ = stderr.Close()
	})

	Init(false, filepath.Join(dir, "mirrorwatch.log"))
	Log.Info("watching directory")
	Log.Error("sync failed")
	Sync()

	gotOut, err := os.ReadFile(stdout.Name())
	require.NoError(t, err)
	gotErr, err := os.ReadFile(stderr.Name())
	require.NoError(t, err)

	assert.Contains(t, string(gotOut), "watching directory")
	assert.NotContains(t, string(gotOut), "sync failed")
	assert.Contains(t, string(gotErr), "sync failed")

	logFile, err := os.ReadFile(filepath.Join(dir, "mirrorwatch.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logFile), `"msg":"sync failed"`)
}
