package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"mirrorwatch/internal/model"
)

const (
	PlaceholderSource   = "{source}"
	PlaceholderTarget   = "{target}"
	PlaceholderFullCopy = "{full_copy}"
)

// ExitError is reported when the sync command ran but exited with a code
// above the configured success threshold.
type ExitError struct {
	Code       int
	MaxSuccess int
}

func (e *ExitError) Error() string {
	if e.Code < 0 {
		return "sync command was terminated by a signal"
	}
	return fmt.Sprintf("sync command failed with exit code %d", e.Code)
}

// Runner delegates the sync pass to an external program such as rsync or a
// robocopy wrapper script.
type Runner struct {
	args         []string
	fullCopyArgs []string
	maxSuccess   int
}

func NewRunner(args, fullCopyArgs []string, maxSuccess int) (*Runner, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return nil, errors.New("sync command is empty")
	}

	return &Runner{
		args:         args,
		fullCopyArgs: fullCopyArgs,
		maxSuccess:   maxSuccess,
	}, nil
}

// Command expands the placeholders of the configured argument list. Without
// a {full_copy} element the full-copy arguments are appended at the end.
func (r *Runner) Command(req model.SyncRequest) []string {
	replacer := strings.NewReplacer(
		PlaceholderSource, req.Source,
		PlaceholderTarget, req.Target,
	)

	argv := make([]string, 0, len(r.args)+len(r.fullCopyArgs))
	placed := false

	for _, arg := range r.args {
		if arg == PlaceholderFullCopy {
			placed = true
			if req.FullCopy {
				argv = append(argv, r.fullCopyArgs...)
			}
			continue
		}
		argv = append(argv, replacer.Replace(arg))
	}

	if req.FullCopy && !placed {
		argv = append(argv, r.fullCopyArgs...)
	}

	return argv
}

func (r *Runner) Sync(ctx context.Context, req model.SyncRequest) model.SyncResult {
	result := model.SyncResult{Request: req, StartedAt: time.Now()}

	argv := r.Command(req)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result.Duration = time.Since(result.StartedAt)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		result.ExitCode = -1
		result.Err = fmt.Errorf("failed to run %s: %w", argv[0], err)
		return result
	}

	if result.ExitCode < 0 || result.ExitCode > r.maxSuccess {
		result.Err = &ExitError{Code: result.ExitCode, MaxSuccess: r.maxSuccess}
		if ctxErr := ctx.Err(); ctxErr != nil {
			result.Err = fmt.Errorf("%w: %w", result.Err, ctxErr)
		}
	}

	return result
}
