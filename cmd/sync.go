package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mirrorwatch/internal/config"
	"mirrorwatch/internal/db"
	"mirrorwatch/internal/logger"
	"mirrorwatch/internal/model"
	"mirrorwatch/internal/pipeline"
	"mirrorwatch/internal/repository"
	"mirrorwatch/internal/syncer"
	"mirrorwatch/internal/syncer/command"
	"mirrorwatch/internal/syncer/local"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the source directory once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Sync()

		if err := cfg.Validate(); err != nil {
			return err
		}

		matcher, err := pipeline.NewMatcher(cfg.SourceDir, cfg.IgnoreList)
		if err != nil {
			return err
		}

		s, err := newSyncer(matcher)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Log.Info("starting file synchronization",
			zap.String("src", cfg.SourceDir),
			zap.String("dst", cfg.TargetDir),
			zap.Bool("full_copy", cfg.FullCopy))

		result := s.Sync(ctx, model.SyncRequest{
			Source:   cfg.SourceDir,
			Target:   cfg.TargetDir,
			FullCopy: cfg.FullCopy,
			Reason:   model.ReasonManual,
		})

		if err := db.Init(cfg.DBPath); err != nil {
			logger.Log.Warn("history disabled",
				zap.Error(err))
		} else {
			if err := repository.NewHistoryRepository().Save(result); err != nil {
				logger.Log.Warn("failed to save history",
					zap.Error(err))
			}
			_ = db.Close()
		}

		if result.Stdout != "" {
			fmt.Print(gray.Render(result.Stdout))
			fmt.Println()
		}

		if result.Err != nil {
			logger.Log.Error("sync failed",
				zap.Int("exit_code", result.ExitCode),
				zap.String("stderr", result.Stderr))
			return result.Err
		}

		fmt.Println(green.Render(fmt.Sprintf("done in %s (exit code %d)",
			result.Duration.Round(time.Millisecond), result.ExitCode)))
		return nil
	},
}

// newSyncer builds the backend selected by sync_backend.
func newSyncer(matcher *pipeline.Matcher) (syncer.Syncer, error) {
	switch cfg.SyncBackend {
	case config.BackendBuiltin:
		return local.NewMirror(matcher), nil
	default:
		return command.NewRunner(cfg.SyncCommand, cfg.FullCopyArgs, cfg.MaxSuccessCode)
	}
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
