package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"mirrorwatch/internal/daemon"
	"mirrorwatch/internal/db"
	"mirrorwatch/internal/logger"
	"mirrorwatch/internal/pipeline"
	"mirrorwatch/internal/repository"
	"mirrorwatch/internal/syncer/local"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the source directory and sync on every change",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.Log.Info("Initializing file watcher...")
	logger.Log.Info("watching directory",
		zap.String("path", cfg.SourceDir))
	logger.Log.Info("destination directory",
		zap.String("path", cfg.TargetDir))
	logger.Log.Info("full copy mode",
		zap.Bool("enabled", cfg.FullCopy))
	logger.Log.Info("ignored patterns",
		zap.Strings("patterns", cfg.IgnoreList),
		zap.String("mode", cfg.WatchMode))

	matcher, err := pipeline.NewMatcher(cfg.SourceDir, cfg.IgnoreList)
	if err != nil {
		return err
	}

	s, err := newSyncer(matcher)
	if err != nil {
		return err
	}

	src, err := local.NewSource(cfg.WatchMode, cfg.SourceDir, local.OptionsFromConfig(cfg, matcher))
	if err != nil {
		return err
	}

	var histRepo *repository.HistoryRepository
	var history daemon.HistoryStore
	if err := db.Init(cfg.DBPath); err != nil {
		logger.Log.Warn("history disabled",
			zap.String("db", cfg.DBPath),
			zap.Error(err))
	} else {
		defer func() {
			_ = db.Close()
		}()
		histRepo = repository.NewHistoryRepository()
		history = histRepo
	}

	runner := daemon.NewRunner(cfg, src, s, history)

	if err := runner.Start(context.Background()); err != nil {
		return err
	}

	var stopCh <-chan struct{}
	var srv *daemon.Server
	if cfg.DaemonPort > 0 {
		srv = daemon.NewServer(runner, histRepo, cfg.DaemonPort)
		srv.Start()
		stopCh = srv.StopCh()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Log.Info("shutting down",
			zap.String("signal", sig.String()))
	case <-stopCh:
		logger.Log.Info("stop requested via API")
	case <-cmd.Context().Done():
		logger.Log.Info("shutting down",
			zap.Error(cmd.Context().Err()))
	}

	logger.Log.Info("closing file watcher")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := runner.Shutdown(ctx); err != nil {
		logger.Log.Warn("shutdown incomplete",
			zap.Error(err))
	}

	if srv != nil {
		if err := srv.Stop(ctx); err != nil {
			logger.Log.Warn("failed to stop control server",
				zap.Error(err))
		}
	}

	logger.Log.Info("file watcher closed")
	return nil
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
