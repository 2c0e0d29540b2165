package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"mirrorwatch/internal/logger"
	"mirrorwatch/internal/model"
	"mirrorwatch/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type StatusResponse struct {
	Watch     model.Snapshot    `json:"watch"`
	SyncState string            `json:"sync_state"`
	Pending   bool              `json:"pending"`
	Stats     *repository.Stats `json:"stats,omitempty"`
}

// Server is the local control API of a running watcher.
type Server struct {
	echo     *echo.Echo
	runner   *Runner
	histRepo *repository.HistoryRepository
	port     int
	stopCh   chan struct{}
}

// NewServer builds the control API. histRepo may be nil when history is
// disabled.
func NewServer(runner *Runner, histRepo *repository.HistoryRepository, port int) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:     e,
		runner:   runner,
		histRepo: histRepo,
		port:     port,
		stopCh:   make(chan struct{}, 1),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/status", s.handleStatus)
	s.echo.GET("/history", s.handleHistory)
	s.echo.POST("/sync", s.handleSync)
	s.echo.POST("/stop", s.handleStop)
}

func (s *Server) Start() {
	go func() {
		addr := fmt.Sprintf("127.0.0.1:%d", s.port)
		logger.Log.Info("control server started",
			zap.String("addr", addr))

		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("control server error", zap.Error(err))
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) StopCh() <-chan struct{} {
	return s.stopCh
}

func (s *Server) handleStatus(c echo.Context) error {
	resp := StatusResponse{
		Watch:     s.runner.Snapshot(),
		SyncState: s.runner.SyncState().String(),
		Pending:   s.runner.Pending(),
	}

	if s.histRepo != nil {
		stats, err := s.histRepo.GetStats()
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		resp.Stats = &stats
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHistory(c echo.Context) error {
	if s.histRepo == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "history is disabled"})
	}

	n := 20
	if nStr := c.QueryParam("n"); nStr != "" {
		if parsed, err := strconv.Atoi(nStr); err == nil && parsed > 0 {
			n = parsed
		}
	}

	histories, err := s.histRepo.GetRecent(n)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, histories)
}

func (s *Server) handleSync(c echo.Context) error {
	status := "queued"
	if s.runner.TriggerNow() {
		status = "started"
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": status})
}

func (s *Server) handleStop(c echo.Context) error {
	select {
	case s.stopCh <- struct{}{}:
	default:
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "stopping"})
}
