// Package httpserver exposes the status API: health, pipeline statistics,
// notification history and Prometheus metrics.
package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/petwatch/petwatch-go/internal/conf"
	"github.com/petwatch/petwatch-go/internal/datastore"
	"github.com/petwatch/petwatch-go/internal/logging"
	"github.com/petwatch/petwatch-go/internal/monitor"
	"github.com/petwatch/petwatch-go/internal/notification"
	"github.com/petwatch/petwatch-go/internal/observability"
)

const defaultHistoryLimit = 50

// Server is the status HTTP server. All endpoints are read-only.
type Server struct {
	echo    *echo.Echo
	port    string
	monitor *monitor.Monitor
	worker  *notification.Worker
	store   datastore.Interface
	logger  *slog.Logger
}

// New creates the server and registers routes. The datastore may be nil, in
// which case notification history comes from the in-memory worker reports.
func New(settings *conf.WebServerSettings, mon *monitor.Monitor, worker *notification.Worker, store datastore.Interface, metrics *observability.Metrics) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		port:    settings.Port,
		monitor: mon,
		worker:  worker,
		store:   store,
		logger:  logging.ForService("httpserver"),
	}

	e.GET("/healthz", s.handleHealth)
	e.GET("/api/v1/stats", s.handleStats)
	e.GET("/api/v1/notifications", s.handleNotifications)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("status server listening", "port", s.port)
	err := s.echo.Start(":" + s.port)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	stats := s.monitor.Stats()
	resp := map[string]any{
		"pipeline": stats,
	}
	if s.worker != nil {
		resp["queue_depth"] = s.worker.QueueDepth()
	}
	if s.store != nil {
		counts, err := s.store.CountsByLabel()
		if err != nil {
			s.logger.Error("failed to read label totals", "error", err)
		} else {
			resp["label_totals"] = counts
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleNotifications(c echo.Context) error {
	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}

	if s.store != nil {
		records, err := s.store.Recent(limit)
		if err != nil {
			s.logger.Error("failed to read notification history", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "history unavailable")
		}
		return c.JSON(http.StatusOK, records)
	}

	if s.worker != nil {
		return c.JSON(http.StatusOK, s.worker.Recent(limit))
	}
	return c.JSON(http.StatusOK, []struct{}{})
}
