// Package server exposes the task-management entities over an HTTP
// JSON API: per-entity CRUD plus bulk sync endpoints for offline
// clients.
package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"tasksync/internal/config"
	"tasksync/internal/logger"
	"tasksync/internal/store"
	syncpkg "tasksync/internal/sync"
)

// Server is the sync backend.
type Server struct {
	cfg        *config.Config
	store      *store.Store
	reconciler *syncpkg.Reconciler
	echo       *echo.Echo
}

// New opens the entity store and wires up the HTTP surface.
func New(cfg *config.Config) (*Server, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		store:      st,
		reconciler: syncpkg.New(st),
	}
	s.setupEcho()

	return s, nil
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true

	// Request/response logging through the shared logger
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)

			res := c.Response()
			logger.Info("http request",
				logger.F("method", req.Method),
				logger.F("uri", req.RequestURI),
				logger.F("status", res.Status),
				logger.F("duration", time.Since(start).String()))

			return err
		}
	})

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	e.GET("/health", s.handleHealth)

	api := e.Group(s.cfg.APIPrefix)

	api.GET("/projects", s.handleProjectList)
	api.POST("/projects", s.handleProjectCreate)
	api.POST("/projects/sync", s.handleProjectSync)
	api.GET("/projects/:id", s.handleProjectShow)
	api.PUT("/projects/:id", s.handleProjectUpdate)
	api.DELETE("/projects/:id", s.handleProjectDelete)

	api.GET("/tasks", s.handleTaskList)
	api.POST("/tasks", s.handleTaskCreate)
	api.POST("/tasks/sync", s.handleTaskSync)
	api.GET("/tasks/:id", s.handleTaskShow)
	api.PUT("/tasks/:id", s.handleTaskUpdate)
	api.DELETE("/tasks/:id", s.handleTaskDelete)

	s.echo = e
}

// Close closes the entity store.
func (s *Server) Close() error {
	return s.store.Close()
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start starts the server with request timeouts at the boundary.
func (s *Server) Start(addr string) error {
	timeout := time.Duration(s.cfg.RequestTimeoutSec) * time.Second
	s.echo.Server.ReadTimeout = timeout
	s.echo.Server.WriteTimeout = timeout
	return s.echo.Start(addr)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
