// Package server exposes chats, generations and helper calls over HTTP.
// Generations stream as server-sent events.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sweetpotato0/tandem/chat"
	"github.com/sweetpotato0/tandem/credential"
	"github.com/sweetpotato0/tandem/errors"
	"github.com/sweetpotato0/tandem/pkg/logging"
	"github.com/sweetpotato0/tandem/scenario"
)

// HeaderUserID carries the opaque caller identity.
const HeaderUserID = "X-User-ID"

const userKey = "user_id"

// Server is the HTTP API.
type Server struct {
	echo        *echo.Echo
	chats       *chat.Service
	scenarios   *scenario.Service
	credentials *credential.Resolver
	logger      *slog.Logger
}

// Option configures a Server
type Option func(*Server)

// WithLogger overrides the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New builds the server and registers its routes.
func New(chats *chat.Service, scenarios *scenario.Service, credentials *credential.Resolver, opts ...Option) *Server {
	s := &Server{
		echo:        echo.New(),
		chats:       chats,
		scenarios:   scenarios,
		credentials: credentials,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.WithComponent("server")
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, HeaderUserID},
	}))
	e.Use(s.requestLogger)

	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.health)

	api := s.echo.Group("/api", s.requireUser)

	api.GET("/chats", s.listChats)
	api.POST("/chats", s.createChat)
	api.GET("/chats/:id", s.getChat)
	api.PATCH("/chats/:id", s.renameChat)
	api.DELETE("/chats/:id", s.deleteChat)
	api.POST("/chats/:id/start", s.startChat)
	api.POST("/chats/:id/messages", s.sendMessage)

	api.POST("/messages/:id/actions/:action", s.messageAction)
	api.PATCH("/messages/:id", s.editMessage)
	api.DELETE("/messages/:id", s.deleteMessage)

	api.POST("/translate", s.translate)
	api.POST("/brainstorm", s.brainstorm)
	api.PUT("/settings", s.saveSettings)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("server listening", "addr", addr)
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := c.Request().Header.Get(HeaderUserID)
		if userID == "" {
			return errors.ErrUnauthorized
		}
		c.Set(userKey, userID)
		return next(c)
	}
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		s.logger.DebugContext(c.Request().Context(), "request handled",
			"method", c.Request().Method,
			"path", c.Path(),
			"status", c.Response().Status,
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		)
		return nil
	}
}

func userID(c echo.Context) string {
	id, _ := c.Get(userKey).(string)
	return id
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
