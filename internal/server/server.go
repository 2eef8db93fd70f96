// Package server exposes the blockifier over HTTP for host runtimes.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	apperrors "github.com/embano1/whisper-blockifier/internal/errors"
	"github.com/embano1/whisper-blockifier/internal/types"
)

// Runner handles a single invocation.
type Runner interface {
	Run(ctx context.Context, req *types.Request) (*types.Response, error)
}

// Server is the HTTP surface.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	runner Runner
	log    zerolog.Logger
}

// New creates a Server listening on addr. When jwtSecret is non-empty the
// API routes require an HS256 bearer token signed with it.
func New(addr string, runner Runner, jwtSecret []byte, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine: gin.New(),
		runner: runner,
		log:    log.With().Str("component", "server").Logger(),
	}
	s.engine.Use(gin.Recovery(), requestLogger(s.log))

	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.engine.Group("/v1")
	if len(jwtSecret) > 0 {
		api.Use(Auth(jwtSecret))
	}
	api.POST("/blockify", s.handleBlockify)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleBlockify(c *gin.Context) {
	var req types.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, apperrors.InvalidRequest("invalid request body: "+err.Error()))
		return
	}

	resp, err := s.runner.Run(c.Request.Context(), &req)
	if err != nil {
		RespondWithError(c, err)
		return
	}

	status := http.StatusOK
	if resp.State == types.TaskRunning {
		status = http.StatusAccepted
	}
	c.JSON(status, resp)
}

// RespondWithError writes err as a JSON error body.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Internal(err)
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

// Auth validates HS256 bearer tokens.
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			RespondWithError(c, apperrors.Unauthorized("Authorization header required"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			RespondWithError(c, apperrors.Unauthorized("Invalid authorization header format"))
			return
		}

		_, err := jwt.Parse(parts[1], func(*jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			RespondWithError(c, apperrors.Unauthorized("Invalid token"))
			return
		}
		c.Next()
	}
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			ev = log.Error()
		case status >= http.StatusBadRequest:
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("request")
	}
}
