// Package server exposes the platform webhooks, health and metrics over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/nhle/track-notifier/internal/gateway"
	"github.com/nhle/track-notifier/internal/model"
	"github.com/nhle/track-notifier/internal/registration"
	"github.com/nhle/track-notifier/internal/track"
)

const (
	rawBodyKey     = "raw_body"
	confirmTimeout = 10 * time.Second
)

// Submitter accepts announcements for asynchronous processing.
type Submitter interface {
	Submit(a model.Announcement) bool
}

// Registrar saves registrations submitted through the modal.
type Registrar interface {
	Register(ctx context.Context, in registration.Input) (*model.Subscriber, error)
	Catalog() *track.Catalog
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// VerifySignatures rejects webhook requests not signed with SigningSecret.
	VerifySignatures bool
	SigningSecret    string

	// BodyLimit caps request bodies, e.g. "1M".
	BodyLimit string

	// RegisterCommand is the slash command that opens the registration form.
	RegisterCommand string
}

// Server provides the webhook endpoints.
type Server struct {
	echo      *echo.Echo
	queue     Submitter
	registrar Registrar
	messenger gateway.Messenger
	logger    *zap.Logger
	config    Config

	// wg tracks confirmation messages sent after responding.
	wg sync.WaitGroup
}

// NewServer creates a new HTTP server.
func NewServer(
	queue Submitter,
	registrar Registrar,
	messenger gateway.Messenger,
	logger *zap.Logger,
	cfg Config,
) (*Server, error) {
	if queue == nil || registrar == nil || messenger == nil {
		return nil, errors.New("queue, registrar and messenger are required")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}
	if cfg.VerifySignatures && cfg.SigningSecret == "" {
		return nil, errors.New("signing secret is required when signature verification is enabled")
	}
	if cfg.RegisterCommand == "" {
		cfg.RegisterCommand = "/register-track"
	}
	if cfg.BodyLimit == "" {
		cfg.BodyLimit = "1M"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:      e,
		queue:     queue,
		registrar: registrar,
		messenger: messenger,
		logger:    logger,
		config:    cfg,
	}
	s.registerRoutes()

	return s, nil
}

// Echo returns the underlying router.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	platform := s.echo.Group("/slack", s.captureBody)
	platform.POST("/events", s.handleEvents)
	platform.POST("/commands", s.handleCommand)
	platform.POST("/interactions", s.handleInteraction)
}

// captureBody buffers the request body, verifies its signature when
// enabled, and restores it for form parsing.
func (s *Server) captureBody(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable request body")
		}

		if s.config.VerifySignatures {
			if err := gateway.VerifyRequest(req.Header, body, s.config.SigningSecret); err != nil {
				s.logger.Warn("rejected unsigned request", zap.String("uri", req.RequestURI), zap.Error(err))
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
			}
		}

		req.Body = io.NopCloser(bytes.NewReader(body))
		c.Set(rawBodyKey, body)
		return next(c)
	}
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	OK bool `json:"ok"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// handleEvents answers url_verification and queues channel messages.
// Messages are acknowledged immediately so the platform does not retry.
func (s *Server) handleEvents(c echo.Context) error {
	body, _ := c.Get(rawBodyKey).([]byte)

	ev, err := gateway.DecodeEvent(body)
	if err != nil {
		s.logger.Warn("invalid event payload", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event payload")
	}

	if ev.Challenge != "" {
		return c.JSON(http.StatusOK, map[string]string{"challenge": ev.Challenge})
	}

	if ev.Message != nil {
		if retry := c.Request().Header.Get("X-Slack-Retry-Num"); retry != "" {
			s.logger.Debug("platform retry", zap.String("announcement_id", ev.Message.ID), zap.String("retry", retry))
		}
		s.queue.Submit(*ev.Message)
	}
	return c.NoContent(http.StatusOK)
}

type commandResponse struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

func (s *Server) handleCommand(c echo.Context) error {
	cmd, err := slack.SlashCommandParse(c.Request())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid command payload")
	}

	if cmd.Command != s.config.RegisterCommand {
		return c.JSON(http.StatusOK, commandResponse{
			ResponseType: slack.ResponseTypeEphemeral,
			Text:         fmt.Sprintf("Unknown command %s", cmd.Command),
		})
	}

	err = s.messenger.OpenRegistrationForm(c.Request().Context(), cmd.TriggerID, cmd.ChannelID, s.registrar.Catalog())
	if err != nil {
		s.logger.Error("opening registration form", zap.String("user_id", cmd.UserID), zap.Error(err))
		return c.JSON(http.StatusOK, commandResponse{
			ResponseType: slack.ResponseTypeEphemeral,
			Text:         "Could not open the registration form. Please try again.",
		})
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleInteraction(c echo.Context) error {
	payload := c.FormValue("payload")
	if payload == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing payload")
	}

	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(payload), &cb); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	if cb.Type != slack.InteractionTypeViewSubmission || cb.View.CallbackID != gateway.RegistrationCallbackID {
		return c.NoContent(http.StatusOK)
	}

	sub, err := s.registrar.Register(c.Request().Context(), gateway.ParseRegistration(&cb))
	if err != nil {
		formErrs := gateway.FormErrors(err)
		if formErrs == nil {
			s.logger.Error("saving registration", zap.String("user_id", cb.User.ID), zap.Error(err))
			formErrs = map[string]string{gateway.TrackBlockID: "Could not save your registration. Please try again."}
		}
		return c.JSON(http.StatusOK, slack.NewErrorsViewSubmissionResponse(formErrs))
	}

	s.confirm(sub, cb.View.PrivateMetadata)
	return c.NoContent(http.StatusOK)
}

// confirm tells the user their registration was saved: ephemerally in the
// channel the command came from, otherwise by direct message. Delivery is
// best effort and happens after the modal is closed.
func (s *Server) confirm(sub *model.Subscriber, channel string) {
	text := registration.Confirmation(sub, s.registrar.Catalog())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), confirmTimeout)
		defer cancel()

		var err error
		if channel != "" {
			err = s.messenger.SendEphemeral(ctx, channel, sub.UserID, text)
		} else {
			err = s.messenger.SendDirectMessage(ctx, sub.UserID, text)
		}
		if err != nil {
			s.logger.Warn("sending registration confirmation", zap.String("user_id", sub.UserID), zap.Error(err))
		}
	}()
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server and waits for pending
// confirmations.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	err := s.echo.Shutdown(ctx)
	s.wg.Wait()
	return err
}
