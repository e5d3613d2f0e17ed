package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kas-container/internal/app"
	"kas-container/internal/ports"
)

const signatureHeader = "X-Hub-Signature-256"

// PipelineRunner is the part of app.Service the webhook drives.
type PipelineRunner interface {
	Pipeline(ctx context.Context, req app.PipelineRequest) (app.PipelineResult, error)
}

type Config struct {
	// SourceDir is the checkout moved to the pushed commit before each run.
	SourceDir string
	// Secret enables signature checks of incoming events when set.
	Secret string
	// Request is the template for every pipeline run.
	Request app.PipelineRequest
}

// PushEvent is the subset of a forge push event the server reads.
type PushEvent struct {
	Ref     string `json:"ref"`
	BaseRef string `json:"base_ref"`
	After   string `json:"after"`
}

type runStatus struct {
	Ref       string    `json:"ref,omitempty"`
	Published bool      `json:"published"`
	Error     string    `json:"error,omitempty"`
	Finished  time.Time `json:"finished"`
}

// Server runs the pipeline for push events, one run at a time.
type Server struct {
	ctx    context.Context
	cfg    Config
	runner PipelineRunner
	source ports.SourcePort
	app    *fiber.App

	busy atomic.Bool
	wg   sync.WaitGroup
	mu   sync.Mutex
	last *runStatus
}

// New builds the server. Runs started by webhooks inherit ctx values but
// outlive the request that triggered them.
func New(ctx context.Context, cfg Config, runner PipelineRunner, source ports.SourcePort) *Server {
	s := &Server{
		ctx:    context.WithoutCancel(ctx),
		cfg:    cfg,
		runner: runner,
		source: source,
	}
	s.app = fiber.New(fiber.Config{DisableStartupMessage: true})
	s.app.Use(s.logRequests)
	s.app.Get("/healthz", s.health)
	s.app.Post("/hooks/push", s.push)
	return s
}

func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until ctx is done, then shuts down and waits for a
// running pipeline.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errs := make(chan error, 1)
	go func() {
		errs <- s.app.Listen(addr)
	}()
	log.Ctx(ctx).Info().Str("addr", addr).Msg("webhook server listening")
	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	if err := s.app.Shutdown(); err != nil {
		return err
	}
	s.Wait()
	return nil
}

// Wait blocks until the running pipeline, if any, has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) health(c *fiber.Ctx) error {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	return c.JSON(fiber.Map{
		"status": "ok",
		"busy":   s.busy.Load(),
		"last":   last,
	})
}

func (s *Server) push(c *fiber.Ctx) error {
	if s.cfg.Secret != "" && !validSignature(s.cfg.Secret, c.Body(), c.Get(signatureHeader)) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid signature",
		})
	}
	var event PushEvent
	if err := c.BodyParser(&event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid push event",
		})
	}
	req, ok := s.requestFor(event)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "ref must be refs/heads/<branch> or refs/tags/<tag>",
		})
	}
	if !s.busy.CompareAndSwap(false, true) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "a pipeline is already running",
		})
	}
	s.wg.Add(1)
	go s.run(event, req)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"ref":    event.Ref,
		"branch": req.Publish.Branch,
		"tag":    req.Publish.Tag,
	})
}

// requestFor maps a push event onto the pipeline template. A tag push
// publishes for the branch named in base_ref; a branch push never carries
// a tag.
func (s *Server) requestFor(event PushEvent) (app.PipelineRequest, bool) {
	req := s.cfg.Request
	switch {
	case strings.HasPrefix(event.Ref, "refs/heads/"):
		req.Publish.Branch = strings.TrimPrefix(event.Ref, "refs/heads/")
		req.Publish.Tag = ""
	case strings.HasPrefix(event.Ref, "refs/tags/"):
		req.Publish.Tag = strings.TrimPrefix(event.Ref, "refs/tags/")
		req.Publish.Branch = strings.TrimPrefix(event.BaseRef, "refs/heads/")
	default:
		return app.PipelineRequest{}, false
	}
	if req.Publish.SourceDir == "" {
		req.Publish.SourceDir = s.cfg.SourceDir
	}
	return req, true
}

func (s *Server) run(event PushEvent, req app.PipelineRequest) {
	defer s.wg.Done()
	defer s.busy.Store(false)
	logger := log.Ctx(s.ctx).With().Str("ref", event.Ref).Str("after", event.After).Logger()
	ctx := logger.WithContext(s.ctx)

	status := &runStatus{Ref: event.Ref}
	err := s.sync(ctx, event)
	if err == nil {
		var result app.PipelineResult
		result, err = s.runner.Pipeline(ctx, req)
		status.Published = result.Publish.Plan.Publish
	}
	if err != nil {
		status.Error = err.Error()
		logger.Error().Err(err).Msg("pipeline failed")
	}
	status.Finished = time.Now().UTC()
	s.mu.Lock()
	s.last = status
	s.mu.Unlock()
}

func (s *Server) sync(ctx context.Context, event PushEvent) error {
	if s.source == nil || s.cfg.SourceDir == "" {
		return nil
	}
	revision := event.After
	if revision == "" {
		revision = event.Ref
	}
	return s.source.Sync(ctx, s.cfg.SourceDir, revision)
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	level := zerolog.InfoLevel
	if c.Response().StatusCode() >= fiber.StatusInternalServerError {
		level = zerolog.ErrorLevel
	}
	log.Ctx(s.ctx).WithLevel(level).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("duration", time.Since(start)).
		Msg("request")
	return err
}

func validSignature(secret string, body []byte, header string) bool {
	signature, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
