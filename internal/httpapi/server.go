// Package httpapi exposes the form codec over HTTP for clients that cannot
// embed the Go packages.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/goliatone/go-appform/pkg/answers"
	"github.com/goliatone/go-appform/pkg/builder"
	"github.com/goliatone/go-appform/pkg/entries"
	"github.com/goliatone/go-appform/pkg/schema"
	"github.com/goliatone/go-appform/pkg/submission"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBuilder overrides the section builder.
func WithBuilder(b *builder.Builder) Option {
	return func(s *Server) {
		if b != nil {
			s.builder = b
		}
	}
}

// WithReshaper overrides the answer reshaper.
func WithReshaper(r *answers.Reshaper) Option {
	return func(s *Server) {
		if r != nil {
			s.reshaper = r
		}
	}
}

// WithPreparer overrides the submission preparer.
func WithPreparer(p *submission.Preparer) Option {
	return func(s *Server) {
		if p != nil {
			s.preparer = p
		}
	}
}

// Server hosts the codec endpoints.
type Server struct {
	app      *fiber.App
	logger   *zap.Logger
	builder  *builder.Builder
	reshaper *answers.Reshaper
	preparer *submission.Preparer
}

// New creates a Server with its routes registered.
func New(options ...Option) *Server {
	s := &Server{
		logger:   zap.NewNop(),
		builder:  builder.New(),
		reshaper: answers.NewReshaper(),
		preparer: submission.New(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	s.app = fiber.New(fiber.Config{
		AppName:               "appform",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		BodyLimit:             16 << 20,
		ErrorHandler:          s.handleError,
	})
	s.routes()
	return s
}

// App returns the underlying fiber application (useful for tests).
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("http api listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.app.Post("/build", s.handleBuild)
	s.app.Post("/reshape", s.handleReshape)
	s.app.Post("/prepare", s.handlePrepare)
}

type schemaRequest struct {
	Form       json.RawMessage `json:"form"`
	Attributes json.RawMessage `json:"attributes"`
}

func (r schemaRequest) decode() (schema.Form, schema.FieldTypes, error) {
	if len(r.Form) == 0 || len(r.Attributes) == 0 {
		return schema.Form{}, nil, badRequest(errors.New("form and attributes are required"))
	}
	if err := schema.Validate(r.Form); err != nil {
		return schema.Form{}, nil, badRequest(err)
	}
	form, err := schema.DecodeForm(r.Form)
	if err != nil {
		return schema.Form{}, nil, badRequest(err)
	}
	types, err := schema.FieldTypesFromAttributes(r.Attributes)
	if err != nil {
		return schema.Form{}, nil, badRequest(err)
	}
	return form, types, nil
}

func (s *Server) handleBuild(c *fiber.Ctx) error {
	var req schemaRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	form, types, err := req.decode()
	if err != nil {
		return err
	}
	result, err := s.builder.Build(form, types)
	if err != nil {
		return badRequest(err)
	}
	return c.JSON(result)
}

type reshapeRequest struct {
	schemaRequest
	Answers     json.RawMessage      `json:"answers"`
	Attachments []entries.Attachment `json:"attachments"`
}

func (s *Server) handleReshape(c *fiber.Ctx) error {
	var req reshapeRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	form, types, err := req.decode()
	if err != nil {
		return err
	}
	saved := answers.NewNode()
	if len(req.Answers) > 0 {
		if saved, err = answers.Decode(req.Answers); err != nil {
			return badRequest(err)
		}
	}
	tree, err := s.reshaper.Reshape(form, types, saved, req.Attachments)
	if err != nil {
		return badRequest(err)
	}
	return c.JSON(fiber.Map{"entries": tree})
}

type prepareRequest struct {
	FormID         int                  `json:"form_id"`
	Entries        submission.Entries   `json:"entries"`
	FileFieldIDs   []string             `json:"file_field_ids"`
	Targets        json.RawMessage      `json:"targets"`
	PendingUploads []entries.Attachment `json:"pending_uploads"`
}

func (s *Server) handlePrepare(c *fiber.Ctx) error {
	var req prepareRequest
	if err := decodeBody(c, &req); err != nil {
		return err
	}
	tree := entries.NewTree()
	for id, slot := range req.Entries.Sections {
		tree.Sections[id] = slot
	}
	for _, id := range req.FileFieldIDs {
		tree.AddFileField(id)
	}
	payload := s.preparer.Prepare(tree, req.PendingUploads, req.FormID, req.Targets)
	s.logger.Debug("payload prepared",
		zap.Int("form", req.FormID),
		zap.Int("attachments", len(payload.Attachments)),
	)
	return c.JSON(payload)
}

func decodeBody(c *fiber.Ctx, dest any) error {
	body := c.Body()
	if len(body) == 0 {
		return badRequest(errors.New("request body is empty"))
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return badRequest(fmt.Errorf("decode body: %w", err))
	}
	return nil
}

func badRequest(err error) error {
	return fiber.NewError(fiber.StatusBadRequest, err.Error())
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	} else {
		s.logger.Debug("request rejected", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
