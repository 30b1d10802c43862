// Package api serves a read-only HTTP view of generated reports.
package api

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"time"

	"github.com/TFMV/reconcile/metrics"
	"github.com/TFMV/reconcile/version"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// ReportStore lists and reads stored reports.
type ReportStore interface {
	List() ([]string, error)
	Read(name string) (string, error)
}

// ServerOptions configures the server.
type ServerOptions struct {
	Port    string
	Prefork bool

	Reports ReportStore

	// SummaryPath is the JSON run summary served at /summary, if set.
	SummaryPath string

	Logger *zap.Logger
}

// Server holds the Fiber app instance
type Server struct {
	app  *fiber.App
	opts ServerOptions
	log  *zap.Logger
}

// NewServer builds the app and registers the routes.
func NewServer(opts ServerOptions) *Server {
	if opts.Port == "" {
		opts.Port = "3000"
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		IdleTimeout:           10 * time.Second,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		Prefork:               opts.Prefork,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{app: app, opts: opts, log: log}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/version", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "Reconcile API",
			"version": version.Version,
			"build":   version.BuildDate,
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})
	app.Get("/reports", s.listReports)
	app.Get("/reports/:name", s.getReport)
	app.Get("/summary", s.getSummary)

	return s
}

// GetApp exposes the Fiber app, mainly for tests.
func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) listReports(c *fiber.Ctx) error {
	if s.opts.Reports == nil {
		return c.JSON(fiber.Map{"reports": []string{}})
	}
	names, err := s.opts.Reports.List()
	if err != nil {
		s.log.Error("listing reports", zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "failed to list reports")
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(fiber.Map{"reports": names})
}

func (s *Server) getReport(c *fiber.Ctx) error {
	if s.opts.Reports == nil {
		return fiber.ErrNotFound
	}
	content, err := s.opts.Reports.Read(c.Params("name"))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fiber.ErrNotFound
	case err != nil:
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	return c.SendString(content)
}

func (s *Server) getSummary(c *fiber.Ctx) error {
	if s.opts.SummaryPath == "" {
		return fiber.ErrNotFound
	}
	run, err := metrics.Load(s.opts.SummaryPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fiber.ErrNotFound
		}
		return fiber.NewError(fiber.StatusInternalServerError, "failed to read summary")
	}
	return c.JSON(fiber.Map{"run": run, "totals": run.Totals()})
}

// Start runs the server until an interrupt, then shuts down gracefully.
func (s *Server) Start() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	defer signal.Stop(quit)

	errc := make(chan error, 1)
	go func() {
		s.log.Info("report browser listening", zap.String("port", s.opts.Port))
		errc <- s.app.Listen(":" + s.opts.Port)
	}()

	select {
	case err := <-errc:
		return err
	case <-quit:
	}

	s.log.Info("received shutdown signal, stopping server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
