// Package server assembles the fiber application: middleware, error
// handling and routes.
package server

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Skryldev/userservice/handlers"
	"github.com/Skryldev/userservice/metrics"
	"github.com/Skryldev/userservice/repo"
)

// Options carries the dependencies of the HTTP surface.
type Options struct {
	Users  repo.UserRepository
	Health handlers.Pinger
	Logger *slog.Logger

	// Metrics and Gatherer are optional; without them /metrics is not served.
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// New returns a fiber app with every route registered.
func New(opts Options) *fiber.App {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:      "userservice",
		ErrorHandler: errorHandler(log),
	})

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(accessLog(log))
	if opts.Metrics != nil {
		app.Use(opts.Metrics.Middleware())
	}
	app.Use(recoverer.New())

	app.Get("/healthz", handlers.Healthz(opts.Health, log)).Name("healthz")
	if opts.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))).Name("metrics")
	}

	handlers.NewUserHandler(opts.Users, log).Register(app.Group("/users"))
	return app
}

// errorHandler renders every error that escapes a handler as
// {"message": ...}. Anything that is not a *fiber.Error is a 500 whose
// detail stays in the log.
func errorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "Internal Server Error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		} else {
			log.ErrorContext(c.Context(), "unhandled error",
				"error", err,
				"request_id", requestid.FromContext(c),
				"path", c.Path(),
			)
		}
		return c.Status(code).JSON(handlers.ErrorBody{Message: msg})
	}
}

func accessLog(log *slog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}

		log.InfoContext(c.Context(), "request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", time.Since(start),
			"request_id", requestid.FromContext(c),
		)
		return err
	}
}
