package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"impugnaya/internal/logging"
	"impugnaya/internal/service"
)

const livenessMessage = "ImpugnaYa Backend operativo"

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Dependencies are the collaborators the routes are built from.
// DB and Gatherer are optional.
type Dependencies struct {
	OCR       service.OCRService
	Descargos service.DescargoService
	DB        Pinger
	Gatherer  prometheus.Gatherer
	Logger    *logging.Logger
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	app.Get("/", Liveness())
	app.Get("/healthz", LivenessProbe())
	app.Get("/health", HealthCheck(deps.DB))
	if deps.Gatherer != nil {
		app.Get("/metrics", Metrics(deps.Gatherer))
	}

	app.Post("/upload", Upload(deps.OCR, deps.Logger))
	app.Post("/generar-descargo", GenerateDescargo(deps.Descargos, deps.Logger))
	app.Get("/download/:nombre", Download(deps.Descargos, deps.Logger))
}

// Liveness handles GET /.
//
// @Summary     Liveness message
// @Tags        health
// @Produce     plain
// @Success     200 {string} string
// @Router      / [get]
func Liveness() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendString(livenessMessage)
	}
}

// LivenessProbe answers 200 with an empty body.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// HealthCheck pings the registry database when one is configured.
//
// @Summary     Dependency health
// @Tags        health
// @Produce     json
// @Success     200 {object} map[string]string
// @Failure     503 {object} errorPayload
// @Router      /health [get]
func HealthCheck(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return writeError(c, errServiceUnavailable)
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// Metrics exposes the prometheus registry.
func Metrics(g prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
