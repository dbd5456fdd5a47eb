package main

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"

	"impugnaya/docs"
	"impugnaya/internal/config"
	"impugnaya/internal/database"
	"impugnaya/internal/database/migration"
	handlers "impugnaya/internal/http/handler"
	"impugnaya/internal/http/middleware"
	"impugnaya/internal/logging"
	"impugnaya/internal/ocr"
	"impugnaya/internal/ocr/tesseract"
	tracing "impugnaya/internal/otel"
	"impugnaya/internal/render"
	"impugnaya/internal/repository"
	"impugnaya/internal/repository/memory"
	"impugnaya/internal/repository/postgres"
	"impugnaya/internal/retention"
	"impugnaya/internal/service"
	"impugnaya/internal/storage"
)

const serviceName = "impugnaya"

// @title ImpugnaYa API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	logger := logging.Default(cfg.Location())

	if err := run(cfg, logger); err != nil {
		logger.Error("server_stopped", err, nil)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, logger, serviceName)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	uploads, err := storage.NewLocal(cfg.Storage.UploadDir)
	if err != nil {
		return err
	}
	outgoing, err := newOutgoingStorage(cfg)
	if err != nil {
		return err
	}

	db, repo, err := newRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ocrMetrics, err := ocr.NewMetrics(reg)
	if err != nil {
		return err
	}
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}

	engine := tesseract.New(cfg.OCR.TessdataPrefix)
	checkEngine(engine, cfg.OCR.Language, logger)
	recognizer := ocrMetrics.Instrument(ocr.Traced(ocr.WithTimeout(engine, cfg.OCR.Timeout), otel.GetTracerProvider()))

	ocrSvc := service.NewOCRService(uploads, recognizer, logger, service.OCROptions{
		Language:  cfg.OCR.Language,
		MinWidth:  cfg.OCR.MinWidth,
		MaxPixels: cfg.OCR.MaxPixels,
	})
	descargoSvc := service.NewDescargoService(outgoing, repo, render.NewPDF(render.Options{Compress: cfg.Render.Compress}), logger,
		service.DescargoOptions{TTL: cfg.Retention.TTL})

	if cfg.Retention.TTL > 0 {
		adopted, err := descargoSvc.AdoptUntracked(ctx)
		if err != nil {
			logger.Error("retention_adopt_failed", err, map[string]any{"adopted": adopted})
		} else if adopted > 0 {
			logger.Info("retention_adopted_documents", map[string]any{"adopted": adopted})
		}
		go retention.New(descargoSvc, cfg.Retention.SweepInterval, 100, logger).Run(ctx)
	}

	app := fiber.New(fiber.Config{
		BodyLimit:             cfg.MaxBodyBytes,
		ErrorHandler:          handlers.ErrorHandler(logger),
		DisableStartupMessage: true,
	})

	// Register global middleware
	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/metrics" || c.Path() == "/healthz"
	})))
	app.Use(middleware.Recover(logger))
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logger))
	app.Use(promMiddleware.Handler())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept," + middleware.RequestIDHeader,
	}))

	deps := handlers.Dependencies{
		OCR:       ocrSvc,
		Descargos: descargoSvc,
		Gatherer:  reg,
		Logger:    logger,
	}
	if db != nil {
		deps.DB = db
	}
	handlers.RegisterRoutes(app, deps)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		<-ctx.Done()
		logger.Info("server_shutting_down", nil)
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("server_shutdown_failed", err, nil)
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("server_starting", map[string]any{
		"addr":            addr,
		"storage_backend": cfg.Storage.Backend,
		"upload_dir":      storage.Root(uploads),
		"output_dir":      storage.Root(outgoing),
		"registry":        registryKind(db),
		"document_ttl":    cfg.Retention.TTL.String(),
		"max_body_bytes":  cfg.MaxBodyBytes,
	})
	return app.Listen(addr)
}

// newOutgoingStorage returns where generated documents are written.
func newOutgoingStorage(cfg *config.AppConfig) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "", "local":
		return storage.NewLocal(cfg.Storage.OutputDir)
	case "minio":
		return storage.NewMinIO(cfg.MinIO, "descargos/")
	default:
		return nil, errors.New("unknown STORAGE_BACKEND " + cfg.Storage.Backend)
	}
}

// newRegistry connects the PostgreSQL registry when DB_HOST is set. It uses memory when no
// database is configured, or when it is unreachable and DB_REQUIRED is off.
func newRegistry(ctx context.Context, cfg *config.AppConfig, logger *logging.Logger) (*sql.DB, repository.GeneratedDocumentRepository, error) {
	if !cfg.Database.Enabled() {
		return nil, memory.NewGeneratedDocumentMemory(), nil
	}
	db, err := database.NewPostgres(ctx, cfg.Database)
	if database.Fallback(cfg.Database, err) {
		logger.Warn("registry_unavailable_using_memory", map[string]any{
			"db_host": cfg.Database.Host,
			"error":   err.Error(),
		})
		return nil, memory.NewGeneratedDocumentMemory(), nil
	}
	if err != nil {
		return nil, nil, err
	}
	if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, postgres.NewGeneratedDocumentPostgres(db), nil
}

func registryKind(db *sql.DB) string {
	if db == nil {
		return "memory"
	}
	return "postgres"
}

// checkEngine reports the Tesseract version and warns when the language data is missing,
// which would make every recognition fail.
func checkEngine(engine *tesseract.Engine, language string, logger *logging.Logger) {
	langs, err := engine.Languages()
	if err != nil {
		logger.Warn("ocr_languages_unavailable", map[string]any{"error": err.Error()})
		return
	}
	fields := map[string]any{"tesseract_version": engine.Version(), "languages": langs}
	if !slices.Contains(langs, language) {
		fields["missing_language"] = language
		logger.Warn("ocr_language_missing", fields)
		return
	}
	logger.Info("ocr_engine_ready", fields)
}
