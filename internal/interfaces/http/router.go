package http

import (
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/lentefiscal/internal/application/auth"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC    authenticator
	Inbox     inboxService
	Invoices  invoiceQuery
	Documents invoiceDocuments
	Dashboard dashboardService
	JWTSecret string
}

// AppConfig opciones del servidor Fiber.
type AppConfig struct {
	Name        string
	BodyLimitMB int
	SwaggerFile string // vacío o inexistente: sin /docs
}

// NewApp arma la aplicación Fiber del portal: recover, Swagger UI en /docs, /health y la API.
func NewApp(cfg AppConfig, deps RouterDeps) *fiber.App {
	bodyLimit := fiber.DefaultBodyLimit
	if cfg.BodyLimitMB > 0 {
		bodyLimit = cfg.BodyLimitMB << 20
	}
	app := fiber.New(fiber.Config{
		AppName:      cfg.Name,
		BodyLimit:    bodyLimit,
		ReadTimeout:  time.Second * 30,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if cfg.SwaggerFile != "" {
		if _, err := os.Stat(cfg.SwaggerFile); err == nil {
			app.Use(swagger.New(swagger.Config{
				BasePath: "/",
				FilePath: cfg.SwaggerFile,
				Path:     "docs",
				Title:    "LenteFiscal API",
			}))
		}
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.Name})
	})

	Router(app, deps)
	return app
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público)
	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/auth/login", authHandler.Login)

	// Rutas protegidas (requieren Bearer Token de operador)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret), RequireRole(auth.RoleAdmin))

	// Buckets
	buckets := protected.Group("/buckets")
	objectHandler := NewObjectHandler(deps.Inbox)
	buckets.Post("/received/objects", objectHandler.Upload)
	buckets.Post("/error/reprocess", objectHandler.Reprocess)
	buckets.Post("/error/objects/:key/reprocess", objectHandler.ReprocessOne)
	buckets.Get("/error/logs/*", objectHandler.ErrorLog)
	buckets.Get("/:bucket/objects", objectHandler.List)
	buckets.Get("/:bucket/objects/*", objectHandler.Download)
	buckets.Delete("/:bucket/objects/*", objectHandler.Delete)

	// Invoices
	invoices := protected.Group("/invoices")
	invoiceHandler := NewInvoiceHandler(deps.Invoices, deps.Documents)
	invoices.Get("/", invoiceHandler.List)
	invoices.Get("/export.xlsx", invoiceHandler.Export)
	invoices.Get("/:id", invoiceHandler.Get)
	invoices.Get("/:id/pdf", invoiceHandler.PDF)
	invoices.Patch("/:id", invoiceHandler.Update)
	invoices.Delete("/:id", invoiceHandler.Delete)

	// Dashboard
	dashboardHandler := NewDashboardHandler(deps.Dashboard)
	protected.Get("/dashboard/summary", dashboardHandler.GetSummary)
}
