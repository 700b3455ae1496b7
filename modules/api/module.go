package api

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Singh2236/chatLocalAnom/modules/broadcast"
	"github.com/Singh2236/chatLocalAnom/modules/identity"
	"github.com/Singh2236/chatLocalAnom/modules/moderation"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	nanoid "github.com/jaevor/go-nanoid"
)

// DefaultMaxUploadBytes caps an image upload.
const DefaultMaxUploadBytes = 5 << 20

// multipartSlack is the body allowance on top of the file itself.
const multipartSlack = 1 << 20

// Config configures the HTTP surface.
type Config struct {
	Port               string
	PublicDir          string
	UploadDir          string
	MaxUploadBytes     int64
	CORSAllowedOrigins string
	Rate               moderation.RateConfig
	QueueSize          int
}

// APIModule serves the websocket transport, uploads, REST and static files.
type APIModule struct {
	app    *fiber.App
	cfg    Config
	engine *broadcast.Engine
	names  *identity.Generator
	fileID func() string
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(cfg Config, logger types.Logger) (*APIModule, error) {
	if cfg.Port == "" {
		cfg.Port = "3000"
	}
	if cfg.PublicDir == "" {
		cfg.PublicDir = "public"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.CORSAllowedOrigins == "" {
		cfg.CORSAllowedOrigins = "*"
	}

	fileID, err := nanoid.Standard(12)
	if err != nil {
		return nil, fmt.Errorf("failed to create file id generator: %w", err)
	}

	return &APIModule{
		cfg:    cfg,
		names:  identity.NewGenerator(),
		fileID: fileID,
		logger: logger,
	}, nil
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// SetEngine sets the broadcast engine (called from main.go).
func (m *APIModule) SetEngine(engine *broadcast.Engine) {
	m.engine = engine
}

// Start creates the upload directory and starts the Fiber server.
func (m *APIModule) Start(_ context.Context) error {
	if m.engine == nil {
		return errors.New("broadcast engine dependency not set")
	}
	if err := os.MkdirAll(m.cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload dir: %w", err)
	}

	m.app = m.newApp()

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(":" + m.cfg.Port); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "port", m.cfg.Port)
	return nil
}

// Stop gracefully shuts down the Fiber server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	m.logger.Info("HTTP server stopped")
	return nil
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	if m.app == nil {
		return mono.HealthStatus{Healthy: false, Message: "server not started"}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"port":              m.cfg.Port,
			"connected_clients": m.engine.ConnectionCount(),
		},
	}
}

// newApp builds the Fiber app with middleware and routes.
func (m *APIModule) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Anonymous Room Chat",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
		BodyLimit:             int(m.cfg.MaxUploadBytes) + multipartSlack,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
		Next: func(c *fiber.Ctx) bool {
			return c.Get("Upgrade") == "websocket"
		},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: m.cfg.CORSAllowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	m.registerRoutes(app)
	return app
}

// errorHandler handles errors globally.
func (m *APIModule) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Oversized uploads are reported like any other rejected upload.
	if code == fiber.StatusRequestEntityTooLarge {
		code = fiber.StatusBadRequest
		message = errFileTooLarge
	}

	if code >= fiber.StatusInternalServerError {
		m.logger.Error("HTTP error", "code", code, "message", message, "error", err)
	}

	return c.Status(code).JSON(ErrorResponse{Error: message})
}
