package api

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	domain "github.com/Singh2236/chatLocalAnom/domain/chat"
	"github.com/Singh2236/chatLocalAnom/modules/broadcast"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const (
	uploadField        = "image"
	maxHistoryLimit    = 100
	maxExtensionLength = 10
	errNoFile          = "No image uploaded"
	errFileTooLarge    = "Image too large"
	errNotAnImage      = "Only image uploads are allowed"
	errUploadFailed    = "Failed to store image"
)

// registerRoutes sets up all HTTP routes.
func (m *APIModule) registerRoutes(app *fiber.App) {
	app.Get("/health", m.healthHandler)

	// WebSocket endpoint
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(m.handleWebSocket))

	app.Post("/upload", m.uploadHandler)

	api := app.Group("/api/v1")
	api.Get("/rooms", m.listRooms)
	api.Get("/rooms/:code/history", m.getHistory)

	// Static files last so API routes win.
	app.Static(strings.TrimSuffix(domain.UploadPrefix, "/"), m.cfg.UploadDir)
	app.Static("/", m.cfg.PublicDir)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":            "api",
			"connected_clients": m.engine.ConnectionCount(),
		},
	})
}

// listRooms handles GET /api/v1/rooms.
func (m *APIModule) listRooms(c *fiber.Ctx) error {
	return c.JSON(RoomsResponse{Rooms: m.engine.OpenRooms()})
}

// getHistory handles GET /api/v1/rooms/:code/history.
func (m *APIModule) getHistory(c *fiber.Ctx) error {
	room := domain.NormalizeRoom(c.Params("code"))
	limit := parseLimit(c.Query("limit"))

	messages := m.engine.GetHistoryLimit(c.UserContext(), room, limit)
	return c.JSON(HistoryResponse{
		Room:     room,
		Online:   m.engine.OnlineCount(room),
		Messages: broadcast.NewHistoryEntries(messages),
	})
}

// parseLimit clamps a limit query value to 1..100. Missing or invalid
// values mean the maximum.
func parseLimit(raw string) int {
	if raw == "" {
		return maxHistoryLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return maxHistoryLimit
	}
	return min(max(n, 1), maxHistoryLimit)
}

// uploadHandler handles POST /upload.
func (m *APIModule) uploadHandler(c *fiber.Ctx) error {
	file, err := c.FormFile(uploadField)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: errNoFile})
	}
	if file.Size > m.cfg.MaxUploadBytes {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: errFileTooLarge})
	}
	if !strings.HasPrefix(file.Header.Get(fiber.HeaderContentType), "image/") {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: errNotAnImage})
	}

	name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), m.fileID(), safeExtension(file.Filename))
	if err := c.SaveFile(file, filepath.Join(m.cfg.UploadDir, name)); err != nil {
		m.logger.Error("Failed to save upload", "file", name, "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: errUploadFailed})
	}

	m.logger.Info("Image uploaded", "file", name, "size", file.Size)
	return c.JSON(UploadResponse{URL: domain.UploadPrefix + name})
}

// safeExtension keeps a short alphanumeric extension of filename.
func safeExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) < 2 || len(ext) > maxExtensionLength+1 {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return strings.ToLower(ext)
}
