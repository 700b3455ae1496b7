package api

import (
	"encoding/json"

	domain "github.com/Singh2236/chatLocalAnom/domain/chat"
	"github.com/Singh2236/chatLocalAnom/modules/broadcast"
)

// inboundFrame is a client event. Data is a JSON string for every event the
// server understands.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details"`
}

// ErrorResponse is returned on request failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RoomsResponse is returned by GET /api/v1/rooms.
type RoomsResponse struct {
	Rooms []domain.RoomCount `json:"rooms"`
}

// HistoryResponse is returned by GET /api/v1/rooms/:code/history.
type HistoryResponse struct {
	Room     string                   `json:"room"`
	Online   int                      `json:"online"`
	Messages []broadcast.HistoryEntry `json:"messages"`
}

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	URL string `json:"url"`
}
