// Package history persists accepted chat messages and serves the bounded,
// most-recent slice of a room's past.
package history

import (
	"context"
	"errors"
	"strings"

	domain "github.com/Singh2236/chatLocalAnom/domain/chat"
)

// imageSentinel prefixes image references stored in the text column.
const imageSentinel = "__IMG__:"

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

var (
	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown history backend")
	// ErrStoreNotReady is returned when the module is used before Start.
	ErrStoreNotReady = errors.New("history store not ready")
)

// Record is one stored message as read back from a backend.
type Record struct {
	Sender    string      `json:"sender"`
	Payload   string      `json:"payload"`
	Kind      domain.Kind `json:"type"`
	Timestamp int64       `json:"timestamp"`
}

// Store is the append + bounded-read contract every backend fulfils.
type Store interface {
	// Append stores one message. Callers treat failures as best-effort.
	Append(ctx context.Context, room, sender, payload string, kind domain.Kind, timestamp int64) error
	// ReadRecent returns at most limit records, most recent first.
	ReadRecent(ctx context.Context, room string, limit int) ([]Record, error)
	Ping(ctx context.Context) error
	Close() error
}

// encodePayload folds the kind into the stored text.
func encodePayload(payload string, kind domain.Kind) string {
	if kind == domain.KindImage {
		return imageSentinel + payload
	}
	return payload
}

// decodePayload splits stored text back into payload and kind.
func decodePayload(text string) (string, domain.Kind) {
	if ref, ok := strings.CutPrefix(text, imageSentinel); ok {
		return ref, domain.KindImage
	}
	return text, domain.KindText
}

// ToMessage converts a record read from room into a domain message.
func (r Record) ToMessage(room string) domain.Message {
	return domain.Message{
		Room:      room,
		Sender:    r.Sender,
		Kind:      r.Kind,
		Payload:   r.Payload,
		Timestamp: r.Timestamp,
	}
}
