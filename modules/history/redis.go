package history

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/Singh2236/chatLocalAnom/domain/chat"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the tail of each room's history in a Redis list.
type RedisStore struct {
	client    *redis.Client
	retention int64
	logger    types.Logger
}

// storedMessage is the JSON value pushed onto a room list.
type storedMessage struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"created_at"`
}

// roomKey returns the list key for a room.
func roomKey(room string) string {
	return fmt.Sprintf("chat:room:%s:messages", room)
}

// NewRedisStore wraps client. Each room list is trimmed to retention entries.
func NewRedisStore(client *redis.Client, retention int, logger types.Logger) *RedisStore {
	if retention <= 0 {
		retention = 1000
	}
	return &RedisStore{client: client, retention: int64(retention), logger: logger}
}

// OpenRedis connects to addr and verifies the connection.
func OpenRedis(ctx context.Context, addr, password string, db, retention int, logger types.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStore(client, retention, logger), nil
}

// Append pushes a message and trims the list.
func (s *RedisStore) Append(ctx context.Context, room, sender, payload string, kind domain.Kind, timestamp int64) error {
	data, err := json.Marshal(storedMessage{
		Sender:    sender,
		Text:      encodePayload(payload, kind),
		Timestamp: timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	key := roomKey(room)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -s.retention, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ReadRecent returns the last limit entries of the room list, newest first.
func (s *RedisStore) ReadRecent(ctx context.Context, room string, limit int) ([]Record, error) {
	if limit <= 0 {
		return []Record{}, nil
	}

	values, err := s.client.LRange(ctx, roomKey(room), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return decodeList(room, values, s.logger), nil
}

// decodeList converts list values, oldest first, into records newest first.
// Entries that fail to decode are skipped with a warning.
func decodeList(room string, values []string, logger types.Logger) []Record {
	records := make([]Record, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		var msg storedMessage
		if err := json.Unmarshal([]byte(values[i]), &msg); err != nil {
			if logger != nil {
				logger.Warn("Skipping undecodable history entry", "room", room, "index", i, "error", err)
			}
			continue
		}
		payload, kind := decodePayload(msg.Text)
		records = append(records, Record{
			Sender:    msg.Sender,
			Payload:   payload,
			Kind:      kind,
			Timestamp: msg.Timestamp,
		})
	}
	return records
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
