package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	domain "github.com/Singh2236/chatLocalAnom/domain/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore opens a SQLite store on a temp file.
func setupTestStore(t *testing.T) *SQLStore {
	t.Helper()

	store, err := OpenSQLite(filepath.Join(t.TempDir(), "chat.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPayloadEncoding(t *testing.T) {
	assert.Equal(t, "hello", encodePayload("hello", domain.KindText))
	assert.Equal(t, "__IMG__:/uploads/a.png", encodePayload("/uploads/a.png", domain.KindImage))

	payload, kind := decodePayload("__IMG__:/uploads/a.png")
	assert.Equal(t, "/uploads/a.png", payload)
	assert.Equal(t, domain.KindImage, kind)

	payload, kind = decodePayload("plain text")
	assert.Equal(t, "plain text", payload)
	assert.Equal(t, domain.KindText, kind)
}

func TestSQLStore_AppendAndReadRecent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "ALPHA", "SilentFox123", "hi", domain.KindText, 1000))
	require.NoError(t, store.Append(ctx, "ALPHA", "BraveOwl456", "/uploads/x.png", domain.KindImage, 2000))
	require.NoError(t, store.Append(ctx, "BETA", "CalmWolf789", "elsewhere", domain.KindText, 3000))
	require.NoError(t, store.Append(ctx, "ALPHA", "SilentFox123", "again", domain.KindText, 4000))

	records, err := store.ReadRecent(ctx, "ALPHA", 100)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Most recent first.
	assert.Equal(t, "again", records[0].Payload)
	assert.Equal(t, int64(4000), records[0].Timestamp)

	assert.Equal(t, "/uploads/x.png", records[1].Payload)
	assert.Equal(t, domain.KindImage, records[1].Kind)
	assert.Equal(t, "BraveOwl456", records[1].Sender)

	assert.Equal(t, "hi", records[2].Payload)
	assert.Equal(t, domain.KindText, records[2].Kind)
}

func TestSQLStore_ReadRecentLimit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := range 5 {
		require.NoError(t, store.Append(ctx, "ALPHA", "SilentFox123", "m", domain.KindText, int64(i)))
	}

	records, err := store.ReadRecent(ctx, "ALPHA", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(4), records[0].Timestamp)
	assert.Equal(t, int64(3), records[1].Timestamp)

	records, err = store.ReadRecent(ctx, "ALPHA", 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLStore_UnknownRoomIsEmpty(t *testing.T) {
	store := setupTestStore(t)

	records, err := store.ReadRecent(context.Background(), "NOBODY", 100)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.db")
	ctx := context.Background()

	store, err := OpenSQLite(path, false)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, "ALPHA", "LuckyOtter101", "kept", domain.KindText, 42))
	require.NoError(t, store.Close())

	store, err = OpenSQLite(path, false)
	require.NoError(t, err)
	defer store.Close()

	records, err := store.ReadRecent(ctx, "ALPHA", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "kept", records[0].Payload)
}

func TestSQLStore_Ping(t *testing.T) {
	store := setupTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}

// TestRedisStore_AppendAndReadRecent runs against a live server when
// REDIS_ADDR is set.
func TestRedisStore_AppendAndReadRecent(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()

	store, err := OpenRedis(ctx, addr, "", 0, 3, newMockLogger())
	require.NoError(t, err)
	defer store.Close()

	room := "REDISTEST"
	require.NoError(t, store.client.Del(ctx, roomKey(room)).Err())
	defer store.client.Del(ctx, roomKey(room))

	for i := range 5 {
		require.NoError(t, store.Append(ctx, room, "SwiftTiger222", "m", domain.KindText, int64(i)))
	}
	require.NoError(t, store.Append(ctx, room, "SwiftTiger222", "/uploads/z.png", domain.KindImage, 5))

	// Retention keeps only the last three entries.
	records, err := store.ReadRecent(ctx, room, 100)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, domain.KindImage, records[0].Kind)
	assert.Equal(t, "/uploads/z.png", records[0].Payload)
	assert.Equal(t, int64(4), records[1].Timestamp)
	assert.Equal(t, int64(3), records[2].Timestamp)
}

// warnCounter counts Warn calls.
type warnCounter struct {
	mockLogger
	warns int
}

func (w *warnCounter) Warn(_ string, _ ...any) { w.warns++ }

func TestDecodeList_SkipsCorruptEntries(t *testing.T) {
	logger := &warnCounter{}
	values := []string{
		`{"sender":"SilentFox123","text":"first","created_at":1}`,
		`not json`,
		`{"sender":"BraveOwl456","text":"__IMG__:/uploads/a.png","created_at":3}`,
	}

	records := decodeList("ALPHA", values, logger)

	require.Len(t, records, 2)
	assert.Equal(t, domain.KindImage, records[0].Kind)
	assert.Equal(t, "/uploads/a.png", records[0].Payload)
	assert.Equal(t, "first", records[1].Payload)
	assert.Equal(t, 1, logger.warns)
}

func TestRoomKey(t *testing.T) {
	assert.Equal(t, "chat:room:ALPHA:messages", roomKey("ALPHA"))
}
