package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/Singh2236/chatLocalAnom/domain/chat"
	"github.com/Singh2236/chatLocalAnom/modules/broadcast"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

func newMockLogger() types.Logger {
	return &mockLogger{}
}

// recordingHistory serves fixed messages and records the last request.
type recordingHistory struct {
	mu        sync.Mutex
	messages  []domain.Message
	lastRoom  string
	lastLimit int
}

func (r *recordingHistory) Recent(_ context.Context, room string, limit int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastRoom = room
	r.lastLimit = limit
	return r.messages, nil
}

func (r *recordingHistory) last() (string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRoom, r.lastLimit
}

type testEnv struct {
	module  *APIModule
	app     *fiber.App
	engine  *broadcast.Engine
	history *recordingHistory
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()

	if cfg.UploadDir == "" {
		cfg.UploadDir = t.TempDir()
	}
	if cfg.PublicDir == "" {
		cfg.PublicDir = t.TempDir()
	}

	h := &recordingHistory{}
	engine := broadcast.NewEngine(h, nil, newMockLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go engine.Run(ctx)
	t.Cleanup(func() {
		cancel()
		engine.Wait()
	})
	require.Eventually(t, engine.Running, time.Second, time.Millisecond)

	m, err := NewModule(cfg, newMockLogger())
	require.NoError(t, err)
	m.SetEngine(engine)

	return &testEnv{module: m, app: m.newApp(), engine: engine, history: h}
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func uploadRequest(t *testing.T, field, filename, contentType string, body []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestNewModule_Defaults(t *testing.T) {
	m, err := NewModule(Config{}, newMockLogger())
	require.NoError(t, err)

	assert.Equal(t, "api", m.Name())
	assert.Equal(t, "3000", m.cfg.Port)
	assert.Equal(t, "uploads", m.cfg.UploadDir)
	assert.Equal(t, int64(DefaultMaxUploadBytes), m.cfg.MaxUploadBytes)
	assert.False(t, m.Health(context.Background()).Healthy)
}

func TestModule_StartWithoutEngine(t *testing.T) {
	m, err := NewModule(Config{UploadDir: t.TempDir()}, newMockLogger())
	require.NoError(t, err)
	assert.Error(t, m.Start(context.Background()))
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t, Config{})

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode[HealthResponse](t, resp)
	assert.Equal(t, "healthy", body.Status)
	assert.EqualValues(t, 0, body.Details["connected_clients"])
}

func TestListRooms(t *testing.T) {
	env := newTestEnv(t, Config{})

	a := broadcast.NewSession("a", "SilentFox123", nil, 256)
	b := broadcast.NewSession("b", "BraveOwl456", nil, 256)
	c := broadcast.NewSession("c", "CalmWolf789", nil, 256)
	env.engine.Connect(a)
	env.engine.Connect(b)
	env.engine.Connect(c)
	env.engine.Join(a, "alpha")
	env.engine.Join(b, "alpha")

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode[RoomsResponse](t, resp)
	assert.Equal(t, []domain.RoomCount{
		{Room: "ALPHA", Count: 2},
		{Room: domain.DefaultRoom, Count: 1},
	}, body.Rooms)
}

func TestGetHistory(t *testing.T) {
	env := newTestEnv(t, Config{})
	env.history.messages = []domain.Message{
		{Room: "ALPHA", Sender: "SilentFox123", Kind: domain.KindText, Payload: "hi", Timestamp: 1},
		{Room: "ALPHA", Sender: "BraveOwl456", Kind: domain.KindImage, Payload: "/uploads/a.png", Timestamp: 2},
	}

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/rooms/alpha/history?limit=5", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode[HistoryResponse](t, resp)
	assert.Equal(t, "ALPHA", body.Room)
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "hi", body.Messages[0].Text)
	assert.Equal(t, "/uploads/a.png", body.Messages[1].URL)

	room, limit := env.history.last()
	assert.Equal(t, "ALPHA", room)
	assert.Equal(t, 5, limit)
}

func TestGetHistory_LimitClamped(t *testing.T) {
	env := newTestEnv(t, Config{})

	tests := []struct {
		query string
		want  int
	}{
		{"", 100},
		{"?limit=500", 100},
		{"?limit=0", 1},
		{"?limit=-3", 1},
		{"?limit=abc", 100},
		{"?limit=42", 42},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/rooms/beta/history"+tt.query, nil))
			require.NoError(t, err)
			resp.Body.Close()

			_, limit := env.history.last()
			assert.Equal(t, tt.want, limit)
		})
	}
}

func TestUpload_Success(t *testing.T) {
	env := newTestEnv(t, Config{})
	content := []byte("\x89PNG fake image")

	resp, err := env.app.Test(uploadRequest(t, uploadField, "Cat.PNG", "image/png", content))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode[UploadResponse](t, resp)
	assert.True(t, domain.IsImageReference(body.URL), "url %q", body.URL)
	assert.True(t, strings.HasSuffix(body.URL, ".png"), "url %q", body.URL)

	stored, err := os.ReadFile(filepath.Join(env.module.cfg.UploadDir, strings.TrimPrefix(body.URL, domain.UploadPrefix)))
	require.NoError(t, err)
	assert.Equal(t, content, stored)

	// The stored file is served back under the upload prefix.
	resp, err = env.app.Test(httptest.NewRequest(http.MethodGet, body.URL, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	served, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, content, served)
}

func TestUpload_Rejections(t *testing.T) {
	env := newTestEnv(t, Config{MaxUploadBytes: 1024})

	tests := []struct {
		name string
		req  *http.Request
		want string
	}{
		{"non image mime", uploadRequest(t, uploadField, "notes.txt", "text/plain", []byte("hello")), errNotAnImage},
		{"oversize", uploadRequest(t, uploadField, "big.png", "image/png", bytes.Repeat([]byte{1}, 2048)), errFileTooLarge},
		{"wrong field", uploadRequest(t, "file", "cat.png", "image/png", []byte("x")), errNoFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.app.Test(tt.req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.want, decode[ErrorResponse](t, resp).Error)
		})
	}

	entries, err := os.ReadDir(env.module.cfg.UploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	env := newTestEnv(t, Config{})

	resp, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/ws", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestDispatch(t *testing.T) {
	env := newTestEnv(t, Config{})
	s := broadcast.NewSession("a", "SilentFox123", nil, 256)
	env.engine.Connect(s)

	env.module.dispatch(s, []byte(`{"event":"join-room","data":"alpha"}`), time.UnixMilli(1000))
	assert.Equal(t, "ALPHA", env.engine.CurrentRoom(s))

	// Ignored frames leave the session where it is.
	for _, raw := range []string{
		`not json`,
		`{"event":"join-room","data":{"room":"beta"}}`,
		`{"event":"leave-room","data":"beta"}`,
		`{"event":"join-room"}`,
	} {
		env.module.dispatch(s, []byte(raw), time.UnixMilli(2000))
	}
	assert.Equal(t, "ALPHA", env.engine.CurrentRoom(s))

	env.module.dispatch(s, []byte(`{"event":"chat-message","data":"hello"}`), time.UnixMilli(3000))
	env.module.dispatch(s, []byte(`{"event":"chat-image","data":"/uploads/x.png"}`), time.UnixMilli(4000))
	env.engine.ConnectionCount()

	var got []string
	for {
		select {
		case f := <-s.Outbox():
			if f.Event == broadcast.EventChatMessage || f.Event == broadcast.EventChatImage {
				got = append(got, f.Event)
			}
			continue
		default:
		}
		break
	}
	assert.Equal(t, []string{broadcast.EventChatMessage, broadcast.EventChatImage}, got)
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 100, parseLimit(""))
	assert.Equal(t, 1, parseLimit("0"))
	assert.Equal(t, 100, parseLimit("101"))
	assert.Equal(t, 7, parseLimit("7"))
}

func TestSafeExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"cat.PNG", ".png"},
		{"photo.jpeg", ".jpeg"},
		{"noext", ""},
		{"weird.p/g", ""},
		{"trailing.", ""},
		{"long.abcdefghijklmnop", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeExtension(tt.name), tt.name)
	}
}
