package history

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	domain "github.com/Singh2236/chatLocalAnom/domain/chat"
	"github.com/Singh2236/chatLocalAnom/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Module persists accepted messages and serves room backlogs.
type Module struct {
	cfg    Config
	store  Store
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)
var _ mono.EventConsumerModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a history module that opens its backend on Start.
func NewModule(cfg Config, logger types.Logger) *Module {
	if cfg.Limit <= 0 || cfg.Limit > DefaultLimit {
		cfg.Limit = DefaultLimit
	}
	return &Module{cfg: cfg, logger: logger}
}

// NewModuleWithStore creates a history module over an already opened store.
func NewModuleWithStore(store Store, logger types.Logger) *Module {
	m := NewModule(Config{}, logger)
	m.store = store
	return m
}

// Name returns the module name.
func (m *Module) Name() string {
	return "history"
}

// Open returns the store selected by cfg.Backend.
func Open(ctx context.Context, cfg Config, logger types.Logger) (Store, error) {
	switch cfg.Backend {
	case "", BackendSQLite:
		return OpenSQLite(cfg.DBPath, cfg.DBDebug)
	case BackendRedis:
		return OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.Retention, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// Start opens the configured backend unless a store was injected.
func (m *Module) Start(ctx context.Context) error {
	if m.store != nil {
		return nil
	}

	store, err := Open(ctx, m.cfg, m.logger)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	m.store = store

	m.logger.Info("History store opened", "backend", m.backendName())
	return nil
}

// Stop closes the store.
func (m *Module) Stop(_ context.Context) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.Close(); err != nil {
		return fmt.Errorf("failed to close history store: %w", err)
	}
	m.logger.Info("History store closed")
	return nil
}

// Health reports whether the backend answers a ping.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.store == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: ErrStoreNotReady.Error(),
		}
	}
	if err := m.store.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("history ping failed: %v", err),
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"backend": m.backendName(),
			"limit":   m.cfg.Limit,
		},
	}
}

// RegisterServices registers the recent service.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceRecent, json.Unmarshal, json.Marshal, m.handleRecent,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRecent, err)
	}

	m.logger.Info("Registered services", "services", []string{ServiceRecent})
	return nil
}

// RegisterEventConsumers subscribes to accepted messages.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.MessageAcceptedV1, m.handleMessageAccepted, m); err != nil {
		return fmt.Errorf("failed to register MessageAccepted consumer: %w", err)
	}
	return nil
}

// Recent reads up to limit messages of room and returns them oldest first.
func (m *Module) Recent(ctx context.Context, room string, limit int) ([]domain.Message, error) {
	if m.store == nil {
		return nil, ErrStoreNotReady
	}
	if limit <= 0 || limit > m.cfg.Limit {
		limit = m.cfg.Limit
	}

	records, err := m.store.ReadRecent(ctx, room, limit)
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(records))
	for _, r := range records {
		messages = append(messages, r.ToMessage(room))
	}
	slices.Reverse(messages)
	return messages, nil
}

func (m *Module) handleRecent(ctx context.Context, req RecentRequest, _ *mono.Msg) (RecentResponse, error) {
	room := domain.NormalizeRoom(req.Room)
	messages, err := m.Recent(ctx, room, req.Limit)
	if err != nil {
		m.logger.Warn("History read failed", "room", room, "error", err)
		return RecentResponse{Messages: []domain.Message{}}, nil
	}
	return RecentResponse{Messages: messages}, nil
}

func (m *Module) handleMessageAccepted(ctx context.Context, ev events.MessageAcceptedEvent, _ *mono.Msg) error {
	if m.store == nil {
		m.logger.Warn("Dropping message, history store not ready", "room", ev.Room)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := m.store.Append(ctx, ev.Room, ev.Sender, ev.Payload, domain.Kind(ev.Kind), ev.Timestamp); err != nil {
		m.logger.Error("Failed to persist message", "room", ev.Room, "sender", ev.Sender, "error", err)
	}
	return nil
}

func (m *Module) backendName() string {
	switch m.store.(type) {
	case *SQLStore:
		return BackendSQLite
	case *RedisStore:
		return BackendRedis
	default:
		return "custom"
	}
}
