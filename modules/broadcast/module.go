package broadcast

import (
	"context"
	"fmt"

	domain "github.com/Singh2236/chatLocalAnom/domain/chat"
	"github.com/Singh2236/chatLocalAnom/events"
	"github.com/Singh2236/chatLocalAnom/modules/history"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// BroadcastModule hosts the engine, reads backlogs from the history module
// and emits MessageAccepted events for persistence.
type BroadcastModule struct {
	engine      *Engine
	cancel      context.CancelFunc
	eventBus    mono.EventBus
	historyPort history.HistoryPort
	logger      types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.DependentModule = (*BroadcastModule)(nil)
var _ mono.EventBusAwareModule = (*BroadcastModule)(nil)
var _ mono.EventEmitterModule = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new BroadcastModule.
func NewModule(logger types.Logger, opts ...Option) *BroadcastModule {
	m := &BroadcastModule{logger: logger}
	m.engine = NewEngine(m, m, logger, opts...)
	return m
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Dependencies returns the modules this module reads from.
func (m *BroadcastModule) Dependencies() []string {
	return []string{"history"}
}

// SetDependencyServiceContainer wires the history port.
func (m *BroadcastModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "history" {
		m.historyPort = history.NewHistoryAdapter(container)
	}
}

// SetEventBus stores the bus used to publish accepted messages.
func (m *BroadcastModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module publishes.
func (m *BroadcastModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageAcceptedV1.ToBase(),
	}
}

// Start runs the engine loop.
func (m *BroadcastModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.engine.Run(ctx)
	m.logger.Info("Broadcast engine running")
	return nil
}

// Stop shuts the engine down and closes every session.
func (m *BroadcastModule) Stop(_ context.Context) error {
	if m.cancel == nil {
		return nil
	}
	sessions := m.engine.ConnectionCount()
	m.cancel()
	m.engine.Wait()
	m.logger.Info("Broadcast engine stopped", "sessions", sessions)
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	if !m.engine.Running() {
		return mono.HealthStatus{Healthy: false, Message: "engine not running"}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.engine.ConnectionCount(),
			"open_rooms":        len(m.engine.OpenRooms()),
		},
	}
}

// Engine returns the broadcast engine for the transport to drive.
func (m *BroadcastModule) Engine() *Engine {
	return m.engine
}

// Recent implements HistoryReader over the history port.
func (m *BroadcastModule) Recent(ctx context.Context, room string, limit int) ([]domain.Message, error) {
	if m.historyPort == nil {
		return nil, history.ErrStoreNotReady
	}
	return m.historyPort.Recent(ctx, room, limit)
}

// Persist implements Persister by publishing a MessageAccepted event.
func (m *BroadcastModule) Persist(msg domain.Message) error {
	if m.eventBus == nil {
		return fmt.Errorf("event bus not set")
	}
	ev := events.MessageAcceptedEvent{
		Room:      msg.Room,
		Sender:    msg.Sender,
		Kind:      string(msg.Kind),
		Payload:   msg.Payload,
		Timestamp: msg.Timestamp,
	}
	if err := events.MessageAcceptedV1.Publish(m.eventBus, ev, nil); err != nil {
		return fmt.Errorf("publish MessageAccepted: %w", err)
	}
	return nil
}
