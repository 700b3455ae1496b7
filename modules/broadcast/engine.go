package broadcast

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	domain "github.com/Singh2236/chatLocalAnom/domain/chat"
	"github.com/Singh2236/chatLocalAnom/modules/moderation"
	"github.com/go-monolith/mono/pkg/types"
)

// HistoryReader returns a room's backlog oldest first.
type HistoryReader interface {
	Recent(ctx context.Context, room string, limit int) ([]domain.Message, error)
}

// Persister stores accepted messages. Errors are logged only.
type Persister interface {
	Persist(msg domain.Message) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithFilter replaces the default content filter.
func WithFilter(f *moderation.Filter) Option {
	return func(e *Engine) { e.filter = f }
}

// WithHistoryLimit bounds the backlog sent after a join.
func WithHistoryLimit(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.historyLimit = limit
		}
	}
}

// WithHistoryTimeout bounds a single backlog read.
func WithHistoryTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.historyTimeout = d
		}
	}
}

// WithClock replaces time.Now for system notices.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine serializes membership changes and fan-out on a single loop.
type Engine struct {
	registry  *Registry
	history   HistoryReader
	persister Persister
	filter    *moderation.Filter
	logger    types.Logger

	historyLimit   int
	historyTimeout time.Duration
	now            func() time.Time

	ops     chan func()
	done    chan struct{}
	running atomic.Bool

	// lastTimestamp is owned by the loop.
	lastTimestamp int64
}

// NewEngine creates an engine. history and persister may be nil.
func NewEngine(history HistoryReader, persister Persister, logger types.Logger, opts ...Option) *Engine {
	e := &Engine{
		registry:       NewRegistry(),
		history:        history,
		persister:      persister,
		filter:         moderation.NewFilter(moderation.DefaultBlocklist),
		logger:         logger,
		historyLimit:   100,
		historyTimeout: 5 * time.Second,
		now:            time.Now,
		ops:            make(chan func(), 256),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes queued operations until ctx is cancelled, then closes every
// session.
func (e *Engine) Run(ctx context.Context) {
	e.running.Store(true)
	defer e.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Engine shutting down", "sessions", e.registry.ConnectionCount())
			for _, s := range e.registry.Sessions() {
				s.Close()
			}
			close(e.done)
			return
		case op := <-e.ops:
			op()
		}
	}
}

// Running reports whether the loop is executing operations.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Wait blocks until Run has returned.
func (e *Engine) Wait() {
	<-e.done
}

// do queues fn on the loop. It reports false once the engine has stopped.
func (e *Engine) do(fn func()) bool {
	select {
	case <-e.done:
		return false
	default:
	}
	select {
	case e.ops <- fn:
		return true
	case <-e.done:
		return false
	}
}

// call runs fn on the loop and waits for it. It reports false when the loop
// is not running.
func (e *Engine) call(fn func()) bool {
	if !e.running.Load() {
		return false
	}
	finished := make(chan struct{})
	if !e.do(func() {
		fn()
		close(finished)
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-e.done:
		return false
	}
}

// Connect registers s, greets it and joins it to the lobby.
func (e *Engine) Connect(s *Session) {
	ok := e.do(func() {
		e.registry.Add(s)
		e.deliver(s, Frame{Event: EventWelcome, Data: WelcomePayload{
			DisplayName: s.Name(),
			Room:        domain.DefaultRoom,
		}})
		e.join(s, domain.DefaultRoom)
		e.deliver(s, Frame{Event: EventRoomsList, Data: e.registry.OpenRooms()})
		e.logger.Info("Session connected", "session_id", s.ID, "name", s.Name())
	})
	if !ok {
		s.Close()
	}
}

// Disconnect removes s from its room and closes it.
func (e *Engine) Disconnect(s *Session) {
	ok := e.do(func() {
		_, hadRoom := e.leave(s)
		e.registry.Remove(s)
		s.Close()
		if hadRoom {
			e.toAll(Frame{Event: EventRoomsList, Data: e.registry.OpenRooms()})
		}
		e.logger.Info("Session disconnected", "session_id", s.ID, "name", s.Name())
	})
	if !ok {
		s.Close()
	}
}

// Join moves s to the room named by code after normalization.
func (e *Engine) Join(s *Session, code string) {
	e.do(func() {
		e.join(s, domain.NormalizeRoom(code))
	})
}

// SubmitText admits, sanitizes and broadcasts a text message.
func (e *Engine) SubmitText(s *Session, raw string, now time.Time) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return
	}
	if !e.admit(s, now) {
		return
	}
	text = e.filter.Apply(domain.TruncateText(text))
	e.do(func() {
		e.publish(s, domain.KindText, text, now)
	})
}

// SubmitImageReference admits and broadcasts an uploaded image reference.
func (e *Engine) SubmitImageReference(s *Session, reference string, now time.Time) {
	ref := strings.TrimSpace(reference)
	if !domain.IsImageReference(ref) {
		return
	}
	if !e.admit(s, now) {
		return
	}
	e.do(func() {
		e.publish(s, domain.KindImage, ref, now)
	})
}

// GetHistory returns up to the history limit of messages in the room named
// by code, oldest first. Failures yield an empty slice.
func (e *Engine) GetHistory(ctx context.Context, code string) []domain.Message {
	return e.recent(ctx, domain.NormalizeRoom(code), e.historyLimit)
}

// GetHistoryLimit is GetHistory with an explicit bound.
func (e *Engine) GetHistoryLimit(ctx context.Context, code string, limit int) []domain.Message {
	if limit <= 0 || limit > e.historyLimit {
		limit = e.historyLimit
	}
	return e.recent(ctx, domain.NormalizeRoom(code), limit)
}

// OnlineCount returns the member count of the room named by code.
func (e *Engine) OnlineCount(code string) int {
	room := domain.NormalizeRoom(code)
	var n int
	e.call(func() { n = e.registry.OnlineCount(room) })
	return n
}

// OpenRooms lists rooms with members, busiest first.
func (e *Engine) OpenRooms() []domain.RoomCount {
	rooms := []domain.RoomCount{}
	e.call(func() { rooms = e.registry.OpenRooms() })
	return rooms
}

// ConnectionCount returns the number of connected sessions.
func (e *Engine) ConnectionCount() int {
	var n int
	e.call(func() { n = e.registry.ConnectionCount() })
	return n
}

// CurrentRoom returns the room s is in, empty when it has none.
func (e *Engine) CurrentRoom(s *Session) string {
	var room string
	e.call(func() { room = s.room })
	return room
}

// admit runs the session's limiter on the caller's goroutine and notifies
// the sender on rejection.
func (e *Engine) admit(s *Session, now time.Time) bool {
	decision := s.limiter.Admit(now)
	if decision.Accepted {
		return true
	}
	e.deliver(s, Frame{Event: EventRateLimited, Data: RateLimitedPayload{
		Message: decision.Reason.Notice(),
	}})
	return false
}

// publish builds the message on the loop, fans it out and persists it.
func (e *Engine) publish(s *Session, kind domain.Kind, payload string, now time.Time) {
	if s.room == "" {
		return
	}

	ts := max(now.UnixMilli(), e.lastTimestamp)
	e.lastTimestamp = ts

	msg := domain.Message{
		Room:      s.room,
		Sender:    s.Name(),
		Kind:      kind,
		Payload:   payload,
		Timestamp: ts,
	}
	e.toRoom(msg.Room, messageFrame(msg))

	if e.persister == nil {
		return
	}
	if err := e.persister.Persist(msg); err != nil {
		e.logger.Error("Failed to persist message", "room", msg.Room, "error", err)
	}
}

// join runs on the loop. Sessions already disconnected are ignored.
func (e *Engine) join(s *Session, room string) {
	if !e.registry.Has(s) {
		return
	}
	if !domain.IsRoomCode(room) {
		e.logger.Warn("Ignoring join to invalid room", "session_id", s.ID, "room", room)
		return
	}
	if s.room == room {
		e.deliver(s, Frame{Event: EventRoomJoined, Data: RoomJoinedPayload{
			Room:   room,
			Online: e.registry.OnlineCount(room),
		}})
		e.deliver(s, Frame{Event: EventRoomsList, Data: e.registry.OpenRooms()})
		e.sendHistory(s, room)
		return
	}

	if prev, ok := e.leave(s); ok {
		e.logger.Debug("Session moved", "session_id", s.ID, "from", prev, "to", room)
	}
	e.registry.Enter(s, room)

	e.deliver(s, Frame{Event: EventRoomJoined, Data: RoomJoinedPayload{
		Room:   room,
		Online: e.registry.OnlineCount(room),
	}})
	e.toRoomExcept(room, s, e.systemMessage(room, fmt.Sprintf("%s joined room %s", s.Name(), room)))
	e.toRoom(room, e.onlineFrame(room))
	e.toAll(Frame{Event: EventRoomsList, Data: e.registry.OpenRooms()})
	e.sendHistory(s, room)
}

// leave runs on the loop and notifies the remaining members. Without a room
// it is a no-op.
func (e *Engine) leave(s *Session) (string, bool) {
	prev, ok := e.registry.Leave(s)
	if !ok {
		return "", false
	}
	e.toRoom(prev, e.systemMessage(prev, fmt.Sprintf("%s left room %s", s.Name(), prev)))
	e.toRoom(prev, e.onlineFrame(prev))
	return prev, true
}

// sendHistory reads the backlog off the loop and delivers it to s.
func (e *Engine) sendHistory(s *Session, room string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.historyTimeout)
		defer cancel()

		messages := e.recent(ctx, room, e.historyLimit)
		e.deliver(s, Frame{Event: EventRoomHistory, Data: NewHistoryEntries(messages)})
	}()
}

func (e *Engine) recent(ctx context.Context, room string, limit int) []domain.Message {
	if e.history == nil {
		return []domain.Message{}
	}
	messages, err := e.history.Recent(ctx, room, limit)
	if err != nil {
		e.logger.Warn("History read failed", "room", room, "error", err)
		return []domain.Message{}
	}
	if messages == nil {
		return []domain.Message{}
	}
	return messages
}

func (e *Engine) systemMessage(room, text string) Frame {
	return Frame{Event: EventSystemMessage, Data: SystemMessagePayload{
		Room:      room,
		Text:      text,
		Timestamp: e.now().UnixMilli(),
	}}
}

func (e *Engine) onlineFrame(room string) Frame {
	return Frame{Event: EventOnline, Data: OnlinePayload{
		Room:  room,
		Count: e.registry.OnlineCount(room),
	}}
}

func (e *Engine) deliver(s *Session, f Frame) {
	if !s.Send(f) && !s.Closed() {
		e.logger.Warn("Dropping event for slow session", "session_id", s.ID, "event", f.Event)
	}
}

func (e *Engine) toRoom(room string, f Frame) {
	for _, s := range e.registry.Members(room) {
		e.deliver(s, f)
	}
}

func (e *Engine) toRoomExcept(room string, except *Session, f Frame) {
	for _, s := range e.registry.Members(room) {
		if s != except {
			e.deliver(s, f)
		}
	}
}

func (e *Engine) toAll(f Frame) {
	for _, s := range e.registry.Sessions() {
		e.deliver(s, f)
	}
}
