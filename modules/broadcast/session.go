package broadcast

import (
	"sync"

	"github.com/Singh2236/chatLocalAnom/modules/moderation"
)

// DefaultQueueSize is the outbound buffer of a session.
const DefaultQueueSize = 64

// Session is one live connection.
type Session struct {
	ID string

	name    string
	limiter *moderation.Limiter
	outbox  chan Frame
	done    chan struct{}
	once    sync.Once

	// room is owned by the engine loop.
	room string
}

// NewSession creates a session named name. A nil limiter gets the defaults.
func NewSession(id, name string, limiter *moderation.Limiter, queueSize int) *Session {
	if limiter == nil {
		limiter = moderation.NewLimiter(moderation.DefaultRateConfig())
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Session{
		ID:      id,
		name:    name,
		limiter: limiter,
		outbox:  make(chan Frame, queueSize),
		done:    make(chan struct{}),
	}
}

// Name returns the display name assigned at connect.
func (s *Session) Name() string {
	return s.name
}

// Outbox yields frames for the transport's write pump.
func (s *Session) Outbox() <-chan Frame {
	return s.outbox
}

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Send queues f without blocking. It reports false when the session is
// closed or its queue is full.
func (s *Session) Send(f Frame) bool {
	if s.Closed() {
		return false
	}
	select {
	case s.outbox <- f:
		return true
	default:
		return false
	}
}

// Close stops further sends. The outbox is left open so late senders never
// panic.
func (s *Session) Close() {
	s.once.Do(func() { close(s.done) })
}
