package moderation

import "time"

// Rate limit defaults.
const (
	DefaultMinGap       = 400 * time.Millisecond
	DefaultWindow       = 10 * time.Second
	DefaultMaxPerWindow = 6
)

// Reason explains a rejected message.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonTooFast        Reason = "too-fast"
	ReasonWindowExceeded Reason = "window-exceeded"
)

// Notice returns the text sent to a client whose message was rejected.
func (r Reason) Notice() string {
	switch r {
	case ReasonTooFast:
		return "You are sending too fast. Slow down."
	case ReasonWindowExceeded:
		return "Rate limit reached. Wait a few seconds."
	default:
		return ""
	}
}

// RateConfig holds the rate limit parameters.
type RateConfig struct {
	MinGap       time.Duration
	Window       time.Duration
	MaxPerWindow int
}

// DefaultRateConfig returns the standard limits.
func DefaultRateConfig() RateConfig {
	return RateConfig{
		MinGap:       DefaultMinGap,
		Window:       DefaultWindow,
		MaxPerWindow: DefaultMaxPerWindow,
	}
}

// Decision is the outcome of Limiter.Admit.
type Decision struct {
	Accepted bool
	Reason   Reason
}

// Limiter is the admission gate of a single session. It is not safe for
// concurrent use; it belongs to the goroutine reading that session.
type Limiter struct {
	cfg            RateConfig
	lastAcceptedAt time.Time
	recent         []time.Time
}

// NewLimiter creates a Limiter. Zero fields in cfg take the defaults.
func NewLimiter(cfg RateConfig) *Limiter {
	def := DefaultRateConfig()
	if cfg.MinGap <= 0 {
		cfg.MinGap = def.MinGap
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MaxPerWindow <= 0 {
		cfg.MaxPerWindow = def.MaxPerWindow
	}
	return &Limiter{cfg: cfg}
}

// Admit decides whether a message sent at now may pass.
func (l *Limiter) Admit(now time.Time) Decision {
	if !l.lastAcceptedAt.IsZero() && now.Sub(l.lastAcceptedAt) < l.cfg.MinGap {
		return Decision{Reason: ReasonTooFast}
	}

	kept := l.recent[:0]
	for _, ts := range l.recent {
		if now.Sub(ts) < l.cfg.Window {
			kept = append(kept, ts)
		}
	}
	l.recent = kept

	if len(l.recent) >= l.cfg.MaxPerWindow {
		return Decision{Reason: ReasonWindowExceeded}
	}

	l.recent = append(l.recent, now)
	l.lastAcceptedAt = now
	return Decision{Accepted: true}
}

// InWindow returns how many accepted messages the limiter currently tracks.
func (l *Limiter) InWindow() int {
	return len(l.recent)
}
