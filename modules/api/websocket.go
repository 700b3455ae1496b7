package api

import (
	"encoding/json"
	"time"

	"github.com/Singh2236/chatLocalAnom/modules/broadcast"
	"github.com/Singh2236/chatLocalAnom/modules/moderation"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// maxFrameBytes bounds a single client frame.
const maxFrameBytes = 16 << 10

// handleWebSocket handles WebSocket connections at /ws.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	session := broadcast.NewSession(
		uuid.New().String(),
		m.names.Generate(),
		moderation.NewLimiter(m.cfg.Rate),
		m.cfg.QueueSize,
	)
	c.SetReadLimit(maxFrameBytes)

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		m.writePump(c, session)
	}()

	m.engine.Connect(session)

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.logger.Warn("WebSocket read error", "session_id", session.ID, "error", err)
			}
			break
		}
		m.dispatch(session, data, time.Now())
	}

	m.engine.Disconnect(session)
	// The connection is released once this handler returns.
	<-pumpDone
}

// writePump drains the session outbox onto the connection until the session
// closes or a write fails.
func (m *APIModule) writePump(c *websocket.Conn, s *broadcast.Session) {
	defer func() { _ = c.Close() }()

	for {
		select {
		case <-s.Done():
			return
		case frame := <-s.Outbox():
			if err := c.WriteJSON(frame); err != nil {
				m.logger.Warn("WebSocket write failed", "session_id", s.ID, "error", err)
				return
			}
		}
	}
}

// dispatch routes one client frame. Unknown events and undecodable frames
// are ignored.
func (m *APIModule) dispatch(s *broadcast.Session, data []byte, now time.Time) {
	var in inboundFrame
	if err := json.Unmarshal(data, &in); err != nil {
		return
	}
	var value string
	if err := json.Unmarshal(in.Data, &value); err != nil {
		return
	}

	switch in.Event {
	case broadcast.EventJoinRoom:
		m.engine.Join(s, value)
	case broadcast.EventChatMessage:
		m.engine.SubmitText(s, value, now)
	case broadcast.EventChatImage:
		m.engine.SubmitImageReference(s, value, now)
	}
}
