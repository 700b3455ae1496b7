package broadcast

import domain "github.com/Singh2236/chatLocalAnom/domain/chat"

// Client event names.
const (
	EventWelcome       = "welcome"
	EventRoomJoined    = "room-joined"
	EventRoomHistory   = "room-history"
	EventOnline        = "online"
	EventSystemMessage = "system-message"
	EventChatMessage   = "chat-message"
	EventChatImage     = "chat-image"
	EventRateLimited   = "rate-limited"
	EventRoomsList     = "rooms-list"
	EventJoinRoom      = "join-room"
)

// Frame is one event on the client connection.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// WelcomePayload greets a new connection with its assigned name.
type WelcomePayload struct {
	DisplayName string `json:"displayName"`
	Room        string `json:"room"`
}

// RoomJoinedPayload confirms a join to the caller.
type RoomJoinedPayload struct {
	Room   string `json:"room"`
	Online int    `json:"online"`
}

// OnlinePayload carries a room's presence count.
type OnlinePayload struct {
	Room  string `json:"room"`
	Count int    `json:"count"`
}

// SystemMessagePayload is a server-authored notice in a room.
type SystemMessagePayload struct {
	Room      string `json:"room"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// ChatMessagePayload is a broadcast text message.
type ChatMessagePayload struct {
	Room      string `json:"room"`
	From      string `json:"from"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// ChatImagePayload is a broadcast image reference.
type ChatImagePayload struct {
	Room      string `json:"room"`
	From      string `json:"from"`
	URL       string `json:"url"`
	Timestamp int64  `json:"timestamp"`
}

// RateLimitedPayload tells the sender a message was not accepted.
type RateLimitedPayload struct {
	Message string `json:"message"`
}

// HistoryEntry is one element of room-history.
type HistoryEntry struct {
	Sender    string      `json:"sender"`
	Type      domain.Kind `json:"type"`
	Text      string      `json:"text,omitempty"`
	URL       string      `json:"url,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// NewHistoryEntries converts stored messages to room-history entries.
func NewHistoryEntries(messages []domain.Message) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(messages))
	for _, msg := range messages {
		entry := HistoryEntry{
			Sender:    msg.Sender,
			Type:      msg.Kind,
			Timestamp: msg.Timestamp,
		}
		if msg.Kind == domain.KindImage {
			entry.URL = msg.Payload
		} else {
			entry.Type = domain.KindText
			entry.Text = msg.Payload
		}
		entries = append(entries, entry)
	}
	return entries
}

func messageFrame(msg domain.Message) Frame {
	if msg.Kind == domain.KindImage {
		return Frame{Event: EventChatImage, Data: ChatImagePayload{
			Room:      msg.Room,
			From:      msg.Sender,
			URL:       msg.Payload,
			Timestamp: msg.Timestamp,
		}}
	}
	return Frame{Event: EventChatMessage, Data: ChatMessagePayload{
		Room:      msg.Room,
		From:      msg.Sender,
		Text:      msg.Payload,
		Timestamp: msg.Timestamp,
	}}
}
