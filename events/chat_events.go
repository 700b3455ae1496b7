package events

import (
	"github.com/go-monolith/mono/pkg/helper"
)

// MessageAcceptedEvent is emitted after a message has been fanned out to its
// room. Consumers persist it.
type MessageAcceptedEvent struct {
	Room      string `json:"room"`
	Sender    string `json:"sender"`
	Kind      string `json:"kind"`
	Payload   string `json:"payload"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// Event definitions for the chat domain.
var (
	MessageAcceptedV1 = helper.EventDefinition[MessageAcceptedEvent](
		"broadcast",
		"MessageAccepted",
		"v1",
	)
)
