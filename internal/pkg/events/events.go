package events

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// TopicSessionEvents carries every outbound session event from the
// coordination core to the realtime transport.
const TopicSessionEvents = "session.events"

// Envelope wraps one outbound event. Target narrows delivery to a single
// connection; when empty the event goes to the whole session room.
type Envelope struct {
	SessionID string          `json:"sessionId"`
	Target    string          `json:"target,omitempty"`
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
}

// NewMessage marshals an envelope into a watermill message.
func NewMessage(sessionID, target, event string, payload interface{}) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	env, err := json.Marshal(Envelope{
		SessionID: sessionID,
		Target:    target,
		Event:     event,
		Payload:   data,
	})
	if err != nil {
		return nil, err
	}
	return message.NewMessage(watermill.NewUUID(), env), nil
}
