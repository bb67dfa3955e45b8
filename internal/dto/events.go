package dto

import "encoding/json"

// Websocket event names.
const (
	EventUserStatusChange = "user_status_change"
	EventSendMessage      = "send_message"
	EventNewMessage       = "new_message"
	EventMessageDeleted   = "message_deleted"
	EventError            = "error"
	EventTyping           = "typing"
	EventStopTyping       = "stop_typing"
	EventUserTyping       = "user_typing"
)

// Presence values carried by StatusChange.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Envelope is the shape of every websocket frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope encodes data into a ready-to-send frame.
func NewEnvelope(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// TypingPayload is sent by clients with typing and stop_typing.
type TypingPayload struct {
	RecipientID *uint `json:"recipientId"`
}

// StatusChange announces a presence transition to every client.
type StatusChange struct {
	UserID uint   `json:"userId"`
	Status string `json:"status"`
}

// UserTyping is relayed to the typing target.
type UserTyping struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	Typing   bool   `json:"typing"`
}

// MessageDeleted tells clients to drop a message from their view.
type MessageDeleted struct {
	MessageID uint `json:"messageId"`
}

// ErrorPayload is the connection-local error event.
type ErrorPayload struct {
	Message string `json:"message"`
}
