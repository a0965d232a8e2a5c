package models

import (
	"encoding/json"
	"errors"
)

// Wire event names. Inbound and outbound traffic share one envelope shape:
// {"event": "<name>", "data": {...}}.
const (
	EventJoinConversation  = "join:conversation"
	EventLeaveConversation = "leave:conversation"
	EventTypingStart       = "typing:start"
	EventTypingStop        = "typing:stop"
	EventMessageRead       = "message:read"
	EventStatusUpdate      = "status:update"
	EventPostLike          = "post:like"
	EventPostComment       = "post:comment"
	EventPostNew           = "post:new"
	EventUserStatus        = "user:status"
)

// ErrMalformedEvent is returned when a frame decodes as JSON but is missing
// required fields or names an unknown event. The hub drops such frames.
var ErrMalformedEvent = errors.New("malformed realtime event")

// Envelope is the wire frame for every realtime event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewEnvelope wraps a payload into a wire frame.
func NewEnvelope(event string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: raw}, nil
}

// ClientEvent is the tagged union of inbound client events. DecodeClientEvent
// yields exactly one of the concrete kinds below, or an error.
type ClientEvent interface {
	clientEvent()
}

// JoinConversation asks for membership in a conversation room.
type JoinConversation struct {
	ConversationID string `json:"conversationId"`
}

// LeaveConversation drops membership in a conversation room.
type LeaveConversation struct {
	ConversationID string `json:"conversationId"`
}

// TypingStart signals the sender began typing in a conversation.
type TypingStart struct {
	ConversationID string `json:"conversationId"`
}

// TypingStop signals the sender stopped typing.
type TypingStop struct {
	ConversationID string `json:"conversationId"`
}

// MessageRead signals the sender read a message in a conversation.
type MessageRead struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

// StatusUpdate carries a caller-supplied presence status string.
type StatusUpdate struct {
	Status string `json:"status"`
}

// PostRelay carries a post:like / post:comment / post:new payload. The
// realtime layer relays it verbatim; the payload shape is owned by the posts
// collaborator.
type PostRelay struct {
	Event   string
	Payload json.RawMessage
}

func (JoinConversation) clientEvent()  {}
func (LeaveConversation) clientEvent() {}
func (TypingStart) clientEvent()       {}
func (TypingStop) clientEvent()        {}
func (MessageRead) clientEvent()       {}
func (StatusUpdate) clientEvent()      {}
func (PostRelay) clientEvent()         {}

// DecodeClientEvent parses a raw websocket frame into a typed event.
func DecodeClientEvent(raw []byte) (ClientEvent, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}

	switch env.Event {
	case EventJoinConversation:
		var ev JoinConversation
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, err
		}
		if ev.ConversationID == "" {
			return nil, ErrMalformedEvent
		}
		return ev, nil

	case EventLeaveConversation:
		var ev LeaveConversation
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, err
		}
		if ev.ConversationID == "" {
			return nil, ErrMalformedEvent
		}
		return ev, nil

	case EventTypingStart:
		var ev TypingStart
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, err
		}
		if ev.ConversationID == "" {
			return nil, ErrMalformedEvent
		}
		return ev, nil

	case EventTypingStop:
		var ev TypingStop
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, err
		}
		if ev.ConversationID == "" {
			return nil, ErrMalformedEvent
		}
		return ev, nil

	case EventMessageRead:
		var ev MessageRead
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, err
		}
		if ev.ConversationID == "" || ev.MessageID == "" {
			return nil, ErrMalformedEvent
		}
		return ev, nil

	case EventStatusUpdate:
		var ev StatusUpdate
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return nil, err
		}
		if ev.Status == "" {
			return nil, ErrMalformedEvent
		}
		return ev, nil

	case EventPostLike, EventPostComment, EventPostNew:
		return PostRelay{Event: env.Event, Payload: env.Data}, nil
	}

	return nil, ErrMalformedEvent
}

// TypingEvent is the outbound payload for typing:start and typing:stop.
type TypingEvent struct {
	UserID         string `json:"userId"`
	Username       string `json:"username"`
	ConversationID string `json:"conversationId"`
}

// ReadReceipt is the outbound payload for message:read.
type ReadReceipt struct {
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
	ReadAt    string `json:"readAt"` // RFC 3339
}

// UserStatus is the outbound payload for user:status.
type UserStatus struct {
	UserID    string `json:"userId"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"` // RFC 3339
}

// Built-in status values. status:update additionally accepts any
// caller-supplied string.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)
