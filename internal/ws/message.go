package ws

import "github.com/yogastudio/internal/model"

type EventType string

const (
	EventParticipantJoined EventType = model.EventParticipantJoined
	EventParticipantLeft   EventType = model.EventParticipantLeft
	EventSessionUpdated    EventType = model.EventSessionUpdated
	EventSessionDeleted    EventType = model.EventSessionDeleted

	// Client -> server.
	EventSubscribe   EventType = "subscribe"
	EventUnsubscribe EventType = "unsubscribe"

	EventSubscribed EventType = "subscribed"
	EventError      EventType = "error"
)

// IncomingMessage is what the client sends to the server.
type IncomingMessage struct {
	Type      EventType `json:"type"`
	SessionID int64     `json:"sessionId,omitempty"`
}

// OutgoingMessage is what the server sends to the client.
type OutgoingMessage struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// RosterPayload is sent for every roster event.
type RosterPayload struct {
	SessionID int64   `json:"sessionId"`
	UserID    int64   `json:"userId,omitempty"`
	Users     []int64 `json:"users,omitempty"`
}

// SubscriptionPayload acknowledges subscribe/unsubscribe; Sessions is the
// resulting filter, empty meaning every session.
type SubscriptionPayload struct {
	Sessions []int64 `json:"sessions"`
}
