package model

// Roster event types pushed to websocket clients.
const (
	EventParticipantJoined = "participant_joined"
	EventParticipantLeft   = "participant_left"
	EventSessionUpdated    = "session_updated"
	EventSessionDeleted    = "session_deleted"
)

// RosterEvent describes a change to a session or its participant list.
// UserID is zero for session_updated / session_deleted.
type RosterEvent struct {
	Type      string  `json:"type"`
	SessionID int64   `json:"sessionId"`
	UserID    int64   `json:"userId,omitempty"`
	Users     []int64 `json:"users,omitempty"`
}
