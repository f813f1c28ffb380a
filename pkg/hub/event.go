// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern. The agent
// publishes conversation events here so dashboards and debug tools
// can follow a session live.
package hub

import "time"

// EventType names the kinds of conversation events broadcast to
// websocket clients.
type EventType string

const (
	// EventState is emitted on every agent state transition.
	EventState EventType = "state"
	// EventTranscript carries a finished user transcription.
	EventTranscript EventType = "transcript"
	// EventReply carries the assistant's full reply text.
	EventReply EventType = "reply"
	// EventRoute is emitted when a turn is handed to a specialist.
	EventRoute EventType = "route"
	// EventInterrupt is emitted when playback is cut short.
	EventInterrupt EventType = "interrupt"
	// EventError reports a turn that ended in a provider failure.
	EventError EventType = "error"
)

// Event is the JSON payload broadcast for each conversation event.
type Event struct {
	Type      EventType `json:"type"`
	TurnID    string    `json:"turnId,omitempty"`
	Text      string    `json:"text,omitempty"`
	AgentID   string    `json:"agentId,omitempty"`
	State     string    `json:"state,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Message is a frame queued for delivery to clients.
type Message struct {
	Data []byte
}
