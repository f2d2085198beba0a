package models

import "github.com/google/uuid"

// EventType discriminates the events carried on the bus.
type EventType string

const (
	EventCheckComplete EventType = "CheckComplete"
	EventServerUpdated EventType = "ServerUpdated"
	EventServerRemoved EventType = "ServerRemoved"
	EventSnapshot      EventType = "Snapshot"
)

// Event is the internal bus event. It carries full server data and must be
// converted with Public before leaving the core boundary.
type Event struct {
	Type     EventType      `json:"type"`
	Result   *CheckResult   `json:"result,omitempty"`
	Server   *Server        `json:"server,omitempty"`
	ServerID *uuid.UUID     `json:"server_id,omitempty"`
	Statuses []ServerStatus `json:"statuses,omitempty"`
}

// PublicEvent is the redacted wire form sent to event-stream clients.
type PublicEvent struct {
	Type     EventType            `json:"type"`
	Result   *CheckResult         `json:"result,omitempty"`
	Server   *PublicServer        `json:"server,omitempty"`
	ServerID *uuid.UUID           `json:"server_id,omitempty"`
	Statuses []PublicServerStatus `json:"statuses,omitempty"`
}

// Public converts an internal event to its redacted wire form.
func (e *Event) Public() PublicEvent {
	out := PublicEvent{
		Type:     e.Type,
		Result:   e.Result,
		ServerID: e.ServerID,
	}
	if e.Server != nil {
		pub := e.Server.Public()
		out.Server = &pub
	}
	if e.Statuses != nil {
		out.Statuses = make([]PublicServerStatus, 0, len(e.Statuses))
		for i := range e.Statuses {
			out.Statuses = append(out.Statuses, e.Statuses[i].Public())
		}
	}
	return out
}
