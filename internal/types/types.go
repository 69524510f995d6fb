package types

import "github.com/DoyleJ11/shootout-backend/internal/engine"

type ClientMessage struct {
	Type       string `json:"type"`
	Role       string `json:"role,omitempty"`
	Horizontal string `json:"horizontal,omitempty"`
	Vertical   string `json:"vertical,omitempty"`
	Precision  string `json:"precision,omitempty"`
}

type ServerMessage struct {
	Type    string           `json:"type"` // "Welcome" | "Update" | "Error"
	PeerID  string           `json:"peer_id,omitempty"`
	Version int              `json:"version,omitempty"`
	State   *engine.Snapshot `json:"state,omitempty"`
	Events  []engine.Event   `json:"events,omitempty"`
	Error   string           `json:"error,omitempty"`
}

const (
	MsgWelcome = "Welcome"
	MsgUpdate  = "Update"
	MsgError   = "Error"
)
