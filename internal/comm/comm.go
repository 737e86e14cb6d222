package comm

import (
	"encoding/json"
	"time"
)

const (
	// SubjectNotifyEmail carries EmailRequest payloads to the notify service.
	SubjectNotifyEmail = "notify.email"
	QueueNotifiers     = "notifiers"
)

// WSMessage is exchanged with scan station pages over websocket.
type WSMessage struct {
	Type string          `json:"type"` // "frame", "alert", "state"
	Data json.RawMessage `json:"data"`
}

type FrameData struct {
	Raw string `json:"raw"`
}

type AlertData struct {
	Kind    string    `json:"kind"` // "success", "failure", "invalid"
	Title   string    `json:"title"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type StateData struct {
	State   string `json:"state"`
	Locked  bool   `json:"locked"`
	Saving  bool   `json:"saving"`
	Payload any    `json:"payload,omitempty"`
}

type EmailRequest struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	HTML    string   `json:"html,omitempty"`
}

// EmailReply is the notify service answer. ID is empty when Error is set.
type EmailReply struct {
	ID       string `json:"id,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
	Error    string `json:"error,omitempty"`
}
