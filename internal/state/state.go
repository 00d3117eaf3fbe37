// Package state holds the externally observable call state projection
// and the publisher that fans it out to registered observers.
package state

import (
	"strings"
	"time"
)

// Status is the published call state
type Status string

const (
	StatusIdle     Status = "idle"
	StatusStarting Status = "starting"
	StatusRinging  Status = "ringing"
	StatusInCall   Status = "in_call"
	StatusEnding   Status = "ending"
	StatusError    Status = "error"
)

// Class is the coarse classification of a raw transport state string
type Class int

const (
	ClassOther Class = iota
	ClassRinging
	ClassConnected
	ClassTerminal
)

// The transport vendor's state vocabulary is not a fixed enum, so
// classification is best-effort substring matching over the raw string.
var (
	terminalMarkers  = []string{"busy", "failed", "ended", "discard", "hangup", "closed"}
	connectedMarkers = []string{"connected", "established", "active"}
)

// Classify maps a raw vendor call-state string onto the internal state set
func Classify(raw string) Class {
	s := strings.ToLower(raw)
	for _, m := range terminalMarkers {
		if strings.Contains(s, m) {
			return ClassTerminal
		}
	}
	for _, m := range connectedMarkers {
		if strings.Contains(s, m) {
			return ClassConnected
		}
	}
	if strings.Contains(s, "ring") {
		return ClassRinging
	}
	return ClassOther
}

// IsTerminal reports whether the raw state indicates no further call progress
func IsTerminal(raw string) bool {
	return Classify(raw) == ClassTerminal
}

// Snapshot is a value copy of the observable call state
type Snapshot struct {
	Status    Status    `json:"call_state"`
	Topic     string    `json:"call_topic"`
	Peer      string    `json:"call_peer"`
	LastError string    `json:"last_error"`
	UpdatedAt time.Time `json:"updated_at"`
}
