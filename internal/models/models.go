// Package models contains shared data structures for tgcalld
package models

import "time"

// Call dispositions
const (
	DispositionCompleted = "completed"
	DispositionFailed    = "failed"
	DispositionHungUp    = "hung_up"
)

// CallRecord is one entry in the call log
type CallRecord struct {
	ID          string     `json:"id"`
	Target      string     `json:"target"`
	Peer        string     `json:"peer,omitempty"`
	Topic       string     `json:"topic,omitempty"`
	Language    string     `json:"language"`
	Disposition string     `json:"disposition,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	Duration    int        `json:"duration"` // seconds
}

// CallStats summarizes the call log by disposition
type CallStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	HungUp    int `json:"hung_up"`
}
