package api

import (
	"context"

	"tgcalld/internal/call"
	"tgcalld/internal/config"
	"tgcalld/internal/db"
	"tgcalld/internal/state"
)

// CallSupervisor is the call-control surface the API exposes
type CallSupervisor interface {
	PlaceCall(ctx context.Context, req call.CallRequest) error
	Hangup(ctx context.Context) error
}

// StateSource provides the current published call state
type StateSource interface {
	Snapshot() state.Snapshot
}

// Dependencies holds all dependencies for API handlers
type Dependencies struct {
	Supervisor CallSupervisor
	States     StateSource
	DB         *db.DB
	Config     *config.Config
}

// NewDependencies creates a new Dependencies instance
func NewDependencies(cfg *config.Config, supervisor CallSupervisor, states StateSource, database *db.DB) *Dependencies {
	return &Dependencies{
		Supervisor: supervisor,
		States:     states,
		DB:         database,
		Config:     cfg,
	}
}
