// Package voip defines the call-transport capability surface: start a call
// to a resolved identity, play a raw audio buffer, observe state changes,
// end the call. The concrete implementation lives in internal/engine.
package voip

import (
	"context"

	"tgcalld/internal/telegram"
)

// ServerConfig tunes the transport's bitrate and jitter buffer. It is
// applied once per engine connection, not per call.
type ServerConfig struct {
	InitBitrate int `json:"init_bitrate"`
	MaxBitrate  int `json:"max_bitrate"`
	MinBitrate  int `json:"min_bitrate"`
	BufferSize  int `json:"buf_size"`
	TimeoutMs   int `json:"timeout_ms"`
}

// Transport places outbound calls
type Transport interface {
	// Configure applies bitrate/jitter-buffer parameters
	Configure(ctx context.Context, cfg ServerConfig) error
	// StartCall places a call to the resolved identity
	StartCall(ctx context.Context, target telegram.Identity) (CallHandle, error)
}

// CallHandle controls a single in-flight call. State-change and ended
// callbacks may fire on the transport's own goroutine; handlers must not
// assume the supervisor's execution context.
type CallHandle interface {
	// Play streams a raw mono 16-bit 48kHz PCM file to the peer
	Play(ctx context.Context, path string) error
	// PlayOnHold loops the given raw audio files after Play finishes
	PlayOnHold(ctx context.Context, paths []string) error
	// SetOutputFile captures incoming call audio to path
	SetOutputFile(ctx context.Context, path string) error
	// Discard rejects/abandons the call
	Discard() error
	// Stop tears the media session down
	Stop() error
	// OnStateChanged registers a handler for raw vendor state strings
	OnStateChanged(fn func(rawState string))
	// OnEnded registers a handler invoked when the call ends
	OnEnded(fn func())
}
