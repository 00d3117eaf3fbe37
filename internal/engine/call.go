package engine

import (
	"context"
	"sync"
	"time"
)

// Call is an engine-side call handle. State-change and ended notifications
// arrive on the client's read-loop goroutine.
type Call struct {
	client *Client
	id     string

	mu       sync.Mutex
	stateFns []func(string)
	endedFns []func()
}

// ID returns the engine's identifier for this call
func (cl *Call) ID() string {
	return cl.id
}

// Play streams a raw mono 16-bit 48kHz PCM file to the peer
func (cl *Call) Play(ctx context.Context, path string) error {
	_, err := cl.client.invoke(ctx, "play", map[string]string{"call_id": cl.id, "path": path})
	return err
}

// PlayOnHold loops the given raw audio files once Play finishes
func (cl *Call) PlayOnHold(ctx context.Context, paths []string) error {
	_, err := cl.client.invoke(ctx, "play_on_hold", map[string]any{"call_id": cl.id, "paths": paths})
	return err
}

// SetOutputFile captures incoming call audio to path
func (cl *Call) SetOutputFile(ctx context.Context, path string) error {
	_, err := cl.client.invoke(ctx, "set_output_file", map[string]string{"call_id": cl.id, "path": path})
	return err
}

// Discard rejects/abandons the call
func (cl *Call) Discard() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := cl.client.invoke(ctx, "discard", map[string]string{"call_id": cl.id})
	return err
}

// Stop tears the media session down and releases the handle
func (cl *Call) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := cl.client.invoke(ctx, "hangup", map[string]string{"call_id": cl.id})
	cl.client.release(cl.id)
	return err
}

// OnStateChanged registers a handler for raw vendor state strings
func (cl *Call) OnStateChanged(fn func(rawState string)) {
	cl.mu.Lock()
	cl.stateFns = append(cl.stateFns, fn)
	cl.mu.Unlock()
}

// OnEnded registers a handler invoked when the call ends
func (cl *Call) OnEnded(fn func()) {
	cl.mu.Lock()
	cl.endedFns = append(cl.endedFns, fn)
	cl.mu.Unlock()
}

func (cl *Call) notifyState(raw string) {
	cl.mu.Lock()
	fns := make([]func(string), len(cl.stateFns))
	copy(fns, cl.stateFns)
	cl.mu.Unlock()
	for _, fn := range fns {
		fn(raw)
	}
}

func (cl *Call) notifyEnded() {
	cl.mu.Lock()
	fns := make([]func(), len(cl.endedFns))
	copy(fns, cl.endedFns)
	cl.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
