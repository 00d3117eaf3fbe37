package state

import (
	"log/slog"
	"sync"
	"time"
)

// Observer receives a copy of every published snapshot. Delivery happens on
// the publisher's dispatch goroutine, never on the goroutine that produced
// the update, so observers do not need their own locking against the
// transport's worker threads.
type Observer interface {
	StateUpdated(Snapshot)
}

// Publisher owns the authoritative snapshot and republishes every update to
// registered observers. All methods are safe to call from any goroutine.
type Publisher struct {
	mu        sync.Mutex
	snap      Snapshot
	observers []Observer

	updates chan delivery
	done    chan struct{}
	closed  sync.Once
	logger  *slog.Logger
}

// delivery is one queued snapshot. A nil target fans out to all observers;
// a set target delivers only to that observer (the initial snapshot a new
// subscriber receives).
type delivery struct {
	snap Snapshot
	to   Observer
}

// NewPublisher creates a Publisher in the idle state and starts its
// dispatch goroutine.
func NewPublisher(logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		snap:    Snapshot{Status: StatusIdle, UpdatedAt: time.Now().UTC()},
		updates: make(chan delivery, 256),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go p.dispatch()
	return p
}

// Subscribe registers an observer. The observer receives the current
// snapshot as its first delivery, on the dispatch goroutine like every
// other update. Registration and the queued snapshot happen under one
// lock hold, so the initial snapshot always precedes later publishes.
func (p *Publisher) Subscribe(o Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, o)
	select {
	case p.updates <- delivery{snap: p.snap, to: o}:
	default:
		p.logger.Warn("state update queue full, dropping initial snapshot")
	}
}

// Close stops the dispatch goroutine. Pending updates are dropped.
func (p *Publisher) Close() {
	p.closed.Do(func() { close(p.done) })
}

func (p *Publisher) dispatch() {
	for {
		select {
		case <-p.done:
			return
		case d := <-p.updates:
			if d.to != nil {
				d.to.StateUpdated(d.snap)
				continue
			}
			p.mu.Lock()
			observers := make([]Observer, len(p.observers))
			copy(observers, p.observers)
			p.mu.Unlock()
			for _, o := range observers {
				o.StateUpdated(d.snap)
			}
		}
	}
}

// publish applies a mutation to the snapshot and queues the result for
// delivery. UpdatedAt strictly increases across publishes.
func (p *Publisher) publish(mut func(*Snapshot)) {
	p.mu.Lock()
	mut(&p.snap)
	now := time.Now().UTC()
	if !now.After(p.snap.UpdatedAt) {
		now = p.snap.UpdatedAt.Add(time.Nanosecond)
	}
	p.snap.UpdatedAt = now
	snap := p.snap
	select {
	case p.updates <- delivery{snap: snap}:
	default:
		p.logger.Warn("state update queue full, dropping update", "status", snap.Status)
	}
	p.mu.Unlock()
}

// SetStatus publishes a bare status transition
func (p *Publisher) SetStatus(st Status) {
	p.publish(func(s *Snapshot) { s.Status = st })
}

// SetCall publishes a status transition with fresh peer/topic metadata,
// clearing any error left over from a previous call.
func (p *Publisher) SetCall(st Status, peer, topic string) {
	p.publish(func(s *Snapshot) {
		s.Status = st
		s.Peer = peer
		s.Topic = topic
		s.LastError = ""
	})
}

// SetFailure publishes the error state with the failure message
func (p *Publisher) SetFailure(msg string) {
	p.publish(func(s *Snapshot) {
		s.Status = StatusError
		s.LastError = msg
	})
}

// SetLastError records an error message without changing the status
func (p *Publisher) SetLastError(msg string) {
	p.publish(func(s *Snapshot) { s.LastError = msg })
}

// Snapshot returns a copy of the current state
func (p *Publisher) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Status returns the current published status
func (p *Publisher) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap.Status
}

// Peer returns the current call peer
func (p *Publisher) Peer() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap.Peer
}

// Topic returns the current call topic
func (p *Publisher) Topic() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap.Topic
}

// LastError returns the most recent failure message
func (p *Publisher) LastError() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap.LastError
}
