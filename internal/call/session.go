package call

import (
	"sync"
	"time"

	"tgcalld/internal/telegram"
	"tgcalld/internal/voip"
)

// Session is the single in-flight call. At most one instance exists at a
// time; the done channel is the task handle gating acceptance of the next
// call request.
type Session struct {
	ID       string
	Target   string
	Topic    string
	Message  string
	Language string
	Image    string

	RingTimeout time.Duration
	MaxDuration time.Duration

	mu        sync.Mutex
	resolved  telegram.Identity
	handle    voip.CallHandle
	rawState  string
	startedAt time.Time
	hungUp    bool

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newSession(id string, req CallRequest, target, language string, ringTimeout, maxDuration time.Duration) *Session {
	return &Session{
		ID:          id,
		Target:      target,
		Topic:       req.Topic,
		Message:     req.Message,
		Language:    language,
		Image:       req.Image,
		RingTimeout: ringTimeout,
		MaxDuration: maxDuration,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Stop trips the stop signal, unblocking the connect wait and the poll loop.
// Safe to call multiple times and from any goroutine.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Stopped returns the channel closed when the stop signal trips
func (s *Session) Stopped() <-chan struct{} {
	return s.stop
}

// Done returns the channel closed when the call task finishes teardown
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) finish() {
	close(s.done)
}

// Finished reports whether the call task has completed
func (s *Session) Finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// MarkHungUp flags that the stop was operator-requested
func (s *Session) MarkHungUp() {
	s.mu.Lock()
	s.hungUp = true
	s.mu.Unlock()
}

// HungUp reports whether a hangup was requested for this session
func (s *Session) HungUp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hungUp
}

// SetHandle stores the transport call handle
func (s *Session) SetHandle(h voip.CallHandle) {
	s.mu.Lock()
	s.handle = h
	s.mu.Unlock()
}

// Handle returns the transport call handle, or nil before the call is placed
func (s *Session) Handle() voip.CallHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// SetResolved stores the resolved callee identity
func (s *Session) SetResolved(id telegram.Identity) {
	s.mu.Lock()
	s.resolved = id
	s.mu.Unlock()
}

// Resolved returns the resolved callee identity
func (s *Session) Resolved() telegram.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolved
}

// SetRawState records the last raw state string reported by the transport
func (s *Session) SetRawState(raw string) {
	s.mu.Lock()
	s.rawState = raw
	s.mu.Unlock()
}

// RawState returns the last raw state string reported by the transport
func (s *Session) RawState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rawState
}

// MarkStarted records the call start time the deadlines are measured from
func (s *Session) MarkStarted(now time.Time) {
	s.mu.Lock()
	s.startedAt = now
	s.mu.Unlock()
}

// StartedAt returns the call start time
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// RingDeadline is the moment the call must have left the ringing phase
func (s *Session) RingDeadline() time.Time {
	return s.StartedAt().Add(s.RingTimeout)
}

// MaxDeadline is the moment the call is force-ended regardless of state
func (s *Session) MaxDeadline() time.Time {
	return s.StartedAt().Add(s.MaxDuration)
}
