// Package call owns the outbound-call lifecycle: it sequences target
// resolution, media preparation, call placement and teardown, enforces a
// single call at a time, and publishes every state transition.
package call

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tgcalld/internal/audio"
	"tgcalld/internal/config"
	"tgcalld/internal/db"
	"tgcalld/internal/media"
	"tgcalld/internal/models"
	"tgcalld/internal/state"
	"tgcalld/internal/telegram"
	"tgcalld/internal/voip"
)

// CallRequest carries the parameters of one outbound call
type CallRequest struct {
	Message     string `json:"message"`
	Target      string `json:"target,omitempty"`
	Topic       string `json:"topic,omitempty"`
	Language    string `json:"language,omitempty"`
	Image       string `json:"image,omitempty"`
	RingTimeout int    `json:"ring_timeout,omitempty"` // seconds
	MaxDuration int    `json:"max_duration,omitempty"` // seconds
}

// Conn is the engine connection: the messaging-client surface and the call
// transport behind one control socket.
type Conn interface {
	telegram.Client
	voip.Transport
	Close() error
}

// Dialer opens a fresh engine connection
type Dialer func(ctx context.Context) (Conn, error)

const (
	connectPollInterval = 200 * time.Millisecond
	callPollInterval    = 500 * time.Millisecond
)

// Supervisor drives one call at a time through its lifecycle. The session
// and the engine connection are owned exclusively by the supervisor.
type Supervisor struct {
	cfg      *config.Config
	pub      *state.Publisher
	pipeline *media.Pipeline
	callLog  *db.CallLogRepository
	dial     Dialer
	logger   *slog.Logger

	// Grace periods, shortened in tests
	stopGrace   time.Duration
	hangupGrace time.Duration

	mu   sync.Mutex
	sess *Session
	conn Conn
}

// NewSupervisor creates a Supervisor. callLog may be nil to disable the
// call log.
func NewSupervisor(cfg *config.Config, pub *state.Publisher, pipeline *media.Pipeline,
	callLog *db.CallLogRepository, dial Dialer, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		cfg:         cfg,
		pub:         pub,
		pipeline:    pipeline,
		callLog:     callLog,
		dial:        dial,
		logger:      logger,
		stopGrace:   500 * time.Millisecond,
		hangupGrace: 10 * time.Second,
	}
}

// PlaceCall validates the request, publishes the starting state and
// schedules the call task. It returns once the call is accepted, not once
// it completes; runtime failures surface through the published state.
func (s *Supervisor) PlaceCall(ctx context.Context, req CallRequest) error {
	if strings.TrimSpace(req.Message) == "" {
		return ErrMissingMessage
	}

	s.mu.Lock()
	if s.sess != nil && !s.sess.Finished() {
		s.mu.Unlock()
		return ErrCallInProgress
	}

	target := req.Target
	if target == "" {
		target = s.cfg.DefaultTarget
	}
	if target == "" {
		s.mu.Unlock()
		return ErrMissingTarget
	}

	language, err := NormalizeLanguage(req.Language, s.cfg.DefaultLanguage)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	ringTimeout := secondsOr(req.RingTimeout, s.cfg.RingTimeout)
	maxDuration := secondsOr(req.MaxDuration, s.cfg.MaxDuration)

	sess := newSession(uuid.NewString(), req, target, language, ringTimeout, maxDuration)
	s.sess = sess
	s.mu.Unlock()

	topic := req.Topic
	if topic == "" {
		topic = req.Message
	}
	s.pub.SetCall(state.StatusStarting, target, topic)
	s.logger.Info("call accepted", "id", sess.ID, "target", target, "language", language,
		"ring_timeout", ringTimeout, "max_duration", maxDuration)

	go s.run(sess)
	return nil
}

// Hangup interrupts the in-flight call, waits for its task up to a bounded
// grace period and resets the session. Safe to call with no active call.
func (s *Supervisor) Hangup(ctx context.Context) error {
	s.logger.Info("hangup requested")
	s.pub.SetStatus(state.StatusEnding)

	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()

	if sess != nil && !sess.Finished() {
		sess.MarkHungUp()
		if h := sess.Handle(); h != nil {
			if err := h.Discard(); err != nil {
				s.pub.SetLastError(err.Error())
			}
			if err := h.Stop(); err != nil {
				s.pub.SetLastError(err.Error())
			}
		}
		sess.Stop()

		select {
		case <-sess.Done():
		case <-time.After(s.hangupGrace):
			s.logger.Warn("call task did not finish within hangup grace period")
		case <-ctx.Done():
		}
	}

	s.mu.Lock()
	s.sess = nil
	s.mu.Unlock()
	s.pub.SetStatus(state.StatusIdle)
	return nil
}

// Shutdown hangs up, stops the engine client after a brief grace delay and
// releases all held handles. Idempotent and safe with no call active.
func (s *Supervisor) Shutdown(ctx context.Context) {
	s.Hangup(ctx)

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn == nil {
		return
	}
	time.Sleep(s.stopGrace)
	if err := conn.Stop(ctx); err != nil {
		s.logger.Error("error stopping engine client", "error", err)
	} else {
		s.logger.Info("engine client stopped")
	}
	if err := conn.Close(); err != nil {
		s.logger.Debug("error closing engine connection", "error", err)
	}
}

// run is the scheduled call task: it executes the call flow and always
// reaches teardown, whatever happens on the way.
func (s *Supervisor) run(sess *Session) {
	defer sess.finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.logCallStart(ctx, sess)

	var (
		mutator *telegram.ProfileMutator
		workDir *media.WorkDir
	)

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("call task panicked: %v", r)
				s.logger.Error("call task panicked", "panic", r, "stack", string(debug.Stack()))
			}
		}()
		return s.runCall(ctx, sess, &mutator, &workDir)
	}()

	if err != nil {
		var engineErr *telegram.EngineError
		switch {
		case IsValidationError(err):
			s.logger.Warn("call validation failed", "error", err)
		case IsConnectError(err):
			s.logger.Warn("call failed", "error", err)
		case errors.As(err, &engineErr):
			s.logger.Warn("telegram engine error", "error", err)
		default:
			s.logger.Error("unexpected error during call", "error", err)
		}
		s.pub.SetFailure(err.Error())
	}

	s.teardown(sess, mutator, workDir, err)
}

// runCall is the call flow proper, steps ordered as the lifecycle requires.
// mutator and workDir are handed back to the caller so teardown can reach
// them no matter where the flow stopped.
func (s *Supervisor) runCall(ctx context.Context, sess *Session,
	mutator **telegram.ProfileMutator, workDir **media.WorkDir) error {

	// The persisted session artifact gates whether calls can be placed
	if _, err := os.Stat(s.cfg.SessionFilePath()); err != nil {
		return ErrNotAuthenticated
	}

	conn, err := s.ensureConn(ctx)
	if err != nil {
		return fmt.Errorf("connecting to engine: %w", err)
	}

	if err := conn.Configure(ctx, voip.ServerConfig{
		InitBitrate: s.cfg.InitBitrate,
		MaxBitrate:  s.cfg.MaxBitrate,
		MinBitrate:  s.cfg.MinBitrate,
		BufferSize:  s.cfg.BufferSize,
		TimeoutMs:   s.cfg.TimeoutMs,
	}); err != nil {
		return fmt.Errorf("configuring transport: %w", err)
	}

	wd, err := s.pipeline.NewWorkDir()
	if err != nil {
		return err
	}
	*workDir = wd

	rawAudio, err := s.pipeline.Prepare(ctx, wd, sess.Message, sess.Language)
	if err != nil {
		return err
	}

	if err := conn.Start(ctx); err != nil {
		return fmt.Errorf("starting client: %w", err)
	}

	s.pub.SetStatus(state.StatusRinging)

	resolver := telegram.NewResolver(conn, s.cfg.ProfileName, s.logger)
	resolved, err := resolver.Resolve(ctx, sess.Target)
	if err != nil {
		return err
	}
	sess.SetResolved(resolved)

	me, err := conn.Me(ctx)
	if err != nil {
		return fmt.Errorf("reading own identity: %w", err)
	}
	if resolved.IsUser() && me.ID == resolved.UserID {
		return ErrSelfCall
	}

	if sess.Topic != "" {
		m := telegram.NewProfileMutator(conn, s.cfg.ProfileName, s.cfg.ProfilePhoto, s.logger)
		m.Apply(ctx, sess.Topic, sess.Image)
		*mutator = m
	}

	sess.MarkStarted(time.Now())
	s.logger.Info("placing call", "target", resolved.String())
	handle, err := conn.StartCall(ctx, resolved)
	if err != nil {
		return fmt.Errorf("placing call: %w", err)
	}
	sess.SetHandle(handle)
	s.attachHandlers(sess, handle)

	if err := s.waitConnected(sess); err != nil {
		return err
	}

	if err := handle.Play(ctx, rawAudio); err != nil {
		return fmt.Errorf("starting playback: %w", err)
	}
	if err := handle.PlayOnHold(ctx, []string{rawAudio}); err != nil {
		return fmt.Errorf("registering hold audio: %w", err)
	}
	if err := handle.SetOutputFile(ctx, wd.OutputRaw()); err != nil {
		return fmt.Errorf("registering output capture: %w", err)
	}

	s.superviseCall(sess)
	return nil
}

func (s *Supervisor) ensureConn(ctx context.Context) (Conn, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		return conn, nil
	}

	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	return conn, nil
}

// attachHandlers maps raw transport notifications onto published states.
// Both callbacks may fire on the transport's goroutine; the publisher and
// session are safe to touch from there.
func (s *Supervisor) attachHandlers(sess *Session, handle voip.CallHandle) {
	handle.OnStateChanged(func(raw string) {
		sess.SetRawState(raw)
		s.logger.Info("transport state", "state", raw)

		switch state.Classify(raw) {
		case state.ClassTerminal:
			s.pub.SetFailure("call ended: " + raw)
			sess.Stop()
		case state.ClassConnected:
			s.pub.SetStatus(state.StatusInCall)
		case state.ClassRinging:
			s.pub.SetStatus(state.StatusRinging)
		}
	})
	handle.OnEnded(func() {
		s.logger.Info("transport reported call ended")
		sess.Stop()
	})
}

// waitConnected waits for a connected-class signal until the ring deadline.
// A terminal signal, the stop signal or the deadline all abort the call.
func (s *Supervisor) waitConnected(sess *Session) error {
	ticker := time.NewTicker(connectPollInterval)
	defer ticker.Stop()

	for {
		raw := sess.RawState()
		switch state.Classify(raw) {
		case state.ClassTerminal:
			return &ConnectError{RawState: raw}
		case state.ClassConnected:
			return nil
		}

		select {
		case <-sess.Stopped():
			return &ConnectError{RawState: sess.RawState()}
		case <-ticker.C:
			if time.Now().After(sess.RingDeadline()) {
				return &ConnectError{RawState: sess.RawState()}
			}
		}
	}
}

// superviseCall polls until the max-duration deadline, a ring deadline
// overrun, or the stop signal. Sub-second granularity keeps hangup
// responsive.
func (s *Supervisor) superviseCall(sess *Session) {
	ticker := time.NewTicker(callPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.Stopped():
			return
		case <-ticker.C:
			now := time.Now()
			if now.After(sess.MaxDeadline()) {
				s.logger.Info("max call duration reached, ending call")
				return
			}
			if s.pub.Status() == state.StatusRinging && now.After(sess.RingDeadline()) {
				s.logger.Info("ring deadline passed while still ringing, ending call")
				return
			}
		}
	}
}

// teardown runs on every exit path. Each step tolerates failure on its own
// so one broken step cannot block the rest.
func (s *Supervisor) teardown(sess *Session, mutator *telegram.ProfileMutator, workDir *media.WorkDir, runErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		if mutator != nil {
			mutator.Restore(ctx)
		}
		// Give the transport's worker threads a moment to settle
		time.Sleep(s.stopGrace)
		if err := conn.Stop(ctx); err != nil {
			s.logger.Warn("error stopping engine client", "error", err)
		}
		if err := conn.Close(); err != nil {
			s.logger.Debug("error closing engine connection", "error", err)
		}
	}

	sess.SetHandle(nil)
	s.archiveRecording(sess, workDir)
	workDir.Remove()
	s.logCallEnd(ctx, sess, runErr)

	if s.pub.Status() != state.StatusError {
		s.pub.SetStatus(state.StatusIdle)
	}
}

// archiveRecording keeps the captured call audio as a WAV file before the
// work dir is removed. Only runs when recording retention is enabled and
// the transport actually captured audio.
func (s *Supervisor) archiveRecording(sess *Session, workDir *media.WorkDir) {
	if !s.cfg.KeepRecordings || workDir == nil {
		return
	}
	info, err := os.Stat(workDir.OutputRaw())
	if err != nil || info.Size() == 0 {
		return
	}

	wavPath := filepath.Join(s.cfg.RecordingsPath(), sess.ID+".wav")
	if err := audio.WrapRawFile(workDir.OutputRaw(), wavPath); err != nil {
		s.logger.Warn("could not archive call recording", "error", err)
		return
	}
	s.logger.Info("call recording archived", "path", wavPath)
}

func (s *Supervisor) logCallStart(ctx context.Context, sess *Session) {
	if s.callLog == nil {
		return
	}
	err := s.callLog.Create(ctx, &models.CallRecord{
		ID:        sess.ID,
		Target:    sess.Target,
		Topic:     sess.Topic,
		Language:  sess.Language,
		StartedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("could not record call start", "error", err)
	}
}

func (s *Supervisor) logCallEnd(ctx context.Context, sess *Session, runErr error) {
	if s.callLog == nil {
		return
	}

	// A requested hangup aborts the call flow, so it wins over whatever
	// error that abort surfaced.
	disposition := models.DispositionCompleted
	errMsg := ""
	switch {
	case sess.HungUp():
		disposition = models.DispositionHungUp
	case runErr != nil:
		disposition = models.DispositionFailed
		errMsg = runErr.Error()
	}

	duration := 0
	if started := sess.StartedAt(); !started.IsZero() {
		duration = int(time.Since(started).Seconds())
	}

	err := s.callLog.Finish(ctx, sess.ID, sess.Resolved().String(), disposition, errMsg, time.Now().UTC(), duration)
	if err != nil {
		s.logger.Warn("could not record call outcome", "error", err)
	}
}

func secondsOr(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}
