// Package engine implements the control-socket client for the external
// MTProto/VoIP helper process. The daemon drives the engine over TCP with
// netstring-framed JSON: commands carry a token and receive a matched
// response; call events arrive asynchronously on the same connection.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"tgcalld/internal/telegram"
	"tgcalld/internal/voip"
)

const defaultCommandTimeout = 5 * time.Second

type request struct {
	Op     string `json:"op"`
	Token  string `json:"token"`
	Params any    `json:"params,omitempty"`
}

type response struct {
	Token string          `json:"token"`
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type event struct {
	Event  string `json:"event"`
	CallID string `json:"call_id,omitempty"`
	State  string `json:"state,omitempty"`
}

// Client is a connection to the engine control socket. It implements both
// the messaging-client surface (telegram.Client) and the call transport
// (voip.Transport).
type Client struct {
	addr       string
	logger     *slog.Logger
	cmdTimeout time.Duration

	conn    net.Conn
	fw      *frameWriter
	fr      *frameReader
	writeMu sync.Mutex

	tokens    atomic.Uint64
	pendingMu sync.Mutex
	pending   map[string]chan response

	callsMu sync.Mutex
	calls   map[string]*Call

	closed   atomic.Bool
	closedCh chan struct{}
}

// NewClient creates a client for the engine at addr. Call Connect before use.
func NewClient(addr string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		addr:       addr,
		logger:     logger,
		cmdTimeout: defaultCommandTimeout,
		pending:    make(map[string]chan response),
		calls:      make(map[string]*Call),
		closedCh:   make(chan struct{}),
	}
}

// Connect dials the engine and starts the read loop
func (c *Client) Connect(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("connecting to engine at %s: %w", c.addr, err)
	}
	c.conn = conn
	c.fw = newFrameWriter(conn)
	c.fr = newFrameReader(conn)

	go c.readLoop()

	c.logger.Info("connected to engine", "addr", c.addr)
	return nil
}

// Close tears the control connection down and unblocks all pending commands
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.closedCh)
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) readLoop() {
	for {
		payload, err := c.fr.ReadFrame()
		if err != nil {
			if !c.closed.Load() {
				c.logger.Error("engine connection lost", "error", err)
				c.Close()
			}
			return
		}

		var probe struct {
			Event string `json:"event"`
			Token string `json:"token"`
		}
		if err := json.Unmarshal(payload, &probe); err != nil {
			c.logger.Warn("discarding malformed engine frame", "error", err)
			continue
		}

		switch {
		case probe.Event != "":
			var ev event
			if err := json.Unmarshal(payload, &ev); err != nil {
				c.logger.Warn("discarding malformed engine event", "error", err)
				continue
			}
			c.dispatchEvent(ev)
		case probe.Token != "":
			var resp response
			if err := json.Unmarshal(payload, &resp); err != nil {
				c.logger.Warn("discarding malformed engine response", "error", err)
				continue
			}
			c.pendingMu.Lock()
			ch, ok := c.pending[resp.Token]
			if ok {
				delete(c.pending, resp.Token)
			}
			c.pendingMu.Unlock()
			if ok {
				ch <- resp
			}
		default:
			c.logger.Warn("discarding engine frame with no event or token")
		}
	}
}

func (c *Client) dispatchEvent(ev event) {
	c.callsMu.Lock()
	call := c.calls[ev.CallID]
	c.callsMu.Unlock()
	if call == nil {
		c.logger.Debug("engine event for unknown call", "event", ev.Event, "call_id", ev.CallID)
		return
	}

	switch ev.Event {
	case "call_state":
		call.notifyState(ev.State)
	case "call_ended":
		call.notifyEnded()
	default:
		c.logger.Debug("ignoring engine event", "event", ev.Event)
	}
}

// invoke sends a command and waits for its matched response
func (c *Client) invoke(ctx context.Context, op string, params any) (json.RawMessage, error) {
	token := fmt.Sprintf("t%d", c.tokens.Add(1))
	payload, err := json.Marshal(request{Op: op, Token: token, Params: params})
	if err != nil {
		return nil, fmt.Errorf("encoding %s command: %w", op, err)
	}

	respCh := make(chan response, 1)
	c.pendingMu.Lock()
	c.pending[token] = respCh
	c.pendingMu.Unlock()

	c.writeMu.Lock()
	err = c.fw.WriteFrame(payload)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(token)
		return nil, fmt.Errorf("sending %s command: %w", op, err)
	}

	select {
	case resp := <-respCh:
		if !resp.OK {
			return nil, &telegram.EngineError{Op: op, Message: resp.Error}
		}
		return resp.Data, nil
	case <-ctx.Done():
		c.forget(token)
		return nil, ctx.Err()
	case <-c.closedCh:
		c.forget(token)
		return nil, fmt.Errorf("%s: engine connection closed", op)
	case <-time.After(c.cmdTimeout):
		c.forget(token)
		return nil, fmt.Errorf("%s: engine command timed out", op)
	}
}

func (c *Client) forget(token string) {
	c.pendingMu.Lock()
	delete(c.pending, token)
	c.pendingMu.Unlock()
}

// --- telegram.Client ---

// Start logs the engine into the messaging platform using the persisted session
func (c *Client) Start(ctx context.Context) error {
	_, err := c.invoke(ctx, "start", nil)
	return err
}

// Stop logs the engine out of the messaging platform
func (c *Client) Stop(ctx context.Context) error {
	_, err := c.invoke(ctx, "stop", nil)
	return err
}

// Me returns the authenticated account
func (c *Client) Me(ctx context.Context) (*telegram.User, error) {
	data, err := c.invoke(ctx, "me", nil)
	if err != nil {
		return nil, err
	}
	var user telegram.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("decoding me response: %w", err)
	}
	return &user, nil
}

// LookupUser resolves a @username
func (c *Client) LookupUser(ctx context.Context, username string) (*telegram.User, error) {
	data, err := c.invoke(ctx, "resolve_username", map[string]string{"username": username})
	if err != nil {
		return nil, err
	}
	var user telegram.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("decoding resolve_username response: %w", err)
	}
	if user.ID == 0 {
		return nil, telegram.ErrUserNotFound
	}
	return &user, nil
}

// ImportContact imports a phone contact and returns the matched users
func (c *Client) ImportContact(ctx context.Context, phone, firstName string) ([]telegram.User, error) {
	data, err := c.invoke(ctx, "import_contact", map[string]string{
		"phone":      phone,
		"first_name": firstName,
	})
	if err != nil {
		return nil, err
	}
	var result struct {
		Users []telegram.User `json:"users"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding import_contact response: %w", err)
	}
	return result.Users, nil
}

// UpdateProfile overwrites the account display name
func (c *Client) UpdateProfile(ctx context.Context, firstName, lastName string) error {
	_, err := c.invoke(ctx, "update_profile", map[string]string{
		"first_name": firstName,
		"last_name":  lastName,
	})
	return err
}

// SetProfilePhoto replaces the account display photo
func (c *Client) SetProfilePhoto(ctx context.Context, path string) error {
	_, err := c.invoke(ctx, "set_profile_photo", map[string]string{"path": path})
	return err
}

// --- voip.Transport ---

// Configure applies bitrate/jitter-buffer parameters on the engine
func (c *Client) Configure(ctx context.Context, cfg voip.ServerConfig) error {
	_, err := c.invoke(ctx, "set_server_config", cfg)
	return err
}

// StartCall places an outbound call to the resolved identity
func (c *Client) StartCall(ctx context.Context, target telegram.Identity) (voip.CallHandle, error) {
	params := map[string]any{}
	if target.IsUser() {
		params["user_id"] = target.UserID
	} else {
		params["username"] = target.Username
	}

	data, err := c.invoke(ctx, "call", params)
	if err != nil {
		return nil, err
	}
	var result struct {
		CallID string `json:"call_id"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding call response: %w", err)
	}
	if result.CallID == "" {
		return nil, fmt.Errorf("engine returned no call id")
	}

	call := &Call{client: c, id: result.CallID}
	c.callsMu.Lock()
	c.calls[result.CallID] = call
	c.callsMu.Unlock()
	return call, nil
}

func (c *Client) release(callID string) {
	c.callsMu.Lock()
	delete(c.calls, callID)
	c.callsMu.Unlock()
}
