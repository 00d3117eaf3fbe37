package engine

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
)

// stubEngine is a minimal in-process engine speaking the control protocol
type stubEngine struct {
	t        *testing.T
	listener net.Listener

	mu       sync.Mutex
	conn     net.Conn
	fw       *frameWriter
	handlers map[string]func(req request) response
	received []request
}

func newStubEngine(t *testing.T) *stubEngine {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := &stubEngine{
		t:        t,
		listener: ln,
		handlers: make(map[string]func(req request) response),
	}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *stubEngine) addr() string {
	return s.listener.Addr().String()
}

// on registers a response for an op; the default is ok with no data
func (s *stubEngine) on(op string, fn func(req request) response) {
	s.mu.Lock()
	s.handlers[op] = fn
	s.mu.Unlock()
}

func okWith(data any) func(req request) response {
	return func(req request) response {
		raw, _ := json.Marshal(data)
		return response{Token: req.Token, OK: true, Data: raw}
	}
}

func failWith(msg string) func(req request) response {
	return func(req request) response {
		return response{Token: req.Token, OK: false, Error: msg}
	}
}

func (s *stubEngine) serve() {
	conn, err := s.listener.Accept()
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.fw = newFrameWriter(conn)
	s.mu.Unlock()

	fr := newFrameReader(conn)
	for {
		payload, err := fr.ReadFrame()
		if err != nil {
			return
		}
		var req request
		if err := json.Unmarshal(payload, &req); err != nil {
			continue
		}

		s.mu.Lock()
		s.received = append(s.received, req)
		fn := s.handlers[req.Op]
		s.mu.Unlock()

		resp := response{Token: req.Token, OK: true}
		if fn != nil {
			resp = fn(req)
		}
		s.send(resp)
	}
}

func (s *stubEngine) send(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.t.Errorf("stub engine marshal: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fw == nil {
		s.t.Error("stub engine has no connection")
		return
	}
	if err := s.fw.WriteFrame(payload); err != nil {
		s.t.Logf("stub engine write: %v", err)
	}
}

// emit pushes an asynchronous event to the connected client
func (s *stubEngine) emit(ev event) {
	s.send(ev)
}

func (s *stubEngine) requests(op string) []request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []request
	for _, r := range s.received {
		if r.Op == op {
			out = append(out, r)
		}
	}
	return out
}

func dialTestClient(t *testing.T, s *stubEngine) *Client {
	t.Helper()
	c := NewClient(s.addr(), nil)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}
