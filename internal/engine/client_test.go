package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"tgcalld/internal/telegram"
	"tgcalld/internal/voip"
)

func TestClientMe(t *testing.T) {
	s := newStubEngine(t)
	s.on("me", okWith(telegram.User{ID: 100, FirstName: "Home", LastName: "Assistant"}))
	c := dialTestClient(t, s)

	me, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.ID != 100 || me.FirstName != "Home" {
		t.Errorf("unexpected user: %+v", me)
	}
}

func TestClientEngineErrorSurfaces(t *testing.T) {
	s := newStubEngine(t)
	s.on("start", failWith("FLOOD_WAIT_30"))
	c := dialTestClient(t, s)

	err := c.Start(context.Background())
	var engineErr *telegram.EngineError
	if !errors.As(err, &engineErr) {
		t.Fatalf("expected EngineError, got %v", err)
	}
	if engineErr.Op != "start" || engineErr.Message != "FLOOD_WAIT_30" {
		t.Errorf("unexpected engine error: %+v", engineErr)
	}
}

func TestClientLookupUserNotFound(t *testing.T) {
	s := newStubEngine(t)
	s.on("resolve_username", okWith(telegram.User{}))
	c := dialTestClient(t, s)

	_, err := c.LookupUser(context.Background(), "@nobody")
	if !errors.Is(err, telegram.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestClientImportContact(t *testing.T) {
	s := newStubEngine(t)
	s.on("import_contact", okWith(map[string]any{
		"users": []telegram.User{{ID: 555}},
	}))
	c := dialTestClient(t, s)

	users, err := c.ImportContact(context.Background(), "+393331112233", "Home Assistant")
	if err != nil {
		t.Fatalf("ImportContact: %v", err)
	}
	if len(users) != 1 || users[0].ID != 555 {
		t.Errorf("unexpected users: %+v", users)
	}
}

func TestClientConfigureSendsServerConfig(t *testing.T) {
	s := newStubEngine(t)
	c := dialTestClient(t, s)

	cfg := voip.ServerConfig{InitBitrate: 80000, MaxBitrate: 100000, MinBitrate: 60000, BufferSize: 5000, TimeoutMs: 5000}
	if err := c.Configure(context.Background(), cfg); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	reqs := s.requests("set_server_config")
	if len(reqs) != 1 {
		t.Fatalf("expected one set_server_config request, got %d", len(reqs))
	}
	params, ok := reqs[0].Params.(map[string]any)
	if !ok {
		t.Fatalf("unexpected params type %T", reqs[0].Params)
	}
	if params["init_bitrate"] != float64(80000) {
		t.Errorf("expected init_bitrate 80000, got %v", params["init_bitrate"])
	}
}

func TestClientStartCallAndEvents(t *testing.T) {
	s := newStubEngine(t)
	s.on("call", okWith(map[string]string{"call_id": "c1"}))
	c := dialTestClient(t, s)

	handle, err := c.StartCall(context.Background(), telegram.UserIdentity(4242))
	if err != nil {
		t.Fatalf("StartCall: %v", err)
	}

	states := make(chan string, 8)
	ended := make(chan struct{}, 1)
	handle.OnStateChanged(func(raw string) { states <- raw })
	handle.OnEnded(func() { ended <- struct{}{} })

	s.emit(event{Event: "call_state", CallID: "c1", State: "Ringing"})
	s.emit(event{Event: "call_state", CallID: "c1", State: "Established"})
	s.emit(event{Event: "call_ended", CallID: "c1"})

	for _, want := range []string{"Ringing", "Established"} {
		select {
		case got := <-states:
			if got != want {
				t.Errorf("expected state %q, got %q", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for state %q", want)
		}
	}
	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for call_ended")
	}
}

func TestClientCallHandleOps(t *testing.T) {
	s := newStubEngine(t)
	s.on("call", okWith(map[string]string{"call_id": "c1"}))
	c := dialTestClient(t, s)

	handle, err := c.StartCall(context.Background(), telegram.UserIdentity(1))
	if err != nil {
		t.Fatalf("StartCall: %v", err)
	}

	ctx := context.Background()
	if err := handle.Play(ctx, "/tmp/in.raw"); err != nil {
		t.Errorf("Play: %v", err)
	}
	if err := handle.PlayOnHold(ctx, []string{"/tmp/in.raw"}); err != nil {
		t.Errorf("PlayOnHold: %v", err)
	}
	if err := handle.SetOutputFile(ctx, "/tmp/out.raw"); err != nil {
		t.Errorf("SetOutputFile: %v", err)
	}
	if err := handle.Discard(); err != nil {
		t.Errorf("Discard: %v", err)
	}
	if err := handle.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}

	for _, op := range []string{"play", "play_on_hold", "set_output_file", "discard", "hangup"} {
		if len(s.requests(op)) != 1 {
			t.Errorf("expected one %s request, got %d", op, len(s.requests(op)))
		}
	}
}

func TestClientCloseUnblocksPending(t *testing.T) {
	s := newStubEngine(t)
	// Swallow the command so the client blocks waiting for a response
	s.on("start", func(req request) response {
		time.Sleep(10 * time.Second)
		return response{Token: req.Token, OK: true}
	})
	c := dialTestClient(t, s)

	done := make(chan error, 1)
	go func() { done <- c.Start(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	c.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Error("expected error after close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not unblock after Close")
	}
}

func TestClientContextCancellation(t *testing.T) {
	s := newStubEngine(t)
	s.on("start", func(req request) response {
		time.Sleep(10 * time.Second)
		return response{Token: req.Token, OK: true}
	})
	c := dialTestClient(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := c.Start(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}
