package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	persistlog "anthill.game/internal/persistence/log"
	"anthill.game/internal/protocol"
	"anthill.game/internal/sim/colony"
	"anthill.game/internal/sim/engine"
	"anthill.game/internal/sim/state"
)

type auditCapture struct {
	mu      sync.Mutex
	entries []persistlog.AuditEntry
}

func (a *auditCapture) WriteAudit(e persistlog.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

func (a *auditCapture) snapshot() []persistlog.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]persistlog.AuditEntry(nil), a.entries...)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func hello(t *testing.T, conn *websocket.Conn) protocol.WelcomeMsg {
	t.Helper()
	if err := conn.WriteJSON(protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "test",
		Capabilities:    protocol.HelloCapabilities{MaxQueue: 64},
	}); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var w protocol.WelcomeMsg
	if err := conn.ReadJSON(&w); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if w.Type != protocol.TypeWelcome || w.SessionID == "" {
		t.Fatalf("welcome=%+v", w)
	}
	return w
}

func startColony(t *testing.T) (*colony.Colony, *httptest.Server, *auditCapture) {
	t.Helper()
	c := colony.New(colony.Config{RunID: "run-ws", TickRateHz: 100}, engine.New(3), colony.Starter(3))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	s := NewServer(c, nil)
	audit := &auditCapture{}
	s.SetAuditWriter(audit)
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return c, srv, audit
}

func TestServer_StreamsTicksAndAcceptsActions(t *testing.T) {
	_, srv, audit := startColony(t)
	conn := dial(t, srv)
	w := hello(t, conn)
	if w.Seed != 3 || w.RunID != "run-ws" || w.TickRateHz != 100 {
		t.Fatalf("welcome=%+v", w)
	}

	act := `{"type":"ACTION","protocol_version":"1.0","action":{"id":"ws-1","type":"forage","ticks_remaining":1,"effects":{"resources":{"fungus":3}}}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(act)); err != nil {
		t.Fatalf("write action: %v", err)
	}

	var gotAck, gotTick, sawAction bool
	var lastTick uint64
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && !(gotAck && sawAction) {
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			t.Fatalf("decode base: %v", err)
		}
		switch base.Type {
		case protocol.TypeAck:
			var ack protocol.AckMsg
			if err := json.Unmarshal(msg, &ack); err != nil {
				t.Fatalf("ack: %v", err)
			}
			if !ack.Accepted || ack.ActionID != "ws-1" {
				t.Fatalf("ack=%+v", ack)
			}
			gotAck = true
		case protocol.TypeTick:
			if err := protocol.Validate(protocol.SchemaTick, msg); err != nil {
				t.Fatalf("tick does not match schema: %v", err)
			}
			var tm protocol.TickMsg
			if err := json.Unmarshal(msg, &tm); err != nil {
				t.Fatalf("tick: %v", err)
			}
			if gotTick && tm.Tick <= lastTick {
				t.Fatalf("ticks out of order: %d after %d", tm.Tick, lastTick)
			}
			gotTick, lastTick = true, tm.Tick
			for _, a := range tm.Actions {
				if a.ID == "ws-1" {
					sawAction = true
				}
			}
		default:
			t.Fatalf("unexpected message type %q", base.Type)
		}
	}
	if !gotAck || !sawAction {
		t.Fatalf("ack=%v sawAction=%v", gotAck, sawAction)
	}

	entries := audit.snapshot()
	if len(entries) != 1 || !entries[0].Accepted || entries[0].ActionID != "ws-1" || entries[0].Source != w.SessionID {
		t.Fatalf("audit=%+v", entries)
	}
}

func TestServer_RejectsBadActions(t *testing.T) {
	_, srv, audit := startColony(t)
	conn := dial(t, srv)
	hello(t, conn)

	bad := []struct {
		msg  string
		code string
	}{
		{`{"type":"ACTION","protocol_version":"0.1","action":{"id":"x","type":"dig","ticks_remaining":1}}`, protocol.ErrProtoVersion},
		{`{"type":"ACTION","protocol_version":"1.0","action":{"id":"","type":"dig","ticks_remaining":1}}`, protocol.ErrBadRequest},
		{`{"type":"ACTION","protocol_version":"1.0","action":{"id":"y","type":"dig","ticks_remaining":-2}}`, protocol.ErrBadRequest},
	}
	for _, tc := range bad {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(tc.msg)); err != nil {
			t.Fatalf("write: %v", err)
		}
		ack := readAck(t, conn)
		if ack.Accepted || ack.Code != tc.code {
			t.Fatalf("msg=%s ack=%+v want code %s", tc.msg, ack, tc.code)
		}
	}
	if n := len(audit.snapshot()); n != len(bad) {
		t.Fatalf("audit entries=%d want %d", n, len(bad))
	}
}

func readAck(t *testing.T, conn *websocket.Conn) protocol.AckMsg {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		base, _ := protocol.DecodeBase(msg)
		if base.Type != protocol.TypeAck {
			continue
		}
		var ack protocol.AckMsg
		if err := json.Unmarshal(msg, &ack); err != nil {
			t.Fatalf("ack: %v", err)
		}
		return ack
	}
}

func TestServer_HandshakeRejectsWrongVersion(t *testing.T) {
	_, srv, _ := startColony(t)
	conn := dial(t, srv)
	if err := conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: "0.1"}); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestServer_StateAndHealth(t *testing.T) {
	c, srv, _ := startColony(t)

	resp, err := http.Get(srv.URL + "/v1/state")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if err := protocol.ValidateState(raw); err != nil {
		t.Fatalf("state does not validate: %v", err)
	}
	st, err := state.Decode(raw)
	if err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(st.Entities) == 0 {
		t.Fatalf("served state has no entities")
	}

	hr, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer hr.Body.Close()
	var h struct {
		OK    bool   `json:"ok"`
		Tick  uint64 `json:"tick"`
		RunID string `json:"run_id"`
	}
	if err := json.NewDecoder(hr.Body).Decode(&h); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if !h.OK || h.RunID != c.RunID() {
		t.Fatalf("health=%+v", h)
	}
}

// busyColony never drains its inbox.
type busyColony struct {
	inbox chan state.Action
	mu    sync.Mutex
	outs  map[string]chan colony.TickLogEntry
}

func (b *busyColony) Inbox() chan<- state.Action { return b.inbox }
func (b *busyColony) CurrentTick() uint64        { return 9 }
func (b *busyColony) Seed() uint64               { return 1 }
func (b *busyColony) RunID() string              { return "busy" }
func (b *busyColony) TickRateHz() int            { return 1 }

func (b *busyColony) Subscribe(_ context.Context, id string, out chan colony.TickLogEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outs[id] = out
	return nil
}

func (b *busyColony) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.outs, id)
}

func (b *busyColony) State(context.Context) (*state.GameState, error) {
	return nil, colony.ErrStopped
}

func TestServer_FullInboxAcksBusy(t *testing.T) {
	bc := &busyColony{inbox: make(chan state.Action), outs: map[string]chan colony.TickLogEntry{}}
	srv := httptest.NewServer(NewServer(bc, nil).Routes())
	defer srv.Close()

	conn := dial(t, srv)
	hello(t, conn)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ACTION","protocol_version":"1.0","action":{"id":"z","type":"dig","ticks_remaining":1}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	ack := readAck(t, conn)
	if ack.Accepted || ack.Code != protocol.ErrBusy || ack.ActionID != "z" || ack.Tick != 9 {
		t.Fatalf("ack=%+v", ack)
	}

	resp, err := http.Get(srv.URL + "/v1/state")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func newQuietServer(t *testing.T) *httptest.Server {
	t.Helper()
	bc := &busyColony{inbox: make(chan state.Action), outs: map[string]chan colony.TickLogEntry{}}
	s := NewServer(bc, nil)
	s.pongWait = 200 * time.Millisecond
	s.pingPeriod = 50 * time.Millisecond
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func TestServer_PingsKeepIdleObserverConnected(t *testing.T) {
	srv := newQuietServer(t)
	conn := dial(t, srv)
	hello(t, conn)

	pinged := make(chan struct{})
	var once sync.Once
	conn.SetPingHandler(func(data string) error {
		once.Do(func() { close(pinged) })
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	msgs := make(chan []byte, 4)
	readErr := make(chan error, 1)
	go func() {
		for {
			_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			msgs <- msg
		}
	}()

	// Stay silent for several read windows; only pongs go back.
	time.Sleep(800 * time.Millisecond)
	select {
	case <-pinged:
	default:
		t.Fatalf("no ping from server while idle")
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ACTION","protocol_version":"1.0","action":{"id":"late","type":"dig","ticks_remaining":1}}`)); err != nil {
		t.Fatalf("write after idle: %v", err)
	}
	select {
	case msg := <-msgs:
		var ack protocol.AckMsg
		if err := json.Unmarshal(msg, &ack); err != nil || ack.ActionID != "late" {
			t.Fatalf("ack=%s err=%v", msg, err)
		}
	case err := <-readErr:
		t.Fatalf("idle observer was disconnected: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatalf("no ack after idle period")
	}
}

func TestServer_DropsPeerThatNeverPongs(t *testing.T) {
	srv := newQuietServer(t)
	conn := dial(t, srv)
	hello(t, conn)
	conn.SetPingHandler(func(string) error { return nil })

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected the server to close a silent connection")
	} else if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
		t.Fatalf("client timed out before the server closed: %v", err)
	}
}
