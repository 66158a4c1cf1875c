// Package ws serves the colony observer stream over websockets.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	persistlog "anthill.game/internal/persistence/log"
	"anthill.game/internal/protocol"
	"anthill.game/internal/sim/colony"
	"anthill.game/internal/sim/state"
)

// Colony is the part of the runtime the server drives.
type Colony interface {
	Inbox() chan<- state.Action
	CurrentTick() uint64
	Seed() uint64
	RunID() string
	TickRateHz() int
	Subscribe(ctx context.Context, id string, out chan colony.TickLogEntry) error
	Unsubscribe(id string)
	State(ctx context.Context) (*state.GameState, error)
}

type AuditWriter interface {
	WriteAudit(persistlog.AuditEntry) error
}

const (
	// pongWait bounds how long a connection may stay silent, pongs included.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

type Server struct {
	colony Colony
	log    *log.Logger
	audit  AuditWriter

	upgrader   websocket.Upgrader
	pongWait   time.Duration
	pingPeriod time.Duration
}

func NewServer(c Colony, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		colony:     c,
		log:        logger,
		pongWait:   pongWait,
		pingPeriod: pingPeriod,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

// SetAuditWriter records every submitted ACTION, accepted or not.
func (s *Server) SetAuditWriter(a AuditWriter) { s.audit = a }

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", s.Handler())
	mux.HandleFunc("GET /v1/state", s.StateHandler())
	mux.HandleFunc("GET /healthz", s.HealthHandler())
	return mux
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sessionID, out := s.handshake(ctx, conn)
		if sessionID == "" {
			return
		}
		defer s.colony.Unsubscribe(sessionID)
		lg := s.log.With("session", sessionID)
		lg.Info("observer connected", "remote", r.RemoteAddr)

		acks := make(chan protocol.AckMsg, 16)

		_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(s.pongWait))
		})

		// Writer goroutine. The only writer on conn after the handshake.
		go func() {
			ping := time.NewTicker(s.pingPeriod)
			defer func() {
				ping.Stop()
				conn.Close()
			}()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ping.C:
					if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
						cancel()
						return
					}
				case entry, ok := <-out:
					if !ok {
						_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "colony stopped"), time.Now().Add(time.Second))
						return
					}
					if err := writeJSON(conn, tickMsg(entry)); err != nil {
						cancel()
						return
					}
				case ack := <-acks:
					if err := writeJSON(conn, ack); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			_ = conn.SetReadDeadline(time.Now().Add(s.pongWait))
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			if base.Type != protocol.TypeAction {
				lg.Debug("ignoring message", "type", base.Type)
				continue
			}
			ack := s.submit(sessionID, base, msg)
			select {
			case acks <- ack:
			case <-ctx.Done():
			}
		}
		lg.Info("observer disconnected")
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (sessionID string, out chan colony.TickLogEntry) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, websocket.ClosePolicyViolation, "expected HELLO")
		return "", nil
	}
	if err := protocol.Validate(protocol.SchemaHello, msg); err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, "bad HELLO")
		return "", nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, websocket.ClosePolicyViolation, "bad protocol_version")
		return "", nil
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 {
		maxQ = 8
	}
	if maxQ > 64 {
		maxQ = 64
	}
	out = make(chan colony.TickLogEntry, maxQ)

	sessionID = uuid.NewString()
	if err := s.colony.Subscribe(ctx, sessionID, out); err != nil {
		closeWith(conn, websocket.CloseTryAgainLater, "colony unavailable")
		return "", nil
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		RunID:           s.colony.RunID(),
		Tick:            s.colony.CurrentTick(),
		Seed:            s.colony.Seed(),
		TickRateHz:      s.colony.TickRateHz(),
	}
	if err := writeJSON(conn, welcome); err != nil {
		s.colony.Unsubscribe(sessionID)
		return "", nil
	}
	return sessionID, out
}

// submit validates one ACTION and hands it to the colony without blocking.
func (s *Server) submit(sessionID string, base protocol.BaseMessage, msg []byte) protocol.AckMsg {
	tick := s.colony.CurrentTick()
	if base.ProtocolVersion != protocol.Version {
		return s.reject(sessionID, "", "", tick, protocol.ErrProtoVersion, "bad protocol_version")
	}
	if err := protocol.Validate(protocol.SchemaAction, msg); err != nil {
		return s.reject(sessionID, "", "", tick, protocol.ErrBadRequest, err.Error())
	}
	var am protocol.ActionMsg
	if err := json.Unmarshal(msg, &am); err != nil {
		return s.reject(sessionID, "", "", tick, protocol.ErrBadRequest, err.Error())
	}
	a := am.Action
	select {
	case s.colony.Inbox() <- a:
	default:
		return s.reject(sessionID, a.ID, a.Type, tick, protocol.ErrBusy, "action queue full")
	}
	s.writeAudit(persistlog.AuditEntry{Tick: tick, Source: sessionID, ActionID: a.ID, Type: a.Type, Accepted: true})
	return protocol.NewAck(a.ID, tick)
}

func (s *Server) reject(sessionID, actionID, typ string, tick uint64, code, msg string) protocol.AckMsg {
	s.writeAudit(persistlog.AuditEntry{Tick: tick, Source: sessionID, ActionID: actionID, Type: typ, Reason: code})
	return protocol.NewReject(actionID, tick, code, msg)
}

func (s *Server) writeAudit(e persistlog.AuditEntry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.WriteAudit(e); err != nil {
		s.log.Warn("audit write failed", "err", err)
	}
}

// StateHandler serves the current snapshot JSON.
func (s *Server) StateHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		st, err := s.colony.State(r.Context())
		if err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, colony.ErrStopped) {
				code = http.StatusServiceUnavailable
			}
			http.Error(rw, err.Error(), code)
			return
		}
		b, err := state.Encode(st)
		if err != nil {
			s.log.Error("encode state", "err", err)
			http.Error(rw, "encode failed", http.StatusInternalServerError)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_, _ = rw.Write(b)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(map[string]any{
			"ok":     true,
			"tick":   s.colony.CurrentTick(),
			"run_id": s.colony.RunID(),
		})
	}
}

func tickMsg(e colony.TickLogEntry) protocol.TickMsg {
	return protocol.TickMsg{
		Type:            protocol.TypeTick,
		ProtocolVersion: protocol.Version,
		Tick:            e.Tick,
		Digest:          e.Digest,
		Actions:         e.Actions,
		Events:          e.Events,
	}
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
