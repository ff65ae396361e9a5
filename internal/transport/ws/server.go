package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voxelflow.ai/internal/protocol"
	"voxelflow.ai/internal/sim/catalogs"
	"voxelflow.ai/internal/sim/liquid"
)

// Server accepts websocket clients that observe the liquid simulation and
// submit block mutations. Every connected client receives the per-tick STATS
// and EVENT frames the scheduler broadcasts.
type Server struct {
	sched *liquid.Scheduler
	cats  *catalogs.Catalogs
	world protocol.WorldParams
	log   *log.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	out chan []byte
}

func NewServer(sched *liquid.Scheduler, cats *catalogs.Catalogs, world protocol.WorldParams, logger *log.Logger) *Server {
	return &Server{
		sched: sched,
		cats:  cats,
		world: world,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		clients: make(map[*client]struct{}),
	}
}

// Broadcast queues a JSON frame for every connected client. Slow clients
// drop frames rather than stalling the sim loop.
func (s *Server) Broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.out <- b:
		default:
		}
	}
}

func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		c := s.handshake(conn)
		if c == nil {
			return
		}

		done := make(chan struct{})

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-done:
					return
				case b, ok := <-c.out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				s.sendError(c, protocol.ErrProtoBadRequest, "malformed message")
				continue
			}
			if base.Type != protocol.TypeAct {
				continue
			}
			var act protocol.ActMsg
			if err := json.Unmarshal(msg, &act); err != nil {
				s.sendError(c, protocol.ErrProtoBadRequest, "malformed ACT")
				continue
			}
			if act.ProtocolVersion != protocol.Version {
				s.sendError(c, protocol.ErrProtoBadRequest, "bad protocol_version")
				continue
			}
			s.handleAct(c, act)
		}

		close(done)
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
	}
}

func (s *Server) handleAct(c *client, act protocol.ActMsg) {
	if len(act.Ops) > 64 {
		s.sendError(c, protocol.ErrRateLimit, "too many ops")
		return
	}
	for _, op := range act.Ops {
		id, ok := s.cats.ID(op.Block)
		if !ok {
			s.sendError(c, protocol.ErrInvalidTarget, "unknown block: "+op.Block)
			continue
		}
		m := liquid.BlockMutation{
			X: op.Pos[0], Y: op.Pos[1], Z: op.Pos[2],
			Type: id, Meta: op.Meta,
		}
		if !s.sched.Submit(m) {
			s.sendError(c, protocol.ErrRateLimit, "mutation inbox full")
			return
		}
	}
}

func (s *Server) sendError(c *client, code, msg string) {
	b, err := json.Marshal(protocol.ErrorMsg{Type: protocol.TypeError, Code: code, Message: msg})
	if err != nil {
		return
	}
	select {
	case c.out <- b:
	default:
	}
}

func (s *Server) handshake(conn *websocket.Conn) *client {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		World:           s.world,
	}
	if err := writeJSON(conn, welcome); err != nil {
		return nil
	}

	c := &client{out: make(chan []byte, 64)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	if s.log != nil {
		s.log.Printf("ws client connected name=%q", hello.ClientName)
	}
	return c
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
