package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"voxeledit.ai/internal/protocol"
)

// Client is one joined editor connection.
type Client interface {
	// Deliver hands a validated client message to the session.
	Deliver(typ string, raw []byte) error
	Leave()
}

// Host creates editor sessions for new connections. Messages written to out are
// sent to the connection in order.
type Host interface {
	Join(ctx context.Context, hello protocol.HelloMsg, out chan []byte) (Client, protocol.WelcomeMsg, error)
}

type Server struct {
	host Host
	log  *log.Logger

	upgrader websocket.Upgrader
	outQueue int
}

func NewServer(h Host, logger *log.Logger) *Server {
	return &Server{
		host:     h,
		log:      logger,
		outQueue: 64,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
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

		out := make(chan []byte, s.outQueue)
		client := s.handshake(ctx, conn, out)
		if client == nil {
			return
		}
		defer client.Leave()

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				reply(out, protocol.ErrProtoBadRequest, "malformed json")
				continue
			}
			if base.ProtocolVersion != protocol.Version {
				reply(out, protocol.ErrProtoVersion, "bad protocol_version")
				continue
			}
			if base.Type == protocol.TypeHello || !protocol.HasSchema(base.Type) {
				reply(out, protocol.ErrProtoBadRequest, "unexpected message type "+base.Type)
				continue
			}
			if err := protocol.Validate(base.Type, msg); err != nil {
				reply(out, protocol.ErrProtoBadRequest, err.Error())
				continue
			}
			if err := client.Deliver(base.Type, msg); err != nil {
				reply(out, protocol.ErrBadRequest, err.Error())
			}
		}
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn, out chan []byte) Client {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return nil
	}
	if base.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return nil
	}
	if err := protocol.Validate(protocol.TypeHello, msg); err != nil {
		closeWith(conn, "bad HELLO")
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	hello.Player = strings.TrimSpace(hello.Player)
	if hello.Player == "" {
		hello.Player = "editor"
	}

	client, welcome, err := s.host.Join(ctx, hello, out)
	if err != nil {
		if s.log != nil {
			s.log.Printf("join %s: %v", hello.Player, err)
		}
		_ = writeJSON(conn, protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, Code: protocol.ErrInternal, Message: "join failed"})
		closeWith(conn, "join failed")
		return nil
	}
	if err := writeJSON(conn, welcome); err != nil {
		client.Leave()
		return nil
	}
	return client
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

// reply queues an ERROR without blocking the reader.
func reply(out chan []byte, code, msg string) {
	b, err := json.Marshal(protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, Code: code, Message: msg})
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
