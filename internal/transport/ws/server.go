package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"humanoidcraft.ai/internal/protocol"
	"humanoidcraft.ai/internal/sim/world"
)

// World is the part of the world loop a renderer connection talks to.
type World interface {
	Inbox() chan<- world.Command
	Subscribe() chan<- world.SubscribeRequest
	Unsubscribe() chan<- world.UnsubscribeRequest
}

type Server struct {
	world     World
	log       *zap.Logger
	validator *protocol.Validator

	// OutboxSize bounds the per-session LAYERS queue. Older messages are
	// dropped when it fills.
	OutboxSize int

	upgrader websocket.Upgrader
}

func NewServer(w World, logger *zap.Logger, v *protocol.Validator) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		world:      w,
		log:        logger,
		validator:  v,
		OutboxSize: 16,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

type session struct {
	id       string
	entityID string
	out      chan []byte
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := s.handshake(conn)
		if sess == nil {
			return
		}
		log := s.log.With(zap.String("session", sess.id), zap.String("entity", sess.entityID))
		log.Info("renderer attached")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-sess.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			s.handleMessage(sess, msg)
		}

		s.detach(sess)
		log.Info("renderer detached")
	}
}

func (s *Server) handleMessage(sess *session, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		s.reject(sess, protocol.ErrProtoBadRequest, "malformed json")
		return
	}
	if base.Type != protocol.TypeModify {
		s.reject(sess, protocol.ErrProtoBadRequest, "unexpected message type "+base.Type)
		return
	}
	if base.ProtocolVersion != protocol.Version {
		s.reject(sess, protocol.ErrProtoUnsupported, "bad protocol_version")
		return
	}
	if err := s.validator.Validate(base.Type, msg); err != nil {
		s.reject(sess, protocol.ErrBadRequest, err.Error())
		return
	}
	var mod protocol.ModifyMsg
	if err := json.Unmarshal(msg, &mod); err != nil {
		s.reject(sess, protocol.ErrBadRequest, err.Error())
		return
	}
	if mod.EntityID != "" && mod.EntityID != sess.entityID {
		s.reject(sess, protocol.ErrBadRequest, "entity_id does not match HELLO")
		return
	}
	select {
	case s.world.Inbox() <- world.Command{EntityID: sess.entityID, Modify: mod, Out: sess.out}:
	default:
		s.reject(sess, protocol.ErrWorldBusy, "world inbox full")
	}
}

func (s *Server) reject(sess *session, code, msg string) {
	b, _ := json.Marshal(protocol.NewError(code, msg))
	select {
	case sess.out <- b:
	default:
	}
}

func (s *Server) handshake(conn *websocket.Conn) *session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, protocol.ErrProtoBadRequest, "expected HELLO")
		return nil
	}
	if base.ProtocolVersion != protocol.Version {
		closeWith(conn, protocol.ErrProtoUnsupported, "bad protocol_version")
		return nil
	}
	if err := s.validator.Validate(protocol.TypeHello, msg); err != nil {
		closeWith(conn, protocol.ErrProtoBadRequest, err.Error())
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil || strings.TrimSpace(hello.EntityID) == "" {
		closeWith(conn, protocol.ErrProtoBadRequest, "missing entity_id")
		return nil
	}

	tag := language.English
	if hello.Locale != "" {
		if t, err := language.Parse(hello.Locale); err == nil {
			tag = t
		}
	}

	return s.attach(hello.EntityID, tag,
		func(v any) error { return writeJSON(conn, v) },
		func(code, msg string) { closeWith(conn, code, msg) },
	)
}

// attach subscribes a new session to the entity and sends WELCOME and the
// current LAYERS. A session the world may have registered is detached again
// when the handshake cannot finish.
func (s *Server) attach(entityID string, tag language.Tag, write func(any) error, fail func(code, msg string)) *session {
	sess := &session{
		id:       uuid.NewString(),
		entityID: entityID,
		out:      make(chan []byte, max(s.OutboxSize, 1)),
	}
	respCh := make(chan world.SubscribeResponse, 1)
	req := world.SubscribeRequest{
		EntityID:  entityID,
		SessionID: sess.id,
		Locale:    tag,
		Out:       sess.out,
		Resp:      respCh,
	}

	timeout := time.NewTimer(5 * time.Second)
	defer timeout.Stop()
	select {
	case s.world.Subscribe() <- req:
	case <-timeout.C:
		fail(protocol.ErrWorldBusy, "world busy")
		return nil
	}
	var resp world.SubscribeResponse
	select {
	case resp = <-respCh:
	case <-timeout.C:
		s.detach(sess)
		fail(protocol.ErrWorldBusy, "world busy")
		return nil
	}
	if resp.Code != "" {
		fail(resp.Code, "cannot attach to "+entityID)
		return nil
	}

	if err := write(resp.Welcome); err != nil {
		s.detach(sess)
		return nil
	}
	if err := write(resp.Layers); err != nil {
		s.detach(sess)
		return nil
	}
	return sess
}

func (s *Server) detach(sess *session) {
	t := time.NewTimer(5 * time.Second)
	defer t.Stop()
	select {
	case s.world.Unsubscribe() <- world.UnsubscribeRequest{EntityID: sess.entityID, SessionID: sess.id}:
	case <-t.C:
		s.log.Warn("unsubscribe timed out", zap.String("session", sess.id), zap.String("entity", sess.entityID))
	}
}

// closeWith sends an ERROR message and closes the connection.
func closeWith(conn *websocket.Conn, code, msg string) {
	_ = writeJSON(conn, protocol.NewError(code, msg))
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code),
		time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
