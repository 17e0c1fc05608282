package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"humanoidcraft.ai/internal/observerproto"
	"humanoidcraft.ai/internal/sim/catalogs"
	"humanoidcraft.ai/internal/sim/world"
)

// World is what the observer reads from the world loop.
type World interface {
	ID() string
	CurrentTick() uint64
	TickRateHz() int
	CatalogDigests() catalogs.Digests
	List(ctx context.Context) ([]world.EntitySummary, error)
	Subscribe() chan<- world.SubscribeRequest
	Unsubscribe() chan<- world.UnsubscribeRequest
}

type Server struct {
	world World
	log   *zap.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(w World, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		list, err := s.world.List(ctx)
		if err != nil {
			http.Error(rw, "world busy", http.StatusServiceUnavailable)
			return
		}

		d := s.world.CatalogDigests()
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			WorldID:         s.world.ID(),
			Tick:            s.world.CurrentTick(),
			TickRateHz:      s.world.TickRateHz(),
			Catalogs: observerproto.CatalogDigests{
				Species:      d.Species,
				SpriteSets:   d.SpriteSets,
				SpriteLayers: d.SpriteLayers,
				Markings:     d.Markings,
			},
			Entities: make([]observerproto.EntityInfo, 0, len(list)),
		}
		for _, e := range list {
			resp.Entities = append(resp.Entities, observerproto.EntityInfo{
				ID:        e.ID,
				Name:      e.Name,
				Species:   e.Species,
				SpawnTick: e.SpawnTick,
				Digest:    e.Digest,
			})
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

// WSHandler streams LAYERS for a set of entities. The set is chosen by
// SUBSCRIBE and may be replaced by sending SUBSCRIBE again.
func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := decodeSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		sid := fmt.Sprintf("O%d", s.nextID.Add(1))
		out := make(chan []byte, 256)
		watched := map[string]bool{}
		defer func() { s.detach(sid, watched) }()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		s.attach(ctx, sid, sub, out, watched)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			sub, ok := decodeSubscribe(msg)
			if !ok {
				continue
			}
			s.detach(sid, watched)
			s.attach(ctx, sid, sub, out, watched)
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func decodeSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != "SUBSCRIBE" || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	if len(sub.EntityIDs) > observerproto.MaxEntities {
		sub.EntityIDs = sub.EntityIDs[:observerproto.MaxEntities]
	}
	return sub, true
}

// attach subscribes to every entity in sub and queues an ATTACHED message
// plus the current LAYERS for each.
func (s *Server) attach(ctx context.Context, sid string, sub observerproto.SubscribeMsg, out chan []byte, watched map[string]bool) {
	tag := language.English
	if t, err := language.Parse(sub.Locale); err == nil && sub.Locale != "" {
		tag = t
	}
	for _, id := range sub.EntityIDs {
		if watched[id] {
			continue
		}
		respCh := make(chan world.SubscribeResponse, 1)
		req := world.SubscribeRequest{EntityID: id, SessionID: sid, Locale: tag, Out: out, Resp: respCh}
		var resp world.SubscribeResponse
		select {
		case s.world.Subscribe() <- req:
			select {
			case resp = <-respCh:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}

		att := observerproto.AttachedMsg{
			Type:            "ATTACHED",
			ProtocolVersion: observerproto.Version,
			EntityID:        id,
			OK:              resp.Code == "",
			Code:            resp.Code,
			Examine:         resp.Welcome.Examine,
		}
		queue(out, att)
		if resp.Code != "" {
			continue
		}
		watched[id] = true
		queue(out, resp.Layers)
	}
	s.log.Debug("observer attached", zap.String("session", sid), zap.Int("entities", len(watched)))
}

func (s *Server) detach(sid string, watched map[string]bool) {
	for id := range watched {
		select {
		case s.world.Unsubscribe() <- world.UnsubscribeRequest{EntityID: id, SessionID: sid}:
		default:
			// World loop is stopping; nothing else to do.
		}
		delete(watched, id)
	}
}

func queue(out chan []byte, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case out <- b:
	default:
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
