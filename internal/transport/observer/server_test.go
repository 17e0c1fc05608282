package observer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"humanoidcraft.ai/internal/observerproto"
	"humanoidcraft.ai/internal/protocol"
	"humanoidcraft.ai/internal/sim/catalogs"
	"humanoidcraft.ai/internal/sim/profile"
	"humanoidcraft.ai/internal/sim/world"
)

func startObserver(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	w := world.New(world.Config{ID: "obs", TickRateHz: 50}, cats, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = w.Run(ctx) }()

	resp, err := w.SpawnAndWait(ctx, world.SpawnRequest{Profile: profile.DefaultWithSpecies("Human", cats)})
	if err != nil || resp.Code != "" {
		t.Fatalf("spawn: %+v %v", resp, err)
	}

	s := NewServer(w, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/v1/observer/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/admin/v1/observer/ws", s.WSHandler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, resp.EntityID
}

func TestBootstrap_ListsEntities(t *testing.T) {
	srv, id := startObserver(t)

	res, err := http.Get(srv.URL + "/admin/v1/observer/bootstrap")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()
	var boot observerproto.BootstrapResponse
	if err := json.NewDecoder(res.Body).Decode(&boot); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if boot.WorldID != "obs" || boot.TickRateHz != 50 || len(boot.Catalogs.Markings) != 64 {
		t.Fatalf("bootstrap: %+v", boot)
	}
	if len(boot.Entities) != 1 || boot.Entities[0].ID != id || boot.Entities[0].Species != "Human" {
		t.Fatalf("entities: %+v", boot.Entities)
	}
}

func TestWS_StreamsWatchedEntities(t *testing.T) {
	srv, id := startObserver(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/v1/observer/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(observerproto.SubscribeMsg{
		Type:            "SUBSCRIBE",
		ProtocolVersion: observerproto.Version,
		EntityIDs:       []string{id, "ghost"},
	}); err != nil {
		t.Fatalf("write: %v", err)
	}

	attached := map[string]observerproto.AttachedMsg{}
	var layers protocol.LayersMsg
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for len(attached) < 2 || layers.EntityID == "" {
		_, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		base, _ := protocol.DecodeBase(b)
		switch base.Type {
		case "ATTACHED":
			var m observerproto.AttachedMsg
			_ = json.Unmarshal(b, &m)
			attached[m.EntityID] = m
		case protocol.TypeLayers:
			_ = json.Unmarshal(b, &layers)
		}
	}
	if !attached[id].OK || attached["ghost"].OK || attached["ghost"].Code != protocol.ErrUnknownEntity {
		t.Fatalf("attached: %+v", attached)
	}
	if layers.EntityID != id || len(layers.Layers) == 0 {
		t.Fatalf("layers: %+v", layers)
	}
}
