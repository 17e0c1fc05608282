package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"

	"humanoidcraft.ai/internal/protocol"
)

func main() {
	var (
		url    = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		entity = flag.String("entity", "", "entity id to attach to")
		name   = flag.String("name", "bot", "client name")
		locale = flag.String("locale", "", "examine locale (BCP 47)")
		all    = flag.Bool("all", false, "print hidden layers too")
		paint  = flag.String("paint", "", "hex color to set as eye color once attached (optional)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	if strings.TrimSpace(*entity) == "" {
		logger.Fatalf("missing -entity")
	}
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		EntityID:        *entity,
		ClientName:      *name,
		Locale:          *locale,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME session=%s entity=%s tick=%d tick_rate=%d", w.SessionID, w.EntityID, w.Tick, w.TickRateHz)
			if w.Examine != "" {
				logger.Printf("examine: %s", w.Examine)
			}
			if *paint != "" {
				_ = conn.WriteJSON(protocol.ModifyMsg{
					Type:            protocol.TypeModify,
					ProtocolVersion: protocol.Version,
					ReqID:           "bot-paint",
					EntityID:        w.EntityID,
					Ops:             []protocol.ModifyOp{{Op: protocol.OpSetEyeColor, Color: *paint}},
				})
			}

		case protocol.TypeLayers:
			var l protocol.LayersMsg
			if err := json.Unmarshal(msg, &l); err != nil {
				continue
			}
			logger.Printf("LAYERS tick=%d entity=%s digest=%.12s layers=%d", l.Tick, l.EntityID, l.Digest, len(l.Layers))
			fmt.Print(formatLayers(l.Layers, *all))

		case protocol.TypeAck:
			var a protocol.AckMsg
			if err := json.Unmarshal(msg, &a); err != nil {
				continue
			}
			logger.Printf("ACK %s accepted=%v applied=%d code=%s", a.AckFor, a.Accepted, a.Applied, a.Code)

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Printf("ERROR %s: %s", e.Code, e.Message)
		}
	}
}

// formatLayers renders one line per layer, bottom first.
func formatLayers(layers []protocol.Layer, all bool) string {
	var b strings.Builder
	for i, l := range layers {
		if !l.Visible && !all {
			continue
		}
		mark := " "
		if !l.Visible {
			mark = "-"
		}
		sprite := "(blank)"
		if l.RSI != "" || l.State != "" {
			sprite = l.RSI + ":" + l.State
		}
		fmt.Fprintf(&b, "  %s %3d %-24s %-40s %s\n", mark, i, l.Key, sprite, l.Color)
	}
	return b.String()
}
