package main

import (
	"strings"
	"testing"

	"humanoidcraft.ai/internal/protocol"
)

func TestFormatLayers(t *testing.T) {
	layers := []protocol.Layer{
		{Key: "Chest", RSI: "Mobs/Species/Human/parts.rsi", State: "torso_m", Color: "#F1C27D", Visible: true},
		{Key: "Eyes", RSI: "Mobs/Species/Human/parts.rsi", State: "eyes", Color: "#2A6FDB", Visible: false},
		{Key: "Head", Color: "#FFFFFF", Visible: true},
	}

	got := formatLayers(layers, false)
	if strings.Contains(got, "Eyes") {
		t.Fatalf("hidden layer printed:\n%s", got)
	}
	if !strings.Contains(got, "(blank)") || !strings.Contains(got, "torso_m") {
		t.Fatalf("unexpected output:\n%s", got)
	}

	got = formatLayers(layers, true)
	if n := strings.Count(got, "\n"); n != 3 {
		t.Fatalf("lines=%d want 3", n)
	}
	if !strings.Contains(got, "  - ") {
		t.Fatalf("hidden marker missing:\n%s", got)
	}
}
