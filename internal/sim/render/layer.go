package render

import (
	"humanoidcraft.ai/internal/sim/palette"
)

// Layer is one sprite layer handed to a renderer. Blank layers carry no RSI.
type Layer struct {
	Key     string        `json:"key"`
	RSI     string        `json:"rsi,omitempty"`
	State   string        `json:"state,omitempty"`
	Color   palette.Color `json:"color"`
	Visible bool          `json:"visible"`
}

func (l Layer) Blank() bool { return l.RSI == "" && l.State == "" }

// LayerList is an ordered layer stack, bottom first.
type LayerList []Layer

// Keys returns the layer keys in order.
func (ll LayerList) Keys() []string {
	out := make([]string, len(ll))
	for i, l := range ll {
		out[i] = l.Key
	}
	return out
}

// Visible drops hidden and blank layers.
func (ll LayerList) Visible() LayerList {
	out := make(LayerList, 0, len(ll))
	for _, l := range ll {
		if l.Visible && !l.Blank() {
			out = append(out, l)
		}
	}
	return out
}

func (ll LayerList) Find(key string) (Layer, int, bool) {
	for i, l := range ll {
		if l.Key == key {
			return l, i, true
		}
	}
	return Layer{}, -1, false
}

// Sink accepts the compositor's output. Keys are unique within a sink.
type Sink interface {
	// Reserve returns the index of key, appending a blank hidden layer when
	// the key is not present yet.
	Reserve(key string) int
	Get(key string) (Layer, bool)
	// Set overwrites the layer stored under l.Key; unknown keys are ignored.
	Set(l Layer)
	// Insert places l at index, clamped to the stack bounds. An existing layer
	// with the same key is removed first.
	Insert(index int, l Layer)
	Remove(key string)
	Index(key string) (int, bool)
	Layers() LayerList
}
