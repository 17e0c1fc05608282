package world

import (
	"golang.org/x/text/language"

	"humanoidcraft.ai/internal/protocol"
	"humanoidcraft.ai/internal/sim/profile"
)

// SpawnRequest creates an entity from a profile. ID is optional; stored
// profiles pass their own id so it survives restarts.
type SpawnRequest struct {
	ID      string
	Profile profile.Profile
	Resp    chan SpawnResponse
}

type SpawnResponse struct {
	EntityID string
	Code     string
	Message  string
}

// Command carries one MODIFY message for an entity. The ACK is sent to Out
// when it is set.
type Command struct {
	EntityID string
	Modify   protocol.ModifyMsg
	Out      chan []byte
}

// SubscribeRequest attaches a renderer outbox to an entity. The current
// layer stack is returned right away; later stacks go to Out.
type SubscribeRequest struct {
	EntityID  string
	SessionID string
	Locale    language.Tag
	Out       chan []byte
	Resp      chan SubscribeResponse
}

type SubscribeResponse struct {
	Code    string
	Welcome protocol.WelcomeMsg
	Layers  protocol.LayersMsg
}

type UnsubscribeRequest struct {
	EntityID  string
	SessionID string
}

// CompositeEntry is written once per recomposited entity per tick.
type CompositeEntry struct {
	Tick     uint64 `json:"tick"`
	EntityID string `json:"entity_id"`
	Species  string `json:"species"`
	Digest   string `json:"digest"`
	Layers   int    `json:"layers"`
	Visible  int    `json:"visible"`
	Markings int    `json:"markings"`
	Applied  int    `json:"applied_ops"`
}

type CompositeSink interface {
	WriteComposite(CompositeEntry) error
}

// EntitySummary is a read-only view for admin listings.
type EntitySummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Species   string `json:"species"`
	SpawnTick uint64 `json:"spawn_tick"`
	Digest    string `json:"digest,omitempty"`
}

// Metrics describes the last completed tick.
type Metrics struct {
	Tick        uint64  `json:"tick"`
	Entities    int     `json:"entities"`
	Subscribers int     `json:"subscribers"`
	Commands    int     `json:"commands"`
	Recomposed  int     `json:"recomposed"`
	InboxDepth  int     `json:"inbox_depth"`
	StepMS      float64 `json:"step_ms"`
}
