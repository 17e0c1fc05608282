package protocol

// HELLO (client -> server): attach a renderer to one entity.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	EntityID        string `json:"entity_id"`
	ClientName      string `json:"client_name,omitempty"`
	// Locale is a BCP 47 tag for examine text; empty means English.
	Locale string `json:"locale,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	EntityID        string         `json:"entity_id"`
	Tick            uint64         `json:"tick"`
	TickRateHz      int            `json:"tick_rate_hz"`
	Catalogs        CatalogDigests `json:"catalogs"`
	Examine         string         `json:"examine,omitempty"`
}

type CatalogDigests struct {
	Species      string `json:"species"`
	SpriteSets   string `json:"sprite_sets"`
	SpriteLayers string `json:"sprite_layers"`
	Markings     string `json:"markings"`
}

// LAYERS (server -> client): the full, ordered layer stack of one entity,
// bottom first. Sent on attach and after every recomposite.
type LayersMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	Tick            uint64  `json:"tick"`
	EntityID        string  `json:"entity_id"`
	Digest          string  `json:"digest"`
	Layers          []Layer `json:"layers"`
}

type Layer struct {
	Key     string `json:"key"`
	RSI     string `json:"rsi,omitempty"`
	State   string `json:"state,omitempty"`
	Color   string `json:"color"`
	Visible bool   `json:"visible"`
}

// MODIFY (client -> server): a batch of appearance edits applied in order
// at the next tick.
type ModifyMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	ReqID           string     `json:"req_id,omitempty"`
	EntityID        string     `json:"entity_id,omitempty"`
	Ops             []ModifyOp `json:"ops"`
}

// Modify operations.
const (
	OpSetSpecies         = "SET_SPECIES"
	OpSetSex             = "SET_SEX"
	OpSetGender          = "SET_GENDER"
	OpSetAge             = "SET_AGE"
	OpSetSkinColor       = "SET_SKIN_COLOR"
	OpSetEyeColor        = "SET_EYE_COLOR"
	OpSetBaseLayer       = "SET_BASE_LAYER"
	OpClearBaseLayer     = "CLEAR_BASE_LAYER"
	OpAddMarking         = "ADD_MARKING"
	OpRemoveMarking      = "REMOVE_MARKING"
	OpRemoveMarkingAt    = "REMOVE_MARKING_AT"
	OpSetMarkingID       = "SET_MARKING_ID"
	OpSetMarkingColor    = "SET_MARKING_COLOR"
	OpSetLayerVisibility = "SET_LAYER_VISIBILITY"
	OpSever              = "SEVER"
)

// ModifyOp is one edit. Which fields apply depends on Op.
type ModifyOp struct {
	Op        string   `json:"op"`
	Species   string   `json:"species,omitempty"`
	Sex       string   `json:"sex,omitempty"`
	Gender    string   `json:"gender,omitempty"`
	Age       int      `json:"age,omitempty"`
	Layer     string   `json:"layer,omitempty"`
	Category  string   `json:"category,omitempty"`
	Index     int      `json:"index,omitempty"`
	ID        string   `json:"id,omitempty"`
	Color     string   `json:"color,omitempty"`
	Colors    []string `json:"colors,omitempty"`
	Visible   bool     `json:"visible,omitempty"`
	Permanent bool     `json:"permanent,omitempty"`
	Forced    bool     `json:"forced,omitempty"`
	// Verify clamps SET_SKIN_COLOR onto the species' coloration.
	Verify bool `json:"verify,omitempty"`
}

// ACK (server -> client)
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	Applied         int    `json:"applied"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	ServerTick      uint64 `json:"server_tick,omitempty"`
}

// ERROR (server -> client): a rejection not tied to a MODIFY request.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}

func NewError(code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: msg}
}
