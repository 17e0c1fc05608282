package observerproto

// Version is the observer protocol version (separate from the renderer WS protocol).
const Version = "0.1"

// Client -> Server. First message on the observer WS connection. Re-sending
// it replaces the watched entity set.
type SubscribeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	EntityIDs       []string `json:"entity_ids"`
	// Locale selects the examine text language; empty means English.
	Locale string `json:"locale,omitempty"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string         `json:"protocol_version"`
	WorldID         string         `json:"world_id"`
	Tick            uint64         `json:"tick"`
	TickRateHz      int            `json:"tick_rate_hz"`
	Catalogs        CatalogDigests `json:"catalogs"`
	Entities        []EntityInfo   `json:"entities"`
}

type CatalogDigests struct {
	Species      string `json:"species"`
	SpriteSets   string `json:"sprite_sets"`
	SpriteLayers string `json:"sprite_layers"`
	Markings     string `json:"markings"`
}

type EntityInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Species   string `json:"species"`
	SpawnTick uint64 `json:"spawn_tick"`
	Digest    string `json:"digest,omitempty"`
}

// Server -> Client. Sent once per watched entity after SUBSCRIBE; LAYERS
// messages follow as entities change.
type AttachedMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	EntityID        string `json:"entity_id"`
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
	Examine         string `json:"examine,omitempty"`
}

// MaxEntities caps how many entities one observer may watch.
const MaxEntities = 256
