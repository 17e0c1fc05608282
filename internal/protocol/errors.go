package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest  = "E_PROTO_BAD_REQUEST"
	ErrProtoUnsupported = "E_PROTO_UNSUPPORTED"

	// World routing/state.
	ErrWorldBusy     = "E_WORLD_BUSY"
	ErrUnknownEntity = "E_UNKNOWN_ENTITY"
	ErrEntityLimit   = "E_ENTITY_LIMIT"

	// Modify layer.
	ErrBadRequest   = "E_BAD_REQUEST"
	ErrUnknownOp    = "E_UNKNOWN_OP"
	ErrUnknownID    = "E_UNKNOWN_ID"
	ErrInvalidColor = "E_INVALID_COLOR"
	ErrRateLimit    = "E_RATE_LIMIT"
	ErrInternal     = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrProtoUnsupported: {},
	ErrWorldBusy:        {},
	ErrUnknownEntity:    {},
	ErrEntityLimit:      {},
	ErrBadRequest:       {},
	ErrUnknownOp:        {},
	ErrUnknownID:        {},
	ErrInvalidColor:     {},
	ErrRateLimit:        {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
