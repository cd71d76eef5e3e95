package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"
	ErrProtoHandshake  = "E_PROTO_HANDSHAKE"

	// World layer.
	ErrBadRequest  = "E_BAD_REQUEST"
	ErrUnknownKind = "E_UNKNOWN_KIND"
	ErrOrientation = "E_BAD_ORIENTATION"
	ErrOutOfBounds = "E_OUT_OF_BOUNDS"
	ErrTooLarge    = "E_TOO_LARGE"
	ErrInternal    = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrProtoHandshake:  {},
	ErrBadRequest:      {},
	ErrUnknownKind:     {},
	ErrOrientation:     {},
	ErrOutOfBounds:     {},
	ErrTooLarge:        {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
