package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello       = "HELLO"
	TypeWelcome     = "WELCOME"
	TypeSpawnBlocks = "SPAWN_BLOCKS"
	TypeFillCube    = "FILL_CUBE"
	TypeReadCube    = "READ_CUBE"
	TypeCube        = "CUBE"
	TypeAck         = "ACK"
	TypeError       = "ERROR"
)

// EncodingRLE is the only cube payload encoding.
const EncodingRLE = "RLE"

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	Seq             uint64 `json:"seq,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
