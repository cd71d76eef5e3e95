package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	RunID           string `json:"run_id,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	SessionID       string   `json:"session_id"`
	Bounds          *BoxRef  `json:"bounds,omitempty"`
	Palette         []string `json:"palette"`
	Orientations    []string `json:"orientations"`
}

type BoxRef struct {
	Min [3]int `json:"min"`
	Max [3]int `json:"max"`
}

// Placement is one painted cell. Kind and orientation travel as names.
type Placement struct {
	Pos         [3]int `json:"pos"`
	Kind        string `json:"kind"`
	Orientation string `json:"orientation"`
}

// SPAWN_BLOCKS (client -> server)
type SpawnBlocksMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Seq             uint64      `json:"seq"`
	Blocks          []Placement `json:"blocks"`
}

// FILL_CUBE (client -> server). Corners may come in any order.
type FillCubeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq"`
	Min             [3]int `json:"min"`
	Max             [3]int `json:"max"`
	Kind            string `json:"kind"`
}

// READ_CUBE (client -> server)
type ReadCubeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq"`
	Min             [3]int `json:"min"`
	Max             [3]int `json:"max"`
}

// CUBE (server -> client). Data holds kind ids in box order, X outermost and
// Z innermost, indexing Palette.
type CubeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Seq             uint64   `json:"seq"`
	Min             [3]int   `json:"min"`
	Max             [3]int   `json:"max"`
	Palette         []string `json:"palette"`
	Encoding        string   `json:"encoding"`
	Data            string   `json:"data"`
}

// ACK (server -> client)
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq"`
	Applied         int    `json:"applied"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Seq             uint64 `json:"seq,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
