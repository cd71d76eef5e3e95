package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"blockevo.ai/internal/protocol"
)

func TestSchemas_ValidateMessages(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	// Round through JSON so the validator sees what goes on the wire.
	validate := func(s *jsonschema.Schema, msg any) {
		t.Helper()
		raw, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate %s: %v", raw, err)
		}
	}

	palette := []string{"AIR", "SAND", "STONE", "SLIME", "REDSTONE_BLOCK", "PISTON", "STICKY_PISTON"}
	v := protocol.Version

	validate(compile("hello.schema.json"), protocol.HelloMsg{
		Type: protocol.TypeHello, ProtocolVersion: v, ClientName: "evolve", RunID: "r1",
	})
	validate(compile("welcome.schema.json"), protocol.WelcomeMsg{
		Type: protocol.TypeWelcome, ProtocolVersion: v, SessionID: "S1",
		Bounds:       &protocol.BoxRef{Min: [3]int{1, 1, 1}, Max: [3]int{100, 10, 100}},
		Palette:      palette,
		Orientations: []string{"NORTH", "WEST", "SOUTH", "EAST", "UP", "DOWN"},
	})
	validate(compile("spawn_blocks.schema.json"), protocol.SpawnBlocksMsg{
		Type: protocol.TypeSpawnBlocks, ProtocolVersion: v, Seq: 1,
		Blocks: []protocol.Placement{{Pos: [3]int{50, 1, 50}, Kind: "REDSTONE_BLOCK", Orientation: "NORTH"}},
	})
	validate(compile("fill_cube.schema.json"), protocol.FillCubeMsg{
		Type: protocol.TypeFillCube, ProtocolVersion: v, Seq: 2,
		Min: [3]int{100, 10, 100}, Max: [3]int{1, 1, 1}, Kind: "AIR",
	})
	validate(compile("read_cube.schema.json"), protocol.ReadCubeMsg{
		Type: protocol.TypeReadCube, ProtocolVersion: v, Seq: 3,
		Min: [3]int{1, 1, 1}, Max: [3]int{2, 2, 2},
	})
	validate(compile("cube.schema.json"), protocol.CubeMsg{
		Type: protocol.TypeCube, ProtocolVersion: v, Seq: 3,
		Min: [3]int{1, 1, 1}, Max: [3]int{2, 2, 2},
		Palette: palette, Encoding: protocol.EncodingRLE, Data: "AAg=",
	})
	validate(compile("ack.schema.json"), protocol.AckMsg{
		Type: protocol.TypeAck, ProtocolVersion: v, Seq: 1, Applied: 1,
	})
	validate(compile("error.schema.json"), protocol.ErrorMsg{
		Type: protocol.TypeError, ProtocolVersion: v, Code: protocol.ErrUnknownKind, Message: "unknown block kind \"GLASS\"",
	})
}

func TestSchemas_RejectBadPlacement(t *testing.T) {
	s, err := jsonschema.Compile(filepath.Join("..", "..", "schemas", "spawn_blocks.schema.json"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	var v any
	_ = json.Unmarshal([]byte(`{
	  "type":"SPAWN_BLOCKS",
	  "protocol_version":"1.0",
	  "seq":1,
	  "blocks":[{"pos":[1,1],"kind":"GLASS","orientation":"NORTHWEST"}]
	}`), &v)
	if err := s.Validate(v); err == nil {
		t.Fatalf("expected validation failure")
	}
}
