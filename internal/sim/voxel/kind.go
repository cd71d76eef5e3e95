package voxel

import (
	"fmt"
	"strings"
)

// Kind is a block type the simulation knows how to place and harvest.
type Kind uint8

const (
	Air Kind = iota
	Sand
	Stone
	Slime
	RedstoneBlock
	Piston
	StickyPiston
)

// NumKinds is the size of the block palette.
const NumKinds = 7

var kindNames = [NumKinds]string{
	Air:           "AIR",
	Sand:          "SAND",
	Stone:         "STONE",
	Slime:         "SLIME",
	RedstoneBlock: "REDSTONE_BLOCK",
	Piston:        "PISTON",
	StickyPiston:  "STICKY_PISTON",
}

// Kinds returns the palette in index order.
func Kinds() []Kind {
	out := make([]Kind, NumKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// Palette returns the wire names in index order.
func Palette() []string {
	out := make([]string, NumKinds)
	copy(out, kindNames[:])
	return out
}

func (k Kind) Valid() bool { return int(k) < NumKinds }

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("KIND(%d)", uint8(k))
	}
	return kindNames[k]
}

func ParseKind(s string) (Kind, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, n := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}
	return Air, fmt.Errorf("unknown block kind %q", s)
}
