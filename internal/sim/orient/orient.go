// Package orient holds the absolute/relative direction enums and the table
// that turns a relative facing into an absolute one.
package orient

import (
	"fmt"
	"strings"

	"blockevo.ai/internal/sim/voxel"
)

// Absolute is a world-space facing.
type Absolute uint8

const (
	North Absolute = iota
	West
	South
	East
	Up
	Down
)

const NumDirections = 6

// Absolutes lists the six world directions in palette order.
var Absolutes = [NumDirections]Absolute{North, West, South, East, Up, Down}

var absoluteNames = [NumDirections]string{"NORTH", "WEST", "SOUTH", "EAST", "UP", "DOWN"}

// X runs west to east, Y down to up, Z north to south.
var absoluteOffsets = [NumDirections]voxel.Vec3i{
	North: {Z: -1},
	West:  {X: -1},
	South: {Z: 1},
	East:  {X: 1},
	Up:    {Y: 1},
	Down:  {Y: -1},
}

func (a Absolute) Valid() bool { return int(a) < NumDirections }

func (a Absolute) String() string {
	if !a.Valid() {
		return fmt.Sprintf("ABSOLUTE(%d)", uint8(a))
	}
	return absoluteNames[a]
}

// Offset is the unit step one cell in direction a.
func (a Absolute) Offset() voxel.Vec3i {
	if !a.Valid() {
		panic(fmt.Sprintf("orient: invalid absolute direction %d", uint8(a)))
	}
	return absoluteOffsets[a]
}

// Step returns the neighbor of c in direction a.
func (a Absolute) Step(c voxel.Vec3i) voxel.Vec3i { return c.Add(a.Offset()) }

func ParseAbsolute(s string) (Absolute, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, n := range absoluteNames {
		if n == s {
			return Absolute(i), nil
		}
	}
	return North, fmt.Errorf("unknown orientation %q", s)
}

// Relative is a facing expressed against an entity's own front.
type Relative uint8

const (
	RelUp Relative = iota
	RelDown
	Front
	Left
	Back
	Right
)

// Relatives lists the six relative directions.
var Relatives = [NumDirections]Relative{RelUp, RelDown, Front, Left, Back, Right}

var relativeNames = [NumDirections]string{"up", "down", "front", "left", "back", "right"}

var relativeOpposite = [NumDirections]Relative{
	RelUp:   RelDown,
	RelDown: RelUp,
	Front:   Back,
	Back:    Front,
	Left:    Right,
	Right:   Left,
}

func (r Relative) Valid() bool { return int(r) < NumDirections }

func (r Relative) String() string {
	if !r.Valid() {
		return fmt.Sprintf("relative(%d)", uint8(r))
	}
	return relativeNames[r]
}

func (r Relative) Opposite() Relative {
	if !r.Valid() {
		panic(fmt.Sprintf("orient: invalid relative direction %d", uint8(r)))
	}
	return relativeOpposite[r]
}

func ParseRelative(s string) (Relative, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range relativeNames {
		if n == s {
			return Relative(i), nil
		}
	}
	return RelUp, fmt.Errorf("unknown relative orientation %q", s)
}
