// Package entity implements a living block: a position, a fixed facing and a
// reference to the genotype it shares with the rest of its lineage.
package entity

import (
	"fmt"
	"math/rand"

	"blockevo.ai/internal/sim/genotype"
	"blockevo.ai/internal/sim/orient"
	"blockevo.ai/internal/sim/resources"
	"blockevo.ai/internal/sim/voxel"
)

// Painter queues a block placement. Placements are sent in batches elsewhere.
type Painter interface {
	Paint(c voxel.Vec3i, facing orient.Absolute, kind voxel.Kind)
}

// Band is the inclusive range of Y values offspring may occupy.
type Band struct {
	MinY int
	MaxY int
}

func (b Band) Contains(y int) bool { return y >= b.MinY && y <= b.MaxY }

// Env is the context every entity of a run shares.
type Env struct {
	Rand      *rand.Rand
	Resources *resources.Field
	Sink      Painter
	Band      Band
	Table     orient.Table

	// Bounds, when set, also rejects offspring outside its X/Z range.
	Bounds *voxel.Box
	// CopyOnReproduce gives each offspring its own copy of the genotype
	// instead of the parent's pointer.
	CopyOnReproduce bool
}

func (env *Env) compose(rel orient.Relative, ref orient.Absolute) orient.Absolute {
	if env.Table.Name() == "" {
		return orient.Compose(rel, ref)
	}
	return env.Table.Compose(rel, ref)
}

func (env *Env) permits(c voxel.Vec3i) bool {
	if !env.Band.Contains(c.Y) {
		return false
	}
	if b := env.Bounds; b != nil {
		if c.X < b.Min.X || c.X > b.Max.X || c.Z < b.Min.Z || c.Z > b.Max.Z {
			return false
		}
	}
	return true
}

type Entity struct {
	coord  voxel.Vec3i
	kind   voxel.Kind
	facing orient.Absolute
	geno   *genotype.Genotype
	env    *Env

	// view[d] is the template slot consulted when building toward d. It
	// depends only on facing, so it is fixed at birth; the slot contents are
	// read through geno and follow its mutations.
	view [orient.NumDirections]orient.Relative
}

// New creates an entity and queues its block with env.Sink.
func New(c voxel.Vec3i, kind voxel.Kind, facing orient.Absolute, g *genotype.Genotype, env *Env) *Entity {
	if !facing.Valid() {
		panic(fmt.Sprintf("entity: invalid facing %d", uint8(facing)))
	}
	e := &Entity{
		coord:  c,
		kind:   kind,
		facing: facing,
		geno:   g,
		env:    env,
		view:   viewMap[facing],
	}
	if env.Sink != nil {
		env.Sink.Paint(c, facing, kind)
	}
	return e
}

func (e *Entity) Coord() voxel.Vec3i           { return e.coord }
func (e *Entity) Kind() voxel.Kind             { return e.kind }
func (e *Entity) Facing() orient.Absolute      { return e.facing }
func (e *Entity) Genotype() *genotype.Genotype { return e.geno }

// View returns the genotype as seen in world space: the slot an offspring
// toward each absolute direction would be built from.
func (e *Entity) View() [orient.NumDirections]genotype.Slot {
	var out [orient.NumDirections]genotype.Slot
	for _, d := range orient.Absolutes {
		out[d] = e.geno.Slot(e.view[d])
	}
	return out
}

// Outcome describes a reproduction attempt.
type Outcome struct {
	Direction orient.Absolute
	Target    voxel.Vec3i
	Slot      genotype.Slot
	Child     *Entity
}

// Reproduce tries to build one neighbor. It returns nil when the parent's cell
// has run out of the chosen kind; that is a normal outcome.
func (e *Entity) Reproduce() *Entity {
	return e.TryReproduce().Child
}

// TryReproduce is Reproduce with the attempt details.
func (e *Entity) TryReproduce() Outcome {
	env := e.env
	if !e.canReachAny() {
		return Outcome{Target: e.coord}
	}
	var (
		d      orient.Absolute
		target voxel.Vec3i
	)
	for {
		d = orient.Absolutes[env.Rand.Intn(orient.NumDirections)]
		target = d.Step(e.coord)
		if env.permits(target) {
			break
		}
	}

	slot := e.geno.Slot(e.view[d])
	out := Outcome{Direction: d, Target: target, Slot: slot}
	facing := env.compose(slot.Orientation, e.facing)

	// Material is harvested where the parent stands.
	if !env.Resources.Request(e.coord, slot.Kind) {
		return out
	}
	g := e.geno
	if env.CopyOnReproduce {
		g = g.Clone()
	}
	out.Child = New(target, slot.Kind, facing, g, env)
	return out
}

func (e *Entity) canReachAny() bool {
	for _, d := range orient.Absolutes {
		if e.env.permits(d.Step(e.coord)) {
			return true
		}
	}
	return false
}

// Mutate changes the shared genotype; every entity holding it sees the change.
func (e *Entity) Mutate() orient.Relative { return e.geno.Mutate(e.env.Rand) }

// Recombine swaps one axis of the shared genotype.
func (e *Entity) Recombine() genotype.Axis { return e.geno.Recombine(e.env.Rand) }

func (e *Entity) String() string {
	return fmt.Sprintf("%s %s facing %s %s", e.coord, e.kind, e.facing, e.geno)
}
