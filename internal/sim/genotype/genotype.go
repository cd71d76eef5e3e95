// Package genotype implements the Bauplan: the block an entity wants to see on
// each of its six von Neumann neighbors, expressed relative to its own facing.
package genotype

import (
	"fmt"
	"math/rand"
	"strings"

	"blockevo.ai/internal/sim/orient"
	"blockevo.ai/internal/sim/voxel"
)

// Slot is one neighbor of the template: what to build there and how it faces.
type Slot struct {
	Kind        voxel.Kind
	Orientation orient.Relative
}

func (s Slot) String() string { return fmt.Sprintf("%s_%s", s.Kind, s.Orientation) }

// Axis names a pair of opposite template slots.
type Axis uint8

const (
	AxisUpDown Axis = iota
	AxisFrontBack
	AxisLeftRight
)

const numAxes = 3

var axisEnds = [numAxes][2]orient.Relative{
	AxisUpDown:    {orient.RelUp, orient.RelDown},
	AxisFrontBack: {orient.Front, orient.Back},
	AxisLeftRight: {orient.Left, orient.Right},
}

var axisNames = [numAxes]string{"up-down", "front-back", "left-right"}

func (a Axis) String() string {
	if int(a) >= numAxes {
		return fmt.Sprintf("axis(%d)", uint8(a))
	}
	return axisNames[a]
}

// Ends returns the two slots swapped by recombination along a.
func (a Axis) Ends() (orient.Relative, orient.Relative) {
	e := axisEnds[a]
	return e[0], e[1]
}

// Genotype is mutated in place. Entities of one lineage hold the same pointer,
// so a change made through any of them is seen by all.
type Genotype struct {
	slots [orient.NumDirections]Slot
}

// New draws a random template: each slot is AIR half the time, otherwise a
// kind drawn from the full palette, with a uniform relative orientation.
func New(r *rand.Rand) *Genotype {
	g := &Genotype{}
	for _, rel := range orient.Relatives {
		kind := voxel.Air
		if r.Float64() >= 0.5 {
			kind = voxel.Kind(r.Intn(voxel.NumKinds))
		}
		g.slots[rel] = Slot{Kind: kind, Orientation: orient.Relatives[r.Intn(orient.NumDirections)]}
	}
	return g
}

// FromSlots builds a genotype from explicit slots indexed by orient.Relative.
func FromSlots(slots [orient.NumDirections]Slot) *Genotype {
	return &Genotype{slots: slots}
}

func (g *Genotype) Slot(rel orient.Relative) Slot { return g.slots[rel] }

// Slots returns a copy of all six slots indexed by orient.Relative.
func (g *Genotype) Slots() [orient.NumDirections]Slot { return g.slots }

// Clone returns an independent copy.
func (g *Genotype) Clone() *Genotype {
	c := *g
	return &c
}

// Mutate rewrites exactly one randomly chosen slot to a different
// (kind, orientation) pair and reports which slot changed. A pure orientation
// change counts as a mutation.
func (g *Genotype) Mutate(r *rand.Rand) orient.Relative {
	rel := orient.Relatives[r.Intn(orient.NumDirections)]
	cur := g.slots[rel]
	next := cur
	for next == cur {
		next = Slot{
			Kind:        voxel.Kind(r.Intn(voxel.NumKinds)),
			Orientation: orient.Relatives[r.Intn(orient.NumDirections)],
		}
	}
	g.slots[rel] = next
	return rel
}

// Recombine swaps the slots at both ends of a random axis. This is gene
// conversion inside one template, not a cross between two parents.
func (g *Genotype) Recombine(r *rand.Rand) Axis {
	a := Axis(r.Intn(numAxes))
	g.RecombineAxis(a)
	return a
}

// RecombineAxis swaps the two slots of a. Applying it twice is a no-op.
func (g *Genotype) RecombineAxis(a Axis) {
	x, y := a.Ends()
	g.slots[x], g.slots[y] = g.slots[y], g.slots[x]
}

func (g *Genotype) String() string {
	parts := make([]string, 0, orient.NumDirections)
	for _, rel := range orient.Relatives {
		parts = append(parts, fmt.Sprintf("%s=%s", rel, g.slots[rel]))
	}
	return "[" + strings.Join(parts, " ") + "]"
}
