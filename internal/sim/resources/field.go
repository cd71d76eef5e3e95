// Package resources tracks the harvestable material left at every cell of the
// world box, one counter per block kind.
package resources

import (
	"sync/atomic"

	"blockevo.ai/internal/sim/voxel"
)

// Field is a dense counter grid over a box. Request is safe for concurrent
// use; Grow and Reset touch every counter and should not race with each other.
type Field struct {
	box      voxel.Box
	counters []atomic.Int64 // cell*NumKinds + kind
}

func New(box voxel.Box, richness int) *Field {
	f := &Field{
		box:      box,
		counters: make([]atomic.Int64, box.Volume()*voxel.NumKinds),
	}
	f.Reset(richness)
	return f
}

func (f *Field) Box() voxel.Box { return f.box }

func (f *Field) slot(c voxel.Vec3i, k voxel.Kind) int {
	i := f.box.Index(c)
	if i < 0 || !k.Valid() {
		return -1
	}
	return i*voxel.NumKinds + int(k)
}

// Request takes one unit of kind k from cell c. It reports false, leaving the
// counter untouched, when the counter is already zero or c is outside the box.
func (f *Field) Request(c voxel.Vec3i, k voxel.Kind) bool {
	i := f.slot(c, k)
	if i < 0 {
		return false
	}
	ctr := &f.counters[i]
	for {
		v := ctr.Load()
		if v <= 0 {
			return false
		}
		if ctr.CompareAndSwap(v, v-1) {
			return true
		}
	}
}

// Get returns the counter for kind k at c (0 outside the box).
func (f *Field) Get(c voxel.Vec3i, k voxel.Kind) int {
	i := f.slot(c, k)
	if i < 0 {
		return 0
	}
	return int(f.counters[i].Load())
}

// Level sums all kinds at c.
func (f *Field) Level(c voxel.Vec3i) int {
	i := f.box.Index(c)
	if i < 0 {
		return 0
	}
	sum := 0
	base := i * voxel.NumKinds
	for k := 0; k < voxel.NumKinds; k++ {
		sum += int(f.counters[base+k].Load())
	}
	return sum
}

// Total sums every counter in the field.
func (f *Field) Total() int64 {
	var sum int64
	for i := range f.counters {
		sum += f.counters[i].Load()
	}
	return sum
}

// Grow adds delta to every counter. Counters never drop below zero.
func (f *Field) Grow(delta int) {
	if delta == 0 {
		return
	}
	for i := range f.counters {
		ctr := &f.counters[i]
		for {
			v := ctr.Load()
			n := v + int64(delta)
			if n < 0 {
				n = 0
			}
			if ctr.CompareAndSwap(v, n) {
				break
			}
		}
	}
}

// Reset sets every counter to richness.
func (f *Field) Reset(richness int) {
	if richness < 0 {
		richness = 0
	}
	for i := range f.counters {
		f.counters[i].Store(int64(richness))
	}
}
