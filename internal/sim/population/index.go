package population

import (
	"fmt"

	"blockevo.ai/internal/sim/entity"
	"blockevo.ai/internal/sim/voxel"
)

// Index finds the prior-generation entity closest to a cell by Manhattan
// distance. Ties go to the entity that comes first in generation order.
// Nearest returns nil only when the index is empty.
type Index interface {
	Nearest(c voxel.Vec3i) *entity.Entity
}

// IndexFactory builds an Index over one generation.
type IndexFactory func(entities []*entity.Entity) Index

const (
	IndexLinear = "linear"
	IndexGrid   = "grid"
)

// NewIndexFactory resolves a configured index kind.
func NewIndexFactory(kind string, bucketSize int) (IndexFactory, error) {
	switch kind {
	case "", IndexLinear:
		return func(es []*entity.Entity) Index { return NewLinearIndex(es) }, nil
	case IndexGrid:
		if bucketSize <= 0 {
			return nil, fmt.Errorf("grid index bucket size must be > 0, got %d", bucketSize)
		}
		return func(es []*entity.Entity) Index { return NewGridIndex(es, bucketSize) }, nil
	default:
		return nil, fmt.Errorf("unknown index kind %q", kind)
	}
}

// LinearIndex scans every entity.
type LinearIndex struct {
	entities []*entity.Entity
}

func NewLinearIndex(entities []*entity.Entity) *LinearIndex {
	return &LinearIndex{entities: entities}
}

func (ix *LinearIndex) Nearest(c voxel.Vec3i) *entity.Entity {
	var (
		best  *entity.Entity
		bestD int
	)
	for _, e := range ix.entities {
		d := voxel.Manhattan(e.Coord(), c)
		if best == nil || d < bestD {
			best, bestD = e, d
		}
	}
	return best
}

// GridIndex buckets entities into cubes of side size and searches outward
// shell by shell.
type GridIndex struct {
	size     int
	entities []*entity.Entity
	buckets  map[voxel.Vec3i][]int // bucket -> ordinals in generation order
	lo, hi   voxel.Vec3i
}

func NewGridIndex(entities []*entity.Entity, size int) *GridIndex {
	ix := &GridIndex{
		size:     size,
		entities: entities,
		buckets:  map[voxel.Vec3i][]int{},
	}
	for i, e := range entities {
		k := ix.key(e.Coord())
		if i == 0 {
			ix.lo, ix.hi = k, k
		} else {
			ix.lo = voxel.Vec3i{X: min(ix.lo.X, k.X), Y: min(ix.lo.Y, k.Y), Z: min(ix.lo.Z, k.Z)}
			ix.hi = voxel.Vec3i{X: max(ix.hi.X, k.X), Y: max(ix.hi.Y, k.Y), Z: max(ix.hi.Z, k.Z)}
		}
		ix.buckets[k] = append(ix.buckets[k], i)
	}
	return ix
}

func (ix *GridIndex) key(c voxel.Vec3i) voxel.Vec3i {
	return voxel.Vec3i{
		X: voxel.FloorDiv(c.X, ix.size),
		Y: voxel.FloorDiv(c.Y, ix.size),
		Z: voxel.FloorDiv(c.Z, ix.size),
	}
}

func (ix *GridIndex) Nearest(c voxel.Vec3i) *entity.Entity {
	if len(ix.entities) == 0 {
		return nil
	}
	center := ix.key(c)
	maxR := max(
		voxel.AbsInt(center.X-ix.lo.X), voxel.AbsInt(ix.hi.X-center.X),
		voxel.AbsInt(center.Y-ix.lo.Y), voxel.AbsInt(ix.hi.Y-center.Y),
		voxel.AbsInt(center.Z-ix.lo.Z), voxel.AbsInt(ix.hi.Z-center.Z),
	)

	best, bestD := -1, 0
	consider := func(k voxel.Vec3i) {
		for _, i := range ix.buckets[k] {
			d := voxel.Manhattan(ix.entities[i].Coord(), c)
			if best < 0 || d < bestD || (d == bestD && i < best) {
				best, bestD = i, d
			}
		}
	}
	for r := 0; r <= maxR; r++ {
		ix.shell(center, r, consider)
		// Anything in an unvisited bucket is at least r*size+1 away.
		if best >= 0 && bestD <= r*ix.size {
			break
		}
	}
	return ix.entities[best]
}

// shell visits every bucket at Chebyshev distance exactly r from center.
func (ix *GridIndex) shell(center voxel.Vec3i, r int, fn func(voxel.Vec3i)) {
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			if voxel.AbsInt(dx) == r || voxel.AbsInt(dy) == r {
				for dz := -r; dz <= r; dz++ {
					fn(voxel.Vec3i{X: center.X + dx, Y: center.Y + dy, Z: center.Z + dz})
				}
				continue
			}
			fn(voxel.Vec3i{X: center.X + dx, Y: center.Y + dy, Z: center.Z - r})
			fn(voxel.Vec3i{X: center.X + dx, Y: center.Y + dy, Z: center.Z + r})
		}
	}
}
