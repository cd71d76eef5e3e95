// Package population advances the living blocks one generation at a time.
//
// Each generation starts from what the world actually contains: every
// occupied cell becomes an entity that inherits the genotype and facing of the
// closest entity of the previous generation, provided its cell still holds
// enough resources. Survivors then try to reproduce, and a successful parent
// may mutate or recombine its (shared) genotype.
package population

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sort"

	"blockevo.ai/internal/sim/entity"
	"blockevo.ai/internal/sim/orient"
	"blockevo.ai/internal/sim/voxel"
	"blockevo.ai/internal/sink"
)

// DefaultSurvivalThreshold is the resource level a cell must exceed for its
// block to stay alive.
const DefaultSurvivalThreshold = 3

// Rates are compared against a uniform draw in [0,1): an event happens when
// the draw is greater than its rate, so its probability is 1 - rate.
type Rates struct {
	Reproduction  float64
	Mutation      float64
	Recombination float64
}

type Params struct {
	Box               voxel.Box
	SurvivalThreshold int
	Rates             Rates
}

// Stats summarizes one generation.
type Stats struct {
	Generation     int   `json:"generation"`
	Occupied       int   `json:"occupied"`
	Inherited      int   `json:"inherited"`
	Vacated        int   `json:"vacated"`
	Attempts       int   `json:"attempts"`
	Offspring      int   `json:"offspring"`
	Mutations      int   `json:"mutations"`
	Recombinations int   `json:"recombinations"`
	Size           int   `json:"size"`
	ResourceTotal  int64 `json:"resource_total"`
}

type Population struct {
	generation int
	entities   []*entity.Entity
	prior      []*entity.Entity
	stats      Stats
}

func (p *Population) Generation() int { return p.generation }

// Entities returns this generation's entities: inherited ones first, in
// coordinate order, then offspring in birth order.
func (p *Population) Entities() []*entity.Entity { return p.entities }

// Prior returns the generation this one was derived from.
func (p *Population) Prior() []*entity.Entity { return p.prior }

func (p *Population) Len() int { return len(p.entities) }

func (p *Population) Stats() Stats { return p.stats }

// Digest hashes position, kind, facing and genotype of every entity in order.
func (p *Population) Digest() string {
	h := sha256.New()
	var tmp [8]byte
	put := func(v int) {
		binary.LittleEndian.PutUint64(tmp[:], uint64(int64(v)))
		h.Write(tmp[:])
	}
	for _, e := range p.entities {
		c := e.Coord()
		put(c.X)
		put(c.Y)
		put(c.Z)
		h.Write([]byte{byte(e.Kind()), byte(e.Facing())})
		for _, s := range e.Genotype().Slots() {
			h.Write([]byte{byte(s.Kind), byte(s.Orientation)})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Engine owns everything a generation step touches.
type Engine struct {
	Env      *entity.Env
	Sink     sink.WorldSink
	Params   Params
	NewIndex IndexFactory
}

func (en *Engine) index(es []*entity.Entity) Index {
	if en.NewIndex == nil {
		return NewLinearIndex(es)
	}
	return en.NewIndex(es)
}

// Root makes generation zero out of a single entity, which is also its own
// prior generation.
func Root(e *entity.Entity) *Population {
	es := []*entity.Entity{e}
	return &Population{
		entities: es,
		prior:    es,
		stats:    Stats{Occupied: 1, Inherited: 1, Size: 1},
	}
}

// Next derives the generation after prev from the current world contents and
// flushes every placement it queued.
func (en *Engine) Next(ctx context.Context, prev *Population) (*Population, error) {
	occupied, err := en.Sink.Snapshot(ctx, en.Params.Box)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	coords := make([]voxel.Vec3i, 0, len(occupied))
	for c, k := range occupied {
		if k == voxel.Air {
			continue
		}
		coords = append(coords, c)
	}
	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })

	var priorEntities []*entity.Entity
	if prev != nil {
		priorEntities = prev.entities
	}
	next := &Population{
		generation: 1,
		prior:      priorEntities,
	}
	if prev != nil {
		next.generation = prev.generation + 1
	}
	st := &next.stats
	st.Generation = next.generation
	st.Occupied = len(coords)

	idx := en.index(priorEntities)
	env := en.Env
	base := make([]*entity.Entity, 0, len(coords))
	for _, c := range coords {
		nearest := idx.Nearest(c)
		if nearest != nil && env.Resources.Level(c) > en.Params.SurvivalThreshold {
			base = append(base, entity.New(c, occupied[c], nearest.Facing(), nearest.Genotype(), env))
			continue
		}
		en.Sink.Paint(c, orient.North, voxel.Air)
		st.Vacated++
	}
	st.Inherited = len(base)

	rates := en.Params.Rates
	var offspring []*entity.Entity
	for _, e := range base {
		if env.Rand.Float64() <= rates.Reproduction {
			continue
		}
		st.Attempts++
		child := e.Reproduce()
		if child == nil {
			continue
		}
		if env.Rand.Float64() > rates.Mutation {
			e.Mutate()
			st.Mutations++
		}
		if env.Rand.Float64() > rates.Recombination {
			e.Recombine()
			st.Recombinations++
		}
		offspring = append(offspring, child)
	}
	st.Offspring = len(offspring)

	next.entities = append(base, offspring...)
	st.Size = len(next.entities)
	st.ResourceTotal = env.Resources.Total()

	if err := en.Sink.Flush(ctx); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	return next, nil
}
