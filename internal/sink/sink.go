// Package sink defines the world the simulation paints into and reads back
// from, plus an in-process implementation of it.
package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"blockevo.ai/internal/sim/orient"
	"blockevo.ai/internal/sim/voxel"
)

// ErrClosed is returned by sinks used after Close.
var ErrClosed = errors.New("sink: closed")

// WorldSink is the game world as seen by the simulation.
type WorldSink interface {
	// Paint queues a placement. Nothing is sent until Flush.
	Paint(c voxel.Vec3i, facing orient.Absolute, kind voxel.Kind)
	// Fill sets every cell of box to kind immediately.
	Fill(ctx context.Context, box voxel.Box, kind voxel.Kind) error
	// Flush commits every queued placement in one round trip and clears the queue.
	Flush(ctx context.Context) error
	// Snapshot returns the occupied cells of box. AIR and unrecognized kinds
	// are left out.
	Snapshot(ctx context.Context, box voxel.Box) (map[voxel.Vec3i]voxel.Kind, error)
}

// Placement is one queued block.
type Placement struct {
	Pos    voxel.Vec3i
	Facing orient.Absolute
	Kind   voxel.Kind
}

// Buffer queues placements between flushes. The zero value is ready to use.
type Buffer struct {
	mu      sync.Mutex
	pending []Placement
}

// Paint appends a placement. Kinds and facings outside their enums panic.
func (b *Buffer) Paint(c voxel.Vec3i, facing orient.Absolute, kind voxel.Kind) {
	if !kind.Valid() {
		panic(fmt.Sprintf("sink: unknown block kind %d", uint8(kind)))
	}
	if !facing.Valid() {
		panic(fmt.Sprintf("sink: unknown orientation %d", uint8(facing)))
	}
	b.mu.Lock()
	b.pending = append(b.pending, Placement{Pos: c, Facing: facing, Kind: kind})
	b.mu.Unlock()
}

// Drain returns and clears the queue.
func (b *Buffer) Drain() []Placement {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	b.pending = nil
	return out
}

// Requeue puts placements back in front of anything queued since Drain.
func (b *Buffer) Requeue(ps []Placement) {
	if len(ps) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(append(make([]Placement, 0, len(ps)+len(b.pending)), ps...), b.pending...)
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
