package sink

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"blockevo.ai/internal/sim/orient"
	"blockevo.ai/internal/sim/voxel"
)

// Memory is a WorldSink backed by an in-process chunk store. It is safe for
// concurrent use.
type Memory struct {
	Buffer

	mu      sync.RWMutex
	store   *ChunkStore
	bounds  *voxel.Box
	flushes int
}

// NewMemory returns an empty world. If bounds is non-nil, writes outside it
// are dropped, the way a game server ignores blocks past its world border.
func NewMemory(bounds *voxel.Box) *Memory {
	m := &Memory{store: NewChunkStore()}
	if bounds != nil {
		b := *bounds
		m.bounds = &b
	}
	return m
}

// Bounds returns the world border, or nil when writes are unbounded.
func (m *Memory) Bounds() *voxel.Box {
	if m.bounds == nil {
		return nil
	}
	b := *m.bounds
	return &b
}

func (m *Memory) writable(c voxel.Vec3i) bool {
	return m.bounds == nil || m.bounds.Contains(c)
}

// Apply writes placements in order and reports how many landed.
func (m *Memory) Apply(ps []Placement) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range ps {
		if !m.writable(p.Pos) {
			continue
		}
		m.store.Set(p.Pos, pack(p.Kind, p.Facing))
		n++
	}
	return n
}

func (m *Memory) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.Apply(m.Drain())
	m.mu.Lock()
	m.flushes++
	m.mu.Unlock()
	return nil
}

func (m *Memory) Fill(ctx context.Context, box voxel.Box, kind voxel.Kind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := box.VolumeChecked(); !ok {
		return fmt.Errorf("sink: fill box %v..%v too large", box.Min, box.Max)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v := pack(kind, orient.North)
	box.Each(func(c voxel.Vec3i) {
		if m.writable(c) {
			m.store.Set(c, v)
		}
	})
	return nil
}

func (m *Memory) Snapshot(ctx context.Context, box voxel.Box) (map[voxel.Vec3i]voxel.Kind, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := box.VolumeChecked(); !ok {
		return nil, fmt.Errorf("sink: snapshot box %v..%v too large", box.Min, box.Max)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[voxel.Vec3i]voxel.Kind{}
	box.Each(func(c voxel.Vec3i) {
		kind, _ := unpack(m.store.Get(c))
		if kind != voxel.Air && kind.Valid() {
			out[c] = kind
		}
	})
	return out, nil
}

// Cube returns the kinds of every cell of box in box Index order.
func (m *Memory) Cube(box voxel.Box) []uint16 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, _ := box.VolumeChecked()
	out := make([]uint16, 0, n)
	box.Each(func(c voxel.Vec3i) {
		kind, _ := unpack(m.store.Get(c))
		out = append(out, uint16(kind))
	})
	return out
}

// Block returns the kind and facing stored at c.
func (m *Memory) Block(c voxel.Vec3i) (voxel.Kind, orient.Absolute) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return unpack(m.store.Get(c))
}

// Flushes counts completed Flush calls.
func (m *Memory) Flushes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.flushes
}

// Digest is a hex hash of the whole world, facings included.
func (m *Memory) Digest() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.store.Digest()
	return hex.EncodeToString(d[:])
}
