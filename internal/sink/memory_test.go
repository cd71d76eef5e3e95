package sink

import (
	"context"
	"testing"

	"blockevo.ai/internal/sim/orient"
	"blockevo.ai/internal/sim/voxel"
)

var _ WorldSink = (*Memory)(nil)

func TestMemory_PaintIsQueuedUntilFlush(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(nil)
	c := voxel.Vec3i{X: -3, Y: 17, Z: 40}
	m.Paint(c, orient.Up, voxel.Slime)
	if k, _ := m.Block(c); k != voxel.Air {
		t.Fatalf("paint visible before flush: %s", k)
	}
	if m.Len() != 1 {
		t.Fatalf("queue len=%d want 1", m.Len())
	}
	if err := m.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	k, f := m.Block(c)
	if k != voxel.Slime || f != orient.Up {
		t.Fatalf("block=%s/%s want SLIME/UP", k, f)
	}
	if m.Len() != 0 || m.Flushes() != 1 {
		t.Fatalf("queue len=%d flushes=%d", m.Len(), m.Flushes())
	}
}

func TestMemory_SnapshotSkipsAir(t *testing.T) {
	ctx := context.Background()
	box := voxel.NewBox(voxel.Vec3i{X: 1, Y: 1, Z: 1}, voxel.Vec3i{X: 4, Y: 3, Z: 4})
	m := NewMemory(nil)
	if err := m.Fill(ctx, box, voxel.Stone); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	m.Paint(voxel.Vec3i{X: 2, Y: 2, Z: 2}, orient.North, voxel.Air)
	m.Paint(voxel.Vec3i{X: 9, Y: 9, Z: 9}, orient.North, voxel.Sand)
	_ = m.Flush(ctx)

	snap, err := m.Snapshot(ctx, box)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap) != box.Volume()-1 {
		t.Fatalf("occupied=%d want %d", len(snap), box.Volume()-1)
	}
	if _, ok := snap[voxel.Vec3i{X: 2, Y: 2, Z: 2}]; ok {
		t.Fatalf("air cell reported as occupied")
	}
	if _, ok := snap[voxel.Vec3i{X: 9, Y: 9, Z: 9}]; ok {
		t.Fatalf("cell outside box reported")
	}
}

func TestMemory_BoundsDropWrites(t *testing.T) {
	ctx := context.Background()
	bounds := voxel.NewBox(voxel.Vec3i{}, voxel.Vec3i{X: 3, Y: 3, Z: 3})
	m := NewMemory(&bounds)
	n := m.Apply([]Placement{
		{Pos: voxel.Vec3i{X: 1, Y: 1, Z: 1}, Kind: voxel.Sand},
		{Pos: voxel.Vec3i{X: -1, Y: 1, Z: 1}, Kind: voxel.Sand},
	})
	if n != 1 {
		t.Fatalf("applied=%d want 1", n)
	}
	snap, _ := m.Snapshot(ctx, voxel.NewBox(voxel.Vec3i{X: -2, Y: 0, Z: 0}, voxel.Vec3i{X: 3, Y: 3, Z: 3}))
	if len(snap) != 1 {
		t.Fatalf("occupied=%d want 1", len(snap))
	}
}

func TestMemory_DigestIgnoresWriteHistory(t *testing.T) {
	ctx := context.Background()
	a, b := NewMemory(nil), NewMemory(nil)
	c := voxel.Vec3i{X: 40, Y: 2, Z: -7}
	a.Paint(c, orient.East, voxel.Piston)
	_ = a.Flush(ctx)

	b.Paint(voxel.Vec3i{X: 100, Y: 100, Z: 100}, orient.North, voxel.Stone)
	b.Paint(voxel.Vec3i{X: 100, Y: 100, Z: 100}, orient.North, voxel.Air)
	b.Paint(c, orient.East, voxel.Piston)
	_ = b.Flush(ctx)

	if a.Digest() != b.Digest() {
		t.Fatalf("digest differs for equal worlds")
	}
	b.Paint(c, orient.West, voxel.Piston)
	_ = b.Flush(ctx)
	if a.Digest() == b.Digest() {
		t.Fatalf("digest ignores facing")
	}
}

func TestBuffer_RequeueKeepsOrder(t *testing.T) {
	var b Buffer
	b.Paint(voxel.Vec3i{X: 1}, orient.North, voxel.Sand)
	first := b.Drain()
	b.Paint(voxel.Vec3i{X: 2}, orient.North, voxel.Stone)
	b.Requeue(first)
	got := b.Drain()
	if len(got) != 2 || got[0].Pos.X != 1 || got[1].Pos.X != 2 {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestBuffer_RejectsUnknownKind(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	var b Buffer
	b.Paint(voxel.Vec3i{}, orient.North, voxel.Kind(42))
}

func TestMemory_FillRejectsOversizedBox(t *testing.T) {
	m := NewMemory(nil)
	box := voxel.NewBox(voxel.Vec3i{X: -1 << 31}, voxel.Vec3i{X: 1<<31 - 1, Y: 1<<32 - 1})
	if err := m.Fill(context.Background(), box, voxel.Stone); err == nil {
		t.Fatalf("expected error for oversized fill")
	}
}
