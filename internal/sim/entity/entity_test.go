package entity

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blockevo.ai/internal/sim/genotype"
	"blockevo.ai/internal/sim/orient"
	"blockevo.ai/internal/sim/resources"
	"blockevo.ai/internal/sim/voxel"
)

type paint struct {
	c      voxel.Vec3i
	facing orient.Absolute
	kind   voxel.Kind
}

type recorder struct{ paints []paint }

func (r *recorder) Paint(c voxel.Vec3i, facing orient.Absolute, kind voxel.Kind) {
	r.paints = append(r.paints, paint{c: c, facing: facing, kind: kind})
}

func distinctGenotype() *genotype.Genotype {
	var slots [orient.NumDirections]genotype.Slot
	kinds := []voxel.Kind{voxel.Sand, voxel.Stone, voxel.Slime, voxel.RedstoneBlock, voxel.Piston, voxel.StickyPiston}
	for i, rel := range orient.Relatives {
		slots[rel] = genotype.Slot{Kind: kinds[i], Orientation: rel}
	}
	return genotype.FromSlots(slots)
}

func newEnv(t *testing.T, richness int, band Band) (*Env, *recorder) {
	t.Helper()
	box := voxel.NewBox(voxel.Vec3i{X: 0, Y: 0, Z: 0}, voxel.Vec3i{X: 9, Y: 9, Z: 9})
	rec := &recorder{}
	return &Env{
		Rand:      rand.New(rand.NewSource(1)),
		Resources: resources.New(box, richness),
		Sink:      rec,
		Band:      band,
		Table:     orient.Reference,
	}, rec
}

func TestView_PerFacing(t *testing.T) {
	type row map[orient.Absolute]orient.Relative
	cases := map[orient.Absolute]row{
		orient.East:  {orient.East: orient.Front, orient.West: orient.Back, orient.Up: orient.RelDown, orient.Down: orient.RelUp, orient.North: orient.Right, orient.South: orient.Left},
		orient.West:  {orient.East: orient.Back, orient.West: orient.Front, orient.Up: orient.RelDown, orient.Down: orient.RelUp, orient.North: orient.Left, orient.South: orient.Right},
		orient.Up:    {orient.East: orient.RelDown, orient.West: orient.RelUp, orient.Up: orient.Back, orient.Down: orient.Front, orient.North: orient.Right, orient.South: orient.Left},
		orient.Down:  {orient.East: orient.RelDown, orient.West: orient.RelUp, orient.Up: orient.Front, orient.Down: orient.Back, orient.North: orient.Left, orient.South: orient.Right},
		orient.South: {orient.East: orient.Right, orient.West: orient.Left, orient.Up: orient.RelDown, orient.Down: orient.RelUp, orient.North: orient.Back, orient.South: orient.Front},
		orient.North: {orient.East: orient.Left, orient.West: orient.Right, orient.Up: orient.RelDown, orient.Down: orient.RelUp, orient.North: orient.Front, orient.South: orient.Back},
	}
	for facing, want := range cases {
		for d, rel := range want {
			assert.Equalf(t, rel, slotFor(facing, d), "facing=%s toward=%s", facing, d)
		}
	}
}

func TestView_EastIsIdentityWestFlipsBothAxes(t *testing.T) {
	base := templateGrid()
	require.Equal(t, base, orientGrid(base, orient.East))
	require.Equal(t, base.flip(0).flip(2), orientGrid(base, orient.West))

	env, _ := newEnv(t, 1, Band{MinY: 0, MaxY: 9})
	g := distinctGenotype()
	east := New(voxel.Vec3i{X: 5, Y: 5, Z: 5}, voxel.Stone, orient.East, g, env)
	west := New(voxel.Vec3i{X: 5, Y: 5, Z: 5}, voxel.Stone, orient.West, g, env)
	ev, wv := east.View(), west.View()
	for _, d := range orient.Absolutes {
		off := d.Offset()
		rel := orient.Relative(base.at([3]int{1 + off.X, 1 + off.Y, 1 + off.Z}))
		require.Equal(t, g.Slot(rel), ev[d], "east view toward %s", d)
	}
	// Flipping X and Z swaps front/back and left/right, leaving up/down alone.
	require.Equal(t, ev[orient.East], wv[orient.West])
	require.Equal(t, ev[orient.West], wv[orient.East])
	require.Equal(t, ev[orient.North], wv[orient.South])
	require.Equal(t, ev[orient.South], wv[orient.North])
	require.Equal(t, ev[orient.Up], wv[orient.Up])
	require.Equal(t, ev[orient.Down], wv[orient.Down])
}

func TestView_IsPermutationForEveryFacing(t *testing.T) {
	for _, facing := range orient.Absolutes {
		seen := map[orient.Relative]bool{}
		for _, d := range orient.Absolutes {
			seen[slotFor(facing, d)] = true
		}
		require.Lenf(t, seen, orient.NumDirections, "facing %s", facing)
	}
}

func TestNew_PaintsItself(t *testing.T) {
	env, rec := newEnv(t, 1, Band{MinY: 0, MaxY: 9})
	c := voxel.Vec3i{X: 2, Y: 3, Z: 4}
	New(c, voxel.Slime, orient.Up, distinctGenotype(), env)
	require.Equal(t, []paint{{c: c, facing: orient.Up, kind: voxel.Slime}}, rec.paints)
}

func TestReproduce_SharesGenotypeAndHarvestsAtParent(t *testing.T) {
	env, rec := newEnv(t, 5, Band{MinY: 1, MaxY: 1})
	g := distinctGenotype()
	parentAt := voxel.Vec3i{X: 4, Y: 1, Z: 4}
	parent := New(parentAt, voxel.RedstoneBlock, orient.North, g, env)
	before := env.Resources.Level(parentAt)

	out := parent.TryReproduce()
	require.NotNil(t, out.Child)
	child := out.Child
	assert.Equal(t, 1, child.Coord().Y, "offspring left the vertical band")
	assert.Equal(t, 1, voxel.Manhattan(parentAt, child.Coord()))
	assert.Same(t, g, child.Genotype())
	assert.Equal(t, out.Slot.Kind, child.Kind())
	assert.Equal(t, orient.Compose(out.Slot.Orientation, orient.North), child.Facing())
	assert.Equal(t, before-1, env.Resources.Level(parentAt))
	assert.Equal(t, 5, env.Resources.Level(child.Coord())/voxel.NumKinds, "child cell should be untouched")
	assert.Len(t, rec.paints, 2)

	// Mutating through the child is visible from the parent.
	child.Mutate()
	assert.Equal(t, child.Genotype().Slots(), parent.Genotype().Slots())
}

func TestReproduce_ExhaustedReturnsNil(t *testing.T) {
	env, rec := newEnv(t, 0, Band{MinY: 0, MaxY: 9})
	parent := New(voxel.Vec3i{X: 4, Y: 4, Z: 4}, voxel.Stone, orient.East, distinctGenotype(), env)
	for i := 0; i < 20; i++ {
		require.Nil(t, parent.Reproduce())
	}
	require.Len(t, rec.paints, 1)
}

func TestReproduce_NoPermittedNeighbor(t *testing.T) {
	env, _ := newEnv(t, 5, Band{MinY: 1, MaxY: 1})
	parent := New(voxel.Vec3i{X: 4, Y: 5, Z: 4}, voxel.Stone, orient.East, distinctGenotype(), env)
	require.Nil(t, parent.Reproduce())
}

func TestReproduce_HorizontalBoundsOptional(t *testing.T) {
	env, _ := newEnv(t, 50, Band{MinY: 0, MaxY: 0})
	corner := voxel.Vec3i{X: 0, Y: 0, Z: 0}
	g := distinctGenotype()

	escaped := false
	parent := New(corner, voxel.Stone, orient.East, g, env)
	for i := 0; i < 40; i++ {
		out := parent.TryReproduce()
		if out.Target.X < 0 || out.Target.Z < 0 {
			escaped = true
		}
	}
	assert.True(t, escaped, "without bounds offspring may leave the box horizontally")

	box := env.Resources.Box()
	env.Bounds = &box
	for i := 0; i < 40; i++ {
		out := parent.TryReproduce()
		require.True(t, box.Contains(out.Target), "target %v outside bounds", out.Target)
	}
}

func TestReproduce_CopyOnReproduce(t *testing.T) {
	env, _ := newEnv(t, 5, Band{MinY: 0, MaxY: 9})
	env.CopyOnReproduce = true
	g := distinctGenotype()
	parent := New(voxel.Vec3i{X: 4, Y: 4, Z: 4}, voxel.Stone, orient.South, g, env)
	child := parent.Reproduce()
	require.NotNil(t, child)
	require.NotSame(t, g, child.Genotype())
	child.Mutate()
	require.NotEqual(t, g.Slots(), child.Genotype().Slots())
}
