package entity

import (
	"blockevo.ai/internal/sim/orient"
)

// grid is the 3x3x3 neighborhood around a block. Axis 0 runs west to east,
// axis 1 down to up, axis 2 north to south. Cells hold a relative direction or
// -1 for the center, edges and corners.
type grid [3][3][3]int8

// Where each relative slot sits in an untransformed template. The template is
// laid out as if looking out of the block's front face.
var templateCells = [orient.NumDirections][3]int{
	orient.RelUp:   {1, 0, 1},
	orient.RelDown: {1, 2, 1},
	orient.Front:   {2, 1, 1},
	orient.Left:    {1, 1, 2},
	orient.Back:    {0, 1, 1},
	orient.Right:   {1, 1, 0},
}

func templateGrid() grid {
	var g grid
	for i := range g {
		for j := range g[i] {
			for k := range g[i][j] {
				g[i][j][k] = -1
			}
		}
	}
	for rel, p := range templateCells {
		g[p[0]][p[1]][p[2]] = int8(rel)
	}
	return g
}

func (g grid) at(p [3]int) int8 { return g[p[0]][p[1]][p[2]] }

func (g grid) remap(src func(p [3]int) [3]int) grid {
	var out grid
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				p := [3]int{i, j, k}
				out[i][j][k] = g.at(src(p))
			}
		}
	}
	return out
}

func (g grid) swapAxes(a, b int) grid {
	return g.remap(func(p [3]int) [3]int {
		p[a], p[b] = p[b], p[a]
		return p
	})
}

func (g grid) flip(axis int) grid {
	return g.remap(func(p [3]int) [3]int {
		p[axis] = 2 - p[axis]
		return p
	})
}

// orientGrid turns the template so its back-front axis points along facing.
// East is the untransformed layout.
func orientGrid(g grid, facing orient.Absolute) grid {
	switch facing {
	case orient.East:
		return g
	case orient.West:
		return g.flip(0).flip(2)
	case orient.Up:
		return g.swapAxes(0, 1).flip(1)
	case orient.Down:
		return g.swapAxes(0, 1).flip(2)
	case orient.South:
		return g.swapAxes(0, 2).flip(0)
	case orient.North:
		return g.swapAxes(0, 2).flip(2)
	default:
		panic("entity: invalid facing " + facing.String())
	}
}

// viewMap[facing][d] is the template slot read when building toward d.
var viewMap = func() [orient.NumDirections][orient.NumDirections]orient.Relative {
	var out [orient.NumDirections][orient.NumDirections]orient.Relative
	base := templateGrid()
	for _, facing := range orient.Absolutes {
		g := orientGrid(base, facing)
		for _, d := range orient.Absolutes {
			off := d.Offset()
			rel := g.at([3]int{1 + off.X, 1 + off.Y, 1 + off.Z})
			if rel < 0 {
				panic("entity: transformed template lost a face slot")
			}
			out[facing][d] = orient.Relative(rel)
		}
	}
	return out
}()

// slotFor reports which template slot an entity facing facing consults when
// building toward d.
func slotFor(facing orient.Absolute, d orient.Absolute) orient.Relative {
	return viewMap[facing][d]
}
