package voxel

import "math"

// MaxExtent bounds each axis of a box whose volume can be computed safely.
const MaxExtent = 1 << 21

// Box is an axis-aligned region with inclusive corners.
type Box struct {
	Min Vec3i
	Max Vec3i
}

// NewBox returns the box spanned by a and b regardless of corner order.
func NewBox(a, b Vec3i) Box {
	lo := func(x, y int) (int, int) {
		if x <= y {
			return x, y
		}
		return y, x
	}
	var bx Box
	bx.Min.X, bx.Max.X = lo(a.X, b.X)
	bx.Min.Y, bx.Max.Y = lo(a.Y, b.Y)
	bx.Min.Z, bx.Max.Z = lo(a.Z, b.Z)
	return bx
}

func (b Box) Contains(v Vec3i) bool {
	return v.X >= b.Min.X && v.X <= b.Max.X &&
		v.Y >= b.Min.Y && v.Y <= b.Max.Y &&
		v.Z >= b.Min.Z && v.Z <= b.Max.Z
}

// Size returns the extent along each axis.
func (b Box) Size() (dx, dy, dz int) {
	return b.Max.X - b.Min.X + 1, b.Max.Y - b.Min.Y + 1, b.Max.Z - b.Min.Z + 1
}

func (b Box) Volume() int {
	dx, dy, dz := b.Size()
	return dx * dy * dz
}

// VolumeChecked returns the volume of a normalized box, or false when an axis
// is longer than MaxExtent or the product does not fit in an int.
func (b Box) VolumeChecked() (int, bool) {
	n := uint64(1)
	for _, d := range [3]uint64{
		uint64(b.Max.X) - uint64(b.Min.X),
		uint64(b.Max.Y) - uint64(b.Min.Y),
		uint64(b.Max.Z) - uint64(b.Min.Z),
	} {
		if d >= MaxExtent {
			return 0, false
		}
		n *= d + 1
	}
	if n > math.MaxInt {
		return 0, false
	}
	return int(n), true
}

// Index maps a contained coordinate to its position in X-major scan order
// (X outermost, Z innermost). It returns -1 for coordinates outside the box.
func (b Box) Index(v Vec3i) int {
	if !b.Contains(v) {
		return -1
	}
	_, dy, dz := b.Size()
	return ((v.X-b.Min.X)*dy+(v.Y-b.Min.Y))*dz + (v.Z - b.Min.Z)
}

// At is the inverse of Index.
func (b Box) At(i int) Vec3i {
	_, dy, dz := b.Size()
	z := i % dz
	i /= dz
	y := i % dy
	x := i / dy
	return Vec3i{X: b.Min.X + x, Y: b.Min.Y + y, Z: b.Min.Z + z}
}

// Each visits every coordinate in Index order.
func (b Box) Each(fn func(Vec3i)) {
	for x := b.Min.X; x <= b.Max.X; x++ {
		for y := b.Min.Y; y <= b.Max.Y; y++ {
			for z := b.Min.Z; z <= b.Max.Z; z++ {
				fn(Vec3i{X: x, Y: y, Z: z})
			}
		}
	}
}
