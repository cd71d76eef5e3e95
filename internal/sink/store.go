package sink

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	"blockevo.ai/internal/sim/orient"
	"blockevo.ai/internal/sim/voxel"
)

const chunkSize = 16

type ChunkKey struct {
	CX int
	CY int
	CZ int
}

func (k ChunkKey) less(o ChunkKey) bool {
	if k.CX != o.CX {
		return k.CX < o.CX
	}
	if k.CY != o.CY {
		return k.CY < o.CY
	}
	return k.CZ < o.CZ
}

// Chunk is a 16x16x16 cube of cells. Each cell packs the kind in the low byte
// and the facing in the high byte; zero is AIR facing NORTH.
type Chunk struct {
	Key    ChunkKey
	Blocks []uint16

	dirty bool
	hash  [32]byte
}

func pack(kind voxel.Kind, facing orient.Absolute) uint16 {
	return uint16(kind) | uint16(facing)<<8
}

func unpack(v uint16) (voxel.Kind, orient.Absolute) {
	return voxel.Kind(v & 0xff), orient.Absolute(v >> 8)
}

func (c *Chunk) index(lx, ly, lz int) int {
	return lx + chunkSize*(lz+chunkSize*ly)
}

func (c *Chunk) Get(lx, ly, lz int) uint16 {
	return c.Blocks[c.index(lx, ly, lz)]
}

func (c *Chunk) Set(lx, ly, lz int, v uint16) {
	i := c.index(lx, ly, lz)
	if c.Blocks[i] == v {
		return
	}
	c.Blocks[i] = v
	c.dirty = true
}

func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [2]byte
		for _, v := range c.Blocks {
			binary.LittleEndian.PutUint16(tmp[:], v)
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

// ChunkStore is a sparse voxel grid. Cells never written read as AIR.
type ChunkStore struct {
	Chunks map[ChunkKey]*Chunk
}

func NewChunkStore() *ChunkStore {
	return &ChunkStore{Chunks: map[ChunkKey]*Chunk{}}
}

func split(c voxel.Vec3i) (ChunkKey, int, int, int) {
	k := ChunkKey{
		CX: voxel.FloorDiv(c.X, chunkSize),
		CY: voxel.FloorDiv(c.Y, chunkSize),
		CZ: voxel.FloorDiv(c.Z, chunkSize),
	}
	return k, voxel.Mod(c.X, chunkSize), voxel.Mod(c.Y, chunkSize), voxel.Mod(c.Z, chunkSize)
}

func (s *ChunkStore) Get(c voxel.Vec3i) uint16 {
	k, lx, ly, lz := split(c)
	ch, ok := s.Chunks[k]
	if !ok {
		return 0
	}
	return ch.Get(lx, ly, lz)
}

func (s *ChunkStore) Set(c voxel.Vec3i, v uint16) {
	k, lx, ly, lz := split(c)
	ch, ok := s.Chunks[k]
	if !ok {
		if v == 0 {
			return
		}
		ch = &Chunk{Key: k, Blocks: make([]uint16, chunkSize*chunkSize*chunkSize)}
		s.Chunks[k] = ch
	}
	ch.Set(lx, ly, lz, v)
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.Chunks))
	for k := range s.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}

// Digest hashes every loaded chunk in key order. Chunks that hold only AIR
// are skipped so equal worlds hash equally however they were written.
func (s *ChunkStore) Digest() [32]byte {
	var empty [32]byte
	{
		h := sha256.New()
		var tmp [2]byte
		for i := 0; i < chunkSize*chunkSize*chunkSize; i++ {
			h.Write(tmp[:])
		}
		copy(empty[:], h.Sum(nil))
	}
	h := sha256.New()
	var tmp [8]byte
	for _, k := range s.LoadedChunkKeys() {
		d := s.Chunks[k].Digest()
		if d == empty {
			continue
		}
		for _, v := range []int{k.CX, k.CY, k.CZ} {
			binary.LittleEndian.PutUint64(tmp[:], uint64(int64(v)))
			h.Write(tmp[:])
		}
		h.Write(d[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
