package world

import (
	"crypto/sha256"
	"encoding/binary"
)

const ChunkSize = 16

type ChunkKey struct {
	CX int
	CZ int
}

// Chunk is a 16 x Height x 16 column of blocks plus per-cell metadata.
type Chunk struct {
	CX, CZ int
	Height int
	Blocks []uint16 // len = 16*16*Height
	Meta   []uint8

	dirty bool
	hash  [32]byte
}

func (c *Chunk) index(x, y, z int) int {
	return x + z*ChunkSize + y*ChunkSize*ChunkSize
}

func (c *Chunk) Get(x, y, z int) uint16 {
	return c.Blocks[c.index(x, y, z)]
}

func (c *Chunk) Set(x, y, z int, b uint16) {
	i := c.index(x, y, z)
	if c.Blocks[i] == b {
		return
	}
	c.Blocks[i] = b
	c.dirty = true
}

func (c *Chunk) GetMeta(x, y, z int) uint8 {
	return c.Meta[c.index(x, y, z)]
}

func (c *Chunk) SetMeta(x, y, z int, m uint8) {
	i := c.index(x, y, z)
	if c.Meta[i] == m {
		return
	}
	c.Meta[i] = m
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
		h.Write(c.Meta)
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

// WorldGen carries terrain parameters and the resolved block ids the
// generator writes.
type WorldGen struct {
	Seed      int64
	Height    int
	BoundaryR int // blocks; 0 = unbounded

	SurfaceY       int
	SpringPermille int
	Flat           bool

	Air          uint16
	Bedrock      uint16
	Stone        uint16
	Dirt         uint16
	Grass        uint16
	Sand         uint16
	WaterSource  uint16
	WaterFlowing uint16
}

// ChangeHook observes every public SetBlock that actually changed a cell.
type ChangeHook func(x, y, z int, newType uint16, newMeta int, oldType uint16)

// ChunkStore is the voxel grid. Chunks are generated only by explicit
// LoadChunk calls; reads outside loaded chunks return Air, and callers that
// care about residency must check IsChunkLoaded first.
type ChunkStore struct {
	Gen    WorldGen
	Chunks map[ChunkKey]*Chunk

	hook ChangeHook
}

func NewChunkStore(gen WorldGen) *ChunkStore {
	if gen.Height <= 0 {
		gen.Height = 64
	}
	return &ChunkStore{
		Gen:    gen,
		Chunks: make(map[ChunkKey]*Chunk),
	}
}

// SetChangeHook routes observable block changes to the liquid engine (or
// any other system); every external mutation must go through SetBlock so
// the hook sees it.
func (s *ChunkStore) SetChangeHook(h ChangeHook) {
	if s == nil {
		return
	}
	s.hook = h
}
