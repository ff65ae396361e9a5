package world

import "sort"

func (s *ChunkStore) InBounds(x, y, z int) bool {
	if s == nil {
		return false
	}
	if y < 0 || y >= s.Gen.Height {
		return false
	}
	if s.Gen.BoundaryR > 0 {
		if x < -s.Gen.BoundaryR || x > s.Gen.BoundaryR || z < -s.Gen.BoundaryR || z > s.Gen.BoundaryR {
			return false
		}
	}
	return true
}

func (s *ChunkStore) MinY() int { return 0 }

func (s *ChunkStore) MaxY() int {
	if s == nil {
		return 0
	}
	return s.Gen.Height - 1
}

// IsChunkLoaded takes block coordinates. It never generates.
func (s *ChunkStore) IsChunkLoaded(x, z int) bool {
	if s == nil {
		return false
	}
	if s.Gen.BoundaryR > 0 {
		if x < -s.Gen.BoundaryR || x > s.Gen.BoundaryR || z < -s.Gen.BoundaryR || z > s.Gen.BoundaryR {
			return false
		}
	}
	k := ChunkKey{CX: FloorDiv(x, ChunkSize), CZ: FloorDiv(z, ChunkSize)}
	_, ok := s.Chunks[k]
	return ok
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	if s == nil {
		return nil
	}
	keys := make([]ChunkKey, 0, len(s.Chunks))
	for k := range s.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

func (s *ChunkStore) chunkAt(x, z int) *Chunk {
	k := ChunkKey{CX: FloorDiv(x, ChunkSize), CZ: FloorDiv(z, ChunkSize)}
	return s.Chunks[k]
}

func (s *ChunkStore) GetBlock(x, y, z int) uint16 {
	if s == nil || !s.InBounds(x, y, z) {
		return 0
	}
	ch := s.chunkAt(x, z)
	if ch == nil {
		return s.Gen.Air
	}
	return ch.Get(Mod(x, ChunkSize), y, Mod(z, ChunkSize))
}

func (s *ChunkStore) GetBlockMetadata(x, y, z int) int {
	if s == nil || !s.InBounds(x, y, z) {
		return 0
	}
	ch := s.chunkAt(x, z)
	if ch == nil {
		return 0
	}
	return int(ch.GetMeta(Mod(x, ChunkSize), y, Mod(z, ChunkSize)))
}

// SetBlockMetadata never fires the change hook: metadata-only writes are
// not independently observable.
func (s *ChunkStore) SetBlockMetadata(x, y, z, meta int) {
	if s == nil || !s.InBounds(x, y, z) {
		return
	}
	ch := s.chunkAt(x, z)
	if ch == nil {
		return
	}
	ch.SetMeta(Mod(x, ChunkSize), y, Mod(z, ChunkSize), uint8(meta))
}

// SetBlock is the only observable write path: every actual change fires the
// change hook. Writes into unloaded chunks are dropped.
func (s *ChunkStore) SetBlock(x, y, z int, b uint16, meta int) {
	if s == nil || !s.InBounds(x, y, z) {
		return
	}
	ch := s.chunkAt(x, z)
	if ch == nil {
		return
	}
	lx, lz := Mod(x, ChunkSize), Mod(z, ChunkSize)
	old := ch.Get(lx, y, lz)
	oldMeta := ch.GetMeta(lx, y, lz)
	if old == b && int(oldMeta) == meta {
		return
	}
	ch.Set(lx, y, lz, b)
	ch.SetMeta(lx, y, lz, uint8(meta))
	if s.hook != nil {
		s.hook(x, y, z, b, meta, old)
	}
}

// LoadChunk generates (or returns) the chunk containing the given chunk
// coordinates.
func (s *ChunkStore) LoadChunk(cx, cz int) *Chunk {
	if s == nil {
		return nil
	}
	k := ChunkKey{CX: cx, CZ: cz}
	if ch, ok := s.Chunks[k]; ok {
		return ch
	}
	ch := &Chunk{
		CX:     cx,
		CZ:     cz,
		Height: s.Gen.Height,
		Blocks: make([]uint16, ChunkSize*ChunkSize*s.Gen.Height),
		Meta:   make([]uint8, ChunkSize*ChunkSize*s.Gen.Height),
	}
	s.GenerateChunk(ch)
	ch.dirty = true
	s.Chunks[k] = ch
	return ch
}

func (s *ChunkStore) UnloadChunk(cx, cz int) {
	if s == nil {
		return
	}
	delete(s.Chunks, ChunkKey{CX: cx, CZ: cz})
}

// ForEachOfType visits every cell of the given type in loaded chunks, in
// deterministic chunk order.
func (s *ChunkStore) ForEachOfType(id uint16, fn func(x, y, z int)) {
	if s == nil || fn == nil {
		return
	}
	for _, k := range s.LoadedChunkKeys() {
		ch := s.Chunks[k]
		for y := 0; y < ch.Height; y++ {
			for lz := 0; lz < ChunkSize; lz++ {
				for lx := 0; lx < ChunkSize; lx++ {
					if ch.Get(lx, y, lz) == id {
						fn(k.CX*ChunkSize+lx, y, k.CZ*ChunkSize+lz)
					}
				}
			}
		}
	}
}
