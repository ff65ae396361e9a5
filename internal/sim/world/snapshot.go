package world

import "voxelflow.ai/internal/persistence/snapshot"

const snapshotVersion = 1

func (s *ChunkStore) ExportSnapshot(worldID string, tick uint64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshotVersion,
			WorldID: worldID,
			Tick:    tick,
		},
		Seed:           s.Gen.Seed,
		Height:         s.Gen.Height,
		BoundaryR:      s.Gen.BoundaryR,
		SurfaceY:       s.Gen.SurfaceY,
		SpringPermille: s.Gen.SpringPermille,
	}
	for _, k := range s.LoadedChunkKeys() {
		ch := s.Chunks[k]
		blocks := make([]uint16, len(ch.Blocks))
		copy(blocks, ch.Blocks)
		meta := make([]uint8, len(ch.Meta))
		copy(meta, ch.Meta)
		snap.Chunks = append(snap.Chunks, snapshot.ChunkV1{
			CX:     k.CX,
			CZ:     k.CZ,
			Blocks: blocks,
			Meta:   meta,
		})
	}
	return snap
}

// ImportChunks replaces the loaded chunk set with the snapshot's. The
// store's Gen must already reflect the snapshot's world parameters.
func (s *ChunkStore) ImportChunks(snap snapshot.SnapshotV1) {
	if s == nil {
		return
	}
	s.Chunks = make(map[ChunkKey]*Chunk, len(snap.Chunks))
	for _, c := range snap.Chunks {
		blocks := make([]uint16, len(c.Blocks))
		copy(blocks, c.Blocks)
		meta := make([]uint8, len(c.Meta))
		copy(meta, c.Meta)
		ch := &Chunk{
			CX:     c.CX,
			CZ:     c.CZ,
			Height: s.Gen.Height,
			Blocks: blocks,
			Meta:   meta,
			dirty:  true,
		}
		s.Chunks[ChunkKey{CX: c.CX, CZ: c.CZ}] = ch
	}
}
