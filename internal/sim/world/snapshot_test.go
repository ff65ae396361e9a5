package world

import "testing"

func TestSnapshot_ExportImportPreservesChunks(t *testing.T) {
	src := NewChunkStore(testGen())
	src.LoadChunk(0, 0)
	src.LoadChunk(-1, 1)
	y := src.Gen.SurfaceY + 2
	src.SetBlock(3, y, 3, src.Gen.WaterSource, 0)
	src.SetBlockMetadata(4, y, 4, 0x1B)

	snap := src.ExportSnapshot("world_test", 77)
	if snap.Header.Tick != 77 || snap.Header.WorldID != "world_test" {
		t.Fatalf("header %+v", snap.Header)
	}
	if len(snap.Chunks) != 2 {
		t.Fatalf("exported %d chunks, want 2", len(snap.Chunks))
	}

	dst := NewChunkStore(testGen())
	dst.ImportChunks(snap)
	for _, k := range src.LoadedChunkKeys() {
		if src.Chunks[k].Digest() != dst.Chunks[k].Digest() {
			t.Fatalf("chunk (%d,%d) digest mismatch after import", k.CX, k.CZ)
		}
	}
	if dst.GetBlock(3, y, 3) != dst.Gen.WaterSource {
		t.Fatalf("imported block lost")
	}
	if dst.GetBlockMetadata(4, y, 4) != 0x1B {
		t.Fatalf("imported metadata lost")
	}
}

func TestSnapshot_ExportCopiesData(t *testing.T) {
	s := NewChunkStore(testGen())
	s.LoadChunk(0, 0)
	y := s.Gen.SurfaceY + 2

	snap := s.ExportSnapshot("world_test", 1)
	s.SetBlock(0, y, 0, s.Gen.Stone, 0)

	// The snapshot must not alias live chunk storage.
	idx := 0 + 0*ChunkSize + y*ChunkSize*ChunkSize
	if snap.Chunks[0].Blocks[idx] == s.Gen.Stone {
		t.Fatalf("snapshot aliases the live grid")
	}
}
