package world

import "testing"

func testGen() WorldGen {
	return WorldGen{
		Seed:      42,
		Height:    32,
		BoundaryR: 64,
		SurfaceY:  8,
		Flat:      true,

		Air:          0,
		Bedrock:      1,
		Stone:        2,
		Dirt:         3,
		Grass:        4,
		Sand:         5,
		WaterSource:  8,
		WaterFlowing: 9,
	}
}

func TestStore_BoundsAndResidency(t *testing.T) {
	s := NewChunkStore(testGen())
	s.LoadChunk(0, 0)

	if s.GetBlock(0, -1, 0) != 0 || s.GetBlock(0, 32, 0) != 0 {
		t.Fatalf("vertical out-of-bounds read not zero")
	}
	if s.InBounds(100, 8, 0) || s.IsChunkLoaded(100, 0) {
		t.Fatalf("boundary radius not enforced")
	}
	if !s.IsChunkLoaded(15, 15) || s.IsChunkLoaded(16, 0) {
		t.Fatalf("chunk residency wrong at the border")
	}

	// Reads in unloaded chunks are air, writes are dropped.
	if s.GetBlock(40, 8, 0) != s.Gen.Air {
		t.Fatalf("unloaded read = %d, want air", s.GetBlock(40, 8, 0))
	}
	s.SetBlock(40, 8, 0, s.Gen.Stone, 0)
	if s.IsChunkLoaded(40, 0) || s.GetBlock(40, 8, 0) != s.Gen.Air {
		t.Fatalf("write into unloaded chunk was not dropped")
	}
}

func TestStore_HookFiresOnlyOnActualChange(t *testing.T) {
	s := NewChunkStore(testGen())
	s.LoadChunk(0, 0)

	var calls int
	var lastOld uint16
	s.SetChangeHook(func(x, y, z int, newType uint16, newMeta int, oldType uint16) {
		calls++
		lastOld = oldType
	})

	y := s.Gen.SurfaceY + 2
	s.SetBlock(3, y, 3, s.Gen.Stone, 0)
	s.SetBlock(3, y, 3, s.Gen.Stone, 0) // no-op
	if calls != 1 {
		t.Fatalf("hook calls = %d, want 1", calls)
	}
	if lastOld != s.Gen.Air {
		t.Fatalf("hook oldType = %d, want air", lastOld)
	}

	// Metadata-only writes are not observable.
	s.SetBlockMetadata(3, y, 3, 7)
	if calls != 1 {
		t.Fatalf("metadata write fired the hook")
	}
	if s.GetBlockMetadata(3, y, 3) != 7 {
		t.Fatalf("metadata lost")
	}
}

func TestStore_UnloadChunk(t *testing.T) {
	s := NewChunkStore(testGen())
	s.LoadChunk(1, 1)
	if !s.IsChunkLoaded(20, 20) {
		t.Fatalf("chunk (1,1) not loaded")
	}
	s.UnloadChunk(1, 1)
	if s.IsChunkLoaded(20, 20) {
		t.Fatalf("chunk (1,1) still resident")
	}
	if s.GetBlock(20, s.Gen.SurfaceY, 20) != s.Gen.Air {
		t.Fatalf("unloaded read should be air")
	}
}

func TestStore_ForEachOfType(t *testing.T) {
	s := NewChunkStore(testGen())
	s.LoadChunk(0, 0)
	s.LoadChunk(-1, 0)

	y := s.Gen.SurfaceY + 3
	s.SetBlock(2, y, 2, s.Gen.WaterSource, 0)
	s.SetBlock(-5, y, 7, s.Gen.WaterSource, 0)

	var got [][3]int
	s.ForEachOfType(s.Gen.WaterSource, func(x, y, z int) {
		got = append(got, [3]int{x, y, z})
	})
	if len(got) != 2 {
		t.Fatalf("found %d cells, want 2", len(got))
	}
	// Chunk keys are visited in sorted order: (-1,0) before (0,0).
	if got[0] != [3]int{-5, y, 7} || got[1] != [3]int{2, y, 2} {
		t.Fatalf("visit order %v", got)
	}
}

func TestFloorDivMod(t *testing.T) {
	if FloorDiv(-1, 16) != -1 || FloorDiv(-16, 16) != -1 || FloorDiv(-17, 16) != -2 {
		t.Fatalf("floor division wrong on negatives")
	}
	if Mod(-1, 16) != 15 || Mod(16, 16) != 0 {
		t.Fatalf("modulo wrong")
	}
}
