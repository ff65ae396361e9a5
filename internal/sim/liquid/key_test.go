package liquid

import "testing"

func TestPackPos_RoundTrip(t *testing.T) {
	cases := [][3]int{
		{0, 0, 0},
		{1, 2, 3},
		{-1, 0, -1},
		{-12345, 63, 54321},
		{1 << 20, 2047, -(1 << 20)},
		{-(1 << 25), 0, (1 << 25) - 1},
	}
	for _, c := range cases {
		x, y, z := UnpackPos(PackPos(c[0], c[1], c[2]))
		if x != c[0] || y != c[1] || z != c[2] {
			t.Fatalf("roundtrip %v -> (%d,%d,%d)", c, x, y, z)
		}
	}
}

func TestPackPos_DistinctKeys(t *testing.T) {
	seen := map[uint64][3]int{}
	for x := -3; x <= 3; x++ {
		for y := 0; y <= 3; y++ {
			for z := -3; z <= 3; z++ {
				k := PackPos(x, y, z)
				if prev, ok := seen[k]; ok {
					t.Fatalf("collision: %v and (%d,%d,%d)", prev, x, y, z)
				}
				seen[k] = [3]int{x, y, z}
			}
		}
	}
}

func TestChunkOfKey(t *testing.T) {
	if chunkOfKey(PackPos(0, 5, 0)) != chunkOfKey(PackPos(15, 60, 15)) {
		t.Fatalf("cells of chunk (0,0) map to different chunk keys")
	}
	if chunkOfKey(PackPos(15, 5, 0)) == chunkOfKey(PackPos(16, 5, 0)) {
		t.Fatalf("chunk border not respected")
	}
	if chunkOfKey(PackPos(-1, 5, -1)) != packChunk(-1, -1) {
		t.Fatalf("negative coords map to the wrong chunk")
	}
}
