package liquidtest

import (
	"reflect"
	"testing"

	"voxelflow.ai/internal/sim/liquid"
)

// Removing the source of a straight walled chain clears the whole chain in
// one synchronous pass with no stale queue entries left behind.
func TestCascade_StraightChain(t *testing.T) {
	h := NewHarness(t)
	y := h.SurfaceY + 1

	// Stone channel so the chain cannot fan out sideways.
	for x := -1; x <= 4; x++ {
		h.Set(x, y, 1, "STONE")
		h.Set(x, y, -1, "STONE")
	}
	h.Set(-1, y, 0, "STONE")
	h.Set(4, y, 0, "STONE")

	h.Set(0, y, 0, "WATER_SOURCE")
	h.TickUntilQuiet(200)
	for x := 1; x <= 3; x++ {
		h.RequireFlowingDepth(x, y, 0, x)
	}

	h.Set(0, y, 0, "AIR")

	// Cascade ran synchronously inside the change notification.
	for x := 1; x <= 3; x++ {
		h.RequireAir(x, y, 0)
		if h.Eng.Queue().Contains(liquid.PackPos(x, y, 0)) {
			t.Fatalf("stale queue entry for erased cell x=%d", x)
		}
	}

	h.TickUntilQuiet(200)
	if n := h.CountLiquid(); n != 0 {
		t.Fatalf("%d liquid cells survived source removal", n)
	}
}

// Removing the source above a waterfall erases the column and its splash
// pool completely.
func TestCascade_WaterfallRemoval(t *testing.T) {
	h := NewHarness(t)
	top := h.SurfaceY + 6

	h.Set(0, top, 0, "WATER_SOURCE")
	h.TickUntilQuiet(300)
	if h.CountLiquid() < 5 {
		t.Fatalf("expected a waterfall before removal")
	}

	h.Set(0, top, 0, "AIR")
	h.TickUntilQuiet(300)

	if n := h.CountLiquid(); n != 0 {
		t.Fatalf("%d orphan liquid cells left after waterfall removal", n)
	}
}

// Cells still reachable from a second source survive removal of the first,
// and the surviving pool relaxes to exactly the single-source steady state.
func TestCascade_SurvivorsKeepSecondSource(t *testing.T) {
	ref := NewHarness(t)
	y := ref.SurfaceY + 1
	ref.Set(5, y, 0, "WATER_SOURCE")
	ref.TickUntilQuiet(400)

	h := NewHarness(t)
	h.Set(0, y, 0, "WATER_SOURCE")
	h.Set(5, y, 0, "WATER_SOURCE")
	h.TickUntilQuiet(400)

	h.Set(0, y, 0, "AIR")
	h.TickUntilQuiet(600)

	if !reflect.DeepEqual(ref.ChunkDigests(), h.ChunkDigests()) {
		t.Fatalf("pool after removing first source differs from single-source steady state")
	}
}
