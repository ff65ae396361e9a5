package liquid

import "testing"

// Fake grid: infinite air over a solid floor, with chunks optionally marked
// unloaded. Mirrors just enough of the world store for white-box tests.

const (
	tAir     uint16 = 0
	tStone   uint16 = 1
	tSource  uint16 = 8
	tFlowing uint16 = 9
)

type fakeGrid struct {
	minY, maxY int
	floorY     int

	blocks   map[uint64]uint16
	meta     map[uint64]int
	unloaded map[uint64]bool

	hook func(x, y, z int, newType uint16, newMeta int, oldType uint16)
}

func newFakeGrid() *fakeGrid {
	return &fakeGrid{
		minY:     0,
		maxY:     63,
		floorY:   4,
		blocks:   map[uint64]uint16{},
		meta:     map[uint64]int{},
		unloaded: map[uint64]bool{},
	}
}

func (g *fakeGrid) GetBlock(x, y, z int) uint16 {
	if b, ok := g.blocks[PackPos(x, y, z)]; ok {
		return b
	}
	if y <= g.floorY {
		return tStone
	}
	return tAir
}

func (g *fakeGrid) GetBlockMetadata(x, y, z int) int { return g.meta[PackPos(x, y, z)] }

func (g *fakeGrid) SetBlockMetadata(x, y, z, meta int) { g.meta[PackPos(x, y, z)] = meta }

func (g *fakeGrid) SetBlock(x, y, z int, id uint16, meta int) {
	old := g.GetBlock(x, y, z)
	g.blocks[PackPos(x, y, z)] = id
	g.meta[PackPos(x, y, z)] = meta
	if g.hook != nil && old != id {
		g.hook(x, y, z, id, meta, old)
	}
}

func (g *fakeGrid) IsChunkLoaded(x, z int) bool {
	return !g.unloaded[packChunk(floorDiv(x, chunkSize), floorDiv(z, chunkSize))]
}

func (g *fakeGrid) MinY() int { return g.minY }
func (g *fakeGrid) MaxY() int { return g.maxY }

type fakeInfo struct{}

func (fakeInfo) IsSolid(id uint16) bool       { return id == tStone }
func (fakeInfo) IsReplaceable(id uint16) bool { return id == tAir }

func testIDs() BlockIDs { return BlockIDs{Air: tAir, Source: tSource, Flowing: tFlowing} }

func newTestEngine(cfg Config) (*Engine, *fakeGrid) {
	g := newFakeGrid()
	cfg.Blocks = testIDs()
	e := New(g, fakeInfo{}, cfg)
	g.hook = e.OnBlockChanged
	return e, g
}

func TestEngine_StatsReflectCounters(t *testing.T) {
	e, g := newTestEngine(Config{})

	g.SetBlock(0, 5, 0, tSource, 0)
	for i := 0; i < 50; i++ {
		e.Tick()
	}

	st := e.Stats()
	if st.BlocksPlaced == 0 {
		t.Fatalf("expected placed blocks after source spread")
	}
	if st.QueueSize != 0 {
		t.Fatalf("queue not drained: %d", st.QueueSize)
	}
}

func TestEngine_PauseStopsEvaluation(t *testing.T) {
	e, g := newTestEngine(Config{})

	e.Pause()
	g.SetBlock(0, 5, 0, tSource, 0)
	before := e.Queue().Len()
	e.Tick()
	if e.Queue().Len() != before {
		t.Fatalf("paused tick drained the queue")
	}

	e.Resume()
	e.Tick()
	if e.Stats().BlocksPlaced == 0 {
		t.Fatalf("resume did not restart evaluation")
	}
}

func TestEngine_ClearQueueDropsSettling(t *testing.T) {
	e, g := newTestEngine(Config{})
	g.SetBlock(0, 5, 0, tSource, 0)
	g.SetBlock(2, 5, 0, tSource, 0)
	e.Tick()
	e.Tick()

	e.ClearQueue()
	st := e.Stats()
	if st.QueueSize != 0 || st.SettlingCells != 0 {
		t.Fatalf("ClearQueue left queue=%d settling=%d", st.QueueSize, st.SettlingCells)
	}
}

func TestEngine_ClearInRadius(t *testing.T) {
	e, g := newTestEngine(Config{})
	g.SetBlock(0, 5, 0, tSource, 0)
	for i := 0; i < 60; i++ {
		e.Tick()
	}
	if e.Stats().QueueSize != 0 {
		t.Fatalf("pool did not converge")
	}

	n := e.ClearInRadius(0, 5, 0, 2)
	if n == 0 {
		t.Fatalf("nothing cleared")
	}
	if g.GetBlock(0, 5, 0) != tAir {
		t.Fatalf("source inside radius should be cleared")
	}

	// Everything outside the cube decays: the source is gone.
	for i := 0; i < 400; i++ {
		e.Tick()
	}
	for x := -9; x <= 9; x++ {
		for z := -9; z <= 9; z++ {
			if b := g.GetBlock(x, 5, z); b == tSource || b == tFlowing {
				t.Fatalf("orphan liquid at (%d,5,%d)", x, z)
			}
		}
	}
}

func TestEngine_UnloadedChunkIsBoundary(t *testing.T) {
	e, g := newTestEngine(Config{})
	// Source one block from an unloaded chunk border.
	g.unloaded[packChunk(1, 0)] = true
	g.SetBlock(15, 5, 0, tSource, 0)
	for i := 0; i < 60; i++ {
		e.Tick()
	}

	if b := g.blocks[PackPos(16, 5, 0)]; b == tFlowing {
		t.Fatalf("liquid wrote into an unloaded chunk")
	}
	if g.GetBlock(14, 5, 0) != tFlowing {
		t.Fatalf("spread away from the boundary should continue")
	}
}

func TestEffectiveMaxDepth_Splash(t *testing.T) {
	e, _ := newTestEngine(Config{})
	if got := e.effectiveMaxDepth(0); got != MaxDepth {
		t.Fatalf("no fall: %d, want %d", got, MaxDepth)
	}
	if got := e.effectiveMaxDepth(3); got != 4 {
		t.Fatalf("fall 3: %d, want 4", got)
	}
	if got := e.effectiveMaxDepth(9); got != e.cfg.SplashMinDepth {
		t.Fatalf("deep fall: %d, want clamp %d", got, e.cfg.SplashMinDepth)
	}
}

func TestAdjustBudget_ThrottleCycle(t *testing.T) {
	e, _ := newTestEngine(Config{
		MaxBudget:           16,
		MinBudget:           4,
		FullTicksToThrottle: 2,
		LowWaterMark:        2,
	})

	// Simulate consecutive full drains.
	e.adjustBudget(16)
	e.adjustBudget(16)
	if e.budget != 8 || !e.throttled {
		t.Fatalf("after 2 full ticks: budget=%d throttled=%v", e.budget, e.throttled)
	}
	e.adjustBudget(8)
	e.adjustBudget(8)
	if e.budget != 4 {
		t.Fatalf("second halving: budget=%d", e.budget)
	}
	e.adjustBudget(4)
	e.adjustBudget(4)
	if e.budget != 4 {
		t.Fatalf("budget went below min: %d", e.budget)
	}

	// Queue empty: budget doubles back and the flag clears at max.
	e.adjustBudget(0)
	e.adjustBudget(0)
	if e.budget != 16 || e.throttled {
		t.Fatalf("recovery: budget=%d throttled=%v", e.budget, e.throttled)
	}
}
