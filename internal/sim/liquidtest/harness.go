package liquidtest

import (
	"io"
	"log"
	"path/filepath"
	"testing"

	"voxelflow.ai/internal/sim/catalogs"
	"voxelflow.ai/internal/sim/liquid"
	"voxelflow.ai/internal/sim/world"
)

// Harness is a black-box test helper for driving the liquid engine through
// its public surface: external mutations go through the chunk store's
// SetBlock (so the change hook fires, exactly like production traffic), and
// time advances via the scheduler's deterministic TickOnce.
type Harness struct {
	T     *testing.T
	Cats  *catalogs.Catalogs
	Store *world.ChunkStore
	Eng   *liquid.Engine
	Sched *liquid.Scheduler

	IDs liquid.BlockIDs

	// SurfaceY is the flat terrain's top solid layer; liquid placed at
	// SurfaceY+1 sits on the ground.
	SurfaceY int

	events []liquid.WriteEvent
}

// NewHarness builds a flat 5x5-chunk world around the origin with default
// engine tuning.
func NewHarness(t *testing.T) *Harness {
	return NewHarnessConfig(t, liquid.Config{})
}

func NewHarnessConfig(t *testing.T, cfg liquid.Config) *Harness {
	t.Helper()

	cats, err := catalogs.Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	id := func(name string) uint16 {
		v, ok := cats.ID(name)
		if !ok {
			t.Fatalf("catalog missing block %q", name)
		}
		return v
	}

	gen := world.WorldGen{
		Seed:         1,
		Height:       32,
		SurfaceY:     8,
		Flat:         true,
		Air:          id("AIR"),
		Bedrock:      id("BEDROCK"),
		Stone:        id("STONE"),
		Dirt:         id("DIRT"),
		Grass:        id("GRASS"),
		Sand:         id("SAND"),
		WaterSource:  id("WATER_SOURCE"),
		WaterFlowing: id("WATER_FLOWING"),
	}
	store := world.NewChunkStore(gen)
	for cx := -2; cx <= 2; cx++ {
		for cz := -2; cz <= 2; cz++ {
			store.LoadChunk(cx, cz)
		}
	}

	cfg.Blocks = liquid.BlockIDs{
		Air:     gen.Air,
		Source:  gen.WaterSource,
		Flowing: gen.WaterFlowing,
	}
	eng := liquid.New(store, cats, cfg)
	store.SetChangeHook(eng.OnBlockChanged)

	h := &Harness{
		T:        t,
		Cats:     cats,
		Store:    store,
		Eng:      eng,
		IDs:      cfg.Blocks,
		SurfaceY: gen.SurfaceY,
	}
	h.Sched = liquid.NewScheduler(eng, store, 0, log.New(io.Discard, "", 0))
	h.Sched.SetTickHook(func(tick uint64, st liquid.Stats, events []liquid.WriteEvent) {
		h.events = append(h.events, events...)
	})
	return h
}

// Set places a block by catalog name through the public mutation path.
func (h *Harness) Set(x, y, z int, name string) {
	h.T.Helper()
	id, ok := h.Cats.ID(name)
	if !ok {
		h.T.Fatalf("unknown block %q", name)
	}
	h.Store.SetBlock(x, y, z, id, 0)
}

func (h *Harness) Tick() { h.Sched.TickOnce(nil) }

func (h *Harness) TickN(n int) {
	for i := 0; i < n; i++ {
		h.Tick()
	}
}

// TickUntilQuiet advances until the work queue drains, failing the test if
// the engine has not converged within maxTicks. Returns the tick count used.
func (h *Harness) TickUntilQuiet(maxTicks int) int {
	h.T.Helper()
	for i := 0; i < maxTicks; i++ {
		if h.Eng.Stats().QueueSize == 0 {
			return i
		}
		h.Tick()
	}
	h.T.Fatalf("engine did not converge within %d ticks (queue=%d)", maxTicks, h.Eng.Stats().QueueSize)
	return maxTicks
}

// DrainEvents returns and clears the engine writes observed since the last
// call.
func (h *Harness) DrainEvents() []liquid.WriteEvent {
	out := h.events
	h.events = nil
	return out
}

func (h *Harness) Block(x, y, z int) uint16 { return h.Store.GetBlock(x, y, z) }

func (h *Harness) Name(x, y, z int) string { return h.Cats.Name(h.Block(x, y, z)) }

func (h *Harness) IsAir(x, y, z int) bool     { return h.Block(x, y, z) == h.IDs.Air }
func (h *Harness) IsSource(x, y, z int) bool  { return h.Block(x, y, z) == h.IDs.Source }
func (h *Harness) IsFlowing(x, y, z int) bool { return h.Block(x, y, z) == h.IDs.Flowing }

// State decodes the liquid metadata of a cell.
func (h *Harness) State(x, y, z int) (depth int, falling bool, fallDist int) {
	return liquid.DecodeMeta(h.Store.GetBlockMetadata(x, y, z))
}

func (h *Harness) Depth(x, y, z int) int {
	d, _, _ := h.State(x, y, z)
	return d
}

// RequireFlowingDepth asserts a cell is flowing liquid with the given depth.
func (h *Harness) RequireFlowingDepth(x, y, z, depth int) {
	h.T.Helper()
	if !h.IsFlowing(x, y, z) {
		h.T.Fatalf("(%d,%d,%d): want flowing, got %s", x, y, z, h.Name(x, y, z))
	}
	if d := h.Depth(x, y, z); d != depth {
		h.T.Fatalf("(%d,%d,%d): want depth %d, got %d", x, y, z, depth, d)
	}
}

func (h *Harness) RequireAir(x, y, z int) {
	h.T.Helper()
	if !h.IsAir(x, y, z) {
		h.T.Fatalf("(%d,%d,%d): want air, got %s", x, y, z, h.Name(x, y, z))
	}
}

// ChunkDigests captures the full grid state for before/after comparisons.
func (h *Harness) ChunkDigests() map[world.ChunkKey][32]byte {
	out := make(map[world.ChunkKey][32]byte, len(h.Store.Chunks))
	for _, k := range h.Store.LoadedChunkKeys() {
		out[k] = h.Store.Chunks[k].Digest()
	}
	return out
}

// CountLiquid returns the number of liquid cells in the loaded world.
func (h *Harness) CountLiquid() int {
	n := 0
	h.Store.ForEachOfType(h.IDs.Source, func(x, y, z int) { n++ })
	h.Store.ForEachOfType(h.IDs.Flowing, func(x, y, z int) { n++ })
	return n
}
