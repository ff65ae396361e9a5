package liquid

import "sort"

// Grid is the voxel storage the engine runs against. It is owned by the
// world subsystem; the engine is the sole writer of liquid-typed cells and
// every SetBlock is observable (it re-enters OnBlockChanged, guarded).
type Grid interface {
	GetBlock(x, y, z int) uint16
	GetBlockMetadata(x, y, z int) int
	SetBlockMetadata(x, y, z, meta int)
	SetBlock(x, y, z int, id uint16, meta int)
	// IsChunkLoaded takes block coordinates. Unloaded chunks are opaque
	// boundaries: never assume empty space past them.
	IsChunkLoaded(x, z int) bool
	MinY() int
	MaxY() int
}

// BlockInfo classifies block types; backed by the block catalog.
type BlockInfo interface {
	IsSolid(id uint16) bool
	IsReplaceable(id uint16) bool
}

// BlockIDs names the three block types the engine reads and writes.
type BlockIDs struct {
	Air     uint16
	Source  uint16
	Flowing uint16
}

type Config struct {
	Blocks BlockIDs

	QueueCapacity         int
	MaxBudget             int
	MinBudget             int
	MaxPerChunk           int
	FullTicksToThrottle   int
	LowWaterMark          int
	SettleTicks           int
	MaxConversionsPerTick int
	PathSearchRange       int
	FallCap               int
	DissipateAtFallCap    bool
	SplashMinDepth        int
	CascadeSearchLimit    int
}

func (c Config) withDefaults() Config {
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 1 << 15
	}
	if c.MaxBudget <= 0 {
		c.MaxBudget = 512
	}
	if c.MinBudget <= 0 {
		c.MinBudget = 32
	}
	if c.MaxPerChunk <= 0 {
		c.MaxPerChunk = 64
	}
	if c.FullTicksToThrottle <= 0 {
		c.FullTicksToThrottle = 4
	}
	if c.LowWaterMark <= 0 {
		c.LowWaterMark = 64
	}
	if c.SettleTicks <= 0 {
		c.SettleTicks = 4
	}
	if c.MaxConversionsPerTick <= 0 {
		c.MaxConversionsPerTick = 4
	}
	if c.PathSearchRange <= 0 {
		c.PathSearchRange = 4
	}
	if c.FallCap <= 0 {
		c.FallCap = 12
	}
	if c.SplashMinDepth <= 0 {
		c.SplashMinDepth = 2
	}
	if c.CascadeSearchLimit <= 0 {
		c.CascadeSearchLimit = 256
	}
	return c
}

// Stats is the engine's observability surface.
type Stats struct {
	QueueSize         int    `json:"queue_size"`
	Throttled         bool   `json:"throttled"`
	CurrentBudget     int    `json:"current_budget"`
	DroppedUpdates    uint64 `json:"dropped_updates"`
	SettlingCells     int    `json:"settling_cells"`
	BlocksPlaced      uint64 `json:"blocks_placed"`
	BlocksRemoved     uint64 `json:"blocks_removed"`
	SourceConversions uint64 `json:"source_conversions"`
}

// WriteEvent describes one grid write made by the engine itself.
type WriteEvent struct {
	X, Y, Z int
	From    uint16
	To      uint16
	Meta    int
	Reason  string
}

// Write reasons.
const (
	ReasonInstantFall   = "INSTANT_FALL"
	ReasonCascadeRemove = "CASCADE_REMOVE"
	ReasonSpread        = "SPREAD"
	ReasonDecay         = "DECAY"
	ReasonSourceConvert = "SOURCE_CONVERT"
	ReasonClearRadius   = "CLEAR_RADIUS"
)

// Engine is a single-threaded liquid automaton over one grid. All mutable
// state (queue, settling counters, budget) lives on the instance; it must be
// driven from one goroutine, normally the Scheduler's.
type Engine struct {
	grid Grid
	info BlockInfo
	cfg  Config

	queue    *WorkQueue
	settling map[uint64]int

	// Re-entrancy guard: cascade/column internal writes re-enter
	// OnBlockChanged through the grid; those routines already account for
	// every affected cell themselves.
	suppress bool

	paused              bool
	budget              int
	fullTicks           int
	throttled           bool
	conversionsThisTick int

	blocksPlaced      uint64
	blocksRemoved     uint64
	sourceConversions uint64

	observer func(WriteEvent)
}

func New(grid Grid, info BlockInfo, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		grid:     grid,
		info:     info,
		cfg:      cfg,
		queue:    NewWorkQueue(cfg.QueueCapacity),
		settling: make(map[uint64]int),
		budget:   cfg.MaxBudget,
	}
}

// SetWriteObserver installs a callback invoked for every engine-made grid
// write. Used for audit logging and observer replication; may be nil.
func (e *Engine) SetWriteObserver(fn func(WriteEvent)) { e.observer = fn }

func (e *Engine) Queue() *WorkQueue { return e.queue }

func (e *Engine) Pause()  { e.paused = true }
func (e *Engine) Resume() { e.paused = false }

func (e *Engine) Paused() bool { return e.paused }

func (e *Engine) ClearQueue() {
	e.queue.Clear()
	e.settling = make(map[uint64]int)
}

func (e *Engine) Stats() Stats {
	return Stats{
		QueueSize:         e.queue.Len(),
		Throttled:         e.throttled,
		CurrentBudget:     e.budget,
		DroppedUpdates:    e.queue.Dropped(),
		SettlingCells:     len(e.settling),
		BlocksPlaced:      e.blocksPlaced,
		BlocksRemoved:     e.blocksRemoved,
		SourceConversions: e.sourceConversions,
	}
}

// ClearInRadius erases every liquid cell in the cube of the given radius,
// bypassing the queue. Returns the number of cells cleared.
func (e *Engine) ClearInRadius(cx, cy, cz, radius int) int {
	if e.grid == nil || radius < 0 {
		return 0
	}
	count := 0
	for dy := -radius; dy <= radius; dy++ {
		y := cy + dy
		if y < e.grid.MinY() || y > e.grid.MaxY() {
			continue
		}
		for dz := -radius; dz <= radius; dz++ {
			for dx := -radius; dx <= radius; dx++ {
				x, z := cx+dx, cz+dz
				if !e.loadedAt(x, z) {
					continue
				}
				if !e.isLiquid(e.grid.GetBlock(x, y, z)) {
					continue
				}
				e.clearCell(x, y, z, ReasonClearRadius)
				count++
			}
		}
	}
	if count > 0 {
		e.enqueueRingLiquid(cx, cy, cz, radius)
	}
	return count
}

// enqueueRingLiquid seeds re-evaluation of liquid just outside a cleared cube.
func (e *Engine) enqueueRingLiquid(cx, cy, cz, radius int) {
	r := radius + 1
	for dy := -r; dy <= r; dy++ {
		for dz := -r; dz <= r; dz++ {
			for dx := -r; dx <= r; dx++ {
				if absInt(dx) != r && absInt(dy) != r && absInt(dz) != r {
					continue
				}
				x, y, z := cx+dx, cy+dy, cz+dz
				if e.isLiquidAt(x, y, z) {
					e.enqueue(x, y, z)
				}
			}
		}
	}
}

// Tick runs one scheduler step: advance settling counters, drain a budgeted
// batch, evaluate each coordinate, and adjust the adaptive budget.
func (e *Engine) Tick() {
	if e.paused || e.grid == nil {
		return
	}
	e.conversionsThisTick = 0
	e.advanceSettling()

	batch := e.queue.DrainBatch(e.budget, e.cfg.MaxPerChunk)
	for _, k := range batch {
		x, y, z := UnpackPos(k)
		if !e.Evaluate(x, y, z) {
			e.queue.Remove(k)
		}
	}
	e.adjustBudget(len(batch))
}

func (e *Engine) adjustBudget(drained int) {
	if drained >= e.budget && drained > 0 {
		e.fullTicks++
	} else {
		e.fullTicks = 0
	}
	if e.fullTicks >= e.cfg.FullTicksToThrottle && e.budget > e.cfg.MinBudget {
		e.budget /= 2
		if e.budget < e.cfg.MinBudget {
			e.budget = e.cfg.MinBudget
		}
		e.throttled = true
		e.fullTicks = 0
	}
	if e.queue.Len() < e.cfg.LowWaterMark && e.budget < e.cfg.MaxBudget {
		e.budget *= 2
		if e.budget >= e.cfg.MaxBudget {
			e.budget = e.cfg.MaxBudget
			e.throttled = false
		}
	}
}

// advanceSettling re-checks every settling candidate live each tick. Any
// broken condition resets the counter to absent; conversions are
// rate-limited per tick, qualifying cells simply retry next tick.
func (e *Engine) advanceSettling() {
	if len(e.settling) == 0 {
		return
	}
	keys := make([]uint64, 0, len(e.settling))
	for k := range e.settling {
		keys = append(keys, k)
	}
	sortKeys(keys)
	for _, k := range keys {
		x, y, z := UnpackPos(k)
		if !e.qualifiesForSource(x, y, z) {
			delete(e.settling, k)
			continue
		}
		n := e.settling[k] + 1
		e.settling[k] = n
		if n < e.cfg.SettleTicks {
			continue
		}
		if e.conversionsThisTick >= e.cfg.MaxConversionsPerTick {
			continue
		}
		e.conversionsThisTick++
		e.sourceConversions++
		delete(e.settling, k)
		e.writeQuiet(x, y, z, e.cfg.Blocks.Source, 0, ReasonSourceConvert)
		e.enqueue(x, y, z)
		e.enqueueLiquidNeighbors(x, y, z)
	}
}

// qualifiesForSource: flowing, not falling, solid-or-source support below,
// at least two adjacent sources.
func (e *Engine) qualifiesForSource(x, y, z int) bool {
	if !e.loadedAt(x, z) {
		return false
	}
	if e.grid.GetBlock(x, y, z) != e.cfg.Blocks.Flowing {
		return false
	}
	if _, falling, _ := DecodeMeta(e.grid.GetBlockMetadata(x, y, z)); falling {
		return false
	}
	if y-1 < e.grid.MinY() {
		return false
	}
	below := e.grid.GetBlock(x, y-1, z)
	if below != e.cfg.Blocks.Source && !e.info.IsSolid(below) {
		return false
	}
	sources := 0
	for _, d := range horizontalDirs {
		nx, nz := x+d.dx, z+d.dz
		if !e.loadedAt(nx, nz) {
			continue
		}
		if e.grid.GetBlock(nx, y, nz) == e.cfg.Blocks.Source {
			sources++
		}
	}
	return sources >= 2
}

func (e *Engine) registerSettlingCandidate(x, y, z int) {
	k := PackPos(x, y, z)
	if e.qualifiesForSource(x, y, z) {
		if _, ok := e.settling[k]; !ok {
			e.settling[k] = 0
		}
	} else {
		delete(e.settling, k)
	}
}

// --- classification helpers ---

var horizontalDirs = [4]struct{ dx, dz int }{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
}

func (e *Engine) isLiquid(id uint16) bool {
	return id == e.cfg.Blocks.Source || id == e.cfg.Blocks.Flowing
}

// canDisplace: air/replaceable blocks and non-source flowing liquid.
func (e *Engine) canDisplace(id uint16) bool {
	return id == e.cfg.Blocks.Flowing || e.info.IsReplaceable(id)
}

func (e *Engine) loadedAt(x, z int) bool {
	return e.grid.IsChunkLoaded(x, z)
}

func (e *Engine) isLiquidAt(x, y, z int) bool {
	if y < e.grid.MinY() || y > e.grid.MaxY() || !e.loadedAt(x, z) {
		return false
	}
	return e.isLiquid(e.grid.GetBlock(x, y, z))
}

func (e *Engine) isFallingLiquidAt(x, y, z int) bool {
	if !e.isLiquidAt(x, y, z) {
		return false
	}
	_, falling, _ := DecodeMeta(e.grid.GetBlockMetadata(x, y, z))
	return falling
}

// liquidState reads the effective (depth, falling, fallDistance) of a liquid
// cell; sources always read as depth 0, fall distance 0.
func (e *Engine) liquidState(x, y, z int) (depth int, falling bool, fallDist int) {
	if e.grid.GetBlock(x, y, z) == e.cfg.Blocks.Source {
		_, falling, _ = DecodeMeta(e.grid.GetBlockMetadata(x, y, z))
		return 0, falling, 0
	}
	return DecodeMeta(e.grid.GetBlockMetadata(x, y, z))
}

// canDisplaceBelow reports whether liquid at (x,y,z) could move down.
func (e *Engine) canDisplaceBelow(x, y, z int) bool {
	if y-1 < e.grid.MinY() {
		return false
	}
	return e.canDisplace(e.grid.GetBlock(x, y-1, z))
}

// effectiveMaxDepth shrinks the pool radius for liquid that fell a long way.
func (e *Engine) effectiveMaxDepth(fallDist int) int {
	m := MaxDepth - fallDist
	if m < e.cfg.SplashMinDepth {
		m = e.cfg.SplashMinDepth
	}
	return m
}

// --- write helpers ---

// writeQuiet is the private grid-write path for engine-internal mutations.
// It suppresses the recursive notification; callers enqueue the precomputed
// neighbor set themselves. Reports whether the cell actually changed.
func (e *Engine) writeQuiet(x, y, z int, id uint16, meta int, reason string) bool {
	old := e.grid.GetBlock(x, y, z)
	if old == id && e.grid.GetBlockMetadata(x, y, z) == meta {
		return false
	}
	prev := e.suppress
	e.suppress = true
	e.grid.SetBlock(x, y, z, id, meta)
	e.suppress = prev

	if e.isLiquid(id) && !e.isLiquid(old) {
		e.blocksPlaced++
	}
	if !e.isLiquid(id) && e.isLiquid(old) {
		e.blocksRemoved++
	}
	if e.observer != nil {
		e.observer(WriteEvent{X: x, Y: y, Z: z, From: old, To: id, Meta: meta, Reason: reason})
	}
	return true
}

func (e *Engine) clearCell(x, y, z int, reason string) {
	k := PackPos(x, y, z)
	e.writeQuiet(x, y, z, e.cfg.Blocks.Air, 0, reason)
	e.queue.Remove(k)
	delete(e.settling, k)
}

func (e *Engine) enqueue(x, y, z int) {
	if y < e.grid.MinY() || y > e.grid.MaxY() {
		return
	}
	if !e.loadedAt(x, z) {
		return
	}
	e.queue.Enqueue(x, y, z)
}

func (e *Engine) enqueueLiquidNeighbors(x, y, z int) {
	for _, d := range horizontalDirs {
		if e.isLiquidAt(x+d.dx, y, z+d.dz) {
			e.enqueue(x+d.dx, y, z+d.dz)
		}
	}
	if e.isLiquidAt(x, y+1, z) {
		e.enqueue(x, y+1, z)
	}
	if e.isLiquidAt(x, y-1, z) {
		e.enqueue(x, y-1, z)
	}
}

func (e *Engine) enqueueHorizontalNeighbors(x, y, z int) {
	for _, d := range horizontalDirs {
		e.enqueue(x+d.dx, y, z+d.dz)
	}
}

func sortKeys(keys []uint64) {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
}
