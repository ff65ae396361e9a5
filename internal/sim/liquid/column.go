package liquid

// InstantFall materializes an entire vertical falling column in one pass.
// It scans downward from startY while the grid reports displaceable cells,
// writes flowing liquid into every scanned cell, and enqueues only the
// terminal cell and its horizontal neighbors. Intermediate column cells are
// never independently enqueued: an N-cell waterfall costs O(1) queue growth.
func (e *Engine) InstantFall(x, startY, z, incomingFallDistance int) (terminalY, blocksPlaced int) {
	if e.grid == nil || !e.loadedAt(x, z) {
		return startY, 0
	}
	if startY < e.grid.MinY() || startY > e.grid.MaxY() {
		return startY, 0
	}

	// Only the topmost placed cell inherits depth from the liquid it fell
	// out of; deeper cells carry depth 0.
	inheritDepth := 0
	if e.isLiquidAt(x, startY+1, z) {
		d, _, _ := e.liquidState(x, startY+1, z)
		inheritDepth = d
	}

	fallDist := satFallDistance(incomingFallDistance)
	y := startY
	for y >= e.grid.MinY() {
		if !e.canDisplace(e.grid.GetBlock(x, y, z)) {
			break
		}
		fallDist = satFallDistance(fallDist + 1)
		if e.cfg.DissipateAtFallCap && fallDist >= e.cfg.FallCap {
			// Policy: liquid thins out entirely past the fall cap.
			break
		}
		depth := 0
		if y == startY {
			depth = inheritDepth
		}
		if e.writeQuiet(x, y, z, e.cfg.Blocks.Flowing, EncodeMeta(depth, true, fallDist), ReasonInstantFall) {
			blocksPlaced++
		}
		y--
	}

	terminalY = y + 1
	if blocksPlaced == 0 {
		return startY, 0
	}
	e.enqueue(x, terminalY, z)
	e.enqueueHorizontalNeighbors(x, terminalY, z)
	return terminalY, blocksPlaced
}

// CascadeRemove erases the flowing network at (x,startY,z) that can no
// longer prove a source path. Cells still reachable from another source
// survive. Returns the number of cells erased.
func (e *Engine) CascadeRemove(x, startY, z int) int {
	if e.grid == nil || !e.loadedAt(x, z) {
		return 0
	}
	if startY < e.grid.MinY() || startY > e.grid.MaxY() {
		return 0
	}
	if e.grid.GetBlock(x, startY, z) != e.cfg.Blocks.Flowing {
		return 0
	}

	if removed, ok := e.cascadeFastPath(x, startY, z); ok {
		return removed
	}
	return e.cascadeGeneral(x, startY, z)
}

// cascadeFastPath handles the common case of a pure vertical falling stack
// with no adjacent liquid: scan and batch-erase directly, no BFS.
func (e *Engine) cascadeFastPath(x, startY, z int) (int, bool) {
	if e.isLiquidAt(x, startY+1, z) {
		return 0, false
	}
	// Pre-scan: the whole stack must be falling flowing cells with no
	// horizontal liquid neighbors, otherwise a sibling network could be
	// supplying part of it.
	endY := startY
	for y := startY; y >= e.grid.MinY(); y-- {
		id := e.grid.GetBlock(x, y, z)
		if id != e.cfg.Blocks.Flowing {
			break
		}
		if _, falling, _ := DecodeMeta(e.grid.GetBlockMetadata(x, y, z)); !falling {
			return 0, false
		}
		for _, d := range horizontalDirs {
			if e.isLiquidAt(x+d.dx, y, z+d.dz) {
				return 0, false
			}
		}
		endY = y
	}

	removed := 0
	for y := startY; y >= endY; y-- {
		e.clearCell(x, y, z, ReasonCascadeRemove)
		removed++
	}
	// Liquid under the stack terminal may have lost its supply.
	if e.isLiquidAt(x, endY-1, z) {
		e.enqueue(x, endY-1, z)
	}
	return removed, true
}

// cascadeGeneral breadth-first-marks flowing cells orphaned unless they can
// prove a still-valid source path excluding cells already marked orphaned in
// this pass, then batch-erases the orphaned set.
func (e *Engine) cascadeGeneral(x, startY, z int) int {
	orphans := map[uint64]struct{}{}
	frontier := []uint64{PackPos(x, startY, z)}
	orphans[frontier[0]] = struct{}{}

	// Collect the candidate region: flowing cells reachable through
	// horizontal and downward steps, bounded so a huge network degrades to
	// ordinary per-cell decay instead of an unbounded scan.
	for len(frontier) > 0 && len(orphans) < e.cfg.CascadeSearchLimit {
		k := frontier[0]
		frontier = frontier[1:]
		cx, cy, cz := UnpackPos(k)
		for _, n := range e.downstreamNeighbors(cx, cy, cz) {
			if _, ok := orphans[n]; ok {
				continue
			}
			nx, ny, nz := UnpackPos(n)
			if e.grid.GetBlock(nx, ny, nz) != e.cfg.Blocks.Flowing {
				continue
			}
			orphans[n] = struct{}{}
			frontier = append(frontier, n)
		}
	}

	// Rescue fixpoint: un-orphan cells with support from outside the set.
	// Mutually-dependent cells cannot validate each other because support
	// must come from a non-orphan.
	for {
		rescued := false
		for k := range orphans {
			kx, ky, kz := UnpackPos(k)
			if e.hasExternalSupport(kx, ky, kz, orphans) {
				delete(orphans, k)
				rescued = true
			}
		}
		if !rescued {
			break
		}
	}

	removed := 0
	for k := range orphans {
		kx, ky, kz := UnpackPos(k)
		e.clearCell(kx, ky, kz, ReasonCascadeRemove)
		removed++
	}
	// Re-seed surviving liquid adjacent to the removed region.
	for k := range orphans {
		kx, ky, kz := UnpackPos(k)
		e.enqueueLiquidNeighbors(kx, ky, kz)
	}
	return removed
}

// downstreamNeighbors lists the cells whose supply could have run through
// (x,y,z): the four horizontal neighbors and the cell below.
func (e *Engine) downstreamNeighbors(x, y, z int) []uint64 {
	out := make([]uint64, 0, 5)
	for _, d := range horizontalDirs {
		nx, nz := x+d.dx, z+d.dz
		if e.loadedAt(nx, nz) {
			out = append(out, PackPos(nx, y, nz))
		}
	}
	if y-1 >= e.grid.MinY() {
		out = append(out, PackPos(x, y-1, z))
	}
	return out
}

func (e *Engine) hasExternalSupport(x, y, z int, orphans map[uint64]struct{}) bool {
	// Vertical supply from above.
	if e.isLiquidAt(x, y+1, z) {
		if _, ok := orphans[PackPos(x, y+1, z)]; !ok {
			return true
		}
	}
	myDepth, _, _ := e.liquidState(x, y, z)
	for _, d := range horizontalDirs {
		nx, nz := x+d.dx, z+d.dz
		if !e.loadedAt(nx, nz) {
			continue
		}
		id := e.grid.GetBlock(nx, y, nz)
		if id == e.cfg.Blocks.Source {
			return true
		}
		if id != e.cfg.Blocks.Flowing {
			continue
		}
		if _, ok := orphans[PackPos(nx, y, nz)]; ok {
			continue
		}
		nd, _, _ := e.liquidState(nx, y, nz)
		if nd < myDepth {
			return true
		}
	}
	return false
}
