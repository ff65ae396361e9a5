package liquid

// Evaluate is the per-cell transition function. It reports whether the cell
// (or anything it wrote to) changed; re-evaluating a converged cell is a
// no-op, which is what lets the scheduler drop idle queue entries.
func (e *Engine) Evaluate(x, y, z int) bool {
	if e.grid == nil || e.info == nil {
		return false
	}
	if !e.loadedAt(x, z) || y < e.grid.MinY() || y > e.grid.MaxY() {
		return false
	}
	id := e.grid.GetBlock(x, y, z)
	if !e.isLiquid(id) {
		// Stale queue entry.
		return false
	}
	isSource := id == e.cfg.Blocks.Source

	meta := e.grid.GetBlockMetadata(x, y, z)
	depth, falling, fallDist := DecodeMeta(meta)
	if isSource {
		depth, fallDist = 0, 0
	}

	// Interior waterfall cells were already normalized top-down by
	// InstantFall; recomputing them would cost O(N) per waterfall. The
	// landing cell (solid below) is not interior: it still spreads.
	if !isSource && falling && e.isFallingLiquidAt(x, y+1, z) && e.canDisplaceBelow(x, y, z) {
		return false
	}

	changed := false
	if isSource {
		newFalling := e.canDisplaceBelow(x, y, z) || e.isLiquidAt(x, y+1, z)
		if newMeta := EncodeMeta(0, newFalling, 0); newMeta != meta {
			e.grid.SetBlockMetadata(x, y, z, newMeta)
			changed = true
		}
		falling = newFalling
	} else {
		supDepth, supFallDist, ok := e.bestSupply(x, y, z)
		newDepth := supDepth + 1
		if !ok || newDepth > MaxDepth || newDepth > e.effectiveMaxDepth(supFallDist) {
			// Supply path is cut: clear and let the neighbors re-derive.
			e.clearCell(x, y, z, ReasonDecay)
			e.enqueueLiquidNeighbors(x, y, z)
			return true
		}
		// Falling stays set while the cell above is liquid so a waterfall
		// renders at full height even where it lands on a ledge.
		newFalling := e.canDisplaceBelow(x, y, z) || e.isLiquidAt(x, y+1, z)
		if newMeta := EncodeMeta(newDepth, newFalling, supFallDist); newMeta != meta {
			e.grid.SetBlockMetadata(x, y, z, newMeta)
			changed = true
			if newDepth > depth {
				// Weakening must propagate: dependents holding a depth
				// derived from the old value re-derive or decay.
				e.enqueueLiquidNeighbors(x, y, z)
			}
		}
		depth, falling, fallDist = newDepth, newFalling, supFallDist
	}

	// Downward strictly pre-empts horizontal spread.
	if e.canDisplaceBelow(x, y, z) {
		_, placed := e.InstantFall(x, y-1, z, fallDist)
		return changed || placed > 0
	}

	if !isSource {
		e.registerSettlingCandidate(x, y, z)
	}
	if depth >= e.effectiveMaxDepth(fallDist) {
		return changed
	}
	if e.spread(x, y, z, depth+1, fallDist) {
		changed = true
	}
	return changed
}

// bestSupply finds the minimum-depth supplying neighbor: the four horizontal
// neighbors, plus the cell above (vertical supply keeps a landing cell alive
// under a waterfall). Adjacency to a source contributes depth 0 directly.
func (e *Engine) bestSupply(x, y, z int) (depth, fallDist int, ok bool) {
	best, bestFd := -1, 0
	if e.isLiquidAt(x, y+1, z) {
		d, _, fd := e.liquidState(x, y+1, z)
		if best < 0 || d < best {
			best, bestFd = d, satFallDistance(fd+1)
		}
	}
	for _, dir := range horizontalDirs {
		nx, nz := x+dir.dx, z+dir.dz
		if !e.isLiquidAt(nx, y, nz) {
			continue
		}
		d, _, fd := e.liquidState(nx, y, nz)
		if best < 0 || d < best {
			best, bestFd = d, fd
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	return best, bestFd, true
}

// spread writes flowing liquid into every displaceable horizontal neighbor
// tied at the minimum path score, but only where it strictly decreases the
// neighbor's stored depth: liquid never overwrites a shorter path with a
// longer one.
func (e *Engine) spread(x, y, z, newDepth, fallDist int) bool {
	type candidate struct {
		x, z  int
		score int
		id    uint16
	}
	var cands []candidate
	for _, d := range horizontalDirs {
		nx, nz := x+d.dx, z+d.dz
		if !e.loadedAt(nx, nz) {
			continue
		}
		id := e.grid.GetBlock(nx, y, nz)
		if !e.canDisplace(id) {
			continue
		}
		if id == e.cfg.Blocks.Flowing {
			nd, _, _ := e.liquidState(nx, y, nz)
			if newDepth >= nd {
				continue
			}
		}
		cands = append(cands, candidate{nx, nz, e.Score(nx, y, nz, e.cfg.PathSearchRange), id})
	}
	if len(cands) == 0 {
		return false
	}
	best := cands[0].score
	for _, c := range cands[1:] {
		if c.score < best {
			best = c.score
		}
	}
	wrote := false
	for _, c := range cands {
		if c.score != best {
			continue
		}
		if c.id == e.cfg.Blocks.Flowing {
			_, f, _ := DecodeMeta(e.grid.GetBlockMetadata(c.x, y, c.z))
			e.grid.SetBlockMetadata(c.x, y, c.z, EncodeMeta(newDepth, f, fallDist))
		} else {
			e.writeQuiet(c.x, y, c.z, e.cfg.Blocks.Flowing, EncodeMeta(newDepth, false, fallDist), ReasonSpread)
		}
		e.enqueue(c.x, y, c.z)
		wrote = true
	}
	return wrote
}
