package liquid

// OnBlockChanged is the engine's sole ingestion point. The world calls it
// for every observable block change, including the engine's own public
// writes; internal cascade/column writes are suppressed by the re-entrancy
// guard because those routines already account for every affected cell.
func (e *Engine) OnBlockChanged(x, y, z int, newType uint16, newMeta int, oldType uint16) {
	if e.suppress {
		return
	}
	if e.grid == nil || e.info == nil {
		return
	}
	if !e.loadedAt(x, z) || y < e.grid.MinY() || y > e.grid.MaxY() {
		return
	}

	newLiquid := e.isLiquid(newType)
	oldLiquid := e.isLiquid(oldType)

	switch {
	case newLiquid && !oldLiquid:
		if newType == e.cfg.Blocks.Source {
			// Seed canonical source metadata regardless of what the placer
			// wrote.
			if e.grid.GetBlockMetadata(x, y, z) != 0 {
				e.grid.SetBlockMetadata(x, y, z, 0)
			}
			if e.canDisplaceBelow(x, y, z) {
				e.InstantFall(x, y-1, z, 0)
			}
			e.enqueue(x, y, z)
			e.enqueueHorizontalNeighbors(x, y, z)
			return
		}
		// Flowing placed externally. Interior column cells belong to
		// InstantFall and are never independently enqueued.
		_, f, _ := DecodeMeta(newMeta)
		if !(f && e.isFallingLiquidAt(x, y+1, z) && e.canDisplaceBelow(x, y, z)) {
			e.enqueue(x, y, z)
		}

	case oldLiquid && !newLiquid:
		if e.isFallingLiquidAt(x, y-1, z) {
			e.CascadeRemove(x, y-1, z)
		} else {
			// Adjacent flowing liquid may now be orphaned.
			for _, d := range horizontalDirs {
				nx, nz := x+d.dx, z+d.dz
				if !e.loadedAt(nx, nz) {
					continue
				}
				if e.grid.GetBlock(nx, y, nz) == e.cfg.Blocks.Flowing {
					e.CascadeRemove(nx, y, nz)
				}
			}
		}
		if e.isLiquidAt(x, y+1, z) {
			e.enqueue(x, y+1, z)
		}
		for _, d := range horizontalDirs {
			if e.isLiquidAt(x+d.dx, y, z+d.dz) {
				e.enqueue(x+d.dx, y, z+d.dz)
			}
		}

	case newLiquid && oldLiquid:
		// Type flip (source <-> flowing): let normal evaluation re-derive
		// this cell and its neighborhood.
		e.enqueue(x, y, z)
		e.enqueueLiquidNeighbors(x, y, z)

	default:
		if !e.info.IsReplaceable(newType) {
			return
		}
		// A cell became displaceable: liquid directly above falls into it,
		// and nearby liquid gets a chance to claim it sideways.
		if e.isLiquidAt(x, y+1, z) {
			_, _, fd := e.liquidState(x, y+1, z)
			e.InstantFall(x, y, z, fd)
		}
		e.enqueueLiquidNeighbors(x, y, z)
	}
}
