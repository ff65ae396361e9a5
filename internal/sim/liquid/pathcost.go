package liquid

// ScoreNoDrop is returned when no displaceable-downward cell exists within
// the search bound.
const ScoreNoDrop = 1 << 30

// Score runs a bounded breadth-first search from a candidate spread cell and
// returns the number of horizontal steps to the nearest cell liquid could
// fall into, or ScoreNoDrop. It only ranks directions that are already known
// to be legal; ties at the minimum all receive liquid.
func (e *Engine) Score(x, y, z, maxSearch int) int {
	if e.grid == nil || maxSearch < 0 {
		return ScoreNoDrop
	}
	if e.dropBelow(x, y, z) {
		return 0
	}

	type node struct{ x, z, dist int }
	visited := map[uint64]struct{}{PackPos(x, y, z): {}}
	frontier := []node{{x, z, 0}}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		if cur.dist >= maxSearch {
			continue
		}
		for _, d := range horizontalDirs {
			nx, nz := cur.x+d.dx, cur.z+d.dz
			k := PackPos(nx, y, nz)
			if _, ok := visited[k]; ok {
				continue
			}
			visited[k] = struct{}{}
			if !e.loadedAt(nx, nz) {
				// Unloaded chunks are hard boundaries.
				continue
			}
			if !e.canDisplace(e.grid.GetBlock(nx, y, nz)) {
				continue
			}
			if e.dropBelow(nx, y, nz) {
				return cur.dist + 1
			}
			frontier = append(frontier, node{nx, nz, cur.dist + 1})
		}
	}
	return ScoreNoDrop
}

func (e *Engine) dropBelow(x, y, z int) bool {
	if y-1 < e.grid.MinY() {
		return false
	}
	return e.canDisplace(e.grid.GetBlock(x, y-1, z))
}
