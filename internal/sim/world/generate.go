package world

// Deterministic hash-based terrain: a bedrock floor, a stone band up to a
// gently varying surface, and hash-sprinkled springs that seed the liquid
// engine on fresh worlds.

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func Mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func Hash2(seed int64, x, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

func Hash3(seed int64, x, y, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xc2b2ae3d27d4eb4f) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

const springSeedSalt = 0x5EED

func (s *ChunkStore) GenerateChunk(ch *Chunk) {
	if s == nil || ch == nil {
		return
	}
	for lz := 0; lz < ChunkSize; lz++ {
		for lx := 0; lx < ChunkSize; lx++ {
			x := ch.CX*ChunkSize + lx
			z := ch.CZ*ChunkSize + lz
			s.generateColumn(ch, lx, lz, x, z)
		}
	}
}

func (s *ChunkStore) generateColumn(ch *Chunk, lx, lz, x, z int) {
	g := s.Gen
	surface := g.SurfaceY
	if surface <= 0 {
		surface = g.Height / 4
	}
	if surface >= g.Height {
		surface = g.Height - 1
	}
	if !g.Flat {
		// +-1 surface jitter, with occasional 2-deep depressions that give
		// spreading liquid somewhere to pool.
		surface += int(Hash2(g.Seed, x, z)%3) - 1
		if Hash2(g.Seed, FloorDiv(x, 8), FloorDiv(z, 8))%1000 < 60 {
			surface -= 2
		}
		if surface < 1 {
			surface = 1
		}
	}

	for y := 0; y < g.Height; y++ {
		var b uint16
		switch {
		case y == 0:
			b = g.Bedrock
		case y < surface-1:
			b = g.Stone
		case y == surface-1:
			b = g.Dirt
		case y == surface:
			b = g.Grass
		default:
			b = g.Air
		}
		ch.Set(lx, y, lz, b)
	}

	if g.Flat || g.SpringPermille <= 0 {
		return
	}
	if Hash2(g.Seed^springSeedSalt, x, z)%1000 < uint64(g.SpringPermille) && surface+1 < g.Height {
		ch.Set(lx, surface+1, lz, g.WaterSource)
	}
}
