package liquid

// Packed block position: 26-bit x, 12-bit y, 26-bit z, two's complement.
// Gives a collision-free, totally ordered key for queue and counter
// membership over the whole usable coordinate range.

const chunkSize = 16

func PackPos(x, y, z int) uint64 {
	return (uint64(x)&0x3FFFFFF)<<38 | (uint64(y)&0xFFF)<<26 | (uint64(z) & 0x3FFFFFF)
}

func UnpackPos(k uint64) (x, y, z int) {
	x = int(int64(k) >> 38)
	y = int(int64(k<<26) >> 52)
	z = int(int64(k<<38) >> 38)
	return
}

func packChunk(cx, cz int) uint64 {
	return uint64(uint32(cx))<<32 | uint64(uint32(cz))
}

// chunkOfKey maps a packed block position to its packed chunk key.
func chunkOfKey(k uint64) uint64 {
	x, _, z := UnpackPos(k)
	return packChunk(floorDiv(x, chunkSize), floorDiv(z, chunkSize))
}

func floorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
