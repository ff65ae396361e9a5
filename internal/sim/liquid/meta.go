package liquid

// Liquid cell metadata packed into one int:
//
//	bits 0-2  depth (0..7, 0 = source-equivalent)
//	bit  3    falling flag
//	bits 4-7  fall distance (0..15, saturating)

const (
	MaxDepth        = 7
	MaxFallDistance = 15

	depthMask     = 0x7
	fallingBit    = 0x8
	fallDistShift = 4
	fallDistMask  = 0xF
)

// EncodeMeta packs a liquid cell's state. Out-of-range inputs saturate.
func EncodeMeta(depth int, falling bool, fallDistance int) int {
	if depth < 0 {
		depth = 0
	}
	if depth > MaxDepth {
		depth = MaxDepth
	}
	if fallDistance < 0 {
		fallDistance = 0
	}
	if fallDistance > MaxFallDistance {
		fallDistance = MaxFallDistance
	}
	m := depth | fallDistance<<fallDistShift
	if falling {
		m |= fallingBit
	}
	return m
}

// DecodeMeta unpacks a metadata value. Bits outside the packed layout are
// ignored, so any stored int decodes to an in-range state.
func DecodeMeta(meta int) (depth int, falling bool, fallDistance int) {
	depth = meta & depthMask
	falling = meta&fallingBit != 0
	fallDistance = (meta >> fallDistShift) & fallDistMask
	return
}

func satFallDistance(d int) int {
	if d > MaxFallDistance {
		return MaxFallDistance
	}
	if d < 0 {
		return 0
	}
	return d
}
