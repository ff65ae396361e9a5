package liquidtest

import (
	"testing"

	"voxelflow.ai/internal/sim/liquid"
)

// Sustained full-budget ticks halve the evaluation budget; once the queue
// falls under the low-water mark the budget doubles back and the throttled
// flag clears.
func TestThrottle_HalvesAndRecovers(t *testing.T) {
	h := NewHarnessConfig(t, liquid.Config{
		MaxBudget:           8,
		MinBudget:           2,
		FullTicksToThrottle: 2,
		LowWaterMark:        4,
	})
	y := h.SurfaceY + 1

	// Burst: a 6x6 slab of sources floods the queue far past the budget.
	for x := 0; x < 6; x++ {
		for z := 0; z < 6; z++ {
			h.Set(x, y, z, "WATER_SOURCE")
		}
	}
	if st := h.Eng.Stats(); st.QueueSize <= 8 {
		t.Fatalf("queue size %d, want a backlog beyond the budget", st.QueueSize)
	}

	h.TickN(2)
	st := h.Eng.Stats()
	if !st.Throttled {
		t.Fatalf("expected throttled after %d full-budget ticks", 2)
	}
	if st.CurrentBudget >= 8 {
		t.Fatalf("budget %d, want halved below max", st.CurrentBudget)
	}

	h.TickUntilQuiet(8000)
	h.TickN(3)

	st = h.Eng.Stats()
	if st.Throttled {
		t.Fatalf("still throttled after queue drained")
	}
	if st.CurrentBudget != 8 {
		t.Fatalf("budget %d, want restored to max 8", st.CurrentBudget)
	}
}

// Queue capacity overflow drops updates silently and counts them.
func TestThrottle_DroppedUpdatesCounted(t *testing.T) {
	h := NewHarnessConfig(t, liquid.Config{
		QueueCapacity: 8,
	})
	y := h.SurfaceY + 1

	for x := 0; x < 8; x++ {
		h.Set(x, y, 7, "WATER_SOURCE")
	}

	st := h.Eng.Stats()
	if st.QueueSize > 8 {
		t.Fatalf("queue size %d exceeds capacity 8", st.QueueSize)
	}
	if st.DroppedUpdates == 0 {
		t.Fatalf("expected dropped updates past capacity")
	}
}
