package liquid

import "testing"

func TestQueue_Dedupes(t *testing.T) {
	q := NewWorkQueue(16)
	q.Enqueue(1, 2, 3)
	q.Enqueue(1, 2, 3)
	q.Enqueue(1, 2, 3)
	if q.Len() != 1 {
		t.Fatalf("len = %d, want 1", q.Len())
	}
}

func TestQueue_CapacityDropsSilently(t *testing.T) {
	q := NewWorkQueue(4)
	for i := 0; i < 10; i++ {
		q.Enqueue(i, 0, 0)
	}
	if q.Len() != 4 {
		t.Fatalf("len = %d, want 4", q.Len())
	}
	if q.Dropped() != 6 {
		t.Fatalf("dropped = %d, want 6", q.Dropped())
	}
}

func TestQueue_DrainLeavesEntriesQueued(t *testing.T) {
	q := NewWorkQueue(16)
	q.Enqueue(1, 0, 0)
	q.Enqueue(2, 0, 0)
	got := q.DrainBatch(10, 0)
	if len(got) != 2 {
		t.Fatalf("drained %d, want 2", len(got))
	}
	if q.Len() != 2 {
		t.Fatalf("drain must not remove entries; len = %d", q.Len())
	}
	q.Remove(got[0])
	if q.Len() != 1 || q.Contains(got[0]) {
		t.Fatalf("remove failed")
	}
}

func TestQueue_PerChunkCap(t *testing.T) {
	q := NewWorkQueue(256)
	// 10 cells in chunk (0,0), 3 in chunk (1,0).
	for i := 0; i < 10; i++ {
		q.Enqueue(i, 5, 0)
	}
	for i := 0; i < 3; i++ {
		q.Enqueue(16+i, 5, 0)
	}

	got := q.DrainBatch(100, 4)
	perChunk := map[uint64]int{}
	for _, k := range got {
		perChunk[chunkOfKey(k)]++
	}
	if perChunk[packChunk(0, 0)] != 4 {
		t.Fatalf("chunk (0,0) drained %d, cap 4", perChunk[packChunk(0, 0)])
	}
	if perChunk[packChunk(1, 0)] != 3 {
		t.Fatalf("chunk (1,0) drained %d, want all 3", perChunk[packChunk(1, 0)])
	}
}

// The round-robin cursor must visit the whole set across successive drains
// even when the batch size is smaller than the queue.
func TestQueue_RoundRobinFairness(t *testing.T) {
	q := NewWorkQueue(256)
	for i := 0; i < 12; i++ {
		q.Enqueue(i, 5, 0)
	}

	seen := map[uint64]int{}
	for round := 0; round < 4; round++ {
		for _, k := range q.DrainBatch(4, 0) {
			seen[k]++
		}
	}
	if len(seen) != 12 {
		t.Fatalf("cursor visited %d distinct cells, want 12", len(seen))
	}
}

func TestQueue_LazyRebuildAfterRemovals(t *testing.T) {
	q := NewWorkQueue(256)
	var keys []uint64
	for i := 0; i < 20; i++ {
		q.Enqueue(i, 5, 0)
		keys = append(keys, PackPos(i, 5, 0))
	}
	for _, k := range keys[:15] {
		q.Remove(k)
	}
	got := q.DrainBatch(100, 0)
	if len(got) != 5 {
		t.Fatalf("drained %d, want 5 survivors", len(got))
	}
	for _, k := range got {
		if !q.Contains(k) {
			t.Fatalf("drained a removed key")
		}
	}
}

func TestQueue_Clear(t *testing.T) {
	q := NewWorkQueue(16)
	q.Enqueue(1, 0, 0)
	q.Enqueue(2, 0, 0)
	q.Clear()
	if q.Len() != 0 || len(q.DrainBatch(10, 0)) != 0 {
		t.Fatalf("clear left entries")
	}
}
