package liquid

import "sort"

// WorkQueue is a deduplicated, size-bounded set of pending coordinates.
// Membership lives in the map; the ordered iteration list is rebuilt lazily
// before a drain instead of on every mutation. A persistent round-robin
// cursor makes repeated drains visit the whole set fairly.
type WorkQueue struct {
	capacity int
	members  map[uint64]struct{}
	order    []uint64
	dirty    bool
	cursor   int
	dropped  uint64
}

func NewWorkQueue(capacity int) *WorkQueue {
	if capacity <= 0 {
		capacity = 1 << 15
	}
	return &WorkQueue{
		capacity: capacity,
		members:  make(map[uint64]struct{}),
	}
}

func (q *WorkQueue) Enqueue(x, y, z int) {
	q.EnqueueKey(PackPos(x, y, z))
}

// EnqueueKey is a no-op if the coordinate is already present. Over capacity
// the update is dropped silently; a later related change re-triggers it.
func (q *WorkQueue) EnqueueKey(k uint64) {
	if _, ok := q.members[k]; ok {
		return
	}
	if len(q.members) >= q.capacity {
		q.dropped++
		return
	}
	q.members[k] = struct{}{}
	q.dirty = true
}

func (q *WorkQueue) Remove(k uint64) {
	delete(q.members, k)
	// Stale order entries are skipped at drain time; compact once the list
	// is mostly dead weight.
	if len(q.order) > 2*len(q.members) {
		q.dirty = true
	}
}

func (q *WorkQueue) Contains(k uint64) bool {
	_, ok := q.members[k]
	return ok
}

func (q *WorkQueue) Len() int { return len(q.members) }

func (q *WorkQueue) Dropped() uint64 { return q.dropped }

func (q *WorkQueue) Clear() {
	q.members = make(map[uint64]struct{})
	q.order = q.order[:0]
	q.cursor = 0
	q.dirty = false
}

// DrainBatch returns up to maxItems pending coordinates, never more than
// maxPerChunk from any one chunk. Entries stay queued; the caller removes a
// coordinate once its evaluation reports no change.
func (q *WorkQueue) DrainBatch(maxItems, maxPerChunk int) []uint64 {
	if maxItems <= 0 || len(q.members) == 0 {
		return nil
	}
	q.rebuildIfDirty()
	n := len(q.order)
	if n == 0 {
		return nil
	}
	if q.cursor >= n {
		q.cursor = 0
	}

	var out []uint64
	perChunk := make(map[uint64]int)
	for scanned := 0; scanned < n && len(out) < maxItems; scanned++ {
		k := q.order[q.cursor]
		q.cursor = (q.cursor + 1) % n
		if _, ok := q.members[k]; !ok {
			continue
		}
		if maxPerChunk > 0 {
			ck := chunkOfKey(k)
			if perChunk[ck] >= maxPerChunk {
				continue
			}
			perChunk[ck]++
		}
		out = append(out, k)
	}
	return out
}

func (q *WorkQueue) rebuildIfDirty() {
	if !q.dirty {
		return
	}
	q.order = q.order[:0]
	for k := range q.members {
		q.order = append(q.order, k)
	}
	// Sorted order keeps drains deterministic for a given membership set.
	sort.Slice(q.order, func(i, j int) bool { return q.order[i] < q.order[j] })
	if q.cursor >= len(q.order) {
		q.cursor = 0
	}
	q.dirty = false
}
