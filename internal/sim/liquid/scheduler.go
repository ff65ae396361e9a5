package liquid

import (
	"context"
	"log"
	"sync/atomic"
	"time"
)

// BlockMutation is an external grid write routed through the scheduler so
// it is applied on the engine's single timeline (and therefore observed by
// OnBlockChanged via the grid's change hook).
type BlockMutation struct {
	X, Y, Z int
	Type    uint16
	Meta    int
}

// Scheduler drives one Engine at a fixed interval. All engine state is
// accessed only from the scheduler goroutine; admin calls are serialized
// through a request channel, mutations through an inbox.
type Scheduler struct {
	eng      *Engine
	grid     Grid
	interval time.Duration
	log      *log.Logger

	inbox chan BlockMutation
	admin chan func()
	stop  chan struct{}

	tick    atomic.Uint64
	dropped atomic.Uint64

	events []WriteEvent
	onTick func(tick uint64, st Stats, events []WriteEvent)
}

func NewScheduler(eng *Engine, grid Grid, interval time.Duration, logger *log.Logger) *Scheduler {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	s := &Scheduler{
		eng:      eng,
		grid:     grid,
		interval: interval,
		log:      logger,
		inbox:    make(chan BlockMutation, 1024),
		admin:    make(chan func(), 16),
		stop:     make(chan struct{}),
	}
	eng.SetWriteObserver(func(ev WriteEvent) {
		s.events = append(s.events, ev)
	})
	return s
}

// SetTickHook installs a callback invoked after every tick with that tick's
// stats and engine writes. Must be set before Run.
func (s *Scheduler) SetTickHook(fn func(tick uint64, st Stats, events []WriteEvent)) {
	s.onTick = fn
}

func (s *Scheduler) CurrentTick() uint64 { return s.tick.Load() }

func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var pending []BlockMutation
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case fn := <-s.admin:
			fn()
		case m := <-s.inbox:
			pending = append(pending, m)
		case <-ticker.C:
			s.stepInternal(pending)
			pending = pending[:0]
		}
	}
}

func (s *Scheduler) Stop() { close(s.stop) }

// TickOnce advances the engine by a single tick, applying the given
// mutations first. Intended for deterministic tests and replays; must not
// be called while Run is active.
func (s *Scheduler) TickOnce(muts []BlockMutation) uint64 {
	s.stepInternal(muts)
	return s.tick.Load()
}

func (s *Scheduler) stepInternal(muts []BlockMutation) {
	for _, m := range muts {
		s.grid.SetBlock(m.X, m.Y, m.Z, m.Type, m.Meta)
	}
	s.eng.Tick()
	t := s.tick.Add(1)
	if s.onTick != nil {
		s.onTick(t, s.eng.Stats(), s.events)
	}
	s.events = s.events[:0]
}

// Submit queues an external mutation for the next tick. Reports false when
// the inbox is full; callers treat that like any other dropped update.
func (s *Scheduler) Submit(m BlockMutation) bool {
	select {
	case s.inbox <- m:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// --- admin surface (valid only while Run is active) ---

func (s *Scheduler) Pause()      { s.admin <- func() { s.eng.Pause() } }
func (s *Scheduler) Resume()     { s.admin <- func() { s.eng.Resume() } }
func (s *Scheduler) ClearQueue() { s.admin <- func() { s.eng.ClearQueue() } }

func (s *Scheduler) Stats() Stats {
	resp := make(chan Stats, 1)
	s.admin <- func() { resp <- s.eng.Stats() }
	return <-resp
}

func (s *Scheduler) ClearInRadius(x, y, z, radius int) int {
	resp := make(chan int, 1)
	s.admin <- func() { resp <- s.eng.ClearInRadius(x, y, z, radius) }
	return <-resp
}
