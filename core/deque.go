package core

import (
	"sync/atomic"
)

const (
	cacheLinePadding = 64
	defaultDequeCap  = 256
)

// Deque is a growable Chase-Lev work-stealing deque of tasks.
//
// Concurrency model:
//   - bottom is modified only by the owning worker (PushBottom/PopBottom)
//   - top is modified by stealers via CAS, and by the owner only when
//     resolving the last-element race
//
// Every removal advances exactly one index, either by the single owner or by
// a winning CAS, so a task is delivered to at most one consumer. The ring
// stores task pointers and is published through an atomic pointer so a
// stealer racing with growth never observes a torn slot. Ring length is
// always a power of two; the index mask is derived from the loaded ring so a
// stealer can never pair a new ring with a stale mask.
type Deque struct {
	ring atomic.Pointer[[]*Task]

	_   [cacheLinePadding]byte
	top atomic.Int64

	_      [cacheLinePadding]byte
	bottom atomic.Int64
}

func nextPowerOfTwo(n int) int {
	x := uint64(n - 1)
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	return int(x + 1)
}

// NewDeque allocates a deque with capacity >= requested.
func NewDeque(capacity int) *Deque {
	if capacity <= 0 {
		capacity = defaultDequeCap
	}
	capacity = nextPowerOfTwo(capacity)

	d := &Deque{}
	ring := make([]*Task, capacity)
	d.ring.Store(&ring)
	return d
}

func ringMask(ring []*Task) uint64 {
	return uint64(len(ring) - 1)
}

// PushBottom appends a task at the owner end. Owner-only; grows the ring
// when full, so it never blocks and never drops.
func (d *Deque) PushBottom(t Task) {
	b := d.bottom.Load()
	top := d.top.Load()
	ring := *d.ring.Load()

	if b-top >= int64(len(ring)) {
		ring = d.grow(ring, top, b)
	}

	ring[uint64(b)&ringMask(ring)] = &t
	d.bottom.Store(b + 1)
}

// grow doubles the ring and re-indexes live tasks. Owner-only. The old ring
// is left untouched: a stealer that loaded it before the swap still sees the
// task it targeted, and the CAS on top keeps delivery at-most-once.
func (d *Deque) grow(old []*Task, top, bottom int64) []*Task {
	newRing := make([]*Task, len(old)<<1)

	for i := top; i < bottom; i++ {
		newRing[uint64(i)&ringMask(newRing)] = old[uint64(i)&ringMask(old)]
	}

	d.ring.Store(&newRing)
	return newRing
}

// PopBottom removes a task from the owner end (LIFO). Owner-only; races only
// against stealers. The last-element race is resolved by a CAS on top: the
// loser returns empty, never blocks.
func (d *Deque) PopBottom() (Task, bool) {
	b := d.bottom.Load() - 1
	d.bottom.Store(b)

	t := d.top.Load()
	if t > b {
		// Empty; restore bottom.
		d.bottom.Store(t)
		return Task{}, false
	}

	ring := *d.ring.Load()
	task := ring[uint64(b)&ringMask(ring)]

	if t == b {
		// Single element left: contend with stealers on top.
		if !d.top.CompareAndSwap(t, t+1) {
			task = nil
		}
		d.bottom.Store(t + 1)
	}

	if task == nil {
		return Task{}, false
	}
	return *task, true
}

// Len returns the approximate number of queued tasks. Safe to call from any
// goroutine; the result may be immediately stale.
func (d *Deque) Len() int {
	b := d.bottom.Load()
	t := d.top.Load()
	if b <= t {
		return 0
	}
	return int(b - t)
}

// IsEmpty reports whether the deque currently appears empty.
func (d *Deque) IsEmpty() bool {
	return d.Len() == 0
}

// Stealer derives a steal handle for this deque. Handles grant only the
// TrySteal capability and may be shared freely across goroutines.
func (d *Deque) Stealer() *Stealer {
	return &Stealer{d: d}
}

// =============================================================================
// Stealer: read-only steal capability over a Deque
// =============================================================================

// Stealer removes tasks from the steal end (FIFO) of a peer's deque. It is
// safe for concurrent use; each successful steal wins a CAS on top, so a
// task is never delivered twice.
type Stealer struct {
	d *Deque
}

// TrySteal attempts to remove one task from the steal end. It never blocks;
// losing a race with the owner or another stealer reports empty.
func (s *Stealer) TrySteal() (Task, bool) {
	t := s.d.top.Load()
	b := s.d.bottom.Load()
	if t >= b {
		return Task{}, false
	}

	ring := *s.d.ring.Load()
	task := ring[uint64(t)&ringMask(ring)]

	if task == nil || !s.d.top.CompareAndSwap(t, t+1) {
		return Task{}, false
	}
	return *task, true
}

// Len reports the approximate backlog of the underlying deque.
func (s *Stealer) Len() int {
	return s.d.Len()
}
