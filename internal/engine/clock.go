package engine

import (
	"container/heap"
	"time"
)

// Handle identifies a scheduled callback. The zero Handle is never issued.
type Handle uint64

// Scheduler is a single logical clock with cancellable one-shot timers.
// Time only moves when Advance or RunNext is called, so every callback runs on
// the caller's goroutine.
type Scheduler struct {
	now    time.Duration
	seq    uint64
	queue  timerQueue
	active map[Handle]*timer

	hooks    map[int]func()
	nextHook int
}

type timer struct {
	handle Handle
	due    time.Duration
	seq    uint64
	fn     func()
	index  int
}

// NewScheduler returns a scheduler at logical time zero.
func NewScheduler() *Scheduler {
	return &Scheduler{active: make(map[Handle]*timer), hooks: make(map[int]func())}
}

// OnAdvance registers fn to run after every Advance or RunNext that moved the
// clock, once its callbacks have fired.
func (s *Scheduler) OnAdvance(fn func()) (cancel func()) {
	id := s.nextHook
	s.nextHook++
	s.hooks[id] = fn
	return func() { delete(s.hooks, id) }
}

// Now is the elapsed logical time.
func (s *Scheduler) Now() time.Duration { return s.now }

// Schedule registers fn to run once after d. Negative delays count as zero.
func (s *Scheduler) Schedule(d time.Duration, fn func()) Handle {
	if d < 0 {
		d = 0
	}
	s.seq++
	t := &timer{handle: Handle(s.seq), due: s.now + d, seq: s.seq, fn: fn}
	heap.Push(&s.queue, t)
	s.active[t.handle] = t
	return t.handle
}

// Cancel drops a pending callback. It reports whether the handle was still pending.
func (s *Scheduler) Cancel(h Handle) bool {
	t, ok := s.active[h]
	if !ok {
		return false
	}
	delete(s.active, h)
	heap.Remove(&s.queue, t.index)
	return true
}

// Pending reports whether h is scheduled and has not fired.
func (s *Scheduler) Pending(h Handle) bool {
	_, ok := s.active[h]
	return ok
}

// Remaining is the logical time left before h fires.
func (s *Scheduler) Remaining(h Handle) (time.Duration, bool) {
	t, ok := s.active[h]
	if !ok {
		return 0, false
	}
	return t.due - s.now, true
}

// Len is the number of pending callbacks.
func (s *Scheduler) Len() int { return len(s.active) }

// Advance moves the clock forward by d, firing every callback that falls due in
// order of due time, then scheduling order. Callbacks scheduled while advancing
// fire too if they fall inside the window. Returns the number fired.
func (s *Scheduler) Advance(d time.Duration) int {
	if d < 0 {
		d = 0
	}
	start, end := s.now, s.now+d
	fired := 0
	for s.queue.Len() > 0 && s.queue[0].due <= end {
		if s.fire() {
			fired++
		}
	}
	s.now = end
	if s.now > start {
		s.advanced()
	}
	return fired
}

// RunNext jumps the clock to the earliest pending callback and fires it.
// It reports false when nothing is pending.
func (s *Scheduler) RunNext() bool {
	if s.queue.Len() == 0 {
		return false
	}
	start := s.now
	ok := s.fire()
	if s.now > start {
		s.advanced()
	}
	return ok
}

func (s *Scheduler) advanced() {
	for _, fn := range s.hooks {
		fn()
	}
}

func (s *Scheduler) fire() bool {
	t := heap.Pop(&s.queue).(*timer)
	if t.due > s.now {
		s.now = t.due
	}
	if _, ok := s.active[t.handle]; !ok {
		return false
	}
	delete(s.active, t.handle)
	t.fn()
	return true
}

type timerQueue []*timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].due == q[j].due {
		return q[i].seq < q[j].seq
	}
	return q[i].due < q[j].due
}

func (q timerQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *timerQueue) Push(x any) {
	t := x.(*timer)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
