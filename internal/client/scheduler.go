package client

import "time"

// DefaultFrameInterval is the delay between a redraw request and the
// redraw.
const DefaultFrameInterval = 16 * time.Millisecond

// Scheduler coalesces redraw requests: at most one redraw is pending, and
// requests made while one is pending are folded into it.
//
// Scheduler is not safe for concurrent use. It is driven by the client's
// event loop, which selects on C.
type Scheduler struct {
	interval  time.Duration
	timer     *time.Timer
	pending   bool
	coalesced uint64
}

// NewScheduler creates a scheduler that fires interval after a request.
func NewScheduler(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	t := time.NewTimer(interval)
	t.Stop()
	return &Scheduler{interval: interval, timer: t}
}

// Request schedules a redraw. It reports false if one was already pending.
func (s *Scheduler) Request() bool {
	if s.pending {
		s.coalesced++
		return false
	}
	s.pending = true
	s.timer.Reset(s.interval)
	return true
}

// C fires when a pending redraw is due. Call Done after receiving.
func (s *Scheduler) C() <-chan time.Time {
	return s.timer.C
}

// Done marks the pending redraw as performed.
func (s *Scheduler) Done() {
	s.pending = false
}

// Pending reports whether a redraw is scheduled.
func (s *Scheduler) Pending() bool {
	return s.pending
}

// Coalesced returns how many requests were folded into a pending redraw.
func (s *Scheduler) Coalesced() uint64 {
	return s.coalesced
}

// Cancel drops a pending redraw.
func (s *Scheduler) Cancel() {
	s.timer.Stop()
	s.pending = false
}
