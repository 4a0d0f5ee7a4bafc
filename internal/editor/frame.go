package editor

import (
	"sync"
	"time"
)

// FrameSource schedules a callback for the next animation frame. The
// returned function cancels the request if it has not run yet.
type FrameSource interface {
	Request(fn func()) (cancel func())
}

// FrameScheduler coalesces invalidations into at most one draw per frame.
// Invalidating while a frame is pending cancels that request and schedules
// a new one, so draw runs once with the latest state.
type FrameScheduler struct {
	src  FrameSource
	draw func()

	mu      sync.Mutex
	gen     uint64
	cancel  func()
	pending bool
	stopped bool
}

// NewFrameScheduler returns a scheduler that calls draw from src.
func NewFrameScheduler(src FrameSource, draw func()) *FrameScheduler {
	return &FrameScheduler{src: src, draw: draw}
}

// Invalidate requests a redraw.
func (s *FrameScheduler) Invalidate() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if s.pending && s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.pending = true
	s.mu.Unlock()

	cancel := s.src.Request(func() { s.run(gen) })

	s.mu.Lock()
	if s.gen == gen && s.pending {
		s.cancel = cancel
	}
	s.mu.Unlock()
}

// run draws if gen is still the latest request. A callback that fires after
// it was superseded does nothing.
func (s *FrameScheduler) run(gen uint64) {
	s.mu.Lock()
	if s.stopped || gen != s.gen || !s.pending {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.cancel = nil
	s.mu.Unlock()
	s.draw()
}

// Pending reports whether a frame is scheduled.
func (s *FrameScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Stop cancels any pending frame and ignores later invalidations.
func (s *FrameScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.pending && s.cancel != nil {
		s.cancel()
	}
	s.pending = false
	s.cancel = nil
}

// TimerSource fires frames on a fixed interval using time.AfterFunc. When
// Post is set, the callback is handed to it so it runs on the owner's
// goroutine instead of the timer's.
type TimerSource struct {
	Interval time.Duration
	Post     func(func())
}

func (t TimerSource) Request(fn func()) func() {
	run := fn
	if t.Post != nil {
		run = func() { t.Post(fn) }
	}
	timer := time.AfterFunc(t.Interval, run)
	return func() { timer.Stop() }
}
