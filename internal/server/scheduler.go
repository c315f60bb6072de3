package server

import (
	"sync"
	"time"
)

// Scheduler owns the table's timers. Scheduling a name that is already
// pending replaces the earlier timer, so only one timer per name is ever
// live. Tests substitute a manual implementation to drive transitions on
// a virtual clock.
type Scheduler interface {
	Schedule(name string, delay time.Duration, fn func())
	Cancel(name string)
}

type timerScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newTimerScheduler() *timerScheduler {
	return &timerScheduler{timers: make(map[string]*time.Timer)}
}

func (s *timerScheduler) Schedule(name string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.timers[name]; ok {
		existing.Stop()
	}
	s.timers[name] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, name)
		s.mu.Unlock()
		fn()
	})
}

func (s *timerScheduler) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[name]; ok {
		timer.Stop()
		delete(s.timers, name)
	}
}
