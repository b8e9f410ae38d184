package director

import "sync"

// SchedulerState is the shared pause switch between the HTTP layer and the
// scheduler jobs. Paused means planning ticks are skipped; event
// registration and direct-reply paths stay live.
type SchedulerState struct {
	mu     sync.Mutex
	paused bool
}

func NewSchedulerState() *SchedulerState { return &SchedulerState{} }

func (s *SchedulerState) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

func (s *SchedulerState) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

func (s *SchedulerState) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}
