package upload

import (
	"sync"
	"time"
)

// transferStats accumulates per-segment transfer timing for log lines. It
// tracks the running total and the slowest segment so a stalled storage
// backend is visible in the completion summary.
type transferStats struct {
	mu      sync.Mutex
	total   time.Duration
	longest time.Duration
	done    int
}

func newTransferStats() *transferStats {
	return &transferStats{}
}

func (s *transferStats) record(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done++
	s.total += d
	if d > s.longest {
		s.longest = d
	}
}

func (s *transferStats) average() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.averageLocked()
}

// summary returns the finished-segment count, the average duration and the
// slowest segment in one consistent snapshot.
func (s *transferStats) summary() (done int, avg, longest time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done, s.averageLocked(), s.longest
}

func (s *transferStats) averageLocked() time.Duration {
	if s.done == 0 {
		return 0
	}
	return s.total / time.Duration(s.done)
}
