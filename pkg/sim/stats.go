package sim

import (
	"sync"
	"time"
)

// Stats counts vehicles by outcome. It is safe for concurrent use.
type Stats struct {
	mu  sync.Mutex
	sum Summary
	// total trip time of exited vehicles
	total time.Duration
}

// Summary is a point-in-time copy of [Stats].
type Summary struct {
	Spawned     int           `json:"spawned"`
	Rejected    int           `json:"rejected"`
	Entered     int           `json:"entered"`
	Exited      int           `json:"exited"`
	Failed      int           `json:"failed"`
	Active      int           `json:"active"`
	Contention  int           `json:"contention"`
	MeanTrip    time.Duration `json:"mean_trip_ns"`
	LongestTrip time.Duration `json:"longest_trip_ns"`
}

func (s *Stats) spawn() {
	s.mu.Lock()
	s.sum.Spawned++
	s.mu.Unlock()
}

func (s *Stats) reject() {
	s.mu.Lock()
	s.sum.Rejected++
	s.mu.Unlock()
}

func (s *Stats) entered() {
	s.mu.Lock()
	s.sum.Entered++
	s.mu.Unlock()
}

func (s *Stats) contended() {
	s.mu.Lock()
	s.sum.Contention++
	s.mu.Unlock()
}

func (s *Stats) finished(elapsed time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.sum.Failed++
		return
	}
	s.sum.Exited++
	s.total += elapsed
	if elapsed > s.sum.LongestTrip {
		s.sum.LongestTrip = elapsed
	}
}

// Summary returns the current counters.
func (s *Stats) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := s.sum
	sum.Active = sum.Spawned - sum.Exited - sum.Failed
	if sum.Exited > 0 {
		sum.MeanTrip = s.total / time.Duration(sum.Exited)
	}
	return sum
}
