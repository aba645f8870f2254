package main

import (
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/marmos91/dittorpc/pkg/clnt"
)

// pingStats collects the outcome of every call. Safe for concurrent use.
type pingStats struct {
	mu        sync.Mutex
	latencies []time.Duration
	statuses  map[clnt.Status]int
}

func newPingStats() *pingStats {
	return &pingStats{statuses: make(map[clnt.Status]int)}
}

func (s *pingStats) record(d time.Duration, err error) {
	st := clnt.StatusOf(err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[st]++
	if st == clnt.Success {
		s.latencies = append(s.latencies, d)
	}
}

// failed returns the number of calls that did not succeed.
func (s *pingStats) failed() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for st, count := range s.statuses {
		if st != clnt.Success {
			n += count
		}
	}
	return n
}

// percentile returns the p-th percentile (0..100) of successful call
// latencies using the nearest-rank method, or zero without successes.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(p/100*float64(len(sorted)) + 0.5)
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

func (s *pingStats) summary(w io.Writer, elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	statuses := make([]clnt.Status, 0, len(s.statuses))
	for st, count := range s.statuses {
		total += count
		statuses = append(statuses, st)
	}
	slices.Sort(statuses)

	fmt.Fprintf(w, "--- %d calls in %v ---\n", total, elapsed.Round(time.Millisecond))
	for _, st := range statuses {
		fmt.Fprintf(w, "%-24s %d\n", st, s.statuses[st])
	}

	if len(s.latencies) == 0 {
		return
	}

	sorted := slices.Clone(s.latencies)
	slices.Sort(sorted)

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	avg := sum / time.Duration(len(sorted))

	fmt.Fprintf(w, "latency min/avg/p50/p99/max = %v/%v/%v/%v/%v\n",
		sorted[0], avg, percentile(sorted, 50), percentile(sorted, 99), sorted[len(sorted)-1])
}
