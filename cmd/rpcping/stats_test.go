package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/marmos91/dittorpc/pkg/clnt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	assert.Equal(t, time.Duration(0), percentile(nil, 50))
	assert.Equal(t, time.Duration(5), percentile(sorted, 50))
	assert.Equal(t, time.Duration(10), percentile(sorted, 99))
	assert.Equal(t, time.Duration(1), percentile(sorted, 0))
	assert.Equal(t, time.Duration(10), percentile(sorted, 100))
}

func TestPingStats(t *testing.T) {
	s := newPingStats()
	s.record(2*time.Millisecond, nil)
	s.record(4*time.Millisecond, nil)
	s.record(time.Second, &clnt.Error{Status: clnt.TimedOut})

	assert.Equal(t, 1, s.failed())

	var buf bytes.Buffer
	s.summary(&buf, 1500*time.Millisecond)
	out := buf.String()

	require.Contains(t, out, "--- 3 calls in 1.5s ---")
	assert.Contains(t, out, clnt.Success.String())
	assert.Contains(t, out, clnt.TimedOut.String())
	assert.Contains(t, out, "latency min/avg/p50/p99/max = 2ms/3ms/2ms/4ms/4ms")
}

func TestPingStatsNoSuccess(t *testing.T) {
	s := newPingStats()
	s.record(time.Second, &clnt.Error{Status: clnt.CantSend})

	var buf bytes.Buffer
	s.summary(&buf, time.Second)

	assert.NotContains(t, buf.String(), "latency")
	assert.Equal(t, 1, s.failed())
}
