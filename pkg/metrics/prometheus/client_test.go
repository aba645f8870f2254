package prometheus

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewClientMetricsWith(reg).(*clientMetrics)

	t.Run("CountsCallsByStatus", func(t *testing.T) {
		m.RecordCall(100003, 0, "RPC_SUCCESS", 5*time.Millisecond)
		m.RecordCall(100003, 0, "RPC_TIMEDOUT", 3*time.Second)
		m.RecordCall(100003, 0, "RPC_SUCCESS", time.Millisecond)

		assert.Equal(t, 2.0, testutil.ToFloat64(m.callsTotal.WithLabelValues("100003", "0", "RPC_SUCCESS")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.callsTotal.WithLabelValues("100003", "0", "RPC_TIMEDOUT")))
	})

	t.Run("SplitsRetransmissions", func(t *testing.T) {
		m.RecordTransmit(100, false)
		m.RecordTransmit(100, true)
		m.RecordTransmit(100, true)

		assert.Equal(t, 1.0, testutil.ToFloat64(m.transmitsTotal.WithLabelValues("first")))
		assert.Equal(t, 2.0, testutil.ToFloat64(m.transmitsTotal.WithLabelValues("retransmit")))
		assert.Equal(t, 300.0, testutil.ToFloat64(m.bytesTransferred.WithLabelValues("sent")))
	})

	t.Run("TracksPendingGauge", func(t *testing.T) {
		m.AddPendingCalls(1)
		m.AddPendingCalls(1)
		m.AddPendingCalls(-1)

		assert.Equal(t, 1.0, testutil.ToFloat64(m.pendingCalls))
	})

	t.Run("CountsDiscards", func(t *testing.T) {
		m.RecordDiscarded("unmatched")
		m.RecordDiscarded("short")
		m.RecordSocketError()
		m.RecordAuthRefresh()

		assert.Equal(t, 1.0, testutil.ToFloat64(m.discardedTotal.WithLabelValues("unmatched")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.socketErrorsTotal))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.authRefreshTotal))
	})

	t.Run("RegistersAllCollectors", func(t *testing.T) {
		families, err := reg.Gather()
		require.NoError(t, err)
		assert.NotEmpty(t, families)
	})
}

func TestNewClientMetricsWithoutRegistry(t *testing.T) {
	m := NewClientMetrics()
	require.NotNil(t, m)

	assert.NotPanics(t, func() {
		m.RecordCall(1, 2, "RPC_SUCCESS", time.Millisecond)
		m.AddPendingCalls(1)
	})
}
