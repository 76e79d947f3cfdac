package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Pass("mainnet", nil, time.Second)
	m.Pass("mainnet", errors.New("boom"), time.Second)
	m.Pass("mainnet", nil, time.Second)
	m.RowInserted("usdc_transfers")
	m.LogSkipped("mainnet", "below_resume")
	m.LogsFetched("mainnet", 7)
	m.ChainHead("mainnet", 1234)
	m.RPCCall("mainnet", "eth_getLogs", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.passes.WithLabelValues("mainnet", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passes.WithLabelValues("mainnet", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rowsInserted.WithLabelValues("usdc_transfers")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.logsSkipped.WithLabelValues("mainnet", "below_resume")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.logsFetched.WithLabelValues("mainnet")))
	assert.Equal(t, 1234.0, testutil.ToFloat64(m.chainHead.WithLabelValues("mainnet")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rpcCalls.WithLabelValues("mainnet", "eth_getLogs", "ok")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Pass("c", nil, 0)
		m.ChainHead("c", 1)
		m.ResumeBlock("t", 1)
		m.LogsFetched("c", 1)
		m.LogSkipped("c", "r")
		m.RowInserted("t")
		m.LogError("t")
		m.RPCCall("c", "m", "ok")
	})
}

func TestInitIsIdempotent(t *testing.T) {
	assert.Same(t, Init(), Init())
}
