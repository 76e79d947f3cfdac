package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "logsync"

// Metrics holds Prometheus collectors for the sync engine.
type Metrics struct {
	passes       *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
	chainHead    *prometheus.GaugeVec
	resumeBlock  *prometheus.GaugeVec
	logsFetched  *prometheus.CounterVec
	logsSkipped  *prometheus.CounterVec
	rowsInserted *prometheus.CounterVec
	logErrors    *prometheus.CounterVec
	rpcCalls     *prometheus.CounterVec
}

var (
	once    sync.Once
	metrics *Metrics
)

// Init initializes global metrics on the default registry (idempotent).
func Init() *Metrics {
	once.Do(func() {
		metrics = New(prometheus.DefaultRegisterer)
	})
	return metrics
}

// New builds and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Chain group sync passes by result",
		}, []string{"chain", "result"}),
		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of a chain group sync pass",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		}, []string{"chain"}),
		chainHead: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chain_head",
			Help:      "Latest block number reported by the chain RPC",
		}, []string{"chain"}),
		resumeBlock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resume_block",
			Help:      "Block a table resumes from on the next pass",
		}, []string{"table"}),
		logsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logs_fetched_total",
			Help:      "Raw logs returned by eth_getLogs",
		}, []string{"chain"}),
		logsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logs_skipped_total",
			Help:      "Fetched logs not written, by reason",
		}, []string{"chain", "reason"}),
		rowsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_inserted_total",
			Help:      "Rows inserted into target tables",
		}, []string{"table"}),
		logErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_errors_total",
			Help:      "Logs that failed to decode or insert",
		}, []string{"table"}),
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_calls_total",
			Help:      "Chain RPC calls by method and status",
		}, []string{"chain", "method", "status"}),
	}
	reg.MustRegister(
		m.passes,
		m.passDuration,
		m.chainHead,
		m.resumeBlock,
		m.logsFetched,
		m.logsSkipped,
		m.rowsInserted,
		m.logErrors,
		m.rpcCalls,
	)
	return m
}

// Pass records the outcome and duration of a chain group pass.
func (m *Metrics) Pass(chain string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.passes.WithLabelValues(chain, result).Inc()
	m.passDuration.WithLabelValues(chain).Observe(elapsed.Seconds())
}

// ChainHead sets the latest observed head.
func (m *Metrics) ChainHead(chain string, head uint64) {
	if m != nil {
		m.chainHead.WithLabelValues(chain).Set(float64(head))
	}
}

// ResumeBlock sets the computed resume point of a table.
func (m *Metrics) ResumeBlock(table string, block uint64) {
	if m != nil {
		m.resumeBlock.WithLabelValues(table).Set(float64(block))
	}
}

// LogsFetched adds n fetched logs.
func (m *Metrics) LogsFetched(chain string, n int) {
	if m != nil {
		m.logsFetched.WithLabelValues(chain).Add(float64(n))
	}
}

// LogSkipped increments the skipped counter for reason.
func (m *Metrics) LogSkipped(chain, reason string) {
	if m != nil {
		m.logsSkipped.WithLabelValues(chain, reason).Inc()
	}
}

// RowInserted increments the inserted row counter.
func (m *Metrics) RowInserted(table string) {
	if m != nil {
		m.rowsInserted.WithLabelValues(table).Inc()
	}
}

// LogError increments the per-log failure counter.
func (m *Metrics) LogError(table string) {
	if m != nil {
		m.logErrors.WithLabelValues(table).Inc()
	}
}

// RPCCall records one RPC call with its status class.
func (m *Metrics) RPCCall(chain, method, status string) {
	if m != nil {
		m.rpcCalls.WithLabelValues(chain, method, status).Inc()
	}
}

// Handler returns an HTTP handler for /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
