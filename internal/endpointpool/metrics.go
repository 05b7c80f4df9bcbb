package endpointpool

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments pool traffic. All methods are nil-receiver safe so an
// uninstrumented pool pays nothing.
type Metrics struct {
	calls     *prometheus.CounterVec
	failovers prometheus.Counter
	exhausted prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plaza",
			Subsystem: "endpointpool",
			Name:      "calls_total",
			Help:      "Ledger RPC calls by method and outcome.",
		}, []string{"method", "outcome"}),
		failovers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "plaza",
			Subsystem: "endpointpool",
			Name:      "failovers_total",
			Help:      "Times a call moved on to the next endpoint.",
		}),
		exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "plaza",
			Subsystem: "endpointpool",
			Name:      "exhausted_total",
			Help:      "Calls that failed on every attempted endpoint.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.calls, m.failovers, m.exhausted)
	}
	return m
}

func (m *Metrics) recordCall(method string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.calls.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) recordFailover() {
	if m == nil {
		return
	}
	m.failovers.Inc()
}

func (m *Metrics) recordExhausted() {
	if m == nil {
		return
	}
	m.exhausted.Inc()
}
