package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics collects the per-tick counters exposed on the health server.
type Metrics struct {
	Ticks           prometheus.Counter
	FetchFailures   prometheus.Counter
	RateLimitPauses prometheus.Counter
	AlertsSent      prometheus.Counter
	SendFailures    prometheus.Counter
}

// New builds the counter set and registers it when reg is non-nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rialwatch",
			Subsystem: "engine",
			Name:      "ticks_total",
			Help:      "The total number of polling iterations",
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rialwatch",
			Subsystem: "engine",
			Name:      "fetch_failures_total",
			Help:      "The total number of ticks that produced no quote",
		}),
		RateLimitPauses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rialwatch",
			Subsystem: "engine",
			Name:      "rate_limit_pauses_total",
			Help:      "The total number of server-directed backoff pauses honored",
		}),
		AlertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rialwatch",
			Subsystem: "engine",
			Name:      "alerts_sent_total",
			Help:      "The total number of alerts delivered to the sink",
		}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rialwatch",
			Subsystem: "engine",
			Name:      "send_failures_total",
			Help:      "The total number of alert deliveries that failed",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Ticks, m.FetchFailures, m.RateLimitPauses, m.AlertsSent, m.SendFailures)
	}
	return m
}
