package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus implements Recorder with collectors registered lazily on first use.
type Prometheus struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	optimizeLatency *prometheus.HistogramVec
	optimizeStops   prometheus.Histogram
	vehiclesUsed    prometheus.Histogram
	transitions     *prometheus.CounterVec
	statusChanges   *prometheus.CounterVec
	droppedEvents   prometheus.Counter
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus uses prometheus.DefaultRegisterer when reg is nil and "routeopt" when namespace is empty.
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "routeopt"
	}

	return &Prometheus{reg: reg, namespace: namespace}
}

func (p *Prometheus) ensureRegistered() {
	p.once.Do(func() {
		p.optimizeLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "optimizer",
			Name:      "duration_seconds",
			Help:      "Latency of optimization runs by outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10), // 1ms .. ~3.8s
		}, []string{"result"})

		p.optimizeStops = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "optimizer",
			Name:      "stops",
			Help:      "Number of stops per optimization request.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		})

		p.vehiclesUsed = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "optimizer",
			Name:      "vehicles_used",
			Help:      "Number of vehicles used per successful optimization.",
			Buckets:   []float64{1, 2, 3, 5, 10, 20, 50},
		})

		p.transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "tracker",
			Name:      "mutations_total",
			Help:      "Tracker mutations by operation and result (applied, noop, rejected).",
		}, []string{"op", "result"})

		p.statusChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "tracker",
			Name:      "route_status_changes_total",
			Help:      "Route status transitions.",
		}, []string{"from", "to"})

		p.droppedEvents = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "tracker",
			Name:      "dropped_events_total",
			Help:      "Progress events not delivered to a slow subscriber.",
		})

		p.reg.MustRegister(
			p.optimizeLatency,
			p.optimizeStops,
			p.vehiclesUsed,
			p.transitions,
			p.statusChanges,
			p.droppedEvents,
		)
	})
}

func (p *Prometheus) ObserveOptimization(d time.Duration, stops, vehiclesUsed int, err error) {
	p.ensureRegistered()

	result := "ok"
	if err != nil {
		result = "error"
	}
	p.optimizeLatency.WithLabelValues(result).Observe(d.Seconds())
	p.optimizeStops.Observe(float64(stops))
	if err == nil {
		p.vehiclesUsed.Observe(float64(vehiclesUsed))
	}
}

func (p *Prometheus) ObserveTransition(op, result string) {
	p.ensureRegistered()
	p.transitions.WithLabelValues(op, result).Inc()
}

func (p *Prometheus) ObserveRouteStatus(from, to string) {
	p.ensureRegistered()
	p.statusChanges.WithLabelValues(from, to).Inc()
}

func (p *Prometheus) EventDropped() {
	p.ensureRegistered()
	p.droppedEvents.Inc()
}
