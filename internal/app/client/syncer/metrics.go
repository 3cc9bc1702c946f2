package syncer

import (
	"time"

	"clinicsync/internal/domain/queue"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clinicsync"

// Metrics is optional; a nil *Metrics records nothing.
type Metrics struct {
	drains   *prometheus.CounterVec
	items    *prometheus.CounterVec
	queue    *prometheus.GaugeVec
	duration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		drains: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "drains_total",
			Help:      "Drain cycles by result.",
		}, []string{"result"}),
		items: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "items_total",
			Help:      "Processed queue items by entity, action and outcome.",
		}, []string{"entity", "action", "outcome"}),
		queue: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "queue_items",
			Help:      "Queue items by status after the last drain.",
		}, []string{"status"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "drain_duration_seconds",
			Help:      "Duration of completed drain cycles.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) drain(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.drains.WithLabelValues(result).Inc()
	if result == drainCompleted {
		m.duration.Observe(took.Seconds())
	}
}

func (m *Metrics) item(item *queue.Item, outcome string) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(string(item.Entity), string(item.Action), outcome).Inc()
}

func (m *Metrics) counts(c queue.Counts) {
	if m == nil {
		return
	}
	m.queue.WithLabelValues(string(queue.StatusPending)).Set(float64(c.Pending))
	m.queue.WithLabelValues(string(queue.StatusSyncing)).Set(float64(c.Syncing))
	m.queue.WithLabelValues(string(queue.StatusFailed)).Set(float64(c.Failed))
	m.queue.WithLabelValues(string(queue.StatusCompleted)).Set(float64(c.Completed))
}
