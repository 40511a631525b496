package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Editor holds the collectors of the editor server on a private registry.
type Editor struct {
	Registry *prometheus.Registry

	gestures      *prometheus.CounterVec
	gestureTime   prometheus.Histogram
	volumesAdded  prometheus.Counter
	debounced     prometheus.Counter
	itemsSpawned  *prometheus.CounterVec
	blockFailures prometheus.Counter
	sessions      prometheus.Gauge
}

func New() *Editor {
	m := &Editor{
		Registry: prometheus.NewRegistry(),
		gestures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxeledit",
			Name:      "gestures_total",
			Help:      "Paint gestures by outcome (committed, failed, ignored).",
		}, []string{"result"}),
		gestureTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxeledit",
			Name:      "gesture_commit_seconds",
			Help:      "Time from paint end to transaction commit.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		volumesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxeledit",
			Name:      "preview_volumes_added_total",
			Help:      "Block volumes pushed to preview selections.",
		}),
		debounced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxeledit",
			Name:      "paint_samples_debounced_total",
			Help:      "Paint samples skipped because they repeat the last volume.",
		}),
		itemsSpawned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxeledit",
			Name:      "items_spawned_total",
			Help:      "Item units spawned by item type.",
		}, []string{"item"}),
		blockFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxeledit",
			Name:      "bulk_block_failures_total",
			Help:      "Per-block failures inside bulk operations.",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxeledit",
			Name:      "sessions",
			Help:      "Connected editor sessions.",
		}),
	}
	m.Registry.MustRegister(m.gestures, m.gestureTime, m.volumesAdded, m.debounced, m.itemsSpawned, m.blockFailures, m.sessions)
	return m
}

func (m *Editor) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Editor) VolumeAdded()     { m.volumesAdded.Inc() }
func (m *Editor) SampleDebounced() { m.debounced.Inc() }
func (m *Editor) GestureIgnored()  { m.gestures.WithLabelValues("ignored").Inc() }

func (m *Editor) ItemsSpawned(item string, n int) {
	m.itemsSpawned.WithLabelValues(item).Add(float64(n))
}

func (m *Editor) GestureFinished(result string, d time.Duration, failedBlocks int) {
	m.gestures.WithLabelValues(result).Inc()
	m.gestureTime.Observe(d.Seconds())
	if failedBlocks > 0 {
		m.blockFailures.Add(float64(failedBlocks))
	}
}

// WatchQueue exports the depth and drop count of a background writer queue.
func (m *Editor) WatchQueue(queue string, depth, dropped func() float64) {
	labels := prometheus.Labels{"queue": queue}
	m.Registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "voxeledit",
			Name:        "queue_depth",
			Help:        "Pending entries in a background writer queue.",
			ConstLabels: labels,
		}, depth),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   "voxeledit",
			Name:        "queue_dropped_total",
			Help:        "Entries dropped because a background writer queue was full.",
			ConstLabels: labels,
		}, dropped),
	)
}

func (m *Editor) SessionOpened() { m.sessions.Inc() }
func (m *Editor) SessionClosed() { m.sessions.Dec() }
