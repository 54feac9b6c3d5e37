// Package metrics holds the Prometheus collectors of the sync engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricPushesTotal         = "scenesync_pushes_total"
	MetricPushSuppressedTotal = "scenesync_push_suppressed_total"
	MetricPushDuration        = "scenesync_push_duration_seconds"
	MetricAttachmentTransfers = "scenesync_attachment_transfers_total"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"

	DirectionUpload   = "upload"
	DirectionDownload = "download"
)

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	pushes      *prometheus.CounterVec
	suppressed  prometheus.Counter
	pushLatency prometheus.Histogram
	transfers   *prometheus.CounterVec
}

// New creates the collectors without registering them.
func New() *Metrics {
	return &Metrics{
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricPushesTotal,
			Help: "Remote document pushes by result",
		}, []string{"result"}),
		suppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricPushSuppressedTotal,
			Help: "Pushes skipped because the document equals the last pushed snapshot",
		}),
		pushLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricPushDuration,
			Help:    "Duration of remote document pushes in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricAttachmentTransfers,
			Help: "Attachment uploads and downloads by result",
		}, []string{"direction", "result"}),
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.pushes, m.suppressed, m.pushLatency, m.transfers}
}

// ObservePush records a finished push.
func (m *Metrics) ObservePush(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.pushes.WithLabelValues(result(err)).Inc()
	m.pushLatency.Observe(d.Seconds())
}

func (m *Metrics) IncSuppressed() {
	if m == nil {
		return
	}
	m.suppressed.Inc()
}

func (m *Metrics) IncTransfer(direction string, err error) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(direction, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
