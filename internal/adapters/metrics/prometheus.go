// Package metrics exports relay activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/tpmsrelay/internal/domain"
	"github.com/bft-labs/tpmsrelay/internal/ports"
)

const namespace = "tpmsrelay"

// Recorder implements ports.Metrics with Prometheus collectors registered
// on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	decoded        *prometheus.CounterVec // by variant
	decodeFailures *prometheus.CounterVec // by variant and kind
	unmatched      prometheus.Counter
	dropped        prometheus.Counter
	upserts        prometheus.Counter
	queueFull      prometheus.Counter
	queueSize      prometheus.Gauge
	transmissions  *prometheus.CounterVec // by result
	evictions      prometheus.Counter
}

// NewRecorder creates a recorder. Go runtime and process collectors are
// registered alongside the relay metrics.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		decoded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_decoded_total",
			Help:      "Frames decoded into a sensor reading.",
		}, []string{"variant"}),
		decodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Decoder rejections by variant and failure kind.",
		}, []string{"variant", "kind"}),
		unmatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_unmatched_total",
			Help:      "Frames no decoder accepted.",
		}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_dropped_total",
			Help:      "Frames dropped because the capture hand-off was full.",
		}),
		upserts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "upserts_total",
			Help:      "Readings inserted into or refreshed in the retransmission queue.",
		}),
		queueFull: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "full_total",
			Help:      "Readings rejected because the retransmission queue was full.",
		}),
		queueSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "size",
			Help:      "Sensors currently scheduled for retransmission.",
		}),
		transmissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transmissions_total",
			Help:      "Wire frames handed to the transmitter, by result.",
		}, []string{"result"}),
		evictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "evictions_total",
			Help:      "Entries retired after their final retransmission.",
		}),
	}
}

func (r *Recorder) FrameDecoded(v domain.Variant) {
	r.decoded.WithLabelValues(v.String()).Inc()
}

func (r *Recorder) DecodeFailed(v domain.Variant, kind string) {
	r.decodeFailures.WithLabelValues(v.String(), kind).Inc()
}

func (r *Recorder) FrameUnmatched() { r.unmatched.Inc() }
func (r *Recorder) CaptureDropped() { r.dropped.Inc() }
func (r *Recorder) QueueUpserted()  { r.upserts.Inc() }
func (r *Recorder) QueueFull()      { r.queueFull.Inc() }
func (r *Recorder) QueueSize(n int) { r.queueSize.Set(float64(n)) }
func (r *Recorder) Evicted()        { r.evictions.Inc() }

func (r *Recorder) Transmitted(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	r.transmissions.WithLabelValues(result).Inc()
}

// Registry returns the registry holding the relay metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

var _ ports.Metrics = (*Recorder)(nil)
