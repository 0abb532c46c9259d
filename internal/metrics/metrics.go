// Package metrics exposes prometheus collectors for extraction, OCR,
// the result cache and the processing queue.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joseph-ayodele/finextract/internal/async"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/extract"
	"github.com/joseph-ayodele/finextract/internal/ocr"
	"github.com/joseph-ayodele/finextract/internal/pipeline"
)

const namespace = "finextract"

// Metrics holds the collectors. Build one per process with New.
type Metrics struct {
	extractions   *prometheus.CounterVec
	extractTime   *prometheus.HistogramVec
	ocrAttempts   *prometheus.CounterVec
	ocrConfidence prometheus.Histogram
	jobs          *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		extractions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extractions_total",
				Help:      "Extraction requests by path, document kind and outcome.",
			},
			[]string{"path", "kind", "outcome"},
		),
		extractTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "extraction_duration_seconds",
				Help:      "Time taken to extract text from one document.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"path"},
		),
		ocrAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ocr_attempts_total",
				Help:      "OCR passes by page segmentation mode and outcome.",
			},
			[]string{"mode", "outcome"},
		),
		ocrConfidence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "ocr_confidence",
				Help:      "Mean word confidence of each OCR pass.",
				Buckets:   prometheus.LinearBuckets(0, 10, 11),
			},
		),
		jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "processing_jobs_total",
				Help:      "Queued processing jobs by outcome.",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.extractions, m.extractTime, m.ocrAttempts, m.ocrConfidence, m.jobs)
	return m
}

// ObserveExtraction is an extract.Observer.
func (m *Metrics) ObserveExtraction(_ extract.Input, res extract.Result, err error) {
	path := res.Path
	if path == "" {
		path = "none"
	}
	kind := string(res.Annotated.Kind)
	if kind == "" {
		kind = "none"
	}
	m.extractions.WithLabelValues(path, kind, outcome(err, res.LowQuality)).Inc()
	if err == nil {
		m.extractTime.WithLabelValues(path).Observe(res.Duration.Seconds())
	}
}

// ObserveOCRAttempt is an ocr.AttemptObserver.
func (m *Metrics) ObserveOCRAttempt(mode ocr.PageSegMode, confidence float64, err error) {
	m.ocrAttempts.WithLabelValues(mode.String(), outcome(err, false)).Inc()
	if err == nil {
		m.ocrConfidence.Observe(confidence)
	}
}

// ObserveJob is a queue completion hook.
func (m *Metrics) ObserveJob(_ async.Job, _ pipeline.Outcome, err error) {
	m.jobs.WithLabelValues(outcome(err, false)).Inc()
}

// RegisterCache exposes hit/miss counters read from the cached dispatcher.
func RegisterCache(reg prometheus.Registerer, c *extract.CachedDispatcher) {
	reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_hits_total", Help: "Extraction cache hits.",
		}, func() float64 { return float64(c.Stats().Hits) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_misses_total", Help: "Extraction cache misses.",
		}, func() float64 { return float64(c.Stats().Misses) }),
	)
}

// RegisterQueue exposes the number of jobs waiting for a worker.
func RegisterQueue(reg prometheus.Registerer, q *async.Queue) {
	reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace, Name: "queue_depth", Help: "Jobs waiting for a worker.",
	}, func() float64 { return float64(q.Len()) }))
}

// NewRegistry returns a registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler serves reg in the text exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func outcome(err error, low bool) string {
	switch {
	case err != nil:
		if code := common.CodeOf(err); code != "" {
			return strings.ToLower(code)
		}
		return "error"
	case low:
		return "low_quality"
	}
	return "ok"
}
