package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wodcal"

var (
	pageFetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "upstream",
		Name:      "page_fetch_duration_seconds",
		Help:      "Latency of agenda page fetches against the gym site.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source", "outcome"})

	eventsExtracted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "agenda",
		Name:      "events_extracted_total",
		Help:      "Agenda rows turned into events.",
	})

	rowsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "agenda",
		Name:      "rows_skipped_total",
		Help:      "Agenda rows dropped for an unknown day or malformed time.",
	})

	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "timetable_requests_total",
		Help:      "Timetable requests by output format and status code.",
	}, []string{"format", "code"})

	probeSuccessGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "probe",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful readiness probe.",
	})
)

func init() {
	prometheus.MustRegister(pageFetchDuration, eventsExtracted, rowsSkipped, requestsTotal, probeSuccessGauge)
}

// ObservePageFetch records one upstream fetch.
func ObservePageFetch(source string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	pageFetchDuration.WithLabelValues(source, outcome).Observe(d.Seconds())
}

// RecordExtraction counts extracted and skipped rows for one week.
func RecordExtraction(events, skipped int) {
	eventsExtracted.Add(float64(events))
	rowsSkipped.Add(float64(skipped))
}

// RecordRequest counts a finished timetable request.
func RecordRequest(format, code string) {
	requestsTotal.WithLabelValues(format, code).Inc()
}

// RecordProbeSuccess updates the readiness watermark gauge.
func RecordProbeSuccess(ts time.Time) {
	if ts.IsZero() {
		return
	}
	probeSuccessGauge.Set(float64(ts.Unix()))
}
