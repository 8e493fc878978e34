package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds all application metrics.
type AppMetrics struct {
	// HTTP Layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Extraction Layer
	ExtractionsTotal      CounterVec
	ExtractionDuration    HistogramVec
	FieldFallbacksTotal   CounterVec
	InvalidCASTotal       CounterVec
	ReferenceMatchesTotal CounterVec

	// Job Layer
	JobsTotal         CounterVec
	JobDuration       HistogramVec
	JobsInFlight      GaugeVec
	CallbacksTotal    CounterVec
	DocumentFetchSize HistogramVec

	// Reference Layer
	ReferenceEntries       GaugeVec
	ReferenceBuiltAt       GaugeVec
	ReferenceRefreshTotal  CounterVec
	ReferenceRefreshLength HistogramVec

	// Infrastructure Layer
	DBQueryDuration        HistogramVec
	CacheHitsTotal         CounterVec
	CacheMissesTotal       CounterVec
	MessageProcessDuration HistogramVec

	// System Health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default Buckets
var (
	DefaultHTTPDurationBuckets       = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultExtractionDurationBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5}
	DefaultJobDurationBuckets        = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	DefaultRefreshDurationBuckets    = []float64{1, 5, 10, 30, 60, 120, 300, 600}
	DefaultSizeBuckets               = []float64{1000, 10000, 50000, 100000, 500000, 1000000, 5000000}
	DefaultDBDurationBuckets         = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
)

// NewAppMetrics registers all metrics and returns AppMetrics struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	// Extraction
	m.ExtractionsTotal = collector.RegisterCounter("extractions_total", "Extractions by profile and outcome", "profile", "status")
	m.ExtractionDuration = collector.RegisterHistogram("extraction_duration_seconds", "Extraction duration", DefaultExtractionDurationBuckets, "profile")
	m.FieldFallbacksTotal = collector.RegisterCounter("field_fallbacks_total", "Fields that fell back to their default value", "profile", "field")
	m.InvalidCASTotal = collector.RegisterCounter("invalid_cas_total", "Extracted CAS numbers failing the check digit", "profile")
	m.ReferenceMatchesTotal = collector.RegisterCounter("reference_matches_total", "Records matched against the reference snapshot", "profile", "matched")

	// Jobs
	m.JobsTotal = collector.RegisterCounter("jobs_total", "Extraction jobs by outcome", "source", "status")
	m.JobDuration = collector.RegisterHistogram("job_duration_seconds", "End to end job duration", DefaultJobDurationBuckets, "source")
	m.JobsInFlight = collector.RegisterGauge("jobs_in_flight", "Jobs currently being processed", "source")
	m.CallbacksTotal = collector.RegisterCounter("callbacks_total", "Result callbacks by outcome", "status")
	m.DocumentFetchSize = collector.RegisterHistogram("document_size_bytes", "Size of fetched documents", DefaultSizeBuckets, "origin")

	// Reference
	m.ReferenceEntries = collector.RegisterGauge("reference_entries", "Entries in the active reference snapshot")
	m.ReferenceBuiltAt = collector.RegisterGauge("reference_built_at_seconds", "Unix time the active reference snapshot was built")
	m.ReferenceRefreshTotal = collector.RegisterCounter("reference_refresh_total", "Reference snapshot refreshes by outcome", "status")
	m.ReferenceRefreshLength = collector.RegisterHistogram("reference_refresh_duration_seconds", "Reference snapshot rebuild duration", DefaultRefreshDurationBuckets)

	// Infrastructure
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "operation")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.MessageProcessDuration = collector.RegisterHistogram("mq_process_duration_seconds", "Message processing duration", DefaultJobDurationBuckets, "topic")

	// System Health
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type")

	return m
}

// Helpers

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordExtraction records one engine run. fallbacks names the fields that
// fell back to their default.
func RecordExtraction(metrics *AppMetrics, profile string, duration time.Duration, fallbacks []string, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.ExtractionsTotal.WithLabelValues(profile, status).Inc()
	metrics.ExtractionDuration.WithLabelValues(profile).Observe(duration.Seconds())
	for _, f := range fallbacks {
		metrics.FieldFallbacksTotal.WithLabelValues(profile, f).Inc()
	}
}

func RecordCASCheck(metrics *AppMetrics, profile string, valid, referenced bool) {
	if !valid {
		metrics.InvalidCASTotal.WithLabelValues(profile).Inc()
	}
	metrics.ReferenceMatchesTotal.WithLabelValues(profile, strconv.FormatBool(referenced)).Inc()
}

func RecordJob(metrics *AppMetrics, source, status string, duration time.Duration) {
	metrics.JobsTotal.WithLabelValues(source, status).Inc()
	metrics.JobDuration.WithLabelValues(source).Observe(duration.Seconds())
}

func RecordCallback(metrics *AppMetrics, err error) {
	if err != nil {
		metrics.CallbacksTotal.WithLabelValues("failure").Inc()
		return
	}
	metrics.CallbacksTotal.WithLabelValues("success").Inc()
}

// RecordReferenceSnapshot publishes the shape of a newly activated snapshot.
func RecordReferenceSnapshot(metrics *AppMetrics, entries int, builtAt time.Time) {
	metrics.ReferenceEntries.WithLabelValues().Set(float64(entries))
	metrics.ReferenceBuiltAt.WithLabelValues().Set(float64(builtAt.Unix()))
}

func RecordReferenceRefresh(metrics *AppMetrics, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.ReferenceRefreshTotal.WithLabelValues(status).Inc()
	metrics.ReferenceRefreshLength.WithLabelValues().Observe(duration.Seconds())
}

func RecordDBQuery(metrics *AppMetrics, operation string, duration time.Duration, err error) {
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		metrics.ErrorsTotal.WithLabelValues("postgres", "query_error").Inc()
	}
}

func RecordCacheAccess(metrics *AppMetrics, cache string, hit bool) {
	if hit {
		metrics.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		metrics.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

func RecordHealth(metrics *AppMetrics, component string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	metrics.HealthCheckStatus.WithLabelValues(component).Set(v)
}

func RecordError(metrics *AppMetrics, component, errorType string) {
	metrics.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

//Personal.AI order the ending
