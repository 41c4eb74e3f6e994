package prometheus

import (
	"fmt"
	"time"
)

// AppMetrics holds every application metric the engine emits.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec
	RateLimitRejections CounterVec

	// Clause extraction / LLM
	ExtractionsTotal    CounterVec
	ExtractionDuration  HistogramVec
	ClausesExtracted    HistogramVec
	LLMRequestsTotal    CounterVec
	LLMRequestDuration  HistogramVec
	LLMTokensUsed       CounterVec

	// Deadline engine
	DeadlinesCreatedTotal     CounterVec
	DeadlinesOpen             GaugeVec
	SeverityTransitionsTotal  CounterVec
	TriggerEventsTotal        CounterVec
	TriggerEventsDeduplicated CounterVec

	// Notices
	NoticesGeneratedTotal CounterVec
	NoticesSentTotal      CounterVec
	NoticeSendDuration    HistogramVec

	// Scoring
	ScoreRecomputesTotal CounterVec
	ScoreSnapshotsTotal  CounterVec

	// Alerts
	AlertsSentTotal CounterVec

	// Worker / messaging
	MessagesProcessedTotal CounterVec
	MessageProcessDuration HistogramVec
	MessagesDeadLettered   CounterVec
	CronRunsTotal          CounterVec
	CronRunDuration        HistogramVec

	// Infrastructure
	DBQueryDuration  HistogramVec
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec

	// System health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default buckets.
var (
	DefaultHTTPDurationBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultLLMDurationBuckets  = []float64{.5, 1, 2, 5, 10, 30, 60, 120}
	DefaultDBDurationBuckets   = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	DefaultCronDurationBuckets = []float64{.1, .5, 1, 5, 15, 60, 300}
	DefaultClauseCountBuckets  = []float64{0, 1, 2, 5, 10, 20, 50}
)

// NewAppMetrics registers all metrics and returns the populated struct.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method", "path")
	m.RateLimitRejections = collector.RegisterCounter("rate_limit_rejections_total", "Requests rejected by the rate limiter", "scope")

	// Extraction / LLM
	m.ExtractionsTotal = collector.RegisterCounter("extractions_total", "Contract clause extraction runs", "mode", "status")
	m.ExtractionDuration = collector.RegisterHistogram("extraction_duration_seconds", "Clause extraction duration", DefaultLLMDurationBuckets, "mode")
	m.ClausesExtracted = collector.RegisterHistogram("clauses_extracted_count", "Clauses extracted per document", DefaultClauseCountBuckets, "mode")
	m.LLMRequestsTotal = collector.RegisterCounter("llm_requests_total", "LLM requests total", "model", "operation", "status")
	m.LLMRequestDuration = collector.RegisterHistogram("llm_request_duration_seconds", "LLM request duration", DefaultLLMDurationBuckets, "model", "operation")
	m.LLMTokensUsed = collector.RegisterCounter("llm_tokens_total", "LLM tokens used", "model", "direction")

	// Deadlines
	m.DeadlinesCreatedTotal = collector.RegisterCounter("deadlines_created_total", "Compliance deadlines created", "event_type")
	m.DeadlinesOpen = collector.RegisterGauge("deadlines_open", "Open compliance deadlines", "severity")
	m.SeverityTransitionsTotal = collector.RegisterCounter("severity_transitions_total", "Deadline severity transitions", "from", "to")
	m.TriggerEventsTotal = collector.RegisterCounter("trigger_events_total", "Trigger events processed", "event_type", "status")
	m.TriggerEventsDeduplicated = collector.RegisterCounter("trigger_events_deduplicated_total", "Trigger events skipped as duplicates", "event_type")

	// Notices
	m.NoticesGeneratedTotal = collector.RegisterCounter("notices_generated_total", "Notices generated", "source")
	m.NoticesSentTotal = collector.RegisterCounter("notices_sent_total", "Notices sent", "method", "status")
	m.NoticeSendDuration = collector.RegisterHistogram("notice_send_duration_seconds", "Notice send duration", DefaultHTTPDurationBuckets, "method")

	// Scoring
	m.ScoreRecomputesTotal = collector.RegisterCounter("score_recomputes_total", "Score recomputations", "trigger")
	m.ScoreSnapshotsTotal = collector.RegisterCounter("score_snapshots_total", "Score snapshots written", "period_type")

	// Alerts
	m.AlertsSentTotal = collector.RegisterCounter("alerts_sent_total", "Deadline alerts dispatched", "channel", "severity")

	// Worker / messaging
	m.MessagesProcessedTotal = collector.RegisterCounter("mq_messages_processed_total", "Messages processed", "topic", "status")
	m.MessageProcessDuration = collector.RegisterHistogram("mq_process_duration_seconds", "Message processing duration", DefaultHTTPDurationBuckets, "topic")
	m.MessagesDeadLettered = collector.RegisterCounter("mq_messages_dead_lettered_total", "Messages sent to dead letter topics", "topic")
	m.CronRunsTotal = collector.RegisterCounter("cron_runs_total", "Cron job runs", "job", "status")
	m.CronRunDuration = collector.RegisterHistogram("cron_run_duration_seconds", "Cron job duration", DefaultCronDurationBuckets, "job")

	// Infrastructure
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "operation")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")

	// System health
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "error_type")

	return m
}

// Recording helpers keep label wiring in one place.

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	status := fmt.Sprintf("%d", statusCode)
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordLLMCall(metrics *AppMetrics, model, operation string, success bool, duration time.Duration, inputTokens, outputTokens int) {
	status := "success"
	if !success {
		status = "failure"
	}
	metrics.LLMRequestsTotal.WithLabelValues(model, operation, status).Inc()
	metrics.LLMRequestDuration.WithLabelValues(model, operation).Observe(duration.Seconds())
	metrics.LLMTokensUsed.WithLabelValues(model, "input").Add(float64(inputTokens))
	metrics.LLMTokensUsed.WithLabelValues(model, "output").Add(float64(outputTokens))
}

func RecordTriggerEvent(metrics *AppMetrics, eventType string, deduplicated bool) {
	if deduplicated {
		metrics.TriggerEventsDeduplicated.WithLabelValues(eventType).Inc()
		metrics.TriggerEventsTotal.WithLabelValues(eventType, "duplicate").Inc()
		return
	}
	metrics.TriggerEventsTotal.WithLabelValues(eventType, "processed").Inc()
}

func RecordNoticeSent(metrics *AppMetrics, method string, success bool, duration time.Duration) {
	status := "sent"
	if !success {
		status = "failed"
	}
	metrics.NoticesSentTotal.WithLabelValues(method, status).Inc()
	metrics.NoticeSendDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func RecordCronRun(metrics *AppMetrics, job string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.CronRunsTotal.WithLabelValues(job, status).Inc()
	metrics.CronRunDuration.WithLabelValues(job).Observe(duration.Seconds())
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

func RecordError(metrics *AppMetrics, component, errorType string) {
	metrics.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
