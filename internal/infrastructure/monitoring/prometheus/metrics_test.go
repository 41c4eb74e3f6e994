package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
)

func newTestAppMetrics(t *testing.T) (*AppMetrics, MetricsCollector) {
	cfg := CollectorConfig{Namespace: "compliance"}
	c, err := NewMetricsCollector(cfg, logging.NewNopLogger())
	require.NoError(t, err)
	return NewAppMetrics(c), c
}

func TestNewAppMetrics_RegistersAll(t *testing.T) {
	m, c := newTestAppMetrics(t)

	// Touch one metric per group so everything shows up in the scrape.
	m.HTTPRequestsTotal.WithLabelValues("GET", "/api/projects/p/compliance-score", "200").Inc()
	m.ExtractionsTotal.WithLabelValues("sync", "success").Inc()
	m.DeadlinesCreatedTotal.WithLabelValues("RFI").Inc()
	m.NoticesSentTotal.WithLabelValues("EMAIL", "sent").Inc()
	m.ScoreRecomputesTotal.WithLabelValues("notice_sent").Inc()
	m.AlertsSentTotal.WithLabelValues("email", "CRITICAL").Inc()
	m.MessagesDeadLettered.WithLabelValues("compliance.trigger.event").Inc()
	m.CronRunsTotal.WithLabelValues("severity-refresh", "success").Inc()
	m.HealthCheckStatus.WithLabelValues("postgres").Set(1)

	output := scrapeMetrics(t, c)
	for _, name := range []string{
		"compliance_http_requests_total",
		"compliance_extractions_total",
		"compliance_deadlines_created_total",
		"compliance_notices_sent_total",
		"compliance_score_recomputes_total",
		"compliance_alerts_sent_total",
		"compliance_mq_messages_dead_lettered_total",
		"compliance_cron_runs_total",
		"compliance_health_check_status",
	} {
		assert.Contains(t, output, name)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordHTTPRequest(m, "POST", "/api/projects/p/contracts/parse", 202, 120*time.Millisecond)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `compliance_http_requests_total{method="POST",path="/api/projects/p/contracts/parse",status_code="202"} 1`)
	assert.Contains(t, output, "compliance_http_request_duration_seconds_count")
}

func TestRecordLLMCall(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordLLMCall(m, "gpt-4o", "extract_clauses", true, 3*time.Second, 4000, 900)
	RecordLLMCall(m, "gpt-4o", "extract_clauses", false, time.Second, 4000, 0)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `compliance_llm_requests_total{model="gpt-4o",operation="extract_clauses",status="success"} 1`)
	assert.Contains(t, output, `compliance_llm_requests_total{model="gpt-4o",operation="extract_clauses",status="failure"} 1`)
	assert.Contains(t, output, `compliance_llm_tokens_total{direction="input",model="gpt-4o"} 8000`)
}

func TestRecordTriggerEvent(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordTriggerEvent(m, "RFI", false)
	RecordTriggerEvent(m, "RFI", true)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `compliance_trigger_events_total{event_type="RFI",status="processed"} 1`)
	assert.Contains(t, output, `compliance_trigger_events_total{event_type="RFI",status="duplicate"} 1`)
	assert.Contains(t, output, `compliance_trigger_events_deduplicated_total{event_type="RFI"} 1`)
}

func TestRecordNoticeSent(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordNoticeSent(m, "EMAIL", true, 50*time.Millisecond)
	RecordNoticeSent(m, "CERTIFIED_MAIL", false, 10*time.Millisecond)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `compliance_notices_sent_total{method="EMAIL",status="sent"} 1`)
	assert.Contains(t, output, `compliance_notices_sent_total{method="CERTIFIED_MAIL",status="failed"} 1`)
}

func TestRecordCronRun(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordCronRun(m, "daily-snapshot", nil, 2*time.Second)
	RecordCronRun(m, "daily-snapshot", errors.New("lock lost"), time.Second)

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `compliance_cron_runs_total{job="daily-snapshot",status="success"} 1`)
	assert.Contains(t, output, `compliance_cron_runs_total{job="daily-snapshot",status="failure"} 1`)
}

func TestRecordCacheAccessAndError(t *testing.T) {
	m, c := newTestAppMetrics(t)

	RecordCacheAccess(m, "score", true)
	RecordCacheAccess(m, "score", false)
	RecordError(m, "extractor", "llm_timeout")

	output := scrapeMetrics(t, c)
	assert.Contains(t, output, `compliance_cache_hits_total{cache="score"} 1`)
	assert.Contains(t, output, `compliance_cache_misses_total{cache="score"} 1`)
	assert.Contains(t, output, `compliance_errors_total{component="extractor",error_type="llm_timeout"} 1`)
}
