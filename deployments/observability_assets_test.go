// Package deployments pins the shipped observability assets to the metric
// and alert names the service exposes.
package deployments

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// readAsset loads a file under deployments/ relative to the repository root.
func readAsset(t *testing.T, parts ...string) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), ".."))
	path := filepath.Join(append([]string{root, "deployments"}, parts...)...)
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", filepath.Join(parts...), err)
	}
	return string(content)
}

func TestGrafanaDashboardJSONIsValid(t *testing.T) {
	content := readAsset(t, "observability", "grafana", "medsql_slo_dashboard.json")

	var decoded map[string]any
	if err := json.Unmarshal([]byte(content), &decoded); err != nil {
		t.Fatalf("dashboard JSON parse error: %v", err)
	}

	title, _ := decoded["title"].(string)
	if strings.TrimSpace(title) == "" {
		t.Fatal("dashboard title is required")
	}
	panels, ok := decoded["panels"].([]any)
	if !ok || len(panels) == 0 {
		t.Fatal("dashboard must include at least one panel")
	}
}

func TestPrometheusRulesContainExpectedAlerts(t *testing.T) {
	text := readAsset(t, "observability", "prometheus", "medsql_rules.yaml")

	for _, alertName := range []string{
		"MedSQLTranslationLatencyP95High",
		"MedSQLQueryLatencyP95High",
		"MedSQLTranslationErrorRateHigh",
		"MedSQLHTTPErrorRateHigh",
		"MedSQLQueryFailuresHigh",
		"MedSQLGuardRejectionsDetected",
		"MedSQLUploadRejectionRatioHigh",
		"MedSQLSeedRunFailed",
	} {
		if !strings.Contains(text, "alert: "+alertName) {
			t.Errorf("rules missing alert %q", alertName)
		}
	}

	// Alert expressions must reference the recorded SLO series, not raw
	// histogram queries.
	for _, metricName := range []string{
		"medsql:slo_translation_latency_seconds_p95",
		"medsql:slo_query_latency_seconds_p95",
		"medsql:slo_translation_error_rate_5m",
		"medsql:slo_http_error_rate_5m",
		"medsql:slo_query_failures_15m",
		"medsql:slo_guard_rejections_15m",
		"medsql:slo_upload_rejected_ratio_15m",
		"medsql:slo_seed_failures_24h",
	} {
		if !strings.Contains(text, metricName) {
			t.Errorf("rules missing metric reference %q", metricName)
		}
	}
}

func TestPrometheusScrapeExampleContainsMetricsPathAndRules(t *testing.T) {
	text := readAsset(t, "observability", "prometheus", "prometheus-scrape.example.yaml")

	for _, token := range []string{
		"metrics_path: /v1/metrics",
		"medsql_rules.yaml",
		"medsql_recording_rules.yaml",
		"job_name: medsql-api",
	} {
		if !strings.Contains(text, token) {
			t.Errorf("scrape example missing %q", token)
		}
	}
}

func TestPrometheusRecordingRulesContainExpectedRecords(t *testing.T) {
	text := readAsset(t, "observability", "prometheus", "medsql_recording_rules.yaml")

	for _, recordName := range []string{
		"medsql:slo_translation_latency_seconds_p95",
		"medsql:slo_query_latency_seconds_p95",
		"medsql:slo_translation_error_rate_5m",
		"medsql:slo_http_error_rate_5m",
		"medsql:slo_cache_hit_ratio_5m",
		"medsql:slo_guard_rejections_15m",
		"medsql:slo_query_failures_15m",
		"medsql:slo_upload_rejected_ratio_15m",
		"medsql:slo_seed_failures_24h",
	} {
		if !strings.Contains(text, "record: "+recordName) {
			t.Errorf("recording rules missing record %q", recordName)
		}
	}
}

func TestAlertmanagerExampleContainsSeverityRouting(t *testing.T) {
	text := readAsset(t, "observability", "alertmanager", "alertmanager.example.yaml")

	for _, token := range []string{
		"receiver: medsql-default",
		"severity=\"critical\"",
		"severity=\"warning\"",
		"name: medsql-critical",
		"name: medsql-warning",
		"inhibit_rules:",
		"group_by: [alertname, service, severity]",
	} {
		if !strings.Contains(text, token) {
			t.Errorf("alertmanager example missing token %q", token)
		}
	}
}
