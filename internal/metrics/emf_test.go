package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	out := buf.String()
	if strings.Count(out, "\n") != 1 || !strings.HasSuffix(out, "\n") {
		t.Fatalf("EMF output must be exactly one line, got %q", out)
	}
	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("failed to parse EMF output as JSON: %v\nOutput: %s", err, out)
	}
	return doc
}

func TestRecorder_Flush(t *testing.T) {
	var buf bytes.Buffer
	rec := New(&buf, "TestNamespace")
	rec.now = func() time.Time { return time.UnixMilli(1700000000000) }

	err := rec.Dimension("Outcome", "issued").
		Dimension("Channel", "cli").
		Metric("RenderMs", 250, UnitMilliseconds).
		Count("Sessions").
		Property("reportId", "abc-123").
		Flush()
	if err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	doc := decode(t, &buf)
	if doc["Outcome"] != "issued" || doc["Channel"] != "cli" {
		t.Errorf("dimension values missing: %v", doc)
	}
	if doc["RenderMs"] != 250.0 || doc["Sessions"] != 1.0 {
		t.Errorf("metric values wrong: %v", doc)
	}
	if doc["reportId"] != "abc-123" {
		t.Errorf("reportId = %v", doc["reportId"])
	}

	aws := doc["_aws"].(map[string]any)
	if aws["Timestamp"] != 1700000000000.0 {
		t.Errorf("Timestamp = %v", aws["Timestamp"])
	}
	cw := aws["CloudWatchMetrics"].([]any)[0].(map[string]any)
	if cw["Namespace"] != "TestNamespace" {
		t.Errorf("Namespace = %v", cw["Namespace"])
	}
	if diff := cmp.Diff([]any{[]any{"Channel", "Outcome"}}, cw["Dimensions"]); diff != "" {
		t.Errorf("Dimensions mismatch (-want +got):\n%s", diff)
	}
	wantMetrics := []any{
		map[string]any{"Name": "RenderMs", "Unit": "Milliseconds"},
		map[string]any{"Name": "Sessions", "Unit": "Count"},
	}
	if diff := cmp.Diff(wantMetrics, cw["Metrics"]); diff != "" {
		t.Errorf("Metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestRecorder_NoMetricsNoOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, "X").Dimension("a", "b").Property("p", 1).Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestRecordSession(t *testing.T) {
	var buf bytes.Buffer
	err := RecordSession(&buf, Session{
		ReportID:      "r-1",
		Outcome:       OutcomeIssued,
		IssueType:     "Pothole",
		Region:        "Punjab",
		RegionMatched: true,
		Position:      120 * time.Millisecond,
		Geocode:       300 * time.Millisecond,
		Render:        2 * time.Second,
		ArtifactBytes: 4096,
		Shared:        true,
	})
	if err != nil {
		t.Fatalf("RecordSession() error = %v", err)
	}

	doc := decode(t, &buf)
	want := map[string]any{
		"Outcome":          "issued",
		"Sessions":         1.0,
		"PositionMs":       120.0,
		"GeocodeMs":        300.0,
		"RenderMs":         2000.0,
		"CertificateBytes": 4096.0,
		"Shares":           1.0,
		"issueType":        "Pothole",
		"region":           "Punjab",
		"regionMatched":    true,
	}
	for k, v := range want {
		if doc[k] != v {
			t.Errorf("%s = %v, want %v", k, doc[k], v)
		}
	}
}

func TestRecordSession_FailedOmitsTimings(t *testing.T) {
	var buf bytes.Buffer
	if err := RecordSession(&buf, Session{ReportID: "r-2", Outcome: OutcomeFailed}); err != nil {
		t.Fatalf("RecordSession() error = %v", err)
	}
	doc := decode(t, &buf)
	for _, k := range []string{"PositionMs", "GeocodeMs", "RenderMs", "CertificateBytes", "Shares"} {
		if _, ok := doc[k]; ok {
			t.Errorf("unexpected %s in failed session", k)
		}
	}
	if doc["Sessions"] != 1.0 {
		t.Errorf("Sessions = %v, want 1", doc["Sessions"])
	}
}
