package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	if err := metrics.Track("codes_prune").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantErr := errors.New("boom")
	if err := metrics.Track("codes_prune").End(wantErr); !errors.Is(err, wantErr) {
		t.Fatalf("tracker must return the original error, got %v", err)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	byName := map[string]bool{}
	for _, f := range families {
		byName[f.GetName()] = true
	}
	for _, want := range []string{"gatepass_jobs_total", "gatepass_jobs_failures_total", "gatepass_job_duration_seconds"} {
		if !byName[want] {
			t.Fatalf("missing metric family %s", want)
		}
	}
}

func TestNilMetricsTrackerIsSafe(t *testing.T) {
	var m *Metrics
	if err := m.Track("anything").End(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
