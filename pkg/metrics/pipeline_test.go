package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPipelineMetricsRecordAttempts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)

	m.IncSliceAttempt("success")
	m.IncSliceAttempt("success")
	m.IncSliceAttempt("fallback")
	m.IncSliceAttempt("")
	m.ObservePrepareDuration("ok", 2*time.Second)
	m.IncPriceComputation("ok")
	m.IncCheckout("error")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	counts := map[string]float64{}
	for _, fam := range families {
		if fam.GetName() != "slice_attempts_total" {
			continue
		}
		for _, metric := range fam.GetMetric() {
			counts[labelValue(metric, "outcome")] = metric.GetCounter().GetValue()
		}
	}

	if counts["success"] != 2 {
		t.Fatalf("expected 2 success attempts, got %v", counts["success"])
	}
	if counts["fallback"] != 1 {
		t.Fatalf("expected 1 fallback attempt, got %v", counts["fallback"])
	}
	if counts["unknown"] != 1 {
		t.Fatalf("expected empty outcome to normalize to unknown, got %v", counts["unknown"])
	}
}

func TestPipelineMetricsNilSafe(t *testing.T) {
	t.Parallel()

	var m *PipelineMetrics
	m.IncSliceAttempt("success")
	m.ObservePrepareDuration("ok", time.Second)
	m.IncPriceComputation("ok")
	m.IncCheckout("ok")

	unregistered := NewPipelineMetrics(nil)
	unregistered.IncSliceAttempt("success")
}

func labelValue(metric *dto.Metric, name string) string {
	for _, label := range metric.GetLabel() {
		if label.GetName() == name {
			return label.GetValue()
		}
	}
	return ""
}
