package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	agentauth "github.com/MrEthical07/agentauth"
)

type fakeSource struct {
	snapshot agentauth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() agentauth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: agentauth.MetricsSnapshot{
			Counters:   map[agentauth.MetricID]uint64{},
			Histograms: map[agentauth.MetricID][]uint64{},
		},
		dropped: 0,
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderDeterministicIncludesCounterAndHistogram(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: agentauth.MetricsSnapshot{
			Counters: map[agentauth.MetricID]uint64{
				agentauth.MetricFlowComplete: 7,
			},
			Histograms: map[agentauth.MetricID][]uint64{
				agentauth.MetricContinueLatency: {1, 2, 3, 4, 5, 6, 7},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	if !strings.Contains(out, "agentauth_flow_complete_total 7") {
		t.Fatalf("expected flow_complete counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "agentauth_continue_latency_seconds_bucket{le=\"0.001\"} 1") {
		t.Fatalf("expected first histogram bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "agentauth_continue_latency_seconds_bucket{le=\"+Inf\"} 28") {
		t.Fatalf("expected +Inf cumulative bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "agentauth_audit_dropped_total 2") {
		t.Fatalf("expected audit dropped counter in output, got:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: agentauth.MetricsSnapshot{
			Counters:   map[agentauth.MetricID]uint64{agentauth.MetricFlowBegin: 1},
			Histograms: map[agentauth.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewPrometheusExporterFromSource(fakeSource{
		snapshot: agentauth.MetricsSnapshot{
			Counters: map[agentauth.MetricID]uint64{
				agentauth.MetricFlowBegin:          1000,
				agentauth.MetricCachedTokenHit:     250,
				agentauth.MetricSignInCardIssued:   750,
				agentauth.MetricFlowComplete:       700,
				agentauth.MetricFlowFailure:        50,
				agentauth.MetricMagicCodeRejected:  120,
				agentauth.MetricTokenExchangeDedup: 9,
			},
			Histograms: map[agentauth.MetricID][]uint64{
				agentauth.MetricContinueLatency: {10, 20, 30, 40, 50, 60, 70},
			},
		},
		dropped: 0,
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
