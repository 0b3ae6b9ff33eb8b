package metrics

import (
	"testing"

	"mcpgateway/internal/upstream"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSetUpstreamStateReportsStateCode(t *testing.T) {
	m := New()
	m.SetUpstreamState("u1", upstream.StateRunning)

	got := testutil.ToFloat64(m.upstreamState.WithLabelValues("u1"))
	if got != 2 {
		t.Fatalf("expected state code 2 for StateRunning, got %v", got)
	}
}

func TestObserveToolCallIncrementsCounter(t *testing.T) {
	m := New()
	m.ObserveToolCall("tools/call", "success", 0.05)
	m.ObserveToolCall("tools/call", "success", 0.1)

	got := testutil.ToFloat64(m.toolCalls.WithLabelValues("tools/call", "success"))
	if got != 2 {
		t.Fatalf("expected 2 recorded calls, got %v", got)
	}
}

func TestSetActiveSessionsReportsGauge(t *testing.T) {
	m := New()
	m.SetActiveSessions(7)

	if got := testutil.ToFloat64(m.activeSessions); got != 7 {
		t.Fatalf("expected active_sessions gauge 7, got %v", got)
	}
}
