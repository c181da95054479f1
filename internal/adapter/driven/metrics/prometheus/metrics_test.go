package prometheus

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(Options{Labels: prometheus.Labels{"instance": "test"}})
	m.OnlineUsers(3)
	m.ActiveCalls(1)
	m.SignalRelayed("offer")
	m.SignalRelayed("offer")
	m.EventRejected("call-request", "not_found")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`callrelay_online_users{instance="test"} 3`,
		`callrelay_active_calls{instance="test"} 1`,
		`callrelay_signals_relayed_total{instance="test",kind="offer"} 2`,
		`callrelay_events_rejected_total{event="call-request",instance="test",reason="not_found"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output", want)
		}
	}
}
