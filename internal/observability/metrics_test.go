package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveRecompute("ok", time.Second, 1, 2)
	m.ObserveSweep("ok", 3, 0, time.Second)
	m.IncMatchEvent("match_accepted")
	m.APIInflightInc()
	require.NoError(t, m.WritePrometheus(&bytes.Buffer{}))
}

func TestMetricsRecordMatching(t *testing.T) {
	m := NewMetrics()
	m.ObserveRecompute("ok", 20*time.Millisecond, 2, 5)
	m.ObserveRecompute("error", time.Second, 0, 0)
	m.ObserveSweep("partial", 10, 2, 3*time.Second)
	m.ObserveSweep("skipped", 0, 0, 0)
	m.IncMatchEvent("match_requested")

	require.Equal(t, 1.0, m.recomputes.Value("ok"))
	require.Equal(t, 5.0, m.evidenceAdded.Value())
	require.Equal(t, uint64(1), m.recomputeLatency.Count("error"))
	// skipped sweeps leave the last-sweep gauges alone
	require.Equal(t, 10.0, m.sweepUsers.Value())
	require.Equal(t, 2.0, m.sweepFailures.Value())

	var buf bytes.Buffer
	require.NoError(t, m.WritePrometheus(&buf))
	out := buf.String()
	require.Contains(t, out, `solace_match_recomputes_total{status="ok"} 1`)
	require.Contains(t, out, `solace_match_sweeps_total{outcome="skipped"} 1`)
	require.Contains(t, out, `solace_match_recompute_duration_seconds_bucket{status="ok",le="0.05"} 1`)
	require.Contains(t, out, `solace_match_events_total{event="match_requested"} 1`)
}

func TestLabelEscaping(t *testing.T) {
	require.Equal(t, `{route="/a\"b",status="unknown"}`, labelString([]string{"route", "status"}, []string{`/a"b`}))
	require.Equal(t, `{le="1"}`, withLe("", "1"))
	require.Equal(t, `{a="x",le="+Inf"}`, withLe(`{a="x"}`, "+Inf"))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestWritePrometheusPropagatesWriteErrors(t *testing.T) {
	require.Error(t, NewMetrics().WritePrometheus(failingWriter{}))
}

func TestOtelHeaders(t *testing.T) {
	require.Nil(t, otelHeaders(""))
	h := otelHeaders("api-key=abc, x-team = solace ,broken")
	require.Equal(t, map[string]string{"api-key": "abc", "x-team": "solace"}, h)
	require.False(t, strings.Contains(h["x-team"], " "))
}
