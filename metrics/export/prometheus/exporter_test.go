package prometheus

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/docstore/memstore"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snapshot authcore.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() authcore.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func newFake() fakeSource {
	return fakeSource{
		snapshot: authcore.MetricsSnapshot{
			Counters: map[authcore.MetricID]uint64{
				authcore.MetricLoginSuccess:    7,
				authcore.MetricLockoutFailOpen: 2,
			},
			Histograms: map[authcore.MetricID][]uint64{
				authcore.MetricLoginLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 3,
	}
}

func TestRejectsNilSource(t *testing.T) {
	_, err := NewPrometheusExporterFromSource(nil)
	assert.ErrorIs(t, err, ErrNilSource)

	_, err = NewPrometheusExporter(nil)
	assert.ErrorIs(t, err, ErrNilSource)
}

func TestCollectCounters(t *testing.T) {
	exp, err := NewPrometheusExporterFromSource(newFake())
	require.NoError(t, err)

	expected := `
# HELP authcore_login_success_total Successful logins.
# TYPE authcore_login_success_total counter
authcore_login_success_total 7
# HELP authcore_lockout_fail_open_total Logins allowed because the attempt store failed.
# TYPE authcore_lockout_fail_open_total counter
authcore_lockout_fail_open_total 2
# HELP authcore_audit_dropped_total Activity log entries dropped by the async dispatcher.
# TYPE authcore_audit_dropped_total counter
authcore_audit_dropped_total 3
`
	err = testutil.CollectAndCompare(exp, strings.NewReader(expected),
		"authcore_login_success_total",
		"authcore_lockout_fail_open_total",
		"authcore_audit_dropped_total",
	)
	assert.NoError(t, err)
}

func TestHistogramOmittedWhenDisabled(t *testing.T) {
	src := newFake()
	src.snapshot.Histograms = map[authcore.MetricID][]uint64{}
	exp, err := NewPrometheusExporterFromSource(src)
	require.NoError(t, err)

	withHist, err := NewPrometheusExporterFromSource(newFake())
	require.NoError(t, err)

	assert.Equal(t, testutil.CollectAndCount(withHist)-1, testutil.CollectAndCount(exp))
}

func TestHandlerServesCumulativeBuckets(t *testing.T) {
	exp, err := NewPrometheusExporterFromSource(newFake())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)
	assert.Contains(t, out, `authcore_login_latency_seconds_bucket{le="0.005"} 1`)
	assert.Contains(t, out, `authcore_login_latency_seconds_bucket{le="0.5"} 28`)
	assert.Contains(t, out, `authcore_login_latency_seconds_bucket{le="+Inf"} 36`)
	assert.Contains(t, out, "authcore_login_latency_seconds_count 36")
}

func TestExporterOverEngine(t *testing.T) {
	cfg := authcore.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(strings.Repeat("k", 32))
	engine, err := authcore.New().WithConfig(cfg).WithStore(memstore.New()).Build()
	require.NoError(t, err)
	defer engine.Close()

	exp, err := NewPrometheusExporter(engine)
	require.NoError(t, err)

	expected := `
# HELP authcore_registration_total Accounts registered.
# TYPE authcore_registration_total counter
authcore_registration_total 0
`
	assert.NoError(t, testutil.CollectAndCompare(exp, strings.NewReader(expected), "authcore_registration_total"))
}
