package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppMetrics_Exposed(t *testing.T) {
	reg := NewRegistry()
	m := NewAppMetrics(reg)

	m.RecordsTotal.WithLabelValues("LOGIN").Inc()
	m.DiscardedBytes.WithLabelValues("noise").Add(7)
	m.TCPAccepted.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsTotal.WithLabelValues("LOGIN")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.DiscardedBytes.WithLabelValues("noise")))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `gt06_records_total{protocol="LOGIN"} 1`)
	assert.Contains(t, string(body), "tcp_accept_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}
