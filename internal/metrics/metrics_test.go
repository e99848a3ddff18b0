package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/luhtfiimanal/go-serial-stream/internal/convert"
	"github.com/luhtfiimanal/go-serial-stream/internal/pipeline"
)

func TestMetrics_Observe(t *testing.T) {
	m := New()

	m.ObserveChunk(12, convert.Counts{Words: 3, Commas: 1, Lines: 2})
	m.ObserveChunk(4, convert.Counts{})
	m.ObserveTimeout()
	m.ObserveTimeout()
	m.ObserveReport(pipeline.Rates{Words: 3, Commas: 1, Bytes: 16, Lines: 2})

	require.Equal(t, 16.0, testutil.ToFloat64(m.BytesRead))
	require.Equal(t, 3.0, testutil.ToFloat64(m.Words))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Commas))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Lines))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Timeouts))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Reports))
	require.Equal(t, 16.0, testutil.ToFloat64(m.Rate.WithLabelValues("bytes")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveChunk(5, convert.Counts{})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "serialstream_bytes_read_total 5")
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveTimeout()
	require.Equal(t, 0.0, testutil.ToFloat64(b.Timeouts))
	require.NotSame(t, a.Registry(), b.Registry())
}
