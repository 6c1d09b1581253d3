package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.Login("ok")
	m.PostView()
	m.BlobDelete(nil)
	m.Upload("file")
	m.Session("ok")
	m.ObserveHTTP("GET", "/post", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.Login("invalid_credentials")
	m.Login("invalid_credentials")
	m.BlobDelete(errors.New("x"))
	m.PostView()

	require.Equal(t, 2.0, testutil.ToFloat64(m.logins.WithLabelValues("invalid_credentials")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.blobDeletes.WithLabelValues("error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.postViews))

	m.ObserveHTTP("GET", "/post/{id}", 200, 10*time.Millisecond)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `maru_http_requests_total{method="GET",route="/post/{id}",status="200"} 1`)
}
