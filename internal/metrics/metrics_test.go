package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveStatusWrite(t *testing.T) {
	before := testutil.ToFloat64(statusWrites.WithLabelValues("poll", "major_outage", "error"))
	ObserveStatusWrite("poll", "major_outage", errors.New("boom"))
	after := testutil.ToFloat64(statusWrites.WithLabelValues("poll", "major_outage", "error"))
	require.Equal(t, before+1, after)
}

func TestObserveProbeOutcomes(t *testing.T) {
	ok := testutil.ToFloat64(probes.WithLabelValues("ok"))
	bad := testutil.ToFloat64(probes.WithLabelValues("non_2xx"))
	failed := testutil.ToFloat64(probes.WithLabelValues("failed"))
	ObserveProbe(204, nil)
	ObserveProbe(503, nil)
	ObserveProbe(0, errors.New("timeout"))
	require.Equal(t, ok+1, testutil.ToFloat64(probes.WithLabelValues("ok")))
	require.Equal(t, bad+1, testutil.ToFloat64(probes.WithLabelValues("non_2xx")))
	require.Equal(t, failed+1, testutil.ToFloat64(probes.WithLabelValues("failed")))
}

func TestHandlerExposesNamespace(t *testing.T) {
	ObserveStoreCall("set_status", time.Now(), nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	require.True(t, strings.Contains(string(body), "statuspage_sync_store_requests_total"))
}
