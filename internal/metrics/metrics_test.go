package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"realty-backend/internal/metrics"
)

func TestRegistryExposesCounters(t *testing.T) {
	reg := metrics.InitRegistry()

	metrics.ObserveHTTP("/api/property/{id}", "GET", 200, 12*time.Millisecond)
	metrics.ObserveResolution("table")

	rr := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, name := range []string{"realty_http_requests_total", "realty_location_resolutions_total"} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output", name)
		}
	}
}

func TestTransportCountsOutboundRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	hc := &http.Client{Transport: &metrics.Transport{Service: "test", Endpoint: "teapot"}}
	before := testutil.ToFloat64(metrics.ExternalRequests.WithLabelValues("test", "teapot", "418"))
	resp, err := hc.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	after := testutil.ToFloat64(metrics.ExternalRequests.WithLabelValues("test", "teapot", "418"))
	if after-before != 1 {
		t.Fatalf("expected one recorded request, got %v", after-before)
	}
}
