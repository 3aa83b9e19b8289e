package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/Sternrassler/api2xlsx/pkg/export"
	"github.com/Sternrassler/api2xlsx/pkg/metrics"
	_ "github.com/Sternrassler/api2xlsx/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
)

func TestRegistry(t *testing.T) {
	if metrics.Registry == nil {
		t.Error("Registry should not be nil")
	}

	if metrics.Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

func TestHandler(t *testing.T) {
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	metrics.Handler().ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	for _, name := range []string{"api2xlsx_exported_rows", "api2xlsx_pacer_throttles_total", "go_goroutines"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("Expected metric %s in scrape output", name)
		}
	}
}
