package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/v1/progress", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/v1/runs/{run_id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	okBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200"))
	missingBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "404"))

	for _, path := range []string{"/v1/progress", "/v1/runs/a", "/v1/runs/b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")) - okBefore; got < 1 {
		t.Errorf("expected at least 1 new 200, got %f", got)
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "404")) - missingBefore; got < 2 {
		t.Errorf("expected at least 2 new 404s, got %f", got)
	}
	if n := testutil.CollectAndCount(httpRequestDurationSeconds); n <= 0 {
		t.Errorf("expected request durations to be observed, got %d series", n)
	}
	unknown := httptest.NewRecorder()
	Middleware(http.NotFoundHandler()).ServeHTTP(unknown, httptest.NewRequest(http.MethodGet, "/raw", nil))
	if unknown.Code != http.StatusNotFound {
		t.Errorf("expected wrapped handler status to pass through, got %d", unknown.Code)
	}
}
