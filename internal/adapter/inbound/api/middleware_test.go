package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/jlov7/Switchboard/internal/domain/auth"
)

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	t.Parallel()
	var seen string
	handler := RequestIDMiddleware(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(RequestIDKey).(string)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen == "" {
		t.Fatal("expected a generated request id in context")
	}
	if rec.Header().Get("X-Request-ID") != seen {
		t.Fatalf("expected request id echoed in header, got %q", rec.Header().Get("X-Request-ID"))
	}
}

func TestRequestIDMiddleware_HonorsInboundID(t *testing.T) {
	t.Parallel()
	handler := RequestIDMiddleware(testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") != "req-42" {
		t.Fatalf("expected inbound request id preserved, got %q", rec.Header().Get("X-Request-ID"))
	}
}

func TestMetricsMiddleware_RecordsCountAndDuration(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	handler := MetricsMiddleware(metrics, "/route")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	req := httptest.NewRequest(http.MethodPost, "/route", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var m dto.Metric
	if err := metrics.RequestsTotal.WithLabelValues("POST", "/route", "403").Write(&m); err != nil {
		t.Fatal(err)
	}
	if m.Counter.GetValue() != 1 {
		t.Fatalf("expected count 1 for POST /route 403, got %f", m.Counter.GetValue())
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var observed bool
	for _, mf := range families {
		if mf.GetName() != "switchboard_request_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if m.GetHistogram().GetSampleCount() == 1 {
				observed = true
			}
		}
	}
	if !observed {
		t.Fatal("expected one duration observation for /route")
	}
}

func TestReviewerAuthMiddleware_OpenWithoutKeys(t *testing.T) {
	t.Parallel()
	handler := ReviewerAuthMiddleware(auth.ParseKeyring(""), testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/approvals/pending", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected open endpoint without keyring, got %d", rec.Code)
	}
}

func TestReviewerAuthMiddleware_EnforcesBearerKey(t *testing.T) {
	t.Parallel()
	hash, err := auth.HashKey("reviewer-secret")
	if err != nil {
		t.Fatalf("hash reviewer key: %v", err)
	}
	handler := ReviewerAuthMiddleware(auth.ParseKeyring(hash), testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic reviewer-secret", want: http.StatusUnauthorized},
		{name: "wrong key", header: "Bearer intruder", want: http.StatusUnauthorized},
		{name: "valid key", header: "Bearer reviewer-secret", want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/approvals/pending", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}
