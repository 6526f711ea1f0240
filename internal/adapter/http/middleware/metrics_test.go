package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/api/v1/accounts", "/api/v1/accounts"},
		{"/api/v1/accounts/acc-123", "/api/v1/accounts/:id"},
		{"/api/v1/accounts/acc-123/balance", "/api/v1/accounts/:id/balance"},
		{"/api/v1/batches/batch-9/execute", "/api/v1/batches/:id/execute"},
		{"/api/v1/instructions/pi-1", "/api/v1/instructions/:id"},
		{"/api/v1/entries/e-1/reverse", "/api/v1/entries/:id/reverse"},
		{"/api/v1/liabilities/le-1/recovery", "/api/v1/liabilities/:id/recovery"},
		{"/api/v1/providers/achsim/callback", "/api/v1/providers/:id/callback"},
		{"/health", "/health"},
	}

	for _, tt := range tests {
		if got := normalizePath(tt.in); got != tt.want {
			t.Errorf("normalizePath(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestMetricsMiddlewarePassesThrough(t *testing.T) {
	handler := Metrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/acc-1", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", rr.Code)
	}
}
