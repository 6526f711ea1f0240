package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("failed to read stdout: %v", err)
	}
	return buf.String()
}

func withServer(t *testing.T, handler http.Handler) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	origURL, origTenant := baseURL, tenant
	baseURL = srv.URL
	tenant = "tenant-1"
	t.Cleanup(func() {
		baseURL = origURL
		tenant = origTenant
	})
}

func TestCheckHealth(t *testing.T) {
	withServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ready" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}))

	out := captureOutput(t, checkHealth)

	if !strings.Contains(out, "Service ready") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestShowBalance(t *testing.T) {
	withServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Tenant-ID") != "tenant-1" {
			t.Errorf("missing tenant header")
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"account_id":"acc-1","balance":"250","as_of":"2026-08-31T00:00:00Z"}`))
	}))

	out := captureOutput(t, func() { showBalance("acc-1") })

	if !strings.Contains(out, "Balance: 250") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCheckConsistency(t *testing.T) {
	withServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"consistent"}`))
	}))

	out := captureOutput(t, checkConsistency)

	if !strings.Contains(out, "PASSED") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestExportEvents(t *testing.T) {
	withServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if after := r.URL.Query().Get("after"); after != "0" {
			t.Errorf("after = %s, want 0", after)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"sequence":1,"name":"funding.requested"},{"sequence":2,"name":"funding.approved"}]`))
	}))

	out := captureOutput(t, func() { exportEvents(0) })

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d: %q", len(lines), out)
	}
	if !strings.Contains(lines[1], `"funding.approved"`) {
		t.Fatalf("unexpected last line: %q", lines[1])
	}
}
