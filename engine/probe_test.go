package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okpiyush/pulse-monitor/model"
)

func probeTarget(url string) *model.Target {
	return &model.Target{ID: "t1", Name: "API", URL: url}
}

func TestProbeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	out := NewHTTPProber().Probe(context.Background(), probeTarget(srv.URL))
	if !out.IsSuccess {
		t.Fatalf("expected success, got error %q", out.ErrorMessage)
	}
	if out.StatusCode == nil || *out.StatusCode != 200 {
		t.Fatalf("status code = %v", out.StatusCode)
	}
	if out.PayloadBytes == nil || *out.PayloadBytes != 11 {
		t.Fatalf("payload bytes = %v, want 11", out.PayloadBytes)
	}
	if out.TTFBSec == nil || *out.TTFBSec < 0 || *out.TTFBSec > out.ElapsedSec {
		t.Fatalf("ttfb %v outside [0, elapsed %v]", out.TTFBSec, out.ElapsedSec)
	}
	if out.ErrorMessage != "" {
		t.Fatalf("unexpected error message %q", out.ErrorMessage)
	}
}

func TestProbeHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	out := NewHTTPProber().Probe(context.Background(), probeTarget(srv.URL))
	if out.IsSuccess {
		t.Fatalf("5xx must not be success")
	}
	if out.ErrorMessage != "HTTP 500" {
		t.Fatalf("error message = %q, want HTTP 500", out.ErrorMessage)
	}
	if out.StatusCode == nil || *out.StatusCode != 500 {
		t.Fatalf("status code = %v", out.StatusCode)
	}
}

func TestProbeClassifiesRedirectChainAsSuccess(t *testing.T) {
	var final *httptest.Server
	final = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer final.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusFound)
	}))
	defer srv.Close()

	out := NewHTTPProber().Probe(context.Background(), probeTarget(srv.URL))
	if !out.IsSuccess {
		t.Fatalf("redirected probe failed: %q", out.ErrorMessage)
	}
}

func TestProbeConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	out := NewHTTPProber().Probe(context.Background(), probeTarget(url))
	if out.IsSuccess {
		t.Fatalf("probe of closed port succeeded")
	}
	if out.StatusCode != nil {
		t.Fatalf("transport failure must leave status code nil")
	}
	if out.ErrorMessage != "Connection refused" {
		t.Fatalf("error message = %q", out.ErrorMessage)
	}
	if out.ElapsedSec < 0 {
		t.Fatalf("elapsed = %v", out.ElapsedSec)
	}
}

func TestProbeTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	out := NewHTTPProberWithTimeout(50 * time.Millisecond).Probe(context.Background(), probeTarget(srv.URL))
	if out.IsSuccess {
		t.Fatalf("timed-out probe succeeded")
	}
	if out.ErrorMessage != "Request timed out" {
		t.Fatalf("error message = %q", out.ErrorMessage)
	}
	if out.StatusCode != nil {
		t.Fatalf("timeout must leave status code nil")
	}
}

func TestProbeInvalidURL(t *testing.T) {
	out := NewHTTPProber().Probe(context.Background(), probeTarget("http://\x00bad"))
	if out.IsSuccess {
		t.Fatalf("invalid URL succeeded")
	}
}
