package rpc

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIDIgnoresHeadersFromUntrustedPeers(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	req.Header.Set("X-Real-IP", "198.51.100.1")
	req.Header.Set("X-Forwarded-For", "198.51.100.2")
	if got := clientID(req, nil); got != "203.0.113.9" {
		t.Fatalf("spoofed headers honoured: %q", got)
	}
}

func TestClientIDBehindTrustedProxy(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.7 ", ""})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.1.2.3:443"
	req.Header.Set("X-Forwarded-For", "1.1.1.1, 198.51.100.7, 10.0.0.9")
	if got := clientID(req, trusted); got != "198.51.100.7" {
		t.Fatalf("expected rightmost untrusted hop, got %q", got)
	}

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "198.51.100.8")
	if got := clientID(req, trusted); got != "198.51.100.8" {
		t.Fatalf("expected X-Real-IP from trusted proxy, got %q", got)
	}

	req.Header.Del("X-Real-IP")
	req.RemoteAddr = "192.0.2.7:80"
	if got := clientID(req, trusted); got != "192.0.2.7" {
		t.Fatalf("expected proxy address without headers, got %q", got)
	}

	if _, err := ParseTrustedProxies([]string{"not-an-ip"}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestRateLimitNotBypassedByForwardingHeaders(t *testing.T) {
	limiter := newRateLimiter(1, 1, nil)
	handler := limiter.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for i, fwd := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		req.Header.Set("X-Forwarded-For", fwd)
		req.Header.Set("X-Real-IP", fwd)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		want := http.StatusOK
		if i == 1 {
			want = http.StatusTooManyRequests
		}
		if rec.Code != want {
			t.Fatalf("request %d: status %d, want %d", i, rec.Code, want)
		}
	}
}
