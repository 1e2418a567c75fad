package rpc

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestAuthenticatorIssuerAndAudience(t *testing.T) {
	cfg := AuthConfig{HMACSecret: testSecret, Issuer: "donex", Audience: "donex-rpc"}
	auth := newAuthenticator(cfg)

	good, err := IssueToken(cfg, " alice ", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set("Authorization", "bearer "+good)
	sender, rpcErr := auth.sender(req)
	if rpcErr != nil || sender != "alice" {
		t.Fatalf("expected alice, got %q %+v", sender, rpcErr)
	}

	wrongAudience, err := IssueToken(AuthConfig{HMACSecret: testSecret, Issuer: "donex", Audience: "other"}, "alice", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+wrongAudience)
	if _, rpcErr := auth.sender(req); rpcErr == nil {
		t.Fatalf("expected audience mismatch rejection")
	}

	noIssuer, err := IssueToken(AuthConfig{HMACSecret: testSecret}, "alice", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+noIssuer)
	if _, rpcErr := auth.sender(req); rpcErr == nil {
		t.Fatalf("expected issuer mismatch rejection")
	}
}

func TestAuthenticatorWithoutSecret(t *testing.T) {
	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set("Authorization", "Bearer x.y.z")
	if _, rpcErr := newAuthenticator(AuthConfig{}).sender(req); rpcErr == nil || rpcErr.Code != codeUnauthorized {
		t.Fatalf("expected rejection without configured secret, got %+v", rpcErr)
	}
}

func TestIssueTokenValidation(t *testing.T) {
	if _, err := IssueToken(AuthConfig{}, "alice", time.Hour, time.Now()); err == nil {
		t.Fatalf("expected missing secret error")
	}
	if _, err := IssueToken(AuthConfig{HMACSecret: testSecret}, "  ", time.Hour, time.Now()); err == nil {
		t.Fatalf("expected missing subject error")
	}
}
