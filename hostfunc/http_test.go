package hostfunc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPGetBlockedWhenNoHosts(t *testing.T) {
	h := NewHTTP(HTTPConfig{AllowedHosts: nil})
	_, err := h.Get(context.Background(), "https://example.com")
	if err == nil || err.Error() != "http not enabled" {
		t.Errorf("expected 'http not enabled', got %v", err)
	}
}

func TestHTTPGetBlockedForUnallowedHost(t *testing.T) {
	h := NewHTTP(HTTPConfig{AllowedHosts: []string{"allowed.com"}})
	_, err := h.Get(context.Background(), "https://evil.com")
	if err == nil || err.Error() != "host not allowed: evil.com" {
		t.Errorf("expected 'host not allowed', got %v", err)
	}
}

func TestHTTPGetBypassQueryParam(t *testing.T) {
	h := NewHTTP(HTTPConfig{AllowedHosts: []string{"allowed.com"}})
	_, err := h.Get(context.Background(), "https://evil.com/?x=allowed.com")
	if err == nil || err.Error() != "host not allowed: evil.com" {
		t.Errorf("query param bypass should be blocked, got %v", err)
	}
}

func TestHTTPGetBypassSubdomainSuffix(t *testing.T) {
	h := NewHTTP(HTTPConfig{AllowedHosts: []string{"allowed.com"}})
	_, err := h.Get(context.Background(), "https://allowed.com.evil.com/")
	if err == nil || err.Error() != "host not allowed: allowed.com.evil.com" {
		t.Errorf("subdomain suffix bypass should be blocked, got %v", err)
	}
}

func TestHTTPGetReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("1\n2\n3\n"))
	}))
	defer server.Close()

	h := NewHTTP(HTTPConfig{AllowedHosts: []string{"127.0.0.1"}})
	body, err := h.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "1\n2\n3\n" {
		t.Errorf("expected raw body, got %q", body)
	}
}

func TestHTTPGetSendsHeaders(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Cookie")
	}))
	defer server.Close()

	h := NewHTTP(HTTPConfig{
		AllowedHosts: []string{"127.0.0.1"},
		Headers:      map[string]string{"Cookie": "session=abc"},
	})
	if _, err := h.Get(context.Background(), server.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "session=abc" {
		t.Errorf("expected cookie header, got %q", got)
	}
}

func TestHTTPGetRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	h := NewHTTP(HTTPConfig{AllowedHosts: []string{"127.0.0.1"}})
	_, err := h.Get(context.Background(), server.URL)
	if err == nil || !strings.Contains(err.Error(), "unexpected status 404") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestHTTPGetLimitsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer server.Close()

	h := NewHTTP(HTTPConfig{AllowedHosts: []string{"127.0.0.1"}, MaxBodySize: 10})
	body, err := h.Get(context.Background(), server.URL)
	if !errors.Is(err, ErrResponseTooLarge) {
		t.Fatalf("expected ErrResponseTooLarge, got %v", err)
	}
	if body != "" {
		t.Errorf("expected no partial body, got %d bytes", len(body))
	}
}

func TestHTTPGetBodyAtLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 10)))
	}))
	defer server.Close()

	h := NewHTTP(HTTPConfig{AllowedHosts: []string{"127.0.0.1"}, MaxBodySize: 10})
	body, err := h.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(body) != 10 {
		t.Errorf("expected 10 bytes, got %d", len(body))
	}
}

func TestHTTPGetAllowsSubdomain(t *testing.T) {
	h := NewHTTP(HTTPConfig{AllowedHosts: []string{"example.com"}})
	if !h.isHostAllowed("api.example.com") {
		t.Error("subdomain should be allowed")
	}
}

func TestHTTPGetMissingURL(t *testing.T) {
	h := NewHTTP(HTTPConfig{AllowedHosts: []string{"example.com"}})
	_, err := h.Get(context.Background(), "")
	if err == nil || err.Error() != "url required" {
		t.Errorf("expected 'url required', got %v", err)
	}
}

func TestHTTPGetInvalidURL(t *testing.T) {
	h := NewHTTP(HTTPConfig{AllowedHosts: []string{"example.com"}})
	_, err := h.Get(context.Background(), "://invalid")
	if err == nil || err.Error() != "invalid url" {
		t.Errorf("expected 'invalid url', got %v", err)
	}
}

func TestHTTPGetRejectsScheme(t *testing.T) {
	h := NewHTTP(HTTPConfig{AllowedHosts: []string{"example.com"}})
	_, err := h.Get(context.Background(), "ftp://example.com/input")
	if err == nil || err.Error() != "scheme must be http or https" {
		t.Errorf("expected scheme error, got %v", err)
	}
}

// Security tests

func TestHTTPGetURLTooLong(t *testing.T) {
	h := NewHTTP(HTTPConfig{
		AllowedHosts: []string{"example.com"},
		MaxURLLength: 100,
	})

	longURL := "https://example.com/" + strings.Repeat("a", 200)
	_, err := h.Get(context.Background(), longURL)
	if err == nil {
		t.Fatal("expected long URL to be rejected")
	}
	if err.Error() != "url exceeds max length" {
		t.Errorf("expected 'url exceeds max length' error, got %v", err)
	}
}

func TestHTTPGetDefaultMaxURLLength(t *testing.T) {
	h := NewHTTP(HTTPConfig{AllowedHosts: []string{"example.com"}})

	longURL := "https://example.com/" + strings.Repeat("a", 10*1024)
	_, err := h.Get(context.Background(), longURL)
	if err == nil {
		t.Fatal("expected long URL to be rejected by default")
	}
	if err.Error() != "url exceeds max length" {
		t.Errorf("expected 'url exceeds max length' error, got %v", err)
	}
}

func TestHTTPGetIPv6Normalization(t *testing.T) {
	h := NewHTTP(HTTPConfig{AllowedHosts: []string{"::1"}})

	tests := []struct {
		host    string
		allowed bool
	}{
		{"::1", true},
		{"0:0:0:0:0:0:0:1", true}, // expanded form
		{"::2", false},
		{"example.com", false}, // domain shouldn't match IP
	}

	for _, tc := range tests {
		got := h.isHostAllowed(tc.host)
		if got != tc.allowed {
			t.Errorf("isHostAllowed(%q) = %v, want %v", tc.host, got, tc.allowed)
		}
	}
}

func TestHTTPGetIPv6NoSubdomainBypass(t *testing.T) {
	h := NewHTTP(HTTPConfig{AllowedHosts: []string{"example.com"}})

	// IP addresses should not match domain allowlists via subdomain logic
	tests := []string{
		"::1",
		"127.0.0.1",
		"192.168.1.1",
		"2001:db8::1",
	}

	for _, host := range tests {
		if h.isHostAllowed(host) {
			t.Errorf("IP %q should not match domain allowlist", host)
		}
	}
}

func TestHTTPGetIPv4Matching(t *testing.T) {
	h := NewHTTP(HTTPConfig{AllowedHosts: []string{"192.168.1.1"}})

	tests := []struct {
		host    string
		allowed bool
	}{
		{"192.168.1.1", true},
		{"192.168.1.2", false},
		{"example.com", false},
	}

	for _, tc := range tests {
		got := h.isHostAllowed(tc.host)
		if got != tc.allowed {
			t.Errorf("isHostAllowed(%q) = %v, want %v", tc.host, got, tc.allowed)
		}
	}
}
