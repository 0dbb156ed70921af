package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"AutoPostAPI/services"
)

type fakeValidator map[string]string

func (v fakeValidator) ValidateToken(token string) (*services.Claims, error) {
	if id, ok := v[token]; ok {
		return &services.Claims{UserID: id}, nil
	}
	return nil, errors.New("bad token")
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(UserID(r.Context())))
	})
}

func TestAuthMiddleware(t *testing.T) {
	handler := AuthMiddleware(fakeValidator{"good": "user-1"})(echoUser())

	tests := []struct {
		name   string
		header string
		want   int
		body   string
	}{
		{name: "valid", header: "Bearer good", want: http.StatusOK, body: "user-1"},
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", want: http.StatusUnauthorized},
		{name: "extra parts", header: "Bearer good extra", want: http.StatusUnauthorized},
		{name: "invalid", header: "Bearer bad", want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/posts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
			if tt.body != "" && rr.Body.String() != tt.body {
				t.Fatalf("expected user %q in context, got %q", tt.body, rr.Body.String())
			}
		})
	}
}

func TestRateLimiterPerCaller(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	now := time.Date(2024, time.December, 25, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	calls := 0
	handler := rl.LimitHandler(func(w http.ResponseWriter, r *http.Request) { calls++ })
	hit := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/automation/run-daily", nil)
		req = req.WithContext(WithUserID(req.Context(), user))
		rr := httptest.NewRecorder()
		handler(rr, req)
		return rr
	}

	for i := 0; i < 2; i++ {
		if rr := hit("user-1"); rr.Code != http.StatusOK {
			t.Fatalf("request %d within burst rejected: %d", i, rr.Code)
		}
	}
	rr := hit("user-1")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After 1, got %q", rr.Header().Get("Retry-After"))
	}
	if rr := hit("user-2"); rr.Code != http.StatusOK {
		t.Fatalf("other callers have their own bucket, got %d", rr.Code)
	}

	now = now.Add(time.Second)
	if rr := hit("user-1"); rr.Code != http.StatusOK {
		t.Fatalf("token should refill after a second, got %d", rr.Code)
	}
	if calls != 4 {
		t.Fatalf("expected 4 calls through, got %d", calls)
	}
}

func TestRateLimiterEvictsIdleCallers(t *testing.T) {
	rl := NewRateLimiter(60, 1)
	now := time.Date(2024, time.December, 25, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.allow("a")
	now = now.Add(rl.idleTTL + time.Second)
	rl.allow("b")
	if _, ok := rl.callers["a"]; ok {
		t.Fatalf("idle caller should be evicted")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:4312"
	if got := clientIP(req); got != "10.0.0.5" {
		t.Fatalf("expected remote addr, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
	req.Header.Set("X-Real-IP", "198.51.100.2")
	if got := clientIP(req); got != "198.51.100.2" {
		t.Fatalf("expected X-Real-IP, got %q", got)
	}
}

func TestCORS(t *testing.T) {
	handler := CORS(DefaultCORSConfig([]string{"https://admin.example.com/"}))(echoUser())

	preflight := httptest.NewRequest("OPTIONS", "/api/posts", nil)
	preflight.Header.Set("Origin", "https://admin.example.com")
	preflight.Header.Set("Access-Control-Request-Method", "DELETE")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, preflight)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for allowed preflight, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://admin.example.com" {
		t.Fatalf("unexpected allow origin %q", got)
	}
	if !strings.Contains(rr.Header().Get("Access-Control-Allow-Methods"), "DELETE") {
		t.Fatalf("DELETE should be allowed")
	}
	if rr.Header().Get("Access-Control-Max-Age") != "86400" {
		t.Fatalf("unexpected max age %q", rr.Header().Get("Access-Control-Max-Age"))
	}

	preflight.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, preflight)
	if rr.Code != http.StatusForbidden || rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("disallowed origin should be refused, got %d", rr.Code)
	}
}

func TestBodyLimit(t *testing.T) {
	handler := BodyLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		if _, err := r.Body.Read(buf); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/", strings.NewReader(`{"a":1}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("small body: expected 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/", strings.NewReader(`{"occasion":"Christmas"}`)))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("large body: expected 413, got %d", rr.Code)
	}
}
