package httpserver

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/yndnr/sidermem-go/internal/core/auth"
	"github.com/yndnr/sidermem-go/internal/telemetry/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// TestRequestID tests the RequestID middleware.
func TestRequestID(t *testing.T) {
	middleware := RequestID()
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := GetRequestIDFromContext(r.Context())
		if requestID == "" {
			t.Error("expected request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("generates request ID when not provided", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		requestID := rec.Header().Get("X-Request-ID")
		if !strings.HasPrefix(requestID, "req-") || len(requestID) != 4+26 {
			t.Errorf("expected req-<ulid>, got %s", requestID)
		}
	})

	t.Run("preserves existing request ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Request-ID", "existing-id-123")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); got != "existing-id-123" {
			t.Errorf("expected 'existing-id-123', got %s", got)
		}
	})
}

// TestChain tests middleware chaining.
func TestChain(t *testing.T) {
	var order []int
	step := func(n int) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, n)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			order = append(order, 4)
			w.WriteHeader(http.StatusOK)
		}),
		step(1), step(2), step(3),
	)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/test", nil))

	expected := []int{1, 2, 3, 4}
	if len(order) != len(expected) {
		t.Fatalf("expected %d calls, got %d", len(expected), len(order))
	}
	for i, v := range expected {
		if order[i] != v {
			t.Errorf("expected order[%d] = %d, got %d", i, v, order[i])
		}
	}
}

// TestBasicAuth tests the BasicAuth middleware.
func TestBasicAuth(t *testing.T) {
	verifier, err := auth.NewStatic("", "pw")
	if err != nil {
		t.Fatal(err)
	}
	handler := BasicAuth(verifier, "admin")(okHandler())

	tests := []struct {
		name     string
		user     string
		password string
		set      bool
		want     int
		code     string
	}{
		{"missing credentials", "", "", false, http.StatusUnauthorized, "AUTH_REQUIRED"},
		{"wrong password", "default", "bad", true, http.StatusUnauthorized, "AUTH_INVALID"},
		{"wrong user", "root", "pw", true, http.StatusUnauthorized, "AUTH_INVALID"},
		{"valid", "default", "pw", true, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin", nil)
			if tt.set {
				req.SetBasicAuth(tt.user, tt.password)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if got := rec.Header().Get("X-Error-Code"); got != tt.code {
				t.Errorf("X-Error-Code = %q, want %q", got, tt.code)
			}
			if tt.want == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") != `Basic realm="admin"` {
				t.Errorf("WWW-Authenticate = %q", rec.Header().Get("WWW-Authenticate"))
			}
		})
	}

	t.Run("nil verifier passes through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		BasicAuth(nil, "admin")(okHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/admin", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

// TestNetworkACL tests the NetworkACL middleware.
func TestNetworkACL(t *testing.T) {
	tests := []struct {
		name      string
		allowList []string
		remote    string
		want      int
	}{
		{"allows all when allowlist is empty", nil, "192.168.1.100:12345", http.StatusOK},
		{"allows matching single IP", []string{"192.168.1.100"}, "192.168.1.100:12345", http.StatusOK},
		{"allows matching CIDR", []string{"10.0.0.0/8"}, "10.20.30.40:12345", http.StatusOK},
		{"denies non matching IP", []string{"10.0.0.0/8", "192.168.1.1"}, "172.16.0.1:12345", http.StatusForbidden},
		{"allows IPv6", []string{"::1"}, "[::1]:8080", http.StatusOK},
		{"skips invalid entries", []string{"not-an-ip", "bad/cidr", "127.0.0.1"}, "127.0.0.1:80", http.StatusOK},
		{"invalid client address", []string{"127.0.0.1"}, "garbage", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NetworkACL(&NetworkACLConfig{AllowList: tt.allowList, Logger: logger.Nop()})(okHandler())
			req := httptest.NewRequest("GET", "/admin", nil)
			req.RemoteAddr = tt.remote
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

// TestRateLimit tests the RateLimit middleware.
func TestRateLimit(t *testing.T) {
	handler := RateLimit(1, 3)(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "10.0.0.1:1000"
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "10.0.0.1:1000"
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "10.0.0.2:1000"
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("other IP status = %d, want 200", rec.Code)
	}
}

// TestRateLimitConcurrency tests concurrent access to the limiter table.
func TestRateLimitConcurrency(t *testing.T) {
	handler := RateLimit(1000, 1000)(okHandler())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest("GET", "/test", nil)
			req.RemoteAddr = "10.0.0." + string(rune('0'+i%10)) + ":1000"
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}(i)
	}
	wg.Wait()
}

// TestRecover tests the Recover middleware.
func TestRecover(t *testing.T) {
	t.Run("recovers from panic", func(t *testing.T) {
		handler := Recover(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			panic("test panic")
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rec.Code)
		}
	})

	t.Run("passes through normal requests", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Recover(logger.Nop())(okHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})
}

// TestAccessLog tests that completed requests are logged by status class.
func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New(logger.Config{Level: "debug", Format: "json", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		status int
		msg    string
	}{
		{http.StatusOK, `"msg":"request completed"`},
		{http.StatusNotFound, `"msg":"request completed with client error"`},
		{http.StatusBadGateway, `"msg":"request completed with error"`},
	}
	for _, tt := range tests {
		buf.Reset()
		handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
		}), RequestID(), AccessLog(log))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/x", nil))

		out := buf.String()
		if !strings.Contains(out, tt.msg) || !strings.Contains(out, `"path":"/x"`) {
			t.Errorf("status %d logged %q", tt.status, out)
		}
	}
}

// TestResponseWriter tests status capture.
func TestResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	w := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	w.WriteHeader(http.StatusTeapot)
	if w.statusCode != http.StatusTeapot || rec.Code != http.StatusTeapot {
		t.Errorf("statusCode = %d, recorder = %d", w.statusCode, rec.Code)
	}
}
