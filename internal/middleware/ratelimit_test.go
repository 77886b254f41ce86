package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func stubEval(t *testing.T, fn func(key string, ttl int64) (interface{}, error)) {
	t.Helper()
	orig := evalScript
	t.Cleanup(func() { evalScript = orig })
	evalScript = func(r *http.Request, client *redis.Client, key string, ttlSeconds int64) (interface{}, error) {
		return fn(key, ttlSeconds)
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiter_NilRedisPassesThrough(t *testing.T) {
	stubEval(t, func(key string, ttl int64) (interface{}, error) {
		t.Fatal("redis should not be consulted")
		return nil, nil
	})
	h := NewFriendRequestLimiter(nil, 1, time.Minute).Middleware(okHandler())

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/friend-requests", nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
	}
}

func TestRateLimiter_ZeroLimitDisables(t *testing.T) {
	stubEval(t, func(key string, ttl int64) (interface{}, error) {
		t.Fatal("redis should not be consulted")
		return nil, nil
	})
	h := NewFriendRequestLimiter(&redis.Client{}, 0, time.Minute).Middleware(okHandler())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/friend-requests", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRateLimiter_LimitsPerIP(t *testing.T) {
	counts := map[string]int64{}
	var gotTTL int64
	stubEval(t, func(key string, ttl int64) (interface{}, error) {
		gotTTL = ttl
		counts[key]++
		return counts[key], nil
	})
	h := NewFriendRequestLimiter(&redis.Client{}, 2, time.Minute).Middleware(okHandler())

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/friend-requests", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1"); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Fatalf("other ip: expected 200, got %d", code)
	}
	if gotTTL != 60 {
		t.Fatalf("expected ttl 60, got %d", gotTTL)
	}
	if _, ok := counts[FriendRequestKeyPrefix+"10.0.0.1"]; !ok {
		t.Fatalf("expected prefixed key, got %v", counts)
	}
}

func TestRateLimiter_FloatResult(t *testing.T) {
	stubEval(t, func(key string, ttl int64) (interface{}, error) { return float64(5), nil })
	h := NewFriendRequestLimiter(&redis.Client{}, 2, time.Minute).Middleware(okHandler())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/friend-requests", nil))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After 60, got %q", rr.Header().Get("Retry-After"))
	}
}

func TestRateLimiter_RedisFailure(t *testing.T) {
	tests := []struct {
		name     string
		failOpen bool
		result   interface{}
		err      error
		want     int
	}{
		{name: "error fail open", failOpen: true, err: errors.New("down"), want: http.StatusOK},
		{name: "error fail closed", failOpen: false, err: errors.New("down"), want: http.StatusServiceUnavailable},
		{name: "unexpected type fail open", failOpen: true, result: "nope", want: http.StatusOK},
		{name: "unexpected type fail closed", failOpen: false, result: "nope", want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubEval(t, func(key string, ttl int64) (interface{}, error) { return tt.result, tt.err })
			h := NewRateLimiter(&redis.Client{}, 1, time.Minute, "test:", nil, tt.failOpen).Middleware(okHandler())

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2"}, want: "1.1.1.1"},
		{name: "forwarded single", headers: map[string]string{"X-Forwarded-For": " 3.3.3.3 "}, want: "3.3.3.3"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "4.4.4.4"}, want: "4.4.4.4"},
		{name: "remote addr", remote: "5.5.5.5:1234", want: "5.5.5.5"},
		{name: "remote without port", remote: "6.6.6.6", want: "6.6.6.6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if tt.remote != "" {
				req.RemoteAddr = tt.remote
			}
			if got := GetClientIP(req); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
