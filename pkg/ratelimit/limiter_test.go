package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestNewInMemoryDefaultWindow(t *testing.T) {
	lim := NewInMemory(0)
	if lim.window != time.Minute {
		t.Fatalf("expected default 1 minute window, got %v", lim.window)
	}
}

func TestInMemoryLimiterWindow(t *testing.T) {
	lim := NewInMemory(50 * time.Millisecond)
	for i := 0; i < 3; i++ {
		if d := lim.Allow("login:1.2.3.4", 3); !d.Allowed {
			t.Fatalf("request %d should be allowed: %+v", i, d)
		}
	}
	if d := lim.Allow("login:1.2.3.4", 3); d.Allowed {
		t.Fatalf("fourth request should be denied: %+v", d)
	}
	if d := lim.Allow("login:5.6.7.8", 3); !d.Allowed {
		t.Fatalf("other key must be independent: %+v", d)
	}
	time.Sleep(60 * time.Millisecond)
	if d := lim.Allow("login:1.2.3.4", 3); !d.Allowed {
		t.Fatalf("window should have reset: %+v", d)
	}
}

func TestRedisLimiter(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	lim := NewRedis(client, time.Second)
	for i := 0; i < 2; i++ {
		if d := lim.Allow("login:1.2.3.4", 2); !d.Allowed {
			t.Fatalf("request %d should be allowed: %+v", i, d)
		}
	}
	if d := lim.Allow("login:1.2.3.4", 2); d.Allowed {
		t.Fatalf("over-limit request should be denied: %+v", d)
	}
}

func TestRedisLimiterFallback(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:1",
		DialTimeout:  5 * time.Millisecond,
		ReadTimeout:  5 * time.Millisecond,
		WriteTimeout: 5 * time.Millisecond,
		MaxRetries:   0,
	})
	defer client.Close()
	lim := NewRedis(client, time.Second)
	for i := 0; i < 2; i++ {
		if d := lim.Allow("k", 2); !d.Allowed {
			t.Fatalf("fallback request %d should be allowed: %+v", i, d)
		}
	}
	if d := lim.Allow("k", 2); d.Allowed {
		t.Fatalf("fallback must still enforce the limit: %+v", d)
	}
}

func TestMiddleware(t *testing.T) {
	calls := 0
	h := Middleware(NewInMemory(time.Minute), "login", 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(200)
	}))

	send := func(remote string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
		req.RemoteAddr = remote
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := send("10.0.0.1:5555"); rec.Code != 200 {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	rec := send("10.0.0.1:5555")
	if rec.Code != 429 {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if calls != 2 {
		t.Fatalf("throttled request must not reach the handler, calls=%d", calls)
	}
	if rec := send("10.0.0.2:5555"); rec.Code != 200 {
		t.Fatalf("different client must pass, got %d", rec.Code)
	}
}

func TestMiddlewareNilLimiterDisabled(t *testing.T) {
	calls := 0
	h := Middleware(nil, "login", 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	for i := 0; i < 5; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", nil))
	}
	if calls != 5 {
		t.Fatalf("nil limiter must disable throttling, calls=%d", calls)
	}
}

func TestClientIPForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if got := clientIP(req); got != "10.0.0.1" {
		t.Fatalf("expected remote host, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}
