package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != UserAgent {
			t.Errorf("User-Agent = %q, want %q", ua, UserAgent)
		}
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := New(time.Second, 0)
	res, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if res.Status != http.StatusOK || string(res.Body) != "hello" {
		t.Errorf("Get() = status %d body %q", res.Status, res.Body)
	}
}

func TestGetNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(time.Second, 0)
	_, err := c.Get(context.Background(), srv.URL)
	if !IsKind(err, KindHTTP) {
		t.Fatalf("Get() error = %v, want KindHTTP", err)
	}
}

func TestGetTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block // never respond within the deadline
	}))
	defer srv.Close()
	defer close(block) // unblock the handler before Close waits on it

	timeout := 100 * time.Millisecond
	c := New(timeout, 0)

	start := time.Now()
	_, err := c.Get(context.Background(), srv.URL)
	elapsed := time.Since(start)

	if !IsKind(err, KindTimeout) {
		t.Fatalf("Get() error = %v, want KindTimeout", err)
	}
	if elapsed > timeout+500*time.Millisecond {
		t.Errorf("Get() took %v, want roughly the %v deadline", elapsed, timeout)
	}
}

func TestGetNetworkError(t *testing.T) {
	// Nothing listens on this port.
	c := New(time.Second, 0)
	_, err := c.Get(context.Background(), "http://127.0.0.1:1/events")
	if !IsKind(err, KindNetwork) {
		t.Fatalf("Get() error = %v, want KindNetwork", err)
	}
}

func TestGetRetryRecovers(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			// Drop the first connection to force a network failure.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("server does not support hijacking")
			}
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := New(time.Second, 2)
	res, err := c.GetRetry(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("GetRetry() error = %v", err)
	}
	if string(res.Body) != "ok" {
		t.Errorf("GetRetry() body = %q, want %q", res.Body, "ok")
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("server saw %d calls, want 2", got)
	}
}

func TestGetRetryDoesNotRetryHTTPErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(time.Second, 2)
	_, err := c.GetRetry(context.Background(), srv.URL)
	if !IsKind(err, KindHTTP) {
		t.Fatalf("GetRetry() error = %v, want KindHTTP", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server saw %d calls, want 1 (no retry on HTTP status)", got)
	}
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 7}]`))
	}))
	defer srv.Close()

	c := New(time.Second, 0)
	var out []struct {
		ID int `json:"id"`
	}
	if err := c.GetJSON(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if len(out) != 1 || out[0].ID != 7 {
		t.Errorf("GetJSON() = %+v", out)
	}
}

func TestGetJSONParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := New(time.Second, 2)
	var out []interface{}
	err := c.GetJSON(context.Background(), srv.URL, &out)
	if !IsKind(err, KindParse) {
		t.Fatalf("GetJSON() error = %v, want KindParse", err)
	}
}

func TestErrorKindStrings(t *testing.T) {
	kinds := map[Kind]string{
		KindNetwork: "network",
		KindTimeout: "timeout",
		KindHTTP:    "http",
		KindParse:   "parse",
		KindBlocked: "blocked",
	}
	for kind, want := range kinds {
		if kind.String() != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, kind.String(), want)
		}
	}
}
