// internal/probe/prober_test.go
package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPProberHead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewHTTPProber(Options{Timeout: 2 * time.Second})
	defer p.Close()

	result, err := p.Probe(context.Background(), server.URL+"/yacht.jpg")
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("status = %d", result.StatusCode)
	}
	if result.ContentType != "image/jpeg" {
		t.Errorf("content type = %q", result.ContentType)
	}
}

func TestHTTPProberStatusIsNotError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := NewHTTPProber(Options{Timeout: 2 * time.Second})
	defer p.Close()

	result, err := p.Probe(context.Background(), server.URL+"/missing.jpg")
	if err != nil {
		t.Fatalf("non-2xx status should not be an error: %v", err)
	}
	if result.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", result.StatusCode)
	}
}

// TestHTTPProberGetFallback verifies that a host rejecting HEAD is
// retried with a ranged GET.
func TestHTTPProberGetFallback(t *testing.T) {
	var gets int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			atomic.AddInt32(&gets, 1)
			if r.Header.Get("Range") != "bytes=0-0" {
				t.Errorf("Range header = %q", r.Header.Get("Range"))
			}
			w.Header().Set("Content-Type", "video/mp4")
			w.WriteHeader(http.StatusPartialContent)
		}
	}))
	defer server.Close()

	p := NewHTTPProber(Options{Timeout: 2 * time.Second})
	defer p.Close()

	result, err := p.Probe(context.Background(), server.URL+"/tour.mp4")
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if atomic.LoadInt32(&gets) != 1 {
		t.Errorf("GET fallback issued %d times, want 1", gets)
	}
	if result.StatusCode != http.StatusPartialContent {
		t.Errorf("status = %d", result.StatusCode)
	}
	if result.ContentType != "video/mp4" {
		t.Errorf("content type = %q", result.ContentType)
	}
}

func TestHTTPProberTimeout(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	p := NewHTTPProber(Options{Timeout: 50 * time.Millisecond})
	defer p.Close()

	_, err := p.Probe(context.Background(), server.URL+"/slow.jpg")
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestHTTPProberTransportError(t *testing.T) {
	p := NewHTTPProber(Options{Timeout: time.Second})
	defer p.Close()

	// Closed port: connection refused.
	if _, err := p.Probe(context.Background(), "http://127.0.0.1:1/x.jpg"); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestFuncAdapter(t *testing.T) {
	f := Func(func(ctx context.Context, url string) (Result, error) {
		return Result{StatusCode: 200, ContentType: "image/png"}, nil
	})

	result, err := f.Probe(context.Background(), "https://cdn.example.com/a.png")
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if result.ContentType != "image/png" {
		t.Errorf("content type = %q", result.ContentType)
	}
}
