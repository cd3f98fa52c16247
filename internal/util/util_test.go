package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRobotsChecker_DisallowAndDelay(t *testing.T) {
	var fetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fetches.Add(1)
		_, _ = fmt.Fprint(w, "User-agent: Legisla\nDisallow: /privado\nCrawl-delay: 2\n")
	}))
	defer server.Close()

	checker := NewRobotsChecker("Legisla/0.1 (+https://github.com/ppiankov/legisla)", 5*time.Second, nil)
	ctx := context.Background()

	allowed, delay, err := checker.CanFetch(ctx, server.URL+"/votacion/5404")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !allowed {
		t.Error("Expected /votacion to be allowed")
	}
	if delay != 2*time.Second {
		t.Errorf("Expected 2s crawl delay, got %v", delay)
	}

	allowed, _, _ = checker.CanFetch(ctx, server.URL+"/privado/x")
	if allowed {
		t.Error("Expected /privado to be disallowed")
	}

	if fetches.Load() != 1 {
		t.Errorf("Expected robots.txt fetched once, got %d", fetches.Load())
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := NewRobotsChecker("Legisla/0.1", 5*time.Second, nil)
	allowed, _, err := checker.CanFetch(context.Background(), server.URL+"/votaciones/search")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !allowed {
		t.Error("Expected fetch to be allowed without robots.txt")
	}
}

func TestRobotsChecker_ConcurrentSingleFetch(t *testing.T) {
	var fetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		time.Sleep(20 * time.Millisecond)
		_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /privado\n")
	}))
	defer server.Close()

	checker := NewRobotsChecker("Legisla/0.1", 5*time.Second, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			allowed, _, err := checker.CanFetch(context.Background(), fmt.Sprintf("%s/votacion/%d", server.URL, i))
			if err != nil || !allowed {
				t.Errorf("Expected votation %d allowed, got %v, %v", i, allowed, err)
			}
		}(i)
	}
	wg.Wait()

	if fetches.Load() != 1 {
		t.Errorf("Expected one shared robots.txt fetch, got %d", fetches.Load())
	}
}

func TestRobotsChecker_ServerErrorDisallows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	checker := NewRobotsChecker("Legisla/0.1", 5*time.Second, nil)
	allowed, _, err := checker.CanFetch(context.Background(), server.URL+"/votacion/1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if allowed {
		t.Error("Expected a failing robots.txt to disallow crawling")
	}
}

func TestRobotsChecker_InvalidURL(t *testing.T) {
	checker := NewRobotsChecker("Legisla/0.1", time.Second, nil)
	if _, _, err := checker.CanFetch(context.Background(), "/votacion/1"); err == nil {
		t.Error("Expected error for URL without host")
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"Legisla/0.1 (+https://github.com/ppiankov/legisla)": "Legisla",
		"curl/8.0": "curl",
		"":         "",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy:3128", "http://secure-proxy:3128", "localhost,.internal")

	tests := []struct {
		target string
		want   string
	}{
		{"http://votaciones.hcdn.gob.ar/votacion/1", "http://proxy:3128"},
		{"https://votaciones.hcdn.gob.ar/votacion/1", "http://secure-proxy:3128"},
		{"http://localhost:8080/", ""},
		{"http://cache.internal/", ""},
		{"http://internal/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			u, _ := url.Parse(tt.target)
			got, err := proxy(&http.Request{URL: u})
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if tt.want == "" {
				if got != nil {
					t.Errorf("Expected direct connection, got %v", got)
				}
				return
			}
			if got == nil || got.String() != tt.want {
				t.Errorf("Expected %s, got %v", tt.want, got)
			}
		})
	}
}
