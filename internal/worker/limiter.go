package worker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultBurst = 5

// Limiter paces requests per host. Every host starts at the configured rate;
// a robots.txt crawl delay can only slow a host down.
type Limiter struct {
	hosts map[string]*rate.Limiter
	mu    sync.RWMutex
	rate  rate.Limit
	burst int
}

// NewLimiter creates a limiter allowing requestsPerSecond per host.
// A non-positive rate disables pacing.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = defaultBurst
	}

	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		hosts: make(map[string]*rate.Limiter),
		rate:  limit,
		burst: burst,
	}
}

// Wait blocks until the host of rawURL may be requested or ctx is done
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}
	return l.forHost(host).Wait(ctx)
}

// ApplyCrawlDelay slows the host of rawURL to one request per delay
func (l *Limiter) ApplyCrawlDelay(rawURL string, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	host, err := hostOf(rawURL)
	if err != nil {
		return err
	}

	limit := rate.Every(delay)

	l.mu.Lock()
	defer l.mu.Unlock()
	if current, ok := l.hosts[host]; ok && current.Limit() <= limit {
		return nil
	}
	if l.rate <= limit {
		return nil
	}
	l.hosts[host] = rate.NewLimiter(limit, 1)
	return nil
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.hosts[host]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists := l.hosts[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.rate, l.burst)
	l.hosts[host] = limiter
	return limiter
}

// hostOf returns the lowercased host of rawURL, port included
func hostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("no host in url %q", rawURL)
	}
	return strings.ToLower(parsed.Host), nil
}
