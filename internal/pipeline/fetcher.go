package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/legisla/internal/cache"
	"github.com/ppiankov/legisla/internal/util"
)

const maxFetchAttempts = 3

// ErrDisallowed is returned when robots.txt forbids a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// fetchSleepFunc is swapped out by tests
var fetchSleepFunc = time.Sleep

// Fetcher fetches HTML pages from the chamber's voting site
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	cache      cache.Cache
	cacheTTL   time.Duration
}

// NewFetcher creates a new Fetcher with the given configuration
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, respectRobots bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	proxy := util.NewProxyFunc(httpProxy, httpsProxy, noProxy)

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Proxy: proxy},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
	if respectRobots {
		f.robots = util.NewRobotsChecker(userAgent, timeout, proxy)
	}
	return f
}

// WithCache stores successful GET responses in c for ttl.
// Form posts always go to the network.
func (f *Fetcher) WithCache(c cache.Cache, ttl time.Duration) *Fetcher {
	f.cache = c
	f.cacheTTL = ttl
	return f
}

// FetchResult contains the fetched HTML and response metadata
type FetchResult struct {
	HTML       string
	StatusCode int
	FinalURL   string
	FromCache  bool
}

// Fetch retrieves a page with GET
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	return f.do(ctx, http.MethodGet, rawURL, nil)
}

// PostForm submits form as application/x-www-form-urlencoded
func (f *Fetcher) PostForm(ctx context.Context, rawURL string, form url.Values) (*FetchResult, error) {
	return f.do(ctx, http.MethodPost, rawURL, form)
}

// FetchWithRetry is Fetch retried on transient failures
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	return f.withRetry(ctx, func() (*FetchResult, error) {
		return f.Fetch(ctx, rawURL)
	})
}

// PostFormWithRetry is PostForm retried on transient failures
func (f *Fetcher) PostFormWithRetry(ctx context.Context, rawURL string, form url.Values) (*FetchResult, error) {
	return f.withRetry(ctx, func() (*FetchResult, error) {
		return f.PostForm(ctx, rawURL, form)
	})
}

// CrawlDelay returns the robots.txt crawl delay for rawURL, zero when robots are ignored
func (f *Fetcher) CrawlDelay(ctx context.Context, rawURL string) time.Duration {
	if f.robots == nil {
		return 0
	}
	_, delay, _ := f.robots.CanFetch(ctx, rawURL)
	return delay
}

func (f *Fetcher) withRetry(ctx context.Context, fn func() (*FetchResult, error)) (*FetchResult, error) {
	var lastErr error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) || attempt == maxFetchAttempts {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Linear backoff: 1s, 2s
		fetchSleepFunc(time.Duration(attempt) * time.Second)
	}
	return nil, lastErr
}

func (f *Fetcher) do(ctx context.Context, method, rawURL string, form url.Values) (*FetchResult, error) {
	var body string
	if form != nil {
		body = form.Encode()
	}

	cacheable := f.cache != nil && method == http.MethodGet
	key := cache.RequestKey(method, rawURL, body)
	if cacheable {
		if data, found := f.cache.Get(key); found {
			return &FetchResult{HTML: string(data), StatusCode: http.StatusOK, FinalURL: rawURL, FromCache: true}, nil
		}
	}

	if f.robots != nil {
		allowed, _, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("check robots: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
	}

	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "es-AR,es;q=0.9,en;q=0.5")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if cacheable {
		_ = f.cache.Set(key, data, f.cacheTTL)
	}

	return &FetchResult{
		HTML:       string(data),
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

// isRetryableFetchError reports whether err is a server error, a 429 or a transport failure
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "fetch:") {
		return true
	}
	if rest, ok := strings.CutPrefix(msg, "unexpected status: "); ok {
		return strings.HasPrefix(rest, "5") || strings.HasPrefix(rest, "429")
	}
	return false
}
