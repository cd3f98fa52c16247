package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/legisla/internal/cache"
	"github.com/ppiankov/legisla/internal/extract"
	"github.com/ppiankov/legisla/internal/model"
	"github.com/ppiankov/legisla/internal/worker"
	"go.uber.org/zap"
)

// Store is the persistence the scraper writes to
type Store interface {
	SaveMetadata(ctx context.Context, votations []model.VotationMetadata) (int, error)
	ListUnscraped(ctx context.Context) ([]model.VotationMetadata, error)
	SaveVotes(ctx context.Context, votationID string, records []model.VoteRecord) error
}

// Scraper downloads votation listings and roll calls into a Store
type Scraper struct {
	store      Store
	fetcher    *Fetcher
	limiter    *worker.Limiter
	lists      *extract.VotationListExtractor
	rollCalls  *extract.RollCallExtractor
	baseURL    string
	searchType string
	workers    int
	logger     *zap.Logger
}

// NewScraper wires a scraper from configuration.
// Page caching is enabled when cfg.Cache.Enabled is set.
func NewScraper(store Store, cfg *model.Config, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}

	fetcher := NewFetcher(
		cfg.HTTP.Timeout,
		cfg.HTTP.UserAgent,
		cfg.HTTP.MaxBodyBytes,
		cfg.HTTP.RespectRobots,
		cfg.HTTP.HTTPProxy,
		cfg.HTTP.HTTPSProxy,
		cfg.HTTP.NoProxy,
	)
	if cfg.Cache.Enabled {
		fetcher.WithCache(cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL), cfg.Cache.DiskTTL)
	}

	return &Scraper{
		store:      store,
		fetcher:    fetcher,
		limiter:    worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
		lists:      extract.NewVotationListExtractor(),
		rollCalls:  extract.NewRollCallExtractor(),
		baseURL:    strings.TrimRight(cfg.Scrape.BaseURL, "/"),
		searchType: cfg.Scrape.SearchType,
		workers:    cfg.Concurrency.Workers,
		logger:     logger,
	}
}

// Summary reports the outcome of UpdateVotes
type Summary struct {
	Attempted int
	Saved     int
	Records   int
	Failed    map[string]error
	Duration  time.Duration
}

// UpdateMetadata fetches the votation listing of a year and stores new votations
func (s *Scraper) UpdateMetadata(ctx context.Context, year int) (int, error) {
	searchURL := s.baseURL + "/votaciones/search"
	form := url.Values{
		"txtSearch": {s.searchType},
		"anoSearch": {strconv.Itoa(year)},
	}

	if err := s.limiter.Wait(ctx, searchURL); err != nil {
		return 0, err
	}

	result, err := s.fetcher.PostFormWithRetry(ctx, searchURL, form)
	if err != nil {
		return 0, fmt.Errorf("search votations: %w", err)
	}

	votations, err := s.lists.Extract(result.HTML)
	if err != nil {
		return 0, fmt.Errorf("parse votation list: %w", err)
	}

	added, err := s.store.SaveMetadata(ctx, votations)
	if err != nil {
		return 0, fmt.Errorf("save metadata: %w", err)
	}

	s.logger.Info("votation metadata updated",
		zap.Int("year", year),
		zap.String("search_type", s.searchType),
		zap.Int("listed", len(votations)),
		zap.Int("added", added),
	)
	return added, nil
}

// UpdateVotes scrapes unscraped votations. When only is non-empty, ids outside it are skipped.
// Failures are collected per votation and those votations stay unscraped.
func (s *Scraper) UpdateVotes(ctx context.Context, only []string) (*Summary, error) {
	start := time.Now()

	pending, err := s.store.ListUnscraped(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unscraped: %w", err)
	}

	ids := filterIDs(pending, only)
	summary := &Summary{Attempted: len(ids), Failed: make(map[string]error)}
	if len(ids) == 0 {
		s.logger.Info("no votations to scrape")
		return summary, nil
	}

	if delay := s.fetcher.CrawlDelay(ctx, s.votationURL(ids[0])); delay > 0 {
		_ = s.limiter.ApplyCrawlDelay(s.baseURL, delay)
		s.logger.Info("honoring crawl delay", zap.Duration("delay", delay))
	}

	results := worker.NewBatchProcessor(s, s.workers).ProcessVotations(ctx, ids)
	for _, r := range results {
		if r.Error != nil {
			summary.Failed[r.VotationID] = r.Error
			s.logger.Warn("votation scrape failed", zap.String("votation_id", r.VotationID), zap.Error(r.Error))
			continue
		}
		summary.Saved++
		summary.Records += r.Records
	}
	summary.Duration = time.Since(start)

	s.logger.Info("roll calls updated",
		zap.Int("attempted", summary.Attempted),
		zap.Int("saved", summary.Saved),
		zap.Int("failed", len(summary.Failed)),
		zap.Int("records", summary.Records),
		zap.Duration("duration", summary.Duration),
	)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// ScrapeVotation fetches, parses and stores one roll call
func (s *Scraper) ScrapeVotation(ctx context.Context, votationID string) (int, error) {
	pageURL := s.votationURL(votationID)

	if err := s.limiter.Wait(ctx, pageURL); err != nil {
		return 0, err
	}

	result, err := s.fetcher.FetchWithRetry(ctx, pageURL)
	if err != nil {
		return 0, err
	}

	records, err := s.rollCalls.Extract(result.HTML, votationID)
	if err != nil {
		return 0, fmt.Errorf("parse roll call: %w", err)
	}

	if err := s.store.SaveVotes(ctx, votationID, records); err != nil {
		return 0, fmt.Errorf("save votes: %w", err)
	}

	s.logger.Debug("votation scraped",
		zap.String("votation_id", votationID),
		zap.Int("records", len(records)),
		zap.Bool("from_cache", result.FromCache),
	)
	return len(records), nil
}

func (s *Scraper) votationURL(votationID string) string {
	return s.baseURL + "/votacion/" + url.PathEscape(votationID)
}

// filterIDs returns pending ids, keeping only those listed in only when it is non-empty
func filterIDs(pending []model.VotationMetadata, only []string) []string {
	var keep map[string]bool
	if len(only) > 0 {
		keep = make(map[string]bool, len(only))
		for _, id := range only {
			keep[id] = true
		}
	}

	ids := make([]string, 0, len(pending))
	for _, m := range pending {
		if keep == nil || keep[m.ID] {
			ids = append(ids, m.ID)
		}
	}
	return ids
}
