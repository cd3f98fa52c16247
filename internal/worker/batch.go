package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// VotationScraper fetches and stores the roll call of one votation
type VotationScraper interface {
	ScrapeVotation(ctx context.Context, votationID string) (int, error)
}

// ScrapeJob scrapes a single votation
type ScrapeJob struct {
	VotationID string
	Scraper    VotationScraper
}

// Execute executes the scrape job
func (j *ScrapeJob) Execute(ctx context.Context) Result {
	n, err := j.Scraper.ScrapeVotation(ctx, j.VotationID)
	return &ScrapeResult{
		VotationID: j.VotationID,
		Records:    n,
		Error:      err,
	}
}

// ScrapeResult is the outcome of a scrape job
type ScrapeResult struct {
	VotationID string
	Records    int
	Error      error
}

// GetError returns the error from the scrape result
func (r *ScrapeResult) GetError() error {
	return r.Error
}

// BatchProcessor scrapes many votations concurrently
type BatchProcessor struct {
	scraper     VotationScraper
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(scraper VotationScraper, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		scraper:     scraper,
		concurrency: concurrency,
	}
}

// ProcessVotations scrapes every id and returns one result per id, in completion order.
// A failed votation does not stop the others.
func (b *BatchProcessor) ProcessVotations(ctx context.Context, ids []string) []*ScrapeResult {
	if len(ids) == 0 {
		return []*ScrapeResult{}
	}

	pool := NewPoolContext(ctx, b.concurrency)
	defer pool.Stop()
	pool.Start()

	// Submit from a goroutine so a full queue never blocks result collection
	go func() {
		for _, id := range ids {
			if ctx.Err() != nil {
				break
			}
			pool.Submit(&ScrapeJob{VotationID: id, Scraper: b.scraper})
		}
		pool.Close()
	}()

	results := pool.Collect()

	scrapeResults := make([]*ScrapeResult, 0, len(results))
	for _, result := range results {
		scrapeResults = append(scrapeResults, result.(*ScrapeResult))
	}
	return scrapeResults
}

// ReadVotationIDs reads votation ids from a file, one per line.
// Blank lines and # comments are skipped, duplicates are dropped.
func ReadVotationIDs(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			ids = append(ids, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return ids, nil
}
