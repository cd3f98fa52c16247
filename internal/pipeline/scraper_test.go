package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/legisla/internal/model"
	"github.com/ppiankov/legisla/internal/store"
	"go.uber.org/zap"
)

const testSearchPage = `<html><body><table><tbody id="container-actas">
<tr id="100"><td>02/05/2024 - 10:00</td><td>Ley A</td><td>AFIRMATIVO</td></tr>
<tr id="101"><td>03/05/2024 - 11:00</td><td>Ley B</td><td>NEGATIVO</td></tr>
<tr id="102"><td>04/05/2024 - 12:00</td><td>Ley C</td><td>AFIRMATIVO</td></tr>
</tbody></table></body></html>`

func rollCallPage(rows ...string) string {
	var b strings.Builder
	b.WriteString(`<table><thead><tr><th>Diputado</th><th>Bloque</th><th>Provincia</th><th>¿Cómo votó?</th></tr></thead><tbody>`)
	for _, r := range rows {
		b.WriteString(r)
	}
	b.WriteString(`</tbody></table>`)
	return b.String()
}

func newChamberServer(t *testing.T, searches *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/votaciones/search" && r.Method == http.MethodPost:
			searches.Add(1)
			_ = r.ParseForm()
			if r.PostForm.Get("txtSearch") != "ley" || r.PostForm.Get("anoSearch") != "2024" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = fmt.Fprint(w, testSearchPage)
		case r.URL.Path == "/votacion/100":
			_, _ = fmt.Fprint(w, rollCallPage(
				`<tr><td>MENEM, Martín</td><td>LLA</td><td>La Rioja</td><td>PRESIDENTE</td></tr>`,
				`<tr><td>PEREZ, Juan</td><td>UxP</td><td>Buenos Aires</td><td>NEGATIVO</td></tr>`,
			))
		case r.URL.Path == "/votacion/101":
			_, _ = fmt.Fprint(w, rollCallPage(
				`<tr><td>GOMEZ, Ana</td><td>LLA</td><td>CABA</td><td>AFIRMATIVO</td></tr>`,
			))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func testConfig(baseURL string) *model.Config {
	cfg := model.DefaultConfig()
	cfg.Scrape.BaseURL = baseURL
	cfg.HTTP.RespectRobots = false
	cfg.Cache.Enabled = false
	cfg.RateLimiting.RequestsPerSecond = 1000
	cfg.RateLimiting.BurstSize = 10
	cfg.Concurrency.Workers = 2
	return cfg
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestScraper_UpdateMetadataAndVotes(t *testing.T) {
	var searches atomic.Int32
	server := newChamberServer(t, &searches)
	defer server.Close()

	db := openStore(t)
	scraper := NewScraper(db, testConfig(server.URL), zap.NewNop())
	ctx := context.Background()

	added, err := scraper.UpdateMetadata(ctx, 2024)
	if err != nil {
		t.Fatalf("UpdateMetadata failed: %v", err)
	}
	if added != 3 {
		t.Errorf("Expected 3 new votations, got %d", added)
	}

	// Listing again adds nothing
	added, err = scraper.UpdateMetadata(ctx, 2024)
	if err != nil {
		t.Fatalf("UpdateMetadata failed: %v", err)
	}
	if added != 0 {
		t.Errorf("Expected 0 new votations on repeat, got %d", added)
	}
	if searches.Load() != 2 {
		t.Errorf("Expected 2 searches, got %d", searches.Load())
	}

	summary, err := scraper.UpdateVotes(ctx, nil)
	if err != nil {
		t.Fatalf("UpdateVotes failed: %v", err)
	}
	if summary.Attempted != 3 || summary.Saved != 2 {
		t.Errorf("Expected 3 attempted and 2 saved, got %+v", summary)
	}
	if summary.Records != 3 {
		t.Errorf("Expected 3 records, got %d", summary.Records)
	}
	if _, failed := summary.Failed["102"]; !failed {
		t.Errorf("Expected votation 102 to fail, got %v", summary.Failed)
	}

	votes, err := db.GetVotes(ctx, "100")
	if err != nil {
		t.Fatalf("GetVotes failed: %v", err)
	}
	if len(votes) != 2 || !votes[0].IsPresiding() {
		t.Errorf("Expected presiding row stored first, got %+v", votes)
	}

	pending, err := db.ListUnscraped(ctx)
	if err != nil {
		t.Fatalf("ListUnscraped failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "102" {
		t.Errorf("Expected only 102 to stay unscraped, got %+v", pending)
	}

	// Scraped votations are not fetched again
	summary, err = scraper.UpdateVotes(ctx, nil)
	if err != nil {
		t.Fatalf("UpdateVotes failed: %v", err)
	}
	if summary.Attempted != 1 {
		t.Errorf("Expected 1 attempted on rerun, got %d", summary.Attempted)
	}
}

func TestScraper_UpdateVotesOnlyListed(t *testing.T) {
	var searches atomic.Int32
	server := newChamberServer(t, &searches)
	defer server.Close()

	db := openStore(t)
	scraper := NewScraper(db, testConfig(server.URL), zap.NewNop())
	ctx := context.Background()

	if _, err := scraper.UpdateMetadata(ctx, 2024); err != nil {
		t.Fatalf("UpdateMetadata failed: %v", err)
	}

	summary, err := scraper.UpdateVotes(ctx, []string{"101", "999"})
	if err != nil {
		t.Fatalf("UpdateVotes failed: %v", err)
	}
	if summary.Attempted != 1 || summary.Saved != 1 {
		t.Errorf("Expected only 101 scraped, got %+v", summary)
	}
}

func TestScraper_UpdateMetadataServerError(t *testing.T) {
	orig := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) {}
	defer func() { fetchSleepFunc = orig }()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	scraper := NewScraper(openStore(t), testConfig(server.URL), zap.NewNop())
	if _, err := scraper.UpdateMetadata(context.Background(), 2024); err == nil {
		t.Fatal("Expected error when the search fails")
	}
}
