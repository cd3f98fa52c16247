package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/legisla/internal/model"
	"github.com/ppiankov/legisla/internal/report"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize narrates a dashboard, citing only allowed URLs
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for LLM summarization
type SummarizeRequest struct {
	Dashboard *report.Dashboard

	// AllowedURLs is the only set of URLs the summary may cite
	AllowedURLs []string

	// Prompt overrides the default prompt when set
	Prompt string

	Model     string
	MaxTokens int
}

// SummarizeResponse contains the LLM's summary output
type SummarizeResponse struct {
	Summary    string
	CitedURLs  []string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama" or "" (disabled)
	Provider string
	Model    string
	APIKey   string

	// BaseURL for OpenAI-compatible endpoints
	BaseURL string

	// Timeout for API requests, in seconds
	Timeout int

	// StrictCitations rejects summaries citing URLs outside the allowlist
	StrictCitations bool

	MaxTokens int
}

// DefaultConfig returns the disabled configuration
func DefaultConfig() Config {
	return Config{
		Timeout:         30,
		StrictCitations: true,
		MaxTokens:       800,
	}
}

// BuildPrompt constructs the default prompt for a dashboard
func BuildPrompt(d *report.Dashboard, allowedURLs []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are summarizing a statistical analysis of roll-call votes in the Argentine Chamber of Deputies.
The numbers below were computed from published roll calls. They describe voting behavior, not intentions.

RULES:
1. You may ONLY cite URLs from this list:%s

2. Do not speculate about motives, negotiations or events not present in the data.
3. Report figures exactly as given; do not compute new statistics.
4. Answer in Spanish, in 4-6 sentences.

Analysis:
- Governing block: %s
- Votations analyzed: %d
- General cohesion (mean loyalty to own block): %.1f%%
- Most cohesive block: %s
`, joinURLs(allowedURLs), d.GoverningBlock, d.Votations, d.GeneralCohesion*100, or(d.MostCohesiveBlock, "none"))

	if d.LatestVotation != nil {
		fmt.Fprintf(&b, "- Latest votation: %s\n", d.LatestVotation.Format("02/01/2006"))
	}

	if len(d.Composition) > 0 {
		fmt.Fprintf(&b, "\nChamber composition (%d deputies):\n", d.ChamberSize)
		for i, s := range d.Composition {
			if i >= 8 {
				fmt.Fprintf(&b, "- ... and %d smaller blocks\n", len(d.Composition)-8)
				break
			}
			fmt.Fprintf(&b, "- %s: %d (%.1f%%)\n", s.Block, s.Deputies, s.Percent)
		}
	}

	writeRanking(&b, "Most loyal deputies", d.MostLoyal, func(i int) string {
		return fmt.Sprintf("loyalty %.1f%%", d.MostLoyal[i].AverageLoyalty*100)
	})
	writeRanking(&b, "Least loyal deputies", d.LeastLoyal, func(i int) string {
		return fmt.Sprintf("loyalty %.1f%%", d.LeastLoyal[i].AverageLoyalty*100)
	})
	writeRanking(&b, "Most absences", d.MostAbsent, func(i int) string {
		return fmt.Sprintf("%d absences", d.MostAbsent[i].Absent)
	})

	b.WriteString("\nSummarize cohesion, the governing block's position and notable deputies.")
	return b.String()
}

func writeRanking(b *strings.Builder, title string, rows []model.DeputyStatistics, metric func(int) string) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n", title)
	for i, r := range rows {
		fmt.Fprintf(b, "- %s (%s): %s\n", r.Deputy, r.Block, metric(i))
	}
}

func joinURLs(urls []string) string {
	if len(urls) == 0 {
		return "\n(No URLs available, cite none)"
	}
	var b strings.Builder
	for i, url := range urls {
		if i >= 20 { // Limit to first 20 to avoid token bloat
			fmt.Fprintf(&b, "\n... and %d more URLs", len(urls)-20)
			break
		}
		fmt.Fprintf(&b, "\n- %s", url)
	}
	return b.String()
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
