package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/legisla/internal/report"
)

// Summary is an optional narrative of a dashboard. It never feeds back into statistics.
type Summary struct {
	Enabled         bool     `json:"enabled"`
	Provider        string   `json:"provider,omitempty"`
	Model           string   `json:"model,omitempty"`
	StrictCitations bool     `json:"strict_citations"`
	SummaryMD       string   `json:"summary_md,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
}

// Summarizer wraps a provider with graceful degradation
type Summarizer struct {
	provider Provider
	config   Config
}

// NewSummarizer creates a summarizer; an empty provider yields a disabled one
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, config: config}, nil
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s.provider != nil
}

// ProviderName returns the configured provider name, empty when disabled
func (s *Summarizer) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// GenerateSummary narrates d. Provider failures are returned as warnings on
// the summary so that callers can keep going; a nil summary means disabled.
func (s *Summarizer) GenerateSummary(ctx context.Context, d *report.Dashboard, allowedURLs []string) (*Summary, error) {
	if s.provider == nil {
		return nil, nil
	}

	if !s.provider.IsAvailable(ctx) {
		return &Summary{
			Enabled:         false,
			Provider:        s.provider.Name(),
			StrictCitations: s.config.StrictCitations,
			Warnings:        []string{fmt.Sprintf("LLM provider %s is not available", s.provider.Name())},
		}, nil
	}

	summary := &Summary{
		Enabled:         true,
		Provider:        s.provider.Name(),
		Model:           s.config.Model,
		StrictCitations: s.config.StrictCitations,
	}

	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Dashboard:   d,
		AllowedURLs: allowedURLs,
		Model:       s.config.Model,
		MaxTokens:   s.config.MaxTokens,
	})
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Summary generation failed: %v", err))
		return summary, nil
	}

	summary.SummaryMD = resp.Summary
	if resp.Model != "" {
		summary.Model = resp.Model
	}
	summary.Warnings = append(summary.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	if len(resp.CitedURLs) > 0 {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Verified %d citations against the votation list", len(resp.CitedURLs)))
	}
	return summary, nil
}

// RenderSeparateMarkdown renders a summary as its own Markdown document
func RenderSeparateMarkdown(summary *Summary) string {
	if summary == nil || !summary.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("# LLM Summary\n\n")
	b.WriteString("> GENERATED CONTENT. Statistics were determined independently of this text;\n")
	b.WriteString("> consult the analysis report for the authoritative figures.\n\n")

	fmt.Fprintf(&b, "- **Provider**: %s\n", summary.Provider)
	if summary.Model != "" {
		fmt.Fprintf(&b, "- **Model**: %s\n", summary.Model)
	}
	fmt.Fprintf(&b, "- **Strict Citations**: %t\n\n", summary.StrictCitations)

	if summary.SummaryMD == "" {
		b.WriteString("_No summary generated._\n")
	} else {
		b.WriteString(summary.SummaryMD)
		b.WriteString("\n")
	}

	if len(summary.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range summary.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return b.String()
}
