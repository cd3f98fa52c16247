package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/legisla/internal/model"
	"github.com/ppiankov/legisla/internal/report"
)

// MockProvider is a test double for Provider
type MockProvider struct {
	name      string
	available bool
	response  *SummarizeResponse
	err       error
	lastReq   SummarizeRequest
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

func (m *MockProvider) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func TestGenerateSummary_Disabled(t *testing.T) {
	s, err := NewSummarizer(DefaultConfig())
	if err != nil {
		t.Fatalf("NewSummarizer failed: %v", err)
	}
	if s.IsEnabled() || s.ProviderName() != "" {
		t.Error("Expected disabled summarizer")
	}

	summary, err := s.GenerateSummary(context.Background(), testDashboard(), nil)
	if err != nil || summary != nil {
		t.Errorf("Expected nil summary when disabled, got %v, %v", summary, err)
	}
}

func TestGenerateSummary_Unavailable(t *testing.T) {
	s := &Summarizer{
		provider: &MockProvider{name: "mock", available: false},
		config:   DefaultConfig(),
	}

	summary, err := s.GenerateSummary(context.Background(), testDashboard(), nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if summary.Enabled {
		t.Error("Expected summary disabled when provider unavailable")
	}
	if len(summary.Warnings) != 1 || !strings.Contains(summary.Warnings[0], "not available") {
		t.Errorf("Unexpected warnings: %v", summary.Warnings)
	}
	if RenderSeparateMarkdown(summary) != "" {
		t.Error("Expected no markdown for a disabled summary")
	}
}

func TestGenerateSummary_Success(t *testing.T) {
	mock := &MockProvider{
		name:      "mock",
		available: true,
		response: &SummarizeResponse{
			Summary:    "El bloque oficialista votó unido. https://votaciones.hcdn.gob.ar/votacion/5404",
			CitedURLs:  []string{"https://votaciones.hcdn.gob.ar/votacion/5404"},
			Model:      "mock-model",
			TokensUsed: 42,
		},
	}
	cfg := DefaultConfig()
	cfg.Model = "configured-model"
	s := &Summarizer{provider: mock, config: cfg}

	allowed := []string{"https://votaciones.hcdn.gob.ar/votacion/5404"}
	summary, err := s.GenerateSummary(context.Background(), testDashboard(), allowed)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !summary.Enabled || summary.Model != "mock-model" {
		t.Errorf("Unexpected summary: %+v", summary)
	}
	if mock.lastReq.Model != "configured-model" || mock.lastReq.MaxTokens != 800 {
		t.Errorf("Request did not carry config: %+v", mock.lastReq)
	}
	if len(mock.lastReq.AllowedURLs) != 1 {
		t.Errorf("Expected allowed URLs passed through, got %v", mock.lastReq.AllowedURLs)
	}

	md := RenderSeparateMarkdown(summary)
	for _, want := range []string{
		"# LLM Summary",
		"GENERATED CONTENT",
		"- **Provider**: mock",
		"- **Model**: mock-model",
		"El bloque oficialista votó unido.",
		"Tokens used: 42",
		"Verified 1 citations",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown missing %q:\n%s", want, md)
		}
	}
}

func TestGenerateSummary_ProviderError(t *testing.T) {
	s := &Summarizer{
		provider: &MockProvider{name: "mock", available: true, err: errors.New("rate limited")},
		config:   DefaultConfig(),
	}

	summary, err := s.GenerateSummary(context.Background(), testDashboard(), nil)
	if err != nil {
		t.Fatalf("Provider errors should degrade to warnings, got %v", err)
	}
	if !summary.Enabled || summary.SummaryMD != "" {
		t.Errorf("Unexpected summary: %+v", summary)
	}
	if len(summary.Warnings) != 1 || !strings.Contains(summary.Warnings[0], "rate limited") {
		t.Errorf("Unexpected warnings: %v", summary.Warnings)
	}

	md := RenderSeparateMarkdown(summary)
	if !strings.Contains(md, "_No summary generated._") || !strings.Contains(md, "## Notes") {
		t.Errorf("Unexpected markdown:\n%s", md)
	}
}

func TestBuildPrompt(t *testing.T) {
	d := testDashboard()
	latest := time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)
	d.LatestVotation = &latest
	d.MostLoyal = []model.DeputyStatistics{{Block: "La Libertad Avanza", Deputy: "PEREZ, Juan", AverageLoyalty: 1}}
	d.MostAbsent = []model.DeputyStatistics{{Block: "Unión por la Patria", Deputy: "GOMEZ, Ana", Absent: 7}}

	prompt := BuildPrompt(d, []string{"https://votaciones.hcdn.gob.ar/votacion/5404"})

	for _, want := range []string{
		"- https://votaciones.hcdn.gob.ar/votacion/5404",
		"Votations analyzed: 12",
		"General cohesion (mean loyalty to own block): 91.0%",
		"Latest votation: 12/06/2024",
		"Chamber composition (257 deputies)",
		"- Unión por la Patria: 99 (38.5%)",
		"- PEREZ, Juan (La Libertad Avanza): loyalty 100.0%",
		"- GOMEZ, Ana (Unión por la Patria): 7 absences",
		"Answer in Spanish",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("Prompt missing %q", want)
		}
	}
	if strings.Contains(prompt, "Least loyal deputies") {
		t.Error("Empty rankings should be omitted")
	}
}

func TestBuildPrompt_NoURLs(t *testing.T) {
	prompt := BuildPrompt(&report.Dashboard{}, nil)
	if !strings.Contains(prompt, "No URLs available") {
		t.Error("Expected explicit empty allowlist")
	}
	if !strings.Contains(prompt, "Most cohesive block: none") {
		t.Error("Expected placeholder for missing block")
	}
}

func TestJoinURLs_Truncates(t *testing.T) {
	urls := make([]string, 25)
	for i := range urls {
		urls[i] = "https://votaciones.hcdn.gob.ar/votacion/" + string(rune('a'+i))
	}
	out := joinURLs(urls)
	if !strings.Contains(out, "... and 5 more URLs") {
		t.Errorf("Expected truncation note, got %s", out)
	}
}

func TestConfigFromModel(t *testing.T) {
	cfg := ConfigFromModel(model.LLMConfig{Provider: "ollama", Model: "llama3"})
	if cfg.Timeout != 30 || cfg.MaxTokens != 800 || !cfg.StrictCitations {
		t.Errorf("Expected defaults preserved, got %+v", cfg)
	}

	cfg = ConfigFromModel(model.LLMConfig{Timeout: 5, MaxTokens: 100})
	if cfg.Timeout != 5 || cfg.MaxTokens != 100 {
		t.Errorf("Expected overrides applied, got %+v", cfg)
	}
}
