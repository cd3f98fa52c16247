package model

import "time"

// Grouping modes for the cross-votation aggregate
const (
	GroupByBlockDeputy = "block_deputy"
	GroupByDeputy      = "deputy"
)

// Config is the complete legisla configuration
type Config struct {
	Analysis     AnalysisConfig     `yaml:"analysis" mapstructure:"analysis"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Scrape       ScrapeConfig       `yaml:"scrape" mapstructure:"scrape"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	Schedule     ScheduleConfig     `yaml:"schedule" mapstructure:"schedule"`
}

// AnalysisConfig controls the vote-analysis pipeline
type AnalysisConfig struct {
	GoverningBlock string `yaml:"governing_block" mapstructure:"governing_block"` // Block whose preference defines officialism
	GroupBy        string `yaml:"group_by" mapstructure:"group_by"`               // block_deputy or deputy
}

// StoreConfig locates the SQLite database
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ScrapeConfig describes the source site
type ScrapeConfig struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	SearchType string `yaml:"search_type" mapstructure:"search_type"` // txtSearch form value
	Year       int    `yaml:"year" mapstructure:"year"`
}

// HTTPConfig controls outbound requests
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig controls the fetched page cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig bounds the scraping workers
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig bounds request rate per domain
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// LLMConfig configures the optional narrative summary
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // "" disables it
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level    string `yaml:"level" mapstructure:"level"`
	Encoding string `yaml:"encoding" mapstructure:"encoding"`
}

// ScheduleConfig controls periodic scrape+analyze runs
type ScheduleConfig struct {
	Cron string `yaml:"cron" mapstructure:"cron"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			GoverningBlock: "La Libertad Avanza",
			GroupBy:        GroupByBlockDeputy,
		},
		Store: StoreConfig{
			Path: "legisla.db",
		},
		Scrape: ScrapeConfig{
			BaseURL:    "https://votaciones.hcdn.gob.ar",
			SearchType: "ley",
			Year:       2024,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "Legisla/0.1 (+https://github.com/ppiankov/legisla)",
			MaxBodyBytes:  5_000_000,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".legisla-cache",
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         2,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 800,
		},
		Output: OutputConfig{
			Dir: "./legisla-reports",
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
		Schedule: ScheduleConfig{
			Cron: "0 6 * * *",
		},
	}
}
