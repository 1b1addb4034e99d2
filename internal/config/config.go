package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Uploads are stored here; the file base name is the document id.
	UploadDir string

	// Completion provider
	LLMProvider     string
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	LLMCallTimeout  time.Duration
	LLMMaxRetries   int
	LLMRateLimit    float64

	// Tokenizer
	Tokenizer         string
	TokenizerModel    string
	TokenizerEncoding string

	// Summarization defaults
	SummaryDetail      float64
	MinChunkSize       int
	ChunkDelimiter     string
	SummarizeRecursive bool
	SummaryConcurrency int

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Segmentation
	SegmentStrict bool

	// Summary persistence: memory, sqlite or pathstore
	SummaryStore    string
	SQLitePath      string
	PathstoreURL    string
	PathstoreAPIKey string

	// PDF
	PDFFallbackPdftotext bool

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads the configuration from the environment. When envFile is set,
// it is loaded first without overriding variables already present; a
// missing file is not an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey:    os.Getenv("BOOKDIGEST_API_KEY"),
		UploadDir: envOr("UPLOAD_DIR", "data/uploads"),

		LLMProvider:     strings.ToLower(envOr("LLM_PROVIDER", "openai")),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     envOr("OPENAI_MODEL", "gpt-4o-mini"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  envOr("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		LLMCallTimeout:  envDuration("LLM_CALL_TIMEOUT", 2*time.Minute),
		LLMMaxRetries:   envInt("LLM_MAX_RETRIES", 3),
		LLMRateLimit:    envFloat("LLM_RATE_LIMIT", 0),

		Tokenizer:         envOr("TOKENIZER", "tiktoken"),
		TokenizerModel:    envOr("TOKENIZER_MODEL", "gpt-4o-mini"),
		TokenizerEncoding: os.Getenv("TOKENIZER_ENCODING"),

		SummaryDetail:      envFloat("SUMMARY_DETAIL", 0.75),
		MinChunkSize:       envInt("MIN_CHUNK_SIZE", 500),
		ChunkDelimiter:     envOr("CHUNK_DELIMITER", "."),
		SummarizeRecursive: envBool("SUMMARIZE_RECURSIVE", false),
		SummaryConcurrency: envInt("SUMMARY_CONCURRENCY", 4),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		SegmentStrict: envBool("SEGMENT_STRICT", false),

		SummaryStore:    strings.ToLower(envOr("SUMMARY_STORE", "memory")),
		SQLitePath:      envOr("SQLITE_PATH", "data/bookdigest.db"),
		PathstoreURL:    envOr("PATHSTORE_URL", "http://localhost:8080"),
		PathstoreAPIKey: os.Getenv("PATHSTORE_API_KEY"),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "json"),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.MinChunkSize <= 0 {
		cfg.MinChunkSize = 500
	}
	if cfg.SummaryConcurrency <= 0 {
		cfg.SummaryConcurrency = 4
	}
	if cfg.LLMCallTimeout <= 0 {
		cfg.LLMCallTimeout = 2 * time.Minute
	}
	if cfg.LLMMaxRetries < 0 {
		cfg.LLMMaxRetries = 0
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg, nil
}

// Validate checks the settings every entry point needs.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case "anthropic", "claude":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be openai or anthropic, got %q", c.LLMProvider)
	}
	if c.SummaryDetail < 0 || c.SummaryDetail > 1 {
		return fmt.Errorf("SUMMARY_DETAIL must be between 0 and 1, got %v", c.SummaryDetail)
	}
	if c.ChunkDelimiter == "" {
		return fmt.Errorf("CHUNK_DELIMITER must not be empty")
	}
	switch c.SummaryStore {
	case "memory":
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	case "pathstore":
		if c.PathstoreAPIKey == "" {
			return fmt.Errorf("PATHSTORE_API_KEY is required for the pathstore store")
		}
	default:
		return fmt.Errorf("SUMMARY_STORE must be memory, sqlite or pathstore, got %q", c.SummaryStore)
	}
	return nil
}

// ValidateServer additionally checks the settings the HTTP server needs.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("BOOKDIGEST_API_KEY is required")
	}
	return nil
}

// LLMAPIKey returns the API key of the configured provider.
func (c Config) LLMAPIKey() string {
	if c.LLMProvider == "anthropic" || c.LLMProvider == "claude" {
		return c.AnthropicAPIKey
	}
	return c.OpenAIAPIKey
}

// LLMModel returns the default model of the configured provider.
func (c Config) LLMModel() string {
	if c.LLMProvider == "anthropic" || c.LLMProvider == "claude" {
		return c.AnthropicModel
	}
	return c.OpenAIModel
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
