// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.quill/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: chat models, embedder model, summarizer model, API keys
//   - Storage: PostgreSQL connection (see storage.go), object storage bucket
//   - Server: listen address, CORS origins, proxy trust
//
// Security: sensitive fields (password, API keys) are masked in MarshalJSON.
// Validation: range checks in validation.go with sentinel errors for errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidChatModel indicates the chat model name is invalid.
	ErrInvalidChatModel = errors.New("invalid chat model")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidPageSize indicates the note list page size is out of range.
	ErrInvalidPageSize = errors.New("invalid page size")
)

// Default model identifiers. These mirror the external APIs the service talks to:
// OpenAI for embeddings, default chat and summarization, Anthropic for
// conversations that carry PDF attachments.
const (
	DefaultEmbedderModel  = "text-embedding-ada-002"
	DefaultChatModel      = "gpt-4o"
	DefaultPDFChatModel   = "claude-3-5-sonnet-latest"
	DefaultSummarizeModel = "gpt-3.5-turbo"
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys), update MarshalJSON.
type Config struct {
	// AI model configuration
	ChatModel      string `mapstructure:"chat_model" json:"chat_model"`             // default chat model (OpenAI)
	PDFChatModel   string `mapstructure:"pdf_chat_model" json:"pdf_chat_model"`     // model used when a PDF attachment is present (Anthropic)
	EmbedderModel  string `mapstructure:"embedder_model" json:"embedder_model"`     // embedding model (OpenAI)
	SummarizeModel string `mapstructure:"summarize_model" json:"summarize_model"`   // title/summary model (OpenAI)
	MaxChatTokens  int    `mapstructure:"max_chat_tokens" json:"max_chat_tokens"`   // max tokens per chat completion
	OpenAIAPIKey   string `mapstructure:"openai_api_key" json:"openai_api_key"`     // SENSITIVE: masked in MarshalJSON
	AnthropicKey   string `mapstructure:"anthropic_api_key" json:"anthropic_api_key"` // SENSITIVE: masked in MarshalJSON

	// Storage configuration (see storage.go for connection string helpers)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Object storage (uploads, AI-generated images). Empty bucket disables uploads.
	StorageBucket string `mapstructure:"storage_bucket" json:"storage_bucket"`

	// Note listing
	DefaultPageSize int `mapstructure:"default_page_size" json:"default_page_size"`

	// Server configuration (serve mode only)
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`   // per-IP request burst allowance

	// Observability (optional OTLP trace export)
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name" json:"service_name"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".quill")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults apply
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL, when set, overrides the individual postgres_* settings
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	if cfg.OpenAIAPIKey == "" {
		slog.Warn("OPENAI_API_KEY is not set; embeddings degrade to zero vectors and similarity search is meaningless")
	}

	return &cfg, nil
}

func setDefaults() {
	// AI defaults
	viper.SetDefault("chat_model", DefaultChatModel)
	viper.SetDefault("pdf_chat_model", DefaultPDFChatModel)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("summarize_model", DefaultSummarizeModel)
	viper.SetDefault("max_chat_tokens", 4096)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "quill")
	viper.SetDefault("postgres_password", "quill_dev_password")
	viper.SetDefault("postgres_db_name", "quill")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Listing defaults
	viper.SetDefault("default_page_size", 5)

	// Server defaults
	viper.SetDefault("cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("trust_proxy", false)
	viper.SetDefault("rate_burst", 60)

	// Observability defaults
	viper.SetDefault("service_name", "quill")
}

func bindEnvVariables() {
	// API keys come from the conventional environment variable names
	_ = viper.BindEnv("openai_api_key", "OPENAI_API_KEY")
	_ = viper.BindEnv("anthropic_api_key", "ANTHROPIC_API_KEY")

	_ = viper.BindEnv("chat_model", "QUILL_CHAT_MODEL")
	_ = viper.BindEnv("pdf_chat_model", "QUILL_PDF_CHAT_MODEL")
	_ = viper.BindEnv("embedder_model", "QUILL_EMBEDDER_MODEL")
	_ = viper.BindEnv("summarize_model", "QUILL_SUMMARIZE_MODEL")

	_ = viper.BindEnv("postgres_host", "QUILL_POSTGRES_HOST")
	_ = viper.BindEnv("postgres_port", "QUILL_POSTGRES_PORT")
	_ = viper.BindEnv("postgres_user", "QUILL_POSTGRES_USER")
	_ = viper.BindEnv("postgres_password", "QUILL_POSTGRES_PASSWORD")
	_ = viper.BindEnv("postgres_db_name", "QUILL_POSTGRES_DB_NAME")
	_ = viper.BindEnv("postgres_ssl_mode", "QUILL_POSTGRES_SSL_MODE")

	_ = viper.BindEnv("storage_bucket", "QUILL_STORAGE_BUCKET")
	_ = viper.BindEnv("cors_origins", "QUILL_CORS_ORIGINS")
	_ = viper.BindEnv("trust_proxy", "QUILL_TRUST_PROXY")
	_ = viper.BindEnv("rate_burst", "QUILL_RATE_BURST")
	_ = viper.BindEnv("otlp_endpoint", "QUILL_OTLP_ENDPOINT")
	_ = viper.BindEnv("service_name", "QUILL_SERVICE_NAME")
}

// MarshalJSON masks sensitive fields so configs can be logged safely.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	masked := alias(c)
	if masked.PostgresPassword != "" {
		masked.PostgresPassword = "********"
	}
	if masked.OpenAIAPIKey != "" {
		masked.OpenAIAPIKey = "********"
	}
	if masked.AnthropicKey != "" {
		masked.AnthropicKey = "********"
	}
	return json.Marshal(masked)
}
