package config

import (
	"fmt"
	"slices"
)

// validSSLModes are the SSL modes accepted by PostgreSQL.
var validSSLModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
//
// Note: a missing OpenAI API key is deliberately NOT a validation error.
// The embedding pipeline degrades to zero vectors so the service stays
// functional without the external dependency.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.ChatModel == "" {
		return fmt.Errorf("%w: chat_model cannot be empty", ErrInvalidChatModel)
	}
	if c.PDFChatModel == "" {
		return fmt.Errorf("%w: pdf_chat_model cannot be empty", ErrInvalidChatModel)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: postgres_host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: postgres_port must be between 1 and 65535, got %d",
			ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: postgres_db_name cannot be empty", ErrInvalidPostgresDBName)
	}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: postgres_ssl_mode must be one of %v, got %q",
			ErrInvalidPostgresSSLMode, validSSLModes, c.PostgresSSLMode)
	}

	if c.DefaultPageSize < 1 || c.DefaultPageSize > 100 {
		return fmt.Errorf("%w: default_page_size must be between 1 and 100, got %d",
			ErrInvalidPageSize, c.DefaultPageSize)
	}

	return nil
}
