// Package container provides dependency injection and lifecycle management
// for the reconciliation service following Clean Architecture principles.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// OpenAI configuration for extraction and classification
	OpenAI OpenAIConfig

	// Ledger workbook configuration
	Ledger LedgerConfig

	// Lark notification configuration
	Lark LarkConfig

	// Server configuration
	Server ServerConfig

	// Worker configuration
	Worker WorkerConfig

	// ReportEnabled exposes the xlsx report endpoint
	ReportEnabled bool

	// PromptsPath is the YAML file holding the model prompts
	PromptsPath string
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key
	APIKey string

	// BaseURL overrides the API endpoint for compatible gateways
	BaseURL string

	// Model classifies residual items (e.g., "gpt-4o")
	Model string

	// VisionModel reads supplier documents
	VisionModel string

	// Timeout for API calls
	Timeout time.Duration

	// MaxPages caps rendered PDF pages per document
	MaxPages int
}

// LedgerConfig holds the ledger workbook location.
type LedgerConfig struct {
	WorkbookPath string
	Sheet        string
}

// LarkConfig holds Lark API settings. An empty AppID disables notifications.
type LarkConfig struct {
	AppID          string
	AppSecret      string
	ReviewerOpenID string
	BaseURL        string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
}

// WorkerConfig holds background worker and fan-out settings.
type WorkerConfig struct {
	// Enabled starts the background classification worker
	Enabled bool

	PollInterval   time.Duration
	BatchSize      int
	Concurrency    int
	ProcessTimeout time.Duration

	// ExtractionConcurrency bounds parallel document extraction per run
	ExtractionConcurrency int

	// MappingSaveConcurrency bounds parallel mapping inserts per save
	MappingSaveConcurrency int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/reconciliation.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o",
			VisionModel: "gpt-4o",
			Timeout:     120 * time.Second,
			MaxPages:    4,
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    60 * time.Second,
			WriteTimeout:   5 * time.Minute,
			MaxUploadBytes: 32 << 20,
		},
		Worker: WorkerConfig{
			Enabled:                true,
			PollInterval:           5 * time.Second,
			BatchSize:              5,
			Concurrency:            2,
			ProcessTimeout:         3 * time.Minute,
			ExtractionConcurrency:  4,
			MappingSaveConcurrency: 4,
		},
		ReportEnabled: true,
		PromptsPath:   "configs/prompts.yaml",
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}

	if c.Ledger.WorkbookPath == "" {
		return fmt.Errorf("ledger.workbook_path is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.PromptsPath == "" {
		return fmt.Errorf("prompts_path is required")
	}

	// Lark is optional, but a half-configured app is a mistake
	if c.Lark.AppID != "" && (c.Lark.AppSecret == "" || c.Lark.ReviewerOpenID == "") {
		return fmt.Errorf("lark.app_secret and lark.reviewer_open_id are required when lark.app_id is set")
	}

	return nil
}
