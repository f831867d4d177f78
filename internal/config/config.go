package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	OpenAI      OpenAIConfig   `mapstructure:"openai"`
	Ledger      LedgerConfig   `mapstructure:"ledger"`
	Lark        LarkConfig     `mapstructure:"lark"`
	Worker      WorkerConfig   `mapstructure:"worker"`
	Report      ReportConfig   `mapstructure:"report"`
	Logger      LoggerConfig   `mapstructure:"logger"`
	PromptsPath string         `mapstructure:"prompts_path"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`

	// VisionModel reads supplier documents; defaults to Model
	VisionModel string        `mapstructure:"vision_model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxPages    int           `mapstructure:"max_pages"`
}

// LedgerConfig points at the exported ledger workbook
type LedgerConfig struct {
	WorkbookPath string `mapstructure:"workbook_path"`
	Sheet        string `mapstructure:"sheet"`
}

// LarkConfig holds Lark API configuration. Notifications are disabled when
// AppID is empty.
type LarkConfig struct {
	AppID          string `mapstructure:"app_id"`
	AppSecret      string `mapstructure:"app_secret"`
	ReviewerOpenID string `mapstructure:"reviewer_open_id"`
	BaseURL        string `mapstructure:"base_url"`
}

// WorkerConfig holds background classification and fan-out settings
type WorkerConfig struct {
	Enabled                bool          `mapstructure:"enabled"`
	PollInterval           time.Duration `mapstructure:"poll_interval"`
	BatchSize              int           `mapstructure:"batch_size"`
	Concurrency            int           `mapstructure:"concurrency"`
	ProcessTimeout         time.Duration `mapstructure:"process_timeout"`
	ExtractionConcurrency  int           `mapstructure:"extraction_concurrency"`
	MappingSaveConcurrency int           `mapstructure:"mapping_save_concurrency"`
}

// ReportConfig holds report export settings
type ReportConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables. An empty
// configPath relies on defaults and the environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.OpenAI.VisionModel == "" {
		cfg.OpenAI.VisionModel = cfg.OpenAI.Model
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 60*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.max_upload_bytes", 32<<20)

	v.SetDefault("database.path", "data/reconciliation.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.timeout", 120*time.Second)
	v.SetDefault("openai.max_pages", 4)

	v.SetDefault("worker.enabled", true)
	v.SetDefault("worker.poll_interval", 5*time.Second)
	v.SetDefault("worker.batch_size", 5)
	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.process_timeout", 3*time.Minute)
	v.SetDefault("worker.extraction_concurrency", 4)
	v.SetDefault("worker.mapping_save_concurrency", 4)

	v.SetDefault("report.enabled", true)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("prompts_path", "configs/prompts.yaml")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"openai.api_key":        "OPENAI_API_KEY",
		"openai.base_url":       "OPENAI_BASE_URL",
		"lark.app_id":           "LARK_APP_ID",
		"lark.app_secret":       "LARK_APP_SECRET",
		"lark.reviewer_open_id": "LARK_REVIEWER_OPEN_ID",
		"ledger.workbook_path":  "LEDGER_WORKBOOK_PATH",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
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

	if c.Lark.AppID != "" {
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required when lark.app_id is set")
		}
		if c.Lark.ReviewerOpenID == "" {
			return fmt.Errorf("lark.reviewer_open_id is required when lark.app_id is set")
		}
	}

	return nil
}

// LarkEnabled reports whether reviewer notifications are configured
func (c *Config) LarkEnabled() bool {
	return c.Lark.AppID != ""
}
