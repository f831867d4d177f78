package config

import (
	"github.com/garyjia/ai-reconciliation/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		OpenAI: container.OpenAIConfig{
			APIKey:      c.OpenAI.APIKey,
			BaseURL:     c.OpenAI.BaseURL,
			Model:       c.OpenAI.Model,
			VisionModel: c.OpenAI.VisionModel,
			Timeout:     c.OpenAI.Timeout,
			MaxPages:    c.OpenAI.MaxPages,
		},
		Ledger: container.LedgerConfig{
			WorkbookPath: c.Ledger.WorkbookPath,
			Sheet:        c.Ledger.Sheet,
		},
		Lark: container.LarkConfig{
			AppID:          c.Lark.AppID,
			AppSecret:      c.Lark.AppSecret,
			ReviewerOpenID: c.Lark.ReviewerOpenID,
			BaseURL:        c.Lark.BaseURL,
		},
		Server: container.ServerConfig{
			Host:           c.Server.Host,
			Port:           c.Server.Port,
			ReadTimeout:    c.Server.ReadTimeout,
			WriteTimeout:   c.Server.WriteTimeout,
			MaxUploadBytes: c.Server.MaxUploadBytes,
		},
		Worker: container.WorkerConfig{
			Enabled:                c.Worker.Enabled,
			PollInterval:           c.Worker.PollInterval,
			BatchSize:              c.Worker.BatchSize,
			Concurrency:            c.Worker.Concurrency,
			ProcessTimeout:         c.Worker.ProcessTimeout,
			ExtractionConcurrency:  c.Worker.ExtractionConcurrency,
			MappingSaveConcurrency: c.Worker.MappingSaveConcurrency,
		},
		ReportEnabled: c.Report.Enabled,
		PromptsPath:   c.PromptsPath,
	}
}
