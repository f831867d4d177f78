package container

import (
	"database/sql"
	"fmt"

	"github.com/garyjia/ai-reconciliation/internal/application/dispatcher"
	"github.com/garyjia/ai-reconciliation/internal/application/port"
	"github.com/garyjia/ai-reconciliation/internal/application/service"
	infraLark "github.com/garyjia/ai-reconciliation/internal/infrastructure/external/lark"
	"github.com/garyjia/ai-reconciliation/internal/infrastructure/external/openai"
	"github.com/garyjia/ai-reconciliation/internal/infrastructure/ledger"
	"github.com/garyjia/ai-reconciliation/internal/infrastructure/persistence/repository"
	"github.com/garyjia/ai-reconciliation/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/ai-reconciliation/internal/infrastructure/report"
	"github.com/garyjia/ai-reconciliation/internal/infrastructure/worker"
	httpserver "github.com/garyjia/ai-reconciliation/internal/interfaces/http"
	"github.com/garyjia/ai-reconciliation/migrations"
	"github.com/garyjia/ai-reconciliation/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// AIBundle holds the OpenAI-backed adapters.
type AIBundle struct {
	Classifier port.Classifier
	Extractor  port.DocumentExtractor
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).RunMigrations(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Mapping: repository.NewMappingRepository(sqlDB, logger),
		Run:     repository.NewRunRepository(sqlDB, logger),
	}, nil
}

// ProvideAI loads the prompts and builds the classifier and document extractor
// on one shared OpenAI client.
func ProvideAI(cfg *OpenAIConfig, promptsPath string, logger *zap.Logger) (*AIBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("openai config is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	prompts, err := openai.LoadPrompts(promptsPath)
	if err != nil {
		return nil, err
	}

	visionModel := cfg.VisionModel
	if visionModel == "" {
		visionModel = cfg.Model
	}

	client := openai.NewClient(cfg.APIKey, cfg.BaseURL, cfg.Timeout)
	return &AIBundle{
		Classifier: openai.NewClassifier(client, cfg.Model, prompts.Classification, logger),
		Extractor:  openai.NewDocumentExtractor(client, visionModel, prompts.DocumentExtraction, cfg.MaxPages, logger),
	}, nil
}

// ProvideLedger creates the ledger client backed by the exported workbook.
func ProvideLedger(cfg *LedgerConfig, logger *zap.Logger) (port.LedgerClient, error) {
	if cfg == nil || cfg.WorkbookPath == "" {
		return nil, fmt.Errorf("ledger workbook path is required")
	}
	return ledger.NewWorkbookLedger(cfg.WorkbookPath, cfg.Sheet, logger), nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(dispatcher.WithLogger(&zapLoggerAdapter{logger: logger})), nil
}

// ProvideNotifier subscribes a Lark notifier to run events. It returns nil
// when Lark is not configured.
func ProvideNotifier(cfg *LarkConfig, disp dispatcher.Dispatcher, logger *zap.Logger) (*infraLark.Notifier, error) {
	larkCfg := infraLark.Config{
		AppID:          cfg.AppID,
		AppSecret:      cfg.AppSecret,
		ReviewerOpenID: cfg.ReviewerOpenID,
		BaseURL:        cfg.BaseURL,
	}
	if !larkCfg.Enabled() {
		logger.Info("Lark notifications disabled")
		return nil, nil
	}
	if disp == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	client := infraLark.NewSDKClient(larkCfg, logger)
	notifier := infraLark.NewNotifier(infraLark.NewMessenger(client, logger), cfg.ReviewerOpenID, logger)
	notifier.Subscribe(disp)

	logger.Info("Lark notifications enabled", zap.String("app_id", client.GetAppID()))
	return notifier, nil
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	AI         *AIBundle
	Ledger     port.LedgerClient
	Dispatcher dispatcher.Dispatcher
	WorkerCfg  *WorkerConfig
	Logger     *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil || deps.AI == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}

	svcLogger := &zapLoggerAdapter{logger: deps.Logger}
	extraction := service.NewExtractionService(deps.AI.Extractor, deps.WorkerCfg.ExtractionConcurrency, svcLogger)

	return &ServiceBundle{
		Reconciliation: service.NewReconciliationService(
			extraction,
			deps.Ledger,
			deps.Repos.Mapping,
			deps.Repos.Run,
			deps.AI.Classifier,
			deps.TxManager,
			deps.Dispatcher,
			svcLogger,
		),
		Mapping: service.NewMappingService(
			deps.Repos.Mapping,
			deps.Repos.Run,
			deps.Dispatcher,
			deps.WorkerCfg.MappingSaveConcurrency,
			svcLogger,
		),
	}, nil
}

// ProvideWorkers creates the worker manager. The classification worker is
// registered only when background classification is enabled.
func ProvideWorkers(cfg *WorkerConfig, runs worker.RunClassifier, logger *zap.Logger) (*worker.WorkerManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("worker config is required")
	}

	manager := worker.NewWorkerManager(logger)
	if !cfg.Enabled {
		logger.Info("Background classification disabled")
		return manager, nil
	}
	if runs == nil {
		return nil, fmt.Errorf("reconciliation service is required")
	}

	manager.Register(worker.NewClassificationWorker(worker.ClassificationWorkerConfig{
		PollInterval:   cfg.PollInterval,
		BatchSize:      cfg.BatchSize,
		Concurrency:    cfg.Concurrency,
		ProcessTimeout: cfg.ProcessTimeout,
	}, runs, logger))

	return manager, nil
}

// ProvideHTTPServer creates the HTTP adapter. A nil reports writer leaves the
// report endpoint unregistered.
func ProvideHTTPServer(cfg *ServerConfig, services *ServiceBundle, reports port.ReportWriter, logger *zap.Logger) (*httpserver.Server, error) {
	if services == nil {
		return nil, fmt.Errorf("services are required")
	}

	serverCfg := httpserver.DefaultServerConfig()
	if cfg.Host != "" {
		serverCfg.Host = cfg.Host
	}
	if cfg.Port > 0 {
		serverCfg.Port = cfg.Port
	}
	if cfg.ReadTimeout > 0 {
		serverCfg.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		serverCfg.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.MaxUploadBytes > 0 {
		serverCfg.MaxUploadBytes = cfg.MaxUploadBytes
	}

	return httpserver.NewServer(serverCfg, services.Reconciliation, services.Mapping, reports, &zapLoggerAdapter{logger: logger}), nil
}

// ProvideReportWriter returns the xlsx writer, or nil when reports are disabled.
func ProvideReportWriter(enabled bool, logger *zap.Logger) port.ReportWriter {
	if !enabled {
		return nil
	}
	return report.NewWorkbookWriter(logger)
}
