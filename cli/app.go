// ABOUTME: Wires config, logging and storage into one dispatch engine for every command
// ABOUTME: Chooses the conversation backend and intent classifier from the config
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/harperreed/partneros/charm"
	"github.com/harperreed/partneros/config"
	"github.com/harperreed/partneros/db"
	"github.com/harperreed/partneros/docgen"
	"github.com/harperreed/partneros/engine"
	"github.com/harperreed/partneros/ledger"
	"github.com/harperreed/partneros/llm"
	"github.com/harperreed/partneros/memory"
	"github.com/harperreed/partneros/router"
	"go.uber.org/zap"
)

// App holds everything a command needs. Close releases the audit database.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Engine *engine.Engine
	Audit  *db.AuditLog
	LLM    *llm.Client
	// Charm is set only when conversations live in charm kv.
	Charm *charm.Client

	auditDB *sql.DB
}

func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{Config: cfg, Logger: logger}

	l, err := ledger.Open(cfg.LedgerPath(), logger.Named("ledger"))
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	store, err := app.conversationStore()
	if err != nil {
		return nil, err
	}
	mem, err := memory.New(ctx, store, logger.Named("memory"))
	if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}

	var templates fs.FS
	if cfg.TemplatesDir != "" {
		if _, err := os.Stat(cfg.TemplatesDir); err != nil {
			return nil, fmt.Errorf("templates_dir %s: %w", cfg.TemplatesDir, err)
		}
		templates = os.DirFS(cfg.TemplatesDir)
	}
	docs := docgen.New(templates, cfg.DocumentsDir(), logger.Named("docgen"))

	app.auditDB, err = db.OpenDatabase(cfg.AuditPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	app.Audit = db.NewAuditLog(app.auditDB)

	app.LLM = llm.NewClient(llm.Config{
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
		Timeout:  cfg.LLM.Timeout,
		SiteName: "PartnerOS",
	}, logger.Named("llm"))

	var classifier router.Classifier = router.KeywordClassifier{}
	if cfg.LLM.Classifier == config.ClassifierModel && llm.ValidateKey(cfg.LLM.APIKey) == nil {
		classifier = router.NewLLMClassifier(app.LLM, classifier, logger.Named("router"))
	}

	app.Engine, err = engine.New(engine.Options{
		Ledger:  l,
		Memory:  mem,
		Docs:    docs,
		Router:  router.New(classifier, logger.Named("router")),
		Chatter: app.LLM,
		Audit:   app.Audit,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Logger:  logger.Named("engine"),
	})
	if err != nil {
		app.Close()
		return nil, err
	}

	logger.Debug("application ready",
		zap.String("data_dir", cfg.DataDir),
		zap.String("memory_backend", cfg.Memory.Backend),
		zap.String("classifier", cfg.LLM.Classifier))
	return app, nil
}

func (a *App) conversationStore() (memory.Store, error) {
	if a.Config.Memory.Backend == config.BackendCharm {
		client, err := charm.NewClient(&a.Config.Charm)
		if err != nil {
			return nil, fmt.Errorf("failed to open charm backend: %w", err)
		}
		a.Charm = client
		return memory.NewKVStore(client, a.Logger.Named("memory")), nil
	}

	store, err := memory.NewFileStore(a.Config.MemoryDir(), a.Logger.Named("memory"))
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation store: %w", err)
	}
	return store, nil
}

// SetAPIKey replaces the default model key, e.g. after prompting for one.
func (a *App) SetAPIKey(key string) error {
	if err := llm.ValidateKey(key); err != nil {
		return err
	}
	a.Config.LLM.APIKey = key
	a.Engine.SetAPIKey(key)
	return nil
}

func (a *App) Close() error {
	if a.auditDB == nil {
		return nil
	}
	err := a.auditDB.Close()
	a.auditDB = nil
	if errors.Is(err, sql.ErrConnDone) {
		return nil
	}
	return err
}
