package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/creditanalysis"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/crm"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/jobs"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/llm"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/llm/openai"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/profiles"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/config"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/server"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/storage/db"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/storage/object"
	localstore "github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/storage/object/local"
	s3store "github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/storage/object/s3"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/telemetry"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/underwriting"
)

const (
	crmTimeout      = 30 * time.Second
	downloadTimeout = 60 * time.Second
)

// App holds shared dependencies.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Redis     *redis.Client
	Store     object.ObjectStore
	Analysis  llm.AnalysisService
	CRM       crm.Gateway
	Jobs      jobs.Repo
	Profiles  profiles.Repo
	Submitter *creditanalysis.Submitter
	Poller    *creditanalysis.Poller
	// Collector is set when COMPLETION_STRATEGY=collect.
	Collector *creditanalysis.Collector

	ProfilesService       *profiles.Service
	CreditAnalysisHandler *creditanalysis.Handler
	ProfilesHandler       *profiles.Handler
}

// Options lets callers replace external dependencies, mainly in tests.
type Options struct {
	Analysis llm.AnalysisService
	CRM      crm.Gateway
	DBOpts   *db.Options
	// SkipAssistant leaves the submitter without an assistant for processes that never submit.
	SkipAssistant bool
}

// Build prepares shared dependencies and the router.
func Build(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	sqlDB, err := buildDB(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	analysis := opts.Analysis
	if analysis == nil {
		analysis, err = buildAnalysis(cfg)
		if err != nil {
			return nil, err
		}
	}

	gateway := opts.CRM
	if gateway == nil {
		gateway, err = buildCRM(cfg)
		if err != nil {
			return nil, err
		}
	}

	var assistantID string
	if !opts.SkipAssistant {
		assistantID, err = ensureAssistant(ctx, cfg, analysis)
		if err != nil {
			return nil, err
		}
	}

	app := &App{
		Config:   cfg,
		DB:       sqlDB,
		Store:    store,
		Analysis: analysis,
		CRM:      gateway,
	}
	if sqlDB != nil {
		app.Jobs = &jobs.PGRepo{DB: sqlDB}
		app.Profiles = &profiles.PGRepo{DB: sqlDB}
	} else {
		app.Jobs = jobs.NewMemoryRepo()
		app.Profiles = profiles.NewMemoryRepo()
	}

	locker, redisClient, err := buildLocker(cfg)
	if err != nil {
		return nil, err
	}
	app.Redis = redisClient

	app.Submitter = &creditanalysis.Submitter{
		Service:     analysis,
		Jobs:        app.Jobs,
		AssistantID: assistantID,
	}

	var handler creditanalysis.CompletionHandler
	var results creditanalysis.ResultSource
	if cfg.CompletionStrategy == config.StrategyCollect {
		app.Collector = creditanalysis.NewCollector()
		handler = app.Collector
		results = app.Collector
	} else {
		handler = &creditanalysis.Propagator{
			Calculator: underwriting.NewCalculator(underwriting.DefaultConfig()),
			Profiles:   app.Profiles,
			CRM:        gateway,
		}
	}

	app.Poller = &creditanalysis.Poller{
		Jobs:     app.Jobs,
		Resolver: &creditanalysis.Resolver{Service: analysis, Jobs: app.Jobs},
		Handler:  handler,
		Locker:   locker,
		Config: creditanalysis.PollerConfig{
			Interval:     cfg.PollInterval,
			Concurrency:  cfg.PollConcurrency,
			MaxAttempts:  cfg.PollMaxAttempts,
			CycleTimeout: cfg.PollCycleTimeout,
		},
	}

	app.ProfilesService = &profiles.Service{
		Repo:       app.Profiles,
		Store:      store,
		CRM:        gateway,
		Queue:      app.Submitter,
		HTTPClient: &http.Client{Timeout: downloadTimeout},
		AuthorID:   cfg.CRMAuthorID,
	}
	app.CreditAnalysisHandler = creditanalysis.NewHandler(app.Submitter, app.Poller, app.Jobs, results)
	app.ProfilesHandler = profiles.NewHandler(app.ProfilesService)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:                cfg,
		CreditAnalysisHandler: app.CreditAnalysisHandler,
		ProfilesHandler:       app.ProfilesHandler,
		DB:                    sqlDB,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"database":     sqlDB != nil,
		"object_store": cfg.ObjectStoreType,
		"strategy":     cfg.CompletionStrategy,
		"redis_lock":   redisClient != nil,
		"crm":          gateway != nil,
	})
	return app, nil
}

// Close releases pooled connections.
func (a *App) Close() error {
	var firstErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			firstErr = err
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func buildDB(ctx context.Context, cfg config.Config, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database.memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	dbOpts := db.OptionsFromEnv(db.DefaultServerOptions())
	if opts.DBOpts != nil {
		dbOpts = *opts.DBOpts
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, dbOpts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database.memory", map[string]any{"reason": "connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildAnalysis(cfg config.Config) (llm.AnalysisService, error) {
	client, err := openai.NewClient(openai.Options{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.OpenAITimeout,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// buildCRM returns nil when no CRM is configured in a dev-like environment.
func buildCRM(cfg config.Config) (crm.Gateway, error) {
	if strings.TrimSpace(cfg.CRMBaseURL) == "" && isDevLike(cfg.Env) {
		telemetry.Warn("bootstrap.crm.disabled", map[string]any{"reason": "CRM_BASE_URL empty"})
		return nil, nil
	}
	client, err := crm.NewClient(cfg.CRMBaseURL, cfg.CRMAPIKey, crmTimeout)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func ensureAssistant(ctx context.Context, cfg config.Config, analysis llm.AnalysisService) (string, error) {
	if id := strings.TrimSpace(cfg.OpenAIAssistantID); id != "" {
		return id, nil
	}
	id, err := analysis.EnsureAssistant(ctx, llm.AnalystSpec(cfg.OpenAIModel))
	if err != nil {
		return "", fmt.Errorf("register analyst assistant: %w", err)
	}
	telemetry.Info("bootstrap.assistant.ready", map[string]any{"assistant_id": id})
	return id, nil
}

func buildLocker(cfg config.Config) (creditanalysis.JobLocker, *redis.Client, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return creditanalysis.NewMemoryLocker(), nil, nil
	}
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(redisOpts)
	return creditanalysis.NewRedisLocker(client, cfg.JobLockTTL), client, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
