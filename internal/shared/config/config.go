package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Env             string
	Port            string
	LogLevel        string
	CORSAllowOrigin []string
	DatabaseURL     string
	JWTSecret       string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAIAssistantID string
	OpenAITimeout     time.Duration

	CRMBaseURL  string
	CRMAPIKey   string
	CRMAuthorID string

	PollEnabled        bool
	PollInterval       time.Duration
	PollConcurrency    int
	PollMaxAttempts    int
	PollCycleTimeout   time.Duration
	CompletionStrategy string

	RedisURL   string
	JobLockTTL time.Duration
}

var defaults = map[string]any{
	"ENV":                    "dev",
	"PORT":                   "8080",
	"LOG_LEVEL":              "info",
	"CORS_ALLOW_ORIGINS":     "http://localhost:5173",
	"OBJECT_STORE":           "local",
	"LOCAL_STORE_DIR":        "./data",
	"OPENAI_BASE_URL":        "https://api.openai.com/v1",
	"OPENAI_MODEL":           "gpt-4o",
	"OPENAI_TIMEOUT_SECONDS": 120,
	"POLL_ENABLED":           true,
	"POLL_INTERVAL":          "10s",
	"POLL_CONCURRENCY":       1,
	"POLL_MAX_ATTEMPTS":      0,
	"POLL_CYCLE_TIMEOUT":     "0s",
	"COMPLETION_STRATEGY":    "propagate",
	"JOB_LOCK_TTL":           "5m",
}

var keys = []string{
	"DATABASE_URL", "JWT_SECRET", "AWS_REGION", "S3_BUCKET", "S3_PREFIX", "SSE_KMS_KEY_ID",
	"OPENAI_API_KEY", "OPENAI_ASSISTANT_ID", "CRM_BASE_URL", "CRM_API_KEY", "CRM_AUTHOR_ID", "REDIS_URL",
}

// Load reads configuration from environment variables, optionally seeded by a .env file.
func Load() Config {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
	v.AutomaticEnv()
	loadEnvFile(v, ".env", "cmd/.env")
	return fromViper(v)
}

// loadEnvFile merges the first dotenv file found. Real environment variables win.
func loadEnvFile(v *viper.Viper, paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				telemetry.Warn("config.env_file.invalid", map[string]any{"path": path, "error": err.Error()})
			}
			continue
		}
		return
	}
}

func fromViper(v *viper.Viper) Config {
	env := normalizeEnv(v.GetString("ENV"))
	cfg := Config{
		Env:             env,
		Port:            v.GetString("PORT"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		CORSAllowOrigin: splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		JWTSecret:       v.GetString("JWT_SECRET"),

		ObjectStoreType: normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:   v.GetString("LOCAL_STORE_DIR"),
		AWSRegion:       v.GetString("AWS_REGION"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3Prefix:        v.GetString("S3_PREFIX"),
		SSEKMSKeyID:     v.GetString("SSE_KMS_KEY_ID"),

		OpenAIAPIKey:      v.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:     v.GetString("OPENAI_BASE_URL"),
		OpenAIModel:       v.GetString("OPENAI_MODEL"),
		OpenAIAssistantID: v.GetString("OPENAI_ASSISTANT_ID"),
		OpenAITimeout:     time.Duration(v.GetInt("OPENAI_TIMEOUT_SECONDS")) * time.Second,

		CRMBaseURL:  v.GetString("CRM_BASE_URL"),
		CRMAPIKey:   v.GetString("CRM_API_KEY"),
		CRMAuthorID: v.GetString("CRM_AUTHOR_ID"),

		PollEnabled:        v.GetBool("POLL_ENABLED"),
		PollInterval:       v.GetDuration("POLL_INTERVAL"),
		PollConcurrency:    v.GetInt("POLL_CONCURRENCY"),
		PollMaxAttempts:    v.GetInt("POLL_MAX_ATTEMPTS"),
		PollCycleTimeout:   v.GetDuration("POLL_CYCLE_TIMEOUT"),
		CompletionStrategy: normalizeStrategy(v.GetString("COMPLETION_STRATEGY")),

		RedisURL:   v.GetString("REDIS_URL"),
		JobLockTTL: v.GetDuration("JOB_LOCK_TTL"),
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.PollConcurrency < 1 {
		cfg.PollConcurrency = 1
	}
	if cfg.PollMaxAttempts < 0 {
		cfg.PollMaxAttempts = 0
	}
	// A resolve makes two OpenAI calls while holding the job lock.
	if floor := minJobLockTTL(cfg.OpenAITimeout); cfg.JobLockTTL < floor {
		if v.IsSet("JOB_LOCK_TTL") {
			telemetry.Warn("config.job_lock_ttl.raised", map[string]any{"configured": cfg.JobLockTTL.String(), "ttl": floor.String()})
		}
		cfg.JobLockTTL = floor
	}
	if env == "production" && cfg.DatabaseURL == "" {
		telemetry.Error("config.database_url.missing", map[string]any{"env": env})
	}
	return cfg
}

func minJobLockTTL(openAITimeout time.Duration) time.Duration {
	return 2*openAITimeout + time.Minute
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

// Completion strategies.
const (
	StrategyPropagate = "propagate"
	StrategyCollect   = "collect"
)

func normalizeStrategy(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case StrategyCollect:
		return StrategyCollect
	default:
		return StrategyPropagate
	}
}
