// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetWorkflowRunInterval() time.Duration
}

// AIConfig provides settings for the LLM completion endpoint.
type AIConfig interface {
	GetMoonshotAPIKey() string
	GetMoonshotModel() string
	GetAIRequestsPerMinute() int
	IsAIEnabled() bool
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetOperatorEmail() string
}

// WorkflowConfig provides the tunable constants of the nurturing workflow.
// Defaults match the documented thresholds; overriding them changes the
// behavior of every subsequent run, not of already-persisted state.
type WorkflowConfig interface {
	GetLowProbabilityThreshold() int
	GetMediumProbabilityThreshold() int
	GetMaxNurturingCycles() int
	GetRescoringIntervalDays() int
	GetMinDaysSinceLastContact() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                        string
	HTTPAddr                   string
	DatabaseURL                string
	CORSAllowAll               bool
	CORSOrigins                []string
	CORSAllowCreds             bool
	RedisURL                   string
	RedisTLSInsecure           bool
	AsynqQueueName             string
	AsynqConcurrency           int
	WorkflowRunInterval        time.Duration
	MoonshotAPIKey             string
	MoonshotModel              string
	AIRequestsPerMinute        int
	EmailEnabled               bool
	SMTPHost                   string
	SMTPPort                   int
	SMTPUsername               string
	SMTPPassword               string
	EmailFromName              string
	EmailFromAddress           string
	OperatorEmail              string
	LowProbabilityThreshold    int
	MediumProbabilityThreshold int
	MaxNurturingCycles         int
	RescoringIntervalDays      int
	MinDaysSinceLastContact    int
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                   { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool             { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string             { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int              { return c.AsynqConcurrency }
func (c *Config) GetWorkflowRunInterval() time.Duration { return c.WorkflowRunInterval }

// AIConfig implementation
func (c *Config) GetMoonshotAPIKey() string   { return c.MoonshotAPIKey }
func (c *Config) GetMoonshotModel() string    { return c.MoonshotModel }
func (c *Config) GetAIRequestsPerMinute() int { return c.AIRequestsPerMinute }
func (c *Config) IsAIEnabled() bool           { return c.MoonshotAPIKey != "" }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetOperatorEmail() string    { return c.OperatorEmail }

// WorkflowConfig implementation
func (c *Config) GetLowProbabilityThreshold() int    { return c.LowProbabilityThreshold }
func (c *Config) GetMediumProbabilityThreshold() int { return c.MediumProbabilityThreshold }
func (c *Config) GetMaxNurturingCycles() int         { return c.MaxNurturingCycles }
func (c *Config) GetRescoringIntervalDays() int      { return c.RescoringIntervalDays }
func (c *Config) GetMinDaysSinceLastContact() int    { return c.MinDaysSinceLastContact }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                        getEnv("APP_ENV", "development"),
		HTTPAddr:                   getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:                getEnv("DATABASE_URL", ""),
		CORSAllowAll:               corsAllowAll,
		CORSOrigins:                corsOrigins,
		CORSAllowCreds:             strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:                   getEnv("REDIS_URL", ""),
		RedisTLSInsecure:           strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:             getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:           mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		WorkflowRunInterval:        mustDuration(getEnv("WORKFLOW_RUN_INTERVAL", "24h")),
		MoonshotAPIKey:             getEnv("MOONSHOT_API_KEY", ""),
		MoonshotModel:              getEnv("MOONSHOT_MODEL", "kimi-k2-turbo-preview"),
		AIRequestsPerMinute:        mustInt(getEnv("AI_REQUESTS_PER_MINUTE", "30")),
		EmailEnabled:               emailEnabled && smtpHost != "",
		SMTPHost:                   smtpHost,
		SMTPPort:                   mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:               getEnv("SMTP_USERNAME", ""),
		SMTPPassword:               getEnv("SMTP_PASSWORD", ""),
		EmailFromName:              getEnv("EMAIL_FROM_NAME", "Nurture"),
		EmailFromAddress:           getEnv("EMAIL_FROM_ADDRESS", ""),
		OperatorEmail:              getEnv("OPERATOR_EMAIL", ""),
		LowProbabilityThreshold:    mustInt(getEnv("WORKFLOW_LOW_THRESHOLD", "30")),
		MediumProbabilityThreshold: mustInt(getEnv("WORKFLOW_MEDIUM_THRESHOLD", "60")),
		MaxNurturingCycles:         mustInt(getEnv("WORKFLOW_MAX_CYCLES", "3")),
		RescoringIntervalDays:      mustInt(getEnv("WORKFLOW_RESCORING_INTERVAL_DAYS", "14")),
		MinDaysSinceLastContact:    mustInt(getEnv("WORKFLOW_MIN_DAYS_SINCE_CONTACT", "7")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.MaxNurturingCycles < 1 {
		return nil, fmt.Errorf("WORKFLOW_MAX_CYCLES must be at least 1")
	}
	if cfg.MediumProbabilityThreshold <= cfg.LowProbabilityThreshold {
		return nil, fmt.Errorf("WORKFLOW_MEDIUM_THRESHOLD must be above WORKFLOW_LOW_THRESHOLD")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
