package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every failed requirement so they can be reported together.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// ConfigRequirements defines required settings for each environment
type ConfigRequirements struct {
	Required        []string
	ModelCredential bool
}

var requirements = map[Environment]ConfigRequirements{
	Development: {
		Required:        []string{"TELEGRAM_BOT_TOKEN", "DATABASE_URL"},
		ModelCredential: true,
	},
	Test: {
		Required: []string{"TELEGRAM_BOT_TOKEN"},
	},
	CI: {
		Required:        []string{"TELEGRAM_BOT_TOKEN", "DATABASE_URL", "REDIS_URL"},
		ModelCredential: true,
	},
	Production: {
		Required: []string{
			"TELEGRAM_BOT_TOKEN",
			"TELEGRAM_WEBHOOK_SECRET",
			"WEBHOOK_BASE_URL",
			"DATABASE_URL",
			"REDIS_URL",
		},
		ModelCredential: true,
	},
}

// ValidateConfig checks if the configuration meets the requirements for its environment
func ValidateConfig(cfg *Config) error {
	env := cfg.Env
	if env == "" {
		env = GetEnvironment()
	}
	reqs := requirements[env]

	values := map[string]string{
		"TELEGRAM_BOT_TOKEN":      cfg.TelegramBotToken,
		"TELEGRAM_WEBHOOK_SECRET": cfg.TelegramWebhookSecret,
		"WEBHOOK_BASE_URL":        cfg.WebhookBaseURL,
		"DATABASE_URL":            cfg.DatabaseURL,
		"REDIS_URL":               cfg.RedisURL,
	}

	var errs ValidationErrors
	for _, name := range reqs.Required {
		if values[name] == "" {
			errs = append(errs, ValidationError{Field: name, Message: fmt.Sprintf("required in %s environment", env)})
		}
	}

	if reqs.ModelCredential && !cfg.HasModelCredentials() {
		errs = append(errs, ValidationError{
			Field:   "LLM",
			Message: "one of LANGDB_API_KEY+LANGDB_PROJECT_ID, OPENROUTER_API_KEY or OPENAI_API_KEY is required",
		})
	}

	// Outside production a half-configured gateway just falls back to the plain clients.
	if env == Production && (cfg.LangDBAPIKey == "") != (cfg.LangDBProjectID == "") {
		errs = append(errs, ValidationError{Field: "LANGDB_PROJECT_ID", Message: "LANGDB_API_KEY and LANGDB_PROJECT_ID must be set together"})
	}

	if cfg.RateLimitRequests <= 0 {
		errs = append(errs, ValidationError{Field: "RATE_LIMIT_REQUESTS", Message: "must be positive"})
	}
	if cfg.RateLimitPeriod <= 0 {
		errs = append(errs, ValidationError{Field: "RATE_LIMIT_PERIOD", Message: "must be positive"})
	}
	if cfg.DBPoolMaxSize < cfg.DBPoolMinSize {
		errs = append(errs, ValidationError{Field: "DB_POOL_MAX_SIZE", Message: "must not be smaller than DB_POOL_MIN_SIZE"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
