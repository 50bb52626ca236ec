// Package config loads the application configuration from a YAML file and
// LONGOPASS_* environment variables over built-in defaults.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
)

// Config is the root configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	API       APIConfig       `mapstructure:"api"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Messages  MessagesConfig  `mapstructure:"messages"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// APIConfig configures the Longopass AI service client. UserID may be
// empty, in which case one is generated.
type APIConfig struct {
	BaseURL       string        `mapstructure:"base_url" validate:"required,url"`
	Plan          string        `mapstructure:"plan" validate:"oneof=free premium"`
	UserID        string        `mapstructure:"user_id"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
	AutoStartChat bool          `mapstructure:"auto_start_chat"`

	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// CircuitBreakerConfig stops calls to the service after repeated failures
// until OpenTimeout has passed.
type CircuitBreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxFailures int           `mapstructure:"max_failures" validate:"gte=0"`
	OpenTimeout time.Duration `mapstructure:"open_timeout" validate:"gte=0"`
}

type TelegramConfig struct {
	Token       string `mapstructure:"token"`
	AdminUserID int64  `mapstructure:"admin_user_id" validate:"gte=0"`
	// Plan is the plan new chats start with.
	Plan string `mapstructure:"plan" validate:"oneof=free premium"`
	// UserIDPrefix is prepended to the chat id to form the service user id.
	UserIDPrefix string `mapstructure:"user_id_prefix"`
	// SessionStore selects where widget sessions are kept.
	SessionStore string `mapstructure:"session_store" validate:"oneof=memory redis"`

	BotInfo *models.User `mapstructure:"-"`
}

// MessagesConfig holds the texts sent by the Telegram front end and shown by
// the widget.
type MessagesConfig struct {
	Welcome              string `mapstructure:"welcome" validate:"required"`
	Help                 string `mapstructure:"help" validate:"required"`
	ErrorUnauthorizedMsg string `mapstructure:"error_unauthorized" validate:"required"`
	ErrorGeneralMsg      string `mapstructure:"error_general" validate:"required"`
	RateLimitedMsg       string `mapstructure:"rate_limited" validate:"required"`
	InvalidJSONMsg       string `mapstructure:"invalid_json" validate:"required"`
	UsagePlanMsg         string `mapstructure:"usage_plan" validate:"required"`
	UsageUserIDMsg       string `mapstructure:"usage_user_id" validate:"required"`
	PlanUpdatedMsg       string `mapstructure:"plan_updated" validate:"required"`
	UserIDUpdatedMsg     string `mapstructure:"user_id_updated" validate:"required"`
	HistoryEmptyMsg      string `mapstructure:"history_empty" validate:"required"`
	HealthOKMsg          string `mapstructure:"health_ok" validate:"required"`
	HealthDownMsg        string `mapstructure:"health_down" validate:"required"`

	UpgradeNotice        string `mapstructure:"upgrade_notice" validate:"required"`
	PremiumOnly          string `mapstructure:"premium_only" validate:"required"`
	GenericError         string `mapstructure:"generic_error" validate:"required"`
	AlertError           string `mapstructure:"alert_error" validate:"required"`
	RecommendationsTitle string `mapstructure:"recommendations_title" validate:"required"`
	EmptyRecommendations string `mapstructure:"empty_recommendations" validate:"required"`
	DisclaimerLabel      string `mapstructure:"disclaimer_label" validate:"required"`
	ProductsTitle        string `mapstructure:"products_title" validate:"required"`
}

// CatalogConfig selects the product catalog used for recommendations.
type CatalogConfig struct {
	Source string `mapstructure:"source" validate:"oneof=static sql"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db" validate:"gte=0"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
	TTL         time.Duration `mapstructure:"ttl" validate:"gte=0"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" validate:"gte=0"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gte=0"`
	Enabled     bool          `mapstructure:"enabled"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

// SchedulerConfig maps task names to their schedule.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// RateLimitConfig bounds the updates handled per chat.
type RateLimitConfig struct {
	PerSecond float64 `mapstructure:"per_second" validate:"gte=0"`
	Burst     int     `mapstructure:"burst" validate:"gte=0"`
}

// Validate checks the configuration against its struct tags and the
// cross-section rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if c.Telegram.SessionStore == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("%w: telegram.session_store is redis but redis.enabled is false", ErrValidation)
	}
	return nil
}

// ValidateBot checks the settings only the Telegram front end needs.
func (c *Config) ValidateBot() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("%w: telegram.token is required", ErrValidation)
	}
	return nil
}
