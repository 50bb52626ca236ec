package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ErrValidation marks configuration that loaded but is not usable.
var ErrValidation = errors.New("invalid configuration")

// EnvPrefix is the prefix of environment overrides, e.g.
// LONGOPASS_API_BASE_URL for api.base_url.
const EnvPrefix = "LONGOPASS"

// LoadConfig loads and validates configuration from:
//  1. Default values
//  2. the YAML file at path, when it exists
//  3. LONGOPASS_* environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", false)

	v.SetDefault("api.base_url", "https://longopass-ai.onrender.com")
	v.SetDefault("api.plan", "free")
	v.SetDefault("api.user_id", "")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.auto_start_chat", false)
	v.SetDefault("api.circuit_breaker.enabled", true)
	v.SetDefault("api.circuit_breaker.max_failures", 5)
	v.SetDefault("api.circuit_breaker.open_timeout", "30s")

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_user_id", 0)
	v.SetDefault("telegram.plan", "free")
	v.SetDefault("telegram.user_id_prefix", "tg_")
	v.SetDefault("telegram.session_store", "memory")

	v.SetDefault("messages.welcome", "👋 Welcome to Longopass AI! Send any message to chat, or use /help to see what I can do.")
	v.SetDefault("messages.help", strings.Join([]string{
		"Longopass AI commands:",
		"/open - open the chat",
		"/close - close the chat",
		"/quiz <json> - analyze quiz answers",
		"/lab <json array> - analyze lab results",
		"/history - show this conversation",
		"/health - check the AI service",
		"/plan <free|premium> - change plan (admin)",
		"/userid <id> - change user id (admin)",
		"Any other message is sent to the chat.",
	}, "\n"))
	v.SetDefault("messages.error_unauthorized", "🚫 You are not authorized to use this command.")
	v.SetDefault("messages.error_general", "❌ An error occurred. Please try again later.")
	v.SetDefault("messages.rate_limited", "⏳ Too many messages. Please slow down.")
	v.SetDefault("messages.invalid_json", "ℹ️ Could not read the data. Please send valid JSON.")
	v.SetDefault("messages.usage_plan", "ℹ️ Usage: /plan <free|premium>")
	v.SetDefault("messages.usage_user_id", "ℹ️ Usage: /userid <id>")
	v.SetDefault("messages.plan_updated", "✅ Plan updated.")
	v.SetDefault("messages.user_id_updated", "✅ User id updated. A new conversation will be started.")
	v.SetDefault("messages.history_empty", "ℹ️ No conversation yet.")
	v.SetDefault("messages.health_ok", "✅ AI service is up.")
	v.SetDefault("messages.health_down", "⚠️ AI service is unreachable.")

	v.SetDefault("messages.upgrade_notice", "Chat is available to premium users only. Please upgrade your account.")
	v.SetDefault("messages.premium_only", "Chat is available to premium users only.")
	v.SetDefault("messages.generic_error", "Something went wrong.")
	v.SetDefault("messages.alert_error", "Error")
	v.SetDefault("messages.recommendations_title", "AI recommendations:")
	v.SetDefault("messages.empty_recommendations", "(none)")
	v.SetDefault("messages.disclaimer_label", "Disclaimer:")
	v.SetDefault("messages.products_title", "Matching products:")

	v.SetDefault("catalog.source", "static")

	v.SetDefault("database.path", "longopass.db")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "longopass:session:")
	v.SetDefault("redis.ttl", "720h")
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.timeout", "3s")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("scheduler.tasks.health_check.enabled", true)
	v.SetDefault("scheduler.tasks.health_check.schedule", "0 */5 * * * *")
	v.SetDefault("scheduler.tasks.sql_maintenance.enabled", false)
	v.SetDefault("scheduler.tasks.sql_maintenance.schedule", "0 0 4 * * *")

	v.SetDefault("rate_limit.per_second", 1.0)
	v.SetDefault("rate_limit.burst", 5)
}
