// Package config reads the skill's settings from MEAL_SKILL_* environment variables.
package config

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the skill reads.
const EnvPrefix = "MEAL_SKILL"

// Config holds the configuration for the skill and its hosts.
type Config struct {
	DataDir              string
	MealsFile            string
	DatabasePath         string
	ListConfirmThreshold int
	MatchMinConfidence   float64
	PromptTimeout        time.Duration
	LogLevel             string
	LogFormat            string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64
	Port                   string
}

// NewFromEnv builds a Config from MEAL_SKILL_* environment variables,
// filling in defaults for anything unset.
func NewFromEnv() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("data_dir", "data")
	v.SetDefault("meals_file", "meals.json")
	v.SetDefault("list_confirm_threshold", 15)
	v.SetDefault("match_min_confidence", 0.0)
	v.SetDefault("prompt_timeout", "30s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "fmt")
	v.SetDefault("port", "8080")

	cfg := &Config{
		DataDir:              v.GetString("data_dir"),
		MealsFile:            v.GetString("meals_file"),
		DatabasePath:         v.GetString("database_path"),
		ListConfirmThreshold: v.GetInt("list_confirm_threshold"),
		MatchMinConfidence:   v.GetFloat64("match_min_confidence"),
		PromptTimeout:        v.GetDuration("prompt_timeout"),
		LogLevel:             v.GetString("log_level"),
		LogFormat:            v.GetString("log_format"),
		TelegramBotToken:     v.GetString("telegram_bot_token"),
		TelegramWebhookURL:   v.GetString("telegram_webhook_url"),
		Port:                 v.GetString("port"),
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.DataDir, "meal-skill.db")
	}
	if cfg.ListConfirmThreshold < 0 {
		return nil, errors.Errorf("%s_LIST_CONFIRM_THRESHOLD must not be negative", EnvPrefix)
	}
	if cfg.MatchMinConfidence < 0 || cfg.MatchMinConfidence > 1 {
		return nil, errors.Errorf("%s_MATCH_MIN_CONFIDENCE must be between 0 and 1", EnvPrefix)
	}
	if cfg.PromptTimeout <= 0 {
		return nil, errors.Errorf("%s_PROMPT_TIMEOUT must be positive", EnvPrefix)
	}

	ids, err := parseUserIDs(v.GetString("telegram_allow_user_ids"))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s_TELEGRAM_ALLOW_USER_IDS", EnvPrefix)
	}
	cfg.TelegramAllowedUserIDs = ids

	if admin := v.GetString("telegram_admin_id"); admin != "" {
		id, err := strconv.ParseInt(admin, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid %s_TELEGRAM_ADMIN_ID", EnvPrefix)
		}
		cfg.AdminTelegramID = id
	}

	return cfg, nil
}

// ValidateTelegram reports the first Telegram setting the bot cannot run without.
func (c *Config) ValidateTelegram() error {
	if c.TelegramBotToken == "" {
		return errors.Errorf("%s_TELEGRAM_BOT_TOKEN environment variable not set", EnvPrefix)
	}
	if c.TelegramWebhookURL == "" {
		return errors.Errorf("%s_TELEGRAM_WEBHOOK_URL environment variable not set", EnvPrefix)
	}
	if len(c.TelegramAllowedUserIDs) == 0 {
		return errors.Errorf("%s_TELEGRAM_ALLOW_USER_IDS environment variable not set", EnvPrefix)
	}
	return nil
}

// MealsPath is the full path of the meal document.
func (c *Config) MealsPath() string {
	return filepath.Join(c.DataDir, c.MealsFile)
}

func parseUserIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
