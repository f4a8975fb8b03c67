// Package config handles application configuration from an optional YAML
// file and environment variables.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"card_bot/internal/catalog"
	"card_bot/internal/model"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverJSON   = "json"
)

var postTimeRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// Config holds the application configuration.
type Config struct {
	BotToken      string `yaml:"bot_token"`
	ChannelID     int64  `yaml:"channel_id"`
	Timezone      string `yaml:"timezone"`
	NoRepeatDays  int    `yaml:"no_repeat_days"`
	PostTime      string `yaml:"post_time"`
	CardsPath     string `yaml:"cards_path"`
	CardsFormat   string `yaml:"cards_format"`
	StorageDriver string `yaml:"storage_driver"`
	DatabasePath  string `yaml:"database_path"`
	StatePath     string `yaml:"state_path"`
	LogLevel      string `yaml:"log_level"`
}

// Load reads the YAML file named by CONFIG_PATH, if any, then applies
// environment overrides and defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	daysSet := false

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // operator-provided path
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
		// 0 is a valid window, so presence is read separately.
		var present struct {
			NoRepeatDays *int `yaml:"no_repeat_days"`
		}
		if err := yaml.Unmarshal(data, &present); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
		daysSet = present.NoRepeatDays != nil
	}

	envDays, err := applyEnv(cfg)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg, daysSet || envDays)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides cfg from the environment and reports whether
// NO_REPEAT_DAYS was set.
func applyEnv(cfg *Config) (bool, error) {
	setString(&cfg.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.Timezone, "TZ")
	setString(&cfg.PostTime, "POST_TIME")
	setString(&cfg.CardsPath, "CARDS_PATH")
	setString(&cfg.CardsFormat, "CARDS_FORMAT")
	setString(&cfg.StorageDriver, "STORAGE_DRIVER")
	setString(&cfg.DatabasePath, "DATABASE_PATH")
	setString(&cfg.StatePath, "STATE_PATH")
	setString(&cfg.LogLevel, "LOG_LEVEL")

	if raw := os.Getenv("CHANNEL_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return false, fmt.Errorf("invalid CHANNEL_ID %q: %w", raw, err)
		}
		cfg.ChannelID = id
	}
	raw := os.Getenv("NO_REPEAT_DAYS")
	if raw == "" {
		return false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return false, fmt.Errorf("invalid NO_REPEAT_DAYS %q: %w", raw, err)
	}
	cfg.NoRepeatDays = n
	return true, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config, daysSet bool) {
	if cfg.Timezone == "" {
		cfg.Timezone = "Europe/Paris"
	}
	if !daysSet {
		cfg.NoRepeatDays = 60
	}
	if cfg.PostTime == "" {
		cfg.PostTime = "10:00"
	}
	if cfg.CardsPath == "" {
		cfg.CardsPath = "./cards.txt"
	}
	if cfg.CardsFormat == "" {
		cfg.CardsFormat = catalog.FormatText
	}
	if cfg.StorageDriver == "" {
		cfg.StorageDriver = DriverSQLite
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "./data/bot.db"
	}
	if cfg.StatePath == "" {
		cfg.StatePath = "./state.json"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func validate(cfg *Config) error {
	if cfg.BotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.ChannelID == 0 {
		return fmt.Errorf("CHANNEL_ID is required")
	}
	if cfg.NoRepeatDays < 0 {
		return fmt.Errorf("NO_REPEAT_DAYS cannot be negative, got %d", cfg.NoRepeatDays)
	}
	if cfg.NoRepeatDays >= model.RetentionDays {
		return fmt.Errorf("NO_REPEAT_DAYS must be below %d, got %d", model.RetentionDays, cfg.NoRepeatDays)
	}
	if !postTimeRegex.MatchString(cfg.PostTime) {
		return fmt.Errorf("POST_TIME must be in HH:MM format (00:00-23:59), got %q", cfg.PostTime)
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	switch cfg.CardsFormat {
	case catalog.FormatText, catalog.FormatFeed:
	default:
		return fmt.Errorf("CARDS_FORMAT must be %q or %q, got %q", catalog.FormatText, catalog.FormatFeed, cfg.CardsFormat)
	}
	switch cfg.StorageDriver {
	case DriverSQLite, DriverJSON:
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverJSON, cfg.StorageDriver)
	}
	return nil
}

// Location returns the configured time zone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// PostClock returns the configured daily post hour and minute.
func (c *Config) PostClock() (hour, minute int) {
	m := postTimeRegex.FindStringSubmatch(c.PostTime)
	if len(m) != 3 {
		return 10, 0
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	return hour, minute
}

// IsTargetChannel reports whether chatID is the configured channel.
func (c *Config) IsTargetChannel(chatID int64) bool {
	return chatID == c.ChannelID
}
