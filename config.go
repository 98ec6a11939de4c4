package main

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultServerURL = "http://localhost:8000"
const defaultRefreshSeconds = 60

type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	// DefaultServerURL is used when no base URL has been saved yet.
	DefaultServerURL string `yaml:"default_server_url"`

	DBPath string `yaml:"db_path"`

	RefreshSeconds             int `yaml:"refresh_seconds"`
	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`

	// Optional scheduled batch run against a server-side folder.
	BatchSchedule   string  `yaml:"batch_schedule"` // 5-field cron expression
	BatchFolderPath string  `yaml:"batch_folder_path"`
	BatchThreshold  float64 `yaml:"batch_threshold"`

	// Optional Slack escalation for urgent alerts.
	SlackBotToken       string `yaml:"slack_bot_token"`
	SlackAlertChannelID string `yaml:"slack_alert_channel_id"`

	// Optional LLM-generated result explanations.
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	ExplainModel    string `yaml:"explain_model"`

	Timezone string `yaml:"timezone"`
	WardName string `yaml:"ward_name"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	envOverride(&cfg.DefaultServerURL, "DEFAULT_SERVER_URL")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverrideInt(&cfg.RefreshSeconds, "REFRESH_SECONDS")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")
	envOverride(&cfg.BatchSchedule, "BATCH_SCHEDULE")
	envOverride(&cfg.BatchFolderPath, "BATCH_FOLDER_PATH")
	envOverrideFloat(&cfg.BatchThreshold, "BATCH_THRESHOLD")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAlertChannelID, "SLACK_ALERT_CHANNEL_ID")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.ExplainModel, "EXPLAIN_MODEL")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverride(&cfg.WardName, "WARD_NAME")

	// Defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8090"
	}
	if cfg.DefaultServerURL == "" {
		cfg.DefaultServerURL = defaultServerURL
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./wardview.db"
	}
	if cfg.RefreshSeconds == 0 {
		cfg.RefreshSeconds = defaultRefreshSeconds
	}
	if cfg.BatchThreshold == 0 {
		cfg.BatchThreshold = 0.5
	}
	if cfg.WardName == "" {
		cfg.WardName = "Ward Dashboard"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	// Validate
	if cfg.RefreshSeconds < 5 {
		log.Fatalf("invalid refresh_seconds '%d': must be >= 5", cfg.RefreshSeconds)
	}
	if cfg.BatchThreshold < 0.2 || cfg.BatchThreshold > 0.8 {
		log.Fatalf("invalid batch_threshold '%.2f': must be between 0.20 and 0.80", cfg.BatchThreshold)
	}
	if !strings.HasPrefix(cfg.DefaultServerURL, "http://") && !strings.HasPrefix(cfg.DefaultServerURL, "https://") {
		log.Fatalf("invalid default_server_url '%s': must start with http:// or https://", cfg.DefaultServerURL)
	}
	if cfg.SlackAlertChannelID != "" && cfg.SlackBotToken == "" {
		log.Fatalf("slack_bot_token is required when slack_alert_channel_id is set")
	}
	if cfg.BatchSchedule != "" && cfg.BatchFolderPath == "" {
		log.Fatalf("batch_folder_path is required when batch_schedule is set")
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Timezone = time.Local.String()
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		time.Local = loc
	}

	return cfg
}

// RefreshInterval is the auto-refresh polling period for the live view.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshSeconds) * time.Second
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackAlertChannelID != ""
}

func (c Config) ExplainConfigured() bool {
	return c.AnthropicAPIKey != ""
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
