package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/tinyland-inc/relaybot/pkg/rules"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers, so
// source_channels can contain both "-1001234567890" and -1001234567890.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	// Try []string first
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	// Try []interface{} to handle mixed types
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// Config is the persisted bot configuration. Administrative commands mutate
// it through the Store; the forwarding pipeline only ever reads snapshots.
type Config struct {
	BotToken          string              `env:"RELAYBOT_BOT_TOKEN"          json:"bot_token"`
	WebhookURL        string              `env:"RELAYBOT_WEBHOOK_URL"        json:"webhook_url"`
	WebhookPort       int                 `env:"RELAYBOT_WEBHOOK_PORT"       json:"webhook_port"`
	AdminUsers        []int64             `env:"RELAYBOT_ADMIN_USERS"        json:"admin_users"`
	SourceChannels    FlexibleStringSlice `env:"RELAYBOT_SOURCE_CHANNELS"    json:"source_channels"`
	TargetChannel     string              `env:"RELAYBOT_TARGET_CHANNEL"     json:"target_channel"`
	Replacements      rules.Ruleset       `json:"replacements"`
	ForwardingEnabled bool                `env:"RELAYBOT_FORWARDING_ENABLED" json:"forwarding_enabled"`
}

func DefaultConfig() *Config {
	return &Config{
		WebhookPort:    8443,
		AdminUsers:     []int64{},
		SourceChannels: FlexibleStringSlice{},
		Replacements:   rules.NewRuleset(),
	}
}

// LoadConfig reads the config file at path, falling back to defaults when
// the file does not exist, then applies RELAYBOT_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Saved configs from older versions may miss individual rule maps.
	if cfg.Replacements.Links == nil {
		cfg.Replacements.Links = make(map[string]string)
	}
	if cfg.Replacements.Words == nil {
		cfg.Replacements.Words = make(map[string]string)
	}
	if cfg.Replacements.Sentences == nil {
		cfg.Replacements.Sentences = make(map[string]string)
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}
