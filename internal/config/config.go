// Package config loads ~/.config/ccmeter/settings.json and resolves the
// effective settings for a command run: CLI flag beats the per-command
// section, which beats the defaults section, which beats the built-in
// fallback.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Section is one command's settings block. Zero values mean unset so the
// next layer applies.
type Section struct {
	Timezone   string `json:"timezone,omitempty"`
	WeekStart  string `json:"week_start,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Order      string `json:"order,omitempty"`
	Since      string `json:"since,omitempty"`
	Until      string `json:"until,omitempty"`
	Project    string `json:"project,omitempty"`
	Instance   string `json:"instance,omitempty"`
	Instances  *bool  `json:"instances,omitempty"`
	Breakdown  *bool  `json:"breakdown,omitempty"`
	RecentDays int    `json:"recent_days,omitempty"`
	TokenLimit string `json:"token_limit,omitempty"`
}

type PricingConfig struct {
	Path    string `json:"path,omitempty"`
	Offline bool   `json:"offline,omitempty"`
}

type LiveConfig struct {
	TickSeconds         int `json:"tick_seconds"`
	StallTimeoutSeconds int `json:"stall_timeout_seconds"`
}

// BlockConfig shapes billing-block grouping, as opposed to the "blocks"
// Section which only styles that command's output.
type BlockConfig struct {
	DurationHours int    `json:"duration_hours"`
	Anchor        string `json:"anchor"` // first-event or grid
}

type SessionConfig struct {
	IdleTimeoutHours int `json:"idle_timeout_hours"`
}

type Config struct {
	Defaults   Section       `json:"defaults"`
	Daily      Section       `json:"daily"`
	Weekly     Section       `json:"weekly"`
	Monthly    Section       `json:"monthly"`
	Sessions   Section       `json:"sessions"`
	Blocks     Section       `json:"blocks"`
	Statusline Section       `json:"statusline"`
	DataDirs   []string      `json:"data_dirs,omitempty"`
	Pricing    PricingConfig `json:"pricing"`
	Live       LiveConfig    `json:"live"`
	Block      BlockConfig   `json:"block"`
	Session    SessionConfig `json:"session"`
}

func DefaultConfig() Config {
	return Config{
		Defaults: Section{
			WeekStart: "monday",
			Mode:      "auto",
			Order:     "desc",
		},
		Blocks: Section{RecentDays: 3},
		Live: LiveConfig{
			TickSeconds:         5,
			StallTimeoutSeconds: 10,
		},
		Block:   BlockConfig{DurationHours: 5, Anchor: "first-event"},
		Session: SessionConfig{IdleTimeoutHours: 5},
	}
}

func ConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "ccmeter")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ccmeter")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "settings.json")
}

func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Live.TickSeconds <= 0 {
		cfg.Live.TickSeconds = 5
	}
	if cfg.Live.StallTimeoutSeconds <= 0 {
		cfg.Live.StallTimeoutSeconds = 10
	}
	if cfg.Block.DurationHours <= 0 {
		cfg.Block.DurationHours = 5
	}
	if cfg.Session.IdleTimeoutHours <= 0 {
		cfg.Session.IdleTimeoutHours = 5
	}

	return cfg, nil
}

func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

func SaveTo(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// section returns the override block for one command name.
func (c Config) section(command string) Section {
	switch command {
	case "daily":
		return c.Daily
	case "weekly":
		return c.Weekly
	case "monthly":
		return c.Monthly
	case "sessions":
		return c.Sessions
	case "blocks":
		return c.Blocks
	case "statusline":
		return c.Statusline
	default:
		return Section{}
	}
}
