// CLAUDE:SUMMARY Defines pinmark config structs and parses YAML configuration files with defaults.
// Package config handles pinmark configuration from YAML files.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level pinmark configuration.
type Config struct {
	Browser  BrowserConfig  `yaml:"browser"`
	Debounce DebounceConfig `yaml:"debounce"`
	Resolve  ResolveConfig  `yaml:"resolve"`
	Queue    QueueConfig    `yaml:"queue"`
	Capture  CaptureConfig  `yaml:"capture"`
}

// BrowserConfig controls the live-page session.
type BrowserConfig struct {
	Remote          string        `yaml:"remote"`
	Stealth         bool          `yaml:"stealth"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout"`
}

// DebounceConfig controls viewport-event batching.
type DebounceConfig struct {
	Window    time.Duration `yaml:"window"`
	MaxBuffer int           `yaml:"max_buffer"`
}

// ResolveConfig names the page elements resolution measures.
type ResolveConfig struct {
	// ImageCandidates are tried in order to locate the rendering element
	// of static content inside its container.
	ImageCandidates  []string `yaml:"image_candidates"`
	WrapperSelector  string   `yaml:"wrapper_selector"`
	VideoSelector    string   `yaml:"video_selector"`
	TimelineSelector string   `yaml:"timeline_selector"`
}

// QueueConfig controls the optimistic write queue.
type QueueConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	DeferDelay  time.Duration `yaml:"defer_delay"`
	// JournalPath enables the SQLite journal; empty keeps ops in memory.
	JournalPath string `yaml:"journal_path"`
}

// CaptureConfig controls target creation.
type CaptureConfig struct {
	Snippets *bool `yaml:"snippets"`
	Previews bool  `yaml:"previews"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}
	if c.Debounce.Window <= 0 {
		c.Debounce.Window = 50 * time.Millisecond
	}
	if c.Debounce.MaxBuffer <= 0 {
		c.Debounce.MaxBuffer = 500
	}
	if len(c.Resolve.ImageCandidates) == 0 {
		c.Resolve.ImageCandidates = []string{"img", "canvas", "svg"}
	}
	if c.Resolve.WrapperSelector == "" {
		c.Resolve.WrapperSelector = "iframe, embed, object"
	}
	if c.Resolve.VideoSelector == "" {
		c.Resolve.VideoSelector = "video"
	}
	if c.Resolve.TimelineSelector == "" {
		c.Resolve.TimelineSelector = `input[type="range"], progress`
	}
	if c.Queue.MaxAttempts <= 0 {
		c.Queue.MaxAttempts = 3
	}
	if c.Queue.RetryDelay <= 0 {
		c.Queue.RetryDelay = 2 * time.Second
	}
	if c.Queue.DeferDelay <= 0 {
		c.Queue.DeferDelay = 5 * time.Second
	}
}
