// Package config loads the bridge configuration from JSON. Every field is
// optional: omitted fields fall back to the defaults documented on the
// Get* accessors, so partial files are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/facelink/internal/livelink/parse"
	"github.com/banshee-data/facelink/internal/remap"
	"github.com/banshee-data/facelink/internal/smoothing"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/facelink.defaults.json"

// Defaults used when a field is absent.
const (
	DefaultPort           = 11111
	DefaultUpdateInterval = 10 * time.Millisecond
	DefaultStatsInterval  = 30 * time.Second
	DefaultDebugListen    = "localhost:8082"
	DefaultHistorySize    = 600
)

// Config is the root configuration.
type Config struct {
	// Capture socket
	Port        *int    `json:"port,omitempty"` // capture apps default to 11111; older builds used 42069
	Host        *string `json:"host,omitempty"`
	RcvBuf      *int    `json:"rcvbuf,omitempty"`
	ForwardAddr *string `json:"forward_addr,omitempty"` // host:port relay target, empty disables

	// Pipeline
	Vocabulary     *string          `json:"vocabulary,omitempty"` // "v1" or "v2"
	EyeEnabled     *bool            `json:"eye_enabled,omitempty"`
	LipEnabled     *bool            `json:"lip_enabled,omitempty"`
	UpdateInterval *string          `json:"update_interval,omitempty"` // duration string like "10ms"
	Smoothing      *SmoothingConfig `json:"smoothing,omitempty"`

	// Consumers
	DebugListen   *string `json:"debug_listen,omitempty"`
	GRPCListen    *string `json:"grpc_listen,omitempty"` // empty disables the pose stream
	HistorySize   *int    `json:"history_size,omitempty"`
	StatsInterval *string `json:"stats_interval,omitempty"`
}

// SmoothingConfig configures the output filters. Enabled, Speed and Decay
// apply to every channel; per-channel entries are keyed by output channel
// name, e.g. "eye.left.openness" or "lip.JawOpen", and override them.
type SmoothingConfig struct {
	Enabled  *bool                      `json:"enabled,omitempty"`
	Speed    *float64                   `json:"speed,omitempty"`
	Decay    *float64                   `json:"decay,omitempty"`
	Channels map[string]SmoothingParams `json:"channels,omitempty"`
}

// SmoothingParams overrides the filter of one channel. Nil fields inherit
// the smoothing-wide value.
type SmoothingParams struct {
	Enabled *bool    `json:"enabled,omitempty"`
	Speed   *float64 `json:"speed,omitempty"`
	Decay   *float64 `json:"decay,omitempty"`
}

// Helper functions to create pointers
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptyConfig returns a Config with all fields set to nil.
func EmptyConfig() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file. The file must have a .json
// extension and be under 1MB.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upwards from
// the current directory. Panics if the file cannot be loaded, intended
// for test setup.
func MustLoadDefaultConfig() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/tools/capture-analyse/
	}
	for _, path := range candidates {
		if cfg, err := LoadConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.Port != nil && (*c.Port < 1 || *c.Port > 65535) {
		return fmt.Errorf("port must be between 1 and 65535, got %d", *c.Port)
	}
	if c.RcvBuf != nil && *c.RcvBuf < 0 {
		return fmt.Errorf("rcvbuf must be non-negative, got %d", *c.RcvBuf)
	}
	if c.HistorySize != nil && *c.HistorySize < 0 {
		return fmt.Errorf("history_size must be non-negative, got %d", *c.HistorySize)
	}
	if c.Vocabulary != nil {
		if _, err := parse.VocabularyByName(*c.Vocabulary); err != nil {
			return err
		}
	}

	for name, v := range map[string]*string{
		"update_interval": c.UpdateInterval,
		"stats_interval":  c.StatsInterval,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, d)
		}
	}

	if s := c.Smoothing; s != nil {
		if s.Speed != nil && *s.Speed < 0 {
			return fmt.Errorf("smoothing.speed must be non-negative, got %f", *s.Speed)
		}
		if s.Decay != nil && (*s.Decay < 0 || *s.Decay >= 1) {
			return fmt.Errorf("smoothing.decay must be in [0, 1), got %f", *s.Decay)
		}
		known := make(map[string]bool)
		for _, name := range remap.ChannelNames() {
			known[name] = true
		}
		for ch, p := range s.Channels {
			if !known[ch] {
				return fmt.Errorf("smoothing.channels[%q]: unknown output channel", ch)
			}
			if p.Speed != nil && *p.Speed < 0 {
				return fmt.Errorf("smoothing.channels[%q]: speed must be non-negative, got %f", ch, *p.Speed)
			}
			if p.Decay != nil && (*p.Decay < 0 || *p.Decay >= 1) {
				return fmt.Errorf("smoothing.channels[%q]: decay must be in [0, 1), got %f", ch, *p.Decay)
			}
		}
	}

	return nil
}

// GetPort returns the capture port or the default.
func (c *Config) GetPort() int {
	if c.Port == nil {
		return DefaultPort
	}
	return *c.Port
}

// GetHost returns the bind host; empty binds all interfaces.
func (c *Config) GetHost() string {
	if c.Host == nil {
		return ""
	}
	return *c.Host
}

// GetRcvBuf returns the socket receive buffer size (0 keeps the OS default).
func (c *Config) GetRcvBuf() int {
	if c.RcvBuf == nil {
		return 0
	}
	return *c.RcvBuf
}

// GetForwardAddr returns the relay target or "".
func (c *Config) GetForwardAddr() string {
	if c.ForwardAddr == nil {
		return ""
	}
	return *c.ForwardAddr
}

// GetVocabularyName returns the vocabulary version or the default.
func (c *Config) GetVocabularyName() string {
	if c.Vocabulary == nil || *c.Vocabulary == "" {
		return parse.DefaultVersion
	}
	return *c.Vocabulary
}

// GetVocabulary resolves the configured vocabulary.
func (c *Config) GetVocabulary() (*parse.Vocabulary, error) {
	return parse.VocabularyByName(c.GetVocabularyName())
}

// GetEyeEnabled returns the eye_enabled value or the default (true).
func (c *Config) GetEyeEnabled() bool {
	if c.EyeEnabled == nil {
		return true
	}
	return *c.EyeEnabled
}

// GetLipEnabled returns the lip_enabled value or the default (true).
func (c *Config) GetLipEnabled() bool {
	if c.LipEnabled == nil {
		return true
	}
	return *c.LipEnabled
}

// GetUpdateInterval returns the loop interval or the default.
func (c *Config) GetUpdateInterval() time.Duration {
	return durationOr(c.UpdateInterval, DefaultUpdateInterval)
}

// GetStatsInterval returns the stats logging interval or the default.
func (c *Config) GetStatsInterval() time.Duration {
	return durationOr(c.StatsInterval, DefaultStatsInterval)
}

func durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

// GetDebugListen returns the debug HTTP address or the default.
func (c *Config) GetDebugListen() string {
	if c.DebugListen == nil {
		return DefaultDebugListen
	}
	return *c.DebugListen
}

// GetGRPCListen returns the pose stream address or "" when disabled.
func (c *Config) GetGRPCListen() string {
	if c.GRPCListen == nil {
		return ""
	}
	return *c.GRPCListen
}

// GetHistorySize returns the chart history length or the default.
func (c *Config) GetHistorySize() int {
	if c.HistorySize == nil {
		return DefaultHistorySize
	}
	return *c.HistorySize
}

// GetSmoothingEnabled reports whether output smoothing is on for channels
// without their own enabled flag (default off).
func (c *Config) GetSmoothingEnabled() bool {
	if c.Smoothing == nil || c.Smoothing.Enabled == nil {
		return false
	}
	return *c.Smoothing.Enabled
}

// SmoothingBank builds the filter bank, or nil when no channel is smoothed.
// Channels left off are bypassed by the bank.
func (c *Config) SmoothingBank() *smoothing.Bank {
	if c.Smoothing == nil {
		return nil
	}
	all := c.GetSmoothingEnabled()
	defaults := smoothing.DefaultParams
	if c.Smoothing.Speed != nil {
		defaults.Speed = float32(*c.Smoothing.Speed)
	}
	if c.Smoothing.Decay != nil {
		defaults.Decay = float32(*c.Smoothing.Decay)
	}
	defaults.Bypass = !all

	smoothed := all
	overrides := make(map[string]smoothing.Params, len(c.Smoothing.Channels))
	for name, p := range c.Smoothing.Channels {
		params := defaults
		if p.Speed != nil {
			params.Speed = float32(*p.Speed)
		}
		if p.Decay != nil {
			params.Decay = float32(*p.Decay)
		}
		if p.Enabled != nil {
			params.Bypass = !*p.Enabled
		}
		smoothed = smoothed || !params.Bypass
		overrides[name] = params
	}
	if !smoothed {
		return nil
	}
	return smoothing.NewBank(defaults, overrides)
}
