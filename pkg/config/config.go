// Package config loads deskpilot runtime configuration from a YAML file
// with environment variable fallbacks for credentials.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML scalars like
// "1500ms" or "2s", or from integer nanoseconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	return fmt.Errorf("invalid duration value")
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the daemon configuration.
type Config struct {
	// Credential buckets, one per generation tier. Keys may also be supplied
	// as comma-separated environment variables (GROQ_KEYS_70B, GROQ_KEYS_8B,
	// GROQ_KEYS for the general bucket).
	Keys KeysConfig `yaml:"keys"`

	// Provider credentials for transcription, vision and OCR.
	OpenAIKey string `yaml:"openai_key"`
	GeminiKey string `yaml:"gemini_key"`
	OCRKey    string `yaml:"ocr_key"`

	// Model configuration
	Models ModelsConfig `yaml:"models"`

	// Audio pipeline tuning
	Audio AudioConfig `yaml:"audio"`

	// Pipeline heuristics (duplicate windows, cooldowns, router threshold)
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Persistence for conversation turns
	Store StoreConfig `yaml:"store"`

	// Gateway / observability listeners
	GatewayAddr string `yaml:"gateway_addr"`
	MetricsPort int    `yaml:"metrics_port"`

	// SessionTTL prunes sessions idle longer than this (0 = never).
	SessionTTL Duration `yaml:"session_ttl"`
}

// KeysConfig holds credential buckets keyed by tier.
type KeysConfig struct {
	Simple  []string `yaml:"simple"`
	Complex []string `yaml:"complex"`
	General []string `yaml:"general"`
}

// ModelsConfig names the model used for each capability.
type ModelsConfig struct {
	Simple  string `yaml:"simple"`
	Complex string `yaml:"complex"`
	Vision  string `yaml:"vision"`
	// Transcription is the fast/free transcription model; the fallback is
	// the paid one tried when the primary fails or returns nothing.
	Transcription         string `yaml:"transcription"`
	TranscriptionFallback string `yaml:"transcription_fallback"`
}

// AudioConfig holds ingest and silence detection tuning.
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`

	// RMSThreshold is the 16-bit PCM energy below which a flushed utterance
	// is treated as silence and discarded.
	RMSThreshold float64 `yaml:"rms_threshold"`

	// SilenceThreshold is how long ingest must go quiet before the buffer
	// flushes as a completed utterance.
	SilenceThreshold Duration `yaml:"silence_threshold"`

	// MinUtterance / MaxBuffer bound the flushable utterance length.
	MinUtterance Duration `yaml:"min_utterance"`
	MaxBuffer    Duration `yaml:"max_buffer"`
}

// PipelineConfig holds noise filter and router heuristics.
type PipelineConfig struct {
	DuplicateWindow    Duration `yaml:"duplicate_window"`
	ScreenshotCooldown Duration `yaml:"screenshot_cooldown"`
	RouterWordLimit    int      `yaml:"router_word_limit"`
	GenerationTimeout  Duration `yaml:"generation_timeout"`
	TranscribeTimeout  Duration `yaml:"transcribe_timeout"`
	OCRTimeout         Duration `yaml:"ocr_timeout"`
	OCREnabled         bool     `yaml:"ocr_enabled"`
}

// StoreConfig selects the conversation turn store.
type StoreConfig struct {
	// Backend is "memory" or "redis".
	Backend string `yaml:"backend"`
	Redis   struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// Load reads configuration from a YAML file and applies defaults and
// environment fallbacks. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to defaults
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Models.Simple == "" {
		c.Models.Simple = "llama-3.1-8b-instant"
	}
	if c.Models.Complex == "" {
		c.Models.Complex = "llama-3.3-70b-versatile"
	}
	if c.Models.Vision == "" {
		c.Models.Vision = "gpt-4o"
	}
	if c.Models.Transcription == "" {
		c.Models.Transcription = "whisper-large-v3"
	}
	if c.Models.TranscriptionFallback == "" {
		c.Models.TranscriptionFallback = "whisper-1"
	}

	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = 24000
	}
	if c.Audio.Channels == 0 {
		c.Audio.Channels = 1
	}
	if c.Audio.RMSThreshold == 0 {
		c.Audio.RMSThreshold = 1000
	}
	// The silence debounce has a hard floor. Values below it cause flushes
	// mid-sentence, so they are raised rather than rejected.
	if c.Audio.SilenceThreshold < Duration(1500*time.Millisecond) {
		c.Audio.SilenceThreshold = Duration(1500 * time.Millisecond)
	}
	if c.Audio.MinUtterance == 0 {
		c.Audio.MinUtterance = Duration(time.Second)
	}
	if c.Audio.MaxBuffer == 0 {
		c.Audio.MaxBuffer = Duration(60 * time.Second)
	}

	if c.Pipeline.DuplicateWindow == 0 {
		c.Pipeline.DuplicateWindow = Duration(5 * time.Second)
	}
	if c.Pipeline.ScreenshotCooldown == 0 {
		c.Pipeline.ScreenshotCooldown = Duration(5 * time.Second)
	}
	if c.Pipeline.RouterWordLimit == 0 {
		c.Pipeline.RouterWordLimit = 15
	}
	if c.Pipeline.GenerationTimeout == 0 {
		c.Pipeline.GenerationTimeout = Duration(20 * time.Second)
	}
	if c.Pipeline.TranscribeTimeout == 0 {
		c.Pipeline.TranscribeTimeout = Duration(30 * time.Second)
	}
	if c.Pipeline.OCRTimeout == 0 {
		c.Pipeline.OCRTimeout = Duration(10 * time.Second)
	}

	if c.Store.Backend == "" {
		c.Store.Backend = "memory"
	}
	if c.GatewayAddr == "" {
		c.GatewayAddr = ":8765"
	}
	if c.MetricsPort == 0 {
		c.MetricsPort = 9090
	}
}

func (c *Config) applyEnv() {
	if len(c.Keys.Complex) == 0 {
		c.Keys.Complex = splitKeys(os.Getenv("GROQ_KEYS_70B"))
	}
	if len(c.Keys.Simple) == 0 {
		c.Keys.Simple = splitKeys(os.Getenv("GROQ_KEYS_8B"))
	}
	if len(c.Keys.General) == 0 {
		c.Keys.General = splitKeys(os.Getenv("GROQ_KEYS"))
	}
	if c.OpenAIKey == "" {
		c.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.GeminiKey == "" {
		c.GeminiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if c.OCRKey == "" {
		c.OCRKey = os.Getenv("OCR_API_KEY")
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" && c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = addr
	}
}

// splitKeys parses a comma-separated credential list, dropping empty entries.
func splitKeys(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Validate checks that at least one generation capability is configured.
func (c *Config) Validate() error {
	if len(c.Keys.Simple) == 0 && len(c.Keys.Complex) == 0 && len(c.Keys.General) == 0 {
		return fmt.Errorf("no generation API keys configured")
	}
	if c.Store.Backend == "redis" && c.Store.Redis.Addr == "" {
		return fmt.Errorf("store backend is redis but no address configured")
	}
	return nil
}
