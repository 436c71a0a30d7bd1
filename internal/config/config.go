// Package config loads service configuration from the environment.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voice pipeline.
type Config struct {
	// Text generation (OpenAI-compatible chat API)
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY" required:"true"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL" default:""`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`

	// Speech synthesis
	TTSProvider      string `envconfig:"TTS_PROVIDER" default:"cartesia"` // cartesia, elevenlabs
	CartesiaAPIKey   string `envconfig:"CARTESIA_API_KEY" default:""`
	ElevenLabsAPIKey string `envconfig:"ELEVENLABS_API_KEY" default:""`
	VoiceID          string `envconfig:"VOICE_ID" default:""`
	AudioFormat      string `envconfig:"AUDIO_FORMAT" default:"pcm"` // pcm, wav, mp3
	SampleRate       int    `envconfig:"SAMPLE_RATE" default:"24000"`

	// Pipeline tuning
	ChunkStrategy string `envconfig:"CHUNK_STRATEGY" default:"balanced"` // aggressive, balanced, quality
	Lookahead     int    `envconfig:"LOOKAHEAD" default:"2"`

	// Provider rate limits (0 disables the corresponding bound)
	TTSRequestsPerSecond float64 `envconfig:"TTS_REQUESTS_PER_SECOND" default:"0"`
	TTSBurst             int     `envconfig:"TTS_BURST" default:"0"`
	TTSMaxInFlight       int64   `envconfig:"TTS_MAX_IN_FLIGHT" default:"0"`

	// Observability
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricsAddr    string `envconfig:"METRICS_ADDR" default:":9090"`

	// Local playback of the synthesized audio (probe CLI)
	PlaybackEnabled bool `envconfig:"PLAYBACK_ENABLED" default:"false"`
}

// Load reads configuration from the environment, after loading an
// optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.ChunkStrategy {
	case "aggressive", "balanced", "quality":
	default:
		return fmt.Errorf("invalid CHUNK_STRATEGY %q", c.ChunkStrategy)
	}
	if c.Lookahead < 0 {
		return fmt.Errorf("LOOKAHEAD must be >= 0")
	}
	switch c.TTSProvider {
	case "cartesia":
		if c.CartesiaAPIKey == "" {
			return fmt.Errorf("CARTESIA_API_KEY is required for TTS_PROVIDER=cartesia")
		}
	case "elevenlabs":
		if c.ElevenLabsAPIKey == "" {
			return fmt.Errorf("ELEVENLABS_API_KEY is required for TTS_PROVIDER=elevenlabs")
		}
	default:
		return fmt.Errorf("invalid TTS_PROVIDER %q", c.TTSProvider)
	}
	return nil
}
