package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/castpress/castpress/pkg/models"
)

// Config holds all configuration for the castpress server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Text     TextConfig
	TTS      TTSConfig
	Pipeline PipelineConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Region        string
	ChunkBucket   string
	EpisodeBucket string
}

// TextConfig configures the two text-generation providers. The primary is
// tried first for every call; the secondary is tried exactly once after a
// primary failure.
type TextConfig struct {
	Timeout   time.Duration
	Primary   TextProviderConfig
	Secondary TextProviderConfig
}

type TextProviderConfig struct {
	Kind    string // "openai" or "anthropic"
	BaseURL string
	APIKey  string
	Model   string
}

// TTSConfig configures the primary and backup speech synthesizers. VoiceMap
// translates the primary provider's voice IDs to the backup's native IDs so
// a fallback call keeps the same logical voice.
type TTSConfig struct {
	Timeout  time.Duration
	Primary  TTSProviderConfig
	Backup   TTSProviderConfig
	VoiceMap map[string]string
}

type TTSProviderConfig struct {
	Kind    string // "elevenlabs" or "cartesia"
	BaseURL string
	APIKey  string
}

// PipelineConfig carries the tuning constants for the pipeline itself:
// per-tier script bounds, the synthesis chunk word limit, and the one
// synthesis format shared by every chunk of a job.
type PipelineConfig struct {
	ChunkWordLimit int
	SampleRate     int
	Channels       int
	Tiers          map[string]models.TierSpec
}

// TierSpec returns the bounds for the given tier, falling back to medium
// for absent or unknown tiers.
func (p PipelineConfig) TierSpec(tier string) models.TierSpec {
	return p.Tiers[models.NormalizeTier(tier)]
}

var validTextKinds = map[string]bool{
	"openai":    true,
	"anthropic": true,
}

var validTTSKinds = map[string]bool{
	"elevenlabs": true,
	"cartesia":   true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("CASTPRESS_PORT", 8080),
			Env:  envString("CASTPRESS_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Storage: StorageConfig{
			Endpoint:      os.Getenv("STORAGE_ENDPOINT"),
			AccessKey:     os.Getenv("STORAGE_ACCESS_KEY"),
			SecretKey:     os.Getenv("STORAGE_SECRET_KEY"),
			UseSSL:        envBool("STORAGE_USE_SSL", false),
			Region:        envString("STORAGE_REGION", "us-east-1"),
			ChunkBucket:   envString("STORAGE_CHUNK_BUCKET", "castpress-chunks"),
			EpisodeBucket: envString("STORAGE_EPISODE_BUCKET", "castpress-episodes"),
		},
		Text: TextConfig{
			Timeout: envDuration("TEXT_TIMEOUT", 90*time.Second),
			Primary: TextProviderConfig{
				Kind:    envString("TEXT_PRIMARY_PROVIDER", "openai"),
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com"),
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				Model:   envString("OPENAI_MODEL", "gpt-4o"),
			},
			Secondary: TextProviderConfig{
				Kind:    envString("TEXT_SECONDARY_PROVIDER", "anthropic"),
				BaseURL: envString("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
				APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
				Model:   envString("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
			},
		},
		TTS: TTSConfig{
			Timeout: envDuration("TTS_TIMEOUT", 120*time.Second),
			Primary: TTSProviderConfig{
				Kind:    envString("TTS_PRIMARY_PROVIDER", "elevenlabs"),
				BaseURL: envString("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
				APIKey:  os.Getenv("ELEVENLABS_API_KEY"),
			},
			Backup: TTSProviderConfig{
				Kind:    envString("TTS_BACKUP_PROVIDER", "cartesia"),
				BaseURL: envString("CARTESIA_BASE_URL", "https://api.cartesia.ai"),
				APIKey:  os.Getenv("CARTESIA_API_KEY"),
			},
			VoiceMap: envKeyValueMap("TTS_VOICE_MAP"),
		},
		Pipeline: PipelineConfig{
			ChunkWordLimit: envInt("PIPELINE_CHUNK_WORD_LIMIT", 220),
			SampleRate:     envInt("PIPELINE_SAMPLE_RATE", 24000),
			Channels:       envInt("PIPELINE_CHANNELS", 1),
			Tiers: map[string]models.TierSpec{
				models.TierShort:  {MinWords: 150, MaxWords: 280, CreditWeight: 1},
				models.TierMedium: {MinWords: 420, MaxWords: 560, CreditWeight: 1},
				models.TierLong:   {MinWords: 700, MaxWords: 980, CreditWeight: 2},
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Storage.Endpoint == "" {
		return fmt.Errorf("STORAGE_ENDPOINT is required")
	}

	if !validTextKinds[c.Text.Primary.Kind] {
		return fmt.Errorf("TEXT_PRIMARY_PROVIDER must be one of openai, anthropic; got %q", c.Text.Primary.Kind)
	}
	if !validTextKinds[c.Text.Secondary.Kind] {
		return fmt.Errorf("TEXT_SECONDARY_PROVIDER must be one of openai, anthropic; got %q", c.Text.Secondary.Kind)
	}
	if c.Text.Primary.Kind == c.Text.Secondary.Kind {
		return fmt.Errorf("TEXT_PRIMARY_PROVIDER and TEXT_SECONDARY_PROVIDER must differ, both are %q", c.Text.Primary.Kind)
	}

	if !validTTSKinds[c.TTS.Primary.Kind] {
		return fmt.Errorf("TTS_PRIMARY_PROVIDER must be one of elevenlabs, cartesia; got %q", c.TTS.Primary.Kind)
	}
	if !validTTSKinds[c.TTS.Backup.Kind] {
		return fmt.Errorf("TTS_BACKUP_PROVIDER must be one of elevenlabs, cartesia; got %q", c.TTS.Backup.Kind)
	}

	if c.Pipeline.ChunkWordLimit <= 0 {
		return fmt.Errorf("PIPELINE_CHUNK_WORD_LIMIT must be positive, got %d", c.Pipeline.ChunkWordLimit)
	}
	if c.Pipeline.SampleRate <= 0 {
		return fmt.Errorf("PIPELINE_SAMPLE_RATE must be positive, got %d", c.Pipeline.SampleRate)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// envKeyValueMap parses "a=b,c=d" pairs. Malformed entries are skipped.
func envKeyValueMap(key string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(os.Getenv(key), ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
