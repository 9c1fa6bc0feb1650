// Package config provides configuration management for Cortex.
// It loads settings from environment variables with the CORTEX_ prefix
// and provides sensible defaults for all configuration options.
//
// The user profile (the four-layer knowledge model consumed by the
// pipeline) is loaded separately from a YAML file; see LoadProfile.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scrypster/cortex/pkg/types"
)

// Config holds all configuration settings for the Cortex application.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	LLM      LLMConfig
	Redis    RedisConfig
	Jobs     JobsConfig
	Pipeline PipelineConfig
	Profile  ProfileConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    // Server port (default: 7171)
	Host string // Server host (default: 127.0.0.1)
}

// StorageConfig contains knowledge store configuration.
type StorageConfig struct {
	StorageEngine string // Storage engine type: sqlite, postgres (default: sqlite)
	DataPath      string // Path to data directory for sqlite (default: ./data)
	PostgresDSN   string // Connection string for the postgres backend
}

// LLMConfig contains per-tier model backend configuration.
//
// The Reflex and Private tiers run on a local Ollama instance with zero
// network egress. The Logic tier is cloud OpenAI at temperature 0; the
// Empathy tier is cloud Anthropic at a higher temperature. A missing cloud
// credential is not an error: the router substitutes the Private tier.
type LLMConfig struct {
	OllamaURL      string // Ollama API URL (default: http://localhost:11434)
	ReflexModel    string // Small local model for classification (default: phi3:mini)
	PrivateModel   string // Higher-capacity local model (default: qwen2.5:7b)
	EmbeddingModel string // Local embedding model (default: nomic-embed-text)

	OpenAIAPIKey string // Logic tier credential (empty = fall back to Private)
	OpenAIModel  string // Logic tier model (default: gpt-4o)

	AnthropicAPIKey string // Empathy tier credential (empty = fall back to Private)
	AnthropicModel  string // Empathy tier model (default: claude-3-5-sonnet-20241022)

	RequestTimeout time.Duration // Per-invocation timeout (default: 30s)
	CloudRateLimit float64       // Cloud requests per second (default: 2)
}

// RedisConfig contains the optional alert fast-queue configuration.
type RedisConfig struct {
	URL string // e.g. redis://localhost:6379/0; empty disables the queue
}

// JobsConfig contains background job cadences and limits.
type JobsConfig struct {
	GhostInterval         time.Duration // Ghost-dependency check cadence (default: 24h)
	DefragInterval        time.Duration // Schedule defrag cadence (default: 4h)
	ConsolidationInterval time.Duration // Memory consolidation cadence (default: 24h)
	JobTimeout            time.Duration // Hard wall-clock cap per job run (default: 5m)
	QueueSize             int           // Deferred task queue capacity (default: 100)
	NumWorkers            int           // Deferred task workers (default: 2)
}

// PipelineConfig contains per-request pipeline settings.
type PipelineConfig struct {
	StageTimeout time.Duration // Upper bound on a single stage (default: 45s)
}

// ProfileConfig locates the user profile file.
type ProfileConfig struct {
	Path string // YAML user profile path (default: ./data/profile.yaml)
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the CORTEX_ prefix.
func LoadConfig() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("CORTEX_PORT", 7171),
			Host: getEnv("CORTEX_HOST", "127.0.0.1"),
		},
		Storage: StorageConfig{
			StorageEngine: getEnv("CORTEX_STORAGE_ENGINE", "sqlite"),
			DataPath:      getEnv("CORTEX_DATA_PATH", "./data"),
			PostgresDSN:   getEnv("CORTEX_POSTGRES_DSN", ""),
		},
		LLM: LLMConfig{
			OllamaURL:       getEnv("CORTEX_OLLAMA_URL", "http://localhost:11434"),
			ReflexModel:     getEnv("CORTEX_REFLEX_MODEL", "phi3:mini"),
			PrivateModel:    getEnv("CORTEX_PRIVATE_MODEL", "qwen2.5:7b"),
			EmbeddingModel:  getEnv("CORTEX_EMBEDDING_MODEL", "nomic-embed-text"),
			OpenAIAPIKey:    getEnv("CORTEX_OPENAI_API_KEY", ""),
			OpenAIModel:     getEnv("CORTEX_OPENAI_MODEL", "gpt-4o"),
			AnthropicAPIKey: getEnv("CORTEX_ANTHROPIC_API_KEY", ""),
			AnthropicModel:  getEnv("CORTEX_ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
			RequestTimeout:  getEnvDuration("CORTEX_LLM_TIMEOUT", 30*time.Second),
			CloudRateLimit:  getEnvFloat("CORTEX_CLOUD_RATE_LIMIT", 2),
		},
		Redis: RedisConfig{
			URL: getEnv("CORTEX_REDIS_URL", ""),
		},
		Jobs: JobsConfig{
			GhostInterval:         getEnvDuration("CORTEX_GHOST_INTERVAL", 24*time.Hour),
			DefragInterval:        getEnvDuration("CORTEX_DEFRAG_INTERVAL", 4*time.Hour),
			ConsolidationInterval: getEnvDuration("CORTEX_CONSOLIDATION_INTERVAL", 24*time.Hour),
			JobTimeout:            getEnvDuration("CORTEX_JOB_TIMEOUT", 5*time.Minute),
			QueueSize:             getEnvInt("CORTEX_QUEUE_SIZE", 100),
			NumWorkers:            getEnvInt("CORTEX_NUM_WORKERS", 2),
		},
		Pipeline: PipelineConfig{
			StageTimeout: getEnvDuration("CORTEX_STAGE_TIMEOUT", 45*time.Second),
		},
		Profile: ProfileConfig{
			Path: getEnv("CORTEX_PROFILE_PATH", "./data/profile.yaml"),
		},
	}, nil
}

// LoadProfile reads the four-layer user profile from a YAML file.
// A missing file is not an error: the caller decides whether to run
// without personalization or write a starter profile.
func LoadProfile(path string) (*types.UserProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: failed to read profile %s: %w", path, err)
	}

	var profile types.UserProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("config: failed to parse profile %s: %w", path, err)
	}
	applyProfileDefaults(&profile)
	return &profile, nil
}

// DefaultProfile returns a profile with every field at its default,
// written to disk on first boot so there is a file to edit.
func DefaultProfile() *types.UserProfile {
	var p types.UserProfile
	applyProfileDefaults(&p)
	return &p
}

// SaveProfile writes the user profile to its YAML file.
func SaveProfile(path string, profile *types.UserProfile) error {
	data, err := yaml.Marshal(profile)
	if err != nil {
		return fmt.Errorf("config: failed to marshal profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: failed to write profile %s: %w", path, err)
	}
	return nil
}

// applyProfileDefaults fills zero-valued profile fields with defaults so
// downstream consumers never see empty work hours or chronotype.
func applyProfileDefaults(p *types.UserProfile) {
	if p.Biological.Chronotype == "" {
		p.Biological.Chronotype = types.ChronotypeThirdBird
	}
	if p.Biological.WorkStart == "" {
		p.Biological.WorkStart = "09:00"
	}
	if p.Biological.WorkEnd == "" {
		p.Biological.WorkEnd = "18:00"
	}
	if p.Biological.Timezone == "" {
		p.Biological.Timezone = "UTC"
	}
	if p.Psychological.CommunicationStyle == "" {
		p.Psychological.CommunicationStyle = types.StyleDirect
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. If the variable exists but cannot be parsed, the default is used.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (Go duration
// syntax, e.g. "4h") or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
