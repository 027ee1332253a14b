package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the account plan assistant
type Config struct {
	General GeneralConfig `mapstructure:"general"`
	Server  ServerConfig  `mapstructure:"server"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Sources SourcesConfig `mapstructure:"sources"`
	Session SessionConfig `mapstructure:"session"`
	Storage StorageConfig `mapstructure:"storage"`
	Demo    DemoConfig    `mapstructure:"demo"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig selects the completion backend and its retry policy.
type LLMConfig struct {
	Provider          string        `mapstructure:"provider"` // openai, gemini
	Model             string        `mapstructure:"model"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	BackoffBase       time.Duration `mapstructure:"backoff_base"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
}

func (l LLMConfig) Validate() error {
	switch l.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("llm.provider %q is not supported (openai, gemini)", l.Provider)
	}
	if strings.TrimSpace(l.Model) == "" {
		return fmt.Errorf("llm.model required")
	}
	if l.MaxAttempts <= 0 {
		return fmt.Errorf("llm.max_attempts must be > 0")
	}
	if l.BackoffMultiplier < 1 {
		return fmt.Errorf("llm.backoff_multiplier must be >= 1")
	}
	return nil
}

// SourcesConfig controls page collection and retrieval context sizing.
type SourcesConfig struct {
	Fetcher      string        `mapstructure:"fetcher"` // http, chromedp
	Timeout      time.Duration `mapstructure:"timeout"`
	UserAgent    string        `mapstructure:"user_agent"`
	MaxChars     int           `mapstructure:"max_chars"`
	ContextChars int           `mapstructure:"context_chars"`
	TopK         int           `mapstructure:"top_k"`
	Concurrency  int           `mapstructure:"concurrency"`
	UploadedFile string        `mapstructure:"uploaded_file"`
}

func (s SourcesConfig) Validate() error {
	switch s.Fetcher {
	case "http", "chromedp":
	default:
		return fmt.Errorf("sources.fetcher %q is not supported (http, chromedp)", s.Fetcher)
	}
	if s.MaxChars <= 0 || s.ContextChars <= 0 {
		return fmt.Errorf("sources.max_chars and sources.context_chars must be > 0")
	}
	if s.TopK <= 0 {
		return fmt.Errorf("sources.top_k must be > 0")
	}
	if s.Concurrency <= 0 {
		return fmt.Errorf("sources.concurrency must be > 0")
	}
	return nil
}

// SessionConfig selects the session store backend.
type SessionConfig struct {
	Store string        `mapstructure:"store"` // inmemory, redis
	TTL   time.Duration `mapstructure:"ttl"`
}

func (s SessionConfig) Validate() error {
	switch s.Store {
	case "inmemory", "redis":
		return nil
	default:
		return fmt.Errorf("session.store %q is not supported (inmemory, redis)", s.Store)
	}
}

// StorageConfig contains external storage settings
type StorageConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// DemoConfig holds switches used for demonstrations.
type DemoConfig struct {
	ForceConflict bool `mapstructure:"-"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("general.log_level", "info")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.max_attempts", 4)
	v.SetDefault("llm.backoff_base", time.Second)
	v.SetDefault("llm.backoff_multiplier", 2.0)
	v.SetDefault("sources.fetcher", "http")
	v.SetDefault("sources.timeout", 8*time.Second)
	v.SetDefault("sources.user_agent", "ResearchAgent/1.0")
	v.SetDefault("sources.max_chars", 3000)
	v.SetDefault("sources.context_chars", 2000)
	v.SetDefault("sources.top_k", 5)
	v.SetDefault("sources.concurrency", 3)
	v.SetDefault("sources.uploaded_file", "")
	v.SetDefault("session.store", "inmemory")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.timeout", 5*time.Second)
	v.SetDefault("demo.force_conflict", "false")
}

// LoadConfig loads config from an optional file, ACCOUNTPLAN_* variables and the
// plain LLM_MODEL / FORCE_CONFLICT / OPENAI_API_KEY / GEMINI_API_KEY variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if path == "" {
		v.SetConfigName("accountplan")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("ACCOUNTPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("llm.model", "ACCOUNTPLAN_LLM_MODEL", "LLM_MODEL")
	_ = v.BindEnv("demo.force_conflict", "ACCOUNTPLAN_DEMO_FORCE_CONFLICT", "FORCE_CONFLICT")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Demo.ForceConflict = parseFlag(v.GetString("demo.force_conflict"))
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = apiKeyFromEnv(cfg.LLM.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Sources.Validate(); err != nil {
		return err
	}
	if err := c.Session.Validate(); err != nil {
		return err
	}
	if c.Session.Store == "redis" {
		if err := c.Storage.Redis.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// parseFlag accepts the 1/true/yes spellings used by FORCE_CONFLICT.
func parseFlag(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func apiKeyFromEnv(provider string) string {
	if provider == "gemini" {
		return os.Getenv("GEMINI_API_KEY")
	}
	return os.Getenv("OPENAI_API_KEY")
}
