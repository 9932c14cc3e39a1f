package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Translator TranslatorConfig
	Speech     SpeechConfig
	Events     EventsConfig
	Web        WebConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReclaimPort     bool
	UpstreamTimeout time.Duration
}

type TranslatorConfig struct {
	Key      string
	Region   string
	Endpoint string
}

type SpeechConfig struct {
	Key    string
	Region string
}

type EventsConfig struct {
	RedisAddr     string // empty disables event publishing
	RedisPassword string
	RedisDB       int
	Channel       string
}

type WebConfig struct {
	Dir string
}

// ConfigError reports every missing required environment variable at once,
// so the operator fixes the whole .env in one pass.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required env vars: %s", strings.Join(e.Missing, ", "))
}

func Load() (*Config, error) {
	port, err := getEnvInt("PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	timeout, err := getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid UPSTREAM_TIMEOUT: %w", err)
	}

	reclaim, err := getEnvBool("PORT_RECLAIM", true)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT_RECLAIM: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("HOST", "127.0.0.1"),
			Port:            port,
			ReclaimPort:     reclaim,
			UpstreamTimeout: timeout,
		},
		Translator: TranslatorConfig{
			Key:      getEnv("TRANSLATOR_KEY", ""),
			Region:   getEnv("TRANSLATOR_REGION", ""),
			Endpoint: getEnv("TRANSLATOR_ENDPOINT", "https://api.cognitive.microsofttranslator.com"),
		},
		Speech: SpeechConfig{
			Key:    getEnv("SPEECH_KEY", ""),
			Region: getEnv("SPEECH_REGION", ""),
		},
		Events: EventsConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
			Channel:       getEnv("REDIS_CHANNEL", "voicebridge.translations"),
		},
		Web: WebConfig{
			Dir: getEnv("WEB_DIR", "web"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Translator.Key == "" {
		missing = append(missing, "TRANSLATOR_KEY")
	}
	if c.Translator.Region == "" {
		missing = append(missing, "TRANSLATOR_REGION")
	}
	if c.Speech.Key == "" {
		missing = append(missing, "SPEECH_KEY")
	}
	if c.Speech.Region == "" {
		missing = append(missing, "SPEECH_REGION")
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
