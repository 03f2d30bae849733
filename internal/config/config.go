// Package config reads the runtime configuration from environment variables prefixed with MIST_.
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/myrjola/misttheater/internal/errors"
)

const prefix = "MIST_"

// Config is shared by the web server and the CLI.
type Config struct {
	// Addr is the HTTP listen address. Port 0 picks a free port.
	Addr string `env:"ADDR" envDefault:"localhost:4000"`
	// PprofAddr is the pprof listen address. Empty disables pprof.
	PprofAddr string `env:"PPROF_ADDR"`
	// SqliteURL is the database file path or ":memory:".
	SqliteURL string `env:"SQLITE_URL" envDefault:"./misttheater.sqlite"`
	// Namespace prefixes the persisted storage keys.
	Namespace string `env:"STORAGE_NAMESPACE" envDefault:"mistTheater"`

	AI AI `envPrefix:"AI_"`
}

// AI configures the OpenAI-compatible model endpoint.
type AI struct {
	APIKey      string        `env:"API_KEY"`
	BaseURL     string        `env:"BASE_URL" envDefault:"https://openai.qiniu.com/v1"`
	Model       string        `env:"MODEL" envDefault:"gpt-oss-120b"`
	SpeechModel string        `env:"SPEECH_MODEL" envDefault:"tts-1"`
	Temperature float32       `env:"TEMPERATURE" envDefault:"0.8"`
	MaxTokens   int           `env:"MAX_TOKENS" envDefault:"500"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"20s"`
}

// Parse reads the configuration from environ, given in the "KEY=value" form of os.Environ.
func Parse(environ []string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{
		Environment: toMap(environ),
		Prefix:      prefix,
	}); err != nil {
		return Config{}, errors.Wrap(err, "parse env")
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) validate() error {
	if cfg.AI.MaxTokens <= 0 {
		return errors.New("max tokens must be positive", slog.Int("max_tokens", cfg.AI.MaxTokens))
	}
	if cfg.AI.Temperature < 0 || cfg.AI.Temperature > 2 {
		return errors.New("temperature out of range", slog.Float64("temperature", float64(cfg.AI.Temperature)))
	}
	if cfg.AI.Timeout <= 0 {
		return errors.New("model timeout must be positive", slog.Duration("timeout", cfg.AI.Timeout))
	}
	if strings.TrimSpace(cfg.Namespace) == "" {
		return errors.New("storage namespace must not be empty")
	}
	return nil
}

func toMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			m[k] = v
		}
	}
	return m
}
