package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Quiz sources.
const (
	SourceStatic   = "static"
	SourceFile     = "file"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
	SourceGenerate = "generate"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
		// PublicURL is what players open; join links and QR codes are built from it.
		PublicURL      string   `yaml:"public_url"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Quiz struct {
		Source     string `yaml:"source"`
		ID         string `yaml:"id"`
		File       string `yaml:"file"`
		TTL        string `yaml:"ttl"`
		Topic      string `yaml:"topic"`
		Difficulty string `yaml:"difficulty"`
		Shuffle    *bool  `yaml:"shuffle"`
	} `yaml:"quiz"`
	Gemini struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"gemini"`
	Game struct {
		RedactAnswers bool    `yaml:"redact_answers"`
		IdleTimeout   string  `yaml:"idle_timeout"`
		MessageRate   float64 `yaml:"message_rate"`
		MessageBurst  int     `yaml:"message_burst"`
	} `yaml:"game"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Quiz.Source = SourceStatic
	cfg.Game.IdleTimeout = "2h"
	cfg.Game.MessageRate = 5
	cfg.Game.MessageBurst = 10
	cfg.Log.Level = "info"
	cfg.Log.Pretty = true
	return cfg
}

// Load reads YAML config from path on top of Default. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv fills secrets that are conventionally provided through the environment.
func (c *Config) ApplyEnv() {
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = os.Getenv("API_KEY")
	}
}

// ShuffleQuestions reports whether question order is randomised per game. Defaults to true.
func (c Config) ShuffleQuestions() bool {
	return c.Quiz.Shuffle == nil || *c.Quiz.Shuffle
}

// Validate rejects configurations that cannot start a host.
func (c Config) Validate() error {
	switch c.Quiz.Source {
	case SourceStatic:
	case SourceFile:
		if c.Quiz.File == "" {
			return errors.New("quiz.file is required for the file source")
		}
	case SourcePostgres:
		if c.Postgres.URL == "" {
			return errors.New("postgres.url is required for the postgres source")
		}
	case SourceSQLite:
		if c.SQLite.Path == "" {
			return errors.New("sqlite.path is required for the sqlite source")
		}
	case SourceGenerate:
		if c.Gemini.APIKey == "" {
			return errors.New("gemini api key is required for the generate source (set GEMINI_API_KEY)")
		}
		if c.Quiz.Topic == "" {
			return errors.New("quiz.topic is required for the generate source")
		}
	default:
		return fmt.Errorf("unknown quiz source %q", c.Quiz.Source)
	}
	for name, raw := range map[string]string{
		"quiz.ttl":          c.Quiz.TTL,
		"redis.ttl":         c.Redis.TTL,
		"game.idle_timeout": c.Game.IdleTimeout,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Game.MessageRate < 0 || c.Game.MessageBurst < 0 {
		return errors.New("game.message_rate and game.message_burst must not be negative")
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
