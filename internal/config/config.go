package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            string `yaml:"port"`
		ShutdownTimeout string `yaml:"shutdownTimeout"`
		Mode            string `yaml:"mode"`
	} `yaml:"server"`
	Session struct {
		TTL          string `yaml:"ttl"`
		CookieSecure bool   `yaml:"cookieSecure"`
	} `yaml:"session"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Reference struct {
		// Source is "embedded", "file" or "postgres".
		Source        string `yaml:"source"`
		QuestionsPath string `yaml:"questionsPath"`
		ScoringPath   string `yaml:"scoringPath"`
		TTL           string `yaml:"ttl"`
	} `yaml:"reference"`
	Events struct {
		// Publisher is "none", "gochannel" or "kafka".
		Publisher    string   `yaml:"publisher"`
		Topic        string   `yaml:"topic"`
		KafkaBrokers []string `yaml:"kafkaBrokers"`
		Buffer       int      `yaml:"buffer"`
	} `yaml:"events"`
	Log struct {
		Format string `yaml:"format"`
		Level  string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads a .env file if one exists, then the YAML config at path, and
// applies environment overrides. A missing YAML file yields defaults.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Server.ShutdownTimeout = "5s"
	cfg.Server.Mode = "release"
	cfg.Session.TTL = "2h"
	cfg.Reference.Source = "embedded"
	cfg.Reference.TTL = "10m"
	cfg.Events.Publisher = "gochannel"
	cfg.Events.Topic = "quiz.events"
	cfg.Events.Buffer = 256
	cfg.Log.Format = "json"
	cfg.Log.Level = "info"
	return cfg
}

func applyEnv(cfg *Config) {
	setFromEnv(&cfg.Server.Port, "PORT")
	setFromEnv(&cfg.Redis.Addr, "REDIS_ADDR")
	setFromEnv(&cfg.Postgres.URL, "POSTGRES_URL")
	setFromEnv(&cfg.Reference.Source, "REFERENCE_SOURCE")
	setFromEnv(&cfg.Events.Publisher, "EVENTS_PUBLISHER")
	setFromEnv(&cfg.Log.Format, "LOG_FORMAT")
	setFromEnv(&cfg.Log.Level, "LOG_LEVEL")
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.Events.KafkaBrokers = splitList(brokers)
	}
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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
