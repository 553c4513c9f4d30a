package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config is the main configuration structure.
type Config struct {
	Server      ServerConf  `yaml:"server"`
	Latency     LatencyConf `yaml:"latency"`
	Log         LogConf     `yaml:"log"`
	LogCapacity int         `yaml:"logCapacity"`
	SeedFile    string      `yaml:"seedFile"`  // Optional YAML file replacing the built-in seed data
	RulesFile   string      `yaml:"rulesFile"` // Where fault rules are persisted; empty keeps them in memory
	Rules       []Rule      `yaml:"rules"`
}

// ServerConf controls the two listeners and how requests are intercepted.
type ServerConf struct {
	Port        int      `yaml:"port"`
	APIPort     int      `yaml:"apiPort"`
	BasePath    string   `yaml:"basePath"` // e.g. /automationexercise/
	Upstream    string   `yaml:"upstream"` // Bypassed requests are proxied here when set
	CORSOrigins []string `yaml:"corsOrigins"`
}

// LatencyConf sets the artificial delay bands, in milliseconds.
type LatencyConf struct {
	MinMs    int  `yaml:"min_ms"`
	MaxMs    int  `yaml:"max_ms"`
	BooksMs  int  `yaml:"books_ms"`
	Disabled bool `yaml:"disabled"`
}

// LogConf configures the slog output.
type LogConf struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"` // "json" or "pretty"
	Environment string `yaml:"environment"`
}

// Rule defines a single failure injection rule.
type Rule struct {
	Target  string  `yaml:"target"`
	Failure Failure `yaml:"failure"`
}

// Failure specifies the type and parameters of the failure.
type Failure struct {
	Type        string  `yaml:"type"` // "latency", "error", "flaky"
	LatencyMs   int     `yaml:"latency_ms,omitempty"`
	ErrorCode   int     `yaml:"error_code,omitempty"`
	Probability float64 `yaml:"probability,omitempty"` // For "flaky" type
}

// Default returns a configuration that runs without any file.
func Default() *Config {
	return &Config{
		Server: ServerConf{
			Port:        8080,
			APIPort:     8081,
			BasePath:    "/",
			CORSOrigins: []string{"http://localhost:5173", "http://localhost:5174"},
		},
		Latency: LatencyConf{
			MinMs:   500,
			MaxMs:   1000,
			BooksMs: 500,
		},
		Log: LogConf{
			Level:       "info",
			Environment: "development",
		},
		LogCapacity: 200,
	}
}

// LoadConfig reads a YAML file over the defaults, then applies .env and
// PRACTICELAB_* environment overrides. An empty path skips the file.
func LoadConfig(filePath string) (*Config, error) {
	cfg := Default()

	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filePath, err)
		}
	}

	// .env is optional.
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	ints := map[string]*int{
		"PRACTICELAB_PORT":             &c.Server.Port,
		"PRACTICELAB_API_PORT":         &c.Server.APIPort,
		"PRACTICELAB_LATENCY_MIN_MS":   &c.Latency.MinMs,
		"PRACTICELAB_LATENCY_MAX_MS":   &c.Latency.MaxMs,
		"PRACTICELAB_LATENCY_BOOKS_MS": &c.Latency.BooksMs,
		"PRACTICELAB_LOG_CAPACITY":     &c.LogCapacity,
	}
	for key, dst := range ints {
		raw := strings.TrimSpace(os.Getenv(key))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = v
	}

	strs := map[string]*string{
		"PRACTICELAB_BASE_PATH":  &c.Server.BasePath,
		"PRACTICELAB_UPSTREAM":   &c.Server.Upstream,
		"PRACTICELAB_LOG_LEVEL":  &c.Log.Level,
		"PRACTICELAB_LOG_FORMAT": &c.Log.Format,
		"PRACTICELAB_ENV":        &c.Log.Environment,
		"PRACTICELAB_SEED_FILE":  &c.SeedFile,
		"PRACTICELAB_RULES_FILE": &c.RulesFile,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	if v := strings.TrimSpace(os.Getenv("PRACTICELAB_LATENCY_DISABLED")); v != "" {
		disabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PRACTICELAB_LATENCY_DISABLED: %w", err)
		}
		c.Latency.Disabled = disabled
	}
	if v := strings.TrimSpace(os.Getenv("PRACTICELAB_CORS_ORIGINS")); v != "" {
		c.Server.CORSOrigins = strings.Split(v, ",")
	}
	return nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.APIPort <= 0 || c.Server.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("server.apiPort %d out of range", c.Server.APIPort))
	}
	if c.Latency.MinMs < 0 || c.Latency.MaxMs < c.Latency.MinMs {
		errs = append(errs, fmt.Errorf("latency band [%d, %d] is invalid", c.Latency.MinMs, c.Latency.MaxMs))
	}
	if c.Latency.BooksMs < 0 {
		errs = append(errs, fmt.Errorf("latency.books_ms must not be negative"))
	}
	if c.LogCapacity <= 0 {
		errs = append(errs, fmt.Errorf("logCapacity must be positive"))
	}
	for i, r := range c.Rules {
		switch r.Failure.Type {
		case "latency", "error", "flaky":
		default:
			errs = append(errs, fmt.Errorf("rules[%d]: unknown failure type %q", i, r.Failure.Type))
		}
	}
	return errors.Join(errs...)
}

// Band returns the randomized latency band.
func (l LatencyConf) Band() (time.Duration, time.Duration) {
	return time.Duration(l.MinMs) * time.Millisecond, time.Duration(l.MaxMs) * time.Millisecond
}

// Books returns the fixed latency of the book endpoints.
func (l LatencyConf) Books() time.Duration {
	return time.Duration(l.BooksMs) * time.Millisecond
}
