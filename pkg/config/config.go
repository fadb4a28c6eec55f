package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/courseforge/courseforge/pkg/models"
)

// Config holds all courseforge configuration.
type Config struct {
	Listen      string             `yaml:"listen"`
	DBPath      string             `yaml:"db_path"`
	EnvFiles    []string           `yaml:"env_files"`
	Log         LogConfig          `yaml:"log"`
	Providers   []ProviderConfig   `yaml:"providers"`
	Router      RouterConfig       `yaml:"router"`
	Cache       CacheConfig        `yaml:"cache"`
	Photos      PhotosConfig       `yaml:"photos"`
	Generation  GenerationConfig   `yaml:"generation"`
	Audit       models.AuditConfig `yaml:"audit"`
	CORSOrigins []string           `yaml:"cors_origins"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// ProviderConfig defines an upstream AI provider.
// Type is "openai" (default, any OpenAI-compatible gateway), "anthropic" or "gemini".
type ProviderConfig struct {
	Name       string        `yaml:"name"`
	Type       string        `yaml:"type"`
	URL        string        `yaml:"url"`
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	ImageModel string        `yaml:"image_model"`
	Timeout    time.Duration `yaml:"timeout"`
}

// RouterConfig defines per-operation provider chains.
type RouterConfig struct {
	Routes []RouteConfig `yaml:"routes"`
}

// RouteConfig maps a generation operation to an ordered list of targets.
// The first target is the primary; later ones are used when it is unavailable.
type RouteConfig struct {
	Operation string        `yaml:"operation"`
	Targets   []RouteTarget `yaml:"targets"`
}

// RouteTarget identifies a specific provider and model in a fallback chain.
type RouteTarget struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Enabled         bool           `yaml:"enabled"`
	Backend         string         `yaml:"backend"` // sqlite, postgres or redis
	DefaultTTLHours int            `yaml:"default_ttl_hours"`
	TTLHours        map[string]int `yaml:"ttl_hours"`
	RedisURL        string         `yaml:"redis_url"`
	PostgresDSN     string         `yaml:"postgres_dsn"`
}

// TTL returns the cache lifetime for an operation.
func (c CacheConfig) TTL(operation string) time.Duration {
	if h, ok := c.TTLHours[operation]; ok && h > 0 {
		return time.Duration(h) * time.Hour
	}
	if c.DefaultTTLHours > 0 {
		return time.Duration(c.DefaultTTLHours) * time.Hour
	}
	return 24 * time.Hour
}

// PhotosConfig configures stock-photo enrichment of slides.
type PhotosConfig struct {
	UnsplashKey string        `yaml:"unsplash_key"`
	UnsplashURL string        `yaml:"unsplash_url"`
	PexelsKey   string        `yaml:"pexels_key"`
	PexelsURL   string        `yaml:"pexels_url"`
	PerQuery    int           `yaml:"per_query"`
	Parallelism int           `yaml:"parallelism"`
	Timeout     time.Duration `yaml:"timeout"`
}

// GenerationConfig holds item-count limits per operation.
type GenerationConfig struct {
	DefaultLanguage string `yaml:"default_language"`
	MaxSlides       int    `yaml:"max_slides"`
	DemoSlides      int    `yaml:"demo_slides"`
	MaxExercises    int    `yaml:"max_exercises"`
	DemoExercises   int    `yaml:"demo_exercises"`
	MaxQuestions    int    `yaml:"max_questions"`
	MaxModules      int    `yaml:"max_modules"`
	MaxImages       int    `yaml:"max_images"`
	DemoImages      int    `yaml:"demo_images"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:   ":8080",
		DBPath:   "courseforge.db",
		EnvFiles: []string{".env"},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Cache: CacheConfig{
			Enabled:         true,
			Backend:         "sqlite",
			DefaultTTLHours: 24,
		},
		Photos: PhotosConfig{
			PerQuery:    3,
			Parallelism: 4,
			Timeout:     10 * time.Second,
		},
		Generation: GenerationConfig{
			DefaultLanguage: "sv",
			MaxSlides:       30,
			DemoSlides:      3,
			MaxExercises:    10,
			DemoExercises:   2,
			MaxQuestions:    20,
			MaxModules:      12,
			MaxImages:       4,
			DemoImages:      1,
		},
		Audit: models.AuditConfig{
			Enabled:       false,
			DBPath:        "courseforge_audit.db",
			RetentionDays: 30,
		},
	}
}

// Load reads a YAML config file, loads any listed .env files and expands
// environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var pre struct {
		EnvFiles []string `yaml:"env_files"`
	}
	if err := yaml.Unmarshal(data, &pre); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	envFiles := pre.EnvFiles
	if envFiles == nil {
		envFiles = Default().EnvFiles
	}
	if err := LoadEnvFiles(filepath.Dir(path), envFiles...); err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// LoadEnvFiles loads .env files relative to dir. Missing files are skipped
// and variables already set in the environment are not overridden.
func LoadEnvFiles(dir string, files ...string) error {
	for _, f := range files {
		if !filepath.IsAbs(f) {
			f = filepath.Join(dir, f)
		}
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

// Validate reports structural problems. Missing API keys are not errors
// here; requests routed to an unkeyed provider fail with a configuration error.
func (c *Config) Validate() error {
	var errs []error

	names := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("providers[%d]: name is required", i))
			continue
		}
		if names[p.Name] {
			errs = append(errs, fmt.Errorf("providers[%d]: duplicate name %q", i, p.Name))
		}
		names[p.Name] = true
		switch p.Type {
		case "", "openai", "anthropic", "gemini":
		default:
			errs = append(errs, fmt.Errorf("provider %q: unknown type %q", p.Name, p.Type))
		}
	}

	for _, r := range c.Router.Routes {
		if !validOperation(r.Operation) {
			errs = append(errs, fmt.Errorf("route: unknown operation %q", r.Operation))
		}
		for _, t := range r.Targets {
			if !names[t.Provider] {
				errs = append(errs, fmt.Errorf("route %q: unknown provider %q", r.Operation, t.Provider))
			}
		}
	}

	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case "", "sqlite":
		case "postgres":
			if c.Cache.PostgresDSN == "" {
				errs = append(errs, errors.New("cache: postgres_dsn is required for the postgres backend"))
			}
		case "redis":
			if c.Cache.RedisURL == "" {
				errs = append(errs, errors.New("cache: redis_url is required for the redis backend"))
			}
		default:
			errs = append(errs, fmt.Errorf("cache: unknown backend %q", c.Cache.Backend))
		}
	}

	g := c.Generation
	if g.MaxSlides <= 0 || g.MaxExercises <= 0 || g.MaxQuestions <= 0 || g.MaxModules <= 0 || g.MaxImages <= 0 {
		errs = append(errs, errors.New("generation: limits must be positive"))
	}
	if g.DemoSlides <= 0 || g.DemoExercises <= 0 || g.DemoImages <= 0 {
		errs = append(errs, errors.New("generation: demo counts must be positive"))
	}
	if g.DemoSlides > g.MaxSlides || g.DemoExercises > g.MaxExercises || g.DemoImages > g.MaxImages {
		errs = append(errs, errors.New("generation: demo counts must not exceed limits"))
	}

	return errors.Join(errs...)
}

func validOperation(op string) bool {
	for _, o := range models.Operations {
		if o == op {
			return true
		}
	}
	return false
}
