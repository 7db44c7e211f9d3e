// Package config loads settings from flags, a YAML file, the environment
// and an optional .env file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/valpere/khmertran/internal/detector"
)

// EnvPrefix prefixes every environment variable that maps to a key,
// e.g. KHMERTRAN_OCR_DPI for ocr.dpi.
const EnvPrefix = "KHMERTRAN"

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalid           = errors.New("invalid configuration")
)

// Providers lists the supported polishing backends.
var Providers = []string{"openai", "gemini", "openrouter", "ollama"}

// Services lists the supported translation backends.
var Services = []string{"google", "mymemory"}

var defaultModels = map[string]string{
	"openai":     "gpt-4o-mini",
	"gemini":     "gemini-1.5-flash",
	"openrouter": "openai/gpt-4o-mini",
	"ollama":     "llama3.2",
}

// credentialEnv names the conventional variable holding each provider's key.
var credentialEnv = map[string]string{
	"openai":     "OPENAI_API_KEY",
	"gemini":     "GEMINI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

type OCR struct {
	DPI       float64  `mapstructure:"dpi"`
	Languages []string `mapstructure:"languages"`
	PSM       int      `mapstructure:"psm"`
	Workers   int      `mapstructure:"workers"`
}

type Pipeline struct {
	ShortTextThreshold int `mapstructure:"short_text_threshold"`
}

type Translate struct {
	Service     string        `mapstructure:"service"`
	Source      string        `mapstructure:"source"`
	Target      string        `mapstructure:"target"`
	ChunkSize   int           `mapstructure:"chunk_size"`
	Workers     int           `mapstructure:"workers"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Timeout     time.Duration `mapstructure:"timeout"`

	// DetectLanguages restricts language identification to these ISO 639-1
	// codes. Empty means every language lingua knows.
	DetectLanguages []string `mapstructure:"detect_languages"`
}

type Google struct {
	Credentials string `mapstructure:"credentials"`
	APIKey      string `mapstructure:"api_key"`
	Project     string `mapstructure:"project"`
}

type MyMemory struct {
	Email string `mapstructure:"email"`
}

type Polish struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	MaxChars    int           `mapstructure:"max_chars"`
	Workers     int           `mapstructure:"workers"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Timeout     time.Duration `mapstructure:"timeout"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
}

type Ollama struct {
	URL string `mapstructure:"url"`
}

type Cache struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type Config struct {
	OCR       OCR       `mapstructure:"ocr"`
	Pipeline  Pipeline  `mapstructure:"pipeline"`
	Translate Translate `mapstructure:"translate"`
	Google    Google    `mapstructure:"google"`
	MyMemory  MyMemory  `mapstructure:"mymemory"`
	Polish    Polish    `mapstructure:"polish"`
	Ollama    Ollama    `mapstructure:"ollama"`
	Cache     Cache     `mapstructure:"cache"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("ocr.dpi", 200)
	v.SetDefault("ocr.languages", []string{"eng", "khm"})
	v.SetDefault("ocr.psm", 6)
	v.SetDefault("ocr.workers", 1)

	v.SetDefault("pipeline.short_text_threshold", 30)

	v.SetDefault("translate.service", "google")
	v.SetDefault("translate.source", "en")
	v.SetDefault("translate.target", "km")
	v.SetDefault("translate.chunk_size", 4500)
	v.SetDefault("translate.workers", 4)
	v.SetDefault("translate.max_attempts", 3)
	v.SetDefault("translate.timeout", 30*time.Second)
	v.SetDefault("translate.detect_languages", []string{})

	v.SetDefault("google.credentials", "")
	v.SetDefault("google.api_key", "")
	v.SetDefault("google.project", "")
	v.SetDefault("mymemory.email", "")

	v.SetDefault("polish.provider", "openai")
	v.SetDefault("polish.model", "")
	v.SetDefault("polish.temperature", 0.2)
	v.SetDefault("polish.max_chars", 12000)
	v.SetDefault("polish.workers", 2)
	v.SetDefault("polish.max_attempts", 2)
	v.SetDefault("polish.timeout", 120*time.Second)
	v.SetDefault("polish.api_key", "")
	v.SetDefault("polish.base_url", "")

	v.SetDefault("ollama.url", "http://localhost:11434")

	v.SetDefault("cache.size", 128)
	v.SetDefault("cache.ttl", time.Hour)
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding ones already set. Missing files are ignored.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, f := range filenames {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ReadFile merges a YAML config file into v.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Load decodes v into a Config, fills the polishing credential from the
// provider's conventional variable when it is not set explicitly, and
// resolves the default model.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	cfg.Polish.Provider = strings.ToLower(strings.TrimSpace(cfg.Polish.Provider))
	cfg.Translate.Service = strings.ToLower(strings.TrimSpace(cfg.Translate.Service))

	if cfg.Polish.APIKey == "" {
		if name, ok := credentialEnv[cfg.Polish.Provider]; ok {
			_ = v.BindEnv("credential."+cfg.Polish.Provider, name)
			cfg.Polish.APIKey = v.GetString("credential." + cfg.Polish.Provider)
		}
	}
	if cfg.Polish.Model == "" {
		cfg.Polish.Model = defaultModels[cfg.Polish.Provider]
	}

	return &cfg, nil
}

// Validate checks option ranges and, when polishing is enabled, that the
// selected provider has a credential.
func (c *Config) Validate(polish bool) error {
	if !slices.Contains(Services, c.Translate.Service) {
		return fmt.Errorf("%w: unknown translation service %q (want one of %s)", ErrInvalid, c.Translate.Service, strings.Join(Services, ", "))
	}
	if c.Translate.Source == "" || c.Translate.Target == "" {
		return fmt.Errorf("%w: source and target languages are required", ErrInvalid)
	}
	if c.OCR.DPI <= 0 {
		return fmt.Errorf("%w: ocr.dpi must be positive", ErrInvalid)
	}
	if c.Pipeline.ShortTextThreshold <= 0 {
		return fmt.Errorf("%w: pipeline.short_text_threshold must be positive", ErrInvalid)
	}
	if len(c.Translate.DetectLanguages) > 0 {
		if _, err := detector.Languages(c.Translate.DetectLanguages); err != nil {
			return fmt.Errorf("%w: translate.detect_languages: %v", ErrInvalid, err)
		}
	}

	if !polish {
		return nil
	}
	if !slices.Contains(Providers, c.Polish.Provider) {
		return fmt.Errorf("%w: unknown polish provider %q (want one of %s)", ErrInvalid, c.Polish.Provider, strings.Join(Providers, ", "))
	}
	if name, ok := credentialEnv[c.Polish.Provider]; ok && c.Polish.APIKey == "" {
		return fmt.Errorf("%w: %s provider needs %s or %s_POLISH_API_KEY", ErrMissingCredential, c.Polish.Provider, name, EnvPrefix)
	}
	return nil
}
