package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile      = ".env"
	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 60 * time.Second
	defaultIdleTimeout  = 120 * time.Second

	defaultLLMProvider   = "ollama"
	defaultOllamaURL     = "http://localhost:11434"
	defaultOllamaModel   = "qwen2.5:14b"
	defaultLLMTimeout    = 30 * time.Second
	defaultLLMMaxRetries = 2
	defaultLLMRetryDelay = 400 * time.Millisecond

	defaultTextMaxLength = 50
	defaultMinQuantity   = 1
	defaultMaxQuantity   = 99

	defaultRateLimitChat   = 60
	defaultRateLimitWindow = time.Minute

	defaultCurrency     = "EUR"
	defaultPrintFee     = 3.00
	defaultDeliveryDays = 7
	defaultMerchantID   = "merchforge-demo"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server     ServerConfig
	LLM        LLMConfig
	Limits     LimitsConfig
	RateLimits RateLimitConfig
	Commerce   CommerceConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// LLMConfig selects and tunes the model backend used for extraction and
// design generation.
type LLMConfig struct {
	Provider      string
	Model         string
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
	ForceGenerate bool
}

// LimitsConfig bounds user-supplied customization values.
type LimitsConfig struct {
	TextMaxLength int
	MinQuantity   int
	MaxQuantity   int
}

// RateLimitConfig controls request throttling on the conversational endpoints.
type RateLimitConfig struct {
	ChatPerWindow int
	Window        time.Duration
}

// CommerceConfig holds pricing and fulfilment defaults for the demo store.
type CommerceConfig struct {
	Currency             string
	PrintFee             float64
	DeliveryEstimateDays int
	MerchantID           string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// Option customises the configuration loader.
type Option func(*loaderOptions)

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults,
// .env overrides, and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		LLM: LLMConfig{
			Provider:      strings.ToLower(stringWithDefault(lookup, "LLM_PROVIDER", defaultLLMProvider)),
			Model:         stringWithDefault(lookup, "LLM_MODEL", ""),
			BaseURL:       stringWithDefault(lookup, "LLM_API_BASE", ""),
			APIKey:        stringWithDefault(lookup, "LLM_API_KEY", ""),
			Timeout:       durationWithDefault(lookup, "LLM_TIMEOUT", defaultLLMTimeout),
			MaxRetries:    intWithDefault(lookup, "LLM_MAX_RETRIES", defaultLLMMaxRetries),
			RetryDelay:    durationWithDefault(lookup, "LLM_RETRY_DELAY", defaultLLMRetryDelay),
			ForceGenerate: boolWithDefault(lookup, "LLM_OLLAMA_FORCE_GENERATE", false),
		},
		Limits: LimitsConfig{
			TextMaxLength: intWithDefault(lookup, "API_LIMITS_TEXT_MAX", defaultTextMaxLength),
			MinQuantity:   intWithDefault(lookup, "API_LIMITS_MIN_QUANTITY", defaultMinQuantity),
			MaxQuantity:   intWithDefault(lookup, "API_LIMITS_MAX_QUANTITY", defaultMaxQuantity),
		},
		RateLimits: RateLimitConfig{
			ChatPerWindow: intWithDefault(lookup, "API_RATELIMIT_CHAT_PER_MIN", defaultRateLimitChat),
			Window:        durationWithDefault(lookup, "API_RATELIMIT_WINDOW", defaultRateLimitWindow),
		},
		Commerce: CommerceConfig{
			Currency:             stringWithDefault(lookup, "API_COMMERCE_CURRENCY", defaultCurrency),
			PrintFee:             floatWithDefault(lookup, "API_COMMERCE_PRINT_FEE", defaultPrintFee),
			DeliveryEstimateDays: intWithDefault(lookup, "API_COMMERCE_DELIVERY_DAYS", defaultDeliveryDays),
			MerchantID:           stringWithDefault(lookup, "API_COMMERCE_MERCHANT_ID", defaultMerchantID),
		},
	}

	// Provider-specific model and base URL defaults.
	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.Model == "" {
			cfg.LLM.Model = "qwen2.5-14b-instruct"
		}
	case "groq":
		if cfg.LLM.Model == "" {
			cfg.LLM.Model = "llama-3.3-70b-versatile"
		}
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = "https://api.groq.com/openai/v1"
		}
	default:
		if cfg.LLM.Model == "" {
			cfg.LLM.Model = defaultOllamaModel
		}
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = stringWithDefault(lookup, "OLLAMA_HOST", defaultOllamaURL)
		}
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	switch cfg.LLM.Provider {
	case "ollama":
	case "openai", "groq":
		if cfg.LLM.APIKey == "" {
			missing = append(missing, "LLM.APIKey")
		}
		if cfg.LLM.BaseURL == "" {
			missing = append(missing, "LLM.BaseURL")
		}
	default:
		missing = append(missing, "LLM.Provider")
	}
	if cfg.Limits.TextMaxLength <= 0 {
		missing = append(missing, "Limits.TextMaxLength")
	}
	if cfg.Limits.MinQuantity <= 0 || cfg.Limits.MaxQuantity < cfg.Limits.MinQuantity {
		missing = append(missing, "Limits.MaxQuantity")
	}
	if cfg.Commerce.Currency == "" {
		missing = append(missing, "Commerce.Currency")
	}
	if cfg.Commerce.DeliveryEstimateDays <= 0 {
		missing = append(missing, "Commerce.DeliveryEstimateDays")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func floatWithDefault(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
