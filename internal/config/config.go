// Package config provides configuration management for platescan.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/platinummonkey/platescan/internal/ocr"
	"github.com/platinummonkey/platescan/internal/plate"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration settings for platescan.
// Configuration precedence: CLI flags > Environment variables > Config file > Defaults
type Config struct {
	// Confidence is the minimum block confidence (0-100) for a plate to be reported
	Confidence float64

	// Pattern replaces the built-in plate layouts with a custom regular expression
	Pattern string

	// IncludeLowConfidence also reports plates between LowConfidenceThreshold and Confidence
	IncludeLowConfidence bool

	// LowConfidenceThreshold is the floor of the low-confidence tier
	LowConfidenceThreshold float64

	// Enhance runs image enhancement before OCR
	Enhance bool

	// MaxDimension shrinks large frames before OCR (0 = keep original size)
	MaxDimension int

	// OutputFormat is one of table, json, csv, xlsx, pdf, yaml
	OutputFormat string

	// OutputPath writes the report to a file instead of stdout
	OutputPath string

	// LogLevel controls logging verbosity (debug, info, warn, error)
	LogLevel string

	// LogFormat is console or json
	LogFormat string

	// Workers is the number of images processed concurrently in folder mode
	Workers int

	// StateFile is the path to the watch-mode state file
	StateFile string

	// WatchInterval is the duration between folder scans in watch mode
	WatchInterval time.Duration

	// HealthAddr is the listen address of the watch-mode status server (empty = disabled)
	HealthAddr string

	// PIDFile is written in watch mode when set
	PIDFile string

	// OCR configuration
	OCR OCRConfig
}

// OCRConfig holds configuration for the OCR provider
type OCRConfig struct {
	// Provider is the OCR provider to use (tesseract, ollama, openai, anthropic, google)
	Provider string

	// Model is the vision model to use (empty = provider default)
	Model string

	// Endpoint overrides the provider API endpoint
	Endpoint string

	// APIKey is the API key for cloud providers (typically from env vars or keychain)
	// This will be populated from:
	// 1. macOS Keychain (if UseKeychain is true)
	// 2. Environment variables:
	//    - OPENAI_API_KEY for OpenAI
	//    - ANTHROPIC_API_KEY for Anthropic
	//    - GOOGLE_API_KEY or GOOGLE_APPLICATION_CREDENTIALS for Google
	APIKey string

	// MaxRetries is the maximum number of retry attempts for API calls
	MaxRetries int

	// RetryDelay is the initial backoff delay between attempts
	RetryDelay time.Duration

	// Temperature controls randomness (0.0 = deterministic, recommended for OCR)
	Temperature float64

	// Languages for Tesseract, joined with "+" (e.g. "eng", "eng+hin")
	Languages string

	// Timeout bounds a single recognition call
	Timeout time.Duration

	// PromptFile is an optional YAML prompt override for vision providers
	PromptFile string

	// UseKeychain enables macOS Keychain lookup for API keys (macOS only)
	UseKeychain bool

	// KeychainServicePrefix is the prefix for keychain service names
	// Service names will be: {prefix}-{provider} (e.g., "platescan-openai")
	KeychainServicePrefix string
}

// OutputFormats lists the accepted report formats.
var OutputFormats = []string{"table", "json", "csv", "xlsx", "pdf", "yaml"}

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"confidence":               "confidence",
	"pattern":                  "pattern",
	"include-low-confidence":   "include-low-confidence",
	"low-confidence-threshold": "low-confidence-threshold",
	"max-dimension":            "max-dimension",
	"format":                   "output-format",
	"output":                   "output-path",
	"log-level":                "log-level",
	"log-format":               "log-format",
	"workers":                  "workers",
	"state-file":               "state-file",
	"interval":                 "watch-interval",
	"health-addr":              "health-addr",
	"pid-file":                 "pid-file",
	"provider":                 "ocr-provider",
	"model":                    "ocr-model",
	"endpoint":                 "ocr-endpoint",
	"languages":                "ocr-languages",
	"prompt-file":              "ocr-prompt-file",
	"timeout":                  "ocr-timeout",
}

// Load reads configuration from multiple sources and returns a Config instance.
// Sources are checked in this order: CLI flags > env vars > config file > defaults.
// flags may be nil; only flags named in flagKeys are bound.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set up config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		// Look for config in home directory
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
			v.SetConfigName(".platescan")
			v.SetConfigType("yaml")
		}
	}

	// Read config file if it exists (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK - we'll use env vars and defaults
	}

	// Enable environment variable support
	v.SetEnvPrefix("PLATESCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	// Build config struct
	config := &Config{
		Confidence:             v.GetFloat64("confidence"),
		Pattern:                v.GetString("pattern"),
		IncludeLowConfidence:   v.GetBool("include-low-confidence"),
		LowConfidenceThreshold: v.GetFloat64("low-confidence-threshold"),
		Enhance:                v.GetBool("enhance"),
		MaxDimension:           v.GetInt("max-dimension"),
		OutputFormat:           v.GetString("output-format"),
		OutputPath:             v.GetString("output-path"),
		LogLevel:               v.GetString("log-level"),
		LogFormat:              v.GetString("log-format"),
		Workers:                v.GetInt("workers"),
		StateFile:              v.GetString("state-file"),
		WatchInterval:          v.GetDuration("watch-interval"),
		HealthAddr:             v.GetString("health-addr"),
		PIDFile:                v.GetString("pid-file"),
		OCR: OCRConfig{
			Provider:              v.GetString("ocr-provider"),
			Model:                 v.GetString("ocr-model"),
			Endpoint:              v.GetString("ocr-endpoint"),
			MaxRetries:            v.GetInt("ocr-max-retries"),
			RetryDelay:            v.GetDuration("ocr-retry-delay"),
			Temperature:           v.GetFloat64("ocr-temperature"),
			Languages:             v.GetString("ocr-languages"),
			Timeout:               v.GetDuration("ocr-timeout"),
			PromptFile:            v.GetString("ocr-prompt-file"),
			UseKeychain:           v.GetBool("ocr-use-keychain"),
			KeychainServicePrefix: v.GetString("ocr-keychain-service-prefix"),
		},
	}

	config.OCR.APIKey = loadAPIKeyForProvider(config.OCR.Provider, config.OCR.UseKeychain, config.OCR.KeychainServicePrefix)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Get user home directory for default paths
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	v.SetDefault("confidence", plate.DefaultThreshold)
	v.SetDefault("pattern", "")
	v.SetDefault("include-low-confidence", false)
	v.SetDefault("low-confidence-threshold", plate.DefaultLowConfidenceThreshold)
	v.SetDefault("enhance", true)
	v.SetDefault("max-dimension", 0)
	v.SetDefault("output-format", "table")
	v.SetDefault("output-path", "")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "console")
	v.SetDefault("workers", 4)
	v.SetDefault("state-file", filepath.Join(home, ".platescan-state.json"))
	v.SetDefault("watch-interval", time.Minute)
	v.SetDefault("health-addr", "")
	v.SetDefault("pid-file", "")

	// OCR defaults (local Tesseract needs no credentials)
	v.SetDefault("ocr-provider", "tesseract")
	v.SetDefault("ocr-model", "")
	v.SetDefault("ocr-endpoint", "")
	v.SetDefault("ocr-max-retries", 3)
	v.SetDefault("ocr-retry-delay", time.Second)
	v.SetDefault("ocr-temperature", 0.0)
	v.SetDefault("ocr-languages", "eng")
	v.SetDefault("ocr-timeout", 2*time.Minute)
	v.SetDefault("ocr-prompt-file", "")
	v.SetDefault("ocr-use-keychain", false)
	v.SetDefault("ocr-keychain-service-prefix", "platescan")
}

// Validate checks that the configuration is valid and internally consistent.
// It also normalizes case-insensitive values and expands ~/ in paths.
func (c *Config) Validate() error {
	if c.Confidence < 0 || c.Confidence > 100 {
		return fmt.Errorf("confidence must be between 0 and 100, got %g", c.Confidence)
	}

	if c.LowConfidenceThreshold < 0 || c.LowConfidenceThreshold > 100 {
		return fmt.Errorf("low-confidence-threshold must be between 0 and 100, got %g", c.LowConfidenceThreshold)
	}

	if c.IncludeLowConfidence && c.LowConfidenceThreshold > c.Confidence {
		return fmt.Errorf("low-confidence-threshold (%g) cannot exceed confidence (%g)", c.LowConfidenceThreshold, c.Confidence)
	}

	if c.Pattern != "" {
		if _, err := plate.CompilePattern(c.Pattern); err != nil {
			return err
		}
	}

	if c.MaxDimension < 0 {
		return fmt.Errorf("max-dimension must be non-negative, got %d", c.MaxDimension)
	}

	// Validate output format
	c.OutputFormat = strings.ToLower(c.OutputFormat)
	if !isOneOf(c.OutputFormat, OutputFormats) {
		return fmt.Errorf("invalid output-format %q, must be one of: %s", c.OutputFormat, strings.Join(OutputFormats, ", "))
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log-level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log-format %q, must be console or json", c.LogFormat)
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}

	if c.WatchInterval < 0 {
		return fmt.Errorf("watch-interval must be non-negative, got %s", c.WatchInterval)
	}

	var err error
	if c.StateFile, err = expandHome(c.StateFile); err != nil {
		return fmt.Errorf("failed to expand home directory in state-file: %w", err)
	}
	if c.OutputPath, err = expandHome(c.OutputPath); err != nil {
		return fmt.Errorf("failed to expand home directory in output-path: %w", err)
	}

	if err := c.validateOCRConfig(); err != nil {
		return fmt.Errorf("invalid OCR configuration: %w", err)
	}

	return nil
}

// validateOCRConfig validates the OCR provider configuration
func (c *Config) validateOCRConfig() error {
	c.OCR.Provider = strings.ToLower(c.OCR.Provider)
	if err := ocr.ValidateProviderConfig(c.RecognizerConfig()); err != nil {
		return err
	}

	if c.OCR.Provider == string(ocr.ProviderTesseract) && len(c.OCR.LanguageList()) == 0 {
		return fmt.Errorf("ocr-languages cannot be empty for Tesseract")
	}

	if c.OCR.Timeout < 0 {
		return fmt.Errorf("ocr-timeout must be non-negative, got %s", c.OCR.Timeout)
	}

	return nil
}

// LanguageList splits Languages on "+" or ",".
func (o OCRConfig) LanguageList() []string {
	fields := strings.FieldsFunc(o.Languages, func(r rune) bool {
		return r == '+' || r == ',' || r == ' '
	})
	return fields
}

// RecognizerConfig converts the OCR settings for ocr.NewRecognizer.
func (c *Config) RecognizerConfig() *ocr.Config {
	return &ocr.Config{
		Provider:    ocr.ProviderType(c.OCR.Provider),
		Model:       c.OCR.Model,
		Endpoint:    c.OCR.Endpoint,
		APIKey:      c.OCR.APIKey,
		MaxRetries:  c.OCR.MaxRetries,
		RetryDelay:  c.OCR.RetryDelay,
		Temperature: c.OCR.Temperature,
		Languages:   c.OCR.LanguageList(),
		Timeout:     c.OCR.Timeout,
		PromptFile:  c.OCR.PromptFile,
	}
}

// ParseOptions converts the extraction settings for plate.Parse.
func (c *Config) ParseOptions() plate.ParseOptions {
	opts := plate.DefaultParseOptions()
	opts.Threshold = c.Confidence
	opts.Pattern = c.Pattern
	opts.IncludeLowConfidence = c.IncludeLowConfidence
	opts.LowConfidenceThreshold = c.LowConfidenceThreshold
	return opts
}

func isOneOf(s string, options []string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[2:]), nil
}

// loadAPIKeyForProvider returns the provider's API key, preferring the macOS
// Keychain when enabled and falling back to the environment.
func loadAPIKeyForProvider(provider string, useKeychain bool, keychainPrefix string) string {
	p := ocr.ProviderType(strings.ToLower(provider))
	if !ocr.RequiresAPIKey(p) {
		return ""
	}
	if useKeychain && runtime.GOOS == "darwin" {
		if key := keychainSecret(fmt.Sprintf("%s-%s", keychainPrefix, p)); key != "" {
			return key
		}
	}
	for _, env := range ocr.APIKeyEnv(p) {
		if key := os.Getenv(env); key != "" {
			return key
		}
	}
	return ""
}

// keychainSecret reads a generic password by service name, e.g.
// "platescan-openai". Lookup failures yield "".
func keychainSecret(service string) string {
	out, err := exec.Command("security", "find-generic-password", "-s", service, "-w").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// String returns a string representation of the configuration (with sensitive data redacted)
func (c *Config) String() string {
	apiKey := "not set"
	if c.OCR.APIKey != "" {
		if len(c.OCR.APIKey) > 8 {
			apiKey = "***" + c.OCR.APIKey[len(c.OCR.APIKey)-4:]
		} else {
			apiKey = "***"
		}
	}

	pattern := c.Pattern
	if pattern == "" {
		pattern = "built-in layouts"
	}

	return fmt.Sprintf(`Configuration:
  Confidence: %.2f
  Pattern: %s
  IncludeLowConfidence: %t
  LowConfidenceThreshold: %.2f
  Enhance: %t
  MaxDimension: %d
  OutputFormat: %s
  OutputPath: %s
  LogLevel: %s
  Workers: %d
  StateFile: %s
  WatchInterval: %s
  OCR:
    Provider: %s
    Model: %s
    Endpoint: %s
    APIKey: %s
    MaxRetries: %d
    Temperature: %.2f
    Languages: %s
    Timeout: %s
    UseKeychain: %t
    KeychainServicePrefix: %s`,
		c.Confidence,
		pattern,
		c.IncludeLowConfidence,
		c.LowConfidenceThreshold,
		c.Enhance,
		c.MaxDimension,
		c.OutputFormat,
		c.OutputPath,
		c.LogLevel,
		c.Workers,
		c.StateFile,
		c.WatchInterval,
		c.OCR.Provider,
		c.OCR.Model,
		c.OCR.Endpoint,
		apiKey,
		c.OCR.MaxRetries,
		c.OCR.Temperature,
		c.OCR.Languages,
		c.OCR.Timeout,
		c.OCR.UseKeychain,
		c.OCR.KeychainServicePrefix,
	)
}
