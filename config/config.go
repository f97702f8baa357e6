// Package config loads resumetext settings from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wudi/resumetext/security"
)

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	OCR        OCRConfig        `yaml:"ocr"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Limits     LimitsConfig     `yaml:"limits"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// OCRConfig holds recognition engine settings.
type OCRConfig struct {
	Language       string `yaml:"language"`
	TessdataPrefix string `yaml:"tessdata_prefix"`
	PageSegMode    int    `yaml:"page_seg_mode"`
	// Whitelist restricts recognition to these characters when set.
	Whitelist string `yaml:"whitelist"`
}

// ExtractionConfig tunes the extraction pipeline.
type ExtractionConfig struct {
	MinNativeChars int       `yaml:"min_native_chars"`
	MinOCRChars    int       `yaml:"min_ocr_chars"`
	RenderScales   []float64 `yaml:"render_scales"`
	FontErrorTerms []string  `yaml:"font_error_terms"`
	// Strict fails the call on any page error instead of skipping the page.
	// Font errors still route the document to OCR. This departs from the
	// default behaviour, which tolerates individual page failures.
	Strict bool `yaml:"strict"`
}

// LimitsConfig bounds uploads.
type LimitsConfig struct {
	MaxPDFSize        int64         `yaml:"max_pdf_size"`
	MaxImageSize      int64         `yaml:"max_image_size"`
	MaxImageDimension int           `yaml:"max_image_dimension"`
	MaxImagePixels    int64         `yaml:"max_image_pixels"`
	ExtractTimeout    time.Duration `yaml:"extract_timeout"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	lim := security.DefaultLimits()
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     3 * time.Minute,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 10 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "console"},
		OCR: OCRConfig{Language: "eng"},
		Extraction: ExtractionConfig{
			MinNativeChars: 50,
			MinOCRChars:    20,
			RenderScales:   []float64{2, 1},
		},
		Limits: LimitsConfig{
			MaxPDFSize:        lim.MaxPDFSize,
			MaxImageSize:      lim.MaxImageSize,
			MaxImageDimension: lim.MaxImageDimension,
			MaxImagePixels:    lim.MaxImagePixels,
			ExtractTimeout:    lim.MaxExtractTime,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}
	if c.OCR.Language == "" {
		return fmt.Errorf("ocr language must be set")
	}
	if c.OCR.PageSegMode < 0 || c.OCR.PageSegMode > 13 {
		return fmt.Errorf("invalid page segmentation mode: %d", c.OCR.PageSegMode)
	}
	if c.Extraction.MinNativeChars < 1 || c.Extraction.MinOCRChars < 1 {
		return fmt.Errorf("minimum character counts must be positive")
	}
	if len(c.Extraction.RenderScales) == 0 {
		return fmt.Errorf("at least one render scale is required")
	}
	for _, s := range c.Extraction.RenderScales {
		if s <= 0 || s > 8 {
			return fmt.Errorf("render scale out of range: %v", s)
		}
	}
	if c.Limits.MaxPDFSize <= 0 || c.Limits.MaxImageSize <= 0 {
		return fmt.Errorf("upload size limits must be positive")
	}
	if c.Limits.MaxImageDimension < 0 {
		return fmt.Errorf("max image dimension must not be negative")
	}
	if c.Limits.MaxImagePixels <= 0 {
		return fmt.Errorf("max image pixels must be positive")
	}
	return nil
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SecurityLimits converts the upload settings to security.Limits.
func (c *Config) SecurityLimits() security.Limits {
	lim := security.DefaultLimits()
	lim.MaxPDFSize = c.Limits.MaxPDFSize
	lim.MaxImageSize = c.Limits.MaxImageSize
	lim.MaxImageDimension = c.Limits.MaxImageDimension
	lim.MaxImagePixels = c.Limits.MaxImagePixels
	lim.MaxExtractTime = c.Limits.ExtractTimeout
	return lim
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("RESUMETEXT_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("RESUMETEXT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RESUMETEXT_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("RESUMETEXT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("RESUMETEXT_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("RESUMETEXT_OCR_LANGUAGE"); v != "" {
		cfg.OCR.Language = v
	}
	if v := os.Getenv("TESSDATA_PREFIX"); v != "" && cfg.OCR.TessdataPrefix == "" {
		cfg.OCR.TessdataPrefix = v
	}
	if v := os.Getenv("RESUMETEXT_OCR_PSM"); v != "" {
		psm, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RESUMETEXT_OCR_PSM: %w", err)
		}
		cfg.OCR.PageSegMode = psm
	}
	if v := os.Getenv("RESUMETEXT_RENDER_SCALES"); v != "" {
		scales, err := parseScales(v)
		if err != nil {
			return fmt.Errorf("RESUMETEXT_RENDER_SCALES: %w", err)
		}
		cfg.Extraction.RenderScales = scales
	}
	if v := os.Getenv("RESUMETEXT_STRICT"); v != "" {
		strict, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RESUMETEXT_STRICT: %w", err)
		}
		cfg.Extraction.Strict = strict
	}
	if v := os.Getenv("RESUMETEXT_EXTRACT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RESUMETEXT_EXTRACT_TIMEOUT: %w", err)
		}
		cfg.Limits.ExtractTimeout = d
	}
	return nil
}

func parseScales(v string) ([]float64, error) {
	parts := strings.Split(v, ",")
	scales := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		s, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		scales = append(scales, s)
	}
	return scales, nil
}
