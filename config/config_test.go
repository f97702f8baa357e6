package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Extraction.MinNativeChars != 50 || cfg.Extraction.MinOCRChars != 20 {
		t.Fatalf("unexpected thresholds %+v", cfg.Extraction)
	}
	if len(cfg.Extraction.RenderScales) != 2 || cfg.Extraction.RenderScales[0] != 2 {
		t.Fatalf("unexpected scales %v", cfg.Extraction.RenderScales)
	}
	lim := cfg.SecurityLimits()
	if lim.MaxPDFSize != 10<<20 || lim.MaxImageSize != 5<<20 {
		t.Fatalf("unexpected limits %+v", lim)
	}
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "resumetext.yaml")
	yml := `
server:
  port: 9090
  read_timeout: 5s
log:
  level: debug
  format: json
ocr:
  language: eng+fra
extraction:
  render_scales: [3, 1.5]
  font_error_terms: ["charproc"]
limits:
  extract_timeout: 45s
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RESUMETEXT_PORT", "9191")
	t.Setenv("TESSDATA_PREFIX", "/opt/tessdata")
	t.Setenv("RESUMETEXT_STRICT", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9191 || cfg.Server.ReadTimeout != 5*time.Second {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Fatalf("unexpected log config %+v", cfg.Log)
	}
	if cfg.OCR.Language != "eng+fra" || cfg.OCR.TessdataPrefix != "/opt/tessdata" {
		t.Fatalf("unexpected ocr config %+v", cfg.OCR)
	}
	if got := cfg.Extraction.RenderScales; len(got) != 2 || got[0] != 3 || got[1] != 1.5 {
		t.Fatalf("unexpected scales %v", got)
	}
	if !cfg.Extraction.Strict || len(cfg.Extraction.FontErrorTerms) != 1 {
		t.Fatalf("unexpected extraction config %+v", cfg.Extraction)
	}
	if cfg.Limits.ExtractTimeout != 45*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.Limits.ExtractTimeout)
	}
	if cfg.Addr() != "0.0.0.0:9191" {
		t.Fatalf("Addr() = %q", cfg.Addr())
	}
}

func TestEnvErrors(t *testing.T) {
	t.Setenv("RESUMETEXT_RENDER_SCALES", "2,abc")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "RESUMETEXT_RENDER_SCALES") {
		t.Fatalf("expected scales error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []func(*Config){
		func(c *Config) { c.Server.Port = 0 },
		func(c *Config) { c.Log.Format = "xml" },
		func(c *Config) { c.OCR.Language = "" },
		func(c *Config) { c.OCR.PageSegMode = 14 },
		func(c *Config) { c.Extraction.MinOCRChars = 0 },
		func(c *Config) { c.Extraction.RenderScales = nil },
		func(c *Config) { c.Extraction.RenderScales = []float64{2, -1} },
		func(c *Config) { c.Limits.MaxPDFSize = 0 },
		func(c *Config) { c.Limits.MaxImagePixels = 0 },
	}
	for i, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
