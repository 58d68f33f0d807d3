// Package config assembles process configuration from the environment,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/denimozh/mathstutor-sub000/internal/llm"
	"github.com/denimozh/mathstutor-sub000/internal/ocr"
	"github.com/denimozh/mathstutor-sub000/internal/store"
)

// OCR engine names accepted by OCR.Provider.
const (
	OCRVision  = "vision"
	OCRMathpix = "mathpix"
	OCRNone    = "none"
)

const DefaultAddr = ":8080"

type Config struct {
	LLM   llm.Config
	Store store.Config
	OCR   OCR

	// RedisURL enables the mark-scheme cache when set.
	RedisURL string

	// JWTSecret verifies Supabase access tokens. Empty disables auth.
	JWTSecret string

	Addr        string
	LogMode     string
	OTelEnabled bool

	// CORSOrigins are the browser origins allowed to call the API.
	CORSOrigins []string
}

type OCR struct {
	Provider        string
	CredentialsFile string
	Mathpix         ocr.MathpixConfig
}

// LoadDotEnv reads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FromEnv reads configuration from environment variables. When no
// MATHSTUTOR_LLM_PROVIDER is set, the vendors' standard API key variables
// are tried.
func FromEnv() Config {
	cfg := Config{
		LLM:         llm.ConfigFromEnv(),
		Addr:        DefaultAddr,
		LogMode:     "dev",
		CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		OCR:         OCR{Provider: OCRNone},
	}
	if os.Getenv("MATHSTUTOR_LLM_PROVIDER") == "" {
		if discovered, ok := llm.DiscoverConfig(); ok {
			cfg.LLM = discovered
		}
	}

	cfg.Store.Driver = getEnv("MATHSTUTOR_DB_DRIVER", "sqlite")
	cfg.Store.DSN = os.Getenv("MATHSTUTOR_DB")
	cfg.RedisURL = os.Getenv("MATHSTUTOR_REDIS_URL")

	cfg.OCR.Provider = strings.ToLower(getEnv("MATHSTUTOR_OCR_PROVIDER", cfg.OCR.Provider))
	cfg.OCR.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	cfg.OCR.Mathpix = ocr.MathpixConfig{
		AppID:  os.Getenv("MATHPIX_APP_ID"),
		AppKey: os.Getenv("MATHPIX_APP_KEY"),
	}
	if v := os.Getenv("MATHPIX_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.OCR.Mathpix.Timeout = d
		}
	}

	cfg.JWTSecret = os.Getenv("SUPABASE_JWT_SECRET")
	cfg.Addr = getEnv("MATHSTUTOR_ADDR", cfg.Addr)
	cfg.LogMode = getEnv("MATHSTUTOR_LOG_MODE", cfg.LogMode)
	cfg.OTelEnabled = truthy(os.Getenv("OTEL_ENABLED"))
	if v := os.Getenv("MATHSTUTOR_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	return cfg
}

// Validate checks settings that would otherwise fail late.
func (c Config) Validate() error {
	var errs []error
	if err := c.LLM.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch c.OCR.Provider {
	case OCRVision, OCRNone, "":
	case OCRMathpix:
		if c.OCR.Mathpix.AppID == "" || c.OCR.Mathpix.AppKey == "" {
			errs = append(errs, errors.New("MATHPIX_APP_ID and MATHPIX_APP_KEY are required for the mathpix OCR provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown OCR provider %q", c.OCR.Provider))
	}
	switch strings.ToLower(c.Store.Driver) {
	case "", "sqlite", "sqlite3":
	case "postgres", "postgresql", "pgx", "supabase":
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("MATHSTUTOR_DB is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Store.Driver))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
