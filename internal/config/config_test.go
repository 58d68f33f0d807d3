package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denimozh/mathstutor-sub000/internal/llm"
	"github.com/denimozh/mathstutor-sub000/internal/store"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MATHSTUTOR_LLM_PROVIDER", "ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "OPENROUTER_API_KEY",
		"MATHSTUTOR_DB_DRIVER", "MATHSTUTOR_DB", "MATHSTUTOR_REDIS_URL", "MATHSTUTOR_OCR_PROVIDER",
		"MATHPIX_APP_ID", "MATHPIX_APP_KEY", "SUPABASE_JWT_SECRET", "MATHSTUTOR_ADDR",
		"MATHSTUTOR_LOG_MODE", "OTEL_ENABLED", "MATHSTUTOR_CORS_ORIGINS", "MATHSTUTOR_DOTENV_PROBE",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := FromEnv()
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, OCRNone, cfg.OCR.Provider)
	assert.False(t, cfg.OTelEnabled)
	assert.Empty(t, cfg.JWTSecret)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MATHSTUTOR_LLM_PROVIDER", "mock")
	t.Setenv("MATHSTUTOR_DB_DRIVER", "postgres")
	t.Setenv("MATHSTUTOR_DB", "postgres://localhost/mathstutor")
	t.Setenv("MATHSTUTOR_OCR_PROVIDER", "Mathpix")
	t.Setenv("MATHPIX_APP_ID", "id")
	t.Setenv("MATHPIX_APP_KEY", "key")
	t.Setenv("OTEL_ENABLED", "yes")
	t.Setenv("MATHSTUTOR_CORS_ORIGINS", "https://app.example.com, ,http://localhost:3000")

	cfg := FromEnv()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, llm.ProviderMock, cfg.LLM.Provider)
	assert.Equal(t, OCRMathpix, cfg.OCR.Provider)
	assert.True(t, cfg.OTelEnabled)
	assert.Equal(t, []string{"https://app.example.com", "http://localhost:3000"}, cfg.CORSOrigins)
}

func TestFromEnv_DiscoversVendorKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg := FromEnv()
	assert.Equal(t, llm.ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
}

func TestValidate(t *testing.T) {
	mock := llm.Config{Provider: llm.ProviderMock}
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"mock sqlite", Config{LLM: mock}, false},
		{"mathpix without keys", Config{LLM: mock, OCR: OCR{Provider: OCRMathpix}}, true},
		{"unknown ocr", Config{LLM: mock, OCR: OCR{Provider: "tesseract"}}, true},
		{"postgres without dsn", Config{LLM: mock, Store: store.Config{Driver: "postgres"}}, true},
		{"postgres with dsn", Config{LLM: mock, Store: store.Config{Driver: "supabase", DSN: "postgres://db"}}, false},
		{"unknown driver", Config{LLM: mock, Store: store.Config{Driver: "oracle"}}, true},
		{"missing llm key", Config{LLM: llm.Config{Provider: llm.ProviderAnthropic}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "Validate() = %v", err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MATHSTUTOR_DOTENV_PROBE=from-file\n"), 0o600))
	require.NoError(t, os.Unsetenv("MATHSTUTOR_DOTENV_PROBE"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("MATHSTUTOR_DOTENV_PROBE"))
}
