package common

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/roster-scan/constants"
	"github.com/joseph-ayodele/roster-scan/internal/entity"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ROSTER_CONFIG", "")
	t.Setenv("LLM_MODELS", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, 55*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, constants.MaxImageBytes, cfg.Server.MaxImageBytes)
	assert.Equal(t, []string{"gemini-2.5-flash", "gemini-2.0-flash"}, cfg.LLM.Models)
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, 30, cfg.Usage.DefaultScanLimit)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  http_addr: ":9000"
  allowed_origins: ["https://app.example.com"]
llm:
  provider: openai
  models: ["gpt-4o-mini"]
usage:
  default_scan_limit: 5
`), 0o600))

	t.Setenv("ROSTER_CONFIG", path)
	t.Setenv("HTTP_ADDR", ":9100")
	t.Setenv("LLM_MODELS", "")
	t.Setenv("AUTH_TOKENS", "abc:user-1, bad, def:user-2")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.HTTPAddr)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, []string{"gpt-4o-mini"}, cfg.LLM.Models)
	assert.Equal(t, 5, cfg.Usage.DefaultScanLimit)
	assert.Equal(t, map[string]string{"abc": "user-1", "def": "user-2"}, cfg.Auth.Tokens)
}

func TestLoadConfig_BadFile(t *testing.T) {
	t.Setenv("ROSTER_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Equal(t, constants.ErrConfig, ErrorTypeOf(err))
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM_API_KEY")

	cfg.LLM.APIKey = "k"
	require.NoError(t, cfg.Validate())

	cfg.LLM.Models = nil
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.LLM.APIKey = "k"
	cfg.Store.Driver = "mongo"
	assert.Error(t, cfg.Validate())

	cfg.Store.Driver = StoreFirestore
	assert.Error(t, cfg.Validate())
	cfg.Store.FirestoreProject = "proj"
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidateLLM_IgnoresStore(t *testing.T) {
	t.Setenv("HEIC_CONVERTER", "sips")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sips", cfg.LLM.HEICConverter)

	cfg.LLM.APIKey = "k"
	cfg.Store.Driver = "mongo"
	assert.NoError(t, cfg.ValidateLLM())
	assert.Error(t, cfg.ValidateStore())

	cfg.LLM.Provider = "claude"
	assert.Error(t, cfg.ValidateLLM())
}

func TestAppError(t *testing.T) {
	cause := errors.New("boom")
	err := WrapError(NewAppError(constants.ErrNetwork, "upstream", cause), "scan")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, constants.ErrNetwork, ErrorTypeOf(err))
	assert.Equal(t, constants.ErrUnknown, ErrorTypeOf(cause))
	assert.Nil(t, WrapError(nil, "noop"))
}

func TestContextHelpers(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithUser(ctx, entity.User{ID: "u1"})
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	u, ok := UserFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", u.ID)

	_, ok = UserFromContext(context.Background())
	assert.False(t, ok)
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("imageBase64", "", Required).
		Field("identifier", "short", MaxLength(10))
	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 1)

	err := ValidateAndReturnError(v)
	assert.Equal(t, constants.ErrInvalidInput, ErrorTypeOf(err))
	assert.Contains(t, err.Error(), "imageBase64 is required")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	l.Info("hidden")
	l.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
