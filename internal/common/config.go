package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/roster-scan/constants"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	LLM    LLMConfig    `yaml:"llm"`
	Auth   AuthConfig   `yaml:"auth"`
	Usage  UsageConfig  `yaml:"usage"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds HTTP boundary configuration
type ServerConfig struct {
	HTTPAddr           string        `yaml:"http_addr"`
	GRPCHealthAddr     string        `yaml:"grpc_health_addr"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	MaxImageBytes      int           `yaml:"max_image_bytes"`
	AllowedOrigins     []string      `yaml:"allowed_origins"`
	PreviewSuffix      string        `yaml:"preview_suffix"`
	PreviewMarker      string        `yaml:"preview_marker"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute"`
}

// StoreConfig holds quota/audit store configuration
type StoreConfig struct {
	Driver           string        `yaml:"driver"`
	DSN              string        `yaml:"dsn"`
	FirestoreProject string        `yaml:"firestore_project"`
	CredentialsFile  string        `yaml:"credentials_file"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
}

// LLMConfig holds model invocation configuration
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Models      []string      `yaml:"models"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`

	// HEICConverter is auto, heif-convert, magick or sips; empty sends HEIC to the backend untouched.
	HEICConverter string `yaml:"heic_converter"`
	HEICCacheDir  string `yaml:"heic_cache_dir"`
}

// AuthConfig holds bearer credential verification settings
type AuthConfig struct {
	Tokens  map[string]string `yaml:"tokens"`
	UserURL string            `yaml:"user_url"`
	APIKey  string            `yaml:"api_key"`
}

// UsageConfig holds quota defaults
type UsageConfig struct {
	DefaultScanLimit int `yaml:"default_scan_limit"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	StoreSQLite    = "sqlite"
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultConfig returns the configuration used when neither file nor env set a value
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:       ":8080",
			GRPCHealthAddr: ":8081",
			RequestTimeout: 55 * time.Second,
			MaxImageBytes:  constants.MaxImageBytes,
			PreviewSuffix:  ".vercel.app",
		},
		Store: StoreConfig{
			Driver:          StoreSQLite,
			DSN:             "file:roster.db?_pragma=busy_timeout(5000)",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		LLM: LLMConfig{
			Provider:    ProviderGemini,
			Models:      []string{"gemini-2.5-flash", "gemini-2.0-flash"},
			Temperature: 0.1,
			Timeout:     45 * time.Second,
		},
		Usage: UsageConfig{DefaultScanLimit: 30},
		Log:   LogConfig{Level: "info", Format: "json"},
	}
}

// LoadConfig loads configuration from the optional ROSTER_CONFIG file, then environment variables
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	if path := os.Getenv("ROSTER_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return NewAppError(constants.ErrConfig, "read config file", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return NewAppError(constants.ErrConfig, "parse config file "+path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	s := &c.Server
	s.HTTPAddr = getEnv("HTTP_ADDR", s.HTTPAddr)
	s.GRPCHealthAddr = getEnv("GRPC_HEALTH_ADDR", s.GRPCHealthAddr)
	s.RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", s.RequestTimeout)
	s.MaxImageBytes = getEnvAsInt("MAX_IMAGE_BYTES", s.MaxImageBytes)
	s.AllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", s.AllowedOrigins)
	s.PreviewSuffix = getEnv("CORS_PREVIEW_SUFFIX", s.PreviewSuffix)
	s.PreviewMarker = getEnv("CORS_PREVIEW_MARKER", s.PreviewMarker)
	s.RateLimitPerMinute = getEnvAsInt("RATE_LIMIT_PER_MINUTE", s.RateLimitPerMinute)

	st := &c.Store
	st.Driver = strings.ToLower(getEnv("STORE_DRIVER", st.Driver))
	st.DSN = getEnv("DB_URL", st.DSN)
	st.FirestoreProject = getEnv("FIRESTORE_PROJECT", st.FirestoreProject)
	st.CredentialsFile = getEnv("FIRESTORE_CREDENTIALS_FILE", st.CredentialsFile)
	st.MaxConns = getEnvAsInt32("DB_MAX_CONNS", st.MaxConns)
	st.MinConns = getEnvAsInt32("DB_MIN_CONNS", st.MinConns)
	st.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", st.MaxConnLifetime)
	st.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", st.DialTimeout)

	l := &c.LLM
	l.Provider = strings.ToLower(getEnv("LLM_PROVIDER", l.Provider))
	l.APIKey = getEnv("LLM_API_KEY", l.APIKey)
	l.BaseURL = getEnv("LLM_BASE_URL", l.BaseURL)
	l.Models = getEnvAsList("LLM_MODELS", l.Models)
	l.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", l.Temperature)
	l.Timeout = getEnvAsDuration("LLM_TIMEOUT", l.Timeout)
	l.HEICConverter = getEnv("HEIC_CONVERTER", l.HEICConverter)
	l.HEICCacheDir = getEnv("HEIC_CACHE_DIR", l.HEICCacheDir)

	if raw := os.Getenv("AUTH_TOKENS"); raw != "" {
		c.Auth.Tokens = parseTokenTable(raw)
	}
	c.Auth.UserURL = getEnv("AUTH_USER_URL", c.Auth.UserURL)
	c.Auth.APIKey = getEnv("AUTH_API_KEY", c.Auth.APIKey)

	c.Usage.DefaultScanLimit = getEnvAsInt("DEFAULT_SCAN_LIMIT", c.Usage.DefaultScanLimit)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// parseTokenTable reads "token:user,token2:user2".
func parseTokenTable(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		tok, user, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || tok == "" || user == "" {
			continue
		}
		out[tok] = user
	}
	return out
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if err := c.ValidateLLM(); err != nil {
		return err
	}
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError(constants.ErrConfig, "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Server.MaxImageBytes <= 0 {
		return NewAppError(constants.ErrConfig, "MAX_IMAGE_BYTES must be positive", ErrInvalidInput)
	}
	return nil
}

// ValidateLLM checks only the model section; used by the local CLIs.
func (c *Config) ValidateLLM() error {
	if c.LLM.APIKey == "" {
		return NewAppError(constants.ErrConfig, "LLM_API_KEY is required", ErrInvalidInput)
	}
	if len(c.LLM.Models) == 0 {
		return NewAppError(constants.ErrConfig, "LLM_MODELS must list at least one model", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return NewAppError(constants.ErrConfig, fmt.Sprintf("unsupported LLM_PROVIDER %q", c.LLM.Provider), ErrInvalidInput)
	}
	return nil
}

// ValidateStore checks only the store section; used by tools that never call a model.
func (c *Config) ValidateStore() error {
	switch c.Store.Driver {
	case StoreSQLite, StorePostgres:
		if c.Store.DSN == "" {
			return NewAppError(constants.ErrConfig, "DB_URL is required", ErrInvalidInput)
		}
	case StoreFirestore:
		if c.Store.FirestoreProject == "" {
			return NewAppError(constants.ErrConfig, "FIRESTORE_PROJECT is required", ErrInvalidInput)
		}
	default:
		return NewAppError(constants.ErrConfig, fmt.Sprintf("unsupported STORE_DRIVER %q", c.Store.Driver), ErrInvalidInput)
	}
	return nil
}
