package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Masterminds/semver/v3"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// FormatConstraint is the range of config file format versions this build reads.
const FormatConstraint = "~0.1"

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"

	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

type ServerConfig struct {
	Port               string   `toml:"port" env:"INTERVIEW_SERVER_PORT"`
	HandleCORS         bool     `toml:"handle_cors"`
	AllowedOrigins     []string `toml:"allowed_origins"`
	RequestTimeout     string   `toml:"request_timeout"`
	MaxRequestBodySize int64    `toml:"max_request_body_size"`
}

func (s *ServerConfig) GetRequestTimeout() time.Duration {
	return mustDuration(s.RequestTimeout)
}

// GenerationConfig configures the text-generation provider. Without an API
// key every turn takes the heuristic path.
type GenerationConfig struct {
	Provider      string  `toml:"provider" env:"INTERVIEW_GENERATION_PROVIDER"`
	APIKey        string  `toml:"-" env:"OPENAI_API_KEY"`
	BaseURL       string  `toml:"base_url" env:"OPENAI_BASE_URL"`
	Model         string  `toml:"model" env:"INTERVIEW_GENERATION_MODEL"`
	Temperature   float64 `toml:"temperature"`
	MaxTokens     int64   `toml:"max_tokens"`
	Timeout       string  `toml:"timeout"`
	RetryAttempts uint    `toml:"retry_attempts"`
	RetryDelay    string  `toml:"retry_delay"`
}

func (g *GenerationConfig) GetTimeout() time.Duration {
	return mustDuration(g.Timeout)
}

func (g *GenerationConfig) GetRetryDelay() time.Duration {
	return mustDuration(g.RetryDelay)
}

// Enabled reports whether a real provider should be wired.
func (g *GenerationConfig) Enabled() bool {
	return g.Provider == ProviderOpenAI && g.APIKey != ""
}

type StoreConfig struct {
	Backend  string `toml:"backend" env:"INTERVIEW_STORE_BACKEND"`
	DSN      string `toml:"-" env:"INTERVIEW_DB_DSN"`
	Table    string `toml:"table"`
	Compress bool   `toml:"compress"`
}

type InterviewConfig struct {
	DefaultQuestionCount int    `toml:"default_question_count"`
	MaxHistoryMessages   int    `toml:"max_history_messages"`
	PromptsFile          string `toml:"prompts_file" env:"INTERVIEW_PROMPTS_FILE"`
}

// AuthConfig selects how the caller's identity is established. With a JWT
// secret the owner is the token subject; otherwise OwnerHeader is trusted.
type AuthConfig struct {
	JWTSecret   string `toml:"-" env:"INTERVIEW_JWT_SECRET"`
	JWTIssuer   string `toml:"jwt_issuer"`
	OwnerHeader string `toml:"owner_header"`
	ClockSkew   string `toml:"clock_skew"`
}

func (a *AuthConfig) GetClockSkew() time.Duration {
	return mustDuration(a.ClockSkew)
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

func (r *RateLimitConfig) Enabled() bool {
	return r.RequestsPerSecond > 0
}

// ConfigParam holds all configuration parameters for the interview server
type ConfigParam struct {
	FormatVersion string `toml:"format_version"`
	LogLevel      string `toml:"log_level" env:"INTERVIEW_LOG_LEVEL"`

	Server     ServerConfig     `toml:"server"`
	Generation GenerationConfig `toml:"generation"`
	Store      StoreConfig      `toml:"store"`
	Interview  InterviewConfig  `toml:"interview"`
	Auth       AuthConfig       `toml:"auth"`
	RateLimit  RateLimitConfig  `toml:"rate_limit"`
}

var cfg *ConfigParam

// Config returns the current configuration
func Config() *ConfigParam {
	return cfg
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(fmt.Sprintf("invalid duration %q: %v", s, err))
	}
	return d
}

// ValidateConfig checks required values and fills defaults
func ValidateConfig(cfg *ConfigParam) error {
	if err := validateFormatVersion(cfg); err != nil {
		return err
	}
	if err := validateServerConfig(cfg); err != nil {
		return err
	}
	if err := validateGenerationConfig(cfg); err != nil {
		return err
	}
	if err := validateStoreConfig(cfg); err != nil {
		return err
	}
	if err := validateInterviewConfig(cfg); err != nil {
		return err
	}
	if err := validateAuthConfig(cfg); err != nil {
		return err
	}
	if cfg.RateLimit.RequestsPerSecond < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	if cfg.RateLimit.Enabled() && cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 1
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return nil
}

func validateFormatVersion(cfg *ConfigParam) error {
	constraint, err := semver.NewConstraint(FormatConstraint)
	if err != nil {
		return err
	}
	v, err := semver.NewVersion(cfg.FormatVersion)
	if err != nil {
		return fmt.Errorf("invalid format_version %q: %v", cfg.FormatVersion, err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("unsupported config file format version: %s", cfg.FormatVersion)
	}
	return nil
}

func validateDuration(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", name)
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %v", name, err)
	}
	if d < 0 {
		return fmt.Errorf("%s must not be negative", name)
	}
	return nil
}

func validateServerConfig(cfg *ConfigParam) error {
	if cfg.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if cfg.Server.RequestTimeout == "" {
		cfg.Server.RequestTimeout = "60s"
	}
	if cfg.Server.MaxRequestBodySize <= 0 {
		cfg.Server.MaxRequestBodySize = 1 << 20
	}
	return validateDuration("server.request_timeout", cfg.Server.RequestTimeout)
}

func validateGenerationConfig(cfg *ConfigParam) error {
	g := &cfg.Generation
	switch g.Provider {
	case "":
		g.Provider = ProviderOpenAI
	case ProviderOpenAI, ProviderNone:
	default:
		return fmt.Errorf("unknown generation.provider: %s", g.Provider)
	}
	if g.Timeout == "" {
		g.Timeout = "30s"
	}
	if g.RetryDelay == "" {
		g.RetryDelay = "500ms"
	}
	if g.RetryAttempts == 0 {
		g.RetryAttempts = 3
	}
	if g.Temperature < 0 || g.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be between 0 and 2")
	}
	if err := validateDuration("generation.timeout", g.Timeout); err != nil {
		return err
	}
	return validateDuration("generation.retry_delay", g.RetryDelay)
}

func validateStoreConfig(cfg *ConfigParam) error {
	switch cfg.Store.Backend {
	case "":
		cfg.Store.Backend = StoreMemory
	case StoreMemory:
	case StorePostgres, StoreSQLite:
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn (INTERVIEW_DB_DSN) is required for the %s backend", cfg.Store.Backend)
		}
	default:
		return fmt.Errorf("unknown store.backend: %s", cfg.Store.Backend)
	}
	return nil
}

func validateInterviewConfig(cfg *ConfigParam) error {
	if cfg.Interview.DefaultQuestionCount <= 0 {
		cfg.Interview.DefaultQuestionCount = 5
	}
	if cfg.Interview.MaxHistoryMessages < 0 {
		return fmt.Errorf("interview.max_history_messages must not be negative")
	}
	if p := cfg.Interview.PromptsFile; p != "" {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("interview.prompts_file: %v", err)
		}
	}
	return nil
}

func validateAuthConfig(cfg *ConfigParam) error {
	if cfg.Auth.OwnerHeader == "" {
		cfg.Auth.OwnerHeader = "X-Interview-Owner"
	}
	if cfg.Auth.ClockSkew == "" {
		cfg.Auth.ClockSkew = "30s"
	}
	if cfg.Auth.JWTSecret != "" && len(cfg.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth jwt secret must be at least 16 bytes")
	}
	return validateDuration("auth.clock_skew", cfg.Auth.ClockSkew)
}

// LoadConfig loads configuration from a file, then applies environment
// overrides. A .env file next to the working directory is read first and
// never replaces variables already set.
func LoadConfig(filename string) error {
	if filename == "" {
		return fmt.Errorf("config filename is required")
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	c := &ConfigParam{}
	if _, err := toml.Decode(string(content), c); err != nil {
		return fmt.Errorf("error parsing config file: %v", err)
	}

	if err := loadDotEnv(".env"); err != nil {
		return err
	}
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("error reading environment: %v", err)
	}

	if err := ValidateConfig(c); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}
	cfg = c
	return nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading %s: %v", path, err)
	}
	return nil
}

// TestInit loads interviewsrv.conf from the module root.
func TestInit() {
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	projectRoot := wd
	for {
		if _, err := os.Stat(filepath.Join(projectRoot, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(projectRoot)
		if parent == projectRoot {
			panic("could not find project root (go.mod)")
		}
		projectRoot = parent
	}
	if err := LoadConfig(filepath.Join(projectRoot, "interviewsrv.conf")); err != nil {
		panic(fmt.Errorf("error loading config: %v", err))
	}
}
