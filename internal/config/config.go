package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/propvest/internal/infra/cache"
	"github.com/bryanwahyu/propvest/internal/infra/db"
	"github.com/bryanwahyu/propvest/internal/infra/storage"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// AI providers.
const (
	ProviderHeuristic = "heuristic"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Redis     cache.Config    `yaml:"redis"`
	Minio     storage.Config  `yaml:"minio"`
	AI        AIConfig        `yaml:"ai"`
	Auth      AuthConfig      `yaml:"auth"`
	Share     ShareConfig     `yaml:"share"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

type StoreConfig struct {
	Driver string  `yaml:"driver"`
	DSN    string  `yaml:"dsn"`
	Pool   db.Pool `yaml:"pool"`
}

type AIConfig struct {
	Provider       string `yaml:"provider"`
	OpenAIKey      string `yaml:"openai_api_key"`
	OpenAIModel    string `yaml:"openai_model"`
	OpenAIBaseURL  string `yaml:"openai_base_url"`
	AnthropicKey   string `yaml:"anthropic_api_key"`
	AnthropicModel string `yaml:"anthropic_model"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type ShareConfig struct {
	BaseURL  string        `yaml:"base_url"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled"`
	RPS     float64       `yaml:"rps"`
	Burst   int           `yaml:"burst"`
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// Load baca config.yaml (optional), lalu .env dan PROPVEST_* env override.
// An empty path means CONFIG_PATH or config.yaml.
func Load(path string) (*Config, error) {
	// .env boleh tidak ada
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	explicit := path != ""
	if !explicit {
		path = "config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, eris.Wrapf(err, "config: parse %s", path)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// jalan dengan default saja
	default:
		return nil, eris.Wrapf(err, "config: read %s", path)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv("PROPVEST_" + key); ok {
			*dst = v
		}
	}
	str("STORE_DRIVER", &c.Store.Driver)
	str("STORE_DSN", &c.Store.DSN)
	str("REDIS_URL", &c.Redis.URL)
	str("MINIO_ENDPOINT", &c.Minio.Endpoint)
	str("MINIO_ACCESS_KEY", &c.Minio.AccessKey)
	str("MINIO_SECRET_KEY", &c.Minio.SecretKey)
	str("MINIO_BUCKET", &c.Minio.Bucket)
	str("AI_PROVIDER", &c.AI.Provider)
	str("OPENAI_API_KEY", &c.AI.OpenAIKey)
	str("ANTHROPIC_API_KEY", &c.AI.AnthropicKey)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("SHARE_BASE_URL", &c.Share.BaseURL)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	if v, ok := os.LookupEnv("PROPVEST_PORT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.Port = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 45 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = DriverMemory
	}
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	if c.AI.Provider == "" {
		c.AI.Provider = ProviderHeuristic
	}
	if c.Share.BaseURL == "" {
		c.Share.BaseURL = "http://localhost:8080"
	}
	if c.Share.CacheTTL == 0 {
		c.Share.CacheTTL = 10 * time.Minute
	}
	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 5
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}
	if c.RateLimit.IdleTTL == 0 {
		c.RateLimit.IdleTTL = 30 * time.Minute
	}
}

// Validate checks the combinations Load cannot default away.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres, DriverMySQL:
		if c.Store.DSN == "" {
			return eris.Errorf("config: store.dsn is required for driver %s", c.Store.Driver)
		}
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	switch c.AI.Provider {
	case ProviderHeuristic:
	case ProviderOpenAI:
		if c.AI.OpenAIKey == "" {
			return eris.New("config: ai.openai_api_key is required for provider openai")
		}
	case ProviderAnthropic:
		if c.AI.AnthropicKey == "" {
			return eris.New("config: ai.anthropic_api_key is required for provider anthropic")
		}
	default:
		return eris.Errorf("config: unknown ai provider %q", c.AI.Provider)
	}
	if c.Auth.JWTSecret == "" {
		return eris.New("config: auth.jwt_secret is required")
	}
	if c.RateLimit.IdleTTL <= 0 {
		return eris.Errorf("config: ratelimit.idle_ttl must be positive, got %s", c.RateLimit.IdleTTL)
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return eris.New("config: ratelimit.rps and ratelimit.burst must be positive")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
