package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers
const (
	StoreSupabase = "supabase"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Cache backends
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Supabase  SupabaseConfig  `mapstructure:"supabase"`
	Store     StoreConfig     `mapstructure:"store"`
	Cache     CacheConfig     `mapstructure:"cache"`
	TextGen   TextGenConfig   `mapstructure:"textgen"`
	Insights  InsightsConfig  `mapstructure:"insights"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Env             string        `mapstructure:"env"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// IsProduction reports whether the server runs in production mode
func (s ServerConfig) IsProduction() bool {
	return s.Env == "production"
}

// SupabaseConfig holds Supabase-specific configuration. JWTSecret enables
// local token verification instead of a call to the auth API per request.
type SupabaseConfig struct {
	URL        string `mapstructure:"url"`
	ServiceKey string `mapstructure:"service_key"`
	JWTSecret  string `mapstructure:"jwt_secret"`
}

// StoreConfig selects where entries, scores, alerts and insights live
type StoreConfig struct {
	Driver        string        `mapstructure:"driver"`
	DSN           string        `mapstructure:"dsn"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
	AutoMigrate   bool          `mapstructure:"auto_migrate"`
}

// CacheConfig selects the analytics cache backend
type CacheConfig struct {
	Backend       string        `mapstructure:"backend"`
	TTL           time.Duration `mapstructure:"ttl"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
}

// TextGenConfig selects the text-generation provider
type TextGenConfig struct {
	Provider    string        `mapstructure:"provider"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// InsightsConfig tunes background insight generation
type InsightsConfig struct {
	TriggerTimeout time.Duration `mapstructure:"trigger_timeout"`
}

// LoggingConfig selects the logger backend
type LoggingConfig struct {
	Backend   string `mapstructure:"backend"`
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	AddSource bool   `mapstructure:"add_source"`
}

// TracingConfig enables OpenTelemetry spans exported to stdout
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// RateLimitConfig configures the per-client token bucket
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// CORSConfig lists allowed origins; empty allows all
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AnalyticsConfig sets the civil-day time zone for streaks and correlations
type AnalyticsConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// Location resolves Timezone, falling back to UTC
func (a AnalyticsConfig) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.service_key", "")
	v.SetDefault("supabase.jwt_secret", "")

	v.SetDefault("store.driver", StoreSupabase)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.slow_threshold", time.Second)
	v.SetDefault("store.auto_migrate", false)

	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.ttl", 30*time.Minute)
	v.SetDefault("cache.key_prefix", "wellnessgrid:")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)

	v.SetDefault("textgen.provider", "disabled")
	v.SetDefault("textgen.base_url", "")
	v.SetDefault("textgen.api_key", "")
	v.SetDefault("textgen.model", "gpt-4o-mini")
	v.SetDefault("textgen.max_tokens", 800)
	v.SetDefault("textgen.temperature", 0.3)
	v.SetDefault("textgen.timeout", 30*time.Second)

	v.SetDefault("insights.trigger_timeout", 45*time.Second)

	v.SetDefault("logging.backend", "slog")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "wellnessgrid-api")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetDefault("ratelimit.requests", 300)
	v.SetDefault("ratelimit.window", time.Minute)

	v.SetDefault("cors.allowed_origins", []string{})

	v.SetDefault("analytics.timezone", "UTC")
}

// Options controls where Load looks for configuration
type Options struct {
	// ConfigFile is an explicit config path; empty searches ./ and ./config
	ConfigFile string
	// EnvFile is loaded with godotenv before reading the environment
	EnvFile string
}

// Load reads configuration from defaults, an optional config file, a .env
// file and WELLNESSGRID_* environment variables, in increasing precedence.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WELLNESSGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// unprefixed names used by hosting platforms and the Supabase CLI
	_ = v.BindEnv("server.port", "WELLNESSGRID_SERVER_PORT", "PORT")
	_ = v.BindEnv("supabase.url", "WELLNESSGRID_SUPABASE_URL", "SUPABASE_URL")
	_ = v.BindEnv("supabase.service_key", "WELLNESSGRID_SUPABASE_SERVICE_KEY", "SUPABASE_SERVICE_KEY")
	_ = v.BindEnv("supabase.jwt_secret", "WELLNESSGRID_SUPABASE_JWT_SECRET", "SUPABASE_JWT_SECRET")
	_ = v.BindEnv("textgen.api_key", "WELLNESSGRID_TEXTGEN_API_KEY", "OPENAI_API_KEY")

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || opts.ConfigFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.CORS.AllowedOrigins = splitOrigins(config.CORS.AllowedOrigins)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// splitOrigins accepts both a YAML list and a comma-separated env value
func splitOrigins(in []string) []string {
	var out []string
	for _, item := range in {
		for _, o := range strings.Split(item, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	return out
}

// Validate checks that the selected drivers have what they need
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case StoreSupabase:
		if c.Supabase.URL == "" {
			errs = append(errs, errors.New("SUPABASE_URL is required for the supabase store"))
		}
		if c.Supabase.ServiceKey == "" {
			errs = append(errs, errors.New("SUPABASE_SERVICE_KEY is required for the supabase store"))
		}
	case StorePostgres, StoreSQLite:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for the %s store", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}

	// tokens are always issued by Supabase auth
	if c.Supabase.JWTSecret == "" && c.Supabase.URL == "" {
		errs = append(errs, errors.New("either SUPABASE_JWT_SECRET or SUPABASE_URL is required for authentication"))
	}

	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			errs = append(errs, errors.New("cache.redis_addr is required for the redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}

	switch c.TextGen.Provider {
	case "openai":
		if c.TextGen.APIKey == "" {
			errs = append(errs, errors.New("textgen.api_key is required for the openai provider"))
		}
	case "local":
		if c.TextGen.BaseURL == "" {
			errs = append(errs, errors.New("textgen.base_url is required for the local provider"))
		}
	case "disabled":
	default:
		errs = append(errs, fmt.Errorf("unknown textgen provider %q", c.TextGen.Provider))
	}

	switch c.Logging.Backend {
	case "slog", "zap":
	default:
		errs = append(errs, fmt.Errorf("unknown logging backend %q", c.Logging.Backend))
	}

	if c.RateLimit.Requests < 1 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("ratelimit.requests and ratelimit.window must be positive"))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, errors.New("tracing.sample_ratio must be between 0 and 1"))
	}
	if _, err := time.LoadLocation(c.Analytics.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid analytics.timezone: %w", err))
	}

	return errors.Join(errs...)
}
