package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) Options {
	return Options{EnvFile: filepath.Join(t.TempDir(), "missing.env")}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://project.supabase.co")
	t.Setenv("SUPABASE_SERVICE_KEY", "service-key")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.False(t, cfg.Server.IsProduction())
	assert.Equal(t, StoreSupabase, cfg.Store.Driver)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "disabled", cfg.TextGen.Provider)
	assert.Equal(t, 45*time.Second, cfg.Insights.TriggerTimeout)
	assert.Equal(t, "slog", cfg.Logging.Backend)
	assert.Equal(t, 300, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
	assert.Equal(t, time.UTC, cfg.Analytics.Location())
}

func TestLoadPrefixedEnv(t *testing.T) {
	t.Setenv("WELLNESSGRID_STORE_DRIVER", "sqlite")
	t.Setenv("WELLNESSGRID_STORE_DSN", "file:wellness.db")
	t.Setenv("WELLNESSGRID_SUPABASE_JWT_SECRET", "secret")
	t.Setenv("WELLNESSGRID_CACHE_TTL", "5m")
	t.Setenv("WELLNESSGRID_LOGGING_BACKEND", "zap")
	t.Setenv("WELLNESSGRID_CORS_ALLOWED_ORIGINS", "https://app.example.com, https://*.example.dev")
	t.Setenv("PORT", "9090")

	cfg, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, "file:wellness.db", cfg.Store.DSN)
	assert.Equal(t, "secret", cfg.Supabase.JWTSecret)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "zap", cfg.Logging.Backend)
	assert.Equal(t, []string{"https://app.example.com", "https://*.example.dev"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "9090", cfg.Server.Port)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wellness.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  env: production
store:
  driver: postgres
  dsn: postgres://localhost/wellness
  auto_migrate: true
supabase:
  jwt_secret: from-file
cache:
  backend: redis
  redis_addr: localhost:6379
textgen:
  provider: local
  base_url: http://localhost:12210
analytics:
  timezone: America/New_York
cors:
  allowed_origins:
    - https://app.example.com
`), 0o600))

	cfg, err := Load(Options{ConfigFile: path, EnvFile: filepath.Join(dir, "none.env")})
	require.NoError(t, err)

	assert.True(t, cfg.Server.IsProduction())
	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.True(t, cfg.Store.AutoMigrate)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, "local", cfg.TextGen.Provider)
	assert.Equal(t, "America/New_York", cfg.Analytics.Location().String())
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoadMissingExplicitConfigFile(t *testing.T) {
	_, err := Load(Options{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml"), EnvFile: filepath.Join(t.TempDir(), "none.env")})
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("WELLNESSGRID_TEST_ONLY_JWT=abc\nSUPABASE_JWT_SECRET=from-dotenv\nWELLNESSGRID_STORE_DRIVER=sqlite\nWELLNESSGRID_STORE_DSN=:memory:\n"), 0o600))
	t.Cleanup(func() {
		for _, k := range []string{"WELLNESSGRID_TEST_ONLY_JWT", "SUPABASE_JWT_SECRET", "WELLNESSGRID_STORE_DRIVER", "WELLNESSGRID_STORE_DSN"} {
			os.Unsetenv(k)
		}
	})

	cfg, err := Load(Options{EnvFile: path})
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Supabase.JWTSecret)
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
}

func validConfig() Config {
	return Config{
		Supabase:  SupabaseConfig{URL: "https://p.supabase.co", ServiceKey: "k"},
		Store:     StoreConfig{Driver: StoreSupabase},
		Cache:     CacheConfig{Backend: CacheMemory},
		TextGen:   TextGenConfig{Provider: "disabled"},
		Logging:   LoggingConfig{Backend: "slog"},
		RateLimit: RateLimitConfig{Requests: 10, Window: time.Minute},
		Tracing:   TracingConfig{SampleRatio: 1},
		Analytics: AnalyticsConfig{Timezone: "UTC"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"supabase store without key", func(c *Config) { c.Supabase.ServiceKey = "" }, "SUPABASE_SERVICE_KEY"},
		{"sql store without dsn", func(c *Config) { c.Store.Driver = StorePostgres }, "store.dsn"},
		{"unknown store", func(c *Config) { c.Store.Driver = "mongo" }, "unknown store driver"},
		{"no auth source", func(c *Config) {
			c.Store = StoreConfig{Driver: StoreSQLite, DSN: ":memory:"}
			c.Supabase = SupabaseConfig{}
		}, "SUPABASE_JWT_SECRET"},
		{"redis without addr", func(c *Config) { c.Cache.Backend = CacheRedis }, "redis_addr"},
		{"openai without key", func(c *Config) { c.TextGen.Provider = "openai" }, "api_key"},
		{"local without url", func(c *Config) { c.TextGen.Provider = "local" }, "base_url"},
		{"unknown provider", func(c *Config) { c.TextGen.Provider = "bard" }, "unknown textgen provider"},
		{"unknown log backend", func(c *Config) { c.Logging.Backend = "logrus" }, "logging backend"},
		{"zero rate limit", func(c *Config) { c.RateLimit.Requests = 0 }, "ratelimit"},
		{"bad sample ratio", func(c *Config) { c.Tracing.SampleRatio = 2 }, "sample_ratio"},
		{"bad timezone", func(c *Config) { c.Analytics.Timezone = "Mars/Olympus" }, "timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Backend = "memcached"
	cfg.TextGen.Provider = "bard"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memcached")
	assert.Contains(t, err.Error(), "bard")
}
