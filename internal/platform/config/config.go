package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Cache         CacheConfig         `mapstructure:"cache"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit"`
	Webhooks      WebhooksConfig      `mapstructure:"webhooks"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Subscriptions SubscriptionsConfig `mapstructure:"subscriptions"`
	Admin         AdminConfig         `mapstructure:"admin"`
	Workers       WorkersConfig       `mapstructure:"workers"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type CacheConfig struct {
	RedisAddr   string        `mapstructure:"redis_addr"`
	RedisDB     int           `mapstructure:"redis_db"`
	Password    string        `mapstructure:"password"`
	CatalogTTL  time.Duration `mapstructure:"catalog_ttl"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
}

type RateLimitConfig struct {
	APIReadPerMinute  int `mapstructure:"api_read_per_minute"`
	APIWritePerMinute int `mapstructure:"api_write_per_minute"`
	AuthPerMinute     int `mapstructure:"auth_per_minute"`
}

type WebhooksConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

type SubscriptionsConfig struct {
	// AccessPolicy selects which statuses grant app access: "registered" or "trial".
	AccessPolicy string        `mapstructure:"access_policy"`
	GracePeriod  time.Duration `mapstructure:"grace_period"`
	MaxInviteTTL time.Duration `mapstructure:"max_invite_ttl"`
}

// AdminConfig lists platform operators allowed to verify teams.
type AdminConfig struct {
	Emails []string `mapstructure:"emails"`
}

type WorkersConfig struct {
	SubscriptionSweepInterval time.Duration `mapstructure:"subscription_sweep_interval"`
	InvoiceSweepInterval      time.Duration `mapstructure:"invoice_sweep_interval"`
	WebhookRetryInterval      time.Duration `mapstructure:"webhook_retry_interval"`
	InvitePurgeInterval       time.Duration `mapstructure:"invite_purge_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.url", "file:./data/suitehub.db")
	v.SetDefault("database.max_connections", 10)

	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.catalog_ttl", 5*time.Minute)
	v.SetDefault("cache.dial_timeout", 2*time.Second)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_token_ttl", 24*time.Hour)
	v.SetDefault("jwt.issuer", "suitehub")

	v.SetDefault("rate_limit.api_read_per_minute", 600)
	v.SetDefault("rate_limit.api_write_per_minute", 120)
	v.SetDefault("rate_limit.auth_per_minute", 20)

	v.SetDefault("webhooks.timeout", 10*time.Second)
	v.SetDefault("webhooks.retry_attempts", 5)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "")

	v.SetDefault("admin.emails", []string{})

	v.SetDefault("subscriptions.access_policy", "registered")
	v.SetDefault("subscriptions.grace_period", 7*24*time.Hour)
	v.SetDefault("subscriptions.max_invite_ttl", 7*24*time.Hour)

	v.SetDefault("workers.subscription_sweep_interval", time.Hour)
	v.SetDefault("workers.invoice_sweep_interval", time.Hour)
	v.SetDefault("workers.webhook_retry_interval", 5*time.Minute)
	v.SetDefault("workers.invite_purge_interval", 30*time.Minute)
}

// Load reads the YAML config at path. A missing path falls back to defaults plus
// environment overrides (SUITEHUB_SERVER_PORT, ...).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("suitehub")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
