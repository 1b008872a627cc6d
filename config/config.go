package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Server    ServerConfig
	OrderSync OrderSyncConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name        string
	Environment string // dev, staging, production
	Version     string
	LogLevel    string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TLS             TLSConfig
}

// TLSConfig holds TLS/HTTPS configuration
type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	SSLMode        string // disable, require, verify-ca, verify-full
	MaxConnections int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	MaxIdleTime    time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	Database int
	PoolSize int
	TTL      time.Duration
}

// OrderSyncConfig holds the RMS<->storefront order ingestion pipeline's
// configuration: how to reach the storefront, and how aggressively and
// safely to poll it.
type OrderSyncConfig struct {
	Enabled bool

	StorefrontBaseURL     string
	StorefrontAccessToken string
	StorefrontTimeout     time.Duration

	LookbackMinutes          int
	IntervalMinutes          int
	BatchSize                int
	MaxPages                 int
	AllowedFinancialStatuses []string
	CycleLockTTL             time.Duration

	AllowOrdersWithoutCustomer bool
	RequireCustomerEmail       bool
	DefaultGuestCustomerID     int64

	RmsStoreID     int64
	RmsOrderType   int64
	ShippingItemID int64
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; continue if not found
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvPrefix("ECOMMERCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "ecommerce")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.loglevel", "info")

	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readtimeout", "15s")
	v.SetDefault("server.writetimeout", "15s")
	v.SetDefault("server.shutdowntimeout", "30s")
	v.SetDefault("server.tls.enabled", false)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "ecommerce")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxconnections", 25)
	v.SetDefault("database.maxidleconns", 5)
	v.SetDefault("database.maxlifetime", "5m")
	v.SetDefault("database.maxidletime", "10m")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.poolsize", 10)
	v.SetDefault("redis.ttl", "1h")

	// OrderSync defaults
	v.SetDefault("ordersync.enabled", false)
	v.SetDefault("ordersync.storefronttimeout", "30s")
	v.SetDefault("ordersync.lookbackminutes", 60)
	v.SetDefault("ordersync.intervalminutes", 5)
	v.SetDefault("ordersync.batchsize", 50)
	v.SetDefault("ordersync.maxpages", 20)
	v.SetDefault("ordersync.allowedfinancialstatuses", []string{"PAID", "PARTIALLY_REFUNDED"})
	v.SetDefault("ordersync.cyclelockttl", "10m")
	v.SetDefault("ordersync.alloworderswithoutcustomer", true)
	v.SetDefault("ordersync.requirecustomeremail", false)
	v.SetDefault("ordersync.defaultguestcustomerid", 0)
	v.SetDefault("ordersync.rmsstoreid", 1)
	v.SetDefault("ordersync.rmsordertype", 1)
	v.SetDefault("ordersync.shippingitemid", 0)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate environment
	validEnvs := map[string]bool{"development": true, "staging": true, "production": true}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	// Validate database
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	// Validate order sync
	if c.OrderSync.Enabled {
		if c.OrderSync.StorefrontBaseURL == "" {
			return fmt.Errorf("ordersync storefront base URL is required when order sync is enabled")
		}
		if c.OrderSync.BatchSize > 250 {
			return fmt.Errorf("ordersync batch size must be at most 250")
		}
		if c.OrderSync.ShippingItemID == 0 {
			return fmt.Errorf("ordersync shipping item id is required when order sync is enabled")
		}
		if c.OrderSync.RequireCustomerEmail && c.OrderSync.AllowOrdersWithoutCustomer {
			return fmt.Errorf("ordersync cannot both require customer email and allow orders without a customer")
		}
	}

	// Validate TLS in production
	if c.App.Environment == "production" && !c.Server.TLS.Enabled {
		return fmt.Errorf("TLS must be enabled in production")
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// ServerAddr returns the HTTP server address
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
