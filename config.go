package lotto

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

// Config is the full engine configuration
type Config struct {
	// Engine config
	Engine *EngineConfig `mapstructure:"lotto"`

	// Redis config (round store and draw lock)
	Redis *RedisConfig `mapstructure:"redis"`

	// Randomness source circuit breaker config
	CircuitBreaker *CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Engine == nil || c.Redis == nil {
		return ErrInvalidParameters
	}
	if c.Engine.MinRoundLength <= 0 || c.Engine.MaxRoundLength < c.Engine.MinRoundLength {
		return fmt.Errorf("round length bounds are inconsistent: min=%v, max=%v",
			c.Engine.MinRoundLength, c.Engine.MaxRoundLength)
	}
	if c.Engine.MinTicketPrice == 0 || c.Engine.MaxTicketPrice < c.Engine.MinTicketPrice {
		return fmt.Errorf("ticket price bounds are inconsistent: min=%d, max=%d",
			c.Engine.MinTicketPrice, c.Engine.MaxTicketPrice)
	}
	if c.Engine.MaxTicketsPerBuy == 0 {
		return ErrMustBePositive
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}
	if c.Redis.PoolSize <= 0 {
		return fmt.Errorf("redis pool size must be positive")
	}
	return nil
}

// EngineConfig holds the round-level operating bounds
type EngineConfig struct {
	MinRoundLength   time.Duration `mapstructure:"min_round_length"`
	MaxRoundLength   time.Duration `mapstructure:"max_round_length"`
	MinTicketPrice   uint64        `mapstructure:"min_ticket_price"`
	MaxTicketPrice   uint64        `mapstructure:"max_ticket_price"`
	MaxTicketsPerBuy uint32        `mapstructure:"max_tickets_per_buy"`
}

// DefaultEngineConfig returns the default engine bounds
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		MinRoundLength:   DefaultMinRoundLength,
		MaxRoundLength:   DefaultMaxRoundLength,
		MinTicketPrice:   DefaultMinTicketPrice,
		MaxTicketPrice:   DefaultMaxTicketPrice,
		MaxTicketsPerBuy: DefaultMaxTicketsPerBuy,
	}
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`
	MaxRetries   int `mapstructure:"max_retries"`

	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
}

// DefaultRedisConfig returns the default Redis configuration
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         DefaultRedisAddr,
		Password:     DefaultRedisPassword,
		DB:           DefaultRedisDB,
		PoolSize:     DefaultRedisPoolSize,
		MinIdleConns: DefaultRedisMinIdleConns,
		MaxRetries:   DefaultRedisMaxRetries,
		DialTimeout:  DefaultRedisDialTimeout,
		ReadTimeout:  DefaultRedisReadTimeout,
		WriteTimeout: DefaultRedisWriteTimeout,
		PoolTimeout:  DefaultRedisPoolTimeout,
	}
}

// CircuitBreakerConfig configures the breaker around the randomness source
type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Name         string        `mapstructure:"name"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

// DefaultCircuitBreakerConfig returns the default breaker configuration
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Enabled:      true,
		Name:         DefaultCircuitBreakerName,
		MaxRequests:  DefaultCircuitBreakerMaxRequests,
		Interval:     DefaultCircuitBreakerInterval,
		Timeout:      DefaultCircuitBreakerTimeout,
		FailureRatio: DefaultCircuitBreakerFailureRatio,
		MinRequests:  DefaultCircuitBreakerMinRequests,
	}
}

// ConfigManager loads and watches the engine configuration
type ConfigManager struct {
	viper  *viper.Viper
	config *Config
}

// NewConfigManager creates a config manager with the standard search paths
func NewConfigManager() *ConfigManager {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/lotto")
	v.AddConfigPath("$HOME/.lotto")

	v.SetEnvPrefix("LOTTO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &ConfigManager{viper: v}
}

// NewDefaultConfigManager creates a config manager pre-populated with defaults
func NewDefaultConfigManager() *ConfigManager {
	cm := NewConfigManager()
	cm.setDefaults()

	cm.config = &Config{
		Engine:         DefaultEngineConfig(),
		Redis:          DefaultRedisConfig(),
		CircuitBreaker: DefaultCircuitBreakerConfig(),
	}
	return cm
}

// LoadConfig reads, unmarshals and validates the configuration. A missing
// config file is not an error; defaults apply.
func (cm *ConfigManager) LoadConfig() (*Config, error) {
	cm.setDefaults()

	if err := cm.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{}
	if err := cm.viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cm.config = config
	return config, nil
}

// setDefaults registers default values with viper
func (cm *ConfigManager) setDefaults() {
	cm.viper.SetDefault("lotto.min_round_length", DefaultMinRoundLength.String())
	cm.viper.SetDefault("lotto.max_round_length", DefaultMaxRoundLength.String())
	cm.viper.SetDefault("lotto.min_ticket_price", DefaultMinTicketPrice)
	cm.viper.SetDefault("lotto.max_ticket_price", DefaultMaxTicketPrice)
	cm.viper.SetDefault("lotto.max_tickets_per_buy", DefaultMaxTicketsPerBuy)

	cm.viper.SetDefault("redis.addr", DefaultRedisAddr)
	cm.viper.SetDefault("redis.password", DefaultRedisPassword)
	cm.viper.SetDefault("redis.db", DefaultRedisDB)
	cm.viper.SetDefault("redis.pool_size", DefaultRedisPoolSize)
	cm.viper.SetDefault("redis.min_idle_conns", DefaultRedisMinIdleConns)
	cm.viper.SetDefault("redis.max_retries", DefaultRedisMaxRetries)
	cm.viper.SetDefault("redis.dial_timeout", "5s")
	cm.viper.SetDefault("redis.read_timeout", "3s")
	cm.viper.SetDefault("redis.write_timeout", "3s")
	cm.viper.SetDefault("redis.pool_timeout", "4s")

	cm.viper.SetDefault("circuit_breaker.enabled", true)
	cm.viper.SetDefault("circuit_breaker.name", DefaultCircuitBreakerName)
	cm.viper.SetDefault("circuit_breaker.max_requests", DefaultCircuitBreakerMaxRequests)
	cm.viper.SetDefault("circuit_breaker.interval", "60s")
	cm.viper.SetDefault("circuit_breaker.timeout", "30s")
	cm.viper.SetDefault("circuit_breaker.failure_ratio", DefaultCircuitBreakerFailureRatio)
	cm.viper.SetDefault("circuit_breaker.min_requests", DefaultCircuitBreakerMinRequests)
}

// WatchConfig watches the config file and applies valid changes. Invalid
// updates are dropped without interrupting the running engine.
func (cm *ConfigManager) WatchConfig(callback func(*Config)) error {
	cm.viper.WatchConfig()
	cm.viper.OnConfigChange(func(e fsnotify.Event) {
		config := &Config{}
		if err := cm.viper.Unmarshal(config); err != nil {
			return
		}
		if err := config.Validate(); err != nil {
			return
		}

		cm.config = config
		if callback != nil {
			callback(config)
		}
	})
	return nil
}

// GetConfig returns the current configuration
func (cm *ConfigManager) GetConfig() *Config { return cm.config }

// ReloadConfig re-reads the configuration from disk
func (cm *ConfigManager) ReloadConfig() (*Config, error) { return cm.LoadConfig() }

// NewRedisClient creates a Redis client from the given config, falling back to
// defaults when nil.
func NewRedisClient(config *RedisConfig) *redis.Client {
	if config == nil {
		config = DefaultRedisConfig()
	}

	return redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		PoolTimeout:  config.PoolTimeout,
	})
}
