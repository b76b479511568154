package wheel

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

// Config 生产环境配置结构
type Config struct {
	// 转盘配置
	Wheel *WheelConfig `mapstructure:"wheel"`

	// 选项存储配置
	Store *StoreConfig `mapstructure:"store"`

	// Redis 配置
	Redis *RedisConfig `mapstructure:"redis"`

	// 熔断器配置
	CircuitBreaker *CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// DefaultConfig 返回完整的默认配置
func DefaultConfig() *Config {
	return &Config{
		Wheel:          DefaultWheelConfig(),
		Store:          DefaultStoreConfig(),
		Redis:          DefaultRedisConfig(),
		CircuitBreaker: DefaultCircuitBreakerConfig(),
	}
}

// Validate 验证配置, 所有错误都包装 ErrConfigInvalid
func (c *Config) Validate() error {
	if c.Wheel == nil || c.Store == nil || c.Redis == nil || c.CircuitBreaker == nil {
		return ErrConfigInvalid.WithDetails("missing configuration section")
	}

	if err := c.Wheel.Validate(); err != nil {
		return configError(err)
	}
	if err := c.Store.Validate(); err != nil {
		return configError(err)
	}

	// 验证 Redis 配置
	if c.Redis.Addr == "" {
		return ErrConfigInvalid.WithDetails("redis address is required")
	}
	if c.Redis.PoolSize <= 0 {
		return ErrConfigInvalid.WithDetails("redis pool size must be positive")
	}

	// 验证熔断器配置
	if c.CircuitBreaker.Enabled {
		if c.CircuitBreaker.FailureRatio <= 0 || c.CircuitBreaker.FailureRatio > 1 {
			return ErrConfigInvalid.WithDetailsf("circuit breaker failure ratio %v", c.CircuitBreaker.FailureRatio)
		}
		if c.CircuitBreaker.Timeout <= 0 {
			return ErrConfigInvalid.WithDetails("circuit breaker timeout must be positive")
		}
	}

	return nil
}

// configError 将字段级错误包装为配置错误, 保留原始错误码
func configError(err error) error {
	if we, ok := err.(*WheelError); ok && we.Code == ErrCodeConfigInvalid {
		return err
	}
	return ErrConfigInvalid.WithDetails(err.Error()).WithCause(err)
}

// WheelConfig 转盘配置
type WheelConfig struct {
	ID           string        `mapstructure:"id"`
	FullTurns    int           `mapstructure:"full_turns"`
	SpinDuration time.Duration `mapstructure:"spin_duration"`
	PointerAngle float64       `mapstructure:"pointer_angle"`
	Rarities     RarityTable   `mapstructure:"rarities"`
}

// DefaultWheelConfig 返回默认转盘配置
func DefaultWheelConfig() *WheelConfig {
	return &WheelConfig{
		ID:           DefaultWheelID,
		FullTurns:    DefaultFullTurns,
		SpinDuration: DefaultSpinDuration,
		PointerAngle: DefaultPointerAngle,
		Rarities:     DefaultRarityTable(),
	}
}

// Validate 验证转盘配置
func (c *WheelConfig) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrConfigInvalid.WithDetails("wheel id is required")
	}
	if err := c.Geometry().Validate(); err != nil {
		return err
	}
	if c.SpinDuration < 0 || c.SpinDuration > MaxSpinDuration {
		return ErrInvalidSpinDuration.WithDetailsf("spin_duration=%s", c.SpinDuration)
	}
	return c.Rarities.Validate()
}

// Geometry 返回配置对应的转盘几何参数
func (c *WheelConfig) Geometry() Geometry {
	return Geometry{FullTurns: c.FullTurns, PointerAngle: c.PointerAngle}
}

// StoreConfig 选项存储配置
type StoreConfig struct {
	Backend       string        `mapstructure:"backend"` // redis, sqlite 或 memory
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	SQLitePath    string        `mapstructure:"sqlite_path"`
}

// DefaultStoreConfig 返回默认存储配置
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		Backend:       StoreBackendRedis,
		RetryAttempts: DefaultRetryAttempts,
		RetryInterval: DefaultRetryInterval,
		KeyPrefix:     OptionsKeyPrefix,
		SQLitePath:    DefaultSQLitePath,
	}
}

// Validate 验证存储配置
func (c *StoreConfig) Validate() error {
	if c.RetryAttempts < 0 || c.RetryAttempts > MaxRetryAttempts {
		return ErrInvalidRetrySettings.WithDetailsf("retry_attempts=%d", c.RetryAttempts)
	}
	if c.RetryInterval < 0 {
		return ErrInvalidRetrySettings.WithDetailsf("retry_interval=%s", c.RetryInterval)
	}
	switch c.Backend {
	case StoreBackendRedis:
		if c.KeyPrefix == "" {
			return ErrConfigInvalid.WithDetails("store key prefix is required")
		}
	case StoreBackendSQLite:
		if c.SQLitePath == "" {
			return ErrConfigInvalid.WithDetails("store sqlite path is required")
		}
	case StoreBackendMemory:
	default:
		return ErrConfigInvalid.WithDetailsf("unknown store backend %q", c.Backend)
	}
	return nil
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 连接配置
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// 连接池配置
	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`
	MaxRetries   int `mapstructure:"max_retries"`

	// 超时配置
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
}

// DefaultRedisConfig 返回默认的Redis配置
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

// NewRedisClientFromConfig 从配置创建Redis客户端
func NewRedisClientFromConfig(config *RedisConfig) *redis.Client {
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

// CircuitBreakerConfig 熔断器配置
type CircuitBreakerConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Name          string        `mapstructure:"name"`
	MaxRequests   uint32        `mapstructure:"max_requests"`
	Interval      time.Duration `mapstructure:"interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
	FailureRatio  float64       `mapstructure:"failure_ratio"`
	MinRequests   uint32        `mapstructure:"min_requests"`
	OnStateChange bool          `mapstructure:"on_state_change"`
}

// DefaultCircuitBreakerConfig 返回默认熔断器配置
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		Enabled:       true,
		Name:          DefaultCircuitBreakerName,
		MaxRequests:   DefaultCircuitBreakerMaxRequests,
		Interval:      DefaultCircuitBreakerInterval,
		Timeout:       DefaultCircuitBreakerTimeout,
		FailureRatio:  DefaultCircuitBreakerFailureRatio,
		MinRequests:   DefaultCircuitBreakerMinRequests,
		OnStateChange: DefaultCircuitBreakerOnStateChange,
	}
}

// ConfigManager 配置管理器
type ConfigManager struct {
	mu     sync.RWMutex
	viper  *viper.Viper
	config *Config
	logger Logger
}

// NewConfigManager 创建配置管理器
func NewConfigManager() *ConfigManager {
	v := viper.New()

	// 设置配置文件名和路径
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/wheel")
	v.AddConfigPath("$HOME/.wheel")

	// 设置环境变量前缀
	v.SetEnvPrefix("WHEEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &ConfigManager{
		viper:  v,
		logger: NewSilentLogger(),
	}
}

// NewDefaultConfigManager 创建带默认配置的配置管理器, 不读取配置文件
func NewDefaultConfigManager() *ConfigManager {
	cm := NewConfigManager()
	cm.setDefaults()
	cm.config = DefaultConfig()
	return cm
}

// SetLogger 设置热加载失败时使用的日志记录器
func (cm *ConfigManager) SetLogger(logger Logger) {
	if logger == nil {
		logger = NewSilentLogger()
	}
	cm.logger = logger
}

// LoadConfig 按搜索路径加载配置, 配置文件不存在时使用默认值和环境变量
func (cm *ConfigManager) LoadConfig() (*Config, error) {
	// 设置默认值
	cm.setDefaults()

	// 读取配置文件
	if err := cm.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, ErrConfigInvalid.WithDetails("failed to read config file").WithCause(err)
		}
		// 配置文件不存在时使用默认配置
	}

	return cm.apply()
}

// LoadConfigFile 从指定路径加载配置
func (cm *ConfigManager) LoadConfigFile(path string) (*Config, error) {
	cm.setDefaults()
	cm.viper.SetConfigFile(path)

	if err := cm.viper.ReadInConfig(); err != nil {
		return nil, ErrConfigInvalid.WithDetailsf("failed to read config file %s", path).WithCause(err)
	}

	return cm.apply()
}

// apply 解析并验证当前 viper 状态, 成功后替换当前配置
func (cm *ConfigManager) apply() (*Config, error) {
	config, err := cm.decode()
	if err != nil {
		return nil, err
	}

	cm.mu.Lock()
	cm.config = config
	cm.mu.Unlock()
	return config, nil
}

func (cm *ConfigManager) decode() (*Config, error) {
	config := &Config{}
	if err := cm.viper.Unmarshal(config); err != nil {
		return nil, ErrConfigInvalid.WithDetails("failed to unmarshal config").WithCause(err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return config, nil
}

// setDefaults 设置默认配置值
func (cm *ConfigManager) setDefaults() {
	// 转盘默认配置
	cm.viper.SetDefault("wheel.id", DefaultWheelID)
	cm.viper.SetDefault("wheel.full_turns", DefaultFullTurns)
	cm.viper.SetDefault("wheel.spin_duration", DefaultSpinDuration.String())
	cm.viper.SetDefault("wheel.pointer_angle", DefaultPointerAngle)

	tiers := make([]map[string]any, 0, len(DefaultRarityTable()))
	for _, tier := range DefaultRarityTable() {
		tiers = append(tiers, map[string]any{"name": tier.Name, "weight": tier.Weight})
	}
	cm.viper.SetDefault("wheel.rarities", tiers)

	// 存储默认配置
	cm.viper.SetDefault("store.backend", StoreBackendRedis)
	cm.viper.SetDefault("store.sqlite_path", DefaultSQLitePath)
	cm.viper.SetDefault("store.retry_attempts", DefaultRetryAttempts)
	cm.viper.SetDefault("store.retry_interval", DefaultRetryInterval.String())
	cm.viper.SetDefault("store.key_prefix", OptionsKeyPrefix)

	// Redis 默认配置
	cm.viper.SetDefault("redis.addr", DefaultRedisAddr)
	cm.viper.SetDefault("redis.password", DefaultRedisPassword)
	cm.viper.SetDefault("redis.db", DefaultRedisDB)
	cm.viper.SetDefault("redis.pool_size", DefaultRedisPoolSize)
	cm.viper.SetDefault("redis.min_idle_conns", DefaultRedisMinIdleConns)
	cm.viper.SetDefault("redis.max_retries", DefaultRedisMaxRetries)
	cm.viper.SetDefault("redis.dial_timeout", DefaultRedisDialTimeout.String())
	cm.viper.SetDefault("redis.read_timeout", DefaultRedisReadTimeout.String())
	cm.viper.SetDefault("redis.write_timeout", DefaultRedisWriteTimeout.String())
	cm.viper.SetDefault("redis.pool_timeout", DefaultRedisPoolTimeout.String())

	// 熔断器默认配置
	cm.viper.SetDefault("circuit_breaker.enabled", true)
	cm.viper.SetDefault("circuit_breaker.name", DefaultCircuitBreakerName)
	cm.viper.SetDefault("circuit_breaker.max_requests", DefaultCircuitBreakerMaxRequests)
	cm.viper.SetDefault("circuit_breaker.interval", DefaultCircuitBreakerInterval.String())
	cm.viper.SetDefault("circuit_breaker.timeout", DefaultCircuitBreakerTimeout.String())
	cm.viper.SetDefault("circuit_breaker.failure_ratio", DefaultCircuitBreakerFailureRatio)
	cm.viper.SetDefault("circuit_breaker.min_requests", DefaultCircuitBreakerMinRequests)
	cm.viper.SetDefault("circuit_breaker.on_state_change", DefaultCircuitBreakerOnStateChange)
}

// WatchConfig 监听配置文件变化, 新配置验证通过后回调
func (cm *ConfigManager) WatchConfig(callback func(*Config)) error {
	if cm.viper.ConfigFileUsed() == "" {
		return ErrConfigInvalid.WithDetails("no config file loaded to watch")
	}

	cm.viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		config, err := cm.decode()
		if err != nil {
			// 记录错误但不中断服务, 保留旧配置
			cm.logger.Error("Ignoring invalid config change in %s: %v", e.Name, err)
			return
		}

		cm.mu.Lock()
		cm.config = config
		cm.mu.Unlock()

		cm.logger.Info("Config reloaded from %s", e.Name)
		if callback != nil {
			callback(config)
		}
	})
	cm.viper.WatchConfig()

	return nil
}

// GetConfig 获取当前配置
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// ReloadConfig 重新加载配置
func (cm *ConfigManager) ReloadConfig() (*Config, error) {
	if cm.viper.ConfigFileUsed() != "" {
		return cm.LoadConfigFile(cm.viper.ConfigFileUsed())
	}
	return cm.LoadConfig()
}

