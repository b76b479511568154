package wheel

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateConfigSearch keeps stray config files out of the search paths
func isolateConfigSearch(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
}

func writeConfigFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConfigManager_LoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		expectError error
		validate    func(*testing.T, *Config)
	}{
		{
			name: "default_config",
			validate: func(t *testing.T, config *Config) {
				assert.Equal(t, DefaultWheelID, config.Wheel.ID)
				assert.Equal(t, DefaultFullTurns, config.Wheel.FullTurns)
				assert.Equal(t, DefaultSpinDuration, config.Wheel.SpinDuration)
				assert.Equal(t, DefaultPointerAngle, config.Wheel.PointerAngle)
				assert.Equal(t, DefaultRarityTable(), config.Wheel.Rarities)
				assert.Equal(t, DefaultStoreConfig(), config.Store)
				assert.Equal(t, DefaultRedisConfig(), config.Redis)
				assert.Equal(t, DefaultCircuitBreakerConfig(), config.CircuitBreaker)
			},
		},
		{
			name: "environment_variables",
			env: map[string]string{
				"WHEEL_WHEEL_ID":                "office",
				"WHEEL_WHEEL_FULL_TURNS":        "4",
				"WHEEL_WHEEL_SPIN_DURATION":     "2s",
				"WHEEL_REDIS_ADDR":              "redis-cluster:6379",
				"WHEEL_STORE_RETRY_ATTEMPTS":    "5",
				"WHEEL_CIRCUIT_BREAKER_ENABLED": "false",
			},
			validate: func(t *testing.T, config *Config) {
				assert.Equal(t, "office", config.Wheel.ID)
				assert.Equal(t, 4, config.Wheel.FullTurns)
				assert.Equal(t, 2*time.Second, config.Wheel.SpinDuration)
				assert.Equal(t, "redis-cluster:6379", config.Redis.Addr)
				assert.Equal(t, 5, config.Store.RetryAttempts)
				assert.False(t, config.CircuitBreaker.Enabled)
			},
		},
		{
			name:        "invalid_full_turns",
			env:         map[string]string{"WHEEL_WHEEL_FULL_TURNS": "0"},
			expectError: ErrInvalidFullTurns,
		},
		{
			name:        "invalid_retry_attempts",
			env:         map[string]string{"WHEEL_STORE_RETRY_ATTEMPTS": "99"},
			expectError: ErrInvalidRetrySettings,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigSearch(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cm := NewConfigManager()
			config, err := cm.LoadConfig()

			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				assert.ErrorIs(t, err, ErrConfigInvalid)
				assert.Nil(t, cm.GetConfig())
				return
			}

			require.NoError(t, err)
			require.NotNil(t, config)
			assert.Same(t, config, cm.GetConfig())
			tt.validate(t, config)
		})
	}
}

func TestConfigManager_LoadConfigFile(t *testing.T) {
	isolateConfigSearch(t)
	path := writeConfigFile(t, t.TempDir(), `
wheel:
  id: party
  full_turns: 6
  pointer_angle: -1.5707963267948966
  rarities:
    - name: Comum
      weight: 60
    - name: Lendário
      weight: 1
store:
  key_prefix: "party:options:"
redis:
  addr: redis:6380
`)

	cm := NewConfigManager()
	config, err := cm.LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "party", config.Wheel.ID)
	assert.Equal(t, 6, config.Wheel.FullTurns)
	assert.InDelta(t, -math.Pi/2, config.Wheel.PointerAngle, 1e-12)
	assert.Equal(t, RarityTable{{Name: "Comum", Weight: 60}, {Name: "Lendário", Weight: 1}}, config.Wheel.Rarities)
	assert.Equal(t, DefaultSpinDuration, config.Wheel.SpinDuration)
	assert.Equal(t, "party:options:", config.Store.KeyPrefix)
	assert.Equal(t, DefaultRetryAttempts, config.Store.RetryAttempts)
	assert.Equal(t, "redis:6380", config.Redis.Addr)
	assert.Equal(t, Geometry{FullTurns: 6, PointerAngle: config.Wheel.PointerAngle}, config.Wheel.Geometry())
}

func TestConfigManager_LoadConfigFileErrors(t *testing.T) {
	isolateConfigSearch(t)
	dir := t.TempDir()

	_, err := NewConfigManager().LoadConfigFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, ErrConfigInvalid)

	path := writeConfigFile(t, dir, "wheel:\n  rarities:\n    - name: Comum\n      weight: 0\n")
	_, err = NewConfigManager().LoadConfigFile(path)
	assert.ErrorIs(t, err, ErrConfigInvalid)
	assert.ErrorIs(t, err, ErrInvalidRarity)
}

// replaceConfigFile swaps the file in with a rename so watchers never see it half written
func replaceConfigFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0o644))
	require.NoError(t, os.Rename(tmp, path))
}

func TestConfig_Validation(t *testing.T) {
	tests := []struct {
		name         string
		modifyConfig func(*Config)
		expectError  error
	}{
		{
			name:         "valid_config",
			modifyConfig: func(*Config) {},
		},
		{
			name:         "missing_section",
			modifyConfig: func(c *Config) { c.Store = nil },
			expectError:  ErrConfigInvalid,
		},
		{
			name:         "empty_wheel_id",
			modifyConfig: func(c *Config) { c.Wheel.ID = "  " },
			expectError:  ErrConfigInvalid,
		},
		{
			name:         "too_many_turns",
			modifyConfig: func(c *Config) { c.Wheel.FullTurns = MaxFullTurns + 1 },
			expectError:  ErrInvalidFullTurns,
		},
		{
			name:         "infinite_pointer",
			modifyConfig: func(c *Config) { c.Wheel.PointerAngle = math.Inf(1) },
			expectError:  ErrConfigInvalid,
		},
		{
			name:         "negative_spin_duration",
			modifyConfig: func(c *Config) { c.Wheel.SpinDuration = -time.Second },
			expectError:  ErrInvalidSpinDuration,
		},
		{
			name:         "duplicate_rarity",
			modifyConfig: func(c *Config) { c.Wheel.Rarities = append(c.Wheel.Rarities, RarityTier{Name: "Raro", Weight: 1}) },
			expectError:  ErrInvalidRarity,
		},
		{
			name:         "negative_retry_interval",
			modifyConfig: func(c *Config) { c.Store.RetryInterval = -time.Millisecond },
			expectError:  ErrInvalidRetrySettings,
		},
		{
			name:         "empty_key_prefix",
			modifyConfig: func(c *Config) { c.Store.KeyPrefix = "" },
			expectError:  ErrConfigInvalid,
		},
		{
			name:         "unknown_store_backend",
			modifyConfig: func(c *Config) { c.Store.Backend = "etcd" },
			expectError:  ErrConfigInvalid,
		},
		{
			name: "sqlite_backend_without_path",
			modifyConfig: func(c *Config) {
				c.Store.Backend = StoreBackendSQLite
				c.Store.SQLitePath = ""
			},
			expectError: ErrConfigInvalid,
		},
		{
			name:         "memory_backend_ignores_prefix",
			modifyConfig: func(c *Config) { c.Store.Backend = StoreBackendMemory; c.Store.KeyPrefix = "" },
		},
		{
			name:         "empty_redis_addr",
			modifyConfig: func(c *Config) { c.Redis.Addr = "" },
			expectError:  ErrConfigInvalid,
		},
		{
			name:         "invalid_pool_size",
			modifyConfig: func(c *Config) { c.Redis.PoolSize = 0 },
			expectError:  ErrConfigInvalid,
		},
		{
			name:         "invalid_failure_ratio",
			modifyConfig: func(c *Config) { c.CircuitBreaker.FailureRatio = 1.5 },
			expectError:  ErrConfigInvalid,
		},
		{
			name: "disabled_breaker_skips_checks",
			modifyConfig: func(c *Config) {
				c.CircuitBreaker.Enabled = false
				c.CircuitBreaker.FailureRatio = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modifyConfig(config)

			err := config.Validate()
			if tt.expectError == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expectError)
			assert.ErrorIs(t, err, ErrConfigInvalid)
		})
	}
}

func TestConfigManager_WatchConfig(t *testing.T) {
	isolateConfigSearch(t)
	dir := t.TempDir()
	path := writeConfigFile(t, dir, "wheel:\n  full_turns: 3\n")

	cm := NewConfigManager()
	_, err := cm.LoadConfigFile(path)
	require.NoError(t, err)

	reloaded := make(chan *Config, 4)
	require.NoError(t, cm.WatchConfig(func(c *Config) { reloaded <- c }))

	// An invalid edit is ignored and the previous config stays current
	replaceConfigFile(t, path, "wheel:\n  full_turns: 0\n")
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 3, cm.GetConfig().Wheel.FullTurns)

	replaceConfigFile(t, path, "wheel:\n  full_turns: 8\n")

	timeout := time.After(3 * time.Second)
	for {
		select {
		case c := <-reloaded:
			if c.Wheel.FullTurns != 8 {
				continue
			}
			assert.Equal(t, 8, cm.GetConfig().Wheel.FullTurns)
			return
		case <-timeout:
			t.Fatal("config change was not observed")
		}
	}
}

func TestConfigManager_WatchWithoutFile(t *testing.T) {
	cm := NewDefaultConfigManager()
	assert.ErrorIs(t, cm.WatchConfig(nil), ErrConfigInvalid)
	assert.Equal(t, DefaultConfig(), cm.GetConfig())
}
