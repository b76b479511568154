package wheel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisOptionStore keeps option sets in Redis as JSON arrays without expiry
type RedisOptionStore struct {
	redisClient    *redis.Client
	logger         Logger
	keyPrefix      string
	retryAttempts  int
	retryBaseDelay time.Duration
}

// NewRedisOptionStore creates a Redis-backed option store with default retry settings
func NewRedisOptionStore(redisClient *redis.Client, logger Logger) *RedisOptionStore {
	return NewRedisOptionStoreWithRetry(redisClient, logger, DefaultRetryAttempts, DefaultRetryInterval)
}

// NewRedisOptionStoreWithRetry creates a Redis-backed option store with custom retry settings
func NewRedisOptionStoreWithRetry(
	redisClient *redis.Client, logger Logger, retryAttempts int, retryDelay time.Duration,
) *RedisOptionStore {
	if logger == nil {
		logger = NewSilentLogger()
	}
	return &RedisOptionStore{
		redisClient:    redisClient,
		logger:         logger,
		keyPrefix:      OptionsKeyPrefix,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryDelay,
	}
}

// NewRedisOptionStoreFromConfig creates a Redis-backed option store from store settings
func NewRedisOptionStoreFromConfig(redisClient *redis.Client, config *StoreConfig, logger Logger) *RedisOptionStore {
	if config == nil {
		config = DefaultStoreConfig()
	}
	s := NewRedisOptionStoreWithRetry(redisClient, logger, config.RetryAttempts, config.RetryInterval)
	if config.KeyPrefix != "" {
		s.keyPrefix = config.KeyPrefix
	}
	return s
}

// optionsKey builds the Redis key for a wheel
func (s *RedisOptionStore) optionsKey(wheelID string) string {
	return s.keyPrefix + wheelID
}

// Load returns the saved option set, or nil when the key does not exist
func (s *RedisOptionStore) Load(ctx context.Context, wheelID string) (OptionSet, error) {
	if err := ValidateWheelID(wheelID); err != nil {
		return nil, err
	}

	key := s.optionsKey(wheelID)
	s.logger.Debug("Loading options from Redis: key=%s", key)

	var data []byte
	loadStart := time.Now()
	err := s.executeWithRetry(ctx, fmt.Sprintf("load[%s]", key), func() error {
		var getErr error
		data, getErr = s.redisClient.Get(ctx, key).Bytes()
		if getErr == redis.Nil {
			// Missing key is not an error, don't retry
			data = nil
			return nil
		}
		return getErr
	})
	loadDuration := time.Since(loadStart)
	if err != nil {
		s.logger.Error("Failed to load options from Redis: key=%s, load_time=%v, error=%v", key, loadDuration, err)
		return nil, ErrStateLoadFailure.WithCause(err).WithDetailsf("key=%s", key)
	}

	if len(data) == 0 {
		s.logger.Debug("No saved options found: key=%s, load_time=%v", key, loadDuration)
		return nil, nil
	}

	if len(data) > MaxSerializationSize {
		s.logger.Error("Loaded options size (%d bytes) exceeds maximum (%d bytes): key=%s", len(data), MaxSerializationSize, key)
		return nil, ErrStateCorrupted.WithDetailsf("key=%s size=%d bytes exceeds %d", key, len(data), MaxSerializationSize)
	}

	options, err := deserializeOptions(data)
	if err != nil {
		s.logger.Error("Failed to deserialize options: key=%s, size=%d bytes, error=%v", key, len(data), err)
		return nil, err
	}

	s.logger.Debug("Loaded %d options: key=%s, size=%d bytes, load_time=%v", len(options), key, len(data), loadDuration)
	return options, nil
}

// Save replaces the saved option set; an empty set is stored as an empty array
func (s *RedisOptionStore) Save(ctx context.Context, wheelID string, options OptionSet) error {
	if err := ValidateWheelID(wheelID); err != nil {
		return err
	}

	key := s.optionsKey(wheelID)
	data, err := serializeOptions(options)
	if err != nil {
		s.logger.Error("Failed to serialize options for key=%s: %v", key, err)
		return err
	}

	s.logger.Debug("Saving %d options to Redis: key=%s, size=%d bytes", len(options), key, len(data))

	err = s.executeWithRetry(ctx, fmt.Sprintf("save[%s]", key), func() error {
		return s.redisClient.Set(ctx, key, data, 0).Err()
	})
	if err != nil {
		s.logger.Error("Failed to save options to Redis: key=%s, size=%d bytes, error=%v", key, len(data), err)
		return ErrStateSaveFailure.WithCause(err).WithDetailsf("key=%s", key)
	}

	s.logger.Debug("Saved options: key=%s, count=%d", key, len(options))
	return nil
}

// Delete removes the saved option set
func (s *RedisOptionStore) Delete(ctx context.Context, wheelID string) error {
	if err := ValidateWheelID(wheelID); err != nil {
		return err
	}

	key := s.optionsKey(wheelID)
	var deleted int64
	err := s.executeWithRetry(ctx, fmt.Sprintf("delete[%s]", key), func() error {
		var delErr error
		deleted, delErr = s.redisClient.Del(ctx, key).Result()
		return delErr
	})
	if err != nil {
		s.logger.Error("Failed to delete options from Redis: key=%s, error=%v", key, err)
		return ErrStateSaveFailure.WithCause(err).WithDetailsf("delete key=%s", key)
	}

	s.logger.Debug("Deleted options: key=%s, keys_deleted=%d", key, deleted)
	return nil
}

// executeWithRetry executes a Redis operation with retry logic using exponential backoff
func (s *RedisOptionStore) executeWithRetry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	startTime := time.Now()

	for attempt := 0; attempt <= s.retryAttempts; attempt++ {
		if attempt > 0 {
			// baseDelay * 2^(attempt-1), capped
			delay := time.Duration(1<<(attempt-1)) * s.retryBaseDelay
			if delay > MaxRetryDelay {
				delay = MaxRetryDelay
			}

			s.logger.Debug("Retrying %s operation (attempt %d/%d) after %v, total elapsed: %v",
				operation, attempt, s.retryAttempts, delay, time.Since(startTime))

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during retry for %s operation after %v (attempt %d/%d): %w",
					operation, time.Since(startTime), attempt, s.retryAttempts+1, ctx.Err())
			case <-time.After(delay):
			}
		}

		err := fn()
		if err == nil {
			if attempt > 0 {
				s.logger.Info("Completed %s operation after %d retries (total time: %v)",
					operation, attempt, time.Since(startTime))
			}
			return nil
		}

		lastErr = err
		if !IsRetryableError(err) {
			s.logger.Debug("Non-retriable error for %s operation (attempt %d): %v", operation, attempt+1, err)
			break
		}

		s.logger.Debug("Retriable error for %s operation (attempt %d/%d): %v",
			operation, attempt+1, s.retryAttempts+1, err)
	}

	return fmt.Errorf("%s operation failed after %v: %w", operation, time.Since(startTime), lastErr)
}

// serializeOptions encodes an option set as a JSON array
func serializeOptions(options OptionSet) ([]byte, error) {
	if options == nil {
		options = OptionSet{}
	}

	data, err := json.Marshal(options)
	if err != nil {
		return nil, ErrSerializationFailed.WithCause(err)
	}
	if len(data) > MaxSerializationSize {
		return nil, ErrSerializationFailed.WithDetailsf("serialized size %d bytes exceeds %d", len(data), MaxSerializationSize)
	}
	return data, nil
}

// deserializeOptions decodes a JSON array and validates each option
func deserializeOptions(data []byte) (OptionSet, error) {
	var options OptionSet
	if err := json.Unmarshal(data, &options); err != nil {
		return nil, ErrStateCorrupted.WithCause(err)
	}

	for i, o := range options {
		if err := o.Validate(); err != nil {
			return nil, ErrStateCorrupted.WithCause(err).WithDetailsf("option %d", i)
		}
	}
	if len(options) > 0 {
		if _, err := options.TotalWeight(); err != nil {
			return nil, ErrStateCorrupted.WithCause(err)
		}
	}
	return options, nil
}

// MemoryOptionStore keeps option sets in process memory
type MemoryOptionStore struct {
	mu   sync.RWMutex
	sets map[string]OptionSet
}

// NewMemoryOptionStore creates an empty in-memory store
func NewMemoryOptionStore() *MemoryOptionStore {
	return &MemoryOptionStore{sets: make(map[string]OptionSet)}
}

// Load returns a copy of the saved set, or nil when nothing was saved
func (m *MemoryOptionStore) Load(ctx context.Context, wheelID string) (OptionSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	set, ok := m.sets[wheelID]
	if !ok {
		return nil, nil
	}
	return set.Clone(), nil
}

// Save stores a copy of options
func (m *MemoryOptionStore) Save(ctx context.Context, wheelID string, options OptionSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if options == nil {
		options = OptionSet{}
	}
	m.sets[wheelID] = options.Clone()
	return nil
}

// NewOptionStoreFromConfig builds the configured store backend behind the
// circuit breaker. The returned close function releases backend resources
// and is never nil.
func NewOptionStoreFromConfig(config *Config, redisClient *redis.Client, logger Logger) (*BreakerOptionStore, func() error, error) {
	if config == nil || config.Store == nil {
		return nil, nil, ErrInvalidParameters.WithDetails("nil store configuration")
	}
	if err := config.Store.Validate(); err != nil {
		return nil, nil, err
	}

	var (
		backend OptionStore
		closer  = func() error { return nil }
	)
	switch config.Store.Backend {
	case StoreBackendRedis:
		if redisClient == nil {
			return nil, nil, ErrInvalidParameters.WithDetails("redis backend needs a redis client")
		}
		backend = NewRedisOptionStoreFromConfig(redisClient, config.Store, logger)
	case StoreBackendSQLite:
		sqliteStore, err := OpenSQLiteOptionStore(config.Store.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		backend, closer = sqliteStore, sqliteStore.Close
	case StoreBackendMemory:
		backend = NewMemoryOptionStore()
	}

	return NewBreakerOptionStore(backend, config.CircuitBreaker, logger), closer, nil
}
