package wheel

import (
	"context"
	"errors"

	"github.com/sony/gobreaker"
)

// BreakerOptionStore 带熔断器的选项存储
type BreakerOptionStore struct {
	store OptionStore

	breaker *gobreaker.CircuitBreaker
	logger  Logger
	config  *CircuitBreakerConfig
}

// NewBreakerOptionStore 创建带熔断器的选项存储
func NewBreakerOptionStore(store OptionStore, config *CircuitBreakerConfig, logger Logger) *BreakerOptionStore {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}
	if logger == nil {
		logger = NewSilentLogger()
	}
	if !config.Enabled {
		// 熔断器未启用, 透传
		return &BreakerOptionStore{
			store:  store,
			logger: logger,
			config: config,
		}
	}

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// 请求数达到最小要求且失败率超过阈值时触发熔断
			return counts.Requests >= config.MinRequests &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= config.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// 调用方传入的无效参数或上下文取消不计入失败
			return err == nil ||
				errors.Is(err, ErrInvalidParameters) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if config.OnStateChange {
				logger.Info("Circuit breaker '%s' state changed from %s to %s", name, from, to)
			}
		},
	}

	return &BreakerOptionStore{
		store:   store,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
		config:  config,
	}
}

// executeWithBreaker 使用熔断器执行操作
func (b *BreakerOptionStore) executeWithBreaker(operation func() (any, error)) (any, error) {
	if b.breaker == nil {
		return operation()
	}

	result, err := b.breaker.Execute(operation)
	if errors.Is(err, gobreaker.ErrOpenState) {
		return nil, ErrCircuitBreakerOpen.WithDetails("circuit breaker is open, requests are being rejected")
	}
	if errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitBreakerOpen.WithDetails("too many requests, circuit breaker is half-open")
	}

	return result, err
}

// Load 通过熔断器加载选项
func (b *BreakerOptionStore) Load(ctx context.Context, wheelID string) (OptionSet, error) {
	result, err := b.executeWithBreaker(func() (any, error) {
		return b.store.Load(ctx, wheelID)
	})
	if err != nil {
		return nil, err
	}

	options, _ := result.(OptionSet)
	return options, nil
}

// Save 通过熔断器保存选项
func (b *BreakerOptionStore) Save(ctx context.Context, wheelID string, options OptionSet) error {
	_, err := b.executeWithBreaker(func() (any, error) {
		return nil, b.store.Save(ctx, wheelID, options)
	})
	return err
}

// State 获取熔断器状态
func (b *BreakerOptionStore) State() gobreaker.State {
	if b.breaker == nil {
		return gobreaker.StateClosed
	}
	return b.breaker.State()
}

// Counts 获取熔断器计数
func (b *BreakerOptionStore) Counts() gobreaker.Counts {
	if b.breaker == nil {
		return gobreaker.Counts{}
	}
	return b.breaker.Counts()
}
