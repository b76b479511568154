package wheel

import (
	"errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"time"
)

// ErrorCode 错误代码类型
type ErrorCode string

// 错误代码常量
const (
	// 系统级错误 (1000-1999)
	ErrCodeSystem             ErrorCode = "WHEEL_1000"
	ErrCodeRedisConnection    ErrorCode = "WHEEL_1001"
	ErrCodeConfigInvalid      ErrorCode = "WHEEL_1004"
	ErrCodeRandomSource       ErrorCode = "WHEEL_1006"
	ErrCodeInvalidFullTurns   ErrorCode = "WHEEL_1007"
	ErrCodeInvalidSpinTimeout ErrorCode = "WHEEL_1008"
	ErrCodeInvalidRetry       ErrorCode = "WHEEL_1009"

	// 选项数据错误 (2000-2999)
	ErrCodeInvalidParameters ErrorCode = "WHEEL_2000"
	ErrCodeEmptyOptionSet    ErrorCode = "WHEEL_2001"
	ErrCodeInvalidWeight     ErrorCode = "WHEEL_2002"
	ErrCodeIndexOutOfRange   ErrorCode = "WHEEL_2003"
	ErrCodeInvalidOptionName ErrorCode = "WHEEL_2004"
	ErrCodeUnknownRarity     ErrorCode = "WHEEL_2005"
	ErrCodeInvalidRarity     ErrorCode = "WHEEL_2006"
	ErrCodeInvalidCount      ErrorCode = "WHEEL_2007"

	// 转盘状态错误 (3000-3999)
	ErrCodeSpinInProgress   ErrorCode = "WHEEL_3000"
	ErrCodeNoSpinInProgress ErrorCode = "WHEEL_3001"
	ErrCodeSpinNotFinished  ErrorCode = "WHEEL_3002"
	ErrCodeInvalidSpinToken ErrorCode = "WHEEL_3003"
	ErrCodeNoWinner         ErrorCode = "WHEEL_3004"

	// 熔断相关错误 (5000-5999)
	ErrCodeCircuitBreakerOpen ErrorCode = "WHEEL_5002"

	// 存储相关错误 (6000-6999)
	ErrCodeStateSaveFailure    ErrorCode = "WHEEL_6001"
	ErrCodeStateLoadFailure    ErrorCode = "WHEEL_6002"
	ErrCodeStateCorrupted      ErrorCode = "WHEEL_6003"
	ErrCodeSerializationFailed ErrorCode = "WHEEL_6004"
)

// ErrorSeverity 错误严重程度
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "critical"
	SeverityHigh     ErrorSeverity = "high"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityLow      ErrorSeverity = "low"
	SeverityInfo     ErrorSeverity = "info"
)

// WheelError 转盘错误类型
type WheelError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Details    string         `json:"details,omitempty"`
	Severity   ErrorSeverity  `json:"severity"`
	Timestamp  time.Time      `json:"timestamp"`
	Operation  string         `json:"operation,omitempty"`
	StackTrace string         `json:"stack_trace,omitempty"`
	Cause      error          `json:"-"`
	Retryable  bool           `json:"retryable"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Error 实现 error 接口
func (e *WheelError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap 接口
func (e *WheelError) Unwrap() error {
	return e.Cause
}

// Is 实现 errors.Is 接口, 按错误代码比较
func (e *WheelError) Is(target error) bool {
	if t, ok := target.(*WheelError); ok {
		return e.Code == t.Code
	}
	return false
}

// clone 复制错误, 预定义的错误实例不会被修改
func (e *WheelError) clone() *WheelError {
	c := *e
	c.Timestamp = time.Now()
	if e.Metadata != nil {
		c.Metadata = maps.Clone(e.Metadata)
	}
	return &c
}

// WithCause 添加原因错误
func (e *WheelError) WithCause(cause error) *WheelError {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithDetails 添加详细信息
func (e *WheelError) WithDetails(details string) *WheelError {
	c := e.clone()
	c.Details = details
	return c
}

// WithDetailsf 添加格式化的详细信息
func (e *WheelError) WithDetailsf(format string, args ...any) *WheelError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// WithOperation 添加操作信息
func (e *WheelError) WithOperation(operation string) *WheelError {
	c := e.clone()
	c.Operation = operation
	return c
}

// WithMetadata 添加元数据
func (e *WheelError) WithMetadata(key string, value any) *WheelError {
	c := e.clone()
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	c.Metadata[key] = value
	return c
}

// WithStackTrace 添加堆栈跟踪
func (e *WheelError) WithStackTrace() *WheelError {
	c := e.clone()
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	c.StackTrace = string(buf[:n])
	return c
}

// NewError 创建新的错误
func NewError(code ErrorCode, message string) *WheelError {
	return &WheelError{
		Code:      code,
		Message:   message,
		Severity:  SeverityMedium,
		Timestamp: time.Now(),
		Retryable: false,
	}
}

// NewRetryableError 创建可重试的错误
func NewRetryableError(code ErrorCode, message string) *WheelError {
	return &WheelError{
		Code:      code,
		Message:   message,
		Severity:  SeverityMedium,
		Timestamp: time.Now(),
		Retryable: true,
	}
}

// NewCriticalError 创建严重错误
func NewCriticalError(code ErrorCode, message string) *WheelError {
	return &WheelError{
		Code:      code,
		Message:   message,
		Severity:  SeverityCritical,
		Timestamp: time.Now(),
		Retryable: false,
	}
}

// 预定义的错误实例
var (
	// 系统级错误
	ErrSystemError           = NewCriticalError(ErrCodeSystem, "system error occurred")
	ErrRedisConnectionFailed = NewRetryableError(ErrCodeRedisConnection, "Redis connection failed")
	ErrConfigInvalid         = NewCriticalError(ErrCodeConfigInvalid, "configuration is invalid")
	ErrRandomSourceFailed    = NewError(ErrCodeRandomSource, "random source failed")
	ErrInvalidFullTurns      = NewError(ErrCodeInvalidFullTurns, "invalid full turns: must be between 1 and 100")
	ErrInvalidSpinDuration   = NewError(ErrCodeInvalidSpinTimeout, "invalid spin duration: must be between 0 and 5m")
	ErrInvalidRetrySettings  = NewError(ErrCodeInvalidRetry, "invalid retry settings: attempts must be between 0 and 10, interval non-negative")

	// 选项数据错误
	ErrInvalidParameters = NewError(ErrCodeInvalidParameters, "invalid parameters provided")
	ErrEmptyOptionSet    = NewError(ErrCodeEmptyOptionSet, "no options available")
	ErrInvalidWeight     = NewError(ErrCodeInvalidWeight, "invalid weight: must be a positive integer")
	ErrIndexOutOfRange   = NewError(ErrCodeIndexOutOfRange, "option index out of range")
	ErrInvalidOptionName = NewError(ErrCodeInvalidOptionName, "invalid option name: cannot be empty")
	ErrUnknownRarity     = NewError(ErrCodeUnknownRarity, "unknown rarity tier")
	ErrInvalidRarity     = NewError(ErrCodeInvalidRarity, "invalid rarity table")
	ErrInvalidCount      = NewError(ErrCodeInvalidCount, "invalid count: must be greater than 0")

	// 转盘状态错误
	ErrSpinInProgress   = NewRetryableError(ErrCodeSpinInProgress, "a spin is already in progress")
	ErrNoSpinInProgress = NewError(ErrCodeNoSpinInProgress, "no spin in progress")
	ErrSpinNotFinished  = NewRetryableError(ErrCodeSpinNotFinished, "spin animation has not finished")
	ErrInvalidSpinToken = NewError(ErrCodeInvalidSpinToken, "spin token does not match the pending spin")
	ErrNoWinner         = NewError(ErrCodeNoWinner, "no revealed winner")

	// 熔断相关错误
	ErrCircuitBreakerOpen = NewRetryableError(ErrCodeCircuitBreakerOpen, "circuit breaker is open")

	// 存储相关错误
	ErrStateSaveFailure    = NewRetryableError(ErrCodeStateSaveFailure, "failed to save options")
	ErrStateLoadFailure    = NewRetryableError(ErrCodeStateLoadFailure, "failed to load options")
	ErrStateCorrupted      = NewError(ErrCodeStateCorrupted, "stored options are corrupted")
	ErrSerializationFailed = NewError(ErrCodeSerializationFailed, "serialization failed")
)

var retryablePatterns = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"network is unreachable",
	"temporary failure",
	"server closed",
	"broken pipe",
	"i/o timeout",
	"dial tcp",
	"read tcp",
	"write tcp",
	"connection timed out",
	"no route to host",
	"host is down",
	"connection aborted",
	"socket is not connected",
	"operation timed out",
	"redis: connection pool timeout",
	"redis: client is closed",
	"context deadline exceeded",
}

// IsRetryableError 检查是否为可重试错误
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var wheelErr *WheelError
	if errors.As(err, &wheelErr) && wheelErr.Retryable {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
