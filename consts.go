package wheel

import (
	"math"
	"time"
)

const (
	// FullCircle is one complete turn of the wheel in radians
	FullCircle = 2 * math.Pi

	// DefaultFullTurns is the number of whole turns every spin makes before landing
	DefaultFullTurns = 10

	// MinFullTurns is the smallest number of whole turns a spin may be configured with
	MinFullTurns = 1

	// MaxFullTurns is the largest number of whole turns a spin may be configured with
	MaxFullTurns = 100

	// DefaultPointerAngle is where the fixed pointer sits, in radians, measured
	// clockwise from the 3 o'clock position like canvas arcs
	DefaultPointerAngle = 0.0

	// DefaultSpinDuration is the animation window between starting a spin and revealing it
	DefaultSpinDuration = 7 * time.Second

	// MaxSpinDuration bounds the configured animation window
	MaxSpinDuration = 5 * time.Minute

	// DefaultWheelID identifies the wheel when none is configured
	DefaultWheelID = "default"

	// MaxTotalWeight bounds the sum of all weights so it stays exact as a float64
	MaxTotalWeight int64 = 1 << 53

	// MaxLabelLength is the longest name drawn on a slice without truncation
	MaxLabelLength = 15

	// TruncatedLabelLength is how many runes of a long name are kept before the ellipsis
	TruncatedLabelLength = 12

	// LabelEllipsis is appended to truncated names
	LabelEllipsis = "..."
)

// Palette holds the slice colors, assigned by index modulo its length
var Palette = []string{
	"#FF6B6B", "#FFD166", "#06D6A0", "#118AB2", "#073B4C",
	"#E07A5F", "#3D405B", "#81B29A", "#F2CC8F", "#BC4749",
}

const (
	// OptionsKeyPrefix is the prefix for Redis keys holding option sets
	OptionsKeyPrefix = "wheel:options:"

	// SpinGuardKeyPrefix is the prefix for Redis spin guard keys
	SpinGuardKeyPrefix = "wheel:spin:"

	// DefaultSpinGuardSlack is added to the spin duration when a Redis guard is set,
	// so a crashed owner never blocks the wheel forever
	DefaultSpinGuardSlack = 5 * time.Second

	// StoreBackendRedis keeps option sets in Redis
	StoreBackendRedis = "redis"

	// StoreBackendSQLite keeps option sets in a local SQLite file
	StoreBackendSQLite = "sqlite"

	// StoreBackendMemory keeps option sets in process memory only
	StoreBackendMemory = "memory"

	// DefaultSQLitePath is the database file used by the sqlite backend
	DefaultSQLitePath = "wheel.db"

	// DefaultRetryAttempts is the default number of store retry attempts
	DefaultRetryAttempts = 3

	// MaxRetryAttempts is the maximum number of store retry attempts allowed
	MaxRetryAttempts = 10

	// DefaultRetryInterval is the base delay between store retry attempts
	DefaultRetryInterval = 100 * time.Millisecond

	// MaxRetryDelay caps the exponential backoff between retries
	MaxRetryDelay = 5 * time.Second

	// MaxSerializationSize is the maximum allowed size for a serialized option set (1MB)
	MaxSerializationSize = 1024 * 1024
)

const (
	// DefaultCircuitBreakerName is the default name for Circuit Breaker
	DefaultCircuitBreakerName = "wheel-store"

	// DefaultCircuitBreakerMaxRequests is the default max requests
	DefaultCircuitBreakerMaxRequests = 3

	// DefaultCircuitBreakerInterval is the default interval
	DefaultCircuitBreakerInterval = 60 * time.Second

	// DefaultCircuitBreakerTimeout is the default timeout
	DefaultCircuitBreakerTimeout = 30 * time.Second

	// DefaultCircuitBreakerFailureRatio is the default failure ratio
	DefaultCircuitBreakerFailureRatio = 0.6

	// DefaultCircuitBreakerMinRequests is the default min requests
	DefaultCircuitBreakerMinRequests = 3

	// DefaultCircuitBreakerOnStateChange is the default on state change
	DefaultCircuitBreakerOnStateChange = true
)

const (
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisPassword     = ""
	DefaultRedisDB           = 0
	DefaultRedisPoolSize     = 10
	DefaultRedisMinIdleConns = 2
	DefaultRedisMaxRetries   = 3
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second
	DefaultRedisPoolTimeout  = 4 * time.Second
)
