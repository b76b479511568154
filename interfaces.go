package wheel

import (
	"context"
	"time"
)

// RandomSource supplies uniformly distributed floats in [0, 1)
type RandomSource interface {
	GenerateFloat() (float64, error)
}

// OptionStore persists option sets between sessions
type OptionStore interface {
	// Load returns the saved option set for the wheel, or nil when nothing was saved
	Load(ctx context.Context, wheelID string) (OptionSet, error)

	// Save replaces the saved option set for the wheel
	Save(ctx context.Context, wheelID string, options OptionSet) error
}

// SpinGuard is the re-entrancy guard held for the whole animation window of a spin
type SpinGuard interface {
	// TryAcquire takes the guard for token, reporting false when another spin holds it.
	// ttl is how long the guard must outlive a crashed owner; guards without
	// expiry ignore it.
	TryAcquire(ctx context.Context, token string, ttl time.Duration) (bool, error)

	// Release frees the guard if token still owns it
	Release(ctx context.Context, token string) (bool, error)
}

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}
