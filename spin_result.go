package wheel

import "time"

// SpinResult is everything a renderer needs to animate one spin
type SpinResult struct {
	Token     string          `json:"token"`      // Owner token of the spin guard, required to reveal
	Selection SelectionResult `json:"selection"`  // Winner drawn when the spin started
	Rotation  Rotation        `json:"rotation"`   // Where the wheel comes to rest
	Slices    []Slice         `json:"slices"`     // Layout the rotation was computed against
	StartedAt time.Time       `json:"started_at"` // When the spin started
	RevealAt  time.Time       `json:"reveal_at"`  // Earliest time the result may be revealed
}

// Duration returns the animation window of the spin
func (r *SpinResult) Duration() time.Duration { return r.RevealAt.Sub(r.StartedAt) }

// Remaining returns how long until the spin can be revealed, zero once it can
func (r *SpinResult) Remaining(now time.Time) time.Duration {
	if d := r.RevealAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Finished reports whether the animation window has elapsed at now
func (r *SpinResult) Finished(now time.Time) bool { return !now.Before(r.RevealAt) }
