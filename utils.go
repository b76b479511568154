package wheel

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// ValidateCount validates count parameter for multiple draws
func ValidateCount(count int) error {
	if count <= 0 {
		return ErrInvalidCount.WithDetailsf("count=%d", count)
	}
	return nil
}

// ValidateWheelID validates the identifier used to key stored state
func ValidateWheelID(wheelID string) error {
	if strings.TrimSpace(wheelID) == "" {
		return ErrInvalidParameters.WithDetails("wheel id cannot be empty")
	}
	return nil
}

// generateSpinToken generates a unique spin token using crypto/rand
func generateSpinToken() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based value if crypto/rand fails
		return fmt.Sprintf("spin_%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
