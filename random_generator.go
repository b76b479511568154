package wheel

import (
	"crypto/rand"
	"math"
	"math/big"
	"sync"
)

// DefaultRandomCacheSize is how many floats the secure generator draws per refill
const DefaultRandomCacheSize = 256

// RandomFunc adapts a plain function to RandomSource
type RandomFunc func() (float64, error)

// GenerateFloat calls f
func (f RandomFunc) GenerateFloat() (float64, error) { return f() }

// SecureRandomGenerator implements secure random number generation using crypto/rand with caching
type SecureRandomGenerator struct {
	cache      []float64
	cacheSize  int
	cacheIndex int
	cacheMtx   sync.Mutex
}

// NewSecureRandomGenerator creates a new secure random generator with specified cache size
//
// If no cache size is provided, or it is not positive, DefaultRandomCacheSize is used.
// The cache is filled lazily on the first draw.
func NewSecureRandomGenerator(cacheSize ...int) *SecureRandomGenerator {
	size := DefaultRandomCacheSize
	if len(cacheSize) > 0 && cacheSize[0] > 0 {
		size = cacheSize[0]
	}

	return &SecureRandomGenerator{
		cache:      make([]float64, size),
		cacheSize:  size,
		cacheIndex: size,
	}
}

// refillCache refills the random number cache
func (g *SecureRandomGenerator) refillCache() error {
	for i := range g.cacheSize {
		val, err := generateFloat()
		if err != nil {
			return ErrRandomSourceFailed.WithCause(err)
		}
		g.cache[i] = val
	}

	g.cacheIndex = 0
	return nil
}

// GenerateFloat generates a secure random float between 0 and 1 (exclusive of 1)
func (g *SecureRandomGenerator) GenerateFloat() (float64, error) {
	g.cacheMtx.Lock()
	defer g.cacheMtx.Unlock()

	if g.cacheIndex >= g.cacheSize {
		if err := g.refillCache(); err != nil {
			return 0, err
		}
	}

	result := g.cache[g.cacheIndex]
	g.cacheIndex++
	return result, nil
}

// GenerateInRange generates a secure random number within [min, max] (inclusive)
func (g *SecureRandomGenerator) GenerateInRange(min, max int) (int, error) {
	if min > max {
		return 0, ErrInvalidParameters.WithDetailsf("min=%d, max=%d", min, max)
	}
	if min == max {
		return min, nil
	}

	randomFloat, err := g.GenerateFloat()
	if err != nil {
		return 0, err
	}

	rangeSize := max - min + 1
	result := int(randomFloat*float64(rangeSize)) + min

	// Floating point precision may push the result past max
	if result > max {
		result = max
	}

	return result, nil
}

// generateFloat generates a secure random float between 0 and 1 (exclusive of 1)
func generateFloat() (float64, error) {
	randomBig, err := rand.Int(rand.Reader, big.NewInt(1<<53)) // 53 bits of float64 mantissa
	if err != nil {
		return 0, err
	}

	return float64(randomBig.Int64()) / float64(1<<53), nil
}

// drawUnit pulls one value from rnd and checks it stays in [0, 1)
func drawUnit(rnd RandomSource) (float64, error) {
	if rnd == nil {
		return 0, ErrRandomSourceFailed.WithDetails("nil random source")
	}

	u, err := rnd.GenerateFloat()
	if err != nil {
		return 0, ErrRandomSourceFailed.WithCause(err)
	}
	if math.IsNaN(u) || u < 0 || u >= 1 {
		return 0, ErrRandomSourceFailed.WithDetailsf("value %v outside [0, 1)", u)
	}

	return u, nil
}
