package testutil

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/contrastive/mat32"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), // nolint gosec
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// FillUniformRange fills dst with random values in range [minVal, maxVal).
func (r *RNG) FillUniformRange(dst []float32, minVal, maxVal float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	span := maxVal - minVal
	for i := range dst {
		dst[i] = minVal + r.rand.Float32()*span
	}
}

// UniformBatch generates an (n x dim) embedding batch with values in
// range [0, 1).
func (r *RNG) UniformBatch(n, dim int) *mat32.Matrix {
	m := mat32.New(n, dim)
	r.FillUniform(m.Data())

	return m
}

// UniformRangeBatch generates an (n x dim) embedding batch with values in
// range [minVal, maxVal).
func (r *RNG) UniformRangeBatch(n, dim int, minVal, maxVal float32) *mat32.Matrix {
	m := mat32.New(n, dim)
	r.FillUniformRange(m.Data(), minVal, maxVal)

	return m
}
