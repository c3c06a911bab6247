package contrastive

import (
	"github.com/hupe1980/contrastive/mat32"
)

// maskValue is subtracted from a sample's similarity to its own global
// position so it can never dominate the softmax denominator.
const maskValue = 1e9

// labelCache memoizes the global label vector (and, when enabled, the
// self-similarity mask) keyed by the local batch size. Labels assume every
// worker contributes an equal, contiguous, rank-ordered batch; engines
// verify the gathered row counts to back this up.
//
// Instance-private and sequential: one cache per engine, one forward call
// at a time.
type labelCache struct {
	lastBatchSize int
	labels        []int
	mask          *mat32.Matrix
	withMask      bool
}

// ensure returns the labels (and mask, when enabled) for local batch size
// n, recomputing them only when n differs from the previous call.
//
// labels[i] = n*rank + i, each local sample's global row index in a
// gathered batch. The mask is (n x n*world) with maskValue at each
// sample's own global column and zero elsewhere.
func (c *labelCache) ensure(n, rank, world int) (labels []int, mask *mat32.Matrix, rebuilt bool) {
	if n == c.lastBatchSize && c.labels != nil {
		return c.labels, c.mask, false
	}

	labels = make([]int, n)
	for i := range labels {
		labels[i] = n*rank + i
	}
	c.labels = labels

	if c.withMask {
		m := mat32.New(n, n*world)
		for i, label := range labels {
			m.Set(i, label, maskValue)
		}
		c.mask = m
	}

	c.lastBatchSize = n

	return c.labels, c.mask, true
}
