package contrastive

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/contrastive/comm"
	"github.com/hupe1980/contrastive/testutil"
)

func TestSIMCLRLossForward(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(42)

	t.Run("EndToEnd", func(t *testing.T) {
		loss := NewSIMCLRLoss(nil, WithTemperature(0.1))
		result, err := loss.Forward(ctx, SIMCLRInput{
			Aug1: rng.UniformRangeBatch(4, 8, -1, 1),
			Aug2: rng.UniformRangeBatch(4, 8, -1, 1),
		})
		require.NoError(t, err)

		require.Contains(t, result, MetricLoss)
		require.Contains(t, result, MetricSSLLoss)
		require.Contains(t, result, MetricSSLAcc)

		assert.Equal(t, result[MetricLoss], result[MetricSSLLoss])
		assert.False(t, math.IsNaN(float64(result[MetricLoss])))
		assert.GreaterOrEqual(t, result[MetricLoss], float32(0))
		assert.GreaterOrEqual(t, result[MetricSSLAcc], float32(0))
		assert.LessOrEqual(t, result[MetricSSLAcc], float32(100))
	})

	t.Run("SingleSample", func(t *testing.T) {
		// With one sample and one worker the only unmasked negative is
		// the cross-view positive itself, so the loss collapses to zero.
		loss := NewSIMCLRLoss(nil)
		aug := rng.UniformRangeBatch(1, 8, -1, 1)

		result, err := loss.Forward(ctx, SIMCLRInput{Aug1: aug, Aug2: aug})
		require.NoError(t, err)
		assert.InDelta(t, 0, float64(result[MetricLoss]), 1e-5)
		assert.Equal(t, float32(100), result[MetricSSLAcc])
	})

	t.Run("IdenticalViews", func(t *testing.T) {
		// Distinct samples, identical views: every sample's cross-view
		// positive carries the maximal similarity, so accuracy is 100.
		loss := NewSIMCLRLoss(nil)
		aug := rng.UniformRangeBatch(8, 16, -1, 1)

		result, err := loss.Forward(ctx, SIMCLRInput{Aug1: aug, Aug2: aug.Clone()})
		require.NoError(t, err)
		assert.Equal(t, float32(100), result[MetricSSLAcc])
	})

	t.Run("SwapSymmetry", func(t *testing.T) {
		aug1 := rng.UniformRangeBatch(4, 8, -1, 1)
		aug2 := rng.UniformRangeBatch(4, 8, -1, 1)

		forward, err := NewSIMCLRLoss(nil).Forward(ctx, SIMCLRInput{Aug1: aug1, Aug2: aug2})
		require.NoError(t, err)
		swapped, err := NewSIMCLRLoss(nil).Forward(ctx, SIMCLRInput{Aug1: aug2, Aug2: aug1})
		require.NoError(t, err)

		assert.InDelta(t, forward[MetricLoss], swapped[MetricLoss], 1e-5)
	})

	t.Run("CacheInvalidation", func(t *testing.T) {
		loss := NewSIMCLRLoss(nil)

		for i := 0; i < 2; i++ {
			_, err := loss.Forward(ctx, SIMCLRInput{
				Aug1: rng.UniformRangeBatch(4, 8, -1, 1),
				Aug2: rng.UniformRangeBatch(4, 8, -1, 1),
			})
			require.NoError(t, err)
		}
		require.Equal(t, 4, loss.cache.lastBatchSize)

		_, err := loss.Forward(ctx, SIMCLRInput{
			Aug1: rng.UniformRangeBatch(8, 8, -1, 1),
			Aug2: rng.UniformRangeBatch(8, 8, -1, 1),
		})
		require.NoError(t, err)
		assert.Equal(t, 8, loss.cache.lastBatchSize)
		assert.Len(t, loss.cache.labels, 8)
	})

	t.Run("Collector", func(t *testing.T) {
		collector := &BasicCollector{}
		loss := NewSIMCLRLoss(nil, WithCollector(collector))

		for i := 0; i < 3; i++ {
			_, err := loss.Forward(ctx, SIMCLRInput{
				Aug1: rng.UniformRangeBatch(4, 8, -1, 1),
				Aug2: rng.UniformRangeBatch(4, 8, -1, 1),
			})
			require.NoError(t, err)
		}

		assert.Equal(t, 3, collector.Steps())
		mean, ok := collector.Mean(MetricSSLAcc)
		require.True(t, ok)
		assert.GreaterOrEqual(t, mean, 0.0)
		assert.LessOrEqual(t, mean, 100.0)
	})
}

func TestSelfSimilarityMasking(t *testing.T) {
	qa := testutil.NewRNG(3).UniformRangeBatch(4, 8, -1, 1).NormalizeRows()

	// World size 1: the gathered batch is the local batch.
	logits, err := qa.MulTransposed(qa)
	require.NoError(t, err)
	logits.ScaleInPlace(10) // 1/tau for tau=0.1
	pre := logits.Clone()

	cache := labelCache{withMask: true}
	_, mask, _ := cache.ensure(4, 0, 1)
	require.NoError(t, logits.SubInPlace(mask))

	for i := 0; i < logits.Rows(); i++ {
		assert.LessOrEqual(t, logits.At(i, i), pre.At(i, i)-maskValue+1)
		for j := 0; j < logits.Cols(); j++ {
			if j != i {
				// A masked diagonal can never win the argmax.
				assert.Less(t, logits.At(i, i), logits.At(i, j))
			}
		}
	}
}

// TestSIMCLRLossWorldEquivalence checks the sharding identity: the mean of
// the per-rank losses over a 2-worker group equals the loss a single
// worker computes over the full concatenated batch.
func TestSIMCLRLossWorldEquivalence(t *testing.T) {
	const n, world, dim = 3, 2, 6
	rng := testutil.NewRNG(11)
	aug1 := rng.UniformRangeBatch(n*world, dim, -1, 1)
	aug2 := rng.UniformRangeBatch(n*world, dim, -1, 1)

	full, err := NewSIMCLRLoss(nil).Forward(context.Background(), SIMCLRInput{Aug1: aug1, Aug2: aug2})
	require.NoError(t, err)

	group := comm.NewGroup(world)
	var mu sync.Mutex
	perRank := make(map[int]Result)

	err = group.Run(context.Background(), func(ctx context.Context, c comm.Communicator) error {
		loss := NewSIMCLRLoss(c)
		result, err := loss.Forward(ctx, SIMCLRInput{
			Aug1: aug1.RowRange(c.Rank()*n, (c.Rank()+1)*n),
			Aug2: aug2.RowRange(c.Rank()*n, (c.Rank()+1)*n),
		})
		if err != nil {
			return err
		}

		mu.Lock()
		perRank[c.Rank()] = result
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	require.Len(t, perRank, world)

	meanLoss := (perRank[0][MetricLoss] + perRank[1][MetricLoss]) / 2
	meanAcc := (perRank[0][MetricSSLAcc] + perRank[1][MetricSSLAcc]) / 2
	assert.InDelta(t, full[MetricLoss], meanLoss, 1e-4)
	assert.InDelta(t, full[MetricSSLAcc], meanAcc, 1e-4)
}

// shortGatherComm reports a world size its gather does not deliver.
type shortGatherComm struct {
	comm.Single
}

func (shortGatherComm) WorldSize() int { return 2 }

func TestSIMCLRLossGatherSizeCheck(t *testing.T) {
	rng := testutil.NewRNG(5)
	loss := NewSIMCLRLoss(shortGatherComm{})

	_, err := loss.Forward(context.Background(), SIMCLRInput{
		Aug1: rng.UniformRangeBatch(4, 8, -1, 1),
		Aug2: rng.UniformRangeBatch(4, 8, -1, 1),
	})

	var size *ErrGatherSize
	require.ErrorAs(t, err, &size)
	assert.Equal(t, 8, size.Expected)
	assert.Equal(t, 4, size.Actual)
}

func BenchmarkSIMCLRLossForward(b *testing.B) {
	rng := testutil.NewRNG(1)
	in := SIMCLRInput{
		Aug1: rng.UniformRangeBatch(64, 128, -1, 1),
		Aug2: rng.UniformRangeBatch(64, 128, -1, 1),
	}
	loss := NewSIMCLRLoss(nil)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := loss.Forward(ctx, in); err != nil {
			b.Fatal(err)
		}
	}
}
