package contrastive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/contrastive/mat32"
	"github.com/hupe1980/contrastive/testutil"
)

func TestNegativeCosineSimilarity(t *testing.T) {
	t.Run("VariantsAgree", func(t *testing.T) {
		rng := testutil.NewRNG(42)
		p := rng.UniformRangeBatch(16, 32, -1, 1)
		z := rng.UniformRangeBatch(16, 32, -1, 1)

		original, err := NegativeCosineSimilarity(p, z, VariantOriginal)
		require.NoError(t, err)
		simplified, err := NegativeCosineSimilarity(p, z, VariantSimplified)
		require.NoError(t, err)

		assert.InDelta(t, original, simplified, 1e-5)
	})

	t.Run("IdenticalInputs", func(t *testing.T) {
		p := testutil.NewRNG(7).UniformRangeBatch(8, 16, -1, 1)

		got, err := NegativeCosineSimilarity(p, p, VariantSimplified)
		require.NoError(t, err)
		assert.InDelta(t, float32(-1), got, 1e-5)
	})

	t.Run("OppositeInputs", func(t *testing.T) {
		p := testutil.NewRNG(7).UniformRangeBatch(8, 16, -1, 1)
		z := p.Clone()
		z.ScaleInPlace(-1)

		got, err := NegativeCosineSimilarity(p, z, VariantOriginal)
		require.NoError(t, err)
		assert.InDelta(t, float32(1), got, 1e-5)
	})

	t.Run("UnknownVariant", func(t *testing.T) {
		p := mat32.New(2, 4)

		_, err := NegativeCosineSimilarity(p, p, Variant(99))
		var unknown *ErrUnknownVariant
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, Variant(99), unknown.Variant)
	})

	t.Run("ShapeMismatch", func(t *testing.T) {
		_, err := NegativeCosineSimilarity(mat32.New(2, 4), mat32.New(3, 4), VariantOriginal)
		var dim *mat32.ErrDimensionMismatch
		require.ErrorAs(t, err, &dim)
	})
}

func TestVariantString(t *testing.T) {
	assert.Equal(t, "original", VariantOriginal.String())
	assert.Equal(t, "simplified", VariantSimplified.String())
	assert.Equal(t, "Unknown(99)", Variant(99).String())
}
