package contrastive

import (
	"fmt"
	"math"

	"github.com/hupe1980/contrastive/internal/math32"
	"github.com/hupe1980/contrastive/mat32"
)

// Variant selects the formulation of NegativeCosineSimilarity. The two
// variants are numerically equivalent; VariantSimplified skips the
// intermediate normalized copies.
type Variant int

const (
	// VariantOriginal L2-normalizes both batches and averages the
	// row-aligned dot products.
	VariantOriginal Variant = iota
	// VariantSimplified divides each row-aligned dot product by the
	// product of the row norms.
	VariantSimplified
)

func (v Variant) String() string {
	switch v {
	case VariantOriginal:
		return "original"
	case VariantSimplified:
		return "simplified"
	default:
		return fmt.Sprintf("Unknown(%d)", int(v))
	}
}

// NegativeCosineSimilarity returns the negative mean cosine similarity
// between aligned rows of p (predictions) and z (targets), the SimSiam
// consistency loss. z is a stop-gradient target by convention: callers
// supply it already detached from the prediction branch.
func NegativeCosineSimilarity(p, z *mat32.Matrix, variant Variant) (float32, error) {
	if p.Rows() != z.Rows() || p.Cols() != z.Cols() {
		return 0, &mat32.ErrDimensionMismatch{Expected: p.Rows() * p.Cols(), Actual: z.Rows() * z.Cols()}
	}

	switch variant {
	case VariantOriginal:
		pn := p.NormalizeRows()
		zn := z.NormalizeRows()

		var sum float64
		for i := 0; i < pn.Rows(); i++ {
			sum += float64(math32.Dot(pn.Row(i), zn.Row(i)))
		}

		return float32(-sum / float64(p.Rows())), nil

	case VariantSimplified:
		var sum float64
		for i := 0; i < p.Rows(); i++ {
			pi := p.Row(i)
			zi := z.Row(i)

			pNorm := math.Sqrt(float64(math32.Dot(pi, pi)))
			if pNorm < mat32.NormEpsilon {
				pNorm = mat32.NormEpsilon
			}
			zNorm := math.Sqrt(float64(math32.Dot(zi, zi)))
			if zNorm < mat32.NormEpsilon {
				zNorm = mat32.NormEpsilon
			}

			sum += float64(math32.Dot(pi, zi)) / (pNorm * zNorm)
		}

		return float32(-sum / float64(p.Rows())), nil

	default:
		return 0, &ErrUnknownVariant{Variant: variant}
	}
}
