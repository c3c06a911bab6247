package contrastive

import (
	"fmt"
)

// ErrUnknownVariant indicates an unsupported negative-cosine-similarity
// variant. Only VariantOriginal and VariantSimplified are valid.
type ErrUnknownVariant struct {
	Variant Variant
}

func (e *ErrUnknownVariant) Error() string {
	return fmt.Sprintf("unknown similarity variant: %v", e.Variant)
}

// ErrGatherSize indicates that a collective gather returned a row count
// other than local_batch_size * world_size. This happens when workers
// contribute unequal local batches, which silently misaligns the global
// label indices; engines fail instead.
type ErrGatherSize struct {
	Expected int
	Actual   int
}

func (e *ErrGatherSize) Error() string {
	return fmt.Sprintf("gathered batch size mismatch: expected %d rows, got %d", e.Expected, e.Actual)
}
