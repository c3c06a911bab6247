// Package comm abstracts the collective communication contrastive loss
// engines run on top of.
//
// Communicator is the interface for the worker group: rank and world-size
// queries plus a rank-ordered all-gather. Collectives are synchronization
// barriers: every worker in a group must issue the same calls, in the same
// order, with matching shapes, or the group desynchronizes.
//
// # Built-in Implementations
//
//   - Single: world size 1, pass-through gather (the unit-test and
//     single-process default)
//   - Group: in-process multi-worker harness, one goroutine per rank
//
// # Custom Implementations
//
// Implement the Communicator interface to bridge a real distributed
// training backend. Such an implementation must preserve gradient flow
// from the gathered result back into the calling worker's own slice;
// the other workers' slices are constants from the caller's perspective.
package comm

import (
	"context"
	"fmt"

	"github.com/hupe1980/contrastive/mat32"
)

// Communicator provides the worker-group view required by loss engines.
type Communicator interface {
	// Rank returns this worker's 0-indexed position in the group.
	Rank() int

	// WorldSize returns the total number of cooperating workers.
	WorldSize() int

	// AllGather returns, for each input matrix of shape (n x d), a matrix
	// of shape (n*WorldSize() x d) formed by concatenating every worker's
	// corresponding contribution in rank order. The call blocks until
	// every worker in the group has contributed; ctx bounds the wait.
	//
	// Gathered matrices may be shared between workers and must be treated
	// as read-only.
	AllGather(ctx context.Context, mats ...*mat32.Matrix) ([]*mat32.Matrix, error)
}

// ErrRaggedGather indicates that workers contributed mismatched call
// structure or shapes to the same collective.
type ErrRaggedGather struct {
	Rank   int
	Detail string
}

func (e *ErrRaggedGather) Error() string {
	return fmt.Sprintf("ragged all-gather from rank %d: %s", e.Rank, e.Detail)
}

// Single is the world-size-1 Communicator.
//
// AllGather returns its inputs unchanged, which makes loss engines
// unit-testable without any worker group.
type Single struct{}

// Rank implements Communicator.
func (Single) Rank() int { return 0 }

// WorldSize implements Communicator.
func (Single) WorldSize() int { return 1 }

// AllGather implements Communicator. The inputs are returned as-is.
func (Single) AllGather(_ context.Context, mats ...*mat32.Matrix) ([]*mat32.Matrix, error) {
	return mats, nil
}
