// Package testutil provides testing utilities for the contrastive loss
// engines.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating deterministic random embedding
// batches.
//
// # Random Batch Generation
//
//	rng := testutil.NewRNG(seed)
//	batch := rng.UniformBatch(n, dim)            // uniform [0, 1)
//	batch := rng.UniformRangeBatch(n, dim, -1, 1)
package testutil
