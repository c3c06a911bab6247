package contrastive

import (
	"context"
	"fmt"

	"github.com/hupe1980/contrastive/comm"
	"github.com/hupe1980/contrastive/mat32"
)

// SIMCLRInput holds two augmented views of the same batch. Row i of Aug1
// and row i of Aug2 are the positive pair.
type SIMCLRInput struct {
	Aug1 *mat32.Matrix
	Aug2 *mat32.Matrix
}

// SIMCLRLoss is the SimCLR contrastive loss (https://arxiv.org/abs/2002.05709):
// a symmetric cross-entropy over temperature-scaled cosine similarities,
// with every other sample in the global (cross-worker) batch as a negative
// and each sample's own-view similarity masked out of the denominator.
type SIMCLRLoss struct {
	comm      comm.Communicator
	tau       float32
	cache     labelCache
	collector Collector
	logger    *Logger
}

// NewSIMCLRLoss creates the engine. A nil Communicator defaults to
// comm.Single (world size 1).
func NewSIMCLRLoss(c comm.Communicator, opts ...Option) *SIMCLRLoss {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if c == nil {
		c = comm.Single{}
	}

	return &SIMCLRLoss{
		comm:      c,
		tau:       o.temperature,
		cache:     labelCache{withMask: true},
		collector: o.collector,
		logger:    o.logger,
	}
}

// Forward computes the loss for one step. Every worker in the group must
// call Forward in lock-step with matching shapes, since it participates in
// a collective gather.
//
// The result carries MetricLoss, MetricSSLLoss (equal to it) and
// MetricSSLAcc (0-100).
func (l *SIMCLRLoss) Forward(ctx context.Context, in SIMCLRInput) (Result, error) {
	qa := in.Aug1.NormalizeRows()
	qb := in.Aug2.NormalizeRows()

	n := qa.Rows()
	world := l.comm.WorldSize()

	gathered, err := l.comm.AllGather(ctx, qa, qb)
	if err != nil {
		l.logger.LogForward(ctx, "simclr", n, err)
		return nil, fmt.Errorf("simclr: all-gather: %w", err)
	}
	ka, kb := gathered[0], gathered[1]

	total := n * world
	for _, k := range []*mat32.Matrix{ka, kb} {
		if k.Rows() != total {
			err := &ErrGatherSize{Expected: total, Actual: k.Rows()}
			l.logger.LogForward(ctx, "simclr", n, err)
			return nil, err
		}
	}

	labels, mask, rebuilt := l.cache.ensure(n, l.comm.Rank(), world)
	if rebuilt {
		l.logger.LogCacheRebuild(ctx, "simclr", n, world)
	}

	invTau := 1 / l.tau

	logitsAA, err := qa.MulTransposed(ka)
	if err != nil {
		return nil, fmt.Errorf("simclr: aa logits: %w", err)
	}
	logitsAA.ScaleInPlace(invTau)
	if err := logitsAA.SubInPlace(mask); err != nil {
		return nil, fmt.Errorf("simclr: aa mask: %w", err)
	}

	logitsBB, err := qb.MulTransposed(kb)
	if err != nil {
		return nil, fmt.Errorf("simclr: bb logits: %w", err)
	}
	logitsBB.ScaleInPlace(invTau)
	if err := logitsBB.SubInPlace(mask); err != nil {
		return nil, fmt.Errorf("simclr: bb mask: %w", err)
	}

	logitsAB, err := qa.MulTransposed(kb)
	if err != nil {
		return nil, fmt.Errorf("simclr: ab logits: %w", err)
	}
	logitsAB.ScaleInPlace(invTau)

	logitsBA, err := qb.MulTransposed(ka)
	if err != nil {
		return nil, fmt.Errorf("simclr: ba logits: %w", err)
	}
	logitsBA.ScaleInPlace(invTau)

	// The cross-view block comes first, so a sample's target stays its own
	// global index while its masked same-view similarity sits at column
	// total+label.
	catA, err := mat32.ConcatCols(logitsAB, logitsAA)
	if err != nil {
		return nil, fmt.Errorf("simclr: concat a: %w", err)
	}
	catB, err := mat32.ConcatCols(logitsBA, logitsBB)
	if err != nil {
		return nil, fmt.Errorf("simclr: concat b: %w", err)
	}

	lossA := crossEntropyMean(catA, labels)
	lossB := crossEntropyMean(catB, labels)
	loss := (lossA + lossB) / 2

	acc := accuracyPercent(catA, labels)

	result := Result{
		MetricLoss:    loss,
		MetricSSLLoss: loss,
		MetricSSLAcc:  acc,
	}

	l.collector.RecordForward(result)
	l.logger.LogForward(ctx, "simclr", n, nil)

	return result, nil
}
