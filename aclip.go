package contrastive

import (
	"context"
	"fmt"

	"github.com/hupe1980/contrastive/comm"
	"github.com/hupe1980/contrastive/internal/math32"
	"github.com/hupe1980/contrastive/mat32"
)

// ACLIPInput holds the embedding tensors one training step produces.
// With N the local text batch size:
//
//   - ImageEmbed: (2N x D_img), two augmented image views stacked along
//     rows; rows [0:N) are view 1, rows [N:2N) view 2
//   - TextEmbed: (N x D_txt)
//   - LogitScale: learned cross-modal temperature, already exponentiated
//   - ImageSSLEmbed: (2N x D_ssl), same two-view stacking, fed to the
//     SimCLR branch
//   - BYOLFeats: (2N x D_b), online-branch consistency features for both
//     views
//   - BYOLFeatsTarget: (N x D_b), momentum/target-branch features for the
//     canonical view, duplicated internally to cover both views. Supplied
//     already detached (stop-gradient) by the producing network.
type ACLIPInput struct {
	ImageEmbed      *mat32.Matrix
	TextEmbed       *mat32.Matrix
	LogitScale      float32
	ImageSSLEmbed   *mat32.Matrix
	BYOLFeats       *mat32.Matrix
	BYOLFeatsTarget *mat32.Matrix
}

// ACLIPLoss combines three objectives into one training loss:
//
//   - a SimCLR contrastive loss over the two SSL image views
//   - a BYOL consistency loss between online and momentum image features
//   - a CLIP image/text contrastive loss, computed once per image view
//
// loss = 0.5*contra_loss_1 + 0.5*contra_loss_2 + simclr_loss + 2*im_byol_loss
//
// The weighting is fixed. The reported clip_acc is computed from the
// view-2 logits_per_image, the last ones computed; downstream metric
// consumers depend on that exact choice.
type ACLIPLoss struct {
	comm      comm.Communicator
	simclr    *SIMCLRLoss
	cache     labelCache
	collector Collector
	logger    *Logger
}

// NewACLIPLoss creates the engine. A nil Communicator defaults to
// comm.Single (world size 1). The temperature option applies to the
// internal SimCLR branch.
func NewACLIPLoss(c comm.Communicator, opts ...Option) *ACLIPLoss {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if c == nil {
		c = comm.Single{}
	}

	// The branch reports through the combined result, not on its own.
	simclr := NewSIMCLRLoss(c, WithTemperature(o.temperature), WithLogger(o.logger))

	return &ACLIPLoss{
		comm:      c,
		simclr:    simclr,
		collector: o.collector,
		logger:    o.logger,
	}
}

// Forward computes the combined loss for one step. Every worker in the
// group must call Forward in lock-step with matching shapes, since it
// participates in two collective gathers (one inside the SimCLR branch,
// one for the cross-modal terms).
//
// The result carries exactly the keys of MetricNames().
func (l *ACLIPLoss) Forward(ctx context.Context, in ACLIPInput) (Result, error) {
	n := in.TextEmbed.Rows()

	// SimCLR branch over the two SSL image views.
	ssl, err := l.simclr.Forward(ctx, SIMCLRInput{
		Aug1: in.ImageSSLEmbed.RowRange(0, n),
		Aug2: in.ImageSSLEmbed.RowRange(n, in.ImageSSLEmbed.Rows()),
	})
	if err != nil {
		l.logger.LogForward(ctx, "aclip", n, err)
		return nil, fmt.Errorf("aclip: simclr branch: %w", err)
	}
	simclrLoss := ssl[MetricSSLLoss]

	// BYOL consistency: online features against the momentum targets,
	// tiled to cover both views. For unit vectors 2-2*dot is the squared
	// Euclidean distance.
	imByolLoss, err := l.byolLoss(in.BYOLFeats, in.BYOLFeatsTarget)
	if err != nil {
		l.logger.LogForward(ctx, "aclip", n, err)
		return nil, fmt.Errorf("aclip: byol branch: %w", err)
	}

	labels, _, rebuilt := l.cache.ensure(n, l.comm.Rank(), l.comm.WorldSize())
	if rebuilt {
		l.logger.LogCacheRebuild(ctx, "aclip", n, l.comm.WorldSize())
	}

	imageEmbed := in.ImageEmbed.NormalizeRows()
	textEmbed := in.TextEmbed.NormalizeRows()

	imageEmbed1 := imageEmbed.RowRange(0, n)
	imageEmbed2 := imageEmbed.RowRange(n, imageEmbed.Rows())

	gathered, err := l.comm.AllGather(ctx, imageEmbed1, imageEmbed2, textEmbed)
	if err != nil {
		l.logger.LogForward(ctx, "aclip", n, err)
		return nil, fmt.Errorf("aclip: all-gather: %w", err)
	}
	imageAll1, imageAll2, textAll := gathered[0], gathered[1], gathered[2]

	total := n * l.comm.WorldSize()
	for _, k := range []*mat32.Matrix{imageAll1, imageAll2, textAll} {
		if k.Rows() != total {
			err := &ErrGatherSize{Expected: total, Actual: k.Rows()}
			l.logger.LogForward(ctx, "aclip", n, err)
			return nil, err
		}
	}

	contraLoss1, _, err := l.clipLoss(imageEmbed1, textEmbed, imageAll1, textAll, in.LogitScale, labels)
	if err != nil {
		return nil, fmt.Errorf("aclip: view 1: %w", err)
	}

	contraLoss2, logitsPerImage, err := l.clipLoss(imageEmbed2, textEmbed, imageAll2, textAll, in.LogitScale, labels)
	if err != nil {
		return nil, fmt.Errorf("aclip: view 2: %w", err)
	}

	loss := 0.5*contraLoss1 + 0.5*contraLoss2 + simclrLoss + 2*imByolLoss

	// Accuracy reuses the last computed logits_per_image, i.e. view 2's.
	clipAcc := accuracyPercent(logitsPerImage, labels)

	result := Result{
		MetricLoss:        loss,
		MetricSimCLRLoss:  simclrLoss,
		MetricImBYOLLoss:  imByolLoss,
		MetricContraLoss1: contraLoss1,
		MetricContraLoss2: contraLoss2,
		MetricCLIPAcc:     clipAcc,
	}

	l.collector.RecordForward(result)
	l.logger.LogForward(ctx, "aclip", n, nil)

	return result, nil
}

// byolLoss averages 2-2*cos(online_i, target_i) over all rows, with the
// target batch tiled to match the two online views.
func (l *ACLIPLoss) byolLoss(online, target *mat32.Matrix) (float32, error) {
	tiled, err := mat32.ConcatRows(target, target)
	if err != nil {
		return 0, err
	}
	if tiled.Rows() != online.Rows() {
		return 0, &mat32.ErrDimensionMismatch{Expected: online.Rows(), Actual: tiled.Rows()}
	}

	onlineNorm := online.NormalizeRows()
	targetNorm := tiled.NormalizeRows()

	var sum float64
	for i := 0; i < onlineNorm.Rows(); i++ {
		sum += 2 - 2*float64(math32.Dot(onlineNorm.Row(i), targetNorm.Row(i)))
	}

	return float32(sum / float64(onlineNorm.Rows())), nil
}

// clipLoss computes one cross-modal contrastive term: the average of the
// image-to-text and text-to-image cross-entropies over logit-scaled
// cosine similarities against the gathered global batches. It also
// returns the image-to-text logits for accuracy reporting.
func (l *ACLIPLoss) clipLoss(imageEmbed, textEmbed, imageAll, textAll *mat32.Matrix, logitScale float32, labels []int) (float32, *mat32.Matrix, error) {
	logitsPerImage, err := imageEmbed.MulTransposed(textAll)
	if err != nil {
		return 0, nil, fmt.Errorf("image logits: %w", err)
	}
	logitsPerImage.ScaleInPlace(logitScale)

	logitsPerText, err := textEmbed.MulTransposed(imageAll)
	if err != nil {
		return 0, nil, fmt.Errorf("text logits: %w", err)
	}
	logitsPerText.ScaleInPlace(logitScale)

	loss := (crossEntropyMean(logitsPerImage, labels) + crossEntropyMean(logitsPerText, labels)) / 2

	return loss, logitsPerImage, nil
}
