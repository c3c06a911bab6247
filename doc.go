// Package contrastive provides contrastive and self-supervised loss
// functions for multi-modal (image-text) representation learning.
//
// Two loss engines are provided. SIMCLRLoss computes the SimCLR objective
// over two augmented views of an image batch, with in-batch and
// cross-worker negatives. ACLIPLoss combines it with a CLIP-style
// image/text contrastive term (computed once per image view) and a
// BYOL-style consistency term into one training loss.
//
// # Quick Start
//
// Single process:
//
//	ctx := context.Background()
//	loss := contrastive.NewSIMCLRLoss(nil, contrastive.WithTemperature(0.1))
//	result, _ := loss.Forward(ctx, contrastive.SIMCLRInput{Aug1: aug1, Aug2: aug2})
//	fmt.Println(result[contrastive.MetricSSLLoss], result[contrastive.MetricSSLAcc])
//
// Combined objective:
//
//	loss := contrastive.NewACLIPLoss(nil)
//	result, _ := loss.Forward(ctx, contrastive.ACLIPInput{
//	    ImageEmbed:      imageEmbed,    // (2N x D), two views stacked
//	    TextEmbed:       textEmbed,     // (N x D)
//	    LogitScale:      logitScale,
//	    ImageSSLEmbed:   imageSSLEmbed, // (2N x D_ssl)
//	    BYOLFeats:       byolFeats,     // (2N x D_b)
//	    BYOLFeatsTarget: byolTarget,    // (N x D_b), detached upstream
//	})
//
// # Distributed Training
//
// Engines take a comm.Communicator providing rank, world size and a
// rank-ordered all-gather. Pass nil for single-process use; bridge a real
// training backend by implementing the interface. Collectives are
// synchronization barriers: every worker must call Forward in lock-step
// with matching shapes. comm.Group runs a multi-worker group in-process
// for testing.
//
// # Metrics
//
// Forward returns a Result keyed by the names in MetricNames(); wire a
// Collector via WithCollector to accumulate them across steps.
package contrastive
