package contrastive

import (
	"math"

	"github.com/hupe1980/contrastive/mat32"
)

// crossEntropyMean computes the mean softmax cross-entropy over logit rows
// with integer class targets: mean_i(logsumexp(row_i) - row_i[label_i]).
//
// Expects raw logits (no pre-softmax). Uses per-row max subtraction and
// float64 accumulation for numerical stability.
func crossEntropyMean(logits *mat32.Matrix, labels []int) float32 {
	var total float64
	for i := 0; i < logits.Rows(); i++ {
		row := logits.Row(i)

		maxv := math.Inf(-1)
		for _, v := range row {
			if fv := float64(v); fv > maxv {
				maxv = fv
			}
		}

		var sum float64
		for _, v := range row {
			sum += math.Exp(float64(v) - maxv)
		}
		logsumexp := maxv + math.Log(sum)

		total += logsumexp - float64(row[labels[i]])
	}

	return float32(total / float64(logits.Rows()))
}

// accuracyPercent returns the fraction of rows whose argmax equals the
// target label, as a 0-100 percentage.
func accuracyPercent(logits *mat32.Matrix, labels []int) float32 {
	correct := 0
	for i, pred := range logits.ArgmaxRows() {
		if pred == labels[i] {
			correct++
		}
	}

	return 100 * float32(correct) / float32(len(labels))
}
