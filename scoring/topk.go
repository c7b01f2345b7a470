package scoring

import "sort"

// Prediction pairs a vocabulary id with the probability a distribution
// assigned to it.
type Prediction struct {
	ID   int
	Prob float64
}

// TopK returns the min(k, len(dist)) highest-probability entries of a
// distribution, strictly descending by probability. Ties are broken by
// ascending id so the result is deterministic. Pure; the input is not
// modified.
func TopK(dist []float64, k int) []Prediction {
	if k > len(dist) {
		k = len(dist)
	}
	if k <= 0 {
		return nil
	}
	preds := make([]Prediction, len(dist))
	for i, p := range dist {
		preds[i] = Prediction{ID: i, Prob: p}
	}
	sort.Slice(preds, func(i, j int) bool {
		if preds[i].Prob != preds[j].Prob {
			return preds[i].Prob > preds[j].Prob
		}
		return preds[i].ID < preds[j].ID
	})
	return preds[:k]
}
