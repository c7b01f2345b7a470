package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTopK(t *testing.T) {
	dist := []float64{0.05, 0.4, 0.1, 0.05, 0.4}

	// Tie between indices 1 and 4 breaks by ascending id.
	require.Equal(t, []Prediction{{ID: 1, Prob: 0.4}, {ID: 4, Prob: 0.4}}, TopK(dist, 2))

	require.Equal(t, []Prediction{
		{ID: 1, Prob: 0.4},
		{ID: 4, Prob: 0.4},
		{ID: 2, Prob: 0.1},
		{ID: 0, Prob: 0.05},
		{ID: 3, Prob: 0.05},
	}, TopK(dist, 5))
}

func TestTopKClampsK(t *testing.T) {
	dist := []float64{0.5, 0.5}
	require.Len(t, TopK(dist, 10), 2)
	require.Empty(t, TopK(dist, 0))
	require.Empty(t, TopK(dist, -3))
	require.Empty(t, TopK(nil, 4))
}

func TestTopKLeavesInputUntouched(t *testing.T) {
	dist := []float64{0.3, 0.1, 0.6}
	TopK(dist, 3)
	require.Equal(t, []float64{0.3, 0.1, 0.6}, dist)
}
