package tokens

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func testSequence() Sequence {
	return Sequence{BOSToken, "the", "cat", "sat", "down", EOSToken}
}

func TestMaskForward(t *testing.T) {
	seq := testSequence()
	for pivot := 1; pivot <= len(seq)-2; pivot++ {
		variant, err := Mask(seq, pivot, DirectionForward, MaskToken)
		require.NoError(t, err)
		require.Equal(t, DirectionForward, variant.Direction)
		require.Equal(t, pivot, variant.Pivot)

		// Tokens left of the pivot and the end marker are untouched.
		require.Equal(t, seq[:pivot], variant.Tokens[:pivot])
		require.Equal(t, EOSToken, variant.Tokens[len(seq)-1])

		masked := 0
		for _, token := range variant.Tokens {
			if token == MaskToken {
				masked++
			}
		}
		require.Equalf(t, len(seq)-1-pivot, masked, "wrong mask count for pivot %d", pivot)
	}
}

func TestMaskBackward(t *testing.T) {
	seq := testSequence()
	for pivot := 1; pivot <= len(seq)-2; pivot++ {
		variant, err := Mask(seq, pivot, DirectionBackward, MaskToken)
		require.NoError(t, err)

		// The begin marker and tokens right of the pivot are untouched.
		require.Equal(t, BOSToken, variant.Tokens[0])
		require.Equal(t, seq[pivot+1:], variant.Tokens[pivot+1:])

		masked := 0
		for _, token := range variant.Tokens {
			if token == MaskToken {
				masked++
			}
		}
		require.Equalf(t, pivot, masked, "wrong mask count for pivot %d", pivot)
	}
}

func TestMaskLeavesSourceUntouched(t *testing.T) {
	seq := testSequence()
	want := testSequence()
	_, err := Mask(seq, 2, DirectionForward, MaskToken)
	require.NoError(t, err)
	_, err = Mask(seq, 2, DirectionBackward, MaskToken)
	require.NoError(t, err)
	require.Equal(t, want, seq)
}

func TestMaskInvalidDirection(t *testing.T) {
	_, err := Mask(testSequence(), 2, Direction(7), MaskToken)
	require.ErrorIs(t, err, ErrInvalidDirection)
}

func TestMaskPivotOutsideInterior(t *testing.T) {
	seq := testSequence()
	for _, pivot := range []int{0, len(seq) - 1, -1, len(seq)} {
		_, err := Mask(seq, pivot, DirectionForward, MaskToken)
		require.Errorf(t, err, "pivot %d must be rejected", pivot)
	}
}

func TestInterior(t *testing.T) {
	require.Equal(t, 4, testSequence().Interior())
	require.Equal(t, 0, Sequence{BOSToken, EOSToken}.Interior())
	require.Equal(t, 0, Sequence{}.Interior())
}

func TestDirectionString(t *testing.T) {
	require.Equal(t, "forward", fmt.Sprint(DirectionForward))
	require.Equal(t, "backward", fmt.Sprint(DirectionBackward))
	require.Equal(t, "unknown", fmt.Sprint(DirectionUnknown))
}
