// Package tokens defines token sequences bounded by sentence markers, and the
// directional masking used to estimate sentence probabilities from a
// bidirectional masked-language model.
package tokens

import (
	"slices"

	"github.com/pkg/errors"
)

// Marker tokens used by BERT-style vocabularies. Backends with a different
// convention (e.g. sentencepiece models) configure their own markers.
const (
	BOSToken  = "[CLS]"
	EOSToken  = "[SEP]"
	MaskToken = "[MASK]"
)

// Sequence is an ordered sequence of tokens bounded by a begin marker and an
// end marker. Positions 0 and len-1 are boundary tokens and are never masked
// or scored.
type Sequence []string

// Interior returns the number of tokens between the boundary markers.
func (s Sequence) Interior() int {
	return max(len(s)-2, 0)
}

// Direction selects which side of the pivot gets masked.
type Direction int

const (
	DirectionUnknown Direction = iota

	// DirectionForward masks the pivot and everything to its right, up to
	// (not including) the end marker.
	DirectionForward

	// DirectionBackward masks the pivot and everything to its left, down to
	// (not including) the begin marker.
	DirectionBackward
)

func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionBackward:
		return "backward"
	}
	return "unknown"
}

// ErrInvalidDirection is returned when a masking direction other than
// DirectionForward or DirectionBackward is requested. It indicates a broken
// caller, not a recoverable runtime condition.
var ErrInvalidDirection = errors.New("masking direction must be forward or backward")

// Variant is a Sequence derived from another Sequence by replacing a
// contiguous run of interior tokens with the mask marker. It is ephemeral:
// built for one oracle query and discarded after the score is extracted.
type Variant struct {
	Tokens    Sequence
	Direction Direction
	Pivot     int
}

// Mask builds the masked variant of seq at the given interior pivot.
// The source sequence is left untouched.
func Mask(seq Sequence, pivot int, direction Direction, maskToken string) (Variant, error) {
	if pivot < 1 || pivot > len(seq)-2 {
		return Variant{}, errors.Errorf("mask pivot %d outside the interior of a %d-token sequence", pivot, len(seq))
	}
	masked := Sequence(slices.Clone(seq))
	switch direction {
	case DirectionForward:
		for i := pivot; i < len(masked)-1; i++ {
			masked[i] = maskToken
		}
	case DirectionBackward:
		for i := 1; i <= pivot; i++ {
			masked[i] = maskToken
		}
	default:
		return Variant{}, errors.Wrapf(ErrInvalidDirection, "direction %d", int(direction))
	}
	return Variant{Tokens: masked, Direction: direction, Pivot: pivot}, nil
}
