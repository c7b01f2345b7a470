package scoring

import "github.com/pkg/errors"

// CombinationPolicy selects how the per-position directional probabilities
// are composed into one sentence score. The policies share the masking loop
// and differ only in their numeric contract, so the estimator is
// parameterized by the policy rather than duplicated per variant.
type CombinationPolicy int

const (
	// PolicyRaw multiplies the raw per-token probabilities in each
	// direction and takes the geometric mean of the two products.
	PolicyRaw CombinationPolicy = iota

	// PolicyLengthAveraged raises each per-token probability to 1/N before
	// multiplying, yielding a per-token geometric mean that is comparable
	// across sentence lengths and does not underflow for long sentences.
	PolicyLengthAveraged

	// PolicyCalibrated divides the raw score by the mean raw score a
	// reference corpus produced for sentences of the same token length.
	PolicyCalibrated
)

func (p CombinationPolicy) String() string {
	switch p {
	case PolicyRaw:
		return "raw"
	case PolicyLengthAveraged:
		return "length-averaged"
	case PolicyCalibrated:
		return "calibrated"
	}
	return "unknown"
}

// ParsePolicy converts a policy name, as used in command-line flags, to its
// CombinationPolicy value.
func ParsePolicy(name string) (CombinationPolicy, error) {
	for _, p := range []CombinationPolicy{PolicyRaw, PolicyLengthAveraged, PolicyCalibrated} {
		if p.String() == name {
			return p, nil
		}
	}
	return 0, errors.Errorf("unknown combination policy %q (choose raw, length-averaged or calibrated)", name)
}
