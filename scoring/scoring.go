// Package scoring estimates the probability of a sentence by composing many
// single-token masked predictions from a bidirectional language model.
//
// A forward one-directional sentence probability is defined as
//
//	P_f(S) = P(w_1) * P(w_2|w_1) * P(w_3|w_1,w_2) * ...
//
// where each factor is a masked prediction with all tokens to the right of
// (and including) the predicted one masked. The backward probability P_b(S)
// masks to the left instead. The sentence score is the geometric mean of the
// two directional probabilities, sqrt(P_f(S) * P_b(S)), so one sentence
// requires 2*(N-2) masked prediction evaluations for N tokens including the
// boundary markers.
package scoring

import (
	"math"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/glicerico/wordcat-transformer/tokens"
)

// Oracle wraps a masked-language model and its tokenizer. Any backend
// (local or remote, CPU or GPU) satisfies it without the estimator knowing
// implementation details. The oracle is assumed stateless per query; it is
// expensive to initialize and should be constructed once and shared.
type Oracle interface {
	// Tokenize converts text into a token sequence bounded by the begin
	// and end markers.
	Tokenize(text string) (tokens.Sequence, error)

	// TokensToIDs maps tokens to vocabulary ids.
	TokensToIDs(toks []string) []int

	// IDsToTokens maps vocabulary ids back to tokens, for diagnostics.
	IDsToTokens(ids []int) []string

	// PredictMasked runs one forward pass over ids and returns the
	// probability distribution over the vocabulary at the given position.
	// The result must be non-negative and sum to ~1.
	PredictMasked(ids []int, position int) ([]float64, error)
}

// Calibration maps a token-sequence length to the mean raw score observed
// for that length over a reference corpus. It is read-only once built, so
// concurrent lookups are safe.
type Calibration interface {
	Lookup(length int) (mean float64, ok bool)
}

var (
	// ErrDegenerateSentence is returned for sequences with no interior
	// tokens to score. Callers decide whether to skip the sentence or
	// abort their batch; a numeric score is never fabricated.
	ErrDegenerateSentence = errors.New("sentence has no interior tokens to score")

	// ErrOracleContract is returned when the oracle produces a malformed
	// distribution. It indicates a collaborator bug and is not retried.
	ErrOracleContract = errors.New("oracle returned a malformed distribution")
)

const (
	// probEpsilon clamps probabilities before taking logarithms, so a zero
	// from the oracle cannot propagate -Inf through the accumulation.
	probEpsilon = 1e-12

	// distTolerance is how far from 1 a distribution may sum before it is
	// treated as a contract violation.
	distTolerance = 1e-3
)

// DirectionalScore holds the base-10 log-probabilities the oracle assigned to
// the true token at one interior position, under each masking direction.
type DirectionalScore struct {
	Position int
	Forward  float64
	Backward float64
}

// Estimator computes sentence scores from an Oracle under a selectable
// CombinationPolicy. The zero calibration (nil) makes PolicyCalibrated
// behave like PolicyRaw with a warning per lookup miss.
type Estimator struct {
	Oracle      Oracle
	Calibration Calibration

	// MaskToken is the marker substituted for masked tokens before the
	// variant is fed back through the oracle's vocabulary.
	MaskToken string

	// Verbose traces every masked variant and its directional
	// probabilities, plus the top TopK predictions per query.
	Verbose bool
	TopK    int

	// Vocabulary size, learned from the first distribution the oracle
	// returns; later replies of a different length violate the contract.
	vocabSize int
}

// New creates an estimator for the given oracle with the default BERT mask
// marker and top-5 verbose tracing.
func New(oracle Oracle) *Estimator {
	return &Estimator{
		Oracle:    oracle,
		MaskToken: tokens.MaskToken,
		TopK:      5,
	}
}

// Score estimates the probability of the token sequence under the given
// combination policy. Any per-position failure aborts the whole sentence:
// there is no meaningful partial sentence probability.
func (e *Estimator) Score(seq tokens.Sequence, policy CombinationPolicy) (float64, error) {
	scores, err := e.DirectionalScores(seq)
	if err != nil {
		return 0, err
	}
	return e.Compose(scores, len(seq), policy)
}

// ScoreText tokenizes text through the oracle and scores it.
func (e *Estimator) ScoreText(text string, policy CombinationPolicy) (float64, error) {
	seq, err := e.Oracle.Tokenize(text)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to tokenize %q", text)
	}
	return e.Score(seq, policy)
}

// RawScore tokenizes a sentence and returns its token length together with
// its score under PolicyRaw. It is the pass calibration tables are built
// from.
func (e *Estimator) RawScore(sentence string) (length int, score float64, err error) {
	seq, err := e.Oracle.Tokenize(sentence)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "failed to tokenize %q", sentence)
	}
	score, err = e.Score(seq, PolicyRaw)
	if err != nil {
		return 0, 0, err
	}
	return len(seq), score, nil
}

// DirectionalScores runs the full masking loop: for every interior position
// it queries the oracle once per direction and extracts the log-probability
// of the true token. Results are ordered by position.
func (e *Estimator) DirectionalScores(seq tokens.Sequence) ([]DirectionalScore, error) {
	if len(seq) < 3 {
		return nil, errors.Wrapf(ErrDegenerateSentence, "%d tokens", len(seq))
	}
	if e.Verbose {
		klog.Infof("Scoring sentence: %v", seq)
	}
	ids := e.Oracle.TokensToIDs(seq)
	scores := make([]DirectionalScore, 0, seq.Interior())
	for i := 1; i <= len(seq)-2; i++ {
		fwd, err := e.directionalLogProb(seq, ids, i, tokens.DirectionForward)
		if err != nil {
			return nil, err
		}
		bwd, err := e.directionalLogProb(seq, ids, i, tokens.DirectionBackward)
		if err != nil {
			return nil, err
		}
		scores = append(scores, DirectionalScore{Position: i, Forward: fwd, Backward: bwd})
		if e.Verbose {
			klog.Infof("Token %q: log10 P_forward=%.5f, log10 P_backward=%.5f", seq[i], fwd, bwd)
		}
	}
	return scores, nil
}

// Compose combines per-position directional scores into one sentence score.
// length is the full token count of the scored sequence, including the
// boundary markers; PolicyCalibrated uses it for the table lookup.
func (e *Estimator) Compose(scores []DirectionalScore, length int, policy CombinationPolicy) (float64, error) {
	switch policy {
	case PolicyRaw:
		return composeRaw(scores), nil
	case PolicyLengthAveraged:
		return composeLengthAveraged(scores), nil
	case PolicyCalibrated:
		return composeRaw(scores) / e.divisor(length), nil
	}
	return 0, errors.Errorf("unknown combination policy %d", int(policy))
}

// composeRaw accumulates base-10 logs of the per-token probability products
// and combines the two directions as a geometric mean. Everything stays in
// log space until the final exponentiation, so products of many small
// probabilities cannot underflow.
func composeRaw(scores []DirectionalScore) float64 {
	var sumForward, sumBackward float64
	for _, ds := range scores {
		sumForward += ds.Forward
		sumBackward += ds.Backward
	}
	return math.Pow(10, 0.5*(sumForward+sumBackward))
}

// composeLengthAveraged dampens each per-token probability with a 1/N
// exponent (N = number of interior tokens) before multiplying, so the
// product stays in a representable range even for long sentences and the
// result is a length-normalized geometric mean.
func composeLengthAveraged(scores []DirectionalScore) float64 {
	n := float64(len(scores))
	prodForward, prodBackward := 1.0, 1.0
	for _, ds := range scores {
		prodForward *= math.Pow(10, ds.Forward/n)
		prodBackward *= math.Pow(10, ds.Backward/n)
	}
	return math.Sqrt(prodForward * prodBackward)
}

func (e *Estimator) divisor(length int) float64 {
	if e.Calibration != nil {
		if mean, ok := e.Calibration.Lookup(length); ok {
			return mean
		}
	}
	klog.Warningf("No calibration entry for sentence length %d; scoring without normalization", length)
	return 1
}

func (e *Estimator) directionalLogProb(seq tokens.Sequence, ids []int, pivot int, direction tokens.Direction) (float64, error) {
	variant, err := tokens.Mask(seq, pivot, direction, e.MaskToken)
	if err != nil {
		return 0, err
	}
	if e.Verbose {
		klog.Infof("%s variant at pivot %d: %v", variant.Direction, pivot, variant.Tokens)
	}
	dist, err := e.Oracle.PredictMasked(e.Oracle.TokensToIDs(variant.Tokens), pivot)
	if err != nil {
		return 0, errors.Wrapf(err, "masked prediction failed at position %d (%s)", pivot, direction)
	}
	if err := e.checkDistribution(dist, ids[pivot]); err != nil {
		return 0, errors.Wrapf(err, "at position %d (%s)", pivot, direction)
	}
	if e.Verbose && e.TopK > 0 {
		e.traceTopPredictions(dist)
	}
	p := dist[ids[pivot]]
	if p < probEpsilon {
		p = probEpsilon
	}
	return math.Log10(p), nil
}

func (e *Estimator) checkDistribution(dist []float64, trueID int) error {
	if e.vocabSize == 0 {
		e.vocabSize = len(dist)
	} else if len(dist) != e.vocabSize {
		return errors.Wrapf(ErrOracleContract, "distribution has %d entries, expected %d", len(dist), e.vocabSize)
	}
	if trueID < 0 || trueID >= len(dist) {
		return errors.Wrapf(ErrOracleContract, "true token id %d outside a %d-entry distribution", trueID, len(dist))
	}
	var sum float64
	for _, p := range dist {
		if p < 0 {
			return errors.Wrapf(ErrOracleContract, "negative probability %g", p)
		}
		sum += p
	}
	if math.Abs(sum-1) > distTolerance {
		return errors.Wrapf(ErrOracleContract, "distribution sums to %g", sum)
	}
	return nil
}

func (e *Estimator) traceTopPredictions(dist []float64) {
	preds := TopK(dist, e.TopK)
	ids := make([]int, len(preds))
	probs := make([]float64, len(preds))
	for i, p := range preds {
		ids[i] = p.ID
		probs[i] = p.Prob
	}
	klog.Infof("Top predicted tokens: %v", e.Oracle.IDsToTokens(ids))
	klog.Infof("Top predicted values: %v", probs)
}
