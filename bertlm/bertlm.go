// Package bertlm serves BERT-style masked-language models through ONNX
// Runtime and exposes them as masked-prediction oracles.
package bertlm

import (
	"math"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/glicerico/wordcat-transformer/tokens"
)

// Vocabulary maps between text, token strings and vocabulary ids. It is
// satisfied by both the wordpiece and the sentencepiece packages.
type Vocabulary interface {
	// Tokenize splits text into tokens, without boundary markers.
	Tokenize(text string) ([]string, error)
	TokensToIDs(toks []string) []int
	IDsToTokens(ids []int) []string

	BOSToken() string
	EOSToken() string
	MaskToken() string
}

// Init points ONNX Runtime at its shared library (empty keeps the default
// search path) and initializes the environment. Call once before creating
// models.
func Init(libraryPath string) error {
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	return errors.Wrap(ort.InitializeEnvironment(), "failed to initialize ONNX runtime")
}

// Shutdown releases the ONNX Runtime environment.
func Shutdown() error {
	return errors.Wrap(ort.DestroyEnvironment(), "failed to destroy ONNX runtime")
}

// Model is a masked-language model session plus the vocabulary it was
// trained with. It implements scoring.Oracle. The session holds the model
// weights, so a Model should be created once and shared; it is read-only
// across queries.
type Model struct {
	vocab   Vocabulary
	session *ort.DynamicAdvancedSession
}

// New opens an ONNX session for the masked-LM at modelPath. The model must
// take "input_ids" and "attention_mask" and produce "logits" shaped
// [1, sequence, vocabulary].
func New(modelPath string, vocab Vocabulary) (*Model, error) {
	sessionOptions, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session options")
	}
	defer func() { _ = sessionOptions.Destroy() }()

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		sessionOptions,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create session for %q", modelPath)
	}
	return &Model{vocab: vocab, session: session}, nil
}

// Close releases the model session.
func (m *Model) Close() error {
	if m.session == nil {
		return nil
	}
	return errors.Wrap(m.session.Destroy(), "failed to destroy session")
}

// Tokenize splits text and bounds it with the vocabulary's begin and end
// markers, unless the text already carries them.
func (m *Model) Tokenize(text string) (tokens.Sequence, error) {
	pieces, err := m.vocab.Tokenize(text)
	if err != nil {
		return nil, err
	}
	seq := make(tokens.Sequence, 0, len(pieces)+2)
	if len(pieces) == 0 || pieces[0] != m.vocab.BOSToken() {
		seq = append(seq, m.vocab.BOSToken())
	}
	seq = append(seq, pieces...)
	if seq[len(seq)-1] != m.vocab.EOSToken() {
		seq = append(seq, m.vocab.EOSToken())
	}
	return seq, nil
}

// TokensToIDs implements scoring.Oracle.
func (m *Model) TokensToIDs(toks []string) []int {
	return m.vocab.TokensToIDs(toks)
}

// IDsToTokens implements scoring.Oracle.
func (m *Model) IDsToTokens(ids []int) []string {
	return m.vocab.IDsToTokens(ids)
}

// PredictMasked runs one forward pass and returns the softmax distribution
// over the vocabulary at the given position.
func (m *Model) PredictMasked(ids []int, position int) ([]float64, error) {
	if position < 0 || position >= len(ids) {
		return nil, errors.Errorf("position %d outside a %d-token input", position, len(ids))
	}

	inputIds := make([]int64, len(ids))
	attentionMask := make([]int64, len(ids))
	for i, id := range ids {
		inputIds[i] = int64(id)
		attentionMask[i] = 1
	}

	shape := ort.NewShape(1, int64(len(ids)))
	inputTensor, err := ort.NewTensor(shape, inputIds)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create input_ids tensor")
	}
	defer func() { _ = inputTensor.Destroy() }()

	maskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create attention_mask tensor")
	}
	defer func() { _ = maskTensor.Destroy() }()

	outputs := make([]ort.Value, 1)
	if err := m.session.Run([]ort.Value{inputTensor, maskTensor}, outputs); err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}
	defer func() { _ = outputs[0].Destroy() }()

	logits := outputs[0].(*ort.Tensor[float32]).GetData()
	if len(logits)%len(ids) != 0 {
		return nil, errors.Errorf("logits length %d is not a multiple of the %d input tokens", len(logits), len(ids))
	}
	vocabSize := len(logits) / len(ids)
	row := logits[position*vocabSize : (position+1)*vocabSize]
	return softmax(row), nil
}

// softmax converts one logit row into a float64 probability distribution,
// subtracting the max logit first for numerical stability.
func softmax(logits []float32) []float64 {
	maxLogit := float64(math.Inf(-1))
	for _, l := range logits {
		if float64(l) > maxLogit {
			maxLogit = float64(l)
		}
	}
	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		e := math.Exp(float64(l) - maxLogit)
		probs[i] = e
		sum += e
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
