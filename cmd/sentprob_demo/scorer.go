package main

import (
	"flag"

	"github.com/janpfeifer/must"

	"github.com/glicerico/wordcat-transformer/bertlm"
	"github.com/glicerico/wordcat-transformer/calibration"
	"github.com/glicerico/wordcat-transformer/scoring"
	"github.com/glicerico/wordcat-transformer/sentencepiece"
	"github.com/glicerico/wordcat-transformer/wordpiece"
)

var (
	flagModel       = flag.String("model", "bert.onnx", "Path to the masked-LM ONNX model.")
	flagVocab       = flag.String("vocab", "vocab.txt", "Path to the vocabulary (vocab.txt or sentencepiece model).")
	flagTokenizer   = flag.String("tokenizer", "wordpiece", "Tokenizer backing the vocabulary: wordpiece or sentencepiece.")
	flagOrtLibrary  = flag.String("ort_library", "", "Path to the ONNX Runtime shared library; empty uses the default search path.")
	flagCalibration = flag.String("calibration", "", "Calibration table for the calibrated policy.")
	flagTopK        = flag.Int("topk", 5, "Number of top predictions shown per token.")
)

// BuildVocabulary from flags --vocab and --tokenizer. Panics in case of error.
func BuildVocabulary() bertlm.Vocabulary {
	if *flagTokenizer == "sentencepiece" {
		return must.M1(sentencepiece.NewFromPath(*flagVocab, sentencepiece.DefaultSpecials()))
	}
	return must.M1(wordpiece.Load(*flagVocab))
}

// BuildEstimator wires the ONNX oracle and the optional calibration table
// from flags. Panics in case of error.
func BuildEstimator() *scoring.Estimator {
	must.M(bertlm.Init(*flagOrtLibrary))
	model := must.M1(bertlm.New(*flagModel, BuildVocabulary()))
	estimator := scoring.New(model)
	estimator.TopK = *flagTopK
	if *flagCalibration != "" {
		estimator.Calibration = must.M1(calibration.Load(*flagCalibration))
	}
	return estimator
}
