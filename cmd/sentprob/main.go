// sentprob scores sentences with a masked-language model, builds length
// calibration tables from reference corpora, and computes word-by-sentence
// probability matrices for word categorization.
//
// Scoring sentences from the command line:
//
//	sentprob -model bert.onnx -vocab vocab.txt "The cat sat on the mat."
//
// Building a calibration table:
//
//	sentprob -model bert.onnx -vocab vocab.txt \
//	    -build_calibration corpus.txt -save_calibration lengths.msgpack
//
// With no sentence arguments, sentences are read from stdin, one per line.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/janpfeifer/must"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"

	"github.com/glicerico/wordcat-transformer/bertlm"
	"github.com/glicerico/wordcat-transformer/calibration"
	"github.com/glicerico/wordcat-transformer/corpus"
	"github.com/glicerico/wordcat-transformer/scoring"
	"github.com/glicerico/wordcat-transformer/sentencepiece"
	"github.com/glicerico/wordcat-transformer/wordcat"
	"github.com/glicerico/wordcat-transformer/wordpiece"
)

var (
	flagModel      = flag.String("model", "", "Path to the masked-LM ONNX model.")
	flagVocab      = flag.String("vocab", "", "Path to the vocabulary (vocab.txt or sentencepiece model).")
	flagTokenizer  = flag.String("tokenizer", "wordpiece", "Tokenizer backing the vocabulary: wordpiece or sentencepiece.")
	flagOrtLibrary = flag.String("ort_library", "", "Path to the ONNX Runtime shared library; empty uses the default search path.")

	flagPolicy      = flag.String("policy", "raw", "Combination policy: raw, length-averaged or calibrated.")
	flagCalibration = flag.String("calibration", "", "Calibration table to load for the calibrated policy.")
	flagTopK        = flag.Int("topk", 5, "Number of top predictions traced per masked query when -verbose is set.")
	flagVerbose     = flag.Bool("verbose", false, "Trace masked variants and per-token probabilities.")

	flagBuildCalibration = flag.String("build_calibration", "", "Reference corpus to build a calibration table from, one sentence per line.")
	flagSaveCalibration  = flag.String("save_calibration", "", "Where to save the built calibration table.")

	flagWords      = flag.String("words", "", "Word list (one per line) for word-by-sentence matrix building.")
	flagTemplates  = flag.String("templates", "", "Template sentences (one per line, each with a ___ slot) for matrix building.")
	flagSaveMatrix = flag.String("save_matrix", "matrix.msgpack", "Where to save the word-by-sentence matrix.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagModel == "" || *flagVocab == "" {
		fmt.Fprintln(os.Stderr, "both -model and -vocab are required")
		flag.Usage()
		os.Exit(2)
	}

	must.M(bertlm.Init(*flagOrtLibrary))
	defer func() { _ = bertlm.Shutdown() }()

	model := must.M1(bertlm.New(*flagModel, buildVocabulary()))
	defer func() { _ = model.Close() }()

	estimator := scoring.New(model)
	estimator.Verbose = *flagVerbose
	estimator.TopK = *flagTopK
	if *flagCalibration != "" {
		table := must.M1(calibration.Load(*flagCalibration))
		estimator.Calibration = table
		klog.Infof("Loaded calibration for sentence lengths %v", table.Lengths())
	}

	if *flagBuildCalibration != "" {
		buildCalibration(estimator)
		return
	}
	if *flagWords != "" || *flagTemplates != "" {
		buildMatrix(estimator)
		return
	}
	scoreSentences(estimator)
}

// buildVocabulary loads the tokenizer selected by -tokenizer.
func buildVocabulary() bertlm.Vocabulary {
	switch *flagTokenizer {
	case "wordpiece":
		vocab := must.M1(wordpiece.Load(*flagVocab))
		klog.Infof("Loaded WordPiece vocabulary with %s tokens", humanize.Comma(int64(vocab.Size())))
		return vocab
	case "sentencepiece":
		return must.M1(sentencepiece.NewFromPath(*flagVocab, sentencepiece.DefaultSpecials()))
	}
	klog.Exitf("Unknown tokenizer %q (choose wordpiece or sentencepiece)", *flagTokenizer)
	return nil
}

func parsePolicy() scoring.CombinationPolicy {
	return must.M1(scoring.ParsePolicy(*flagPolicy))
}

func scoreSentences(estimator *scoring.Estimator) {
	policy := parsePolicy()
	sentences := flag.Args()
	if len(sentences) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if scanner.Text() != "" {
				sentences = append(sentences, scanner.Text())
			}
		}
		must.M(scanner.Err())
	}
	for _, sentence := range sentences {
		score, err := estimator.ScoreText(sentence, policy)
		if err != nil {
			klog.Errorf("Failed to score %q: %v", sentence, err)
			continue
		}
		fmt.Printf("%.6e\t%s\n", score, sentence)
	}
}

func buildCalibration(estimator *scoring.Estimator) {
	reference := must.M1(corpus.Open(*flagBuildCalibration))
	total := must.M1(reference.Count())
	klog.Infof("Building calibration from %s reference sentences", humanize.Comma(int64(total)))

	bar := progressbar.Default(int64(total), "calibrating")
	table := must.M1(calibration.Build(progressCorpus{reference, bar}, estimator))
	klog.Infof("Calibration covers sentence lengths %v", table.Lengths())

	if *flagSaveCalibration != "" {
		must.M(calibration.Save(*flagSaveCalibration, table))
		klog.Infof("Calibration table saved to %s", *flagSaveCalibration)
	}
}

// progressCorpus advances a progress bar as the underlying corpus is
// consumed.
type progressCorpus struct {
	*corpus.File
	bar *progressbar.ProgressBar
}

func (p progressCorpus) Each(fn func(sentence string) error) error {
	return p.File.Each(func(sentence string) error {
		_ = p.bar.Add(1)
		return fn(sentence)
	})
}

func buildMatrix(estimator *scoring.Estimator) {
	if *flagWords == "" || *flagTemplates == "" {
		klog.Exit("Matrix building needs both -words and -templates")
	}
	words := must.M1(readLines(*flagWords))
	templates := must.M1(readLines(*flagTemplates))
	klog.Infof("Building a %s x %s word-by-sentence matrix",
		humanize.Comma(int64(len(words))), humanize.Comma(int64(len(templates))))

	matrix := must.M1(wordcat.Build(words, templates, estimator, parsePolicy()))
	matrix.NormalizeColumns()
	must.M(wordcat.Save(*flagSaveMatrix, matrix))
	klog.Infof("Matrix saved to %s", *flagSaveMatrix)
}

func readLines(path string) ([]string, error) {
	file, err := corpus.Open(path)
	if err != nil {
		return nil, err
	}
	var lines []string
	err = file.Each(func(line string) error {
		lines = append(lines, line)
		return nil
	})
	return lines, err
}
