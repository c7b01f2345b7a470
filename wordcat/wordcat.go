// Package wordcat builds word-by-sentence probability matrices: each
// vocabulary word is substituted into a set of template sentences and the
// resulting sentences are scored, giving every word a vector of scores that
// downstream categorization consumes.
package wordcat

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/glicerico/wordcat-transformer/scoring"
)

// Slot marks the position in a template sentence where each candidate word
// is substituted.
const Slot = "___"

// Scorer is the slice of the estimator the matrix builder needs.
type Scorer interface {
	ScoreText(text string, policy scoring.CombinationPolicy) (float64, error)
}

// Matrix holds one score per (word, template sentence) pair. Rows are words,
// columns are sentences.
type Matrix struct {
	Words     []string    `msgpack:"words"`
	Sentences []string    `msgpack:"sentences"`
	Scores    [][]float64 `msgpack:"scores"`
}

// Build scores every word against every template sentence. Each template
// must contain exactly one Slot marker.
func Build(words, sentences []string, scorer Scorer, policy scoring.CombinationPolicy) (*Matrix, error) {
	for _, sentence := range sentences {
		if strings.Count(sentence, Slot) != 1 {
			return nil, errors.Errorf("template sentence %q must contain exactly one %q slot", sentence, Slot)
		}
	}
	m := &Matrix{
		Words:     words,
		Sentences: sentences,
		Scores:    make([][]float64, len(words)),
	}
	for i, word := range words {
		klog.V(1).Infof("Scoring word %q against %d template sentences", word, len(sentences))
		row := make([]float64, len(sentences))
		for j, sentence := range sentences {
			score, err := scorer.ScoreText(strings.Replace(sentence, Slot, word, 1), policy)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to score word %q in template %q", word, sentence)
			}
			row[j] = score
		}
		m.Scores[i] = row
	}
	return m, nil
}

// Row returns the score vector for one word.
func (m *Matrix) Row(word string) ([]float64, bool) {
	for i, w := range m.Words {
		if w == word {
			return m.Scores[i], true
		}
	}
	return nil, false
}

// NormalizeColumns rescales every column to unit L2 norm, so that templates
// with systematically higher scores do not dominate the word vectors.
// All-zero columns are left untouched.
func (m *Matrix) NormalizeColumns() {
	for j := range m.Sentences {
		var sumSquares float64
		for i := range m.Words {
			v := m.Scores[i][j]
			sumSquares += v * v
		}
		norm := math.Sqrt(sumSquares)
		if norm == 0 {
			continue
		}
		for i := range m.Words {
			m.Scores[i][j] /= norm
		}
	}
}
