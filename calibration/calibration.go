// Package calibration builds and serves the length-indexed normalization
// tables that make raw sentence scores comparable across sentence lengths.
//
// A table maps a token-sequence length (including the boundary markers) to
// the arithmetic mean of the raw scores a reference corpus produced at that
// length. Tables are built once in a single streaming pass and are read-only
// afterwards, so concurrent lookups need no locking.
package calibration

import (
	"sort"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/glicerico/wordcat-transformer/scoring"
)

// lengthStats is the running reduction for one sentence length. Keeping the
// count and sum (rather than the mean) makes tables mergeable.
type lengthStats struct {
	Count int64   `msgpack:"count"`
	Sum   float64 `msgpack:"sum"`
}

// Table maps token-sequence lengths to mean raw scores. The zero value is an
// empty table; every lookup misses and calibrated scoring falls back to a
// neutral divisor of 1.
type Table struct {
	stats map[int]lengthStats
}

// Lookup returns the mean raw score for sentences of the given token length.
// It implements scoring.Calibration.
func (t *Table) Lookup(length int) (float64, bool) {
	s, ok := t.stats[length]
	if !ok || s.Count == 0 {
		return 0, false
	}
	return s.Sum / float64(s.Count), true
}

// Lengths returns the sentence lengths the table has entries for, sorted.
func (t *Table) Lengths() []int {
	lengths := make([]int, 0, len(t.stats))
	for l := range t.stats {
		lengths = append(lengths, l)
	}
	sort.Ints(lengths)
	return lengths
}

// Len returns the number of distinct sentence lengths in the table.
func (t *Table) Len() int {
	return len(t.stats)
}

// FromMeans creates a table directly from per-length mean scores.
func FromMeans(means map[int]float64) *Table {
	stats := make(map[int]lengthStats, len(means))
	for length, mean := range means {
		stats[length] = lengthStats{Count: 1, Sum: mean}
	}
	return &Table{stats: stats}
}

// Merge combines two tables into a new one. Entries present in both are
// recomputed from the combined counts and sums; neither input is modified.
func Merge(a, b *Table) *Table {
	merged := make(map[int]lengthStats, len(a.stats)+len(b.stats))
	for length, s := range a.stats {
		merged[length] = s
	}
	for length, s := range b.stats {
		m := merged[length]
		m.Count += s.Count
		m.Sum += s.Sum
		merged[length] = m
	}
	return &Table{stats: merged}
}

// Corpus yields reference sentences one at a time. Implementations must be
// finite; they are consumed in a single pass.
type Corpus interface {
	Each(fn func(sentence string) error) error
}

// Scorer is the slice of the estimator the builder needs: tokenize one raw
// sentence and compute its raw (uncalibrated) score.
type Scorer interface {
	RawScore(sentence string) (length int, score float64, err error)
}

// Build runs the estimator over every reference sentence and buckets the raw
// scores by token length. The reduction is streaming: memory is proportional
// to the number of distinct lengths, not to the corpus size. An empty corpus
// yields an empty table.
//
// Sentences too short to score are skipped with a warning rather than
// aborting the pass; any other scoring failure aborts it, since a table
// built from partial passes would not be comparable.
func Build(corpus Corpus, scorer Scorer) (*Table, error) {
	stats := make(map[int]lengthStats)
	err := corpus.Each(func(sentence string) error {
		length, score, err := scorer.RawScore(sentence)
		if errors.Is(err, scoring.ErrDegenerateSentence) {
			klog.Warningf("Skipping reference sentence with no interior tokens: %q", sentence)
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "failed to score reference sentence %q", sentence)
		}
		s := stats[length]
		s.Count++
		s.Sum += score
		stats[length] = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	table := &Table{stats: stats}
	klog.V(1).Infof("Calibration table covers sentence lengths %v", table.Lengths())
	return table, nil
}
