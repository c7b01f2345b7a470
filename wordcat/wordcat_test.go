package wordcat

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glicerico/wordcat-transformer/scoring"
)

// lengthScorer scores a sentence by its character count, so matrix entries
// are deterministic without a model.
type lengthScorer struct{}

func (lengthScorer) ScoreText(text string, _ scoring.CombinationPolicy) (float64, error) {
	return float64(len(text)), nil
}

func TestBuild(t *testing.T) {
	words := []string{"cat", "giraffe"}
	templates := []string{"the ___ sat", "a ___ ran away"}

	m, err := Build(words, templates, lengthScorer{}, scoring.PolicyRaw)
	require.NoError(t, err)
	require.Equal(t, words, m.Words)
	require.Equal(t, templates, m.Sentences)
	require.Len(t, m.Scores, 2)

	require.Equal(t, float64(len("the cat sat")), m.Scores[0][0])
	require.Equal(t, float64(len("a giraffe ran away")), m.Scores[1][1])
}

func TestBuildRejectsBadTemplates(t *testing.T) {
	_, err := Build([]string{"cat"}, []string{"no slot here"}, lengthScorer{}, scoring.PolicyRaw)
	require.Error(t, err)

	_, err = Build([]string{"cat"}, []string{"___ two ___ slots"}, lengthScorer{}, scoring.PolicyRaw)
	require.Error(t, err)
}

func TestRow(t *testing.T) {
	m, err := Build([]string{"cat", "dog"}, []string{"the ___ sat"}, lengthScorer{}, scoring.PolicyRaw)
	require.NoError(t, err)

	row, ok := m.Row("dog")
	require.True(t, ok)
	require.Equal(t, m.Scores[1], row)

	_, ok = m.Row("giraffe")
	require.False(t, ok)
}

func TestNormalizeColumns(t *testing.T) {
	m := &Matrix{
		Words:     []string{"a", "b"},
		Sentences: []string{"s1 ___", "s2 ___"},
		Scores:    [][]float64{{3, 0}, {4, 0}},
	}
	m.NormalizeColumns()

	require.InEpsilon(t, 0.6, m.Scores[0][0], 1e-12)
	require.InEpsilon(t, 0.8, m.Scores[1][0], 1e-12)

	// All-zero columns stay zero instead of dividing by zero.
	require.Equal(t, 0.0, m.Scores[0][1])
	require.Equal(t, 0.0, m.Scores[1][1])

	var norm float64
	for i := range m.Words {
		norm += m.Scores[i][0] * m.Scores[i][0]
	}
	require.InEpsilon(t, 1.0, math.Sqrt(norm), 1e-12)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m, err := Build([]string{"cat"}, []string{"the ___ sat"}, lengthScorer{}, scoring.PolicyRaw)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "matrix.msgpack")
	require.NoError(t, Save(path, m))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, m.Words, loaded.Words)
	require.Equal(t, m.Sentences, loaded.Sentences)
	require.Equal(t, m.Scores, loaded.Scores)
}
