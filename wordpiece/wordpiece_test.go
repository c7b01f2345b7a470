package wordpiece

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testVocabulary(t *testing.T) *Vocabulary {
	t.Helper()
	v, err := New([]string{
		"[PAD]", "[UNK]", "[CLS]", "[SEP]", "[MASK]",
		"the", "cat", "sat", ".",
		"un", "##happi", "##ness",
	})
	require.NoError(t, err)
	return v
}

func TestTokenizeLowercasesAndSplits(t *testing.T) {
	v := testVocabulary(t)
	pieces, err := v.Tokenize("The cat sat.")
	require.NoError(t, err)
	require.Equal(t, []string{"the", "cat", "sat", "."}, pieces)
}

func TestTokenizeWordPieceSplit(t *testing.T) {
	v := testVocabulary(t)
	pieces, err := v.Tokenize("unhappiness")
	require.NoError(t, err)
	require.Equal(t, []string{"un", "##happi", "##ness"}, pieces)
}

func TestTokenizeUnknownWord(t *testing.T) {
	v := testVocabulary(t)
	pieces, err := v.Tokenize("zyzzyva")
	require.NoError(t, err)
	require.Equal(t, []string{"[UNK]"}, pieces)
}

func TestTokenizeSpecialTokensPassThrough(t *testing.T) {
	v := testVocabulary(t)
	pieces, err := v.Tokenize("the [MASK] sat")
	require.NoError(t, err)
	require.Equal(t, []string{"the", "[MASK]", "sat"}, pieces)

	// Specials are recognized case-insensitively.
	pieces, err = v.Tokenize("the [mask] sat")
	require.NoError(t, err)
	require.Equal(t, []string{"the", "[MASK]", "sat"}, pieces)
}

func TestTokenIDRoundTrip(t *testing.T) {
	v := testVocabulary(t)
	toks := []string{"[CLS]", "the", "cat", "[SEP]"}
	ids := v.TokensToIDs(toks)
	require.Equal(t, toks, v.IDsToTokens(ids))

	// Unknown tokens and out-of-range ids map to UNK.
	require.Equal(t, v.TokensToIDs([]string{"[UNK]"}), v.TokensToIDs([]string{"zyzzyva"}))
	require.Equal(t, []string{"[UNK]"}, v.IDsToTokens([]int{9999}))
}

func TestLoadVocabFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt")
	lines := []string{"[PAD]", "[UNK]", "[CLS]", "[SEP]", "[MASK]", "hello"}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	v, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, len(lines), v.Size())
	require.Equal(t, []int{5}, v.TokensToIDs([]string{"hello"}))
}

func TestNewRejectsMissingSpecials(t *testing.T) {
	_, err := New([]string{"hello", "world"})
	require.Error(t, err)
}
