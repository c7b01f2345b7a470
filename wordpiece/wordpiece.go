// Package wordpiece implements the BERT WordPiece vocabulary: vocab.txt
// loading, token/id mapping and greedy longest-match-first subword
// tokenization.
package wordpiece

import (
	"bufio"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/glicerico/wordcat-transformer/tokens"
)

// SpecialTokens names the marker tokens a BERT vocabulary reserves.
type SpecialTokens struct {
	PAD  string
	UNK  string
	CLS  string
	SEP  string
	MASK string
}

// DefaultSpecialTokens returns the markers used by the standard BERT
// vocabularies.
func DefaultSpecialTokens() SpecialTokens {
	return SpecialTokens{
		PAD:  "[PAD]",
		UNK:  "[UNK]",
		CLS:  tokens.BOSToken,
		SEP:  tokens.EOSToken,
		MASK: tokens.MaskToken,
	}
}

// wordPattern splits text into bracketed special tokens, words and
// punctuation runs before the WordPiece pass.
var wordPattern = regexp.MustCompile(`\[[^\[\]]+\]|\w+|[^\w\s]+`)

// Vocabulary maps between token strings and vocabulary ids.
type Vocabulary struct {
	ids      map[string]int
	toks     map[int]string
	specials SpecialTokens
}

// Load reads a vocab.txt file: one token per line, the line number is the id.
func Load(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open vocabulary %q", path)
	}
	defer func() { _ = f.Close() }()

	var list []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		token := strings.TrimSpace(scanner.Text())
		if token != "" {
			list = append(list, token)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read vocabulary %q", path)
	}
	return New(list)
}

// New builds a vocabulary from an ordered token list.
func New(list []string) (*Vocabulary, error) {
	v := &Vocabulary{
		ids:      make(map[string]int, len(list)),
		toks:     make(map[int]string, len(list)),
		specials: DefaultSpecialTokens(),
	}
	for id, token := range list {
		v.ids[token] = id
		v.toks[id] = token
	}
	for _, required := range []string{v.specials.UNK, v.specials.CLS, v.specials.SEP, v.specials.MASK} {
		if _, ok := v.ids[required]; !ok {
			return nil, errors.Errorf("vocabulary is missing the required token %s", required)
		}
	}
	return v, nil
}

// Tokenize splits text into WordPiece tokens. Boundary markers are not
// added; the oracle adapter is responsible for those.
func (v *Vocabulary) Tokenize(text string) ([]string, error) {
	var pieces []string
	for _, word := range wordPattern.FindAllString(text, -1) {
		if strings.HasPrefix(word, "[") && strings.HasSuffix(word, "]") {
			if canonical, ok := v.canonicalSpecial(word); ok {
				pieces = append(pieces, canonical)
				continue
			}
		}
		word = strings.ToLower(word)
		if _, ok := v.ids[word]; ok {
			pieces = append(pieces, word)
			continue
		}
		pieces = append(pieces, v.wordPiece(word)...)
	}
	return pieces, nil
}

// TokensToIDs maps tokens to their vocabulary ids; unknown tokens map to the
// UNK id.
func (v *Vocabulary) TokensToIDs(toks []string) []int {
	ids := make([]int, len(toks))
	for i, token := range toks {
		if id, ok := v.ids[token]; ok {
			ids[i] = id
		} else {
			ids[i] = v.ids[v.specials.UNK]
		}
	}
	return ids
}

// IDsToTokens maps vocabulary ids back to their token strings; ids outside
// the vocabulary map to the UNK token.
func (v *Vocabulary) IDsToTokens(ids []int) []string {
	toks := make([]string, len(ids))
	for i, id := range ids {
		if token, ok := v.toks[id]; ok {
			toks[i] = token
		} else {
			toks[i] = v.specials.UNK
		}
	}
	return toks
}

// Size returns the number of tokens in the vocabulary.
func (v *Vocabulary) Size() int {
	return len(v.ids)
}

func (v *Vocabulary) BOSToken() string  { return v.specials.CLS }
func (v *Vocabulary) EOSToken() string  { return v.specials.SEP }
func (v *Vocabulary) MaskToken() string { return v.specials.MASK }

func (v *Vocabulary) canonicalSpecial(token string) (string, bool) {
	upper := strings.ToUpper(token)
	for _, special := range []string{v.specials.PAD, v.specials.UNK, v.specials.CLS, v.specials.SEP, v.specials.MASK} {
		if upper == strings.ToUpper(special) {
			return special, true
		}
	}
	return "", false
}

// wordPiece splits a word into subwords by greedy longest-match-first,
// prefixing continuations with "##". A word with any unmatchable remainder
// collapses to UNK.
func (v *Vocabulary) wordPiece(word string) []string {
	var pieces []string
	start := 0
	for start < len(word) {
		end := len(word)
		found := false
		for end > start {
			sub := word[start:end]
			if start > 0 {
				sub = "##" + sub
			}
			if _, ok := v.ids[sub]; ok {
				pieces = append(pieces, sub)
				found = true
				break
			}
			end--
		}
		if !found {
			return []string{v.specials.UNK}
		}
		start = end
	}
	return pieces
}
