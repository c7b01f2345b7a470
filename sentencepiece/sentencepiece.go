// Package sentencepiece adapts a sentencepiece model (as used by ALBERT or
// XLM-R style masked-language models) to the vocabulary interface consumed
// by the masked-prediction backends.
package sentencepiece

import (
	"sync"

	esentencepiece "github.com/eliben/go-sentencepiece"
	"github.com/pkg/errors"
)

type Token = esentencepiece.Token

// Specials holds the marker pieces and ids a sentencepiece masked-language
// model reserves. Unlike BERT vocab files, the sentencepiece model proto
// does not name a mask piece, so it has to be configured.
type Specials struct {
	BOSPiece  string
	BOSID     int
	EOSPiece  string
	EOSID     int
	MaskPiece string
	MaskID    int
	UnknownID int
}

// DefaultSpecials returns commonly used piece ids.
//
// TODO: read from tokenizer model instead.
func DefaultSpecials() Specials {
	return Specials{
		BOSPiece:  "<bos>",
		BOSID:     2,
		EOSPiece:  "<eos>",
		EOSID:     1,
		MaskPiece: "<mask>",
		MaskID:    4,
		UnknownID: 3,
	}
}

// Processor wraps a sentencepiece processor and tracks the piece/id pairs it
// has produced, so that token strings can be mapped back to ids after a
// masked variant is built at the string level.
type Processor struct {
	proc     *esentencepiece.Processor
	specials Specials

	mu     sync.Mutex
	pieces map[string]int
	ids    map[int]string
}

// NewFromPath loads the sentencepiece model at vocabPath.
func NewFromPath(vocabPath string, specials Specials) (*Processor, error) {
	proc, err := esentencepiece.NewProcessorFromPath(vocabPath)
	if err != nil {
		return nil, errors.Wrapf(err, "can't create sentencepiece")
	}
	p := &Processor{
		proc:     proc,
		specials: specials,
		pieces:   make(map[string]int),
		ids:      make(map[int]string),
	}
	p.remember(specials.BOSPiece, specials.BOSID)
	p.remember(specials.EOSPiece, specials.EOSID)
	p.remember(specials.MaskPiece, specials.MaskID)
	return p, nil
}

// Tokenize returns the piece strings for text, without boundary markers.
func (p *Processor) Tokenize(text string) ([]string, error) {
	toks := p.proc.Encode(text)
	pieces := make([]string, len(toks))
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, t := range toks {
		pieces[i] = t.Text
		p.pieces[t.Text] = t.ID
		p.ids[t.ID] = t.Text
	}
	return pieces, nil
}

// TokensToIDs maps piece strings back to ids. Pieces never seen by this
// processor map to the unknown id.
func (p *Processor) TokensToIDs(toks []string) []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]int, len(toks))
	for i, token := range toks {
		if id, ok := p.pieces[token]; ok {
			ids[i] = id
		} else {
			ids[i] = p.specials.UnknownID
		}
	}
	return ids
}

// IDsToTokens maps ids back to piece strings. Ids this processor has not
// seen are decoded through the model.
func (p *Processor) IDsToTokens(ids []int) []string {
	toks := make([]string, len(ids))
	for i, id := range ids {
		p.mu.Lock()
		piece, ok := p.ids[id]
		p.mu.Unlock()
		if ok {
			toks[i] = piece
			continue
		}
		toks[i] = p.proc.Decode([]int{id})
	}
	return toks
}

func (p *Processor) BOSToken() string  { return p.specials.BOSPiece }
func (p *Processor) EOSToken() string  { return p.specials.EOSPiece }
func (p *Processor) MaskToken() string { return p.specials.MaskPiece }

func (p *Processor) remember(piece string, id int) {
	p.pieces[piece] = id
	p.ids[id] = piece
}
