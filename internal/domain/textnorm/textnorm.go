// Package textnorm turns free-text song queries into search tokens.
//
// The search pipeline depends only on the Normalizer interface; Default is the
// implementation wired by the service.
package textnorm

import (
	"strings"
	"unicode"

	"github.com/bbalet/stopwords"
	"github.com/longbridgeapp/opencc"
	"github.com/rivo/uniseg"
	"golang.org/x/text/width"
)

// Normalizer segments queries, removes filler tokens and offers a
// script-variant rendering of a query. Implementations must be pure.
type Normalizer interface {
	Segment(text string) []string
	StripStopwords(tokens []string) []string
	ToAlternateScript(text string) string
}

// fillerTokens are dropped regardless of language settings.
var fillerTokens = map[string]struct{}{
	"的": {},
	"“": {},
	"”": {},
}

// Option configures a Default normalizer.
type Option func(*Default)

// WithEnglishStopwords toggles removal of English filler words such as "the".
func WithEnglishStopwords(enabled bool) Option {
	return func(d *Default) {
		d.englishStopwords = enabled
	}
}

// WithConverter overrides the alternate-script converter.
func WithConverter(convert func(string) (string, error)) Option {
	return func(d *Default) {
		if convert != nil {
			d.convert = convert
		}
	}
}

// Default is the production Normalizer: Unicode word segmentation,
// punctuation/filler stripping and Simplified-to-Traditional conversion.
type Default struct {
	englishStopwords bool
	convert          func(string) (string, error)
}

// New builds a Default normalizer. It fails only when the script conversion
// dictionaries cannot be loaded.
func New(opts ...Option) (*Default, error) {
	d := &Default{englishStopwords: true}
	for _, opt := range opts {
		opt(d)
	}
	if d.convert == nil {
		cc, err := opencc.New("s2t")
		if err != nil {
			return nil, err
		}
		d.convert = cc.Convert
	}
	return d, nil
}

// Segment splits text on Unicode word boundaries. Runs of Katakana or Latin
// letters stay together; ideographs become single-character tokens.
func (d *Default) Segment(text string) []string {
	var tokens []string
	state := -1
	for len(text) > 0 {
		var word string
		word, text, state = uniseg.FirstWordInString(text, state)
		tokens = append(tokens, word)
	}
	return tokens
}

// StripStopwords removes whitespace, punctuation and filler tokens. When
// every meaningful token is an English filler word, those words are kept so
// that such a query still searches.
func (d *Default) StripStopwords(tokens []string) []string {
	var kept, fillers []string
	for _, tok := range tokens {
		if isBlankOrPunct(tok) {
			continue
		}
		if _, ok := fillerTokens[tok]; ok {
			continue
		}
		if d.englishStopwords && isEnglishStopword(tok) {
			fillers = append(fillers, tok)
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		return fillers
	}
	return kept
}

// ToAlternateScript converts Simplified Chinese characters to Traditional.
// Text the converter rejects is returned unchanged.
func (d *Default) ToAlternateScript(text string) string {
	out, err := d.convert(text)
	if err != nil {
		return text
	}
	return out
}

// Fold is the canonical form used for substring matching: width variants are
// folded (full-width ASCII to half-width, half-width Katakana to full-width)
// and letters are lower-cased.
func Fold(s string) string {
	return strings.ToLower(width.Fold.String(s))
}

// HalfWidth narrows full-width characters, including the ideographic space.
func HalfWidth(s string) string {
	return width.Narrow.String(s)
}

func isBlankOrPunct(tok string) bool {
	for _, r := range tok {
		if !unicode.IsSpace(r) && !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}

func isEnglishStopword(tok string) bool {
	for _, r := range tok {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return strings.TrimSpace(stopwords.CleanString(tok, "en", false)) == ""
}
