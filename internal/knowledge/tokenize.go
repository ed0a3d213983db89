// Package knowledge implements the derived-knowledge layer: tokenization
// for search and dedup, near-duplicate detection, hybrid keyword+vector
// search fusion, and the memory ranking state machine. Normalization uses
// trim-then-rune-wise scanning throughout.
package knowledge

import (
	"github.com/yologdev/yocore/internal/tokenize"
)

// Tokenize splits text into lowercase search tokens: Latin-script runs are
// NFC-normalized, lowercased, and lightly stemmed; CJK runs are split into
// overlapping character bigrams. Punctuation and
// whitespace are token boundaries and are dropped.
func Tokenize(text string) []string {
	return tokenize.Tokenize(text)
}
