// Package tokenize implements tokenization for search and dedup. It has
// no dependency on the knowledge or embeddings packages so both may
// depend on it without an import cycle.
package tokenize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tokenize splits text into lowercase search tokens: Latin-script runs are
// NFC-normalized, lowercased, and lightly stemmed; CJK runs are split into
// overlapping character bigrams. Punctuation and
// whitespace are token boundaries and are dropped.
func Tokenize(text string) []string {
	normalized := norm.NFC.String(text)
	var tokens []string

	var run []rune
	runIsCJK := false

	flush := func() {
		if len(run) == 0 {
			return
		}
		if runIsCJK {
			tokens = append(tokens, cjkBigrams(run)...)
		} else {
			word := strings.ToLower(string(run))
			if stemmed := stemLatin(word); stemmed != "" {
				tokens = append(tokens, stemmed)
			}
		}
		run = run[:0]
	}

	for _, r := range normalized {
		switch {
		case isCJK(r):
			if len(run) > 0 && !runIsCJK {
				flush()
			}
			runIsCJK = true
			run = append(run, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if len(run) > 0 && runIsCJK {
				flush()
			}
			runIsCJK = false
			run = append(run, r)
		default:
			flush()
			runIsCJK = false
		}
	}
	flush()

	return tokens
}

// isCJK reports whether r is a Han ideograph or a Hiragana or Katakana
// character.
func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r)
}

// cjkBigrams returns overlapping 2-character windows over a CJK run. A
// single trailing character with no pair is emitted on its own, matching
// the requirement that no character be dropped from the index.
func cjkBigrams(run []rune) []string {
	if len(run) == 1 {
		return []string{string(run)}
	}
	out := make([]string, 0, len(run)-1)
	for i := 0; i < len(run)-1; i++ {
		out = append(out, string(run[i:i+2]))
	}
	return out
}

var latinSuffixes = []string{"ing", "ed", "es", "s", "ly"}

// stemLatin strips the first recognized suffix from a lowercased
// Latin-script word, refusing to shorten the remaining stem below three
// characters, and drops tokens shorter than two characters entirely.
func stemLatin(word string) string {
	if len(word) < 2 {
		return ""
	}
	for _, suf := range latinSuffixes {
		if strings.HasSuffix(word, suf) && len(word)-len(suf) >= 3 {
			return word[:len(word)-len(suf)]
		}
	}
	return word
}
