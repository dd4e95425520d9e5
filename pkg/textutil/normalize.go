// Package textutil provides the shared text normalization used by the audit
// and suggestion engines: diacritic-insensitive folding, Portuguese stop-word
// filtering, light suffix stripping, sentence splitting and HTML handling.
// The heuristic tables are package variables so they can be swapped for
// another language without touching the scoring code.
package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var titleCollator = collate.New(language.BrazilianPortuguese, collate.Loose)

// Fold lowercases s and strips diacritics (NFD, drop nonspacing marks, NFC).
func Fold(s string) string {
	s = strings.ToLower(s)
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// Words splits s into folded word tokens, keeping stop words.
func Words(s string) []string {
	return wordPattern.FindAllString(Fold(s), -1)
}

// WordSpans returns the byte offsets of each word in the original
// (non-folded) text, for slicing phrases out of it.
func WordSpans(s string) [][]int {
	return wordPattern.FindAllStringIndex(s, -1)
}

// Tokenize returns the stemmed, stop-word-free token list for s.
func Tokenize(s string) []string {
	raw := Words(s)
	tokens := make([]string, 0, len(raw))
	for _, w := range raw {
		if len(w) < 2 || IsStopWord(w) {
			continue
		}
		tokens = append(tokens, Stem(w))
	}
	return tokens
}

// TokenSet returns Tokenize(s) as a membership set.
func TokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range Tokenize(s) {
		set[tok] = true
	}
	return set
}

// WordCount counts whitespace-separated words in plain text.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// TitleCompare orders titles with the pt-BR collator, so "Árvore" sorts with
// "Arvore" instead of after "Zebra".
func TitleCompare(a, b string) int {
	return titleCollator.CompareString(a, b)
}

// NormalizePhrase collapses whitespace and folds a phrase for deduplication.
func NormalizePhrase(s string) string {
	return strings.Join(strings.Fields(Fold(s)), " ")
}

// Overlap counts how many tokens of a appear in the set b.
func Overlap(a []string, b map[string]bool) int {
	n := 0
	seen := make(map[string]bool, len(a))
	for _, tok := range a {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		if b[tok] {
			n++
		}
	}
	return n
}
