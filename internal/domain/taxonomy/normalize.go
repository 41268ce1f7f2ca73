// Package taxonomy turns free-text vendor tags and categories into a canonical,
// hierarchical tag set (general / sub / specific category, store id, audience).
package taxonomy

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases text, strips diacritics, turns - / & _ into spaces, drops
// anything that is not an ASCII letter, digit or space and collapses whitespace.
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	// transform chains keep state, build one per call
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, strings.ToLower(text))
	if err != nil {
		folded = strings.ToLower(text)
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r == '-' || r == '/' || r == '&' || r == '_':
			b.WriteByte(' ')
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// TokenSet is a set of normalized tokens with sorted iteration
type TokenSet map[string]struct{}

// NewTokenSet normalizes every raw value into the set. Multi-word values add the
// whole phrase and each of its words.
func NewTokenSet(raw ...string) TokenSet {
	ts := make(TokenSet)
	for _, r := range raw {
		ts.Add(r)
	}
	return ts
}

// Add normalizes and inserts a raw value
func (ts TokenSet) Add(raw string) {
	n := Normalize(raw)
	if n == "" {
		return
	}
	ts[n] = struct{}{}
	if strings.Contains(n, " ") {
		for _, w := range strings.Fields(n) {
			ts[w] = struct{}{}
		}
	}
}

// Has reports whether token is in the set
func (ts TokenSet) Has(token string) bool {
	_, ok := ts[token]
	return ok
}

// Sorted returns the tokens in lexical order
func (ts TokenSet) Sorted() []string {
	out := make([]string, 0, len(ts))
	for t := range ts {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
