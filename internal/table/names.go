package table

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// CleanName turns a header cell or object key into a column name: Unicode
// lower-casing, every run of characters that are not letters or digits
// replaced by a single underscore, and no leading or trailing underscore.
//
// CleanName(CleanName(s)) == CleanName(s) for every s.
func CleanName(name string) string {
	// Caser values are stateful and must not be shared across goroutines.
	// Fold is not stable on Cherokee (U+13A0 and U+AB70 fold to each other
	// across passes); Lower is.
	lowered := norm.NFC.String(cases.Lower(language.Und).String(norm.NFC.String(name)))
	var b strings.Builder
	b.Grow(len(lowered))
	pending := false
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

// UniqueNames cleans every name and resolves collisions. An empty cleaned
// name becomes column_<position>; later duplicates get _2, _3, ... suffixes,
// skipping suffixes that are already taken.
func UniqueNames(names []string) []string {
	out := make([]string, len(names))
	taken := make(map[string]bool, len(names))
	for i, n := range names {
		c := CleanName(n)
		if c == "" {
			c = "column_" + strconv.Itoa(i+1)
		}
		out[i] = c
	}
	// Reserve first occurrences before suffixing so that a literal "a_2"
	// header keeps its name and the duplicate "a" moves to "a_3".
	first := make(map[string]int, len(out))
	for i, c := range out {
		if _, ok := first[c]; !ok {
			first[c] = i
			taken[c] = true
		}
	}
	for i, c := range out {
		if first[c] == i {
			continue
		}
		for n := 2; ; n++ {
			cand := c + "_" + strconv.Itoa(n)
			if !taken[cand] {
				taken[cand] = true
				out[i] = cand
				break
			}
		}
	}
	return out
}
