package search

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a an and are as at be but by do for from
		have in is it not of on that the this to was with you`) {
		stopWords[w] = struct{}{}
	}
}

// contentWords returns the lowercased words of text that are not stop words.
// Anything other than a letter, digit, dot or underscore separates words.
func contentWords(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '_'
	})

	words := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".")
		if f == "" {
			continue
		}
		if _, stop := stopWords[f]; !stop {
			words[f] = struct{}{}
		}
	}
	return words
}

// verbatim reports whether every content word of query occurs in passage.
// A query made only of stop words never matches.
func verbatim(passage, query string) bool {
	want := contentWords(query)
	if len(want) == 0 {
		return false
	}
	have := contentWords(passage)
	for w := range want {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}
