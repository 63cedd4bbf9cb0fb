// Package moderation screens chat messages before they are persisted and
// broadcast. A message that trips the filter is rejected with a reason; the
// sender gets an error frame and nothing reaches the room.
package moderation

import (
	"strings"
)

// FilterResult is the outcome of checking one message.
type FilterResult struct {
	Blocked bool
	Reason  string // "blocked_keyword" or "spam_pattern"
	Term    string // the term or pattern name that matched
}

// defaultTerms is the built-in blocklist: single words and multi-word
// phrases. Matching is case-insensitive, on word boundaries, with common
// leetspeak substitutions normalized away.
var defaultTerms = []string{
	// slurs
	"nigger",
	"faggot",
	"retard",
	"tranny",
	// self-harm
	"kill yourself",
	"kys",
	"go die",
	// sexual exploitation
	"child porn",
	"send nudes",
	// violence
	"heil hitler",
	"bomb threat",
	"school shooting",
	// scams
	"free bitcoin",
	"crypto giveaway",
}

// Filter checks message text against a blocklist and a set of spam
// heuristics. It is immutable after construction and safe for concurrent
// use.
type Filter struct {
	words   map[string]bool // single-word terms
	phrases []string        // multi-word terms, pre-lowercased
}

// NewFilter returns a Filter loaded with the built-in blocklist.
func NewFilter() *Filter {
	return NewFilterWithTerms(defaultTerms)
}

// NewFilterWithTerms returns a Filter using only the given terms. Empty and
// whitespace-only entries are skipped. Terms containing a space are treated
// as phrases and matched as a whole on word boundaries.
func NewFilterWithTerms(terms []string) *Filter {
	f := &Filter{words: make(map[string]bool)}
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if strings.ContainsRune(term, ' ') {
			f.phrases = append(f.phrases, term)
		} else {
			f.words[term] = true
		}
	}
	return f
}

// Check screens a single message. The blocklist runs first (on both the
// plain text and its leet-normalized form), then the spam heuristics.
func (f *Filter) Check(text string) FilterResult {
	lower := strings.ToLower(text)

	if term := f.matchTerm(lower, tokenizePlain(lower)); term != "" {
		return FilterResult{Blocked: true, Reason: "blocked_keyword", Term: term}
	}

	// Second pass with leetspeak substitutions collapsed, so "b@dw0rd"
	// matches a blocklisted "badword".
	leet := normalizeLeet(lower)
	if leet != lower {
		if term := f.matchTerm(leet, tokenizePlain(leet)); term != "" {
			return FilterResult{Blocked: true, Reason: "blocked_keyword", Term: term}
		}
	}

	return f.checkSpamPatterns(text)
}

// matchTerm returns the first blocklisted word or phrase found in the text,
// or "" if none match. words are compared token by token; phrases by
// boundary-aware substring search.
func (f *Filter) matchTerm(lower string, tokens []string) string {
	for _, tok := range tokens {
		if f.words[tok] {
			return tok
		}
	}
	for _, phrase := range f.phrases {
		if containsPhrase(lower, phrase) {
			return phrase
		}
	}
	return ""
}

// containsPhrase reports whether phrase occurs in text on word boundaries:
// "kill yourself" matches inside "you should kill yourself now" but not
// inside "kill yourselves".
func containsPhrase(text, phrase string) bool {
	for start := 0; ; {
		i := strings.Index(text[start:], phrase)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(phrase)
		beforeOK := i == 0 || isBoundary(rune(text[i-1]))
		afterOK := end == len(text) || isBoundary(rune(text[end]))
		if beforeOK && afterOK {
			return true
		}
		start = i + 1
	}
}

func isBoundary(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
}

// leetMap translates common character substitutions back to letters.
var leetMap = map[rune]rune{
	'0': 'o',
	'1': 'i',
	'3': 'e',
	'4': 'a',
	'5': 's',
	'7': 't',
	'@': 'a',
	'$': 's',
	'!': 'i',
}

// normalizeLeet rewrites leetspeak substitutions to their plain letters.
// Input is assumed to be lowercased already.
func normalizeLeet(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if sub, ok := leetMap[r]; ok {
			b.WriteRune(sub)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// tokenizePlain splits text into lowercase word tokens, treating any
// non-alphanumeric rune as a separator.
func tokenizePlain(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
}
