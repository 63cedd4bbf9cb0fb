package moderation

import (
	"regexp"
	"strings"
)

// Spam heuristics are cheap pattern checks that run after the blocklist.
// The regexes are compiled once at package init and are safe for
// concurrent use.
var (
	// urlPattern matches http/https URLs, www. hosts, and bare domains on
	// common TLDs. The bare-domain form requires a trailing "/" so version
	// strings like "v2.0" and decimals like "3.14" stay clean.
	urlPattern = regexp.MustCompile(`(?i)(https?://\S+|www\.\S+|\S+\.(com|net|org|io|co|xyz|info|biz|ru|cn|tk|ml|ga|cf)/\S*)`)

	// phonePattern matches phone-number shapes like +1-555-123-4567,
	// (555) 123-4567 and 555.123.4567. Anchored to whitespace so digit
	// runs inside ordinary words and short numbers like "100" pass.
	phonePattern = regexp.MustCompile(`(?:^|\s)(\+?\d{1,3}[-.\s]?)?\(?\d{2,4}\)?[-.\s]?\d{3,4}[-.\s]?\d{3,4}(?:\s|$)`)
)

type spamCheck struct {
	name  string
	match func(string) bool
}

// Order matters: the first matching check names the pattern in the result.
var spamChecks = []spamCheck{
	{name: "url", match: urlPattern.MatchString},
	{name: "phone", match: phonePattern.MatchString},
	{name: "char_flood", match: hasCharFlood},
	{name: "word_flood", match: hasWordFlood},
}

// checkSpamPatterns runs every heuristic against text and returns a blocking
// result on the first hit, or a zero FilterResult when the text is clean.
func (f *Filter) checkSpamPatterns(text string) FilterResult {
	for _, sc := range spamChecks {
		if sc.match(text) {
			return FilterResult{Blocked: true, Reason: "spam_pattern", Term: sc.name}
		}
	}
	return FilterResult{}
}

// hasCharFlood reports whether text contains 5 or more consecutive identical
// runes. RE2 has no backreferences, so this is a linear scan.
func hasCharFlood(text string) bool {
	const threshold = 5

	count := 1
	prev := rune(-1)
	for _, r := range text {
		if r == prev {
			count++
			if count >= threshold {
				return true
			}
		} else {
			count = 1
			prev = r
		}
	}
	return false
}

// hasWordFlood reports whether the same word repeats 3 or more times in a
// row, case-insensitive.
func hasWordFlood(text string) bool {
	const threshold = 3

	count := 1
	prev := ""
	for _, w := range strings.Fields(text) {
		lower := strings.ToLower(w)
		if lower == prev {
			count++
			if count >= threshold {
				return true
			}
		} else {
			count = 1
			prev = lower
		}
	}
	return false
}
