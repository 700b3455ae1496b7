// Package moderation holds the admission checks applied to every chat
// message: profanity masking and per-session rate limiting.
package moderation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultBlocklist is the set of words masked in outgoing text.
var DefaultBlocklist = []string{"fuck", "shit", "bitch", "asshole", "bastard", "dick", "cunt", "motherfucker"}

// MaskChar replaces every character of a blocked word.
const MaskChar = "*"

// Filter masks whole-word, case-insensitive occurrences of blocked words.
type Filter struct {
	pattern *regexp.Regexp
}

// NewFilter compiles a Filter for words. An empty list yields a no-op filter.
func NewFilter(words []string) *Filter {
	if len(words) == 0 {
		return &Filter{}
	}
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	return &Filter{
		pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`),
	}
}

// Apply returns text with each blocked word replaced by one MaskChar per
// character. Case folding can match multi-byte runes, so the mask is sized in
// runes.
func (f *Filter) Apply(text string) string {
	if f == nil || f.pattern == nil {
		return text
	}
	return f.pattern.ReplaceAllStringFunc(text, func(match string) string {
		return strings.Repeat(MaskChar, utf8.RuneCountInString(match))
	})
}
