// Package rules implements the text replacement engine applied to relayed
// channel posts. A Ruleset holds three independent old->new mappings: links
// (literal, case-sensitive), words (whole-word, case-insensitive) and
// sentences (literal, case-sensitive).
package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tinyland-inc/relaybot/pkg/logger"
)

// Category names accepted by administrative operations.
const (
	CategoryLinks     = "links"
	CategoryWords     = "words"
	CategorySentences = "sentences"
)

type Ruleset struct {
	Links     map[string]string `json:"links"`
	Words     map[string]string `json:"words"`
	Sentences map[string]string `json:"sentences"`
}

// NewRuleset returns an empty ruleset with all three categories allocated.
func NewRuleset() Ruleset {
	return Ruleset{
		Links:     make(map[string]string),
		Words:     make(map[string]string),
		Sentences: make(map[string]string),
	}
}

// Clone returns a deep copy. Used to hand out config snapshots that cannot
// be torn by concurrent administrative mutations.
func (rs Ruleset) Clone() Ruleset {
	out := NewRuleset()
	for k, v := range rs.Links {
		out.Links[k] = v
	}
	for k, v := range rs.Words {
		out.Words[k] = v
	}
	for k, v := range rs.Sentences {
		out.Sentences[k] = v
	}
	return out
}

// Count returns the total number of rules across all categories.
func (rs Ruleset) Count() int {
	return len(rs.Links) + len(rs.Words) + len(rs.Sentences)
}

// Apply rewrites text according to the ruleset: links first, then words,
// then sentences, each stage feeding the next.
//
// Apply never fails: an empty input is returned as is, and any internal
// fault (a pathological user-supplied pattern, a panic in the regexp
// machinery) is logged and degrades to the original, unmodified input.
// A partially transformed string is never returned.
func (rs Ruleset) Apply(text string) string {
	if text == "" {
		return text
	}

	out, err := rs.apply(text)
	if err != nil {
		logger.ErrorCF("rules", "Replacement failed, returning original text",
			map[string]any{"error": err.Error()})
		return text
	}
	return out
}

func (rs Ruleset) apply(text string) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("replacement panic: %v", r)
		}
	}()

	result = text

	// Links: literal, byte-for-byte. Pair order does not matter.
	for old, repl := range rs.Links {
		result = strings.ReplaceAll(result, old, repl)
	}

	// Words: longest key first so "car" cannot mangle an unprocessed
	// "carpet" match. Whole-word and case-insensitive; the replacement is
	// inserted verbatim.
	for _, old := range keysByLengthDesc(rs.Words) {
		result, err = replaceWord(result, old, rs.Words[old])
		if err != nil {
			return "", fmt.Errorf("word rule %q: %w", old, err)
		}
	}

	// Sentences: longest key first, literal and case-sensitive.
	for _, old := range keysByLengthDesc(rs.Sentences) {
		result = strings.ReplaceAll(result, old, rs.Sentences[old])
	}

	return result, nil
}

// replaceWord replaces every whole-word occurrence of old with repl,
// case-insensitively. Boundaries are checked on runes, not via regexp's \b,
// which is ASCII-only and would leave Cyrillic or accented keys inert.
func replaceWord(text, old, repl string) (string, error) {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(old))
	if err != nil {
		return "", err
	}

	matches := re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		if !wholeWord(text, m[0], m[1]) {
			continue
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(repl)
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String(), nil
}

// wholeWord reports whether the match at [start, end) is not embedded in a
// longer word: the runes on either side, if any, must not be word runes.
func wholeWord(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// keysByLengthDesc orders keys by descending length; equal lengths fall back
// to lexicographic order so the result is stable across map iterations.
func keysByLengthDesc(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}
