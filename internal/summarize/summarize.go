// Package summarize derives a one-line summary and key ideas from an
// abstract using sentence segmentation and a keyword vocabulary.
package summarize

import (
	"strings"
	"unicode"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
)

// Placeholder stands in for the one-liner of a paper without an abstract.
const Placeholder = "(What problem does this paper solve?)"

// DefaultMaxIdeas caps the key ideas list.
const DefaultMaxIdeas = 4

// oneLinerSeps are tried in this order; the first one present wins.
var oneLinerSeps = []string{". ", "? ", "! "}

// Keywords marks sentences that carry a contribution or finding. Order is
// fixed; matching is case-insensitive substring search.
var Keywords = []string{
	"propose", "present", "introduce",
	"show", "demonstrate", "find",
	"achieve", "outperform",
	"experiment", "evaluate", "result",
	"method", "approach", "framework",
}

var keywordMatcher = func() ahocorasick.AhoCorasick {
	builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  false,
		MatchKind:            ahocorasick.LeftMostFirstMatch,
	})
	return builder.Build(Keywords)
}()

// OneLiner returns the abstract up to and including the first sentence
// terminator.
func OneLiner(abstract string) string {
	if abstract == "" {
		return Placeholder
	}
	for _, sep := range oneLinerSeps {
		if i := strings.Index(abstract, sep); i >= 0 {
			return abstract[:i] + strings.TrimSpace(sep)
		}
	}
	return abstract
}

// KeyIdeas selects up to max sentences containing a keyword, in original
// order. When none match it falls back to the first max sentences.
func KeyIdeas(abstract string, max int) []string {
	if abstract == "" {
		return nil
	}
	if max <= 0 {
		max = DefaultMaxIdeas
	}
	sentences := Sentences(abstract)

	var ideas []string
	for _, s := range sentences {
		if hasKeyword(s) {
			ideas = append(ideas, s)
			if len(ideas) >= max {
				break
			}
		}
	}
	if len(ideas) == 0 {
		if len(sentences) > max {
			sentences = sentences[:max]
		}
		ideas = sentences
	}
	return ideas
}

// Sentences splits text where terminal punctuation (. ! ?) is followed by
// whitespace. Terminators stay with their sentence; empty pieces are dropped.
func Sentences(text string) []string {
	var (
		out   []string
		start int
	)
	runes := []rune(text)
	for i := 0; i < len(runes)-1; i++ {
		if !isTerminal(runes[i]) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func hasKeyword(sentence string) bool {
	return len(keywordMatcher.FindAll(sentence)) > 0
}
