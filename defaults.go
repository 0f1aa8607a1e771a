package slimsearch

import (
	"fmt"
	"strings"
	"unicode"

	snowballeng "github.com/kljensen/snowball/english"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DEFAULT COLLABORATOR HOOKS
// ═══════════════════════════════════════════════════════════════════════════════
// Field extraction, tokenization, and term processing are host concerns by
// design (see Config): a search index has no business deciding how a host's
// documents are shaped or which language's stemming rules apply. What
// follows are ready-made implementations a host can take as-is or wrap:
// DefaultExtractField/DefaultTokenize cover the common case (documents are
// map[string]any, tokens split on anything that isn't a letter or digit),
// and EnglishProcessor is an optional ProcessTermFunc a host can opt into
// for English-language stemming — it is never wired in automatically.
// ═══════════════════════════════════════════════════════════════════════════════

// DefaultExtractField reads field from doc, which it expects to be a
// map[string]any (or a type assignable to one). A missing key or a nil
// value reports ok=false.
func DefaultExtractField(doc any, field string) (any, bool) {
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, false
	}
	v, present := m[field]
	if !present || v == nil {
		return nil, false
	}
	return v, true
}

// coerceToString renders a non-string field value the way a document body
// would render it for indexing: numbers and booleans become their decimal
// or literal text, everything else falls back to fmt.Sprint.
func coerceToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// DefaultTokenize splits text on any rune that is not a Unicode letter or
// number, lowercasing the result. It ignores fieldName.
//
// Examples:
//
//	"The Quick-Brown Fox!" → ["the", "quick", "brown", "fox"]
//	"café"                 → ["café"]  (Unicode letters preserved)
func DefaultTokenize(text string, _ string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.ToLower(f)
	}
	return out
}

// DefaultProcessTerm passes every token through unchanged — no stemming, no
// stopword removal. Hosts needing either compose their own ProcessTermFunc,
// optionally starting from EnglishProcessor below.
func DefaultProcessTerm(term string, _ string) []string {
	if term == "" {
		return nil
	}
	return []string{term}
}

// EnglishProcessor stems term with the Snowball (Porter2) English algorithm
// and drops it if it is also a common English stopword. Hosts opt into this
// explicitly via Config.ProcessTerm; it is not applied by default.
//
//	"running" → ["run"]
//	"the"     → nil (stopword)
func EnglishProcessor(term string, fieldName string) []string {
	if isEnglishStopword(term) {
		return nil
	}
	stemmed := snowballeng.Stem(term, false)
	if stemmed == "" {
		return nil
	}
	return []string{stemmed}
}

func isEnglishStopword(term string) bool {
	_, ok := englishStopwords[term]
	return ok
}

// englishStopwords are common English function words with little
// discriminating value for search, offered for hosts that opt into
// EnglishProcessor.
var englishStopwords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "after": {}, "again": {}, "all": {},
	"am": {}, "an": {}, "and": {}, "any": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "because": {}, "been": {}, "before": {}, "being": {}, "below": {},
	"between": {}, "both": {}, "but": {}, "by": {}, "can": {}, "did": {}, "do": {},
	"does": {}, "doing": {}, "down": {}, "during": {}, "each": {}, "few": {},
	"for": {}, "from": {}, "further": {}, "had": {}, "has": {}, "have": {},
	"having": {}, "he": {}, "her": {}, "here": {}, "hers": {}, "herself": {},
	"him": {}, "himself": {}, "his": {}, "how": {}, "i": {}, "if": {}, "in": {},
	"into": {}, "is": {}, "it": {}, "its": {}, "itself": {}, "me": {}, "more": {},
	"most": {}, "my": {}, "myself": {}, "no": {}, "nor": {}, "not": {}, "of": {},
	"off": {}, "on": {}, "once": {}, "only": {}, "or": {}, "other": {}, "our": {},
	"ours": {}, "ourselves": {}, "out": {}, "over": {}, "own": {}, "same": {},
	"she": {}, "should": {}, "so": {}, "some": {}, "such": {}, "than": {},
	"that": {}, "the": {}, "their": {}, "theirs": {}, "them": {}, "themselves": {},
	"then": {}, "there": {}, "these": {}, "they": {}, "this": {}, "those": {},
	"through": {}, "to": {}, "too": {}, "under": {}, "until": {}, "up": {},
	"very": {}, "was": {}, "we": {}, "were": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "while": {}, "who": {}, "whom": {}, "why": {}, "with": {},
	"would": {}, "you": {}, "your": {}, "yours": {}, "yourself": {}, "yourselves": {},
}
