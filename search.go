package slimsearch

import (
	"fmt"
	"sort"
)

// SearchHit is one ranked result from Search.
type SearchHit struct {
	ID      any
	Score   float64
	Match   map[string][]string // dictionary term -> field names it matched in
	Stored  map[string]any
	shortID uint32
}

// Suggestion is one ranked phrase from AutoSuggest.
type Suggestion struct {
	Suggestion string
	Score      float64
	Terms      []string
}

// Search runs q against the index and returns ranked hits. opts overrides
// Config.SearchOptions for this call only; fields left at their zero value
// inherit the configured default. Search returns ErrMissingField if opts or
// any node in q names a field not declared in Config.Fields.
func (idx *Index) Search(q Query, opts SearchOptions) ([]SearchHit, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := validateFields(idx.store, opts.Fields); err != nil {
		return nil, err
	}
	if err := validateQueryFields(idx.store, q); err != nil {
		return nil, err
	}

	effective := idx.cfg.SearchOptions.merge(opts)
	raw := runQuery(idx.store, q, effective, idx.cfg)
	return idx.finishHits(raw, effective), nil
}

// validateFields reports ErrMissingField if fields names anything outside
// the index's declared field set.
func validateFields(store *IndexStore, fields []string) error {
	for _, f := range fields {
		if _, ok := store.FieldID(f); !ok {
			return fmt.Errorf("%w: %q", ErrMissingField, f)
		}
	}
	return nil
}

// validateQueryFields walks q's composition tree checking every node's own
// Fields override, since a descendant may restrict fields independently of
// the options passed to Search itself.
func validateQueryFields(store *IndexStore, q Query) error {
	if err := validateFields(store, q.options.Fields); err != nil {
		return err
	}
	for _, child := range q.children {
		if err := validateQueryFields(store, child); err != nil {
			return err
		}
	}
	return nil
}

// finishHits applies document boosting, filtering, result-quality scaling,
// and final ordering — the post-combination steps that run once over the
// whole query tree rather than per node.
func (idx *Index) finishHits(raw map[uint32]*hitAcc, opts SearchOptions) []SearchHit {
	hits := make([]SearchHit, 0, len(raw))

	for shortID, acc := range raw {
		externalID, ok := idx.store.externalIDOf(shortID)
		if !ok {
			continue // tombstoned between scoring and projection
		}
		stored := idx.store.storedFields[shortID]

		score := acc.score
		if opts.BoostDocument != nil {
			var term string
			for t := range acc.matchInfo {
				term = t
				break
			}
			factor := opts.BoostDocument(externalID, term, stored)
			if factor == 0 {
				continue
			}
			score *= factor
		}

		if !acc.isWildcard {
			multiplier := float64(len(acc.matchedQueryTerms))
			if multiplier == 0 {
				multiplier = 1
			}
			score *= multiplier
		}

		hit := SearchHit{
			ID:      externalID,
			Score:   score,
			Match:   flattenMatchInfo(acc.matchInfo),
			Stored:  stored,
			shortID: shortID,
		}
		if opts.Filter != nil && !opts.Filter(&hit) {
			continue
		}
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].shortID < hits[j].shortID
	})
	return hits
}

func flattenMatchInfo(m map[string]map[string]struct{}) map[string][]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string][]string, len(m))
	for term, fieldSet := range m {
		fields := make([]string, 0, len(fieldSet))
		for f := range fieldSet {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		out[term] = fields
	}
	return out
}

// AutoSuggest runs a prefix+fuzzy expansion over text and groups the
// resulting candidates by the query-term position they expanded from,
// returning ranked phrase suggestions. opts inherits from Config's search
// options but defaults Prefix and Fuzzy to enabled. AutoSuggest returns
// ErrMissingField if opts names a field not declared in Config.Fields.
func (idx *Index) AutoSuggest(text string, opts SearchOptions) ([]Suggestion, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := validateFields(idx.store, opts.Fields); err != nil {
		return nil, err
	}

	base := idx.cfg.SearchOptions
	if base.Prefix == nil || !base.Prefix("", 0, nil) {
		base.Prefix = FixedPrefix(true)
	}
	if base.Fuzzy == nil || base.Fuzzy("", 0, nil) == 0 {
		base.Fuzzy = FixedFuzzy(0.2)
	}
	effective := base.merge(opts)

	tokens := idx.cfg.Tokenize(text, "")
	var terms []string
	for _, tok := range tokens {
		terms = append(terms, idx.cfg.ProcessTerm(tok, "")...)
	}
	if len(terms) == 0 {
		return nil, nil
	}

	fields := effective.Fields
	if len(fields) == 0 {
		fields = idx.store.FieldNames()
	}

	// Score each query position independently (not combined into one
	// query-level map) so a document's winning dictionary term at each
	// position can be recovered individually.
	perPosition := make([]map[uint32]*hitAcc, len(terms))
	for i, term := range terms {
		perPosition[i] = scoreQueryTerm(idx.store, term, i, terms, fields, effective)
	}

	type group struct {
		terms []string
		score float64
	}
	groups := make(map[string]*group)

	seen := make(map[uint32]struct{})
	for _, m := range perPosition {
		for shortID := range m {
			seen[shortID] = struct{}{}
		}
	}

	for shortID := range seen {
		if !idx.store.isLive(shortID) {
			continue
		}
		phraseTerms := make([]string, len(terms))
		docScore := 0.0
		for i := range terms {
			phraseTerms[i] = terms[i]
			acc, ok := perPosition[i][shortID]
			if !ok {
				continue
			}
			docScore += acc.score
			best, bestFields := "", -1
			for dictTerm, fieldSet := range acc.matchInfo {
				if len(fieldSet) > bestFields {
					best, bestFields = dictTerm, len(fieldSet)
				}
			}
			if best != "" {
				phraseTerms[i] = best
			}
		}
		phrase := joinPhrase(phraseTerms)
		g, ok := groups[phrase]
		if !ok {
			g = &group{terms: phraseTerms}
			groups[phrase] = g
		}
		g.score += docScore
	}

	suggestions := make([]Suggestion, 0, len(groups))
	for phrase, g := range groups {
		suggestions = append(suggestions, Suggestion{
			Suggestion: phrase,
			Score:      g.score,
			Terms:      g.terms,
		})
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Suggestion < suggestions[j].Suggestion
	})
	const maxSuggestions = 5
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions, nil
}

func joinPhrase(terms []string) string {
	out := ""
	for i, t := range terms {
		if i > 0 {
			out += " "
		}
		out += t
	}
	return out
}
