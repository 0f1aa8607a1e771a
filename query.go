package slimsearch

import (
	"math"
)

// CombineOp names how a composition node folds its children's per-term
// result maps together.
type CombineOp int

const (
	// CombineOR unions child result sets, summing scores for documents
	// present in more than one.
	CombineOR CombineOp = iota + 1
	// CombineAND keeps only documents present in every child, summing
	// their scores.
	CombineAND
	// CombineANDNOT keeps documents present in the first child and
	// absent from every subsequent one, carrying the first child's score.
	CombineANDNOT
)

func (op CombineOp) String() string {
	switch op {
	case CombineOR:
		return "OR"
	case CombineAND:
		return "AND"
	case CombineANDNOT:
		return "AND_NOT"
	default:
		return "UNKNOWN"
	}
}

type queryKind int

const (
	queryTerm queryKind = iota
	queryWildcard
	queryComposition
)

// Query is a tagged sum — a bare string, the wildcard sentinel, or a
// composition of child queries under a CombineOp — mirroring the grammar's
// three node shapes. Build one with Term, Wildcard, Combine, And, Or, or
// AndNot, and refine it with Options.
type Query struct {
	kind     queryKind
	text     string
	children []Query
	options  SearchOptions
}

// Term builds a leaf query from raw text. The text is tokenized and term
// processed exactly as an indexed field is, and may therefore expand into
// several effective query terms (e.g. "zen art motorcycle").
func Term(text string) Query {
	return Query{kind: queryTerm, text: text}
}

// Wildcard builds the sentinel query matching every live document.
func Wildcard() Query {
	return Query{kind: queryWildcard}
}

// Combine builds a composition node joining children under op.
func Combine(op CombineOp, children ...Query) Query {
	return Query{
		kind:     queryComposition,
		children: append([]Query(nil), children...),
		options:  SearchOptions{CombineWith: op},
	}
}

// Or is shorthand for Combine(CombineOR, children...).
func Or(children ...Query) Query { return Combine(CombineOR, children...) }

// And is shorthand for Combine(CombineAND, children...).
func And(children ...Query) Query { return Combine(CombineAND, children...) }

// AndNot is shorthand for Combine(CombineANDNOT, children...). The first
// child is the base set; every later child excludes from it.
func AndNot(children ...Query) Query { return Combine(CombineANDNOT, children...) }

// Options attaches per-node overrides (boost, fuzzy, prefix, fields, ...)
// that cascade to this node's descendants unless they override further.
// Passing a CombineWith of zero leaves a composition node's own operator
// untouched, since merge only overrides fields set to a non-zero value.
func (q Query) Options(opts SearchOptions) Query {
	q.options = q.options.merge(opts)
	return q
}

// candidate is one dictionary term reached while expanding a single query
// term, carrying whichever strategy (exact/prefix/fuzzy) produced the
// higher-scoring match for that dictionary term.
type candidate struct {
	distanceWeight float64
	editDistance   int
}

func candidateRank(c candidate) float64 {
	return c.distanceWeight * editWeight(c.editDistance)
}

func editWeight(editDistance int) float64 {
	return 1 / (1 + 0.333*float64(editDistance))
}

// fuzzyMaxDistance turns a FuzzyFunc result into a concrete edit-distance
// budget: a fraction of the query term's length when f < 1, an absolute
// distance (floored) when f >= 1, always clamped by maxFuzzy.
func fuzzyMaxDistance(f float64, termLen int, maxFuzzy int) int {
	var d int
	if f < 1 {
		d = int(math.Round(f * float64(termLen)))
	} else {
		d = int(math.Floor(f))
	}
	if d > maxFuzzy {
		d = maxFuzzy
	}
	if d < 0 {
		d = 0
	}
	return d
}

// expandCandidates runs exact, prefix, and fuzzy lookup for one query term
// and returns the best-scoring candidate per distinct dictionary term
// reached.
func expandCandidates(store *IndexStore, term string, i int, allTerms []string, opts SearchOptions) map[string]candidate {
	out := make(map[string]candidate)
	consider := func(key string, dist int, weight float64) {
		c := candidate{distanceWeight: weight, editDistance: dist}
		if existing, ok := out[key]; !ok || candidateRank(c) > candidateRank(existing) {
			out[key] = c
		}
	}

	if _, ok := store.terms.Get(term); ok {
		consider(term, 0, 1)
	}
	if opts.Prefix != nil && opts.Prefix(term, i, allTerms) {
		for _, pair := range store.terms.AtPrefix(term) {
			consider(pair.Key, len(pair.Key)-len(term), opts.Weights.Prefix)
		}
	}
	if opts.Fuzzy != nil {
		if f := opts.Fuzzy(term, i, allTerms); f != 0 {
			maxDist := fuzzyMaxDistance(f, len(term), opts.MaxFuzzy)
			for key, match := range store.terms.FuzzyGet(term, maxDist) {
				consider(key, match.Distance, opts.Weights.Fuzzy)
			}
		}
	}
	return out
}

// hitAcc is the per-document accumulator threaded through term expansion
// and combination: running score, the set of distinct pre-expansion query
// terms that contributed to it, and which dictionary terms matched in
// which fields.
type hitAcc struct {
	score             float64
	matchedQueryTerms map[string]struct{}
	matchInfo         map[string]map[string]struct{} // dictionary term -> field names
	isWildcard        bool
}

func newHitAcc() *hitAcc {
	return &hitAcc{
		matchedQueryTerms: make(map[string]struct{}),
		matchInfo:         make(map[string]map[string]struct{}),
	}
}

func (h *hitAcc) recordMatch(dictTerm, fieldName string) {
	fields, ok := h.matchInfo[dictTerm]
	if !ok {
		fields = make(map[string]struct{})
		h.matchInfo[dictTerm] = fields
	}
	fields[fieldName] = struct{}{}
}

func (h *hitAcc) clone() *hitAcc {
	out := &hitAcc{
		score:             h.score,
		isWildcard:        h.isWildcard,
		matchedQueryTerms: make(map[string]struct{}, len(h.matchedQueryTerms)),
		matchInfo:         make(map[string]map[string]struct{}, len(h.matchInfo)),
	}
	for k := range h.matchedQueryTerms {
		out.matchedQueryTerms[k] = struct{}{}
	}
	for term, fields := range h.matchInfo {
		fc := make(map[string]struct{}, len(fields))
		for f := range fields {
			fc[f] = struct{}{}
		}
		out.matchInfo[term] = fc
	}
	return out
}

func mergeInto(dst, src *hitAcc) {
	dst.score += src.score
	dst.isWildcard = dst.isWildcard || src.isWildcard
	for k := range src.matchedQueryTerms {
		dst.matchedQueryTerms[k] = struct{}{}
	}
	for term, fields := range src.matchInfo {
		existing, ok := dst.matchInfo[term]
		if !ok {
			existing = make(map[string]struct{})
			dst.matchInfo[term] = existing
		}
		for f := range fields {
			existing[f] = struct{}{}
		}
	}
}

// combineMaps folds child result maps together per op. See CombineOp.
func combineMaps(op CombineOp, maps []map[uint32]*hitAcc) map[uint32]*hitAcc {
	switch len(maps) {
	case 0:
		return map[uint32]*hitAcc{}
	case 1:
		return maps[0]
	}

	switch op {
	case CombineAND:
		out := make(map[uint32]*hitAcc)
	outer:
		for id, acc := range maps[0] {
			merged := acc.clone()
			for _, other := range maps[1:] {
				o, ok := other[id]
				if !ok {
					continue outer
				}
				mergeInto(merged, o)
			}
			out[id] = merged
		}
		return out

	case CombineANDNOT:
		out := make(map[uint32]*hitAcc)
	baseLoop:
		for id, acc := range maps[0] {
			for _, other := range maps[1:] {
				if _, excluded := other[id]; excluded {
					continue baseLoop
				}
			}
			out[id] = acc.clone()
		}
		return out

	default: // CombineOR
		out := make(map[uint32]*hitAcc)
		for _, m := range maps {
			for id, acc := range m {
				if existing, ok := out[id]; ok {
					mergeInto(existing, acc)
				} else {
					out[id] = acc.clone()
				}
			}
		}
		return out
	}
}

// runQuery evaluates q against store under the effective options inherited
// from ancestors merged with q's own overrides, returning one hitAcc per
// matched live document.
func runQuery(store *IndexStore, q Query, inherited SearchOptions, cfg Config) map[uint32]*hitAcc {
	effective := inherited.merge(q.options)

	switch q.kind {
	case queryWildcard:
		return wildcardHits(store, effective)
	case queryTerm:
		return termHits(store, q.text, effective, cfg)
	case queryComposition:
		maps := make([]map[uint32]*hitAcc, 0, len(q.children))
		for _, child := range q.children {
			maps = append(maps, runQuery(store, child, effective, cfg))
		}
		return combineMaps(effective.CombineWith, maps)
	default:
		return map[uint32]*hitAcc{}
	}
}

func wildcardHits(store *IndexStore, opts SearchOptions) map[uint32]*hitAcc {
	out := make(map[uint32]*hitAcc)
	it := store.liveIDs.Iterator()
	for it.HasNext() {
		id := it.Next()
		acc := newHitAcc()
		acc.isWildcard = true
		if opts.BoostDocument != nil {
			externalID, _ := store.externalIDOf(id)
			acc.score = opts.BoostDocument(externalID, "", store.storedFields[id])
		} else {
			acc.score = 1
		}
		out[id] = acc
	}
	return out
}

// termHits tokenizes and processes text exactly as an indexed field would,
// scores each resulting query term independently, and combines the
// per-term maps under opts.CombineWith — a multi-token query string is
// sugar for a composition over its derived terms.
func termHits(store *IndexStore, text string, opts SearchOptions, cfg Config) map[uint32]*hitAcc {
	tokens := cfg.Tokenize(text, "")
	var terms []string
	for _, tok := range tokens {
		terms = append(terms, cfg.ProcessTerm(tok, "")...)
	}
	if len(terms) == 0 {
		return map[uint32]*hitAcc{}
	}

	fields := opts.Fields
	if len(fields) == 0 {
		fields = store.FieldNames()
	}

	perTerm := make([]map[uint32]*hitAcc, len(terms))
	for i, term := range terms {
		perTerm[i] = scoreQueryTerm(store, term, i, terms, fields, opts)
	}
	return combineMaps(opts.CombineWith, perTerm)
}

func scoreQueryTerm(store *IndexStore, term string, i int, allTerms []string, fields []string, opts SearchOptions) map[uint32]*hitAcc {
	out := make(map[uint32]*hitAcc)
	candidates := expandCandidates(store, term, i, allTerms, opts)
	if len(candidates) == 0 {
		return out
	}

	n := float64(store.documentCount)
	bm25 := opts.BM25

	for dictTerm, cand := range candidates {
		v, ok := store.terms.Get(dictTerm)
		if !ok {
			continue
		}
		entry := v.(*postingEntry)
		df := float64(entry.documentFrequency())
		if df == 0 {
			continue
		}
		idf := math.Log((n - df + 0.5) / (df + 0.5))
		if idf < epsilon {
			idf = epsilon
		}
		ew := editWeight(cand.editDistance)

		for _, fieldName := range fields {
			fieldID, ok := store.FieldID(fieldName)
			if !ok {
				continue
			}
			fm := entry.perField[fieldID]
			if fm == nil {
				continue
			}
			fieldBoost := 1.0
			if b, ok := opts.Boost[fieldName]; ok {
				fieldBoost = b
			}
			for shortID, tf := range fm {
				if !store.isLive(shortID) {
					continue
				}
				length := store.fieldLength[shortID][fieldID]
				avg := store.avgFieldLength[fieldID]
				if avg == 0 {
					avg = 1
				}
				tfNorm := float64(tf)*(bm25.K+1)/(bm25.K+float64(tf)*(1-bm25.B+bm25.B*float64(length)/avg)) + bm25.D
				contribution := idf * tfNorm * fieldBoost * cand.distanceWeight * ew

				acc, ok := out[shortID]
				if !ok {
					acc = newHitAcc()
					out[shortID] = acc
				}
				acc.score += contribution
				acc.recordMatch(dictTerm, fieldName)
			}
		}
	}

	if opts.BoostTerm != nil {
		factor := opts.BoostTerm(term, i, allTerms)
		for _, acc := range out {
			acc.score *= factor
		}
	}
	for _, acc := range out {
		acc.matchedQueryTerms[term] = struct{}{}
	}
	return out
}

// epsilon is the BM25 idf floor that keeps extremely common terms from
// contributing a negative (or zero) score.
const epsilon = 1e-9
