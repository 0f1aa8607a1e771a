// Package slimsearch is an in-memory full-text search engine with BM25+
// ranking over arbitrary user-supplied records.
//
// ═══════════════════════════════════════════════════════════════════════════════
// WHAT IS AN INVERTED INDEX?
// ═══════════════════════════════════════════════════════════════════════════════
// An inverted index is like the index at the back of a book, but for search
// engines: instead of "page → words on it" it stores "word → pages (and how
// often) it appears on". Here a "page" is a field of one document.
//
//	term   → fieldId → shortId → frequency
//	"quick" → title   → 1        → 1
//	       → body    → 1        → 2
//	                 → 3        → 1
//
// This lets us answer "which documents contain quick" without scanning every
// document, and "how often" without re-counting, in time proportional to the
// number of matches rather than the size of the corpus.
// ═══════════════════════════════════════════════════════════════════════════════
package slimsearch

import (
	"github.com/RoaringBitmap/roaring"

	"github.com/wizenheimer/slimsearch/internal/radixmap"
)

// postingEntry is the value stored in the term dictionary (radixmap.RadixMap)
// for one term: a dense-by-fieldId slice of shortId → term-frequency maps.
// A nil element means the term has no postings in that field.
type postingEntry struct {
	perField []map[uint32]int
}

func newPostingEntry(numFields int) *postingEntry {
	return &postingEntry{perField: make([]map[uint32]int, numFields)}
}

// documentFrequency returns the number of distinct documents carrying this
// term in any field — the df used by the BM25+ idf term.
func (pe *postingEntry) documentFrequency() int {
	seen := make(map[uint32]struct{})
	for _, fm := range pe.perField {
		for id := range fm {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

func (pe *postingEntry) empty() bool {
	for _, fm := range pe.perField {
		if len(fm) > 0 {
			return false
		}
	}
	return true
}

// IndexStore holds the data model described in the package's design: the
// term dictionary, per-document field lengths and stored projections, the
// bidirectional id maps, and the dirt/vacuum bookkeeping. Every method here
// assumes its caller already holds whatever lock serializes mutations
// (Index.mu); IndexStore itself performs no locking.
type IndexStore struct {
	terms *radixmap.RadixMap // term -> *postingEntry

	fieldNames []string
	fieldIndex map[string]int

	idToShort map[any]uint32
	shortToID map[uint32]any

	fieldLength    map[uint32][]int // shortId -> per-field token count
	avgFieldLength []float64        // per-field running mean over live docs

	storedFields map[uint32]map[string]any

	documentCount int
	dirtCount     int
	nextID        uint32

	// liveIDs mirrors shortToID's key set as a roaring bitmap: it backs
	// isLive (used by scoring and by vacuum's liveness test) and wildcard
	// enumeration.
	liveIDs *roaring.Bitmap
}

func newIndexStore(fields []string) *IndexStore {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[f] = i
	}
	return &IndexStore{
		terms:          radixmap.New(),
		fieldNames:     append([]string(nil), fields...),
		fieldIndex:     index,
		idToShort:      make(map[any]uint32),
		shortToID:      make(map[uint32]any),
		fieldLength:    make(map[uint32][]int),
		avgFieldLength: make([]float64, len(fields)),
		storedFields:   make(map[uint32]map[string]any),
		liveIDs:        roaring.NewBitmap(),
	}
}

// FieldID returns the declaration-order index of a field name.
func (s *IndexStore) FieldID(name string) (int, bool) {
	id, ok := s.fieldIndex[name]
	return id, ok
}

// FieldNames returns the frozen, declaration-ordered field list.
func (s *IndexStore) FieldNames() []string {
	return s.fieldNames
}

// dirtFactor is the fraction of "conceptually present" documents that are
// actually tombstones awaiting vacuum.
func (s *IndexStore) dirtFactor() float64 {
	return float64(s.dirtCount) / (1 + float64(s.documentCount) + float64(s.dirtCount))
}

// allocateShortID installs both id maps for a fresh document and returns its
// newly assigned short-id, with a zero-filled field-length row. It does not
// touch postings, the average field lengths, or stored fields — callers
// commit those separately once allocation has succeeded, per the "allocate,
// then commit" ingest order.
func (s *IndexStore) allocateShortID(externalID any) uint32 {
	id := s.nextID
	s.nextID++
	s.idToShort[externalID] = id
	s.shortToID[id] = externalID
	s.liveIDs.Add(id)
	s.documentCount++
	s.fieldLength[id] = make([]int, len(s.fieldNames))
	return id
}

// addPosting records one occurrence of term in fieldId of shortId.
func (s *IndexStore) addPosting(shortID uint32, fieldID int, term string) {
	entry, _ := s.terms.Fetch(term, func() any { return newPostingEntry(len(s.fieldNames)) }).(*postingEntry)
	if entry.perField[fieldID] == nil {
		entry.perField[fieldID] = make(map[uint32]int)
	}
	entry.perField[fieldID][shortID]++
}

// removePosting undoes one addPosting. If the term or the specific
// (term, field, doc) tuple is absent, it reports found=false so the caller
// can emit a DocumentChanged warning instead of failing outright.
func (s *IndexStore) removePosting(shortID uint32, fieldID int, term string) (found bool) {
	v, ok := s.terms.Get(term)
	if !ok {
		return false
	}
	entry := v.(*postingEntry)
	fm := entry.perField[fieldID]
	if fm == nil {
		return false
	}
	if _, ok := fm[shortID]; !ok {
		return false
	}
	fm[shortID]--
	if fm[shortID] <= 0 {
		delete(fm, shortID)
	}
	if len(fm) == 0 {
		entry.perField[fieldID] = nil
	}
	if entry.empty() {
		s.terms.Delete(term)
	}
	return true
}

// setFieldLengths records the per-field token counts for a newly allocated
// document and folds them into the running per-field averages.
func (s *IndexStore) setFieldLengths(shortID uint32, lengths []int) {
	s.fieldLength[shortID] = lengths
	n := float64(s.documentCount)
	for f, length := range lengths {
		s.avgFieldLength[f] += (float64(length) - s.avgFieldLength[f]) / n
	}
}

// storeFields installs the caller-selected projection of a document,
// retrievable alongside future search hits.
func (s *IndexStore) storeFields(shortID uint32, fields map[string]any) {
	s.storedFields[shortID] = fields
}

// tombstone soft-deletes shortId: both id maps and its field-length row are
// removed immediately, the document no longer counts toward documentCount,
// but its postings are left untouched for Vacuum to collect later.
func (s *IndexStore) tombstone(shortID uint32) {
	externalID, ok := s.shortToID[shortID]
	if !ok {
		return
	}
	lengths := s.fieldLength[shortID]
	n := float64(s.documentCount)
	if n > 1 {
		for f, length := range lengths {
			s.avgFieldLength[f] -= (float64(length) - s.avgFieldLength[f]) / (n - 1)
		}
	}

	delete(s.idToShort, externalID)
	delete(s.shortToID, shortID)
	delete(s.fieldLength, shortID)
	delete(s.storedFields, shortID)
	s.liveIDs.Remove(shortID)
	s.documentCount--
	s.dirtCount++
}

// forget completes a synchronous remove: like tombstone it retires the id
// maps and field-length row and corrects avgFieldLength, but since the
// caller has already zeroed out every posting for shortId directly, there
// is no dirt left for vacuum to collect and dirtCount is not incremented.
func (s *IndexStore) forget(shortID uint32) {
	externalID, ok := s.shortToID[shortID]
	if !ok {
		return
	}
	lengths := s.fieldLength[shortID]
	n := float64(s.documentCount)
	if n > 1 {
		for f, length := range lengths {
			s.avgFieldLength[f] -= (float64(length) - s.avgFieldLength[f]) / (n - 1)
		}
	}

	delete(s.idToShort, externalID)
	delete(s.shortToID, shortID)
	delete(s.fieldLength, shortID)
	delete(s.storedFields, shortID)
	s.liveIDs.Remove(shortID)
	s.documentCount--
}

// isLive reports whether shortId still names a current document (as
// opposed to a tombstone awaiting vacuum).
func (s *IndexStore) isLive(shortID uint32) bool {
	return s.liveIDs.Contains(shortID)
}

// externalIDOf resolves a short-id back to the external id the caller
// indexed it under.
func (s *IndexStore) externalIDOf(shortID uint32) (any, bool) {
	id, ok := s.shortToID[shortID]
	return id, ok
}

// recomputeAvgFieldLength rescans fieldLength to eliminate the incremental
// drift that setFieldLengths/tombstone's running-mean updates accumulate
// over many mutations. Vacuum calls this once per completed pass.
func (s *IndexStore) recomputeAvgFieldLength() {
	sums := make([]float64, len(s.fieldNames))
	for _, lengths := range s.fieldLength {
		for f, length := range lengths {
			sums[f] += float64(length)
		}
	}
	n := float64(len(s.fieldLength))
	if n == 0 {
		for f := range sums {
			s.avgFieldLength[f] = 0
		}
		return
	}
	for f, sum := range sums {
		s.avgFieldLength[f] = sum / n
	}
}

// sweepTerm drops every posting under term that refers to a shortId no
// longer in liveIDs, pruning empty field maps and — if the term ends up
// with no postings in any field — the term itself. Used by Vacuum.
func (s *IndexStore) sweepTerm(term string) {
	v, ok := s.terms.Get(term)
	if !ok {
		return
	}
	entry := v.(*postingEntry)
	for f, fm := range entry.perField {
		if fm == nil {
			continue
		}
		for shortID := range fm {
			if !s.isLive(shortID) {
				delete(fm, shortID)
			}
		}
		if len(fm) == 0 {
			entry.perField[f] = nil
		}
	}
	if entry.empty() {
		s.terms.Delete(term)
	}
}
