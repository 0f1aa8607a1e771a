package slimsearch

import "fmt"

// extractedDoc is the result of running a document through the
// extract/tokenize/process pipeline, staged before anything is committed
// to the IndexStore — allocate, then commit, so a failure (MissingId,
// DuplicateId) never leaves a half-indexed document behind.
type extractedDoc struct {
	externalID any
	perField   [][]string // fieldId -> processed terms
	lengths    []int      // fieldId -> tokenizer output length
}

func (idx *Index) extract(doc any) (extractedDoc, error) {
	externalID, ok := idx.cfg.ExtractField(doc, idx.cfg.IDField)
	if !ok || externalID == nil {
		return extractedDoc{}, ErrMissingID
	}

	fieldNames := idx.store.FieldNames()
	out := extractedDoc{
		externalID: externalID,
		perField:   make([][]string, len(fieldNames)),
		lengths:    make([]int, len(fieldNames)),
	}
	for fieldID, fieldName := range fieldNames {
		raw, ok := idx.cfg.ExtractField(doc, fieldName)
		if !ok || raw == nil {
			continue
		}
		text := coerceToString(raw)
		tokens := idx.cfg.Tokenize(text, fieldName)
		out.lengths[fieldID] = len(tokens)

		var terms []string
		for _, tok := range tokens {
			terms = append(terms, idx.cfg.ProcessTerm(tok, fieldName)...)
		}
		out.perField[fieldID] = terms
	}
	return out, nil
}

// Add indexes doc. doc must yield a value for Config.IDField not already
// present in the index, or Add returns ErrMissingID / ErrDuplicateID and
// leaves the index unchanged.
func (idx *Index) Add(doc any) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.add(doc)
}

func (idx *Index) add(doc any) error {
	extracted, err := idx.extract(doc)
	if err != nil {
		return err
	}
	if _, exists := idx.store.idToShort[extracted.externalID]; exists {
		return fmt.Errorf("%w: %v", ErrDuplicateID, extracted.externalID)
	}

	shortID := idx.store.allocateShortID(extracted.externalID)
	for fieldID, terms := range extracted.perField {
		for _, term := range terms {
			idx.store.addPosting(shortID, fieldID, term)
		}
	}
	idx.store.setFieldLengths(shortID, extracted.lengths)
	idx.store.storeFields(shortID, idx.projectStoredFields(doc))
	return nil
}

// AddAll indexes every document in docs, in order, stopping at and
// returning the first error. Documents indexed before the failing one
// remain in the index.
func (idx *Index) AddAll(docs []any) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i, doc := range docs {
		if err := idx.add(doc); err != nil {
			return fmt.Errorf("%w (document %d)", err, i)
		}
	}
	return nil
}

// AddAllAsync runs AddAll on its own goroutine, still serialized by the
// same single logical writer lock as every other mutator — this is
// scheduling sugar, not a concurrent-writer guarantee.
func (idx *Index) AddAllAsync(docs []any) <-chan error {
	out := make(chan error, 1)
	go func() { out <- idx.AddAll(docs) }()
	return out
}

// Remove undoes Add(doc): it re-runs extraction/tokenization/processing
// over doc to reconstruct the term set to subtract, removing each posting
// synchronously (no dirt left for vacuum). doc's id must currently be
// indexed, or Remove returns ErrUnknownID. A reconstructed term missing
// from the postings (doc was mutated after indexing) is logged as
// DocumentChanged rather than failing the call.
func (idx *Index) Remove(doc any) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.remove(doc)
}

func (idx *Index) remove(doc any) error {
	extracted, err := idx.extract(doc)
	if err != nil {
		return err
	}
	shortID, ok := idx.store.idToShort[extracted.externalID]
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownID, extracted.externalID)
	}

	fieldNames := idx.store.FieldNames()
	for fieldID, terms := range extracted.perField {
		for _, term := range terms {
			if !idx.store.removePosting(shortID, fieldID, term) {
				idx.warnf(versionConflict,
					"document %v: term %q no longer present in field %q",
					extracted.externalID, term, fieldNames[fieldID])
			}
		}
	}
	idx.store.forget(shortID)
	return nil
}

// RemoveAll removes every document in docs, in order, stopping at and
// returning the first error.
func (idx *Index) RemoveAll(docs []any) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i, doc := range docs {
		if err := idx.remove(doc); err != nil {
			return fmt.Errorf("%w (document %d)", err, i)
		}
	}
	return nil
}

// Discard soft-deletes the document named by id: its id maps are cleared
// immediately but its postings are left for Vacuum to collect lazily. id
// must currently be indexed, or Discard returns ErrUnknownID. If
// Config.AutoVacuum is enabled and its thresholds are now met, a
// background vacuum is scheduled.
func (idx *Index) Discard(id any) error {
	idx.mu.Lock()
	shortID, ok := idx.store.idToShort[id]
	if !ok {
		idx.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrUnknownID, id)
	}
	idx.store.tombstone(shortID)
	idx.mu.Unlock()

	idx.maybeScheduleVacuum()
	return nil
}

// DiscardAll discards every id in ids, in order, stopping at and returning
// the first error.
func (idx *Index) DiscardAll(ids []any) error {
	for _, id := range ids {
		if err := idx.Discard(id); err != nil {
			return err
		}
	}
	return nil
}

// Replace discards the document currently indexed under doc's id (if any)
// and adds doc in its place. Unlike a bare Discard+Add, replacing a
// document that is not yet indexed is not an error.
func (idx *Index) Replace(doc any) error {
	idx.mu.Lock()
	extracted, err := idx.extract(doc)
	if err != nil {
		idx.mu.Unlock()
		return err
	}
	if shortID, exists := idx.store.idToShort[extracted.externalID]; exists {
		idx.store.tombstone(shortID)
	}
	err = idx.add(doc)
	idx.mu.Unlock()

	idx.maybeScheduleVacuum()
	return err
}
