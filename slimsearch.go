package slimsearch

import (
	"fmt"
	"sync"
)

// Index is a single in-memory full-text search index. The zero value is not
// usable; construct one with New.
//
// Concurrency model: every public mutator (Add, Remove, Discard, Replace)
// and Search complete synchronously under a single mutex — there is exactly
// one logical writer, matching the single-threaded-cooperative model this
// package follows. The only suspension point is Vacuum, which runs on its
// own goroutine and yields the mutex between batches so interleaved reads
// and writes stay responsive; it never holds the lock for a whole pass.
type Index struct {
	mu    sync.Mutex
	cfg   Config
	store *IndexStore

	vacuumMu      sync.Mutex
	vacuumRunning bool
	vacuumQueued  *vacuumRequest
}

type vacuumRequest struct {
	conditions vacuumConditions
	done       []chan struct{}
}

// New constructs an Index from cfg. Config.Fields must declare at least one
// field, and BM25 parameters (if set) must be non-negative, or New returns
// ErrInvalidOption.
func New(cfg Config) (*Index, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	return &Index{
		cfg:   cfg,
		store: newIndexStore(cfg.Fields),
	}, nil
}

// Has reports whether id names a currently indexed (live) document.
func (idx *Index) Has(id any) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, ok := idx.store.idToShort[id]
	return ok
}

// GetStoredFields returns the stored-field projection for id, or
// (nil, false) if id is not currently indexed. Unlike Remove/Discard, an
// unknown id is not an error here — spec calls this out explicitly.
func (idx *Index) GetStoredFields(id any) (map[string]any, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	shortID, ok := idx.store.idToShort[id]
	if !ok {
		return nil, false
	}
	return idx.store.storedFields[shortID], true
}

// DocumentCount returns the number of live (non-tombstoned) documents.
func (idx *Index) DocumentCount() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.store.documentCount
}

// DirtCount returns the number of tombstoned documents whose postings have
// not yet been swept by Vacuum.
func (idx *Index) DirtCount() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.store.dirtCount
}

func (idx *Index) projectStoredFields(doc any) map[string]any {
	if len(idx.cfg.StoreFields) == 0 {
		return nil
	}
	out := make(map[string]any, len(idx.cfg.StoreFields))
	for _, field := range idx.cfg.StoreFields {
		if v, ok := idx.cfg.ExtractField(doc, field); ok {
			out[field] = v
		}
	}
	return out
}

func (idx *Index) warnf(code warningCode, format string, args ...any) {
	idx.cfg.Logger.Warn(fmt.Sprintf(format, args...), "code", string(code))
}
