package slimsearch

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const serializationVersion = 2

// termPosting is one entry of the serialized index: a dictionary term
// paired with its postings, encoded as the two-element JSON array
// [term, {fieldId: {shortId: freq}}] rather than an object, so that
// iteration order (and therefore round-trip byte stability) survives.
type termPosting struct {
	term     string
	postings map[string]map[string]int // fieldId -> shortId -> freq
}

func (tp termPosting) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{tp.term, tp.postings})
}

func (tp *termPosting) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &tp.term); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &tp.postings)
}

// serializedState is the version-2 on-the-wire schema.
type serializedState struct {
	DocumentCount      int                        `json:"documentCount"`
	NextID             uint32                     `json:"nextId"`
	DocumentIDs        map[string]any             `json:"documentIds"`
	FieldIDs           map[string]int             `json:"fieldIds"`
	FieldLength        map[string][]int           `json:"fieldLength"`
	AverageFieldLength []float64                  `json:"averageFieldLength"`
	StoredFields       map[string]map[string]any  `json:"storedFields"`
	DirtCount          int                        `json:"dirtCount"`
	Version            int                        `json:"version"`
	Index              []termPosting              `json:"index"`
}

// MarshalState serializes the index to the version-2 JSON schema.
func (idx *Index) MarshalState() ([]byte, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	state := serializedState{
		DocumentCount:      idx.store.documentCount,
		NextID:             idx.store.nextID,
		DirtCount:          idx.store.dirtCount,
		Version:            serializationVersion,
		DocumentIDs:        make(map[string]any, len(idx.store.shortToID)),
		FieldIDs:           make(map[string]int, len(idx.store.fieldIndex)),
		FieldLength:        make(map[string][]int, len(idx.store.fieldLength)),
		AverageFieldLength: append([]float64(nil), idx.store.avgFieldLength...),
		StoredFields:       make(map[string]map[string]any, len(idx.store.storedFields)),
	}

	for shortID, externalID := range idx.store.shortToID {
		state.DocumentIDs[formatShortID(shortID)] = externalID
	}
	for name, fieldID := range idx.store.fieldIndex {
		state.FieldIDs[name] = fieldID
	}
	for shortID, lengths := range idx.store.fieldLength {
		state.FieldLength[formatShortID(shortID)] = lengths
	}
	for shortID, fields := range idx.store.storedFields {
		state.StoredFields[formatShortID(shortID)] = fields
	}

	for _, pair := range idx.store.terms.Iterate() {
		entry := pair.Value.(*postingEntry)
		postings := make(map[string]map[string]int)
		for fieldID, fm := range entry.perField {
			if len(fm) == 0 {
				continue
			}
			inner := make(map[string]int, len(fm))
			for shortID, freq := range fm {
				inner[formatShortID(shortID)] = freq
			}
			postings[strconv.Itoa(fieldID)] = inner
		}
		state.Index = append(state.Index, termPosting{term: pair.Key, postings: postings})
	}

	return json.Marshal(state)
}

func formatShortID(shortID uint32) string {
	return strconv.FormatUint(uint64(shortID), 10)
}

func parseShortID(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	return uint32(v), err
}

// LoadState reconstructs an Index from data previously produced by
// MarshalState. cfg supplies the collaborator hooks and search defaults;
// its Fields is ignored in favor of the serialized fieldIds, since the
// field declaration order is part of the saved state. A version other
// than 1 or 2 fails with ErrIncompatibleVersion; version 1 is accepted
// through a compatibility path that rebuilds postings but cannot recover
// dirt accounting, so dirtCount is reset to 0 (a host should Vacuum
// afterward if it cares about tight posting cleanup).
func LoadState(data []byte, cfg Config) (*Index, error) {
	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleVersion, err)
	}
	switch probe.Version {
	case 2:
		return loadState(data, cfg, false)
	case 1:
		return loadState(data, cfg, true)
	default:
		return nil, fmt.Errorf("%w: version %d", ErrIncompatibleVersion, probe.Version)
	}
}

func loadState(data []byte, cfg Config, resetDirt bool) (*Index, error) {
	var state serializedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompatibleVersion, err)
	}

	fieldNames := make([]string, len(state.FieldIDs))
	for name, fieldID := range state.FieldIDs {
		if fieldID < 0 || fieldID >= len(fieldNames) {
			return nil, fmt.Errorf("%w: fieldId %d out of range for field %q", ErrIncompatibleVersion, fieldID, name)
		}
		fieldNames[fieldID] = name
	}

	cfg.Fields = fieldNames
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	idx := &Index{cfg: cfg, store: newIndexStore(fieldNames)}
	idx.store.documentCount = state.DocumentCount
	idx.store.nextID = state.NextID
	idx.store.dirtCount = state.DirtCount
	if resetDirt {
		idx.store.dirtCount = 0
	}

	for shortIDStr, externalID := range state.DocumentIDs {
		shortID, err := parseShortID(shortIDStr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIncompatibleVersion, err)
		}
		idx.store.idToShort[externalID] = shortID
		idx.store.shortToID[shortID] = externalID
		idx.store.liveIDs.Add(shortID)
	}
	for shortIDStr, lengths := range state.FieldLength {
		shortID, err := parseShortID(shortIDStr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIncompatibleVersion, err)
		}
		idx.store.fieldLength[shortID] = lengths
	}
	if len(state.AverageFieldLength) == len(fieldNames) {
		idx.store.avgFieldLength = append([]float64(nil), state.AverageFieldLength...)
	}
	for shortIDStr, fields := range state.StoredFields {
		shortID, err := parseShortID(shortIDStr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIncompatibleVersion, err)
		}
		idx.store.storedFields[shortID] = fields
	}

	for _, tp := range state.Index {
		entry := newPostingEntry(len(fieldNames))
		for fieldIDStr, inner := range tp.postings {
			fieldID, err := strconv.Atoi(fieldIDStr)
			if err != nil || fieldID < 0 || fieldID >= len(fieldNames) {
				return nil, fmt.Errorf("%w: invalid fieldId %q", ErrIncompatibleVersion, fieldIDStr)
			}
			fm := make(map[uint32]int, len(inner))
			for shortIDStr, freq := range inner {
				shortID, err := parseShortID(shortIDStr)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrIncompatibleVersion, err)
				}
				fm[shortID] = freq
			}
			entry.perField[fieldID] = fm
		}
		idx.store.terms.Set(tp.term, entry)
	}

	return idx, nil
}

// LoadResult is the value delivered on LoadStateAsync's channel.
type LoadResult struct {
	Index *Index
	Err   error
}

// LoadStateAsync runs LoadState on its own goroutine.
func LoadStateAsync(data []byte, cfg Config) <-chan LoadResult {
	out := make(chan LoadResult, 1)
	go func() {
		idx, err := LoadState(data, cfg)
		out <- LoadResult{Index: idx, Err: err}
	}()
	return out
}
