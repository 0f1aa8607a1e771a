package slimsearch

import "errors"

// Sentinel errors, compared with errors.Is. Every error surfaced by this
// package is wrapped around one of these with fmt.Errorf's %w verb, and its
// message is always prefixed "slimsearch: ".
var (
	// ErrMissingID is returned by Add when the document has no id field.
	ErrMissingID = errors.New("slimsearch: document is missing its id field")

	// ErrDuplicateID is returned by Add when the document's id already
	// exists in the index.
	ErrDuplicateID = errors.New("slimsearch: document id already exists")

	// ErrUnknownID is returned by Remove/Discard (and GetStoredFields,
	// where it is swallowed in favor of a bool) when the given id has no
	// indexed document.
	ErrUnknownID = errors.New("slimsearch: unknown document id")

	// ErrMissingField is returned when a query or index declaration names
	// a field that was not declared at construction time.
	ErrMissingField = errors.New("slimsearch: unknown field")

	// ErrIncompatibleVersion is returned by LoadState when the serialized
	// version is not one this package knows how to read.
	ErrIncompatibleVersion = errors.New("slimsearch: incompatible serialization version")

	// ErrInvalidOption is returned by New when the supplied Config is
	// unusable (no fields declared, negative BM25 parameters, etc).
	ErrInvalidOption = errors.New("slimsearch: invalid option")
)

// warningCode identifies a recoverable condition reported through the
// configured logger rather than returned as an error.
type warningCode string

// versionConflict is logged by Remove when a term reconstructed from the
// document being removed is no longer present in the posting list — the
// document has drifted from what was indexed.
const versionConflict warningCode = "version_conflict"
