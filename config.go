package slimsearch

import (
	"fmt"
	"log/slog"
)

// ExtractFieldFunc pulls the raw value of a named field out of a
// caller-supplied document. It returns ok=false (or a nil value) when the
// field is absent, which Add treats as "skip this field" for ordinary
// fields and as MissingID for the id field.
//
// The default, DefaultExtractField, treats doc as a map[string]any.
type ExtractFieldFunc func(doc any, field string) (value any, ok bool)

// TokenizeFunc splits text into tokens. fieldName is "" when tokenizing a
// query string rather than an indexed field, mirroring the host hook in the
// design this package follows, where fieldName is optional at query time.
type TokenizeFunc func(text string, fieldName string) []string

// ProcessTermFunc turns one raw token into zero or more index/query terms.
// A nil or empty result drops the token; multiple results fan a single
// token out into several terms.
type ProcessTermFunc func(term string, fieldName string) []string

// Weights controls how much a prefix or fuzzy candidate is discounted
// relative to an exact match (weight 1) during scoring.
type Weights struct {
	Prefix float64
	Fuzzy  float64
}

// DefaultWeights mirrors the values used throughout this package's tests
// and examples.
func DefaultWeights() Weights {
	return Weights{Prefix: 0.375, Fuzzy: 0.45}
}

// BM25Params tunes the BM25+ scoring formula: term-frequency saturation
// (K), length normalization (B), and the BM25+ lower-bound term (D) that
// keeps long documents from ever scoring zero.
type BM25Params struct {
	K float64
	B float64
	D float64
}

// DefaultBM25Params returns the conventional BM25 parameters plus a small
// BM25+ delta.
func DefaultBM25Params() BM25Params {
	return BM25Params{K: 1.2, B: 0.75, D: 0.5}
}

func (p BM25Params) validate() error {
	if p.K < 0 || p.B < 0 || p.D < 0 {
		return fmt.Errorf("%w: BM25 parameters must be non-negative, got %+v", ErrInvalidOption, p)
	}
	return nil
}

// FilterFunc discards a hit from a result set when it returns false.
type FilterFunc func(hit *SearchHit) bool

// BoostDocumentFunc scales a document's score by external id, the matched
// term that triggered evaluation, and its stored fields. A zero return
// drops the document from the result set entirely.
type BoostDocumentFunc func(id any, term string, stored map[string]any) float64

// BoostTermFunc scales the contribution of one query term (by its text and
// position within the tokenized query) before it is combined with others.
type BoostTermFunc func(term string, index int, terms []string) float64

// PrefixFunc decides whether a query term, at the given position, should
// also be expanded via prefix lookup.
type PrefixFunc func(term string, index int, terms []string) bool

// FuzzyFunc returns the fuzzy-matching factor for a query term: 0 disables
// fuzzy expansion for that term; a value in (0,1) is a fraction of the
// term's length (rounded) for the maximum edit distance, and a value >= 1
// is used directly (floored) as the maximum edit distance, both clamped by
// MaxFuzzy.
type FuzzyFunc func(term string, index int, terms []string) float64

// FixedPrefix returns a PrefixFunc that always answers enabled.
func FixedPrefix(enabled bool) PrefixFunc {
	return func(string, int, []string) bool { return enabled }
}

// FixedFuzzy returns a FuzzyFunc that always answers factor.
func FixedFuzzy(factor float64) FuzzyFunc {
	return func(string, int, []string) float64 { return factor }
}

// SearchOptions controls a single search, autosuggest, or query-composition
// node. Every field is inherited from the parent scope (Config's defaults
// at the root) unless explicitly overridden, matching the cascading option
// semantics of the query grammar.
type SearchOptions struct {
	Fields        []string
	Boost         map[string]float64
	Prefix        PrefixFunc
	Fuzzy         FuzzyFunc
	MaxFuzzy      int
	CombineWith   CombineOp
	Filter        FilterFunc
	BoostDocument BoostDocumentFunc
	BoostTerm     BoostTermFunc
	Weights       Weights
	BM25          BM25Params
}

// merge returns the result of layering override on top of base: any field
// left at its zero value in override falls back to base's value.
func (base SearchOptions) merge(override SearchOptions) SearchOptions {
	out := base
	if override.Fields != nil {
		out.Fields = override.Fields
	}
	if override.Boost != nil {
		out.Boost = override.Boost
	}
	if override.Prefix != nil {
		out.Prefix = override.Prefix
	}
	if override.Fuzzy != nil {
		out.Fuzzy = override.Fuzzy
	}
	if override.MaxFuzzy != 0 {
		out.MaxFuzzy = override.MaxFuzzy
	}
	if override.CombineWith != 0 {
		out.CombineWith = override.CombineWith
	}
	if override.Filter != nil {
		out.Filter = override.Filter
	}
	if override.BoostDocument != nil {
		out.BoostDocument = override.BoostDocument
	}
	if override.BoostTerm != nil {
		out.BoostTerm = override.BoostTerm
	}
	if override.Weights != (Weights{}) {
		out.Weights = override.Weights
	}
	if override.BM25 != (BM25Params{}) {
		out.BM25 = override.BM25
	}
	return out
}

// AutoVacuumOptions configures automatic background compaction triggered by
// Discard. See Vacuum for the scheduling and pass semantics.
type AutoVacuumOptions struct {
	Enabled       bool
	MinDirtCount  int
	MinDirtFactor float64
	BatchSize     int
	BatchWait     int // milliseconds
}

// DefaultAutoVacuumOptions returns the thresholds used when Config does not
// override them.
func DefaultAutoVacuumOptions() AutoVacuumOptions {
	return AutoVacuumOptions{
		Enabled:       true,
		MinDirtCount:  20,
		MinDirtFactor: 0.1,
		BatchSize:     1000,
		BatchWait:     10,
	}
}

// Config configures a new Index. Fields is the only required setting.
type Config struct {
	// Fields declares, in order, the document fields that are indexed.
	// Field ids are assigned by this order and frozen for the life of the
	// Index.
	Fields []string

	// StoreFields lists the subset of each document retained verbatim
	// alongside search hits (the id is always implicitly recoverable and
	// need not be listed).
	StoreFields []string

	// IDField names the field holding each document's external id.
	// Defaults to "id".
	IDField string

	ExtractField ExtractFieldFunc
	Tokenize     TokenizeFunc
	ProcessTerm  ProcessTermFunc

	SearchOptions SearchOptions
	AutoVacuum    AutoVacuumOptions
	BM25          BM25Params

	// Logger receives warnings (e.g. DocumentChanged) and debug traces.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.IDField == "" {
		c.IDField = "id"
	}
	if c.ExtractField == nil {
		c.ExtractField = DefaultExtractField
	}
	if c.Tokenize == nil {
		c.Tokenize = DefaultTokenize
	}
	if c.ProcessTerm == nil {
		c.ProcessTerm = DefaultProcessTerm
	}
	if c.BM25 == (BM25Params{}) {
		c.BM25 = DefaultBM25Params()
	}
	if c.SearchOptions.Weights == (Weights{}) {
		c.SearchOptions.Weights = DefaultWeights()
	}
	if c.SearchOptions.MaxFuzzy == 0 {
		c.SearchOptions.MaxFuzzy = 6
	}
	if c.SearchOptions.Prefix == nil {
		c.SearchOptions.Prefix = FixedPrefix(false)
	}
	if c.SearchOptions.Fuzzy == nil {
		c.SearchOptions.Fuzzy = FixedFuzzy(0)
	}
	if c.SearchOptions.CombineWith == 0 {
		c.SearchOptions.CombineWith = CombineOR
	}
	if c.SearchOptions.BM25 == (BM25Params{}) {
		c.SearchOptions.BM25 = c.BM25
	}
	if c.AutoVacuum == (AutoVacuumOptions{}) {
		c.AutoVacuum = DefaultAutoVacuumOptions()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

func (c Config) validate() error {
	if len(c.Fields) == 0 {
		return fmt.Errorf("%w: Config.Fields must declare at least one field", ErrInvalidOption)
	}
	seen := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if seen[f] {
			return fmt.Errorf("%w: field %q declared twice", ErrInvalidOption, f)
		}
		seen[f] = true
	}
	for _, f := range c.StoreFields {
		if !seen[f] {
			return fmt.Errorf("%w: StoreFields names undeclared field %q", ErrMissingField, f)
		}
	}
	return c.BM25.validate()
}
