// Package radixmap implements an ordered, string-keyed associative map backed
// by a radix tree (a compressed trie).
//
// ═══════════════════════════════════════════════════════════════════════════════
// WHAT IS A RADIX TREE?
// ═══════════════════════════════════════════════════════════════════════════════
// A radix tree is a trie where chains of single-child nodes are collapsed into
// one edge labeled with a whole substring instead of one character per edge.
//
// Example: storing "test", "team", "toast" produces:
//
//	root
//	 └─ "t"
//	     ├─ "e"
//	     │   ├─ "st"   → "test"
//	     │   └─ "am"   → "team"
//	     └─ "oast" → "toast"
//
// Unlike a plain hash map, a radix tree keeps keys in sorted order and makes
// prefix enumeration and bounded edit-distance search tractable: both walk a
// subtree rather than every key in the map.
// ═══════════════════════════════════════════════════════════════════════════════
package radixmap

import "strings"

// edge is a labeled transition to a child node. Labels are always non-empty;
// at most one edge leaves a node for any given first byte, so edges are
// addressed directly by that byte.
type edge struct {
	label  string
	target *node
}

// node is a single vertex of the tree. A node either carries a value (it is
// the terminus of some stored key) or has at least two children — a lone
// child is always absorbed into its parent's edge label by Delete.
type node struct {
	value    any
	hasValue bool
	edges    [256]*edge
	numEdges int
}

// RadixMap is an ordered map from string keys to arbitrary values.
//
// The zero value is not usable; construct one with New.
type RadixMap struct {
	root *node
}

// New returns an empty RadixMap.
func New() *RadixMap {
	return &RadixMap{root: &node{}}
}

// Pair is a (key, value) result from iteration.
type Pair struct {
	Key   string
	Value any
}

// Get returns the value stored at key, if any.
func (m *RadixMap) Get(key string) (any, bool) {
	return m.root.get(key)
}

func (n *node) get(key string) (any, bool) {
	if key == "" {
		return n.value, n.hasValue
	}
	e := n.edges[key[0]]
	if e == nil || !strings.HasPrefix(key, e.label) {
		return nil, false
	}
	return e.target.get(key[len(e.label):])
}

// Has reports whether key is present.
func (m *RadixMap) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set installs value at key, overwriting any existing value.
func (m *RadixMap) Set(key string, value any) {
	m.root.insert(key, value)
}

func (n *node) insert(key string, value any) {
	if key == "" {
		n.value = value
		n.hasValue = true
		return
	}

	c := key[0]
	e := n.edges[c]
	if e == nil {
		n.edges[c] = &edge{label: key, target: &node{value: value, hasValue: true}}
		n.numEdges++
		return
	}

	cp := commonPrefixLen(key, e.label)
	if cp == len(e.label) {
		// The whole edge is consumed; keep descending with the remainder.
		e.target.insert(key[cp:], value)
		return
	}

	// The key diverges partway through the edge: split it.
	split := &node{}
	split.attach(e.label[cp], &edge{label: e.label[cp:], target: e.target})
	if cp == len(key) {
		split.value = value
		split.hasValue = true
	} else {
		split.attach(key[cp], &edge{label: key[cp:], target: &node{value: value, hasValue: true}})
	}
	n.edges[c] = &edge{label: key[:cp], target: split}
}

func (n *node) attach(firstByte byte, e *edge) {
	n.edges[firstByte] = e
	n.numEdges++
}

// Delete removes key, reports whether it was present. Deletion restores the
// no-lone-child invariant by absorbing a surviving only-child edge into its
// parent, and by pruning edges that lead to an empty, valueless node.
func (m *RadixMap) Delete(key string) bool {
	return m.root.delete(key)
}

func (n *node) delete(key string) bool {
	if key == "" {
		if !n.hasValue {
			return false
		}
		n.hasValue = false
		n.value = nil
		return true
	}

	c := key[0]
	e := n.edges[c]
	if e == nil || !strings.HasPrefix(key, e.label) {
		return false
	}
	if !e.target.delete(key[len(e.label):]) {
		return false
	}

	child := e.target
	switch {
	case !child.hasValue && child.numEdges == 0:
		n.edges[c] = nil
		n.numEdges--
	case !child.hasValue && child.numEdges == 1:
		var only *edge
		for _, ce := range child.edges {
			if ce != nil {
				only = ce
				break
			}
		}
		n.edges[c] = &edge{label: e.label + only.label, target: only.target}
	}
	return true
}

// Fetch returns the value at key if present, otherwise installs and returns
// factory()'s result.
func (m *RadixMap) Fetch(key string, factory func() any) any {
	if v, ok := m.Get(key); ok {
		return v
	}
	v := factory()
	m.Set(key, v)
	return v
}

// Len returns the number of stored keys. It walks the whole tree, so callers
// doing this often should cache the result themselves.
func (m *RadixMap) Len() int {
	n := 0
	m.root.collect("", func(Pair) { n++ })
	return n
}

// Keys returns every stored key in lexicographic order.
func (m *RadixMap) Keys() []string {
	var out []string
	m.root.collect("", func(p Pair) { out = append(out, p.Key) })
	return out
}

// Iterate returns every (key, value) pair in lexicographic key order.
func (m *RadixMap) Iterate() []Pair {
	var out []Pair
	m.root.collect("", func(p Pair) { out = append(out, p) })
	return out
}

func (n *node) collect(prefix string, visit func(Pair)) {
	if n.hasValue {
		visit(Pair{Key: prefix, Value: n.value})
	}
	// edges is indexed by first byte, so a forward scan visits children in
	// ascending byte order — exactly lexicographic order for the keys below.
	for _, e := range n.edges {
		if e != nil {
			e.target.collect(prefix+e.label, visit)
		}
	}
}

// AtPrefix returns every (key, value) pair whose key begins with prefix, in
// lexicographic order. Cost is proportional to the size of the matched
// subtree plus the depth needed to locate it.
func (m *RadixMap) AtPrefix(prefix string) []Pair {
	target, base, ok := m.root.locate(prefix, "")
	if !ok {
		return nil
	}
	var out []Pair
	target.collect(base, func(p Pair) { out = append(out, p) })
	return out
}

// locate descends toward prefix (given the accumulated key so far in acc),
// returning the node whose subtree contains exactly the keys starting with
// prefix, and the full key corresponding to that node.
func (n *node) locate(remaining, acc string) (*node, string, bool) {
	if remaining == "" {
		return n, acc, true
	}
	e := n.edges[remaining[0]]
	if e == nil {
		return nil, "", false
	}
	if strings.HasPrefix(e.label, remaining) {
		return e.target, acc + e.label, true
	}
	if strings.HasPrefix(remaining, e.label) {
		return e.target.locate(remaining[len(e.label):], acc+e.label)
	}
	return nil, "", false
}

// FuzzyMatch is one result of FuzzyGet: the value stored under the matched
// key, and its Levenshtein distance from the query term.
type FuzzyMatch struct {
	Value    any
	Distance int
}

// FuzzyGet returns every stored key within maxDistance Levenshtein edits of
// term (substitution, insertion, deletion, each cost 1), keyed by the
// matched key.
//
// Implementation: a DFS over the trie carrying a single running
// edit-distance row (the classic trie/Levenshtein-automaton technique). Each
// edge is walked one byte at a time, extending the row by one column; at the
// end of each edge the subtree below it is pruned if the row's minimum
// exceeds maxDistance, since no extension of the current prefix can then land
// within budget. The row
// produced for a given prefix is exactly what every key in that prefix's
// subtree extends from, so it is computed once and passed down, never
// recomputed per key.
func (m *RadixMap) FuzzyGet(term string, maxDistance int) map[string]FuzzyMatch {
	out := make(map[string]FuzzyMatch)
	firstRow := make([]int, len(term)+1)
	for i := range firstRow {
		firstRow[i] = i
	}
	m.root.fuzzyCollect("", term, firstRow, maxDistance, out)
	return out
}

func (n *node) fuzzyCollect(prefix, term string, row []int, maxDistance int, out map[string]FuzzyMatch) {
	if n.hasValue {
		if d := row[len(row)-1]; d <= maxDistance {
			if existing, ok := out[prefix]; !ok || d < existing.Distance {
				out[prefix] = FuzzyMatch{Value: n.value, Distance: d}
			}
		}
	}

	for _, e := range n.edges {
		if e == nil {
			continue
		}
		childPrefix := prefix
		childRow := row
		for i := 0; i < len(e.label); i++ {
			childRow = nextLevenshteinRow(childRow, term, e.label[i])
			childPrefix += string(e.label[i])
		}
		if minInRow(childRow) <= maxDistance {
			e.target.fuzzyCollect(childPrefix, term, childRow, maxDistance, out)
		}
	}
}

// nextLevenshteinRow extends the previous row of a Levenshtein DP table by
// one column, for a candidate string that continues with the byte c.
func nextLevenshteinRow(prev []int, term string, c byte) []int {
	row := make([]int, len(prev))
	row[0] = prev[0] + 1
	for j := 1; j < len(row); j++ {
		insertCost := row[j-1] + 1
		deleteCost := prev[j] + 1
		substituteCost := prev[j-1]
		if term[j-1] != c {
			substituteCost++
		}
		row[j] = min3(insertCost, deleteCost, substituteCost)
	}
	return row
}

func minInRow(row []int) int {
	m := row[0]
	for _, v := range row[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func commonPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
