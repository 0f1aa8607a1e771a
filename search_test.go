package slimsearch

import "testing"

// ═══════════════════════════════════════════════════════════════════════════════
// END-TO-END SEARCH SCENARIOS
//
// Fixture documents, used throughout:
//
//	D1 = {id:1, title:"Moby Dick",                     text:"Call me Ishmael"}
//	D2 = {id:2, title:"Zen and the Art of Motorcycle",  text:"I can see"}
//	D3 = {id:3, title:"Neuromancer",                    text:"The sky above the port"}
//	D4 = {id:4, title:"Zen and the Art of Archery",     text:"At first sight"}
//
// ═══════════════════════════════════════════════════════════════════════════════

func newFixtureIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(Config{Fields: []string{"title", "text"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	docs := []any{
		map[string]any{"id": 1.0, "title": "Moby Dick", "text": "Call me Ishmael"},
		map[string]any{"id": 2.0, "title": "Zen and the Art of Motorcycle", "text": "I can see"},
		map[string]any{"id": 3.0, "title": "Neuromancer", "text": "The sky above the port"},
		map[string]any{"id": 4.0, "title": "Zen and the Art of Archery", "text": "At first sight"},
	}
	if err := idx.AddAll(docs); err != nil {
		t.Fatalf("AddAll: %v", err)
	}
	return idx
}

func hitIDs(hits []SearchHit) []float64 {
	out := make([]float64, len(hits))
	for i, h := range hits {
		out[i] = h.ID.(float64)
	}
	return out
}

func TestSearch_MultiTokenOR(t *testing.T) {
	idx := newFixtureIndex(t)
	hits, err := idx.Search(Term("zen art motorcycle"), SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	ids := hitIDs(hits)
	if len(ids) != 2 || ids[0] != 2 || ids[1] != 4 {
		t.Fatalf("search(\"zen art motorcycle\") ids = %v, want [2 4]", ids)
	}
	if hits[0].Score <= hits[1].Score {
		t.Errorf("result 2's score (%v) should exceed result 4's (%v)", hits[0].Score, hits[1].Score)
	}
}

func TestSearch_Prefix(t *testing.T) {
	idx := newFixtureIndex(t)
	hits, err := idx.Search(Term("moto"), SearchOptions{Prefix: FixedPrefix(true)})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	ids := hitIDs(hits)
	if len(ids) != 1 || ids[0] != 2 {
		t.Fatalf("search(\"moto\", prefix) ids = %v, want [2]", ids)
	}
}

func TestSearch_Fuzzy(t *testing.T) {
	idx := newFixtureIndex(t)
	hits, err := idx.Search(Term("ismael"), SearchOptions{Fuzzy: FixedFuzzy(0.2)})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	ids := hitIDs(hits)
	if len(ids) != 1 || ids[0] != 1 {
		t.Fatalf("search(\"ismael\", fuzzy:0.2) ids = %v, want [1]", ids)
	}
}

func TestSearch_CombineWithAND(t *testing.T) {
	idx := newFixtureIndex(t)
	hits, err := idx.Search(Term("zen archery"), SearchOptions{CombineWith: CombineAND})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	ids := hitIDs(hits)
	if len(ids) != 1 || ids[0] != 4 {
		t.Fatalf("search(\"zen archery\", AND) ids = %v, want [4]", ids)
	}
}

func TestSearch_Wildcard(t *testing.T) {
	idx := newFixtureIndex(t)
	hits, err := idx.Search(Wildcard(), SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 4 {
		t.Fatalf("wildcard search returned %d hits, want 4", len(hits))
	}
}

func TestSearch_FieldsFilter(t *testing.T) {
	idx := newFixtureIndex(t)
	hits, err := idx.Search(Term("ishmael"), SearchOptions{Fields: []string{"title"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("restricting to title should exclude text-only matches, got %d hits", len(hits))
	}
}

func TestSearch_MissingField(t *testing.T) {
	idx := newFixtureIndex(t)
	_, err := idx.Search(Term("zen"), SearchOptions{Fields: []string{"nope"}})
	if err == nil {
		t.Fatal("search naming an undeclared field should fail")
	}
}

func TestDiscardThenVacuum(t *testing.T) {
	idx := newFixtureIndex(t)

	if err := idx.Discard(2.0); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if got := idx.DirtCount(); got != 1 {
		t.Fatalf("DirtCount() after discard = %d, want 1", got)
	}
	if hits, err := idx.Search(Term("motorcycle"), SearchOptions{}); err != nil || len(hits) != 0 {
		t.Fatalf("search(\"motorcycle\") after discard = (%v, %v), want (empty, nil)", hits, err)
	}

	idx.Vacuum()
	if got := idx.DirtCount(); got != 0 {
		t.Fatalf("DirtCount() after vacuum = %d, want 0", got)
	}
	idx.mu.Lock()
	_, stillPresent := idx.store.terms.Get("motorcycle")
	idx.mu.Unlock()
	if stillPresent {
		t.Error("vacuum should have swept the \"motorcycle\" posting from the dictionary")
	}
}

func TestReplace(t *testing.T) {
	idx := newFixtureIndex(t)

	err := idx.Replace(map[string]any{"id": 1.0, "title": "Moby-Dick", "text": "Whale"})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}

	if hits, err := idx.Search(Term("whale"), SearchOptions{}); err != nil || len(hits) != 1 || hits[0].ID.(float64) != 1 {
		t.Fatalf("search(\"whale\") after replace = (%v, %v), want ([1], nil)", hits, err)
	}
	if hits, err := idx.Search(Term("ishmael"), SearchOptions{}); err != nil || len(hits) != 0 {
		t.Fatalf("search(\"ishmael\") after replace = (%v, %v), want (empty, nil)", hits, err)
	}
}

func TestAdd_MissingID(t *testing.T) {
	idx, _ := New(Config{Fields: []string{"title"}})
	err := idx.Add(map[string]any{"title": "no id here"})
	if err == nil {
		t.Fatal("Add without an id field should fail")
	}
}

func TestAdd_DuplicateID(t *testing.T) {
	idx, _ := New(Config{Fields: []string{"title"}})
	doc := map[string]any{"id": 1.0, "title": "first"}
	if err := idx.Add(doc); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if err := idx.Add(doc); err == nil {
		t.Fatal("Add with a duplicate id should fail")
	}
}

func TestDiscard_UnknownID(t *testing.T) {
	idx, _ := New(Config{Fields: []string{"title"}})
	if err := idx.Discard("nope"); err == nil {
		t.Fatal("Discard of an unknown id should fail")
	}
}

func TestGetStoredFields(t *testing.T) {
	idx, _ := New(Config{Fields: []string{"title"}, StoreFields: []string{"title"}})
	if err := idx.Add(map[string]any{"id": 1.0, "title": "Moby Dick"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	stored, ok := idx.GetStoredFields(1.0)
	if !ok || stored["title"] != "Moby Dick" {
		t.Fatalf("GetStoredFields(1.0) = (%v, %v), want (map[title:Moby Dick], true)", stored, ok)
	}
	if _, ok := idx.GetStoredFields("missing"); ok {
		t.Error("GetStoredFields for an unknown id should report ok=false")
	}
}

func TestSearch_EmptyQueryYieldsEmptyResults(t *testing.T) {
	idx := newFixtureIndex(t)
	hits, err := idx.Search(Term("   "), SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("search on a query with no tokens = %v, want empty", hits)
	}
}

func TestAutoSuggest(t *testing.T) {
	idx := newFixtureIndex(t)
	suggestions, err := idx.AutoSuggest("moto", SearchOptions{})
	if err != nil {
		t.Fatalf("AutoSuggest: %v", err)
	}
	if len(suggestions) == 0 {
		t.Fatal("AutoSuggest(\"moto\") returned no suggestions")
	}
	found := false
	for _, s := range suggestions {
		if s.Suggestion == "motorcycle" {
			found = true
		}
	}
	if !found {
		t.Errorf("AutoSuggest(\"moto\") = %+v, want a suggestion for \"motorcycle\"", suggestions)
	}
}
