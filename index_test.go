package slimsearch

import "testing"

// ═══════════════════════════════════════════════════════════════════════════════
// INDEX STORE TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func newTestStore() *IndexStore {
	return newIndexStore([]string{"title", "text"})
}

func TestIndexStore_AllocateShortID(t *testing.T) {
	s := newTestStore()

	id1 := s.allocateShortID("doc-1")
	id2 := s.allocateShortID("doc-2")

	if id1 == id2 {
		t.Fatalf("allocateShortID returned the same id twice: %d", id1)
	}
	if s.documentCount != 2 {
		t.Errorf("documentCount = %d, want 2", s.documentCount)
	}
	if got, ok := s.externalIDOf(id1); !ok || got != "doc-1" {
		t.Errorf("externalIDOf(%d) = (%v, %v), want (doc-1, true)", id1, got, ok)
	}
	if !s.isLive(id1) || !s.isLive(id2) {
		t.Error("freshly allocated ids should be live")
	}
}

func TestIndexStore_PostingsRoundTrip(t *testing.T) {
	s := newTestStore()
	titleID, _ := s.FieldID("title")

	id := s.allocateShortID("doc-1")
	s.addPosting(id, titleID, "quick")
	s.addPosting(id, titleID, "quick")

	v, ok := s.terms.Get("quick")
	if !ok {
		t.Fatal("term \"quick\" not found after addPosting")
	}
	entry := v.(*postingEntry)
	if got := entry.perField[titleID][id]; got != 2 {
		t.Errorf("frequency = %d, want 2", got)
	}
	if df := entry.documentFrequency(); df != 1 {
		t.Errorf("documentFrequency() = %d, want 1", df)
	}

	if !s.removePosting(id, titleID, "quick") {
		t.Fatal("removePosting reported not found on first decrement")
	}
	if !s.removePosting(id, titleID, "quick") {
		t.Fatal("removePosting reported not found on second decrement")
	}
	if _, ok := s.terms.Get("quick"); ok {
		t.Error("term \"quick\" should be pruned once its only posting is gone")
	}
	if s.removePosting(id, titleID, "quick") {
		t.Error("removePosting on an already-empty term should report found=false")
	}
}

func TestIndexStore_TombstoneLeavesPostings(t *testing.T) {
	s := newTestStore()
	titleID, _ := s.FieldID("title")

	id := s.allocateShortID("doc-1")
	s.addPosting(id, titleID, "quick")
	s.setFieldLengths(id, []int{1, 0})

	s.tombstone(id)

	if s.documentCount != 0 {
		t.Errorf("documentCount = %d, want 0", s.documentCount)
	}
	if s.dirtCount != 1 {
		t.Errorf("dirtCount = %d, want 1", s.dirtCount)
	}
	if s.isLive(id) {
		t.Error("tombstoned id should not be live")
	}
	if _, ok := s.terms.Get("quick"); !ok {
		t.Error("tombstone must leave postings in place for vacuum to collect")
	}
}

func TestIndexStore_SweepTermDropsDeadPostings(t *testing.T) {
	s := newTestStore()
	titleID, _ := s.FieldID("title")

	live := s.allocateShortID("doc-1")
	dead := s.allocateShortID("doc-2")
	s.addPosting(live, titleID, "quick")
	s.addPosting(dead, titleID, "quick")
	s.tombstone(dead)

	s.sweepTerm("quick")

	v, ok := s.terms.Get("quick")
	if !ok {
		t.Fatal("term should survive sweep: the live posting remains")
	}
	entry := v.(*postingEntry)
	if _, present := entry.perField[titleID][dead]; present {
		t.Error("dead shortId should have been swept")
	}
	if _, present := entry.perField[titleID][live]; !present {
		t.Error("live shortId should survive the sweep")
	}
}

func TestIndexStore_AvgFieldLengthIncremental(t *testing.T) {
	s := newTestStore()

	a := s.allocateShortID("a")
	s.setFieldLengths(a, []int{2, 0})
	b := s.allocateShortID("b")
	s.setFieldLengths(b, []int{4, 0})

	if got, want := s.avgFieldLength[0], 3.0; got != want {
		t.Errorf("avgFieldLength[0] = %v, want %v", got, want)
	}

	s.tombstone(b)
	if got, want := s.avgFieldLength[0], 2.0; got != want {
		t.Errorf("avgFieldLength[0] after removing b = %v, want %v", got, want)
	}

	s.recomputeAvgFieldLength()
	if got, want := s.avgFieldLength[0], 2.0; got != want {
		t.Errorf("recomputeAvgFieldLength drifted: got %v, want %v", got, want)
	}
}

func TestIndexStore_DirtFactor(t *testing.T) {
	s := newTestStore()
	if s.dirtFactor() != 0 {
		t.Errorf("dirtFactor on empty store = %v, want 0", s.dirtFactor())
	}

	id := s.allocateShortID("a")
	s.tombstone(id)
	// dirtCount=1, documentCount=0 -> 1/(1+0+1) = 0.5
	if got, want := s.dirtFactor(), 0.5; got != want {
		t.Errorf("dirtFactor() = %v, want %v", got, want)
	}
}
