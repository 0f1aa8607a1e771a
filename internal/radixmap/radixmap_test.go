package radixmap

import (
	"reflect"
	"sort"
	"testing"
)

func keysOf(pairs []Pair) []string {
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.Key
	}
	return out
}

func TestRadixMap_GetSetHas(t *testing.T) {
	m := New()
	if _, ok := m.Get("test"); ok {
		t.Fatal("Get on empty map found a value")
	}
	if m.Has("test") {
		t.Fatal("Has on empty map reported true")
	}

	m.Set("test", 1)
	m.Set("team", 2)
	m.Set("toast", 3)

	tests := []struct {
		key  string
		want any
	}{
		{"test", 1},
		{"team", 2},
		{"toast", 3},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := m.Get(tt.key)
			if !ok {
				t.Fatalf("Get(%q) not found", tt.key)
			}
			if got != tt.want {
				t.Errorf("Get(%q) = %v, want %v", tt.key, got, tt.want)
			}
			if !m.Has(tt.key) {
				t.Errorf("Has(%q) = false, want true", tt.key)
			}
		})
	}

	if _, ok := m.Get("te"); ok {
		t.Error("Get(\"te\") unexpectedly found a value: splitter nodes must not carry values")
	}
}

func TestRadixMap_EmptyStringKey(t *testing.T) {
	m := New()
	m.Set("", 99)
	got, ok := m.Get("")
	if !ok || got != 99 {
		t.Fatalf("Get(\"\") = (%v, %v), want (99, true)", got, ok)
	}
}

func TestRadixMap_SetOverwrites(t *testing.T) {
	m := New()
	m.Set("key", 1)
	m.Set("key", 2)
	got, _ := m.Get("key")
	if got != 2 {
		t.Errorf("Get(\"key\") = %v, want 2 after overwrite", got)
	}
}

func TestRadixMap_Delete(t *testing.T) {
	m := New()
	m.Set("test", 1)
	m.Set("team", 2)
	m.Set("toast", 3)

	if !m.Delete("team") {
		t.Fatal("Delete(\"team\") = false, want true")
	}
	if m.Has("team") {
		t.Error("team still present after Delete")
	}
	if !m.Has("test") || !m.Has("toast") {
		t.Error("sibling keys were lost by Delete")
	}
	if m.Delete("team") {
		t.Error("second Delete(\"team\") = true, want false (already gone)")
	}
	if m.Delete("missing") {
		t.Error("Delete(\"missing\") = true, want false")
	}
}

func TestRadixMap_DeleteMergesSingleChild(t *testing.T) {
	m := New()
	m.Set("tester", 1)
	m.Set("team", 2)

	if !m.Delete("tester") {
		t.Fatal("Delete(\"tester\") = false")
	}
	// "team" must still resolve correctly once "tester" is gone and any
	// splitter left behind has been absorbed.
	got, ok := m.Get("team")
	if !ok || got != 2 {
		t.Fatalf("Get(\"team\") after merge = (%v, %v), want (2, true)", got, ok)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestRadixMap_Fetch(t *testing.T) {
	m := New()
	calls := 0
	factory := func() any {
		calls++
		return "installed"
	}

	got := m.Fetch("k", factory)
	if got != "installed" || calls != 1 {
		t.Fatalf("first Fetch = (%v, calls=%d), want (installed, 1)", got, calls)
	}

	got = m.Fetch("k", factory)
	if got != "installed" || calls != 1 {
		t.Fatalf("second Fetch = (%v, calls=%d), want (installed, 1) — factory must not rerun", got, calls)
	}
}

func TestRadixMap_IterateOrder(t *testing.T) {
	m := New()
	words := []string{"banana", "band", "bandana", "apple", "app", "application"}
	for i, w := range words {
		m.Set(w, i)
	}

	want := append([]string{}, words...)
	sort.Strings(want)

	got := keysOf(m.Iterate())
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Iterate() keys = %v, want %v", got, want)
	}
	if m.Len() != len(words) {
		t.Errorf("Len() = %d, want %d", m.Len(), len(words))
	}
}

func TestRadixMap_AtPrefix(t *testing.T) {
	m := New()
	for i, w := range []string{"quick", "quicken", "quickly", "quiz", "slow"} {
		m.Set(w, i)
	}

	got := keysOf(m.AtPrefix("quick"))
	want := []string{"quick", "quicken", "quickly"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AtPrefix(\"quick\") = %v, want %v", got, want)
	}

	if got := m.AtPrefix("nope"); got != nil {
		t.Errorf("AtPrefix(\"nope\") = %v, want nil", got)
	}

	// A prefix that lands in the middle of an edge must still enumerate the
	// whole subtree beneath it.
	got = keysOf(m.AtPrefix("qui"))
	want = []string{"quick", "quicken", "quickly", "quiz"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AtPrefix(\"qui\") = %v, want %v", got, want)
	}
}

func TestRadixMap_FuzzyGet(t *testing.T) {
	m := New()
	m.Set("ishmael", "a")
	m.Set("moby", "b")
	m.Set("island", "c")

	matches := m.FuzzyGet("ismael", 1)
	if _, ok := matches["ishmael"]; !ok {
		t.Fatalf("FuzzyGet(\"ismael\", 1) = %v, want to contain \"ishmael\"", matches)
	}
	if d := matches["ishmael"].Distance; d != 1 {
		t.Errorf("distance for ishmael = %d, want 1", d)
	}
	if _, ok := matches["island"]; ok {
		t.Errorf("FuzzyGet(\"ismael\", 1) unexpectedly matched \"island\"")
	}

	exact := m.FuzzyGet("moby", 0)
	if _, ok := exact["moby"]; !ok || len(exact) != 1 {
		t.Errorf("FuzzyGet(\"moby\", 0) = %v, want exactly {moby: dist 0}", exact)
	}
}

func TestRadixMap_FuzzyGetRespectsBudget(t *testing.T) {
	m := New()
	m.Set("cat", "a")
	m.Set("dog", "b")

	matches := m.FuzzyGet("cat", 1)
	if _, ok := matches["dog"]; ok {
		t.Errorf("FuzzyGet(\"cat\", 1) unexpectedly matched \"dog\" (distance 3)")
	}
	if len(matches) != 1 {
		t.Errorf("FuzzyGet(\"cat\", 1) = %v, want only {cat}", matches)
	}
}
