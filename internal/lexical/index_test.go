package lexical

import (
	"sort"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/internal/document"
)

func doc(id, title, content string) document.Document {
	return document.Document{ID: id, Title: title, Content: content}
}

func mlDocs() (document.Document, document.Document) {
	d1 := doc("d1", "Machine Learning", "algorithms that learn from data")
	d2 := doc("d2", "Deep Learning", "neural networks with multiple layers")
	return d1, d2
}

func TestCandidateSearchUnion(t *testing.T) {
	ix := New()
	d1, d2 := mlDocs()
	ix.AddDocument(d1)
	ix.AddDocument(d2)

	got := ix.CandidateSearch("learning", 10000)
	sort.Strings(got)
	want := []string{"d1", "d2"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("CandidateSearch(learning) = %v, want %v", got, want)
	}
}

func TestCandidateSearchEmptyQuery(t *testing.T) {
	ix := New()
	d1, _ := mlDocs()
	ix.AddDocument(d1)
	if got := ix.CandidateSearch("the a an", 10); len(got) != 0 {
		t.Fatalf("expected empty result for all-stopword query, got %v", got)
	}
}

func TestBooleanAND(t *testing.T) {
	ix := New()
	d1, d2 := mlDocs()
	ix.AddDocument(d1)
	ix.AddDocument(d2)

	if got := ix.BooleanSearch("machine deep", OpAND); len(got) != 0 {
		t.Fatalf("AND(machine,deep) = %v, want empty", got)
	}
}

func TestBooleanOR(t *testing.T) {
	ix := New()
	d1, d2 := mlDocs()
	ix.AddDocument(d1)
	ix.AddDocument(d2)

	got := ix.BooleanSearch("machine deep", OpOR)
	sort.Strings(got)
	if len(got) != 2 || got[0] != "d1" || got[1] != "d2" {
		t.Fatalf("OR(machine,deep) = %v, want [d1 d2]", got)
	}
}

func TestBooleanLawANDSubsetOfOR(t *testing.T) {
	ix := New()
	ix.AddDocument(doc("d1", "cats and dogs", "cats like naps"))
	ix.AddDocument(doc("d2", "dogs only", "dogs like walks"))

	and := setOf(ix.BooleanSearch("cats dogs", OpAND))
	or := setOf(ix.BooleanSearch("cats dogs", OpOR))
	for id := range and {
		if _, ok := or[id]; !ok {
			t.Fatalf("AND result %q not contained in OR result", id)
		}
	}
}

func TestBooleanLawSingleTermANDEqualsOR(t *testing.T) {
	ix := New()
	d1, d2 := mlDocs()
	ix.AddDocument(d1)
	ix.AddDocument(d2)

	and := ix.BooleanSearch("learning", OpAND)
	or := ix.BooleanSearch("learning", OpOR)
	sort.Strings(and)
	sort.Strings(or)
	if len(and) != len(or) {
		t.Fatalf("AND([t]) != OR([t]): %v vs %v", and, or)
	}
	for i := range and {
		if and[i] != or[i] {
			t.Fatalf("AND([t]) != OR([t]): %v vs %v", and, or)
		}
	}
}

func TestBooleanNOTComplement(t *testing.T) {
	ix := New()
	d1, d2 := mlDocs()
	ix.AddDocument(d1)
	ix.AddDocument(d2)

	not := setOf(ix.BooleanSearch("machine", OpNOT))
	if _, ok := not["d1"]; ok {
		t.Fatalf("NOT(machine) should exclude d1")
	}
	if _, ok := not["d2"]; !ok {
		t.Fatalf("NOT(machine) should include d2")
	}
}

func TestAddRemoveRoundTrip(t *testing.T) {
	ix := New()
	before := ix.Stats()

	d1, _ := mlDocs()
	ix.AddDocument(d1)
	if ok := ix.RemoveDocument(d1.ID); !ok {
		t.Fatalf("RemoveDocument returned false for known id")
	}
	after := ix.Stats()
	if before != after {
		t.Fatalf("round trip did not restore stats: before=%+v after=%+v", before, after)
	}
	if err := ix.CheckInvariants(); err != nil {
		t.Fatalf("invariants broken after round trip: %v", err)
	}
}

func TestRemoveUnknownReturnsFalse(t *testing.T) {
	ix := New()
	if ix.RemoveDocument("missing") {
		t.Fatalf("RemoveDocument(missing) = true, want false")
	}
}

func TestInvariantsHoldAfterMixedOps(t *testing.T) {
	ix := New()
	d1, d2 := mlDocs()
	ix.AddDocument(d1)
	ix.AddDocument(d2)
	ix.AddDocument(doc("d3", "Learning theory", "deep theory of learning"))
	ix.RemoveDocument("d2")

	if err := ix.CheckInvariants(); err != nil {
		t.Fatalf("invariants broken: %v", err)
	}
}

func setOf(ids []string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}
