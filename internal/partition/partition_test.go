package partition

import "testing"

func elementsCycling4(n int) []Element {
	names := []string{"e0", "e1", "e2", "e3", "e4", "e5", "e6", "e7", "e8", "e9"}
	elems := make([]Element, n)
	for i := 0; i < n; i++ {
		elems[i] = Element{ID: names[i], Mask: 0x3, Match: uint32(i % 4)}
	}
	return elems
}

func TestBuildSplitsOnDiscriminatingBits(t *testing.T) {
	elems := elementsCycling4(8)
	root := Build(elems)
	if root.IsLeaf() {
		t.Fatal("expected the root to split given 8 elements with a 2-bit common mask")
	}
}

func TestBuildLeavesSmallSetsUnsplit(t *testing.T) {
	elems := elementsCycling4(4)
	root := Build(elems)
	if !root.IsLeaf() {
		t.Fatal("expected a 4-element set to stay a single leaf")
	}
	if len(root.Leaf) != 4 {
		t.Errorf("leaf size = %d, want 4", len(root.Leaf))
	}
}

func TestClassifyFindsMatchingLeaf(t *testing.T) {
	elems := elementsCycling4(8)
	root := Build(elems)

	for _, e := range elems {
		candidates := root.Classify(e.Match)
		found := false
		for _, c := range candidates {
			if c.ID == e.ID {
				found = true
			}
		}
		if !found {
			t.Errorf("Classify(0x%x) did not include %s among candidates", e.Match, e.ID)
		}
	}
}

func TestFindAmbiguitiesDetectsOverlap(t *testing.T) {
	elems := []Element{
		{ID: "a", Mask: 0xf0, Match: 0x10},
		{ID: "b", Mask: 0xf0, Match: 0x10},
		{ID: "c", Mask: 0xf0, Match: 0x20},
	}
	root := &Node{Leaf: elems}
	ambiguities := FindAmbiguities(root)
	if len(ambiguities) != 1 {
		t.Fatalf("got %d ambiguities, want 1", len(ambiguities))
	}
	got := [2]string{ambiguities[0].Leaf[0].ID, ambiguities[0].Leaf[1].ID}
	if got != [2]string{"a", "b"} {
		t.Errorf("ambiguous pair = %v, want [a b]", got)
	}
}

func TestFindAmbiguitiesEmptyWhenDisjoint(t *testing.T) {
	elems := []Element{
		{ID: "a", Mask: 0xff, Match: 0x10},
		{ID: "b", Mask: 0xff, Match: 0x20},
	}
	root := &Node{Leaf: elems}
	if got := FindAmbiguities(root); len(got) != 0 {
		t.Errorf("got %d ambiguities, want 0", len(got))
	}
}
