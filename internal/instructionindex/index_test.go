package instructionindex

import "testing"

func TestIndex_ExactMatch(t *testing.T) {
	idx := New()
	idx.Insert("Implement the login form", ParentRef{TaskId: "parent-1", OriginalInstruction: "Implement the login form"})

	m, ok := idx.Lookup("Implement the login form", 0.3, 0.2)
	if !ok {
		t.Fatalf("expected a match")
	}
	if m.MatchType != "exact" || m.SimilarityScore != 1.0 {
		t.Fatalf("got %+v", m)
	}
	if m.ParentTaskId != "parent-1" {
		t.Fatalf("parent = %s", m.ParentTaskId)
	}
}

func TestIndex_PrefixMatch(t *testing.T) {
	idx := New()
	idx.Insert("Refactor the authentication module for clarity", ParentRef{TaskId: "parent-2"})

	m, ok := idx.Lookup("Refactor the authentication module", 0.3, 0.2)
	if !ok {
		t.Fatalf("expected a match")
	}
	if m.MatchType != "prefix" {
		t.Fatalf("match type = %s, want prefix", m.MatchType)
	}
}

func TestIndex_FuzzyMatch(t *testing.T) {
	idx := New()
	idx.Insert("Investigate the flaky integration test suite failures", ParentRef{TaskId: "parent-3"})

	m, ok := idx.Lookup("Look into the flaky integration test failures in CI", 0.2, 0.2)
	if !ok {
		t.Fatalf("expected a fuzzy match")
	}
	if m.MatchType != "fuzzy" {
		t.Fatalf("match type = %s, want fuzzy", m.MatchType)
	}
}

func TestIndex_NoMatch(t *testing.T) {
	idx := New()
	idx.Insert("Completely unrelated topic about gardening", ParentRef{TaskId: "parent-4"})

	_, ok := idx.Lookup("Write a database migration script", 0.3, 0.2)
	if ok {
		t.Fatalf("expected no match")
	}
}

func TestIndex_TieBreakLexicographic(t *testing.T) {
	idx := New()
	idx.Insert("same text here", ParentRef{TaskId: "zzz-parent"})
	idx.Insert("same text here", ParentRef{TaskId: "aaa-parent"})

	m, ok := idx.Lookup("same text here", 0.3, 0.2)
	if !ok {
		t.Fatalf("expected match")
	}
	if m.ParentTaskId != "aaa-parent" {
		t.Fatalf("expected lexicographically smallest parent, got %s", m.ParentTaskId)
	}
}
