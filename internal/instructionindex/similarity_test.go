package instructionindex

import "testing"

func TestSignificantWords_StripsStopWords(t *testing.T) {
	words := SignificantWords("Please implement the login form for the user")
	for _, w := range words {
		if stopWords[w] {
			t.Fatalf("stop word %q leaked through", w)
		}
	}
	if len(words) == 0 {
		t.Fatalf("expected non-empty significant words")
	}
}

func TestJaccard_IdenticalSets(t *testing.T) {
	a := []string{"login", "form", "implement"}
	if got := Jaccard(a, a); got != 1.0 {
		t.Fatalf("Jaccard(a,a) = %v, want 1.0", got)
	}
}

func TestJaccard_DisjointSets(t *testing.T) {
	a := []string{"login"}
	b := []string{"gardening"}
	if got := Jaccard(a, b); got != 0 {
		t.Fatalf("Jaccard(disjoint) = %v, want 0", got)
	}
}

func TestPrefixScore_HigherForCloserLength(t *testing.T) {
	short := PrefixScore("Refactor the auth module", "Refactor the auth module for clarity and speed and much more text padding")
	close := PrefixScore("Refactor the auth module", "Refactor the auth module for clarity")
	if close <= short {
		t.Fatalf("expected closer-length candidate to score higher: close=%v short=%v", close, short)
	}
}
