package instructionindex

import (
	"regexp"
	"strings"
)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "to": true, "of": true, "in": true,
	"on": true, "for": true, "and": true, "or": true, "is": true, "are": true,
	"this": true, "that": true, "with": true, "please": true, "i": true,
	"you": true, "it": true, "be": true, "at": true, "as": true, "by": true,
	"can": true, "will": true, "would": true, "could": true, "should": true,
	"me": true, "my": true, "we": true, "our": true,
}

var wordRe = regexp.MustCompile(`[a-z0-9]+`)

// SignificantWords lowercases s and returns its word tokens with stop words
// removed, used as the basis for the Jaccard overlap score.
func SignificantWords(s string) []string {
	tokens := wordRe.FindAllString(strings.ToLower(s), -1)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !stopWords[tok] {
			out = append(out, tok)
		}
	}
	return out
}

// Jaccard computes the Jaccard similarity of two word sets.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := toSet(a)
	setB := toSet(b)

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// lengthOverlap scores how much of the shorter string's length is covered
// by the longer, as a crude prefix-strength signal independent of words.
func lengthOverlap(a, b string) float64 {
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}
	shorter, longer := la, lb
	if shorter > longer {
		shorter, longer = longer, shorter
	}
	return float64(shorter) / float64(longer)
}

// PrefixScore blends length overlap with significant-word overlap for a
// candidate where one string is known to be a textual prefix of the other.
func PrefixScore(a, b string) float64 {
	wordScore := Jaccard(SignificantWords(a), SignificantWords(b))
	lenScore := lengthOverlap(a, b)
	return 0.5*wordScore + 0.5*lenScore
}

// FuzzyScore is the symmetric significant-word Jaccard similarity with a
// length-disparity penalty applied, used for the fuzzy match tier.
func FuzzyScore(a, b string) float64 {
	base := Jaccard(SignificantWords(a), SignificantWords(b))
	penalty := lengthOverlap(a, b)
	return base * (0.5 + 0.5*penalty)
}
