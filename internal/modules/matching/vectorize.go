package matching

import (
	"sort"
	"strings"
	"unicode"
)

// Term is one entry of a sparse term-frequency vector.
type Term struct {
	Word  string
	Count int
}

// Vector is a sparse term-frequency vector sorted by Word.
type Vector []Term

// Count returns the raw frequency of word, or 0.
func (v Vector) Count(word string) int {
	i := sort.Search(len(v), func(i int) bool { return v[i].Word >= word })
	if i < len(v) && v[i].Word == word {
		return v[i].Count
	}
	return 0
}

func (v Vector) Empty() bool { return len(v) == 0 }

// Vectorize lower-cases text, splits it on anything that is not a letter or
// digit, drops stopwords and counts what is left.
func Vectorize(text string) Vector {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		if IsStopword(tok) {
			continue
		}
		counts[tok]++
	}
	if len(counts) == 0 {
		return nil
	}
	out := make(Vector, 0, len(counts))
	for word, n := range counts {
		out = append(out, Term{Word: word, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Word < out[j].Word })
	return out
}

func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

// stopwords are English function words plus the filler verbs people lead
// vents with ("i feel", "it makes me"), which otherwise dominate every pair.
var stopwords = toSet(
	"a", "about", "above", "after", "again", "against", "all", "am", "an", "and",
	"any", "are", "as", "at", "be", "because", "been", "before", "being", "below",
	"between", "both", "but", "by", "can", "could", "did", "do", "does", "doing",
	"don", "down", "during", "each", "feel", "feeling", "feels", "felt", "few",
	"for", "from", "further", "get", "gets", "got", "had", "has", "have", "having",
	"he", "her", "here", "hers", "herself", "him", "himself", "his", "how", "i",
	"if", "im", "in", "into", "is", "it", "its", "itself", "just", "ll", "make",
	"makes", "making", "me", "more", "most", "my", "myself", "no", "nor", "not",
	"now", "of", "off", "on", "once", "only", "or", "other", "our", "ours",
	"ourselves", "out", "over", "own", "re", "really", "s", "same", "she",
	"should", "so", "some", "such", "t", "than", "that", "the", "their",
	"theirs", "them", "themselves", "then", "there", "these", "they", "this",
	"those", "through", "to", "too", "under", "until", "up", "ve", "very", "was",
	"we", "were", "what", "when", "where", "which", "while", "who", "whom",
	"why", "will", "with", "would", "you", "your", "yours", "yourself",
	"yourselves",
)

func toSet(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}
