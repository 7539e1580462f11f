package analysis

import (
	"math"
	"sort"
)

// Vectorizer builds TF-IDF document vectors over a bounded vocabulary.
// The vocabulary keeps the most frequent terms up to MaxFeatures, which
// bounds both memory and clustering cost.
type Vectorizer struct {
	MaxFeatures int

	terms []string
	vocab map[string]int
	idf   []float64
}

func NewVectorizer(maxFeatures int) *Vectorizer {
	return &Vectorizer{MaxFeatures: maxFeatures}
}

// FitTransform learns the vocabulary from the tokenized documents and
// returns their L2 normalized TF-IDF vectors.
func (v *Vectorizer) FitTransform(docs [][]string) [][]float64 {
	docFreq := map[string]int{}
	totalFreq := map[string]int{}
	for _, doc := range docs {
		seen := map[string]struct{}{}
		for _, token := range doc {
			totalFreq[token]++
			if _, ok := seen[token]; !ok {
				seen[token] = struct{}{}
				docFreq[token]++
			}
		}
	}

	terms := make([]string, 0, len(totalFreq))
	for term := range totalFreq {
		terms = append(terms, term)
	}
	// Deterministic ordering: frequency first, then alphabetical.
	sort.Slice(terms, func(i, j int) bool {
		if totalFreq[terms[i]] != totalFreq[terms[j]] {
			return totalFreq[terms[i]] > totalFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if v.MaxFeatures > 0 && len(terms) > v.MaxFeatures {
		terms = terms[:v.MaxFeatures]
	}

	v.terms = terms
	v.vocab = make(map[string]int, len(terms))
	for i, term := range terms {
		v.vocab[term] = i
	}

	v.idf = make([]float64, len(terms))
	for i, term := range terms {
		v.idf[i] = math.Log(float64(1+len(docs))/float64(1+docFreq[term])) + 1
	}

	vectors := make([][]float64, len(docs))
	for i, doc := range docs {
		vectors[i] = v.transform(doc)
	}
	return vectors
}

// Term returns the vocabulary term at the given vector dimension.
func (v *Vectorizer) Term(index int) string {
	return v.terms[index]
}

// VocabularySize returns the number of learned dimensions.
func (v *Vectorizer) VocabularySize() int {
	return len(v.terms)
}

func (v *Vectorizer) transform(doc []string) []float64 {
	vector := make([]float64, len(v.terms))
	for _, token := range doc {
		if idx, ok := v.vocab[token]; ok {
			vector[idx]++
		}
	}

	var norm float64
	for i := range vector {
		if vector[i] > 0 {
			vector[i] *= v.idf[i]
			norm += vector[i] * vector[i]
		}
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vector {
			vector[i] /= norm
		}
	}
	return vector
}
