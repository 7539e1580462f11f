package analysis

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z][a-z0-9'+#.-]*[a-z0-9+#]|[a-z]`)

var stopwords = map[string]struct{}{}

func init() {
	words := []string{
		"a", "about", "above", "after", "again", "against", "all", "also", "am",
		"an", "and", "any", "are", "as", "at", "be", "because", "been", "before",
		"being", "below", "between", "both", "but", "by", "can", "could", "did",
		"do", "does", "doing", "down", "during", "each", "few", "for", "from",
		"further", "get", "got", "had", "has", "have", "having", "he", "her",
		"here", "hers", "him", "his", "how", "i", "if", "in", "into", "is", "it",
		"its", "just", "like", "me", "more", "most", "my", "new", "no", "nor",
		"not", "now", "of", "off", "on", "once", "one", "only", "or", "other",
		"our", "out", "over", "own", "said", "same", "she", "should", "so",
		"some", "such", "than", "that", "the", "their", "them", "then", "there",
		"these", "they", "this", "those", "through", "to", "too", "under",
		"until", "up", "use", "using", "very", "was", "we", "were", "what",
		"when", "where", "which", "while", "who", "whom", "why", "will", "with",
		"would", "you", "your", "yours",
	}
	for _, w := range words {
		stopwords[w] = struct{}{}
	}
}

// Tokenize lowercases the text and returns word tokens with stopwords and
// short fragments removed. Tech-flavored tokens like "c++" and "node.js"
// survive intact.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	raw := tokenPattern.FindAllString(lowered, -1)

	tokens := make([]string, 0, len(raw))
	for _, token := range raw {
		if len(token) < 3 {
			continue
		}
		if _, ok := stopwords[token]; ok {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}
