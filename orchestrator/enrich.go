package orchestrator

import (
	"strings"

	"newswire/similarity"
	"newswire/types"
)

const (
	descriptionLimit = 300
	wordsPerMinute   = 200

	advancedHits     = 4
	intermediateHits = 1
)

// technicalVocabulary is the fixed term list behind the three-level
// complexity classification. Matching is on whole tokens, not substrings.
var technicalVocabulary = []string{
	"algorithm", "neural", "network", "model", "training", "inference",
	"transformer", "parameters", "dataset", "benchmark", "architecture",
	"optimization", "gpu", "quantization", "embedding", "gradient",
}

// enrich derives the presentation fields of a fetched article in place:
// description, reading time, complexity, and impact score. These are
// non-authoritative and recomputed on every sighting.
func enrich(article *types.Article, keyword string) {
	if article.Category == "" {
		article.Category = keyword
	}

	body := strings.TrimSpace(article.Content)
	if article.Description == "" {
		if body != "" {
			article.Description = truncate(body, descriptionLimit)
		} else {
			article.Description = truncate(article.Title, descriptionLimit)
		}
	} else {
		article.Description = truncate(article.Description, descriptionLimit)
	}

	article.ReadingTime = readingTime(body)

	hits := vocabularyHits(body)
	article.ImpactScore = hits
	article.Complexity = complexityFor(hits)
}

// readingTime estimates minutes as max(1, ceil(words/200)).
func readingTime(text string) int {
	words := len(strings.Fields(text))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// vocabularyHits counts how many distinct technical terms appear in the
// body.
func vocabularyHits(body string) int {
	tokens := similarity.Tokenize(body)
	hits := 0
	for _, term := range technicalVocabulary {
		if tokens[term] {
			hits++
		}
	}
	return hits
}

func complexityFor(hits int) string {
	switch {
	case hits >= advancedHits:
		return types.ComplexityAdvanced
	case hits >= intermediateHits:
		return types.ComplexityIntermediate
	default:
		return types.ComplexityBasic
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
