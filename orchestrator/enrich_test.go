package orchestrator

import (
	"strings"
	"testing"

	"newswire/types"
)

func TestEnrichDescription(t *testing.T) {
	long := strings.Repeat("word ", 120)
	a := types.Article{Title: "Short title", Content: long}
	enrich(&a, "ai")
	if len([]rune(a.Description)) > descriptionLimit {
		t.Errorf("description length %d exceeds limit %d", len(a.Description), descriptionLimit)
	}

	// No body: fall back to the title.
	a = types.Article{Title: "Only a headline"}
	enrich(&a, "ai")
	if a.Description != "Only a headline" {
		t.Errorf("Description = %q, want title fallback", a.Description)
	}

	// A caller-supplied description is kept, only bounded.
	a = types.Article{Title: "t", Content: "body", Description: "Provided summary"}
	enrich(&a, "ai")
	if a.Description != "Provided summary" {
		t.Errorf("Description = %q, want provided summary preserved", a.Description)
	}
}

func TestEnrichCategoryDefault(t *testing.T) {
	a := types.Article{Title: "t"}
	enrich(&a, "quantum computing")
	if a.Category != "quantum computing" {
		t.Errorf("Category = %q, want request keyword", a.Category)
	}

	a = types.Article{Title: "t", Category: "science"}
	enrich(&a, "quantum computing")
	if a.Category != "science" {
		t.Errorf("Category = %q, want upstream value preserved", a.Category)
	}
}

func TestReadingTime(t *testing.T) {
	cases := []struct {
		words int
		want  int
	}{
		{0, 1},
		{1, 1},
		{200, 1},
		{201, 2},
		{450, 3},
	}
	for _, tc := range cases {
		text := strings.TrimSpace(strings.Repeat("word ", tc.words))
		if got := readingTime(text); got != tc.want {
			t.Errorf("readingTime(%d words) = %d, want %d", tc.words, got, tc.want)
		}
	}
}

func TestEnrichComplexity(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		hits    int
		wantLvl string
	}{
		{"plain prose", "the cat sat on the mat", 0, types.ComplexityBasic},
		{"one term", "a new model was announced", 1, types.ComplexityIntermediate},
		{"several terms", "the transformer model uses a novel training dataset", 4, types.ComplexityAdvanced},
		{"substring does not count", "remodeling the networking stack", 0, types.ComplexityBasic},
	}
	for _, tc := range cases {
		a := types.Article{Title: "t", Content: tc.body}
		enrich(&a, "ai")
		if a.ImpactScore != tc.hits {
			t.Errorf("%s: ImpactScore = %d, want %d", tc.name, a.ImpactScore, tc.hits)
		}
		if a.Complexity != tc.wantLvl {
			t.Errorf("%s: Complexity = %q, want %q", tc.name, a.Complexity, tc.wantLvl)
		}
	}
}
