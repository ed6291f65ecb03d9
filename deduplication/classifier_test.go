package deduplication

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"newswire/types"
)

type fakeIndex struct {
	byURL     map[string]*types.Article
	window    []types.Article
	urlErr    error
	windowErr error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{byURL: make(map[string]*types.Article)}
}

func (f *fakeIndex) FindByURL(_ context.Context, url string) (*types.Article, error) {
	if f.urlErr != nil {
		return nil, f.urlErr
	}
	return f.byURL[url], nil
}

func (f *fakeIndex) RecentWindow(_ context.Context, _, limit int) ([]types.Article, error) {
	if f.windowErr != nil {
		return nil, f.windowErr
	}
	if len(f.window) > limit {
		return f.window[:limit], nil
	}
	return f.window, nil
}

func (f *fakeIndex) addStored(id, title, url string) {
	a := types.Article{ID: id, Title: title, CreatedAt: time.Now()}
	if url != "" {
		a.URL = &url
		f.byURL[url] = &a
	}
	f.window = append(f.window, a)
}

func candidate(title, url string) *types.Article {
	a := &types.Article{Title: title}
	if url != "" {
		a.URL = &url
	}
	return a
}

func newTestClassifier(index ArticleIndex) *Classifier {
	return NewClassifier(ClassifierConfig{Index: index, Logger: zap.NewNop()})
}

func TestClassifyExactURLMatchShortCircuits(t *testing.T) {
	index := newFakeIndex()
	index.addStored("stored-1", "Completely different wording", "https://example.com/story")

	c := newTestClassifier(index)
	got := c.Classify(context.Background(), candidate("Robots learn to walk", "https://example.com/story"), 0.7)

	if !got.IsDuplicate {
		t.Fatal("expected duplicate on exact URL match")
	}
	if got.DuplicateOf != "stored-1" {
		t.Errorf("DuplicateOf = %q, want stored-1", got.DuplicateOf)
	}
	if got.Similarity != 1.0 {
		t.Errorf("Similarity = %v, want 1.0 regardless of title wording", got.Similarity)
	}
}

func TestClassifyLexicalMatchAboveThreshold(t *testing.T) {
	index := newFakeIndex()
	index.addStored("stored-9", "OpenAI releases powerful new language model today", "")

	c := newTestClassifier(index)
	got := c.Classify(context.Background(),
		candidate("OpenAI releases powerful new language model", ""), 0.7)

	if !got.IsDuplicate {
		t.Fatal("expected lexical duplicate")
	}
	if got.DuplicateOf != "stored-9" {
		t.Errorf("DuplicateOf = %q, want stored-9", got.DuplicateOf)
	}
	if got.Similarity < 0.7 {
		t.Errorf("Similarity = %v, want >= threshold", got.Similarity)
	}
}

func TestClassifyBelowThresholdIsNotDuplicate(t *testing.T) {
	index := newFakeIndex()
	index.addStored("stored-2", "Stock market falls sharply today", "")

	c := newTestClassifier(index)
	got := c.Classify(context.Background(), candidate("Robots learn to walk", ""), 0.7)

	if got.IsDuplicate {
		t.Fatalf("expected not-duplicate, got %+v", got)
	}
}

func TestClassifyWindowErrorFailsOpen(t *testing.T) {
	index := newFakeIndex()
	index.windowErr = errors.New("connection refused")

	c := newTestClassifier(index)
	got := c.Classify(context.Background(), candidate("Robots learn to walk", ""), 0.7)

	if got.IsDuplicate {
		t.Fatal("store read failure must fail open to not-duplicate")
	}
}

func TestClassifyURLErrorFallsThroughToLexical(t *testing.T) {
	index := newFakeIndex()
	index.urlErr = errors.New("connection refused")
	index.addStored("stored-3", "Robots learn to walk around obstacles", "")

	c := newTestClassifier(index)
	got := c.Classify(context.Background(),
		candidate("Robots learn to walk around obstacles", "https://example.com/x"), 0.7)

	if !got.IsDuplicate {
		t.Fatal("expected lexical duplicate after url lookup failed open")
	}
	if got.DuplicateOf != "stored-3" {
		t.Errorf("DuplicateOf = %q, want stored-3", got.DuplicateOf)
	}
}

func TestClassifyClusterBandAndCap(t *testing.T) {
	index := newFakeIndex()
	// Eight titles all scoring 1.0 against the candidate.
	for i := 0; i < 8; i++ {
		index.addStored(fmt.Sprintf("stored-%d", i), "Robots learn walking techniques fast", "")
	}
	// One unrelated title below the band.
	index.addStored("unrelated", "Stock market falls sharply again", "")

	c := newTestClassifier(index)
	got := c.Classify(context.Background(),
		candidate("Robots learn walking techniques fast", ""), 0.7)

	if !got.IsDuplicate {
		t.Fatal("expected duplicate")
	}
	if len(got.SimilarArticles) != maxClusterSize {
		t.Errorf("cluster size = %d, want capped at %d", len(got.SimilarArticles), maxClusterSize)
	}
	for _, m := range got.SimilarArticles {
		if m.Score < 0.7*clusterBandRatio {
			t.Errorf("cluster entry %s scored %v, below the band", m.ArticleID, m.Score)
		}
	}
}

func TestClassifyInvalidThresholdUsesDefault(t *testing.T) {
	index := newFakeIndex()
	index.addStored("stored-4", "Robots learn to walk", "")

	c := newTestClassifier(index)
	got := c.Classify(context.Background(), candidate("Robots learn to walk", ""), 0)

	if !got.IsDuplicate || got.Similarity != 1.0 {
		t.Fatalf("expected identical title to classify as duplicate with default threshold, got %+v", got)
	}
}
