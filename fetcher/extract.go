package fetcher

import (
	"context"
	"sync"
	"time"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"newswire/types"
)

const (
	extractWorkers = 5
	extractTimeout = 30 * time.Second
)

// Extractor fills in full article text for feed items that only carry a
// summary, using a small worker pool. Extraction failures are logged and
// leave the article as fetched; they never fail the batch.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates a content extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// FillContent extracts readable text for every article that has a URL
// but no body yet. Articles are mutated in place.
func (e *Extractor) FillContent(ctx context.Context, articles []types.Article) {
	indexes := make(chan int, len(articles))
	var wg sync.WaitGroup

	for w := 0; w < extractWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if ctx.Err() != nil {
					return
				}
				e.extract(&articles[i])
			}
		}()
	}

	for i := range articles {
		if articles[i].Content == "" && articles[i].URL != nil {
			indexes <- i
		}
	}
	close(indexes)
	wg.Wait()
}

func (e *Extractor) extract(article *types.Article) {
	result, err := readability.FromURL(*article.URL, extractTimeout)
	if err != nil {
		e.logger.Warn("content extraction failed",
			zap.String("url", *article.URL), zap.Error(err))
		return
	}

	article.Content = result.TextContent
	if article.ImageURL == "" {
		article.ImageURL = result.Image
	}
}
