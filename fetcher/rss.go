package fetcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"newswire/types"
)

// FeedPresets maps friendly names to RSS feed URLs. The ingest keyword
// selects a preset when the source type is rss.
var FeedPresets = map[string]string{
	"cna": "https://www.channelnewsasia.com/api/v1/rss-outbound-feed?_format=xml",
	"st":  "https://www.straitstimes.com/news/singapore/rss.xml",
	"hn":  "https://hnrss.org/newest",
	"tr":  "https://www.technologyreview.com/feed/",
}

// ResolveFeedURL turns a keyword into a feed URL: preset name, direct
// URL, or the configured fallback.
func ResolveFeedURL(keyword, fallback string) string {
	if url, ok := FeedPresets[keyword]; ok {
		return url
	}
	if strings.HasPrefix(keyword, "http://") || strings.HasPrefix(keyword, "https://") {
		return keyword
	}
	return fallback
}

// RSSClient ingests from an RSS/Atom feed instead of the search API.
type RSSClient struct {
	defaultFeed string
	parser      *gofeed.Parser
	extractor   *Extractor
	logger      *zap.Logger
}

// NewRSSClient builds the RSS source. extractor may be nil to skip
// full-content enrichment.
func NewRSSClient(defaultFeed string, extractor *Extractor, logger *zap.Logger) *RSSClient {
	return &RSSClient{
		defaultFeed: defaultFeed,
		parser:      gofeed.NewParser(),
		extractor:   extractor,
		logger:      logger,
	}
}

// Source identifies this fetcher in FetchRun records.
func (c *RSSClient) Source() types.SourceType {
	return types.SourceRSS
}

// Fetch parses the feed selected by keyword and returns up to limit
// items, enriching missing bodies via the extractor when configured.
func (c *RSSClient) Fetch(ctx context.Context, keyword string, limit int) ([]types.Article, error) {
	feedURL := ResolveFeedURL(keyword, c.defaultFeed)

	feed, err := c.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: parse feed %s: %v", ErrBadResponse, feedURL, err)
	}

	count := min(len(feed.Items), limit)
	articles := make([]types.Article, 0, count)
	for _, item := range feed.Items[:count] {
		articles = append(articles, feedItemToArticle(item, feed.Title))
	}

	if c.extractor != nil {
		c.extractor.FillContent(ctx, articles)
	}

	c.logger.Info("fetched articles from rss feed",
		zap.String("feed", feedURL), zap.Int("count", len(articles)))
	return articles, nil
}

func feedItemToArticle(item *gofeed.Item, feedTitle string) types.Article {
	article := types.Article{
		Title:   item.Title,
		Content: item.Content,
		Source:  feedTitle,
	}
	if article.Content == "" {
		article.Content = item.Description
	}
	if item.Link != "" {
		link := item.Link
		article.URL = &link
	}
	if item.Image != nil {
		article.ImageURL = item.Image.URL
	}
	if len(item.Categories) > 0 {
		article.Category = item.Categories[0]
	}
	if item.PublishedParsed != nil {
		article.PublishedAt = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		article.PublishedAt = *item.UpdatedParsed
	}
	return article
}
