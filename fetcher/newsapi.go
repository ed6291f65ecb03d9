// Package fetcher pulls article batches from external sources: the
// keyword search API and, alternatively, RSS feeds. Transport and HTTP
// failures are mapped to typed errors; the fetcher itself never retries.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"newswire/config"
	"newswire/types"
)

// maxErrorBodyBytes bounds how much of an upstream error body is kept.
const maxErrorBodyBytes = 4 << 10

// Client calls the external article search API.
type Client struct {
	baseURL  string
	apiKey   string
	language string
	http     *http.Client
	logger   *zap.Logger
}

// NewClient builds a search API client with a hard request timeout.
func NewClient(cfg config.NewsAPI, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		language: cfg.Language,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Source identifies this fetcher in FetchRun records.
func (c *Client) Source() types.SourceType {
	return types.SourceNewsAPI
}

// searchResponse is the upstream envelope: {"articles": {"results": [...]}}.
type searchResponse struct {
	Articles *struct {
		Results []searchResult `json:"results"`
	} `json:"articles"`
	Error string `json:"error"`
}

type searchResult struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	DateTimePub string `json:"dateTimePub"`
	Source      struct {
		Title string `json:"title"`
	} `json:"source"`
}

// Fetch retrieves up to limit articles for the keyword, newest first.
func (c *Client) Fetch(ctx context.Context, keyword string, limit int) ([]types.Article, error) {
	endpoint, err := c.buildURL(keyword, limit)
	if err != nil {
		return nil, fmt.Errorf("build news api url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build news api request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("news api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, newAPIError(resp.StatusCode, string(body))
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if payload.Articles == nil {
		return nil, fmt.Errorf("%w: missing results array", ErrBadResponse)
	}

	articles := make([]types.Article, 0, len(payload.Articles.Results))
	for _, result := range payload.Articles.Results {
		articles = append(articles, result.toArticle())
	}

	c.logger.Info("fetched articles from news api",
		zap.String("keyword", keyword), zap.Int("count", len(articles)))
	return articles, nil
}

func (c *Client) buildURL(keyword string, limit int) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("keyword", keyword)
	q.Set("articlesPage", "1")
	q.Set("articlesCount", strconv.Itoa(limit))
	q.Set("articlesSortBy", "date")
	q.Set("articlesSortByAsc", "false")
	q.Set("lang", c.language)
	q.Set("resultType", "articles")
	q.Set("apiKey", c.apiKey)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (r searchResult) toArticle() types.Article {
	article := types.Article{
		Title:    r.Title,
		Content:  r.Body,
		ImageURL: r.Image,
		Source:   r.Source.Title,
	}
	if r.URL != "" {
		u := r.URL
		article.URL = &u
	}
	if ts, err := time.Parse(time.RFC3339, r.DateTimePub); err == nil {
		article.PublishedAt = ts
	} else {
		article.PublishedAt = time.Now()
	}
	return article
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
