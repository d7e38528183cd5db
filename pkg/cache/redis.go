package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xhad/articlerag/internal/models"
	"github.com/xhad/articlerag/internal/types"
)

var _ types.ArticleCache = (*ArticleCache)(nil)

const articlePrefix = "article:"

// entry keeps the fields that models.Article leaves out of its JSON.
type entry struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Published string `json:"published"`
	Content   string `json:"content"`
	SiteName  string `json:"siteName"`
}

// ArticleCache stores extracted articles in Redis keyed by URL.
// Entries expire after the configured TTL.
type ArticleCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewArticleCache(client *redis.Client, ttl time.Duration) *ArticleCache {
	return &ArticleCache{client: client, ttl: ttl}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

func (c *ArticleCache) Get(ctx context.Context, url string) (*models.Article, bool, error) {
	data, err := c.client.Get(ctx, articlePrefix+url).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get article: %w", err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal article: %w", err)
	}

	return &models.Article{
		URL:       e.URL,
		Title:     e.Title,
		Author:    e.Author,
		Published: e.Published,
		Content:   e.Content,
		SiteName:  e.SiteName,
	}, true, nil
}

func (c *ArticleCache) Put(ctx context.Context, url string, article *models.Article) error {
	if article == nil {
		return nil
	}

	data, err := json.Marshal(entry{
		URL:       url,
		Title:     article.Title,
		Author:    article.Author,
		Published: article.Published,
		Content:   article.Content,
		SiteName:  article.SiteName,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal article: %w", err)
	}

	if err := c.client.Set(ctx, articlePrefix+url, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save article: %w", err)
	}
	return nil
}
