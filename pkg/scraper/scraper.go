package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"github.com/xhad/articlerag/internal/models"
)

// Rejection reasons. All of them wrap models.ErrExtractionRejected.
var (
	ErrInvalidURL      = fmt.Errorf("%w: invalid url", models.ErrExtractionRejected)
	ErrDisallowedURL   = fmt.Errorf("%w: disallowed url", models.ErrExtractionRejected)
	ErrNotArticle      = fmt.Errorf("%w: not an article", models.ErrExtractionRejected)
	ErrContentTooShort = fmt.Errorf("%w: content too short", models.ErrExtractionRejected)
)

// DefaultDisallowedPatterns are URL substrings of known non-article pages.
var DefaultDisallowedPatterns = []string{
	// video hosts
	"youtube.com", "youtu.be", "vimeo.com", "tiktok.com",
	// auth pages
	"/login", "/signin", "/sign-in", "/signup", "/sign-up", "/register", "/auth/",
	// commerce
	"/product/", "/products/", "/category/", "/categories/", "/cart", "/checkout", "/shop/",
}

type ScraperConfig struct {
	Renderer           string        // http or headless
	Timeout            time.Duration // per page
	RateLimit          float64       // requests per second
	UserAgent          string
	DisallowedPatterns []string

	MinContentLength     int
	MinArticleParagraphs int
	MinArticleTextLength int
	FallbackParagraphs   int
	FallbackHeadings     int
	MinParagraphLength   int
}

type Scraper struct {
	config   ScraperConfig
	renderer Renderer
}

func NewWithConfig(config ScraperConfig) (*Scraper, error) {
	config = withDefaults(config)

	var renderer Renderer
	switch config.Renderer {
	case "http":
		renderer = NewHTTPRenderer(config.Timeout, config.RateLimit, config.UserAgent)
	case "headless":
		renderer = NewHeadlessRenderer(config.Timeout, config.UserAgent)
	default:
		return nil, fmt.Errorf("unknown renderer: %s", config.Renderer)
	}

	return &Scraper{config: config, renderer: renderer}, nil
}

// NewWithRenderer builds a scraper that fetches pages through renderer.
func NewWithRenderer(config ScraperConfig, renderer Renderer) *Scraper {
	return &Scraper{config: withDefaults(config), renderer: renderer}
}

func withDefaults(config ScraperConfig) ScraperConfig {
	if config.Renderer == "" {
		config.Renderer = "http"
	}
	if config.Timeout == 0 {
		config.Timeout = 25 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2 // 2 requests per second by default
	}
	if config.DisallowedPatterns == nil {
		config.DisallowedPatterns = DefaultDisallowedPatterns
	}
	if config.MinContentLength == 0 {
		config.MinContentLength = 300
	}
	if config.MinArticleParagraphs == 0 {
		config.MinArticleParagraphs = 3
	}
	if config.MinArticleTextLength == 0 {
		config.MinArticleTextLength = 500
	}
	if config.FallbackParagraphs == 0 {
		config.FallbackParagraphs = 5
	}
	if config.FallbackHeadings == 0 {
		config.FallbackHeadings = 1
	}
	if config.MinParagraphLength == 0 {
		config.MinParagraphLength = 40
	}
	return config
}

// Extract renders url and pulls the article out of it. Every failure wraps
// models.ErrExtractionRejected.
func (s *Scraper) Extract(ctx context.Context, url string) (*models.Article, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, ErrInvalidURL
	}

	if pattern, ok := s.disallowed(url); ok {
		log.Debug().Str("url", url).Str("pattern", pattern).Msg("url rejected before fetch")
		return nil, fmt.Errorf("%w: matches %q", ErrDisallowedURL, pattern)
	}

	html, err := s.renderer.Render(ctx, url)
	if err != nil {
		if errors.Is(err, models.ErrExtractionRejected) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrExtractionRejected, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse html: %v", models.ErrExtractionRejected, err)
	}

	if !s.LooksLikeArticle(doc) {
		return nil, ErrNotArticle
	}

	article := &models.Article{
		URL:       url,
		Title:     extractTitle(doc),
		Author:    extractAuthor(doc),
		Published: extractPublished(doc),
		SiteName:  metaContent(doc, `meta[property="og:site_name"]`),
	}

	doc.Find(noiseSelector).Remove()

	content := readableContent(doc)
	if runeLen(content) < s.config.MinContentLength {
		content = s.fallbackContent(doc)
	}
	if runeLen(content) < s.config.MinContentLength {
		return nil, fmt.Errorf("%w: %d characters", ErrContentTooShort, runeLen(content))
	}

	article.Content = content
	log.Debug().
		Str("url", url).
		Str("title", article.Title).
		Int("length", runeLen(content)).
		Msg("article extracted")

	return article, nil
}

func (s *Scraper) disallowed(url string) (string, bool) {
	lower := strings.ToLower(url)
	for _, pattern := range s.config.DisallowedPatterns {
		if pattern != "" && strings.Contains(lower, strings.ToLower(pattern)) {
			return pattern, true
		}
	}
	return "", false
}
