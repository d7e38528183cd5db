// Package app wires configured components into a pipeline for the binaries.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/xhad/articlerag/internal/models"
	"github.com/xhad/articlerag/pkg/cache"
	"github.com/xhad/articlerag/pkg/config"
	"github.com/xhad/articlerag/pkg/llm"
	"github.com/xhad/articlerag/pkg/pipeline"
	"github.com/xhad/articlerag/pkg/processor"
	"github.com/xhad/articlerag/pkg/scraper"
	"github.com/xhad/articlerag/pkg/store"
)

// SetupLogger configures the global zerolog logger.
func SetupLogger(cfg config.LogConfig, out io.Writer) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Caller().Logger()
}

// Build constructs every component named by cfg. The returned close func
// releases the store and cache connections.
func Build(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, func(), error) {
	client, err := llm.NewClient(llm.ClientConfig{
		Provider:       cfg.LLM.Provider,
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
	})
	if err != nil {
		return nil, nil, err
	}

	embedder, err := llm.NewEmbedderWithConfig(client.Embedding, llm.EmbedderConfig{})
	if err != nil {
		return nil, nil, err
	}

	chatEngine, err := llm.NewWithConfig(client.Model, llm.ChatConfig{
		Temperature: cfg.LLM.AnswerTemperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	quizzer := llm.NewQuizGenerator(client.Model, llm.QuizConfig{
		Temperature: cfg.LLM.QuizTemperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	summarizer := llm.NewSummarizer(client.Model, llm.SummarizerConfig{
		Temperature: cfg.LLM.SummaryTemperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})

	extractor, err := scraper.NewWithConfig(scraper.ScraperConfig{
		Renderer:             cfg.Scraper.Renderer,
		Timeout:              cfg.Scraper.Timeout,
		RateLimit:            cfg.Scraper.RateLimit,
		UserAgent:            cfg.Scraper.UserAgent,
		DisallowedPatterns:   cfg.Scraper.DisallowedPatterns,
		MinContentLength:     cfg.Scraper.MinContentLength,
		MinArticleParagraphs: cfg.Scraper.MinArticleParagraphs,
		MinArticleTextLength: cfg.Scraper.MinArticleTextLength,
		FallbackParagraphs:   cfg.Scraper.FallbackParagraphs,
		FallbackHeadings:     cfg.Scraper.FallbackHeadings,
		MinParagraphLength:   cfg.Scraper.MinParagraphLength,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize scraper: %w", err)
	}

	chunker := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize: cfg.Processor.ChunkSize,
	})

	vectorStore, err := store.Open(ctx, store.Config{
		Backend:      cfg.Store.Backend,
		Distance:     models.Distance(cfg.Store.Distance),
		QdrantAddr:   cfg.Store.QdrantAddr,
		QdrantAPIKey: cfg.Store.QdrantAPIKey,
		QdrantTLS:    cfg.Store.QdrantTLS,
		DatabaseURL:  cfg.Store.DatabaseURL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}

	components := pipeline.Components{
		Extractor:  extractor,
		Chunker:    &chunker,
		Embedder:   embedder,
		Store:      vectorStore,
		Answerer:   chatEngine,
		Quizzer:    quizzer,
		Summarizer: summarizer,
	}

	closers := []func(){func() { vectorStore.Close() }}

	if cfg.Cache.RedisURL != "" {
		redisClient, err := cache.Connect(ctx, cfg.Cache.RedisURL)
		if err != nil {
			// The cache is optional
			log.Warn().Err(err).Msg("article cache disabled")
		} else {
			components.Cache = cache.NewArticleCache(redisClient, cfg.Cache.TTL)
			closers = append(closers, func() { redisClient.Close() })
		}
	}

	p := pipeline.New(pipeline.Config{
		Collection:       cfg.Store.Collection,
		VectorSize:       cfg.Store.VectorDim,
		Distance:         models.Distance(cfg.Store.Distance),
		TopK:             cfg.Store.TopK,
		MinContentLength: cfg.Scraper.MinContentLength,
	}, components)

	log.Info().
		Str("provider", cfg.LLM.Provider).
		Str("model", cfg.LLM.Model).
		Str("store", cfg.Store.Backend).
		Str("renderer", cfg.Scraper.Renderer).
		Bool("cache", components.Cache != nil).
		Msg("pipeline ready")

	return p, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}
