package config

import (
	"fmt"
	"net/url"
	"strings"
)

var qdrantSchemes = map[string]bool{"http": true, "https": true, "grpc": true, "grpcs": true}

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate server config
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "port must be between 1 and 65535",
		})
	}

	// Validate LLM config
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.api_key",
				Message: "OpenAI API key is required",
			})
		}
	case "ollama":
		if c.LLM.BaseURL == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "Ollama base URL is required",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unknown provider: %s", c.LLM.Provider),
		})
	}

	if c.LLM.BaseURL != "" {
		if u, err := url.Parse(c.LLM.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "llm.base_url",
				Message: "invalid base URL",
			})
		}
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	temperatures := []struct {
		field string
		value float64
	}{
		{"llm.answer_temperature", c.LLM.AnswerTemperature},
		{"llm.quiz_temperature", c.LLM.QuizTemperature},
		{"llm.summary_temperature", c.LLM.SummaryTemperature},
	}
	for _, t := range temperatures {
		if t.value < 0 || t.value > 2 {
			errors = append(errors, ValidationError{
				Field:   t.field,
				Message: "temperature must be between 0 and 2",
			})
		}
	}

	// Validate store config
	switch c.Store.Backend {
	case "qdrant":
		if c.Store.QdrantAddr == "" {
			errors = append(errors, ValidationError{
				Field:   "store.qdrant_addr",
				Message: "qdrant address is required",
			})
		} else if strings.Contains(c.Store.QdrantAddr, "://") {
			u, err := url.Parse(c.Store.QdrantAddr)
			if err != nil || u.Hostname() == "" || !qdrantSchemes[u.Scheme] {
				errors = append(errors, ValidationError{
					Field:   "store.qdrant_addr",
					Message: "qdrant URL must be http(s)://host[:port] or host:port",
				})
			}
		}
	case "pgvector":
		if c.Store.DatabaseURL == "" {
			errors = append(errors, ValidationError{
				Field:   "store.database_url",
				Message: "database URL is required for pgvector",
			})
		} else if _, err := url.Parse(c.Store.DatabaseURL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "store.database_url",
				Message: "invalid database URL",
			})
		}
	case "memory":
	default:
		errors = append(errors, ValidationError{
			Field:   "store.backend",
			Message: fmt.Sprintf("unknown backend: %s", c.Store.Backend),
		})
	}

	if c.Store.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "store.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	switch c.Store.Distance {
	case "cosine", "dot", "euclid":
		if c.Store.Backend == "memory" && c.Store.Distance != "cosine" {
			errors = append(errors, ValidationError{
				Field:   "store.distance",
				Message: "memory backend only supports cosine",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "store.distance",
			Message: fmt.Sprintf("unknown distance: %s", c.Store.Distance),
		})
	}

	if c.Store.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "store.top_k",
			Message: "top_k must be positive",
		})
	}

	// Validate scraper config
	if c.Scraper.Renderer != "http" && c.Scraper.Renderer != "headless" {
		errors = append(errors, ValidationError{
			Field:   "scraper.renderer",
			Message: "renderer must be http or headless",
		})
	}

	if c.Scraper.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "scraper.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	for _, pattern := range c.Scraper.DisallowedPatterns {
		if strings.TrimSpace(pattern) == "" {
			errors = append(errors, ValidationError{
				Field:   "scraper.disallowed_patterns",
				Message: "patterns must not be empty",
			})
			break
		}
	}

	// Validate processor config
	if c.Processor.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Cache.RedisURL != "" {
		if u, err := url.Parse(c.Cache.RedisURL); err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			errors = append(errors, ValidationError{
				Field:   "cache.redis_url",
				Message: "invalid redis URL",
			})
		}
	}

	return errors
}
