package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
server:
  port: 9000
  allowed_origins:
    - "http://localhost:3000"
  request_timeout: 30s

llm:
  provider: "ollama"
  base_url: "http://localhost:11434"
  model: "llama3"
  max_tokens: 1000
  answer_temperature: 0.1

store:
  backend: "memory"
  collection: "test_articles"
  vector_dim: 768
  top_k: 3

scraper:
  renderer: "http"
  rate_limit: 1.5
  disallowed_patterns:
    - "/paywall/"
  min_content_length: 250

processor:
  chunk_size: 800

log:
  level: "debug"
  pretty: true
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	// Test loading config
	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	// Verify loaded values
	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, config.Server.AllowedOrigins)
	assert.Equal(t, 30*time.Second, config.Server.RequestTimeout)
	assert.Equal(t, "ollama", config.LLM.Provider)
	assert.Equal(t, "llama3", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, 0.1, config.LLM.AnswerTemperature)
	assert.Equal(t, "memory", config.Store.Backend)
	assert.Equal(t, "test_articles", config.Store.Collection)
	assert.Equal(t, 3, config.Store.TopK)
	assert.Equal(t, []string{"/paywall/"}, config.Scraper.DisallowedPatterns)
	assert.Equal(t, 250, config.Scraper.MinContentLength)
	assert.Equal(t, 800, config.Processor.ChunkSize)
	assert.True(t, config.Log.Pretty)

	// Defaults fill the rest
	assert.Equal(t, "nomic-embed-text:latest", config.LLM.EmbeddingModel)
	assert.Equal(t, 0.3, config.LLM.QuizTemperature)
	assert.Equal(t, "cosine", config.Store.Distance)
}

func TestDefaultConfig(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	assert.Equal(t, 8000, config.Server.Port)
	assert.Equal(t, int64(5<<20), config.Server.MaxBodyBytes)
	assert.Equal(t, "openai", config.LLM.Provider)
	assert.Equal(t, "text-embedding-3-small", config.LLM.EmbeddingModel)
	assert.Equal(t, 0.2, config.LLM.AnswerTemperature)
	assert.Equal(t, 0.5, config.LLM.SummaryTemperature)
	assert.Equal(t, "qdrant", config.Store.Backend)
	assert.Equal(t, "articles", config.Store.Collection)
	assert.Equal(t, 1536, config.Store.VectorDim)
	assert.Equal(t, 5, config.Store.TopK)
	assert.Equal(t, 300, config.Scraper.MinContentLength)
	assert.Equal(t, 1500, config.Processor.ChunkSize)
}

func TestConfigValidation(t *testing.T) {
	valid := func() Config {
		c := Config{}
		c.LLM.APIKey = "sk-test"
		applyDefaults(&c)
		return c
	}

	tests := []struct {
		name          string
		mutate        func(c *Config)
		expectedErrs  int
		errorMessages []string
	}{
		{
			name:         "valid config",
			mutate:       func(c *Config) {},
			expectedErrs: 0,
		},
		{
			name: "invalid config",
			mutate: func(c *Config) {
				c.LLM.APIKey = ""
				c.LLM.MaxTokens = 5000
				c.LLM.QuizTemperature = 3.0
				c.Store.VectorDim = -1
				c.Processor.ChunkSize = -1
			},
			expectedErrs: 5,
			errorMessages: []string{
				"llm.api_key: OpenAI API key is required",
				"max_tokens: max_tokens must be between 1 and 4096",
				"llm.quiz_temperature: temperature must be between 0 and 2",
				"vector_dim: vector_dim must be positive",
				"processor.chunk_size: chunk_size must be positive",
			},
		},
		{
			name: "pgvector without database url",
			mutate: func(c *Config) {
				c.Store.Backend = "pgvector"
			},
			expectedErrs:  1,
			errorMessages: []string{"store.database_url: database URL is required for pgvector"},
		},
		{
			name: "memory backend with dot distance",
			mutate: func(c *Config) {
				c.Store.Backend = "memory"
				c.Store.Distance = "dot"
			},
			expectedErrs:  1,
			errorMessages: []string{"memory backend only supports cosine"},
		},
		{
			name: "qdrant rest url",
			mutate: func(c *Config) {
				c.Store.QdrantAddr = "https://xyz.cloud.qdrant.io:6333"
			},
			expectedErrs: 0,
		},
		{
			name: "qdrant url with unknown scheme",
			mutate: func(c *Config) {
				c.Store.QdrantAddr = "ftp://qdrant:6334"
			},
			expectedErrs:  1,
			errorMessages: []string{"store.qdrant_addr: qdrant URL must be"},
		},
		{
			name: "unknown renderer and bad redis url",
			mutate: func(c *Config) {
				c.Scraper.Renderer = "phantom"
				c.Cache.RedisURL = "http://localhost:6379"
			},
			expectedErrs: 2,
			errorMessages: []string{
				"scraper.renderer: renderer must be http or headless",
				"cache.redis_url: invalid redis URL",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(&config)

			errors := config.Validate()
			require.Len(t, errors, tt.expectedErrs)

			for i, msg := range tt.errorMessages {
				assert.Contains(t, errors[i].Error(), msg)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	t.Setenv("QDRANT_URL", "qdrant:6334")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("REDIS_URL", "redis://env-redis:6379/0")
	t.Setenv("PORT", "9090")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "ollama", config.LLM.Provider)
	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
	assert.Equal(t, "qdrant:6334", config.Store.QdrantAddr)
	assert.Equal(t, "postgres://env-db:5432/test", config.Store.DatabaseURL)
	assert.Equal(t, "redis://env-redis:6379/0", config.Cache.RedisURL)
	assert.Equal(t, 9090, config.Server.Port)
}

func TestQdrantAPIKeyFallback(t *testing.T) {
	t.Setenv("QDRANT_URL", "https://xyz.cloud.qdrant.io:6333")
	t.Setenv("QDRANT_API_KEY", "")
	t.Setenv("QDRANT_API", "legacy-key")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "https://xyz.cloud.qdrant.io:6333", config.Store.QdrantAddr)
	assert.Equal(t, "legacy-key", config.Store.QdrantAPIKey)

	t.Setenv("QDRANT_API_KEY", "current-key")
	mergeWithEnv(config)
	assert.Equal(t, "current-key", config.Store.QdrantAPIKey)
}
