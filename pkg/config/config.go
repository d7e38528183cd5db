package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Store     StoreConfig     `yaml:"store"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Processor ProcessorConfig `yaml:"processor"`
	Cache     CacheConfig     `yaml:"cache"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
}

type LLMConfig struct {
	Provider           string  `yaml:"provider"`
	BaseURL            string  `yaml:"base_url"`
	APIKey             string  `yaml:"api_key"`
	Model              string  `yaml:"model"`
	EmbeddingModel     string  `yaml:"embedding_model"`
	MaxTokens          int     `yaml:"max_tokens"`
	AnswerTemperature  float64 `yaml:"answer_temperature"`
	QuizTemperature    float64 `yaml:"quiz_temperature"`
	SummaryTemperature float64 `yaml:"summary_temperature"`
}

type StoreConfig struct {
	Backend    string `yaml:"backend"`
	Collection string `yaml:"collection"`
	VectorDim  int    `yaml:"vector_dim"`
	Distance   string `yaml:"distance"`
	TopK       int    `yaml:"top_k"`

	QdrantAddr   string `yaml:"qdrant_addr"`
	QdrantAPIKey string `yaml:"qdrant_api_key"`
	QdrantTLS    bool   `yaml:"qdrant_tls"`

	DatabaseURL string `yaml:"database_url"`
}

type ScraperConfig struct {
	Renderer             string        `yaml:"renderer"`
	Timeout              time.Duration `yaml:"timeout"`
	RateLimit            float64       `yaml:"rate_limit"`
	UserAgent            string        `yaml:"user_agent"`
	DisallowedPatterns   []string      `yaml:"disallowed_patterns"`
	MinContentLength     int           `yaml:"min_content_length"`
	MinArticleParagraphs int           `yaml:"min_article_paragraphs"`
	MinArticleTextLength int           `yaml:"min_article_text_length"`
	FallbackParagraphs   int           `yaml:"fallback_paragraphs"`
	FallbackHeadings     int           `yaml:"fallback_headings"`
	MinParagraphLength   int           `yaml:"min_paragraph_length"`
}

type ProcessorConfig struct {
	ChunkSize int `yaml:"chunk_size"`
}

type CacheConfig struct {
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/articlerag/config.yaml"),
			"/etc/articlerag/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Port == 0 {
		config.Server.Port = 8000
	}
	if len(config.Server.AllowedOrigins) == 0 {
		config.Server.AllowedOrigins = []string{"*"}
	}
	if config.Server.RequestTimeout == 0 {
		config.Server.RequestTimeout = 120 * time.Second
	}
	if config.Server.MaxBodyBytes == 0 {
		config.Server.MaxBodyBytes = 5 << 20
	}

	if config.LLM.Provider == "" {
		config.LLM.Provider = "openai"
	}
	if config.LLM.Model == "" {
		if config.LLM.Provider == "ollama" {
			config.LLM.Model = "mistral"
		} else {
			config.LLM.Model = "gpt-4-1106-preview"
		}
	}
	if config.LLM.EmbeddingModel == "" {
		if config.LLM.Provider == "ollama" {
			config.LLM.EmbeddingModel = "nomic-embed-text:latest"
		} else {
			config.LLM.EmbeddingModel = "text-embedding-3-small"
		}
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.AnswerTemperature == 0 {
		config.LLM.AnswerTemperature = 0.2
	}
	if config.LLM.QuizTemperature == 0 {
		config.LLM.QuizTemperature = 0.3
	}
	if config.LLM.SummaryTemperature == 0 {
		config.LLM.SummaryTemperature = 0.5
	}

	if config.Store.Backend == "" {
		config.Store.Backend = "qdrant"
	}
	if config.Store.Collection == "" {
		config.Store.Collection = "articles"
	}
	if config.Store.VectorDim == 0 {
		if config.LLM.Provider == "ollama" {
			config.Store.VectorDim = 768
		} else {
			config.Store.VectorDim = 1536
		}
	}
	if config.Store.Distance == "" {
		config.Store.Distance = "cosine"
	}
	if config.Store.TopK == 0 {
		config.Store.TopK = 5
	}
	if config.Store.QdrantAddr == "" {
		config.Store.QdrantAddr = "localhost:6334"
	}

	if config.Scraper.Renderer == "" {
		config.Scraper.Renderer = "http"
	}
	if config.Scraper.Timeout == 0 {
		config.Scraper.Timeout = 25 * time.Second
	}
	if config.Scraper.RateLimit == 0 {
		config.Scraper.RateLimit = 2.0
	}
	if config.Scraper.MinContentLength == 0 {
		config.Scraper.MinContentLength = 300
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 1500
	}

	if config.Cache.TTL == 0 {
		config.Cache.TTL = 24 * time.Hour
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
}

func mergeWithEnv(config *Config) {
	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = provider
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" && config.LLM.Provider != "ollama" {
		config.LLM.BaseURL = baseURL
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = baseURL
	}
	if qdrantURL := os.Getenv("QDRANT_URL"); qdrantURL != "" {
		config.Store.QdrantAddr = qdrantURL
	}
	if qdrantKey := os.Getenv("QDRANT_API_KEY"); qdrantKey != "" {
		config.Store.QdrantAPIKey = qdrantKey
	} else if qdrantKey := os.Getenv("QDRANT_API"); qdrantKey != "" {
		config.Store.QdrantAPIKey = qdrantKey
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Store.DatabaseURL = dbURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.Cache.RedisURL = redisURL
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}
