package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
		RateLimit   float64 `yaml:"rate_limit"`
	} `yaml:"llm"`

	Embeddings struct {
		Enabled     bool   `yaml:"enabled"`
		BaseURL     string `yaml:"base_url"`
		Model       string `yaml:"model"`
		FallbackDim int    `yaml:"fallback_dim"`
	} `yaml:"embeddings"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"database"`

	Chunker struct {
		MaxChunkSize     int `yaml:"max_chunk_size"`
		OverlapSentences int `yaml:"overlap_sentences"`
		MinSentences     int `yaml:"min_sentences_per_chunk"`
	} `yaml:"chunker"`

	Transcript struct {
		TopicChunkSize  int `yaml:"topic_chunk_size"`
		MaxSampleLength int `yaml:"max_sample_length"`
	} `yaml:"transcript"`

	Paths struct {
		InputsDir  string `yaml:"inputs_dir"`
		OutputsDir string `yaml:"outputs_dir"`
	} `yaml:"paths"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/qualcoder/config.yaml"),
			"/etc/qualcoder/config.yaml",
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

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 1000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.3
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.RateLimit == 0 {
		config.LLM.RateLimit = 1.0
	}

	if config.Embeddings.Model == "" {
		config.Embeddings.Model = "nomic-embed-text:latest"
	}
	if config.Embeddings.BaseURL == "" {
		config.Embeddings.BaseURL = config.LLM.BaseURL
	}
	if config.Embeddings.FallbackDim == 0 {
		config.Embeddings.FallbackDim = 768
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "chunks"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}

	if config.Chunker.MaxChunkSize == 0 {
		config.Chunker.MaxChunkSize = 512
	}
	if config.Chunker.OverlapSentences == 0 {
		config.Chunker.OverlapSentences = 2
	}
	if config.Chunker.MinSentences == 0 {
		config.Chunker.MinSentences = 1
	}

	if config.Transcript.TopicChunkSize == 0 {
		config.Transcript.TopicChunkSize = 8000
	}
	if config.Transcript.MaxSampleLength == 0 {
		config.Transcript.MaxSampleLength = 12000
	}

	if config.Paths.InputsDir == "" {
		config.Paths.InputsDir = "inputs"
	}
	if config.Paths.OutputsDir == "" {
		config.Paths.OutputsDir = "outputs"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
		config.Embeddings.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if model := os.Getenv("QUALCODER_MODEL"); model != "" {
		config.LLM.Model = model
	}
}
