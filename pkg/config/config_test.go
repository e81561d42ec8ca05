package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmw/qualcoder/pkg/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// clearEnv keeps ambient environment variables from leaking into
// assertions about file and default values.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OLLAMA_BASE_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("QUALCODER_MODEL", "")
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	path := writeConfigFile(t, `
llm:
  base_url: http://llm-host:11434
  model: llama3
  max_tokens: 2000
chunker:
  max_chunk_size: 256
paths:
  inputs_dir: /data/in
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://llm-host:11434", cfg.LLM.BaseURL)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, 2000, cfg.LLM.MaxTokens)
	assert.Equal(t, 256, cfg.Chunker.MaxChunkSize)
	assert.Equal(t, "/data/in", cfg.Paths.InputsDir)
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	clearEnv(t)

	path := writeConfigFile(t, "llm:\n  model: llama3\n")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:11434", cfg.LLM.BaseURL)
	assert.Equal(t, 1000, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.3, cfg.LLM.Temperature, 0.001)
	assert.Equal(t, "nomic-embed-text:latest", cfg.Embeddings.Model)
	assert.Equal(t, 768, cfg.Embeddings.FallbackDim)
	assert.Equal(t, "chunks", cfg.Database.TableName)
	assert.Equal(t, 512, cfg.Chunker.MaxChunkSize)
	assert.Equal(t, 8000, cfg.Transcript.TopicChunkSize)
	assert.Equal(t, "inputs", cfg.Paths.InputsDir)
	assert.Equal(t, "outputs", cfg.Paths.OutputsDir)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://env-host:11434")
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("QUALCODER_MODEL", "env-model")

	path := writeConfigFile(t, "llm:\n  base_url: http://file-host:11434\n")
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env-host:11434", cfg.LLM.BaseURL)
	assert.Equal(t, "http://env-host:11434", cfg.Embeddings.BaseURL)
	assert.Equal(t, "postgres://env/db", cfg.Database.URL)
	assert.Equal(t, "env-model", cfg.LLM.Model)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "llm: [not a mapping")
	_, err := config.LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	clearEnv(t)

	path := writeConfigFile(t, "llm:\n  model: llama3\n")
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Empty(t, cfg.Validate())
}

func TestValidate_CatchesBadValues(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.MaxTokens = 9999
	cfg.LLM.Temperature = 3.5
	cfg.Chunker.MinSentences = 1
	cfg.Chunker.MaxChunkSize = 512
	cfg.Transcript.TopicChunkSize = 8000

	problems := cfg.Validate()

	fields := make(map[string]bool)
	for _, p := range problems {
		fields[p.Field] = true
	}
	assert.True(t, fields["llm.base_url"])
	assert.True(t, fields["llm.max_tokens"])
	assert.True(t, fields["llm.temperature"])
	assert.True(t, fields["llm.rate_limit"])
}

func TestValidate_DatabaseChecksOnlyWhenConfigured(t *testing.T) {
	clearEnv(t)

	path := writeConfigFile(t, "llm:\n  model: llama3\n")
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	cfg.Database.URL = "postgres://localhost/qual"
	cfg.Database.VectorDim = 0
	cfg.Database.BatchSize = 0

	problems := cfg.Validate()
	fields := make(map[string]bool)
	for _, p := range problems {
		fields[p.Field] = true
	}
	assert.True(t, fields["database.vector_dim"])
	assert.True(t, fields["database.batch_size"])
}
