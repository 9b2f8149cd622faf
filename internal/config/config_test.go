package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultChunkSize, cfg.Ingest.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, DefaultHybridWeight, cfg.Retrieval.HybridWeight)
	assert.Equal(t, DefaultMetric, cfg.Retrieval.Metric)
	assert.Equal(t, DefaultProvider, cfg.Embedding.Provider)
	assert.Equal(t, DefaultListenAddr, cfg.Server.ListenAddr)
}

func TestLoad_PartialFileFillsDefaults(t *testing.T) {
	path := writeConfig(t, `
[ingest]
chunk_size = 500

[retrieval]
hybrid_weight = 0.7
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Ingest.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, 0.7, cfg.Retrieval.HybridWeight)
	assert.Equal(t, DefaultMetric, cfg.Retrieval.Metric)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"overlap >= size": `
[ingest]
chunk_size = 100
chunk_overlap = 100
`,
		"bad metric": `
[retrieval]
metric = "manhattan"
`,
		"bad weight": `
[retrieval]
hybrid_weight = 1.5
`,
		"bad provider": `
[embedding]
provider = "cohere"
`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CASEKB_DATA_DIR", "/var/lib/casekb")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CASEKB_EMBEDDING_PROVIDER", "openai")

	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/casekb", cfg.DataDir)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
}

func TestLoad_MalformedTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "not [valid toml"))
	assert.Error(t, err)
}

func TestResolveDataDir(t *testing.T) {
	cfg := Config{DataDir: "/custom"}
	dir, err := cfg.ResolveDataDir()
	require.NoError(t, err)
	assert.Equal(t, "/custom", dir)

	dir, err = Config{}.ResolveDataDir()
	require.NoError(t, err)
	assert.Contains(t, dir, ".casekb")
}
