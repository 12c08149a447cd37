package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Recommend.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Recommend.TopK)
	}
	if cfg.Recommend.CandidatePool != 50 {
		t.Errorf("expected CandidatePool=50, got %d", cfg.Recommend.CandidatePool)
	}
	if cfg.Recommend.KeywordMinLength != 3 {
		t.Errorf("expected KeywordMinLength=3, got %d", cfg.Recommend.KeywordMinLength)
	}
	if cfg.Embedding.Model != "all-minilm" {
		t.Errorf("expected model all-minilm, got %s", cfg.Embedding.Model)
	}
	if cfg.Source.Table != "books" {
		t.Errorf("expected table books, got %s", cfg.Source.Table)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bookrec.yaml")

	content := `
embedding:
  provider: hashing
  model: ""
  dimension: 64
recommend:
  top_k: 10
  cache_ttl: 30s
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Embedding.Provider != "hashing" {
		t.Errorf("expected provider hashing, got %s", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Model != "" {
		t.Errorf("expected empty model, got %q", cfg.Embedding.Model)
	}
	if cfg.Embedding.Dimension != 64 {
		t.Errorf("expected Dimension=64, got %d", cfg.Embedding.Dimension)
	}
	if cfg.Recommend.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Recommend.TopK)
	}
	if cfg.Recommend.CacheTTL != 30*time.Second {
		t.Errorf("expected CacheTTL=30s, got %s", cfg.Recommend.CacheTTL)
	}
	// untouched sections keep their defaults
	if cfg.Recommend.CandidatePool != 50 {
		t.Errorf("expected CandidatePool=50, got %d", cfg.Recommend.CandidatePool)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"unknown provider", "embedding:\n  provider: word2vec\n"},
		{"zero top_k", "recommend:\n  top_k: 0\n"},
		{"bad compression", "store:\n  compression: gzip\n"},
		{"bad log level", "logging:\n  level: loud\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bookrec.yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".bookrec"), 0755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(tmpDir, ".bookrec", "config.yaml")

	content := `
serve:
  addr: ":9090"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Serve.Addr != ":9090" {
		t.Errorf("expected Addr=:9090, got %s", cfg.Serve.Addr)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookrec.yaml")
	cfg := DefaultConfig()
	cfg.Recommend.TopK = 7

	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Recommend.TopK != 7 {
		t.Errorf("expected TopK=7, got %d", loaded.Recommend.TopK)
	}
}

func TestArtifactPath(t *testing.T) {
	cfg := DefaultConfig()

	path := cfg.ArtifactPath("/srv/books")
	expected := filepath.Join("/srv/books", "recommender", "embeddings.db")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}

	cfg.Source.Path = "/data/library.db"
	if got := cfg.SourcePath("/srv/books"); got != "/data/library.db" {
		t.Errorf("absolute source path should be kept, got %s", got)
	}
}
