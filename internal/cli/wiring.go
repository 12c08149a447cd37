package cli

import (
	"fmt"

	"bookrec/config"
	"bookrec/internal/adapter/embedding"
	"bookrec/internal/adapter/source"
	"bookrec/internal/adapter/store"
	"bookrec/internal/usecase"
)

func openArtifact(cfg *config.Config) (*store.ArtifactStore, error) {
	st, err := store.NewArtifactStore(cfg.ArtifactPath(GetRootDir()), cfg.Store.Compression)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding store: %w", err)
	}
	return st, nil
}

func openSource(cfg *config.Config) (*source.SQLiteSource, error) {
	return source.OpenSQLite(cfg.SourcePath(GetRootDir()), cfg.Source.Table)
}

// newEngine wires the query engine the same way for every command.
func newEngine(cfg *config.Config) (*usecase.Engine, error) {
	art, err := openArtifact(cfg)
	if err != nil {
		return nil, err
	}
	return usecase.NewEngine(art, embedding.NewFactory(cfg.Embedding), usecase.EngineOptions{
		Model:            embedding.ConfiguredModel(cfg.Embedding),
		CandidatePool:    cfg.Recommend.CandidatePool,
		KeywordMinLength: cfg.Recommend.KeywordMinLength,
	}), nil
}
