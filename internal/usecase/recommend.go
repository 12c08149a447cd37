package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"bookrec/internal/adapter/retriever"
	"bookrec/internal/domain"
	"bookrec/internal/logging"
	"bookrec/internal/metrics"
	"bookrec/internal/port"
)

// EngineState is the lifecycle of an Engine.
type EngineState int32

const (
	StateUnloaded EngineState = iota
	StateLoading
	StateReady
)

func (s EngineState) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	}
	return fmt.Sprintf("EngineState(%d)", int32(s))
}

// EngineOptions configures an Engine.
type EngineOptions struct {
	// Model is the configured encoder model. Empty means the model named
	// by the artifact.
	Model            string
	CandidatePool    int
	KeywordMinLength int
}

// Engine answers recommend queries against one loaded embedding store.
// The store and encoder are loaded once, on first use or by Load, and are
// read-only afterwards.
type Engine struct {
	artifact port.ArtifactStore
	factory  port.EmbedderFactory
	model    string
	ranker   *retriever.Hybrid

	state  atomic.Int32
	loaded atomic.Pointer[loadedStore]
	group  singleflight.Group

	onLoad []func()
	log    zerolog.Logger
}

type loadedStore struct {
	store   *domain.EmbeddingStore
	encoder port.Embedder
}

// NewEngine creates an unloaded engine.
func NewEngine(artifact port.ArtifactStore, factory port.EmbedderFactory, opts EngineOptions) *Engine {
	return &Engine{
		artifact: artifact,
		factory:  factory,
		model:    opts.Model,
		ranker:   retriever.NewDefaultHybrid(opts.CandidatePool, opts.KeywordMinLength),
		log:      logging.With("engine"),
	}
}

// OnLoad registers fn to run after every successful load. Register hooks
// before the engine is shared.
func (e *Engine) OnLoad(fn func()) {
	e.onLoad = append(e.onLoad, fn)
}

func (e *Engine) State() EngineState {
	return EngineState(e.state.Load())
}

// Rows returns the number of loaded rows, or 0 before the first load.
func (e *Engine) Rows() int {
	if l := e.loaded.Load(); l != nil {
		return l.store.Len()
	}
	return 0
}

// Load loads the artifact and instantiates its encoder. Concurrent callers
// share one in-flight load and its outcome. After a failure the engine is
// Unloaded again and the next call starts a new load.
func (e *Engine) Load(ctx context.Context) error {
	if e.loaded.Load() != nil {
		return nil
	}

	ch := e.group.DoChan("load", func() (any, error) {
		if e.loaded.Load() != nil {
			return nil, nil
		}
		e.state.Store(int32(StateLoading))

		l, err := e.load()
		if err != nil {
			metrics.ObserveLoad(0, err)
			e.state.Store(int32(StateUnloaded))
			e.log.Error().Err(err).Str("path", e.artifact.Path()).Msg("embedding store load failed")
			return nil, err
		}
		metrics.ObserveLoad(l.store.Len(), nil)

		e.loaded.Store(l)
		e.state.Store(int32(StateReady))
		for _, fn := range e.onLoad {
			fn()
		}
		e.log.Info().
			Int("rows", l.store.Len()).
			Int("dimension", l.store.Dimension()).
			Str("model", l.store.ModelName).
			Msg("engine ready")
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (e *Engine) load() (*loadedStore, error) {
	es, err := e.artifact.Load()
	if err != nil {
		return nil, err
	}

	if e.model != "" && e.model != es.ModelName {
		return nil, &domain.EncoderMismatchError{
			ArtifactModel:     es.ModelName,
			EncoderModel:      e.model,
			ArtifactDimension: es.Dimension(),
		}
	}

	model := e.model
	if model == "" {
		model = es.ModelName
	}
	enc, err := e.factory(model)
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder for %q: %w", model, err)
	}

	nameMismatch := es.ModelName != "" && enc.ModelName() != es.ModelName
	dimMismatch := es.Len() > 0 && enc.Dimension() != es.Dimension()
	if nameMismatch || dimMismatch {
		return nil, &domain.EncoderMismatchError{
			ArtifactModel:     es.ModelName,
			EncoderModel:      enc.ModelName(),
			ArtifactDimension: es.Dimension(),
			EncoderDimension:  enc.Dimension(),
		}
	}

	return &loadedStore{store: es, encoder: enc}, nil
}

// Recommend returns at most topK books for query, best first. A blank
// query or topK <= 0 yields an empty result without loading anything.
func (e *Engine) Recommend(ctx context.Context, query string, topK int) ([]domain.ScoredBook, error) {
	if topK <= 0 || strings.TrimSpace(query) == "" {
		return []domain.ScoredBook{}, nil
	}

	if err := e.Load(ctx); err != nil {
		metrics.ObserveRecommend(0, 0, err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	l := e.loaded.Load()

	vecs, err := l.encoder.Embed(ctx, []string{query})
	if err != nil {
		err = fmt.Errorf("failed to encode query: %w", err)
		metrics.ObserveRecommend(0, 0, err)
		return nil, err
	}
	if len(vecs) != 1 {
		err = fmt.Errorf("encoder returned %d vectors for one query", len(vecs))
		metrics.ObserveRecommend(0, 0, err)
		return nil, err
	}

	results := e.ranker.Rank(retriever.NewQuery(query, vecs[0]), l.store, topK)

	elapsed := time.Since(start)
	metrics.ObserveRecommend(elapsed.Seconds(), len(results), nil)
	e.log.Debug().Str("query", query).Int("top_k", topK).Int("results", len(results)).Dur("took", elapsed).Msg("recommend")

	return results, nil
}
