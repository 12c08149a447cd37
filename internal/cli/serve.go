package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bookrec/config"
	"bookrec/internal/adapter/cache"
	"bookrec/internal/adapter/httpapi"
	"bookrec/internal/logging"
	"bookrec/internal/port"
	"bookrec/internal/usecase"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recommendations over HTTP",
	Long: `Load the embedding store and serve GET /recommend?query=...&top_k=N and
GET /metrics. If the store cannot be loaded at startup the server still starts;
requests retry the load and return 503 while the store is missing.

Examples:
  bookrec serve
  bookrec serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	log := logging.With("serve")

	engine, rec, err := newRecommender(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := engine.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("embedding store not loaded at startup, requests will retry")
	}

	addr := cfg.Serve.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           newHandler(cfg, rec),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("state", engine.State().String()).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// newRecommender wraps the engine in the query cache when one is configured.
func newRecommender(cfg *config.Config) (*usecase.Engine, port.Recommender, error) {
	engine, err := newEngine(cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Recommend.CacheSize <= 0 {
		return engine, engine, nil
	}
	cached := cache.NewCachedRecommender(engine, cache.NewQueryCache(cfg.Recommend.CacheSize, cfg.Recommend.CacheTTL))
	engine.OnLoad(cached.Invalidate)
	return engine, cached, nil
}

func newHandler(cfg *config.Config, rec port.Recommender) http.Handler {
	return httpapi.NewRouter(rec, httpapi.Options{
		AllowedOrigins: cfg.Serve.AllowedOrigins,
		DefaultTopK:    cfg.Recommend.TopK,
	})
}
