package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bookrec/config"
	"bookrec/internal/adapter/embedding"
	"bookrec/internal/adapter/retriever"
	"bookrec/internal/adapter/store"
	"bookrec/internal/domain"
	"bookrec/internal/logging"
	"bookrec/internal/usecase"
)

func main() {
	rootDir := flag.String("dir", ".", "Directory holding bookrec.yaml")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 10, "Number of results")
	relevant := flag.String("relevant", "", "Comma-separated ISBNs expected in the results")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir . -q \"query\" [-relevant isbn1,isbn2]")
		fmt.Println("\nReports:")
		fmt.Println("  1. Embedding store and encoder (model, dimension, rows)")
		fmt.Println("  2. Ranked results with their signal and score")
		fmt.Println("  3. Precision, recall and reciprocal rank against -relevant")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*rootDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: "warn", Format: cfg.Logging.Format})

	art, err := store.NewArtifactStore(cfg.ArtifactPath(*rootDir), cfg.Store.Compression)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening embedding store: %v\n", err)
		os.Exit(1)
	}
	stats, err := art.Stats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding store not available: %v\n", err)
		os.Exit(1)
	}

	engine := usecase.NewEngine(art, embedding.NewFactory(cfg.Embedding), usecase.EngineOptions{
		Model:            embedding.ConfiguredModel(cfg.Embedding),
		CandidatePool:    cfg.Recommend.CandidatePool,
		KeywordMinLength: cfg.Recommend.KeywordMinLength,
	})

	fmt.Println("RECOMMENDER BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Books stored: %d\n", stats.Rows)
	fmt.Printf("Model: %s (%s)\n", stats.ModelName, cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", stats.Dimension)
	fmt.Println()

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	results, err := engine.Recommend(context.Background(), *query, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Recommend error: %v\n", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}

	fmt.Printf("Top %d matches:\n\n", len(results))

	semanticTotal, semanticCount := 0.0, 0
	for i, r := range results {
		rating := "AUTHOR"
		if r.Signal == domain.SignalSemantic {
			semanticTotal += r.Score
			semanticCount++
			rating = "LOW"
			if r.Score > 0.7 {
				rating = "HIGH"
			} else if r.Score > 0.5 {
				rating = "GOOD"
			} else if r.Score > 0.3 {
				rating = "OK"
			}
		}

		preview := []rune(r.Description)
		if len(preview) > 150 {
			preview = append(preview[:150], []rune("...")...)
		}

		fmt.Printf("%d. [%s %.3f] %s by %s (%s)\n", i+1, rating, r.Score, r.Title, r.Author, r.ISBN)
		fmt.Printf("   %s\n\n", strings.ReplaceAll(string(preview), "\n", " "))
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("QUALITY METRICS:\n")
	if semanticCount > 0 {
		avg := semanticTotal / float64(semanticCount)
		fmt.Printf("  Average semantic similarity: %.3f\n", avg)
		if avg > 0.5 {
			fmt.Println("  Status: GOOD - semantic matches are close")
		} else if avg > 0.3 {
			fmt.Println("  Status: OK - results are somewhat related")
		} else {
			fmt.Println("  Status: POOR - consider another model and 'bookrec build'")
		}
	}

	if *relevant != "" {
		var want []string
		for _, s := range strings.Split(*relevant, ",") {
			if s = strings.TrimSpace(s); s != "" {
				want = append(want, s)
			}
		}
		got := retriever.ISBNs(results)
		fmt.Printf("  Precision@%d: %.3f\n", *topK, retriever.PrecisionAtK(got, want))
		fmt.Printf("  Recall@%d:    %.3f\n", *topK, retriever.RecallAtK(got, want))
		fmt.Printf("  MRR:          %.3f\n", retriever.ReciprocalRank(got, want))
	}
}
