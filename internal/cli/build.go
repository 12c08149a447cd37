package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"bookrec/internal/adapter/embedding"
	"bookrec/internal/usecase"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the embedding store from the library database",
	Long: `Encode "title: description" for every book with a description and
write the embedding store. The previous store is replaced atomically, and only
once every book has been encoded.

Examples:
  bookrec build
  bookrec build --config ./bookrec.yaml`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	src, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	art, err := openArtifact(cfg)
	if err != nil {
		return err
	}

	embedder, err := embedding.NewFactory(cfg.Embedding)("")
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	fmt.Printf("Reading %s...\n", src.Path())
	fmt.Printf("Embedding with provider=%s, model=%s\n", cfg.Embedding.Provider, embedder.ModelName())

	buildUC := usecase.NewBuildUseCase(src, embedder, art, cfg.Embedding.BatchSize, cfg.Embedding.Concurrency)

	var (
		bar       *progressbar.ProgressBar
		barMu     sync.Mutex
		startTime time.Time
	)
	progressCallback := func(processed, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Encoding[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}

		bar.Set(processed)

		elapsed := time.Since(startTime)
		if rate := float64(processed) / elapsed.Seconds(); rate > 0 {
			eta := time.Duration(float64(total-processed)/rate) * time.Second
			bar.Describe(fmt.Sprintf("[cyan]Encoding[reset] ETA: %s", formatDuration(eta)))
		}
	}

	result, err := buildUC.Build(cmd.Context(), progressCallback)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	fmt.Printf("\nBuild complete:\n")
	fmt.Printf("  Books encoded: %d\n", result.Records)
	fmt.Printf("  Dimension:     %d\n", result.Dimension)
	fmt.Printf("  Model:         %s\n", result.ModelName)
	fmt.Printf("  Took:          %s\n", formatDuration(result.Duration))
	fmt.Printf("\nEmbedding store written to: %s\n", result.Path)
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
