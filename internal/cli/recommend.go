package cli

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	recommendQuery string
	recommendTopK  int
	recommendJSON  bool
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend books for a query",
	Long: `Rank books by semantic similarity to the query. Books whose author contains
the query are always listed first.

Examples:
  bookrec recommend -q "isolated scientists on an alien planet"
  bookrec recommend -q "asimov" -k 10 --json`,
	Args: cobra.NoArgs,
	RunE: runRecommend,
}

func init() {
	rootCmd.AddCommand(recommendCmd)
	recommendCmd.Flags().StringVarP(&recommendQuery, "query", "q", "", "free-text query (required)")
	recommendCmd.Flags().IntVarP(&recommendTopK, "top-k", "k", 0, "number of results (default from config)")
	recommendCmd.Flags().BoolVar(&recommendJSON, "json", false, "output as JSON")
	recommendCmd.MarkFlagRequired("query")
}

func runRecommend(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	topK := cfg.Recommend.TopK
	if cmd.Flags().Changed("top-k") {
		topK = recommendTopK
	}

	results, err := engine.Recommend(cmd.Context(), recommendQuery, topK)
	if err != nil {
		return fmt.Errorf("recommend failed: %w", err)
	}

	if recommendJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d books for: %s\n\n", len(results), recommendQuery)
	for i, r := range results {
		year := "n.d."
		if r.Year != nil {
			year = fmt.Sprint(*r.Year)
		}
		fmt.Printf("--- [%d] %s by %s (%s) isbn %s (score: %.3f, %s) ---\n",
			i+1, r.Title, r.Author, year, r.ISBN, r.Score, r.Signal)
		desc := []rune(r.Description)
		if len(desc) > 300 {
			desc = append(desc[:300], []rune("...")...)
		}
		if len(desc) > 0 {
			fmt.Println(string(desc))
		}
		fmt.Println()
	}
	return nil
}
