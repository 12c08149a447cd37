package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"bookrec/internal/domain"
	"bookrec/internal/usecase"
)

var reconcileDryRun bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Refresh stored book metadata without re-encoding",
	Long: `Replace the metadata of every stored book with its current record from the
library database. Vectors and row order are kept. If any stored ISBN is no longer
in the library, nothing is written; run 'bookrec build' instead.

Examples:
  bookrec reconcile
  bookrec reconcile --dry-run`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "report changes without writing")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	art, err := openArtifact(cfg)
	if err != nil {
		return err
	}

	src, err := openSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	result, err := usecase.NewReconcileUseCase(src, art).Reconcile(cmd.Context(), reconcileDryRun)
	if err != nil {
		var ie *domain.IntegrityError
		if errors.As(err, &ie) {
			fmt.Printf("%d of %d stored books are missing from the library; the embedding store was not modified.\n",
				ie.Unresolved, ie.Total)
			fmt.Println("Run 'bookrec build' to rebuild the store from the current library.")
		}
		return fmt.Errorf("reconcile failed: %w", err)
	}

	if result.DryRun {
		fmt.Printf("Dry run: %d of %d rows would change.\n", result.Changed, result.Rows)
		return nil
	}
	fmt.Printf("Reconciled %d rows (%d changed).\n", result.Rows, result.Changed)
	fmt.Printf("Embedding store written to: %s\n", result.Path)
	return nil
}
