package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show embedding store statistics",
	Args:  cobra.NoArgs,
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	art, err := openArtifact(GetConfig())
	if err != nil {
		return err
	}

	stats, err := art.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("Embedding store: %s\n", art.Path())
	fmt.Printf("  Rows:           %d\n", stats.Rows)
	fmt.Printf("  Dimension:      %d\n", stats.Dimension)
	fmt.Printf("  Model:          %s\n", stats.ModelName)
	fmt.Printf("  Schema version: %d\n", stats.SchemaVersion)
	fmt.Printf("  Compression:    %s\n", stats.Compression)
	return nil
}
