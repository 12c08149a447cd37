package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bookrec/config"
	"bookrec/internal/logging"
)

var (
	cfgFile  string
	cfg      *config.Config
	rootDir  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "bookrec",
	Short: "Hybrid book recommender - semantic search with an author boost",
	Long: `bookrec recommends books for a free-text query. It ranks books by cosine
similarity between the query and precomputed "title: description" embeddings,
and always lists books whose author contains the query first.

The embedding store is built offline from the SQLite library database and can be
refreshed without re-encoding when only metadata changed.

Example usage:
  bookrec build                        # Encode every described book
  bookrec reconcile                    # Refresh metadata from the library
  bookrec recommend -q "space opera"   # Ask for recommendations
  bookrec serve                        # Serve GET /recommend over HTTP`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		logging.Init(logging.Config{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		})

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./bookrec.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}
