package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zfogg/resonate/internal/config"
	"github.com/zfogg/resonate/internal/database"
	"github.com/zfogg/resonate/internal/engine"
	"github.com/zfogg/resonate/internal/index"
	"github.com/zfogg/resonate/internal/logger"
)

var (
	configPath  string
	databaseURL string
)

var rootCmd = &cobra.Command{
	Use:   "resonate",
	Short: "Resonate CLI - Register and identify audio recordings",
	Long: `Resonate CLI drives the fingerprinting engine against a local index.
Register reference recordings, identify query clips, and manage the corpus.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		if err := logger.Initialize(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
		if databaseURL == "" {
			databaseURL = os.Getenv("DATABASE_URL")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Engine config file (YAML); defaults apply when empty")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "db", "", "Database DSN (defaults to DATABASE_URL, then a local sqlite file)")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(identifyCmd)
	rootCmd.AddCommand(clearCmd)
}

// openEngine builds an engine over the durable store for one CLI invocation.
func openEngine() (*engine.Engine, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		database.Close(db)
		return nil, nil, err
	}

	eng, err := engine.New(cfg, index.NewStore(db))
	if err != nil {
		database.Close(db)
		return nil, nil, err
	}

	cleanup := func() {
		database.Close(db)
		logger.Close()
	}
	return eng, cleanup, nil
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every recording and fingerprint from the index",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, cleanup, err := openEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := eng.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Index cleared")
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
