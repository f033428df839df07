package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wellmind/internal/config"
	"wellmind/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load reference data into the wellmind stores",
	Long:  "seed upserts intervention definitions and generates synthetic prediction records\nso a fresh deployment has something to cluster and evaluate against.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: setup,
}

var rootFlags struct {
	timeout time.Duration
}

// env is shared by every subcommand once setup has run
var env struct {
	cfg *config.Config
	db  *mongo.Database
	log *slog.Logger
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&rootFlags.timeout, "timeout", 2*time.Minute, "overall deadline for the run")

	rootCmd.AddCommand(interventionsCmd)
	rootCmd.AddCommand(predictionsCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), rootFlags.timeout)
	cobra.OnFinalize(cancel)
	cmd.SetContext(ctx)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	cobra.OnFinalize(func() { client.Disconnect(context.Background()) })

	env.cfg = cfg
	env.db = client.Database(cfg.MongoDatabase)
	env.log = logging.New("seed")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
