package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alpkeskin/gotoon"
	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/franckalain/fooddiary/internal/config"
	"github.com/franckalain/fooddiary/internal/database"
	"github.com/franckalain/fooddiary/internal/observability"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "fooddiary",
	Short: "Food diary backend with AI calorie estimates",
	Long: `fooddiary keeps a per-day log of meals, estimates the calories of each
food item with a generative model, writes nutritional feedback for every
meal and runs a nutrition assistant chat.

Run "fooddiary serve" to start the HTTP and websocket server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
		observability.Init(os.Stderr, cfg.Log.Level, cfg.Server.Debug)
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.GetConfigPath(), "path to configuration file")
}

// openStore creates the configured document store
func openStore(ctx context.Context, cfg *config.Config) (database.Store, error) {
	switch cfg.Database.Backend {
	case "sqlite":
		return database.NewSQLiteDB(cfg.Database.Path)
	case "firestore":
		var opts []option.ClientOption
		if cfg.Firestore.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Firestore.CredentialsFile))
		}
		return database.NewFirestoreStore(ctx, cfg.Firestore.ProjectID, opts...)
	case "memory":
		return database.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported database backend: %s", cfg.Database.Backend)
	}
}

// render writes v as JSON or TOON; any other format uses text
func render(w io.Writer, format string, v any, text func(io.Writer)) error {
	switch format {
	case "json":
		output, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(w, string(output))
	case "toon":
		// round trip through JSON so field names follow the json tags
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		var generic any
		if err := json.Unmarshal(raw, &generic); err != nil {
			return fmt.Errorf("failed to decode JSON: %w", err)
		}
		output, err := gotoon.Encode(generic)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Fprintln(w, output)
	case "text", "":
		text(w)
	default:
		return fmt.Errorf("unknown output format %q (want text, json or toon)", format)
	}
	return nil
}
