package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/franckalain/fooddiary/internal/ml"
	"github.com/franckalain/fooddiary/internal/observability"
	"github.com/franckalain/fooddiary/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the diary server",
	Long: `Start the HTTP server: the /ws diary websocket, the /api routes and the
static web client. Stops gracefully on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := observability.Logger()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Database.Backend, err)
	}
	defer store.Close()

	model, err := ml.NewModel(cfg.ML)
	if err != nil {
		return fmt.Errorf("failed to create ML model: %w", err)
	}
	if err := model.Load(ctx); err != nil {
		return fmt.Errorf("failed to load ML model: %w", err)
	}
	defer closeModel(model)
	logger.Info("model ready", "type", cfg.ML.Type, "database", cfg.Database.Backend)

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("no jwt secret configured, trusting the uid parameter and X-User-ID header")
	}

	srv := server.New(store, model, server.Options{
		StaticDir: cfg.Server.StaticDir,
		Debug:     cfg.Server.Debug,
		JWTSecret: cfg.Auth.JWTSecret,
	})
	return srv.Start(ctx, cfg.Server.Port)
}

// closeModel releases the client of backends that hold one
func closeModel(model ml.Model) {
	if c, ok := model.(io.Closer); ok {
		if err := c.Close(); err != nil {
			observability.Logger().Warn("failed to close ML model", "error", err)
		}
	}
}
