package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/franckalain/fooddiary/internal/server"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Sign a bearer token for a user",
	Long: `Sign an HS256 bearer token with the configured auth.jwt_secret, for
trying the API and the websocket without a sign-in service.`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
}

func runToken(cmd *cobra.Command, args []string) error {
	token, err := server.GenerateToken(cfg.Auth.JWTSecret, args[0], tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
