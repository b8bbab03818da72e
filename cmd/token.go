package cmd

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"github.com/qrave1/InterviewRoom/internal/usecase"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <identity>",
	Short: "Mint a development identity token signed with JWT_SECRET",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := env.ParseAs[struct {
			JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
		}]()
		if err != nil {
			return fmt.Errorf("parse env: %w", err)
		}

		token, err := usecase.NewTokenUsecase(secret.JWTSecret).Issue(args[0], tokenTTL)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)

		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 72*time.Hour, "token lifetime")

	rootCmd.AddCommand(tokenCmd)
}
