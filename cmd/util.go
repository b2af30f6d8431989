package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jrschumacher/fitlink/internal/jwtutil"
	"github.com/spf13/cobra"
)

var utilCmd = &cobra.Command{
	Use:     "util",
	Aliases: []string{"utils"},
	Short:   "Utility commands for fitlink",
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

var (
	mintSubject  string
	mintTTL      time.Duration
	mintAudience string
)

var utilMintTokenCmd = &cobra.Command{
	Use:   "mint-token",
	Short: "Mint an HS256 bearer token for local development",
	RunE: func(_ *cobra.Command, _ []string) error {
		if cfg.AuthJWTSecret == "" {
			return errors.New("AUTH_JWT_SECRET is not set")
		}
		if mintSubject == "" {
			mintSubject = uuid.NewString()
		}
		if _, err := uuid.Parse(mintSubject); err != nil {
			return fmt.Errorf("--sub must be a UUID: %w", err)
		}
		audience := mintAudience
		if audience == "" {
			audience = cfg.AuthAudience
		}

		token, err := jwtutil.MintHS256(cfg.AuthJWTSecret, mintSubject, audience, mintTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	utilMintTokenCmd.Flags().StringVar(&mintSubject, "sub", "", "user id (UUID); random when empty")
	utilMintTokenCmd.Flags().DurationVar(&mintTTL, "ttl", time.Hour, "token lifetime")
	utilMintTokenCmd.Flags().StringVar(&mintAudience, "aud", "", "audience claim; defaults to AUTH_AUDIENCE")

	rootCmd.AddCommand(utilCmd)
	utilCmd.AddCommand(utilMintTokenCmd)
}
