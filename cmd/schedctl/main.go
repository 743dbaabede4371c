package main

import (
	"fmt"
	"os"
	"time"

	config "github.com/IsaiahDupree/MediaPoster-sub001/configs"
	"github.com/IsaiahDupree/MediaPoster-sub001/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "schedctl",
	Short:         "Operator tools for the publishing scheduler",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <operator>",
	Short: "Mint an API session token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := secretKey()
		if err != nil {
			return err
		}
		token, err := utils.GenerateToken(secret, args[0], tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var sealCmd = &cobra.Command{
	Use:   "seal <access-token>",
	Short: "Encrypt a platform access token for the social_accounts table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := secretKey()
		if err != nil {
			return err
		}
		sealed, err := utils.Encrypt([]byte(args[0]), []byte(secret))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), sealed)
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd, sealCmd)
}

func secretKey() (string, error) {
	secret := config.LoadConfig().SecretKey
	if secret == "" {
		return "", fmt.Errorf("SECRET_KEY is not set")
	}
	return secret, nil
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
