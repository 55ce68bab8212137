package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gisops/solclone/internal/auth"
	"github.com/gisops/solclone/internal/config"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage job API authentication tokens",
	Long:  `Generate JWT tokens for authenticating against the job API`,
}

var generateTokenCmd = &cobra.Command{
	Use:   "generate <subject>",
	Short: "Generate a job API token",
	Long: `Generate a JWT token for the job API.

The token is signed with the jwt_secret from the configuration file.

Examples:
  # Generate a token for a deploy pipeline
  solclone token generate ci-pipeline

  # Generate a token with custom expiration (in hours)
  solclone token generate ci-pipeline --expiration 168

  # Use custom secret (overrides config)
  solclone token generate ci-pipeline --secret "my-custom-secret"`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerateToken,
}

var (
	tokenExpiration int64
	tokenSecret     string
)

func init() {
	generateTokenCmd.Flags().Int64Var(&tokenExpiration, "expiration", 24, "Token expiration in hours")
	generateTokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "JWT secret (default: from config file)")

	tokenCmd.AddCommand(generateTokenCmd)
}

func runGenerateToken(cmd *cobra.Command, args []string) error {
	subject := args[0]

	secret := tokenSecret
	if secret == "" && cfg != nil {
		secret = cfg.Security.JWTSecret
	}
	if secret == "" {
		return fmt.Errorf(`jwt_secret not found in config file and --secret not provided

Please either:
  1. Add to your config.yaml:
     security:
       jwt_secret: your-secret-here

  2. Or use the --secret flag:
     solclone token generate %s --secret "your-secret-here"`, subject)
	}

	tokenCfg := &config.Config{}
	tokenCfg.Security.JWTSecret = secret
	tokenCfg.Security.JWTExpiration = time.Duration(tokenExpiration) * time.Hour

	token, err := auth.NewJWTService(tokenCfg).GenerateToken(subject)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	fmt.Printf("Token Generated Successfully\n")
	fmt.Printf("============================\n\n")
	fmt.Printf("Subject:    %s\n", subject)
	fmt.Printf("Expiration: %d hours\n", tokenExpiration)
	fmt.Printf("\nToken:\n%s\n\n", token)
	fmt.Printf("Use it as a Bearer token against the job API:\n")
	fmt.Printf("  Authorization: Bearer %s\n", token)

	return nil
}
