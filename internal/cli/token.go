package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tansive/stately/internal/statesrv/auth"
)

var (
	tokenSecret   string
	tokenValidity time.Duration
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Mint a bearer token for a subject",
	Long: `Mint a bearer token for a subject, signed with the server's auth
secret. Intended for operators provisioning credentials; the secret must
match the auth_secret in the server's configuration.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := auth.IssueToken(args[0], tokenSecret, tokenValidity)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(map[string]string{"token": token})
			return nil
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "Signing secret shared with the server")
	tokenCmd.Flags().DurationVar(&tokenValidity, "validity", 24*time.Hour, "How long the token stays valid")
	tokenCmd.MarkFlagRequired("secret")
}
